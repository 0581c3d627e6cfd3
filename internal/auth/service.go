package auth

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/mailer"
	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/store"
)

var (
	// ErrInvalidSignup is returned when signup details are incomplete.
	ErrInvalidSignup = eris.New("auth: invalid signup")
	// ErrAccountExists is returned when signing up with an email that
	// already belongs to a user.
	ErrAccountExists = eris.New("auth: account already exists")
)

// Next step after a successful callback.
const (
	NextOnboarding = "onboarding"
	NextDashboard  = "dashboard"
)

// Users is the part of the store the service needs.
type Users interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	RecordLogin(ctx context.Context, userID string, at time.Time) error
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// CallbackURL receives the token as the "token" query parameter.
	CallbackURL string
	SignupTTL   time.Duration
}

// Service runs the magic-link flows.
type Service struct {
	tokens  *Tokens
	users   Users
	signups PayloadCache
	mail    mailer.Sender
	opts    ServiceOptions
}

// NewService creates an auth service.
func NewService(tokens *Tokens, users Users, signups PayloadCache, mail mailer.Sender, opts ServiceOptions) *Service {
	if opts.SignupTTL <= 0 {
		opts.SignupTTL = time.Hour
	}
	return &Service{tokens: tokens, users: users, signups: signups, mail: mail, opts: opts}
}

// Tokens returns the token issuer.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Signup caches the signup details under the email and sends a magic link.
func (s *Service) Signup(ctx context.Context, p model.SignupPayload) error {
	p.Email = normalizeEmail(p.Email)
	p.FullName = strings.TrimSpace(p.FullName)
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	p.Phone = strings.TrimSpace(p.Phone)

	if err := validateEmail(p.Email); err != nil {
		return err
	}
	if p.FullName == "" || p.CompanyName == "" {
		return eris.Wrap(ErrInvalidSignup, "auth: full name and company name are required")
	}

	if _, err := s.users.GetUserByEmail(ctx, p.Email); err == nil {
		return eris.Wrapf(ErrAccountExists, "auth: %s", p.Email)
	} else if !errors.Is(err, store.ErrNotFound) {
		return eris.Wrap(err, "auth: look up user")
	}

	if err := s.signups.Put(ctx, p, s.opts.SignupTTL); err != nil {
		return err
	}
	return s.SendMagicLink(ctx, p.Email)
}

// SendMagicLink emails a sign-in link to email.
func (s *Service) SendMagicLink(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	token, err := s.tokens.MagicLink(email)
	if err != nil {
		return err
	}
	if err := s.mail.Send(ctx, mailer.MagicLink(email, s.callbackLink(token))); err != nil {
		return eris.Wrap(err, "auth: send magic link")
	}
	zap.L().Info("auth: magic link sent", zap.String("email", email))
	return nil
}

// CallbackResult is the outcome of following a magic link.
type CallbackResult struct {
	Token   string         `json:"token"`
	Next    string         `json:"next"`
	Session *model.Session `json:"session"`
}

// Callback exchanges a magic-link token for a session. Each link is
// redeemed at most once. A pending signup payload is consumed here, and the
// caller is sent to onboarding.
func (s *Service) Callback(ctx context.Context, linkToken string) (*CallbackResult, error) {
	link, err := s.tokens.ParseMagicLink(linkToken)
	if err != nil {
		return nil, err
	}
	ttl := max(link.ExpiresAt.Sub(s.tokens.now()), time.Second)
	fresh, err := s.signups.Claim(ctx, link.ID, ttl)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, eris.Wrapf(ErrAuthFailed, "auth: magic link %s already used", link.ID)
	}
	email := link.Email

	signup, err := s.signups.Take(ctx, email)
	if err != nil {
		return nil, err
	}

	var sess *model.Session
	next := NextDashboard
	switch {
	case signup != nil:
		sess = &model.Session{Email: email, Signup: signup}
		next = NextOnboarding
	default:
		user, err := s.users.GetUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return nil, eris.Wrapf(ErrAuthFailed, "auth: no account or signup for %s", email)
		}
		if err != nil {
			return nil, eris.Wrap(err, "auth: look up user")
		}
		if !user.IsActive {
			return nil, eris.Wrapf(ErrAuthFailed, "auth: user %s is inactive", user.ID)
		}
		if err := s.users.RecordLogin(ctx, user.ID, s.tokens.now().UTC()); err != nil {
			zap.L().Warn("auth: record login failed", zap.String("user_id", user.ID), zap.Error(err))
		}
		sess = &model.Session{UserID: user.ID, CompanyID: user.CompanyID, Email: email}
	}

	token, err := s.tokens.Session(sess)
	if err != nil {
		return nil, err
	}
	return &CallbackResult{Token: token, Next: next, Session: sess}, nil
}

// Authenticate resolves a session token.
func (s *Service) Authenticate(token string) (*model.Session, error) {
	return s.tokens.ParseSession(strings.TrimSpace(strings.TrimPrefix(token, "Bearer ")))
}

func (s *Service) callbackLink(token string) string {
	u, err := url.Parse(s.opts.CallbackURL)
	if err != nil || s.opts.CallbackURL == "" {
		return s.opts.CallbackURL + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return eris.Wrapf(ErrInvalidSignup, "auth: invalid email %q", email)
	}
	return nil
}
