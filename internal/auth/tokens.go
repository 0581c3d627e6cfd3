// Package auth implements passwordless sign-in: magic links sent by email
// and signed session tokens.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sanctuari/rfq-cli/internal/model"
)

// ErrAuthFailed is returned for any token or identity that does not check out.
var ErrAuthFailed = eris.New("auth: authentication failed")

const (
	purposeMagicLink = "magic_link"
	purposeSession   = "session"
	issuer           = "rfq-cli"
)

type claims struct {
	Purpose   string               `json:"purpose"`
	Email     string               `json:"email"`
	CompanyID string               `json:"company_id,omitempty"`
	Signup    *model.SignupPayload `json:"signup,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret     []byte
	linkTTL    time.Duration
	sessionTTL time.Duration
	now        func() time.Time
}

// NewTokens creates a token issuer.
func NewTokens(secret string, linkTTL, sessionTTL time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), linkTTL: linkTTL, sessionTTL: sessionTTL, now: time.Now}
}

// Link is a verified magic-link token.
type Link struct {
	ID        string
	Email     string
	ExpiresAt time.Time
}

// MagicLink issues a short-lived sign-in token for email. Each token carries
// a fresh ID so it can be redeemed once.
func (t *Tokens) MagicLink(email string) (string, error) {
	c := claims{Purpose: purposeMagicLink, Email: normalizeEmail(email)}
	c.ID = uuid.NewString()
	return t.sign(c, t.linkTTL)
}

// Session issues a session token for s. s.ExpiresAt is set from the
// session TTL.
func (t *Tokens) Session(s *model.Session) (string, error) {
	s.ExpiresAt = t.now().Add(t.sessionTTL).UTC().Truncate(time.Second)
	c := claims{
		Purpose:   purposeSession,
		Email:     s.Email,
		CompanyID: s.CompanyID,
		Signup:    s.Signup,
	}
	c.Subject = s.UserID
	return t.sign(c, t.sessionTTL)
}

// ParseMagicLink verifies a magic-link token. It does not check whether the
// link was already redeemed.
func (t *Tokens) ParseMagicLink(token string) (*Link, error) {
	c, err := t.parse(token, purposeMagicLink)
	if err != nil {
		return nil, err
	}
	if c.ID == "" {
		return nil, eris.Wrap(ErrAuthFailed, "auth: magic link has no id")
	}
	return &Link{ID: c.ID, Email: c.Email, ExpiresAt: c.ExpiresAt.UTC()}, nil
}

// ParseSession verifies a session token.
func (t *Tokens) ParseSession(token string) (*model.Session, error) {
	c, err := t.parse(token, purposeSession)
	if err != nil {
		return nil, err
	}
	s := &model.Session{
		UserID:    c.Subject,
		CompanyID: c.CompanyID,
		Email:     c.Email,
		Signup:    c.Signup,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.UTC()
	}
	return s, nil
}

func (t *Tokens) sign(c claims, ttl time.Duration) (string, error) {
	now := t.now()
	c.Issuer = issuer
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	return signed, eris.Wrap(err, "auth: sign token")
}

func (t *Tokens) parse(token, purpose string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, eris.Wrapf(ErrAuthFailed, "auth: %v", err)
	}
	if c.Purpose != purpose {
		return nil, eris.Wrapf(ErrAuthFailed, "auth: token purpose %q", c.Purpose)
	}
	return &c, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
