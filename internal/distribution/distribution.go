// Package distribution sends RFQs to insurers and brokers, and handles the
// recipient side of an invitation: viewing, quoting and declining.
package distribution

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sanctuari/rfq-cli/internal/mailer"
	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/resilience"
	"github.com/sanctuari/rfq-cli/internal/store"
)

var (
	// ErrRFQNotFound is returned when the RFQ does not exist or belongs to
	// another company.
	ErrRFQNotFound = eris.New("distribution: rfq not found")
	// ErrRFQClosed is returned for RFQs that no longer accept recipients or quotes.
	ErrRFQClosed = eris.New("distribution: rfq closed")
	// ErrNoRecipients is returned when a request names nobody to send to.
	ErrNoRecipients = eris.New("distribution: no recipients")
	// ErrInvalidRecipient is returned for malformed custom email addresses.
	ErrInvalidRecipient = eris.New("distribution: invalid recipient")
)

// Store is the persistence the package needs.
type Store interface {
	GetRFQ(ctx context.Context, id string) (*model.RFQ, error)
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	UpdateRFQStatus(ctx context.Context, id string, status model.RFQStatus) error
	ListInsurers(ctx context.Context, ids []string) ([]model.Insurer, error)
	ListBrokers(ctx context.Context, ids []string) ([]model.Broker, error)
	CreateDistribution(ctx context.Context, d *model.Distribution) error
	ListDistributions(ctx context.Context, rfqID string) ([]model.Distribution, error)
	GetDistributionByLink(ctx context.Context, link string) (*model.Distribution, error)
	MarkDistributionViewed(ctx context.Context, id string, at time.Time) (bool, error)
	UpdateDistributionStatus(ctx context.Context, id string, status model.DistributionStatus) error
	CreateQuote(ctx context.Context, q *model.Quote) error
	CreateCommunication(ctx context.Context, c *model.Communication) error
	ListCommunications(ctx context.Context, rfqID string) ([]model.Communication, error)
}

// Options configures a Service.
type Options struct {
	// BaseURL prefixes invitation links: <BaseURL>/invitations/<link>.
	BaseURL       string
	Concurrency   int
	RatePerSecond float64
	Retry         resilience.RetryConfig
	Now           func() time.Time
}

// Service distributes RFQs.
type Service struct {
	store   Store
	mail    mailer.Sender
	opts    Options
	limiter *rate.Limiter
}

// NewService creates a distribution service.
func NewService(st Store, mail mailer.Sender, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 10
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Service{
		store:   st,
		mail:    mail,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Concurrency),
	}
}

// Request selects the recipients of one distribution.
type Request struct {
	RFQID        string   `json:"-"`
	CompanyID    string   `json:"-"`
	CustomEmails []string `json:"custom_emails"`
	InsurerIDs   []string `json:"insurer_ids"`
	BrokerIDs    []string `json:"broker_ids"`
}

// Failure is one recipient that could not be invited.
type Failure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// Summary reports the outcome of Distribute.
type Summary struct {
	RFQID      string          `json:"rfq_id"`
	Recipients int             `json:"recipients"`
	Sent       int             `json:"sent"`
	Failed     int             `json:"failed"`
	Failures   []Failure       `json:"failures,omitempty"`
	Status     model.RFQStatus `json:"status"`
}

// InvitationURL returns the public URL for an invitation link.
func (s *Service) InvitationURL(link string) string {
	return s.opts.BaseURL + "/invitations/" + link
}

// Distribute invites every selected recipient. Each recipient gets one
// distribution row and one email; a recipient already invited to the RFQ
// is sent the existing link again. The RFQ is published once at least one
// invitation goes out.
func (s *Service) Distribute(ctx context.Context, req Request) (*Summary, error) {
	rfq, err := s.ownedRFQ(ctx, req.CompanyID, req.RFQID)
	if err != nil {
		return nil, err
	}
	if closed(rfq.Status) {
		return nil, eris.Wrapf(ErrRFQClosed, "distribution: rfq %s is %s", rfq.ID, rfq.Status)
	}
	company, err := s.store.GetCompany(ctx, rfq.CompanyID)
	if err != nil {
		return nil, eris.Wrap(err, "distribution: get company")
	}

	recipients, err := s.recipients(ctx, rfq.ID, req)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	existing, err := s.store.ListDistributions(ctx, rfq.ID)
	if err != nil {
		return nil, eris.Wrap(err, "distribution: list distributions")
	}
	byEmail := make(map[string]model.Distribution, len(existing))
	for _, d := range existing {
		byEmail[d.RecipientEmail] = d
	}

	results := s.fanOut(ctx, len(recipients), func(ctx context.Context, i int) error {
		d := recipients[i]
		if prior, ok := byEmail[d.RecipientEmail]; ok {
			d = prior
		} else if err := s.store.CreateDistribution(ctx, &d); err != nil {
			return eris.Wrap(err, "distribution: create distribution")
		}
		msg := mailer.Invitation(d.RecipientEmail, d.RecipientName, company.Name, rfq.RFQNumber, s.InvitationURL(d.UniqueLink))
		return s.send(ctx, msg)
	})

	summary := &Summary{RFQID: rfq.ID, Recipients: len(recipients), Status: rfq.Status}
	for i, err := range results {
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Email: recipients[i].RecipientEmail, Error: err.Error()})
			zap.L().Warn("distribution: invitation failed",
				zap.String("rfq_id", rfq.ID),
				zap.String("email", recipients[i].RecipientEmail),
				zap.Error(err),
			)
			continue
		}
		summary.Sent++
	}

	if summary.Sent > 0 && rfq.Status == model.RFQDraft {
		if err := s.store.UpdateRFQStatus(ctx, rfq.ID, model.RFQPublished); err != nil {
			return summary, eris.Wrap(err, "distribution: publish rfq")
		}
		summary.Status = model.RFQPublished
	}

	zap.L().Info("distribution: rfq distributed",
		zap.String("rfq_id", rfq.ID),
		zap.Int("recipients", summary.Recipients),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// Distributions lists the invitations of an RFQ owned by companyID.
func (s *Service) Distributions(ctx context.Context, companyID, rfqID string) ([]model.Distribution, error) {
	if _, err := s.ownedRFQ(ctx, companyID, rfqID); err != nil {
		return nil, err
	}
	ds, err := s.store.ListDistributions(ctx, rfqID)
	return ds, eris.Wrap(err, "distribution: list distributions")
}

// recipients resolves a request into unsaved distributions, deduplicated
// by email in request order: custom emails, insurers, then brokers.
func (s *Service) recipients(ctx context.Context, rfqID string, req Request) ([]model.Distribution, error) {
	var out []model.Distribution
	seen := make(map[string]bool)
	add := func(d model.Distribution) {
		if seen[d.RecipientEmail] {
			return
		}
		seen[d.RecipientEmail] = true
		d.RFQID = rfqID
		out = append(out, d)
	}

	for _, raw := range req.CustomEmails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" {
			continue
		}
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			return nil, eris.Wrapf(ErrInvalidRecipient, "distribution: %q", raw)
		}
		add(model.Distribution{RecipientEmail: email, RecipientType: model.RecipientBroker})
	}

	if len(req.InsurerIDs) > 0 {
		insurers, err := s.store.ListInsurers(ctx, req.InsurerIDs)
		if err != nil {
			return nil, eris.Wrap(err, "distribution: list insurers")
		}
		warnMissing("insurer", req.InsurerIDs, len(insurers))
		for _, in := range insurers {
			add(model.Distribution{
				RecipientEmail:   strings.ToLower(in.ContactEmail),
				RecipientName:    in.Name,
				RecipientType:    model.RecipientInsurer,
				RecipientCompany: in.Name,
			})
		}
	}

	if len(req.BrokerIDs) > 0 {
		brokers, err := s.store.ListBrokers(ctx, req.BrokerIDs)
		if err != nil {
			return nil, eris.Wrap(err, "distribution: list brokers")
		}
		warnMissing("broker", req.BrokerIDs, len(brokers))
		for _, b := range brokers {
			add(model.Distribution{
				RecipientEmail:   strings.ToLower(b.ContactEmail),
				RecipientName:    b.Name,
				RecipientType:    model.RecipientBroker,
				RecipientCompany: b.Name,
			})
		}
	}
	return out, nil
}

func warnMissing(kind string, ids []string, found int) {
	if found < len(ids) {
		zap.L().Warn("distribution: unknown or inactive network entries skipped",
			zap.String("kind", kind),
			zap.Int("requested", len(ids)),
			zap.Int("found", found),
		)
	}
}

// fanOut runs fn for 0..n-1 with bounded concurrency and the send rate
// limit, and returns each call's error by index. One failure does not stop
// the others.
func (s *Service) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i := range n {
		g.Go(func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				errs[i] = eris.Wrap(err, "distribution: rate limit")
				return nil
			}
			errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (s *Service) send(ctx context.Context, msg mailer.Message) error {
	cfg := s.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("distribution: send " + msg.To)
	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return s.mail.Send(ctx, msg)
	})
}

func (s *Service) ownedRFQ(ctx context.Context, companyID, rfqID string) (*model.RFQ, error) {
	rfq, err := s.store.GetRFQ(ctx, rfqID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && rfq.CompanyID != companyID) {
		return nil, eris.Wrapf(ErrRFQNotFound, "distribution: rfq %s", rfqID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "distribution: get rfq")
	}
	return rfq, nil
}

func closed(status model.RFQStatus) bool {
	return status == model.RFQClosed || status == model.RFQAwarded
}
