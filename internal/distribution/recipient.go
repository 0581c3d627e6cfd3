package distribution

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/store"
)

var (
	// ErrInvitationNotFound is returned for unknown invitation links.
	ErrInvitationNotFound = eris.New("distribution: invitation not found")
	// ErrInvitationClosed is returned when a recipient acts on an invitation
	// that was already answered or whose RFQ is closed.
	ErrInvitationClosed = eris.New("distribution: invitation closed")
	// ErrInvalidQuote is returned for quotes without a positive premium.
	ErrInvalidQuote = eris.New("distribution: invalid quote")
)

// Invitation is what a recipient sees when opening their link.
type Invitation struct {
	Distribution model.Distribution `json:"distribution"`
	RFQ          model.RFQ          `json:"rfq"`
	CompanyName  string             `json:"company_name"`
}

// QuoteInput is a recipient's quote.
type QuoteInput struct {
	InsurerName     string  `json:"insurer_name"`
	PremiumAmount   float64 `json:"premium_amount"`
	CoverageDetails string  `json:"coverage_details"`
	DocumentURL     string  `json:"document_url"`
}

// Open resolves an invitation link. The first open marks the invitation
// viewed.
func (s *Service) Open(ctx context.Context, link string) (*Invitation, error) {
	d, rfq, err := s.invitation(ctx, link)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	changed, err := s.store.MarkDistributionViewed(ctx, d.ID, now)
	if err != nil {
		return nil, eris.Wrap(err, "distribution: mark viewed")
	}
	if changed {
		d.ViewedAt = &now
		d.Status = model.DistributionViewed
		zap.L().Info("distribution: invitation viewed",
			zap.String("rfq_id", d.RFQID),
			zap.String("distribution_id", d.ID),
		)
	}

	inv := &Invitation{Distribution: *d, RFQ: *rfq}
	if company, err := s.store.GetCompany(ctx, rfq.CompanyID); err == nil {
		inv.CompanyName = company.Name
	} else {
		zap.L().Warn("distribution: company lookup failed", zap.String("company_id", rfq.CompanyID), zap.Error(err))
	}
	return inv, nil
}

// SubmitQuote records a quote against the invitation and marks it quoted.
func (s *Service) SubmitQuote(ctx context.Context, link string, in QuoteInput) (*model.Quote, error) {
	if in.PremiumAmount <= 0 {
		return nil, eris.Wrapf(ErrInvalidQuote, "distribution: premium %.2f", in.PremiumAmount)
	}
	d, _, err := s.openInvitation(ctx, link)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.InsurerName)
	for _, fallback := range []string{d.RecipientCompany, d.RecipientName, d.RecipientEmail} {
		if name != "" {
			break
		}
		name = fallback
	}
	q := &model.Quote{
		RFQID:           d.RFQID,
		DistributionID:  d.ID,
		SubmittedBy:     d.RecipientEmail,
		InsurerName:     name,
		PremiumAmount:   in.PremiumAmount,
		CoverageDetails: strings.TrimSpace(in.CoverageDetails),
		DocumentURL:     strings.TrimSpace(in.DocumentURL),
		Status:          model.QuoteSubmitted,
	}
	if err := s.store.CreateQuote(ctx, q); err != nil {
		return nil, eris.Wrap(err, "distribution: create quote")
	}
	zap.L().Info("distribution: quote submitted",
		zap.String("rfq_id", q.RFQID),
		zap.String("distribution_id", d.ID),
		zap.Float64("premium", q.PremiumAmount),
	)
	return q, nil
}

// Decline marks the invitation declined.
func (s *Service) Decline(ctx context.Context, link string) error {
	d, _, err := s.openInvitation(ctx, link)
	if err != nil {
		return err
	}
	if err := s.store.UpdateDistributionStatus(ctx, d.ID, model.DistributionDeclined); err != nil {
		return eris.Wrap(err, "distribution: decline")
	}
	zap.L().Info("distribution: invitation declined",
		zap.String("rfq_id", d.RFQID),
		zap.String("distribution_id", d.ID),
	)
	return nil
}

// openInvitation loads an invitation a recipient may still answer.
func (s *Service) openInvitation(ctx context.Context, link string) (*model.Distribution, *model.RFQ, error) {
	d, rfq, err := s.invitation(ctx, link)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case closed(rfq.Status):
		return nil, nil, eris.Wrapf(ErrInvitationClosed, "distribution: rfq %s is %s", rfq.ID, rfq.Status)
	case d.Status == model.DistributionQuoted || d.Status == model.DistributionDeclined:
		return nil, nil, eris.Wrapf(ErrInvitationClosed, "distribution: invitation already %s", d.Status)
	}
	return d, rfq, nil
}

func (s *Service) invitation(ctx context.Context, link string) (*model.Distribution, *model.RFQ, error) {
	d, err := s.store.GetDistributionByLink(ctx, link)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, eris.Wrapf(ErrInvitationNotFound, "distribution: link %s", link)
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "distribution: get invitation")
	}
	rfq, err := s.store.GetRFQ(ctx, d.RFQID)
	if err != nil {
		return nil, nil, eris.Wrap(err, "distribution: get rfq")
	}
	return d, rfq, nil
}
