package distribution

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/mailer"
	"github.com/sanctuari/rfq-cli/internal/model"
)

// ErrEmptyMessage is returned for blank messages.
var ErrEmptyMessage = eris.New("distribution: empty message")

// BroadcastRequest is a client message to everyone invited to an RFQ.
type BroadcastRequest struct {
	RFQID     string `json:"-"`
	CompanyID string `json:"-"`
	UserID    string `json:"-"`
	Message   string `json:"message"`
	// Notify also emails the message to recipients who have not declined.
	Notify bool `json:"notify"`
}

// BroadcastResult is returned by Broadcast.
type BroadcastResult struct {
	Communication *model.Communication `json:"communication"`
	Notified      int                  `json:"notified"`
	Failed        int                  `json:"failed"`
}

// Broadcast stores a client message on the RFQ and optionally emails it.
func (s *Service) Broadcast(ctx context.Context, req BroadcastRequest) (*BroadcastResult, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}
	rfq, err := s.ownedRFQ(ctx, req.CompanyID, req.RFQID)
	if err != nil {
		return nil, err
	}

	c := &model.Communication{
		RFQID:       rfq.ID,
		SenderType:  model.SenderClient,
		SenderID:    req.UserID,
		Message:     msg,
		IsBroadcast: true,
	}
	if err := s.store.CreateCommunication(ctx, c); err != nil {
		return nil, eris.Wrap(err, "distribution: create communication")
	}
	res := &BroadcastResult{Communication: c}
	if !req.Notify {
		return res, nil
	}

	company, err := s.store.GetCompany(ctx, rfq.CompanyID)
	if err != nil {
		return res, eris.Wrap(err, "distribution: get company")
	}
	ds, err := s.store.ListDistributions(ctx, rfq.ID)
	if err != nil {
		return res, eris.Wrap(err, "distribution: list distributions")
	}
	var to []string
	for _, d := range ds {
		if d.Status != model.DistributionDeclined {
			to = append(to, d.RecipientEmail)
		}
	}

	errs := s.fanOut(ctx, len(to), func(ctx context.Context, i int) error {
		return s.send(ctx, mailer.Broadcast(to[i], company.Name, rfq.RFQNumber, msg))
	})
	for i, err := range errs {
		if err != nil {
			res.Failed++
			zap.L().Warn("distribution: broadcast email failed", zap.String("email", to[i]), zap.Error(err))
			continue
		}
		res.Notified++
	}
	return res, nil
}

// Messages lists the communications on an RFQ owned by companyID.
func (s *Service) Messages(ctx context.Context, companyID, rfqID string) ([]model.Communication, error) {
	if _, err := s.ownedRFQ(ctx, companyID, rfqID); err != nil {
		return nil, err
	}
	cs, err := s.store.ListCommunications(ctx, rfqID)
	return cs, eris.Wrap(err, "distribution: list communications")
}
