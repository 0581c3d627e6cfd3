// Package submission turns a completed questionnaire into an RFQ, either
// directly (first RFQ of a company) or after the fee is paid.
package submission

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/payment"
	"github.com/sanctuari/rfq-cli/internal/store"
)

// DefaultFee is the paid RFQ fee in whole rupees.
const DefaultFee int64 = 1599

var (
	// ErrSubmissionFailed is returned when an RFQ could not be created or
	// its payment could not be started.
	ErrSubmissionFailed = eris.New("submission: failed")
	// ErrUnknownOrder is returned for notifications about orders with no pending payment.
	ErrUnknownOrder = eris.New("submission: unknown order")
)

// Store persists RFQs and payments awaiting confirmation.
type Store interface {
	CountRFQs(ctx context.Context, companyID string) (int, error)
	CreateRFQ(ctx context.Context, rfq *model.RFQ) error
	SavePendingPayment(ctx context.Context, p *model.PendingPayment) error
	GetPendingPayment(ctx context.Context, orderID string) (*model.PendingPayment, error)
	DeletePendingPayment(ctx context.Context, orderID string) error
	// CompletePendingPayment creates rfq and removes the pending payment atomically.
	CompletePendingPayment(ctx context.Context, orderID string, rfq *model.RFQ) error
}

// Request is a completed questionnaire ready to be submitted.
type Request struct {
	CompanyID  string
	UserID     string
	UserEmail  string
	UserName   string
	ProductID  string
	Answers    model.AnswerMap
	IsFirstRFQ bool
	Deadline   *time.Time
}

// Result is the outcome of Dispatch. Free submissions carry the RFQ; paid
// ones carry the payment handle and no RFQ until the payment completes.
type Result struct {
	RFQ     *model.RFQ      `json:"rfq,omitempty"`
	Payment *payment.Handle `json:"payment,omitempty"`
	Amount  int64           `json:"amount,omitempty"`
}

// AwaitingPayment reports whether the RFQ is created only after payment.
func (r *Result) AwaitingPayment() bool {
	return r != nil && r.Payment != nil
}

// Options configures a Dispatcher.
type Options struct {
	Fee int64
	Now func() time.Time
}

// Dispatcher implements the free and paid submission paths.
type Dispatcher struct {
	store   Store
	gateway payment.Gateway
	fee     int64
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(st Store, gateway payment.Gateway, opts Options) *Dispatcher {
	if opts.Fee <= 0 {
		opts.Fee = DefaultFee
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		store:   st,
		gateway: gateway,
		fee:     opts.Fee,
		now:     opts.Now,
	}
}

// Fee returns the paid RFQ fee.
func (d *Dispatcher) Fee() int64 { return d.fee }

// IsFirstRFQ reports whether the company has not created any RFQ yet. It is
// advisory: Dispatch relies on the store to refuse a second free RFQ.
func (d *Dispatcher) IsFirstRFQ(ctx context.Context, companyID string) (bool, error) {
	n, err := d.store.CountRFQs(ctx, companyID)
	if err != nil {
		return false, eris.Wrap(err, "submission: count rfqs")
	}
	return n == 0, nil
}

// Dispatch creates the RFQ for a first submission, or records a pending
// payment and initiates the charge otherwise. A first submission that loses
// the race for the company's free RFQ is charged instead. No RFQ exists
// afterwards unless it is free or its payment has been confirmed.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if req.CompanyID == "" || req.ProductID == "" {
		return nil, eris.Wrap(ErrSubmissionFailed, "submission: company and product are required")
	}
	draft := d.newDraft(req)

	if req.IsFirstRFQ {
		err := d.store.CreateRFQ(ctx, draft)
		switch {
		case err == nil:
			zap.L().Info("submission: free rfq created",
				zap.String("rfq_id", draft.ID),
				zap.String("rfq_number", draft.RFQNumber),
			)
			return &Result{RFQ: draft}, nil
		case errors.Is(err, store.ErrFreeRFQUsed):
			zap.L().Info("submission: free rfq already used, charging",
				zap.String("company_id", req.CompanyID),
			)
			draft.IsFree = false
		default:
			zap.L().Error("submission: create free rfq",
				zap.String("company_id", req.CompanyID),
				zap.String("product", req.ProductID),
				zap.Error(err),
			)
			return nil, eris.Wrapf(ErrSubmissionFailed, "submission: create rfq: %v", err)
		}
	}

	pending := &model.PendingPayment{
		OrderID:   uuid.NewString(),
		Amount:    d.fee,
		Draft:     *draft,
		CreatedAt: d.now().UTC(),
	}
	if err := d.store.SavePendingPayment(ctx, pending); err != nil {
		return nil, eris.Wrapf(ErrSubmissionFailed, "submission: save pending payment: %v", err)
	}

	handle, err := d.gateway.Initiate(ctx, payment.Charge{
		OrderID:       pending.OrderID,
		Amount:        d.fee,
		ItemID:        "rfq_" + req.ProductID,
		ItemName:      "RFQ " + draft.RFQNumber,
		CustomerName:  req.UserName,
		CustomerEmail: req.UserEmail,
	})
	if err != nil {
		if delErr := d.store.DeletePendingPayment(ctx, pending.OrderID); delErr != nil {
			zap.L().Error("submission: remove pending payment after failed charge",
				zap.String("order_id", pending.OrderID),
				zap.Error(delErr),
			)
		}
		return nil, eris.Wrap(err, "submission: initiate payment")
	}

	zap.L().Info("submission: awaiting payment",
		zap.String("order_id", pending.OrderID),
		zap.String("company_id", req.CompanyID),
	)
	return &Result{Payment: handle, Amount: d.fee}, nil
}

// CompletePayment applies a gateway notification. A confirmed payment for
// the pending amount creates the RFQ held by the pending payment and returns
// it; a confirmed payment for any other amount is refused and a failed one
// discards the pending payment and returns ErrPaymentFailed. Notifications
// for still-pending transactions return (nil, nil).
func (d *Dispatcher) CompletePayment(ctx context.Context, n payment.Notification) (*model.RFQ, error) {
	if err := d.gateway.Verify(n); err != nil {
		return nil, err
	}

	pending, err := d.store.GetPendingPayment(ctx, n.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, eris.Wrapf(ErrUnknownOrder, "submission: order %s", n.OrderID)
		}
		return nil, eris.Wrap(err, "submission: load pending payment")
	}

	switch {
	case n.Confirmed() && !amountMatches(n.GrossAmount, pending.Amount):
		zap.L().Error("submission: paid amount differs from fee",
			zap.String("order_id", n.OrderID),
			zap.String("gross_amount", n.GrossAmount),
			zap.Int64("expected", pending.Amount),
		)
		return nil, eris.Wrapf(payment.ErrPaymentFailed, "submission: order %s paid %q, expected %d",
			n.OrderID, n.GrossAmount, pending.Amount)
	case n.Confirmed():
		rfq := pending.Draft
		rfq.IsFree = false
		rfq.Status = model.RFQDraft
		rfq.UpdatedAt = d.now().UTC()
		if err := d.store.CompletePendingPayment(ctx, n.OrderID, &rfq); err != nil {
			return nil, eris.Wrapf(ErrSubmissionFailed, "submission: create paid rfq: %v", err)
		}
		zap.L().Info("submission: paid rfq created",
			zap.String("order_id", n.OrderID),
			zap.String("rfq_id", rfq.ID),
		)
		return &rfq, nil
	case n.Failed():
		if err := d.store.DeletePendingPayment(ctx, n.OrderID); err != nil {
			return nil, eris.Wrap(err, "submission: discard pending payment")
		}
		return nil, eris.Wrapf(payment.ErrPaymentFailed, "submission: order %s %s", n.OrderID, n.TransactionStatus)
	default:
		zap.L().Debug("submission: payment still pending",
			zap.String("order_id", n.OrderID),
			zap.String("status", n.TransactionStatus),
		)
		return nil, nil
	}
}

// amountMatches reports whether a gateway amount such as "1599.00" equals
// amount whole rupees.
func amountMatches(gross string, amount int64) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(gross), 64)
	if err != nil {
		return false
	}
	return math.Round(f*100) == float64(amount*100)
}

func (d *Dispatcher) newDraft(req Request) *model.RFQ {
	now := d.now().UTC()
	return &model.RFQ{
		ID:          uuid.NewString(),
		CompanyID:   req.CompanyID,
		CreatedBy:   req.UserID,
		ProductType: req.ProductID,
		RFQNumber:   RFQNumber(now),
		Status:      model.RFQDraft,
		Data:        req.Answers.Clone(),
		Deadline:    req.Deadline,
		IsFree:      req.IsFirstRFQ,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RFQNumber returns a display number of the form RFQ-YYYYMMDD-XXXXXX.
func RFQNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return "RFQ-" + t.Format("20060102") + "-" + suffix
}
