package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/resilience"
)

// snapAPI is the subset of snap.Client used here.
type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// MidtransOptions configures the Midtrans Snap gateway.
type MidtransOptions struct {
	ServerKey  string
	Production bool
	FinishURL  string
	Breaker    resilience.CircuitBreakerConfig
}

// MidtransGateway charges through Midtrans Snap. Calls are guarded by a
// circuit breaker so an outage fails fast instead of stalling submissions.
type MidtransGateway struct {
	api       snapAPI
	serverKey string
	finishURL string
	breaker   *resilience.CircuitBreaker
}

// NewMidtransGateway creates a gateway for the given server key.
func NewMidtransGateway(opts MidtransOptions) *MidtransGateway {
	env := midtrans.Sandbox
	if opts.Production {
		env = midtrans.Production
	}
	var client snap.Client
	client.New(opts.ServerKey, env)
	return newMidtransGateway(&client, opts)
}

func newMidtransGateway(api snapAPI, opts MidtransOptions) *MidtransGateway {
	breaker := opts.Breaker
	breaker.Name = "midtrans"
	return &MidtransGateway{
		api:       api,
		serverKey: opts.ServerKey,
		finishURL: opts.FinishURL,
		breaker:   resilience.NewCircuitBreaker(breaker),
	}
}

// Initiate creates a Snap transaction for c.
func (g *MidtransGateway) Initiate(ctx context.Context, c Charge) (*Handle, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  c.OrderID,
			GrossAmt: c.Amount,
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: c.CustomerName,
			Email: c.CustomerEmail,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    c.ItemID,
			Price: c.Amount,
			Qty:   1,
			Name:  c.ItemName,
		}},
		EnabledPayments: snap.AllSnapPaymentType,
	}
	if g.finishURL != "" {
		req.Callbacks = &snap.Callbacks{Finish: g.finishURL}
	}

	resp, err := resilience.ExecuteVal(ctx, g.breaker, func(context.Context) (*snap.Response, error) {
		resp, mErr := g.api.CreateTransaction(req)
		if mErr != nil {
			return nil, eris.Errorf("midtrans: %s", mErr.GetMessage())
		}
		return resp, nil
	})
	if err != nil {
		zap.L().Error("payment: initiate failed",
			zap.String("order_id", c.OrderID),
			zap.Int64("amount", c.Amount),
			zap.Error(err),
		)
		return nil, eris.Wrapf(ErrPaymentFailed, "payment: order %s: %v", c.OrderID, err)
	}

	return &Handle{
		OrderID:     c.OrderID,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

// Verify checks the notification's SHA-512 signature over
// order_id + status_code + gross_amount + server_key.
func (g *MidtransGateway) Verify(n Notification) error {
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, g.serverKey)
	if subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) != 1 {
		return eris.Wrapf(ErrInvalidSignature, "payment: order %s", n.OrderID)
	}
	return nil
}

// Signature computes a Midtrans notification signature.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}
