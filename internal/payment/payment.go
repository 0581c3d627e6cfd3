// Package payment initiates RFQ fee charges and verifies the gateway's
// completion notifications.
package payment

import (
	"context"

	"github.com/rotisserie/eris"
)

var (
	// ErrPaymentFailed is returned when a charge cannot be initiated or the
	// gateway reports it failed.
	ErrPaymentFailed = eris.New("payment: failed")
	// ErrInvalidSignature is returned for notifications whose signature does not verify.
	ErrInvalidSignature = eris.New("payment: invalid notification signature")
	// ErrNotConfigured is returned by the disabled gateway.
	ErrNotConfigured = eris.New("payment: gateway not configured")
)

// Charge describes one fee to collect.
type Charge struct {
	OrderID       string
	Amount        int64
	ItemID        string
	ItemName      string
	CustomerName  string
	CustomerEmail string
}

// Handle is what the client needs to complete a payment.
type Handle struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Notification is an asynchronous payment status update from the gateway.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

// Confirmed reports whether funds were captured or settled.
func (n Notification) Confirmed() bool {
	switch n.TransactionStatus {
	case "settlement":
		return true
	case "capture":
		return n.FraudStatus == "" || n.FraudStatus == "accept"
	}
	return false
}

// Failed reports whether the payment can no longer succeed.
func (n Notification) Failed() bool {
	switch n.TransactionStatus {
	case "deny", "cancel", "expire", "failure":
		return true
	case "capture":
		return n.FraudStatus == "deny"
	}
	return false
}

// Gateway initiates charges and authenticates notifications.
type Gateway interface {
	Initiate(ctx context.Context, c Charge) (*Handle, error)
	Verify(n Notification) error
}

// Disabled is a Gateway that rejects every charge. It is used when no
// gateway credentials are configured, so only free RFQs can be submitted.
type Disabled struct{}

// Initiate implements Gateway.
func (Disabled) Initiate(context.Context, Charge) (*Handle, error) {
	return nil, eris.Wrap(ErrPaymentFailed, ErrNotConfigured.Error())
}

// Verify implements Gateway.
func (Disabled) Verify(Notification) error {
	return ErrNotConfigured
}
