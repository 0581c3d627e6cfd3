package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sanctuari/rfq-cli/internal/auth"
	"github.com/sanctuari/rfq-cli/internal/distribution"
	"github.com/sanctuari/rfq-cli/internal/payment"
	"github.com/sanctuari/rfq-cli/internal/registry"
	"github.com/sanctuari/rfq-cli/internal/store"
	"github.com/sanctuari/rfq-cli/internal/submission"
	"github.com/sanctuari/rfq-cli/internal/wizard"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"product not found", eris.Wrap(registry.ErrProductNotFound, "x"), http.StatusNotFound},
		{"validation", &wizard.ValidationError{Section: "General", Missing: []string{"General_1"}}, http.StatusUnprocessableEntity},
		{"source unavailable", eris.Wrapf(registry.ErrSourceUnavailable, "registry: %v", errors.New("timeout")), http.StatusServiceUnavailable},
		{"auth", auth.ErrAuthFailed, http.StatusUnauthorized},
		{"bad signature", payment.ErrInvalidSignature, http.StatusUnauthorized},
		{"payment", eris.Wrap(payment.ErrPaymentFailed, "submission: initiate payment"), http.StatusBadGateway},
		{"submission", submission.ErrSubmissionFailed, http.StatusBadGateway},
		{"invalid state", wizard.ErrInvalidState, http.StatusConflict},
		{"superseded", wizard.ErrSuperseded, http.StatusConflict},
		{"rfq closed", distribution.ErrRFQClosed, http.StatusConflict},
		{"store not found", eris.Wrap(store.ErrNotFound, "sqlite: rfq x"), http.StatusNotFound},
		{"unknown order", submission.ErrUnknownOrder, http.StatusNotFound},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
