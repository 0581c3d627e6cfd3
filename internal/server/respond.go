package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/auth"
	"github.com/sanctuari/rfq-cli/internal/classify"
	"github.com/sanctuari/rfq-cli/internal/distribution"
	"github.com/sanctuari/rfq-cli/internal/onboarding"
	"github.com/sanctuari/rfq-cli/internal/payment"
	"github.com/sanctuari/rfq-cli/internal/registry"
	"github.com/sanctuari/rfq-cli/internal/store"
	"github.com/sanctuari/rfq-cli/internal/submission"
	"github.com/sanctuari/rfq-cli/internal/wizard"
)

type errorResponse struct {
	Error   string       `json:"error"`
	Missing []string     `json:"missing,omitempty"`
	Wizard  *wizard.View `json:"wizard,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondErrorWith(w, r, err, nil)
}

// respondErrorWith maps err to a status and includes the wizard's view
// when one is given.
func respondErrorWith(w http.ResponseWriter, r *http.Request, err error, view *wizard.View) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error(), Wizard: view}

	var ve *wizard.ValidationError
	if errors.As(err, &ve) {
		body.Missing = ve.Missing
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("server: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			body.Error = http.StatusText(status)
		}
	}
	respondJSON(w, r, status, body)
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: msg})
}

var (
	notFoundErrs = []error{
		registry.ErrProductNotFound, wizard.ErrNotFound, wizard.ErrUnknownField, distribution.ErrRFQNotFound,
		distribution.ErrInvitationNotFound, submission.ErrUnknownOrder, store.ErrNotFound,
	}
	unprocessableErrs = []error{
		onboarding.ErrIncomplete, auth.ErrInvalidSignup, wizard.ErrEmptyEntry, wizard.ErrEntryIndex,
		classify.ErrInvalidValue,
		wizard.ErrEmptyQuestionSet, distribution.ErrInvalidRecipient, distribution.ErrNoRecipients,
		distribution.ErrInvalidQuote, distribution.ErrEmptyMessage,
	}
	unauthorizedErrs = []error{auth.ErrAuthFailed, payment.ErrInvalidSignature}
	badGatewayErrs   = []error{payment.ErrPaymentFailed, submission.ErrSubmissionFailed, payment.ErrNotConfigured}
	conflictErrs     = []error{
		wizard.ErrInvalidState, wizard.ErrAtFirstSection, wizard.ErrSuperseded,
		auth.ErrAccountExists, onboarding.ErrAlreadyOnboarded, onboarding.ErrNoSignup,
		distribution.ErrRFQClosed, distribution.ErrInvitationClosed,
	}
)

func statusFor(err error) int {
	switch {
	case wizard.IsValidation(err), isAny(err, unprocessableErrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case isAny(err, unauthorizedErrs):
		return http.StatusUnauthorized
	case isAny(err, badGatewayErrs):
		return http.StatusBadGateway
	case isAny(err, conflictErrs):
		return http.StatusConflict
	case isAny(err, notFoundErrs):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
