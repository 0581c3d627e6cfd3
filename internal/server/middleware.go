package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sanctuari/rfq-cli/internal/auth"
	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/wizard"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	wizardKey
)

func sessionFrom(ctx context.Context) *model.Session {
	s, _ := ctx.Value(sessionKey).(*model.Session)
	return s
}

func wizardFrom(ctx context.Context) *wizard.Wizard {
	w, _ := ctx.Value(wizardKey).(*wizard.Wizard)
	return w
}

// requireSession rejects requests without a valid bearer token.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, r, eris.Wrap(auth.ErrAuthFailed, "server: missing bearer token"))
			return
		}
		sess, err := s.deps.Auth.Authenticate(header)
		if err != nil {
			respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

// requireAccount rejects sessions that have not finished onboarding.
func requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessionFrom(r.Context()).Onboarded() {
			respondJSON(w, r, http.StatusForbidden, errorResponse{Error: "onboarding required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loadWizard resolves {id} to a wizard owned by the session's user.
// Wizards of other users are reported as not found.
func (s *Server) loadWizard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		wz, err := s.deps.Wizards.Get(id)
		if err == nil && wz.Owner().UserID != sessionFrom(r.Context()).UserID {
			err = eris.Wrapf(wizard.ErrNotFound, "server: wizard %s", id)
		}
		if err != nil {
			respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), wizardKey, wz)))
	})
}
