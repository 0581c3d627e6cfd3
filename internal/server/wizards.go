package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/wizard"
)

func (s *Server) handleStartWizard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	owner := wizard.Owner{UserID: sess.UserID, CompanyID: sess.CompanyID, Email: sess.Email}
	if user, err := s.deps.Records.GetUser(r.Context(), sess.UserID); err == nil {
		owner.Name = user.FullName
	} else {
		zap.L().Warn("server: user lookup failed", zap.String("user_id", sess.UserID), zap.Error(err))
	}
	wz := s.deps.Wizards.Start(owner)
	respondJSON(w, r, http.StatusCreated, wz.Snapshot())
}

func (s *Server) handleGetWizard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, wizardFrom(r.Context()).Snapshot())
}

func (s *Server) handleDeleteWizard(w http.ResponseWriter, r *http.Request) {
	wz := wizardFrom(r.Context())
	wz.Reset()
	s.deps.Wizards.Delete(wz.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.ProductID == "" {
		badRequest(w, r, "product_id is required")
		return
	}
	wz := wizardFrom(r.Context())
	if err := wz.SelectProduct(r.Context(), req.ProductID); err != nil {
		view := wz.Snapshot()
		respondErrorWith(w, r, err, &view)
		return
	}
	respondJSON(w, r, http.StatusOK, wz.Snapshot())
}

func (s *Server) handleResetWizard(w http.ResponseWriter, r *http.Request) {
	wz := wizardFrom(r.Context())
	wz.Reset()
	respondJSON(w, r, http.StatusOK, wz.Snapshot())
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var a model.Answer
	if err := render.DecodeJSON(r.Body, &a); err != nil {
		badRequest(w, r, "invalid answer")
		return
	}
	s.mutateWizard(w, r, func(wz *wizard.Wizard) error {
		return wz.Answer(chi.URLParam(r, "key"), a)
	})
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	s.mutateWizard(w, r, func(wz *wizard.Wizard) error {
		return wz.AddEntry(chi.URLParam(r, "key"), req.Text)
	})
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		badRequest(w, r, "index must be an integer")
		return
	}
	s.mutateWizard(w, r, func(wz *wizard.Wizard) error {
		return wz.RemoveEntry(chi.URLParam(r, "key"), index)
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.mutateWizard(w, r, (*wizard.Wizard).Advance)
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request) {
	s.mutateWizard(w, r, (*wizard.Wizard).Retreat)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	wz := wizardFrom(r.Context())
	first, err := s.deps.Submissions.IsFirstRFQ(r.Context(), wz.Owner().CompanyID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := wz.Submit(r.Context(), first); err != nil {
		view := wz.Snapshot()
		respondErrorWith(w, r, err, &view)
		return
	}
	respondJSON(w, r, http.StatusCreated, wz.Snapshot())
}

// mutateWizard applies fn and responds with the wizard's new view.
func (s *Server) mutateWizard(w http.ResponseWriter, r *http.Request, fn func(*wizard.Wizard) error) {
	wz := wizardFrom(r.Context())
	if err := fn(wz); err != nil {
		view := wz.Snapshot()
		respondErrorWith(w, r, err, &view)
		return
	}
	respondJSON(w, r, http.StatusOK, wz.Snapshot())
}
