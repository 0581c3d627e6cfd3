package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/classify"
	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/onboarding"
	"github.com/sanctuari/rfq-cli/internal/payment"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, s.deps.Catalog.List())
}

type sectionResponse struct {
	Name   string                     `json:"name"`
	Fields []model.ClassifiedQuestion `json:"fields"`
}

func (s *Server) handleProductQuestions(w http.ResponseWriter, r *http.Request) {
	sections, err := s.deps.Loader.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]sectionResponse, 0, len(sections))
	for _, sec := range sections {
		out = append(out, sectionResponse{Name: sec.Name, Fields: classify.Section(sec)})
	}
	respondJSON(w, r, http.StatusOK, out)
}

type magicLinkRequest struct {
	model.SignupPayload
	// Signup selects the signup flow; otherwise only the email is used.
	Signup bool `json:"signup"`
}

func (s *Server) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	var err error
	if req.Signup {
		err = s.deps.Auth.Signup(r.Context(), req.SignupPayload)
	} else {
		err = s.deps.Auth.SendMagicLink(r.Context(), req.Email)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Token == "" {
		badRequest(w, r, "token is required")
		return
	}
	res, err := s.deps.Auth.Callback(r.Context(), req.Token)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var form onboarding.Form
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	res, err := s.deps.Onboarding.Complete(r.Context(), sessionFrom(r.Context()), form)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, res)
}

func (s *Server) handlePaymentNotification(w http.ResponseWriter, r *http.Request) {
	var n payment.Notification
	if err := render.DecodeJSON(r.Body, &n); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	rfq, err := s.deps.Submissions.CompletePayment(r.Context(), n)
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := map[string]string{"status": n.TransactionStatus}
	if rfq != nil {
		resp["rfq_id"] = rfq.ID
		resp["rfq_number"] = rfq.RFQNumber
		zap.L().Info("server: paid rfq created",
			zap.String("order_id", n.OrderID),
			zap.String("rfq_id", rfq.ID),
		)
	}
	respondJSON(w, r, http.StatusOK, resp)
}
