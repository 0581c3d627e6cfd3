package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rotisserie/eris"

	"github.com/sanctuari/rfq-cli/internal/distribution"
	"github.com/sanctuari/rfq-cli/internal/model"
)

func (s *Server) handleListRFQs(w http.ResponseWriter, r *http.Request) {
	rfqs, err := s.deps.Records.ListRFQs(r.Context(), sessionFrom(r.Context()).CompanyID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if rfqs == nil {
		rfqs = []model.RFQ{}
	}
	respondJSON(w, r, http.StatusOK, rfqs)
}

func (s *Server) handleGetRFQ(w http.ResponseWriter, r *http.Request) {
	rfq, err := s.ownedRFQ(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, rfq)
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	rfq, err := s.ownedRFQ(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	quotes, err := s.deps.Records.ListQuotes(r.Context(), rfq.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}
	respondJSON(w, r, http.StatusOK, quotes)
}

func (s *Server) ownedRFQ(r *http.Request) (*model.RFQ, error) {
	id := chi.URLParam(r, "id")
	rfq, err := s.deps.Records.GetRFQ(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if rfq.CompanyID != sessionFrom(r.Context()).CompanyID {
		return nil, eris.Wrapf(distribution.ErrRFQNotFound, "server: rfq %s", id)
	}
	return rfq, nil
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	var req distribution.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	req.RFQID = chi.URLParam(r, "id")
	req.CompanyID = sessionFrom(r.Context()).CompanyID

	summary, err := s.deps.Distribution.Distribute(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	ds, err := s.deps.Distribution.Distributions(r.Context(), sessionFrom(r.Context()).CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if ds == nil {
		ds = []model.Distribution{}
	}
	respondJSON(w, r, http.StatusOK, ds)
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req distribution.BroadcastRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	sess := sessionFrom(r.Context())
	req.RFQID = chi.URLParam(r, "id")
	req.CompanyID = sess.CompanyID
	req.UserID = sess.UserID

	res, err := s.deps.Distribution.Broadcast(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, res)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.deps.Distribution.Messages(r.Context(), sessionFrom(r.Context()).CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []model.Communication{}
	}
	respondJSON(w, r, http.StatusOK, msgs)
}

func (s *Server) handleOpenInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := s.deps.Distribution.Open(r.Context(), chi.URLParam(r, "link"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, inv)
}

func (s *Server) handleSubmitQuote(w http.ResponseWriter, r *http.Request) {
	var in distribution.QuoteInput
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	q, err := s.deps.Distribution.SubmitQuote(r.Context(), chi.URLParam(r, "link"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, q)
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Distribution.Decline(r.Context(), chi.URLParam(r, "link")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": string(model.DistributionDeclined)})
}
