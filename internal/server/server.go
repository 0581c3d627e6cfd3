// Package server exposes the RFQ service over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/auth"
	"github.com/sanctuari/rfq-cli/internal/catalog"
	"github.com/sanctuari/rfq-cli/internal/config"
	"github.com/sanctuari/rfq-cli/internal/distribution"
	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/onboarding"
	"github.com/sanctuari/rfq-cli/internal/payment"
	"github.com/sanctuari/rfq-cli/internal/wizard"
)

// Submissions is the part of the submission dispatcher the API calls.
type Submissions interface {
	IsFirstRFQ(ctx context.Context, companyID string) (bool, error)
	CompletePayment(ctx context.Context, n payment.Notification) (*model.RFQ, error)
}

// Records reads persisted RFQs and users.
type Records interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetRFQ(ctx context.Context, id string) (*model.RFQ, error)
	ListRFQs(ctx context.Context, companyID string) ([]model.RFQ, error)
	ListQuotes(ctx context.Context, rfqID string) ([]model.Quote, error)
}

// Deps are the services behind the API.
type Deps struct {
	Catalog      *catalog.Catalog
	Loader       wizard.Loader
	Wizards      *wizard.Sessions
	Submissions  Submissions
	Auth         *auth.Service
	Onboarding   *onboarding.Service
	Distribution *distribution.Service
	Records      Records
}

// Server is the HTTP API.
type Server struct {
	cfg  config.ServerConfig
	deps Deps
	srv  *http.Server
}

// New creates a server.
func New(cfg config.ServerConfig, deps Deps) *Server {
	return &Server{cfg: cfg, deps: deps}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", s.handleListProducts)
		r.Get("/products/{id}/questions", s.handleProductQuestions)

		r.Post("/auth/magic-link", s.handleMagicLink)
		r.Post("/auth/callback", s.handleCallback)

		r.Post("/payments/notifications", s.handlePaymentNotification)

		r.Route("/invitations/{link}", func(r chi.Router) {
			r.Get("/", s.handleOpenInvitation)
			r.Post("/quote", s.handleSubmitQuote)
			r.Post("/decline", s.handleDecline)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/onboarding", s.handleOnboarding)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession, requireAccount)

			r.Post("/wizards", s.handleStartWizard)
			r.Route("/wizards/{id}", func(r chi.Router) {
				r.Use(s.loadWizard)
				r.Get("/", s.handleGetWizard)
				r.Delete("/", s.handleDeleteWizard)
				r.Post("/product", s.handleSelectProduct)
				r.Post("/reset", s.handleResetWizard)
				r.Put("/answers/{key}", s.handleAnswer)
				r.Post("/answers/{key}/entries", s.handleAddEntry)
				r.Delete("/answers/{key}/entries/{index}", s.handleRemoveEntry)
				r.Post("/advance", s.handleAdvance)
				r.Post("/retreat", s.handleRetreat)
				r.Post("/submit", s.handleSubmit)
			})

			r.Get("/rfqs", s.handleListRFQs)
			r.Route("/rfqs/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRFQ)
				r.Get("/quotes", s.handleListQuotes)
				r.Post("/distribute", s.handleDistribute)
				r.Get("/distributions", s.handleListDistributions)
				r.Post("/messages", s.handleBroadcast)
				r.Get("/messages", s.handleListMessages)
			})
		})
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server: shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("server: listening", zap.Int("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
