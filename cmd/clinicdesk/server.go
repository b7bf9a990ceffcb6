package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"clinicdesk/internal/middleware"
	"clinicdesk/internal/models"
	"clinicdesk/internal/privacy"
	"clinicdesk/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxWebhookBodyBytes = 50 << 20 // inline media arrives base64-encoded

type Server struct {
	router   *mux.Router
	logger   *logrus.Logger
	pipeline *service.Pipeline
	cfg      *models.Config
	server   *http.Server
}

func NewServer(cfg *models.Config, pipeline *service.Pipeline, logger *logrus.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		pipeline: pipeline,
		cfg:      cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	webhook := s.router.PathPrefix("/webhook/messages").Subrouter()
	webhook.HandleFunc("", s.handleMessageWebhook()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.WithError(err).Debug("Failed to write health response")
		}
	}
}

// handleMessageWebhook acknowledges the provider immediately and processes
// the event asynchronously. The provider retries on non-2xx, so the only
// failures worth a 4xx are ones a retry can never fix.
func (s *Server) handleMessageWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			s.logger.WithError(err).Warn("Failed to read webhook body")
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		event, err := models.ParseWebhookEvent(body)
		if err != nil {
			s.logger.WithError(err).Warn("Malformed webhook payload")
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}

		if event.Key.ID == "" {
			s.logger.Warn("Webhook event without a message id, ignoring")
			w.WriteHeader(http.StatusOK)
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			defer func() {
				if rec := recover(); rec != nil {
					s.logger.WithFields(logrus.Fields{
						"panic":      fmt.Sprintf("%v", rec),
						"message_id": privacy.MaskMessageID(event.Key.ID),
					}).Error("Event processing panicked")
				}
			}()

			if _, err := s.pipeline.Process(ctx, event); err != nil {
				s.logger.WithFields(logrus.Fields{
					"message_id": privacy.MaskMessageID(event.Key.ID),
				}).WithError(err).Error("Event processing failed")
			}
		}()

		w.WriteHeader(http.StatusOK)
	}
}
