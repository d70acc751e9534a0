// Package api exposes the file service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dharsanguruparan/ResumeDrop/internal/auth"
	"github.com/dharsanguruparan/ResumeDrop/internal/config"
	"github.com/dharsanguruparan/ResumeDrop/internal/model"
	"github.com/dharsanguruparan/ResumeDrop/internal/repository"
	"github.com/dharsanguruparan/ResumeDrop/internal/upload"
)

// UploadLister reads a user's upload history.
type UploadLister interface {
	Uploads(ctx context.Context, userID string) (model.UploadHistory, error)
}

// DocumentReader loads processed documents.
type DocumentReader interface {
	Get(ctx context.Context, id string) (*repository.Document, error)
}

// Presigner returns signed URLs for processed text in object storage.
type Presigner interface {
	PresignProcessedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

// AuditReader lists recent validation outcomes for a user.
type AuditReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]repository.AuditRow, error)
}

// Deps are the collaborators of a Server. Documents, Presigner and Audit may
// be nil; their routes then answer 404.
type Deps struct {
	Uploads   *upload.Service
	Profiles  UploadLister
	Documents DocumentReader
	Presigner Presigner
	Audit     AuditReader
	Auth      *auth.Manager
	Logger    zerolog.Logger
}

// Server exposes HTTP endpoints for uploads, parsing and upload history.
type Server struct {
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger
	server *http.Server
	once   sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps) *Server {
	return &Server{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "api").Logger(),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	requireAuth := s.deps.Auth.Middleware(s.logger)
	protected := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/files/requirements", s.handleRequirements)
	mux.Handle("POST /api/files/upload/resume", protected(s.handleUpload(model.FileTypeResume)))
	mux.Handle("POST /api/files/upload/job-description", protected(s.handleUpload(model.FileTypeJobDescription)))
	mux.Handle("POST /api/files/text/job-description", protected(s.handleTextJobDescription))
	mux.Handle("POST /api/files/parse", protected(s.handleParse))
	mux.Handle("GET /api/files/uploads", protected(s.handleUploads))
	mux.Handle("GET /api/files/documents/{id}", protected(s.handleDocument))
	if s.deps.Audit != nil {
		mux.Handle("GET /api/files/audit", protected(s.handleAudit))
	}
	return corsMiddleware(s.cfg.AllowedOrigins, requestIDMiddleware(loggingMiddleware(s.logger, mux)))
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.logger.Info().Str("address", s.cfg.Address).Msg("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorBody struct {
	Success bool                              `json:"success"`
	Error   string                            `json:"error"`
	Details map[model.Stage]model.StageResult `json:"details,omitempty"`
	// Cause carries the underlying error in development only.
	Cause string `json:"cause,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody{Error: msg})
}
