// Package server exposes the conversation controller and session store as a local JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gemchat/internal/chat"
	"gemchat/internal/gemini"
	"gemchat/internal/logger"
	"gemchat/internal/session"
	"gemchat/internal/version"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Options configure a Server.
type Options struct {
	Controller *chat.Controller
	Store      *session.Store
	// RequestTimeout bounds each completion. Zero means no timeout.
	RequestTimeout time.Duration
	// NewID generates error correlation ids. Defaults to random UUIDs.
	NewID func() string
}

// Server routes HTTP requests to the chat core.
type Server struct {
	ctrl    *chat.Controller
	store   *session.Store
	timeout time.Duration
	newID   func() string
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	return &Server{
		ctrl:    opts.Controller,
		store:   opts.Store,
		timeout: opts.RequestTimeout,
		newID:   opts.NewID,
	}
}

// Handler wires routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("X-Gemchat-Version", version.GetBaseVersion()))

	r.Route("/api", func(api chi.Router) {
		api.Get("/state", s.handleState)
		api.Get("/version", s.handleVersion)
		api.Get("/models", s.handleModels)

		api.Route("/messages", func(m chi.Router) {
			m.Get("/", s.handleHistory)
			m.Post("/", s.handleSubmit)
			m.Delete("/", s.handleClear)
			m.Delete("/{index}", s.handleDeleteMessage)
			m.Post("/{index}/resend", s.handleResend)
		})

		api.Route("/sessions", func(sr chi.Router) {
			sr.Get("/", s.handleListSessions)
			sr.Post("/", s.handleNewSession)
			sr.Put("/current", s.handleSwitchSession)
			sr.Post("/current/rename", s.handleRenameSession)
			sr.Post("/reset", s.handleReset)
			sr.Delete("/{name}", s.handleDeleteSession)
			sr.Get("/{name}/transcript", s.handleTranscript)
		})

		api.Get("/settings", s.handleGetSettings)
		api.Put("/settings", s.handleUpdateSettings)

		api.Get("/export", s.handleExport)
		api.Post("/import", s.handleImport)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("HTTP API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps core errors to status codes. Unexpected errors get a
// correlation id that is logged with the full error.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrBusy), errors.Is(err, chat.ErrSessionExists):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chat.ErrEmptyInput),
		errors.Is(err, session.ErrImportFormat),
		errors.Is(err, session.ErrInvalidName),
		errors.Is(err, session.ErrInvalidContextLength),
		errors.Is(err, session.ErrInvalidModel):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrIndexOutOfRange),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrNothingToExport):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, gemini.ErrMissingAPIKey):
		respondError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, gemini.ErrInvalidResponse),
		errors.Is(err, gemini.ErrRequestFailed),
		errors.Is(err, context.DeadlineExceeded):
		id := s.newID()
		logger.Error("Completion failed", "id", id, "error", err)
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to get a reply from the model", "id": id})
	default:
		id := s.newID()
		logger.Error("Request failed", "id", id, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error", "id": id})
	}
}
