package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/kiss-go/internal/core/domain"
	"github.com/yndnr/kiss-go/internal/storage"
)

// RequestIDHeader carries the request ID set by the middleware.
const RequestIDHeader = "X-Request-ID"

// StateSource reports the current lifecycle state.
type StateSource interface {
	State() domain.State
}

// Config holds the handler dependencies.
type Config struct {
	State   StateSource
	Stats   *storage.BuildStats
	Started time.Time
	Logger  *slog.Logger
}

// Handler serves the admin JSON endpoints.
type Handler struct {
	state   StateSource
	stats   *storage.BuildStats
	started time.Time
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	h := &Handler{
		state:   cfg.State,
		stats:   cfg.Stats,
		started: cfg.Started,
		logger:  cfg.Logger,
		mux:     http.NewServeMux(),
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.started.IsZero() {
		h.started = time.Now()
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.HandleFunc("GET /status", h.handleStatus)
}

func (h *Handler) currentState() domain.State {
	if h.state == nil {
		return domain.StateStarting
	}
	return h.state.State()
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	response := NewResponse(getRequestID(w), data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.DebugContext(r.Context(), "failed to encode response", "error", err)
	}
}

// getRequestID returns the request ID the middleware put on the response.
func getRequestID(w http.ResponseWriter) string {
	return w.Header().Get(RequestIDHeader)
}
