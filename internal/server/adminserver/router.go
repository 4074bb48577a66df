package adminserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/kiss-go/internal/server/adminserver/handler"
	"github.com/yndnr/kiss-go/internal/storage"
)

// RouterConfig holds configuration for the admin router.
type RouterConfig struct {
	// State reports the lifecycle state for the probes.
	State handler.StateSource

	// Stats is the cache build report shown by /status.
	Stats *storage.BuildStats

	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// Started is the process start time for /status.
	Started time.Time

	// Logger for request logging.
	Logger *slog.Logger
}

// NewRouter creates the admin router:
//
//	GET /metrics  Prometheus exposition
//	GET /health   liveness, always 200
//	GET /ready    200 only while serving
//	GET /status   state, build info and cache report
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := handler.New(handler.Config{
		State:   cfg.State,
		Stats:   cfg.Stats,
		Started: cfg.Started,
		Logger:  logger,
	})

	mux := http.NewServeMux()
	mux.Handle("GET /health", h)
	mux.Handle("GET /ready", h)
	mux.Handle("GET /status", h)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	// Order: RequestID -> AccessLog -> Recover -> mux
	return Chain(mux, RequestID(), AccessLog(logger), Recover(logger))
}
