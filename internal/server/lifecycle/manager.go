package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/kiss-go/internal/core/domain"
	"github.com/yndnr/kiss-go/internal/infra/buildinfo"
	"github.com/yndnr/kiss-go/internal/infra/confloader"
	"github.com/yndnr/kiss-go/internal/infra/shutdown"
	"github.com/yndnr/kiss-go/internal/server/adminserver"
	"github.com/yndnr/kiss-go/internal/server/config"
	"github.com/yndnr/kiss-go/internal/server/httpserver"
	"github.com/yndnr/kiss-go/internal/storage"
	"github.com/yndnr/kiss-go/internal/storage/memory"
	"github.com/yndnr/kiss-go/internal/telemetry/logger"
	"github.com/yndnr/kiss-go/internal/telemetry/metric"
)

// ReloadFunc reloads the configuration after the config file changed.
type ReloadFunc func() (*config.ServerConfig, error)

// Manager drives startup ordering and graceful shutdown of the servers.
//
// The state only moves forward: Starting -> Serving -> Draining -> Stopped.
// Serving is entered only once the cache is built and every listener is
// bound; a failure before that returns a startup error and nothing is
// ever served.
type Manager struct {
	cfg     *config.ServerConfig
	base    *slog.Logger
	logger  *slog.Logger
	metrics *metric.Registry

	configFile  string
	reload      ReloadFunc
	levelSetter func(string)
	levelGetter func() string
	executable  string

	state   atomic.Int32
	stateMu sync.Mutex
	started time.Time
	ready   chan struct{}

	// Set before ready is closed.
	http  *httpserver.Server
	admin *adminserver.Server
	index *memory.Index
	stats *storage.BuildStats
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.base = l
		}
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(r *metric.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

// WithConfigReload watches path and applies log.level from the
// configuration returned by fn whenever the file changes. setLevel and
// getLevel change and report the process log level.
func WithConfigReload(path string, fn ReloadFunc, setLevel func(string), getLevel func() string) Option {
	return func(m *Manager) {
		m.configFile = path
		m.reload = fn
		m.levelSetter = setLevel
		m.levelGetter = getLevel
	}
}

// WithExecutable overrides the binary excluded from the cache.
func WithExecutable(path string) Option {
	return func(m *Manager) {
		m.executable = path
	}
}

// New creates a manager for cfg. The configuration is expected to have
// passed config.Verify.
func New(cfg *config.ServerConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		base:    slog.Default(),
		ready:   make(chan struct{}),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metric.NewRegistry()
	}
	m.logger = m.base.With("component", "lifecycle")
	m.state.Store(int32(domain.StateStarting))
	m.metrics.LifecycleState.Set(float64(domain.StateStarting))
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() domain.State {
	return domain.State(m.state.Load())
}

// Ready is closed once the manager is serving.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Addr returns the content listener address. Valid after Ready.
func (m *Manager) Addr() net.Addr {
	if m.http == nil {
		return nil
	}
	return m.http.Addr()
}

// AdminAddr returns the admin listener address, or nil when disabled.
// Valid after Ready.
func (m *Manager) AdminAddr() net.Addr {
	if m.admin == nil {
		return nil
	}
	return m.admin.Addr()
}

// Stats returns the cache build report. Valid after Ready.
func (m *Manager) Stats() *storage.BuildStats {
	return m.stats
}

// transition moves to next, exports it and switches the probe responses.
func (m *Manager) transition(next domain.State) bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	cur := m.State()
	if !cur.CanTransition(next) {
		return false
	}
	m.state.Store(int32(next))
	if m.http != nil {
		m.http.SetState(next)
	}
	m.metrics.LifecycleState.Set(float64(next))
	m.metrics.StateTransitions.WithLabelValues(next.String()).Inc()
	m.logger.Info("state changed", "from", cur.String(), "to", next.String())
	return true
}

// Run starts the servers and blocks until ctx is cancelled (normally by a
// termination signal), then drains within server.shutdown_grace.
//
// A startup failure is returned as a domain startup error before any
// connection is accepted. After a successful start Run returns nil once
// drained, including when survivors had to be force-closed at the grace
// deadline; it returns an error only when a listener failed while serving.
func (m *Manager) Run(ctx context.Context) error {
	info := buildinfo.Get()
	m.metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.GoVersion).Set(1)
	m.logger.Info("starting", "version", info.Version, "commit", info.Commit, "config", m.cfg)

	if err := m.start(ctx); err != nil {
		m.transition(domain.StateStopped)
		return err
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return m.http.Serve(ctx)
	})
	if m.admin != nil {
		g.Go(m.admin.Serve)
	}

	m.transition(domain.StateServing)
	close(m.ready)

	watcher := m.startWatcher()

	select {
	case <-ctx.Done():
		m.logger.Info("shutdown requested", "grace", m.cfg.Server.ShutdownGrace.String())
	case <-gctx.Done():
		m.logger.Error("listener failed, shutting down")
	}

	m.transition(domain.StateDraining)

	// Content drains first; the admin listener keeps answering probes
	// until it is done.
	seq := shutdown.NewSequence(m.cfg.Server.ShutdownGrace)
	seq.Add("http", m.http.Shutdown)
	if m.admin != nil {
		seq.Add("admin", m.admin.Shutdown)
	}
	if watcher != nil {
		seq.Add("config watcher", func(context.Context) error { return watcher.Stop() })
	}

	start := time.Now()
	if err := seq.Run(context.Background()); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			m.logger.Warn("shutdown grace expired", "grace", m.cfg.Server.ShutdownGrace.String())
		} else {
			m.logger.Warn("shutdown step failed", "error", err)
		}
	}
	serveErr := g.Wait()
	if serveErr != nil {
		m.logger.Error("listener error", "error", serveErr)
	}

	m.transition(domain.StateStopped)
	m.logger.Info("stopped", "drain_ms", time.Since(start).Milliseconds())
	return serveErr
}

// start builds the cache and binds the listeners.
func (m *Manager) start(ctx context.Context) error {
	builder := storage.NewBuilder(BuilderConfig(m.cfg, m.executable, m.base))
	ix, stats, err := builder.Build(ctx)
	if err != nil {
		m.logger.Error("cache build failed", "error", err)
		return err
	}
	m.index, m.stats = ix, stats
	m.recordBuild(stats)
	if err := m.metrics.Register(metric.NewCacheCollector(ix)); err != nil {
		m.logger.Warn("cache metrics not registered", "error", err)
	}

	m.http = httpserver.New(httpserver.Config{
		Address:      m.cfg.Server.Addr,
		Workers:      m.cfg.Server.Workers,
		QueueSize:    m.cfg.Server.QueueSize,
		Overflow:     httpserver.OverflowPolicy(m.cfg.Server.Overflow),
		IdleTimeout:  m.cfg.Server.IdleTimeout,
		ReadTimeout:  m.cfg.Server.ReadTimeout,
		WriteTimeout: m.cfg.Server.WriteTimeout,
		MaxLifetime:  m.cfg.Server.MaxLifetime,
		MaxRequests:  m.cfg.Server.MaxRequests,
		RetryAfter:   m.cfg.Server.RetryAfter,
	}, ix, httpserver.WithLogger(m.base), httpserver.WithMetrics(m.metrics))
	if err := m.http.Listen(); err != nil {
		m.logger.Error("bind failed", "error", err)
		return err
	}

	if m.cfg.Admin.Addr != "" {
		router := adminserver.NewRouter(&adminserver.RouterConfig{
			State:   m,
			Stats:   stats,
			Metrics: m.metrics.Handler(),
			Started: m.started,
			Logger:  m.base,
		})
		m.admin = adminserver.New(m.cfg.Admin.Addr, router, m.base)
		if err := m.admin.Listen(); err != nil {
			m.logger.Error("bind failed", "error", err)
			_ = m.http.Shutdown(context.Background())
			return err
		}
	}
	return nil
}

// BuilderConfig maps the content and headers sections onto a cache
// builder configuration.
func BuilderConfig(cfg *config.ServerConfig, executable string, logger *slog.Logger) storage.Config {
	return storage.Config{
		Root:        cfg.Content.Root,
		MaxFileSize: cfg.Content.MaxFileSize,
		Oversize:    storage.OversizePolicy(cfg.Content.Oversize),
		Strict:      cfg.Content.Strict,
		IndexFile:   cfg.Content.IndexFile,
		Workers:     cfg.Content.BuildWorkers,
		Headers: domain.ResponseHeaders{
			CacheControl:          cfg.Headers.CacheControl,
			FrameOptions:          cfg.Headers.FrameOptions,
			ContentSecurityPolicy: cfg.Headers.ContentSecurityPolicy,
		},
		Executable: executable,
		Logger:     logger,
	}
}

func (m *Manager) recordBuild(stats *storage.BuildStats) {
	m.metrics.CacheBuildDuration.Set(stats.Duration.Seconds())
	for reason, n := range stats.SkippedBy() {
		m.metrics.CacheSkipped.WithLabelValues(string(reason)).Add(float64(n))
	}
}

// startWatcher hot-reloads log.level from the config file. Content and
// every other setting stay as loaded at startup.
func (m *Manager) startWatcher() *confloader.Watcher {
	if m.configFile == "" || m.reload == nil || m.levelSetter == nil {
		return nil
	}
	w, err := confloader.NewWatcher(m.configFile, m.reloadLogLevel,
		confloader.WithWatcherLogger(m.base.With("component", "config")))
	if err != nil {
		m.logger.Warn("config watcher unavailable", "error", err)
		return nil
	}
	w.Start()
	return w
}

func (m *Manager) reloadLogLevel() {
	cfg, err := m.reload()
	if err != nil {
		m.logger.Warn("config reload failed, keeping current settings", "error", err)
		return
	}
	if !logger.ValidLevel(cfg.Log.Level) {
		m.logger.Warn("reloaded log.level is invalid, keeping current level", "level", cfg.Log.Level)
		return
	}
	prev := ""
	if m.levelGetter != nil {
		prev = m.levelGetter()
	}
	if cfg.Log.Level == prev {
		return
	}
	m.levelSetter(cfg.Log.Level)
	m.logger.Info("log level changed", "from", prev, "to", cfg.Log.Level)
}
