package httpserver

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/kiss-go/internal/core/domain"
	"github.com/yndnr/kiss-go/internal/storage/memory"
	"github.com/yndnr/kiss-go/internal/telemetry/metric"
)

// OverflowPolicy selects how the accept loop behaves when every worker is
// busy and the queue is full.
type OverflowPolicy string

const (
	// OverflowReject answers 503 with Retry-After and closes.
	OverflowReject OverflowPolicy = "reject"
	// OverflowBlock stops accepting until a queue slot frees up.
	OverflowBlock OverflowPolicy = "block"
)

// Config holds the connection handler configuration.
type Config struct {
	// Address is the TCP listen address.
	Address string
	// Workers is the number of connection workers.
	Workers int
	// QueueSize bounds accepted connections waiting for a worker.
	QueueSize int
	// Overflow is the queue saturation policy.
	Overflow OverflowPolicy
	// IdleTimeout bounds the wait for the first byte of a request.
	IdleTimeout time.Duration
	// ReadTimeout bounds the rest of the request head once it has started
	// (slowloris protection).
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one response.
	WriteTimeout time.Duration
	// MaxLifetime bounds the total age of a keep-alive connection.
	MaxLifetime time.Duration
	// MaxRequests bounds requests served on one connection.
	MaxRequests int
	// RetryAfter is sent with overflow rejections, in seconds.
	RetryAfter int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Address:      "0.0.0.0:8080",
		Workers:      256,
		QueueSize:    1024,
		Overflow:     OverflowReject,
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		MaxLifetime:  10 * time.Minute,
		MaxRequests:  1000,
		RetryAfter:   DefaultRetryAfter,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.Overflow == "" {
		c.Overflow = def.Overflow
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.RetryAfter <= 0 {
		c.RetryAfter = def.RetryAfter
	}
}

// Server serves the content index over a subset of HTTP/1.1.
//
// Accepted connections are handed to a fixed pool of workers through a
// bounded queue. Each worker owns one read buffer for its lifetime. All
// responses are precomputed; serving a request is one index lookup and
// one Write.
type Server struct {
	cfg     Config
	index   *memory.Index
	logger  *slog.Logger
	metrics *metric.Registry
	resp    *responses

	probes map[domain.State]*probeSet
	state  atomic.Int32

	queue chan net.Conn

	draining atomic.Bool
	drainCh  chan struct{}
	drainOne sync.Once

	// connMu guards conns, ln and the ordering of wg.Add against drain.
	connMu sync.Mutex
	conns  map[*conn]struct{}
	ln     net.Listener

	wg sync.WaitGroup

	// Throttle noisy log lines under attack or overload.
	acceptLimiter   *rate.Limiter
	overflowLimiter *rate.Limiter
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics sets the metrics registry. Without it the server records
// into a private registry.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server over ix.
func New(cfg Config, ix *memory.Index, opts ...Option) *Server {
	cfg.applyDefaults()
	s := &Server{
		cfg:             cfg,
		index:           ix,
		logger:          slog.Default(),
		resp:            newResponses(cfg.RetryAfter),
		probes:          probeSets(),
		queue:           make(chan net.Conn, cfg.QueueSize),
		drainCh:         make(chan struct{}),
		conns:           make(map[*conn]struct{}),
		acceptLimiter:   rate.NewLimiter(rate.Every(time.Second), 5),
		overflowLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metric.NewRegistry()
	}
	s.logger = s.logger.With("component", "http")
	s.state.Store(int32(domain.StateStarting))
	return s
}

// Listen binds the listening socket. It is separate from Serve so that a
// bind failure is reported before the server is declared ready.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return domain.ErrBind.WithDetails(s.cfg.Address).WithCause(err)
	}
	s.connMu.Lock()
	s.ln = ln
	s.connMu.Unlock()
	return nil
}

func (s *Server) listener() net.Listener {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.ln
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	ln := s.listener()
	if ln == nil {
		return nil
	}
	return ln.Addr()
}

// SetState switches the probe responses to those of state.
func (s *Server) SetState(state domain.State) {
	s.state.Store(int32(state))
}

// State returns the state reported by the probes.
func (s *Server) State() domain.State {
	return domain.State(s.state.Load())
}

// Serve runs the workers and the accept loop until Shutdown closes the
// listener. ctx is used for connection-scoped logging only; cancellation
// is driven by Shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ln := s.listener()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		ln = s.listener()
	}

	// Workers join the shutdown wait group under connMu: a concurrent
	// Shutdown either waits for them or finds Serve already stopped.
	s.connMu.Lock()
	if s.draining.Load() {
		s.connMu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.wg.Add(s.cfg.Workers)
	s.connMu.Unlock()

	s.logger.Info("serving", "address", ln.Addr().String(),
		"workers", s.cfg.Workers, "queue", s.cfg.QueueSize, "overflow", string(s.cfg.Overflow))

	var workers sync.WaitGroup
	workers.Add(s.cfg.Workers)
	for i := 0; i < s.cfg.Workers; i++ {
		go func() {
			defer s.wg.Done()
			defer workers.Done()
			s.worker(ctx)
		}()
	}

	err := s.acceptLoop(ln)
	close(s.queue)
	workers.Wait()
	return err
}

func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.draining.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if s.acceptLimiter.Allow() {
					s.logger.Warn("accept error", "error", err)
				}
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return err
		}
		s.metrics.ConnectionsAccepted.Inc()

		if s.draining.Load() {
			s.refuse(c, "draining")
			continue
		}

		switch s.cfg.Overflow {
		case OverflowBlock:
			select {
			case s.queue <- c:
			case <-s.drainCh:
				s.refuse(c, "draining")
			}
		default:
			select {
			case s.queue <- c:
			default:
				s.reject(c)
			}
		}
		s.metrics.QueueDepth.Set(float64(len(s.queue)))
	}
}

// reject answers 503 to a connection that found the queue full.
func (s *Server) reject(c net.Conn) {
	s.metrics.ConnectionsRejected.WithLabelValues("overflow").Inc()
	if s.overflowLimiter.Allow() {
		s.logger.Warn("connection queue full, rejecting",
			"remote", c.RemoteAddr().String(), "error", domain.ErrDrainRefusal)
	}
	_ = c.SetWriteDeadline(time.Now().Add(time.Second))
	_, _ = c.Write(s.resp.unavailable.final())
	_ = c.Close()
}

// refuse closes a connection that arrived or waited during drain.
func (s *Server) refuse(c net.Conn, reason string) {
	s.metrics.ConnectionsRejected.WithLabelValues(reason).Inc()
	_ = c.Close()
}

func (s *Server) worker(ctx context.Context) {
	br := bufio.NewReaderSize(nil, MaxHeadSize)
	var req Request
	for nc := range s.queue {
		s.metrics.QueueDepth.Set(float64(len(s.queue)))
		if s.draining.Load() {
			s.refuse(nc, "draining")
			continue
		}
		c := newConn(nc)
		if !s.track(c) {
			s.refuse(nc, "draining")
			continue
		}
		br.Reset(nc)
		s.serveConn(ctx, c, br, &req)
		s.untrack(c)
		br.Reset(nil)
	}
}

func (s *Server) track(c *conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.draining.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.metrics.ConnectionsActive.Inc()
	return true
}

func (s *Server) untrack(c *conn) {
	s.connMu.Lock()
	delete(s.conns, c)
	s.connMu.Unlock()
	s.metrics.ConnectionsActive.Dec()
}

// Draining reports whether Shutdown has started.
func (s *Server) Draining() bool {
	return s.draining.Load()
}

// Shutdown stops accepting, wakes idle keep-alive connections so they
// close, and waits for in-flight requests. When ctx expires first the
// remaining connections are force-closed and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.drainOne.Do(func() {
		s.connMu.Lock()
		s.draining.Store(true)
		if s.ln != nil {
			_ = s.ln.Close()
		}
		s.connMu.Unlock()
		close(s.drainCh)
	})

	s.connMu.Lock()
	for c := range s.conns {
		c.wake()
	}
	s.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	s.connMu.Lock()
	n := len(s.conns)
	for c := range s.conns {
		c.close()
	}
	s.connMu.Unlock()
	s.logger.Warn("shutdown grace expired, closed remaining connections", "connections", n)

	<-done
	return ctx.Err()
}
