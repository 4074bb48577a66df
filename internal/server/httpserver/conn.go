package httpserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/kiss-go/internal/core/domain"
	"github.com/yndnr/kiss-go/internal/core/service"
	"github.com/yndnr/kiss-go/internal/telemetry/logger"
)

// Linger bounds after an error response. A worker skips lingering when
// connections are waiting for it.
var (
	lingerTimeout  = 250 * time.Millisecond
	lingerMaxBytes = int64(64 << 10)
)

// conn is one client connection owned by a worker.
type conn struct {
	netConn net.Conn
	id      string
	started time.Time

	mu     sync.Mutex
	idle   bool
	closed bool
}

func newConn(c net.Conn) *conn {
	return &conn{
		netConn: c,
		id:      ulid.Make().String(),
		started: time.Now(),
	}
}

// waitIdle marks the connection idle and arms the idle deadline. It
// returns false when the server is draining, in which case the
// connection must be closed instead of waiting for another request.
func (c *conn) waitIdle(draining func() bool, deadline time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if draining() || c.closed {
		return false
	}
	if err := c.netConn.SetReadDeadline(deadline); err != nil {
		return false
	}
	c.idle = true
	return true
}

func (c *conn) setBusy() {
	c.mu.Lock()
	c.idle = false
	c.mu.Unlock()
}

// wake interrupts an idle wait so the worker observes the drain.
func (c *conn) wake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idle && !c.closed {
		_ = c.netConn.SetReadDeadline(time.Now())
	}
}

// linger half-closes the connection and discards unread input for a short
// while, so the client sees the error response instead of a reset.
func (c *conn) linger() {
	if cw, ok := c.netConn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	_ = c.netConn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.CopyN(io.Discard, c.netConn, lingerMaxBytes)
}

// write sends head and body in one call; net.Buffers becomes a single
// writev on TCP connections.
func (c *conn) write(head, body []byte) (int64, error) {
	if len(body) == 0 {
		n, err := c.netConn.Write(head)
		return int64(n), err
	}
	bufs := net.Buffers{head, body}
	return bufs.WriteTo(c.netConn)
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.netConn.Close()
}

func (s *Server) serveConn(ctx context.Context, c *conn, br *bufio.Reader, req *Request) {
	defer c.close()

	ctx = logger.WithConnID(ctx, c.id)
	s.logger.DebugContext(ctx, "connection opened", "remote", c.netConn.RemoteAddr().String())

	var lifetimeEnd time.Time
	if s.cfg.MaxLifetime > 0 {
		lifetimeEnd = c.started.Add(s.cfg.MaxLifetime)
	}

	served := 0
	defer func() {
		s.metrics.RequestsPerConn.Observe(float64(served))
		s.logger.DebugContext(ctx, "connection closed", "requests", served)
	}()

	for {
		// First byte: allow the idle timeout, capped by the lifetime.
		deadline := time.Now().Add(s.cfg.IdleTimeout)
		if !lifetimeEnd.IsZero() && lifetimeEnd.Before(deadline) {
			deadline = lifetimeEnd
		}
		if !c.waitIdle(s.draining.Load, deadline) {
			return
		}
		_, err := br.Peek(1)
		c.setBusy()
		if err != nil {
			if isTimeout(err) && !s.draining.Load() {
				s.logger.DebugContext(ctx, "connection idle timeout")
			}
			return
		}

		// After first byte: tighten to the head read timeout.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}
		if err := ReadRequest(br, req); err != nil {
			s.requestError(ctx, c, err)
			return
		}

		keep := s.persist(req, served, lifetimeEnd)
		head, body := s.respond(ctx, req, keep)
		if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return
		}
		n, err := c.write(head, body)
		s.metrics.ResponseBytes.Add(float64(n))
		if err != nil {
			s.metrics.RequestErrors.WithLabelValues("write").Inc()
			s.logger.DebugContext(ctx, "write failed", "error", domain.ErrWrite.WithCause(err))
			return
		}
		served++

		if req.HasBody {
			s.linger(c)
			return
		}
		if !keep || s.draining.Load() {
			return
		}
	}
}

// persist decides, before answering, whether the connection stays open
// after this response. The answer picks the Connection header sent.
func (s *Server) persist(req *Request, served int, lifetimeEnd time.Time) bool {
	switch {
	case !req.Persistent(), req.HasBody, s.draining.Load():
		return false
	case s.cfg.MaxRequests > 0 && served+1 >= s.cfg.MaxRequests:
		return false
	case !lifetimeEnd.IsZero() && !time.Now().Before(lifetimeEnd):
		return false
	}
	return true
}

// respond picks the precomputed buffers for req. body is nil except for a
// GET on a closing connection, where the closing head precedes the
// shared content.
func (s *Server) respond(ctx context.Context, req *Request, keep bool) (head, body []byte) {
	key, e, _ := s.index.Lookup(req.Target)
	if key == HealthPath || key == ReadyPath {
		s.metrics.RequestsTotal.WithLabelValues("probe").Inc()
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			return s.resp.methodNotAllowed.buffer(req.Method, keep), nil
		}
		p := s.probes[s.State()]
		if key == HealthPath {
			return p.health.buffer(req.Method, keep), nil
		}
		return p.ready.buffer(req.Method, keep), nil
	}

	outcome, buf := service.Evaluate(e, req.Method, req.Conditions)
	s.metrics.RequestsTotal.WithLabelValues(outcome.String()).Inc()
	s.logger.DebugContext(ctx, "request",
		"method", req.Method,
		"target", req.Target,
		"status", outcome.Status(),
		"keep_alive", keep,
	)

	switch outcome {
	case service.OutcomeNotFound:
		return s.resp.notFound.buffer(req.Method, keep), nil
	case service.OutcomeMethodNotAllowed:
		return s.resp.methodNotAllowed.buffer(req.Method, keep), nil
	}
	if keep {
		return buf, nil
	}
	switch outcome {
	case service.OutcomeNotModified:
		return e.ClosingNotModified(), nil
	case service.OutcomeHeadersOnly:
		return e.ClosingHead(), nil
	}
	return e.ClosingHead(), e.Body()
}

// linger drains unread input unless other connections are queued for a
// worker, so error floods cannot hold the pool.
func (s *Server) linger(c *conn) {
	if len(s.queue) > 0 {
		s.metrics.RequestErrors.WithLabelValues("linger_skipped").Inc()
		return
	}
	c.linger()
}

// requestError answers a failed head read, when an answer is due.
func (s *Server) requestError(ctx context.Context, c *conn, err error) {
	var resp []byte
	switch {
	case errors.Is(err, ErrHeadTooLarge):
		s.metrics.RequestErrors.WithLabelValues("too_large").Inc()
		s.logger.DebugContext(ctx, "request rejected", "error", domain.ErrRequestTooLarge.WithCause(err))
		resp = s.resp.badRequest.final()
	case errors.Is(err, ErrMalformed):
		s.metrics.RequestErrors.WithLabelValues("bad_request").Inc()
		s.logger.DebugContext(ctx, "request rejected", "error", domain.ErrBadRequest.WithCause(err))
		resp = s.resp.badRequest.final()
	case isTimeout(err):
		s.metrics.RequestErrors.WithLabelValues("timeout").Inc()
		s.logger.DebugContext(ctx, "request head timed out", "error", domain.ErrRequestTimeout.WithCause(err))
		resp = s.resp.timeout.final()
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return
	default:
		s.logger.DebugContext(ctx, "read failed", "error", err)
		return
	}
	_ = c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := c.netConn.Write(resp); err == nil {
		s.linger(c)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
