package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/yndnr/kiss-go/internal/core/domain"
	"github.com/yndnr/kiss-go/internal/telemetry/logger"
)

// MinPort is the lowest port the server may listen on; privileged ports
// are refused so the process never needs elevated rights.
const MinPort = 1025

// Verify validates the configuration. The returned error is
// domain.ErrInvalidConfig carrying the first problem found.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return invalid(err)
	}
	if err := verifyContent(&cfg.Content); err != nil {
		return invalid(err)
	}
	if err := verifyAdmin(&cfg.Admin, cfg.Server.Addr); err != nil {
		return invalid(err)
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return invalid(err)
	}
	return nil
}

func invalid(err error) error {
	return domain.ErrInvalidConfig.WithDetails(err.Error())
}

func verifyServer(cfg *ServerSection) error {
	if err := verifyAddr("server.addr", cfg.Addr); err != nil {
		return err
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("server.workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.QueueSize < 1 {
		return fmt.Errorf("server.queue_size must be at least 1, got %d", cfg.QueueSize)
	}
	switch cfg.Overflow {
	case OverflowReject, OverflowBlock:
	default:
		return fmt.Errorf("server.overflow must be %q or %q, got %q", OverflowReject, OverflowBlock, cfg.Overflow)
	}
	for _, d := range []struct {
		name string
		ok   bool
	}{
		{"server.idle_timeout", cfg.IdleTimeout > 0},
		{"server.read_timeout", cfg.ReadTimeout > 0},
		{"server.write_timeout", cfg.WriteTimeout > 0},
		{"server.shutdown_grace", cfg.ShutdownGrace > 0},
	} {
		if !d.ok {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if cfg.MaxLifetime < 0 {
		return fmt.Errorf("server.max_lifetime must not be negative")
	}
	if cfg.MaxRequests < 0 {
		return fmt.Errorf("server.max_requests must not be negative")
	}
	if cfg.RetryAfter < 1 {
		return fmt.Errorf("server.retry_after must be at least 1, got %d", cfg.RetryAfter)
	}
	return nil
}

func verifyContent(cfg *ContentSection) error {
	if cfg.Root == "" {
		return fmt.Errorf("content.root is required")
	}
	if cfg.MaxFileSize < 1 {
		return fmt.Errorf("content.max_file_size must be positive, got %d", cfg.MaxFileSize)
	}
	switch cfg.Oversize {
	case OversizeSkip, OversizeFail:
	default:
		return fmt.Errorf("content.oversize must be %q or %q, got %q", OversizeSkip, OversizeFail, cfg.Oversize)
	}
	if cfg.IndexFile == "" || strings.ContainsAny(cfg.IndexFile, `/\`) {
		return fmt.Errorf("content.index_file must be a plain file name, got %q", cfg.IndexFile)
	}
	if cfg.BuildWorkers < 1 {
		return fmt.Errorf("content.build_workers must be at least 1, got %d", cfg.BuildWorkers)
	}
	return nil
}

func verifyAdmin(cfg *AdminSection, serverAddr string) error {
	if cfg.Addr == "" {
		return nil
	}
	if err := verifyAddr("admin.addr", cfg.Addr); err != nil {
		return err
	}
	if cfg.Addr == serverAddr {
		return fmt.Errorf("admin.addr must differ from server.addr")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	if !logger.ValidFormat(cfg.Format) {
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

// verifyAddr checks host:port syntax and the port range.
func verifyAddr(name, addr string) error {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%s %q: %v", name, addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("%s %q: invalid port", name, addr)
	}
	if port < MinPort || port > 65535 {
		return fmt.Errorf("%s %q: port must be in %d-65535", name, addr, MinPort)
	}
	return nil
}
