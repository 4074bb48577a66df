package config

import (
	"log/slog"
	"time"
)

// ServerConfig is the root configuration for kiss-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Content ContentSection `koanf:"content"`
	Headers HeadersSection `koanf:"headers"`
	Admin   AdminSection   `koanf:"admin"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the content listener and its connection handling.
type ServerSection struct {
	// Addr is the TCP listen address. The port must be above 1024.
	Addr string `koanf:"addr"`

	// Workers is the number of connection workers.
	Workers int `koanf:"workers"`

	// QueueSize bounds accepted connections waiting for a worker.
	QueueSize int `koanf:"queue_size"`

	// Overflow selects what happens when the queue is full: "reject"
	// answers 503, "block" stops accepting until a slot frees up.
	Overflow string `koanf:"overflow"`

	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// MaxLifetime bounds the age of a keep-alive connection.
	MaxLifetime time.Duration `koanf:"max_lifetime"`

	// MaxRequests bounds requests served on one connection.
	MaxRequests int `koanf:"max_requests"`

	// RetryAfter is sent with overflow rejections, in seconds.
	RetryAfter int `koanf:"retry_after"`

	// ShutdownGrace bounds the drain after a termination signal.
	ShutdownGrace time.Duration `koanf:"shutdown_grace"`
}

// ContentSection configures the startup cache build.
type ContentSection struct {
	// Root is the directory served.
	Root string `koanf:"root"`

	// MaxFileSize is the largest cacheable file, in bytes.
	MaxFileSize int64 `koanf:"max_file_size"`

	// Oversize is "skip" or "fail".
	Oversize string `koanf:"oversize"`

	// Strict turns an unreadable file into a startup failure.
	Strict bool `koanf:"strict"`

	// IndexFile is the directory index file name.
	IndexFile string `koanf:"index_file"`

	// BuildWorkers bounds concurrent file reads during the build.
	BuildWorkers int `koanf:"build_workers"`
}

// HeadersSection configures the headers baked into every cached response.
// An empty FrameOptions or ContentSecurityPolicy omits that header.
type HeadersSection struct {
	CacheControl          string `koanf:"cache_control"`
	FrameOptions          string `koanf:"frame_options"`
	ContentSecurityPolicy string `koanf:"content_security_policy"`
}

// AdminSection configures the metrics and probe listener.
type AdminSection struct {
	// Addr is the admin listen address. Empty disables the listener.
	Addr string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// LogValue implements slog.LogValuer for the startup log line.
func (c *ServerConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", c.Server.Addr),
		slog.Int("workers", c.Server.Workers),
		slog.Int("queue_size", c.Server.QueueSize),
		slog.String("overflow", c.Server.Overflow),
		slog.String("root", c.Content.Root),
		slog.Int64("max_file_size", c.Content.MaxFileSize),
		slog.String("oversize", c.Content.Oversize),
		slog.Bool("strict", c.Content.Strict),
		slog.String("admin_addr", c.Admin.Addr),
		slog.String("log_level", c.Log.Level),
	)
}
