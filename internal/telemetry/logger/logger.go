package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the logging surface handed to kiss components.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger

	// Slog returns the underlying *slog.Logger. The connection handler,
	// cache builder and admin listener take one directly.
	Slog() *slog.Logger
}

// Config holds logger configuration. It mirrors the log section of the
// server configuration.
type Config struct {
	Level     string
	Format    string
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns info level JSON on stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stderr}
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// level is shared by every logger built by New, so a reload of log.level
// reaches loggers already handed out.
var level = new(slog.LevelVar)

// ValidLevel reports whether name is a known log level.
func ValidLevel(name string) bool {
	_, ok := levels[strings.ToLower(name)]
	return ok
}

// ValidFormat reports whether name is a known output format.
func ValidFormat(name string) bool {
	switch strings.ToLower(name) {
	case "", "json", "text", "console":
		return true
	}
	return false
}

// lookupLevel maps name to a level; unknown names fall back to info.
func lookupLevel(name string) slog.Level {
	if l, ok := levels[strings.ToLower(name)]; ok {
		return l
	}
	return slog.LevelInfo
}

// SetLevel changes the level of every logger built by New.
func SetLevel(name string) {
	level.Set(lookupLevel(name))
}

// GetLevel returns the current level name.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}

// New builds a logger writing cfg.Format records to cfg.Output. Records
// pass through redaction and pick up the connection ID carried by their
// context.
func New(cfg Config) (Logger, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	h, err := newHandler(cfg.Format, out, &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	})
	if err != nil {
		return nil, err
	}
	level.Set(lookupLevel(cfg.Level))
	return &slogLogger{slog.New(contextHandler{h})}, nil
}

func newHandler(format string, w io.Writer, opts *slog.HandlerOptions) (slog.Handler, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text", "console":
		return slog.NewTextHandler(w, opts), nil
	}
	return nil, fmt.Errorf("logger: unknown format %q", format)
}

// slogLogger adapts *slog.Logger to Logger.
type slogLogger struct {
	*slog.Logger
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{l.Logger.With(args...)}
}

func (l *slogLogger) Slog() *slog.Logger {
	return l.Logger
}

// SetDefault installs l as the slog default, so components built without
// an explicit logger write through the same handler.
func SetDefault(l Logger) {
	slog.SetDefault(l.Slog())
}
