// Package logger provides structured logging for kiss.
//
// It wraps the standard library log/slog:
//
//   - logger.go: handler setup, the Logger interface and a process-wide
//     level that can be changed at runtime
//   - context.go: connection id propagation through context.Context
//   - redact.go: masking of credentials and query strings in attributes
//
// Components take a *slog.Logger (Logger.Slog) and log with the
// *Context methods so that the connection id is attached automatically.
package logger
