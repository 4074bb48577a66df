// Package handler provides the admin HTTP handlers.
//
//   - health.go: /health, /ready and /status
//   - types.go: response envelope and bodies
//
// /metrics is mounted by the router, not here.
package handler
