// Package adminserver provides the admin HTTP listener.
//
// It is a plain net/http server, separate from the content listener,
// exposing Prometheus metrics, JSON liveness and readiness probes, and a
// status summary of the loaded content. It is meant to be bound to a
// private address.
package adminserver
