// Package httpserver serves the content cache over a subset of HTTP/1.1.
//
// It implements only what a static file server behind an ingress needs:
// GET and HEAD, persistent connections, conditional requests and two
// fixed probe endpoints. Request heads are parsed by hand into a reused
// Request; responses are precomputed byte buffers written in one call.
//
// Concurrency is bounded by a fixed worker pool fed from a bounded
// queue. When the queue is full the server either rejects with 503 or
// stops accepting, depending on Config.Overflow.
package httpserver
