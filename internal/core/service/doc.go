// Package service provides the request decision logic for kiss.
//
// Evaluate maps a cached entry, the request method and the request
// validators to one of the entry's precomputed responses. It performs no
// I/O.
package service
