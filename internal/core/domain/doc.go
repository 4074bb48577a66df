// Package domain defines the core domain models for kiss.
//
// Domain models are pure value objects without any IO dependencies.
// This package contains:
//
//   - Entry: an immutable cached file with its precomputed HTTP responses
//   - MimeType: the extension to Content-Type table
//   - State: the process lifecycle phases
//   - Errors: coded domain errors (startup, request, connection)
//
// Entries are built once at startup and shared read-only by every
// connection; nothing in this package mutates an Entry after NewEntry.
package domain
