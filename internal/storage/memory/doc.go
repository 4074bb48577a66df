// Package memory provides the in-memory path index for kiss.
//
// Entries are collected by an IndexBuilder during startup and published
// once through Freeze. The resulting Index has no mutation methods and is
// read by every connection worker without locking.
//
// Request-targets are mapped to index keys by Resolve:
//
//   - absolute-form authority, query and fragment are dropped
//   - percent-escapes are decoded once; invalid escapes never match
//   - "\" is an alternate separator
//   - "." and ".." are collapsed logically; climbing above the root never matches
//
// Directory paths alias to their index file, so "/docs", "/docs/" and
// "/docs/index.html" share one entry.
package memory
