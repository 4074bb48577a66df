// Package storage builds the in-memory content cache for kiss.
//
// A Builder walks the content root once at startup, reads every admissible
// file on a bounded worker pool, precomputes its responses, and publishes
// the result as a frozen memory.Index. Nothing under the root is read
// again after Build returns.
//
// Files are left out (and reported in BuildStats) when they exceed the
// size cap, cannot be read, are the server's own executable, are not
// regular files, or are symlinks resolving outside the root. The size cap
// and unreadable files can be escalated to startup errors with
// OversizeFail and Config.Strict.
package storage
