// Package lifecycle drives kiss-server from startup to exit.
//
// Startup builds the content cache and binds every listener before the
// state moves to Serving; any failure is returned as a startup error and
// nothing is served. Cancelling the Run context starts the drain:
// the content listener stops accepting, idle keep-alive connections are
// closed, in-flight requests finish within server.shutdown_grace and
// survivors are then force-closed.
package lifecycle
