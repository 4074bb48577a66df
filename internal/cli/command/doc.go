// Package command defines the kiss-server command line.
//
//   - serve: build the cache and serve it until SIGINT or SIGTERM
//   - scan: build the cache, print a report and exit
//   - version: print build information
//
// Global flags override the configuration file and KISS_* environment
// variables.
package command
