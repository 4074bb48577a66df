// Package main provides the entry point for kiss-server.
//
// kiss-server loads a directory into memory once at startup and serves
// it over a minimal HTTP/1.1 implementation.
package main

import (
	"os"

	"github.com/yndnr/kiss-go/internal/cli/command"
)

func main() {
	err := command.App().Run(os.Args)
	os.Exit(command.ExitStatus(os.Stderr, err))
}
