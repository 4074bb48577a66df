package command

import (
	"fmt"
	"io"

	"github.com/yndnr/kiss-go/internal/core/domain"
)

// Exit statuses of kiss-server.
const (
	ExitOK      = 0
	ExitStartup = 1
	ExitUsage   = 2
)

// ExitStatus reports err on w and maps it to the process exit status.
// Startup failures exit 1; anything else, such as an unknown flag or
// command, exits 2.
func ExitStatus(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}
	if domain.IsStartupError(err) {
		fmt.Fprintf(w, "kiss-server: startup failed: %v\n", err)
		return ExitStartup
	}
	fmt.Fprintf(w, "kiss-server: %v\n", err)
	return ExitUsage
}
