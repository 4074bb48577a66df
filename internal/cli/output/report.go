package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/yndnr/kiss-go/internal/infra/buildinfo"
	"github.com/yndnr/kiss-go/internal/storage"
)

var (
	warnColor = color.New(color.FgYellow).SprintFunc()
	failColor = color.New(color.FgRed).SprintFunc()
	okColor   = color.New(color.FgGreen).SprintFunc()
)

// scanSummary is the head of the table form of a scan report.
type scanSummary struct {
	Root        string        `json:"root"`
	Scanned     int           `json:"scanned"`
	Admitted    int           `json:"admitted"`
	Aliases     int           `json:"aliases"`
	Size        int64         `json:"size" table:"bytes"`
	Duration    time.Duration `json:"duration"`
	Fingerprint string        `json:"fingerprint"`
	Skipped     string        `json:"skipped"`
}

// skippedRow is one line of the skipped-files table. The error column
// is shown in wide mode only.
type skippedRow struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Error  string `json:"error" table:"wide"`
}

// WriteScan renders a cache build report. JSON and YAML emit the stats
// as-is; the table form prints a summary followed by the skipped files.
func WriteScan(w io.Writer, format Format, stats *storage.BuildStats, wide bool) error {
	if format != FormatTable {
		return NewFormatter(format, wide).Format(w, stats)
	}

	summary := scanSummary{
		Root:        stats.Root,
		Scanned:     stats.Scanned,
		Admitted:    stats.Admitted,
		Aliases:     stats.Aliases,
		Size:        stats.Bytes,
		Duration:    stats.Duration,
		Fingerprint: stats.Fingerprint,
		Skipped:     skippedSummary(stats),
	}
	if err := (&TableFormatter{NoHeaders: true}).Format(w, summary); err != nil {
		return err
	}
	if len(stats.Skipped) == 0 {
		return nil
	}

	rows := make([]skippedRow, 0, len(stats.Skipped))
	for _, sk := range stats.Skipped {
		row := skippedRow{Path: sk.Path, Reason: reasonColor(sk.Reason)(string(sk.Reason))}
		if sk.Err != nil {
			row.Error = sk.Err.Error()
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(w)
	return (&TableFormatter{Wide: wide}).Format(w, rows)
}

// skippedSummary reads like "3 (oversized 2, unreadable 1)".
func skippedSummary(stats *storage.BuildStats) string {
	if len(stats.Skipped) == 0 {
		return okColor("0")
	}
	by := stats.SkippedBy()
	reasons := make([]string, 0, len(by))
	for r := range by {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, fmt.Sprintf("%s %d", r, by[storage.SkipReason(r)]))
	}
	return fmt.Sprintf("%d (%s)", len(stats.Skipped), strings.Join(parts, ", "))
}

func reasonColor(r storage.SkipReason) func(a ...any) string {
	switch r {
	case storage.SkipUnreadable, storage.SkipSymlinkEscape:
		return failColor
	default:
		return warnColor
	}
}

// WriteVersion renders build information. The table form is a single
// line.
func WriteVersion(w io.Writer, format Format, name string, info buildinfo.Info) error {
	if format != FormatTable {
		return NewFormatter(format, false).Format(w, info)
	}
	_, err := fmt.Fprintf(w, "%s %s (commit %s, built %s, %s %s)\n",
		name, info.Version, info.Commit, info.BuildTime, info.GoVersion, info.Platform)
	return err
}
