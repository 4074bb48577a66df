package output

import (
	"fmt"
	"io"
	"strings"
)

// Format names an output format accepted by -o.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formatter writes one value in some output format.
type Formatter interface {
	Format(w io.Writer, data any) error
}

var formatters = map[Format]func(wide bool) Formatter{
	FormatTable: func(wide bool) Formatter { return &TableFormatter{Wide: wide} },
	FormatJSON:  func(bool) Formatter { return &JSONFormatter{} },
	FormatYAML:  func(bool) Formatter { return &YAMLFormatter{} },
}

// NewFormatter returns the formatter for format. Unknown formats get a
// table; use ParseFormat to reject them first.
func NewFormatter(format Format, wide bool) Formatter {
	if mk, ok := formatters[format]; ok {
		return mk(wide)
	}
	return &TableFormatter{Wide: wide}
}

// ParseFormat validates a -o value. Empty means table.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatTable, nil
	}
	if _, ok := formatters[f]; !ok {
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
	return f, nil
}
