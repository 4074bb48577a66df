// Package output renders command results for kiss-server.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: tabular rendering of structs, slices and maps
//   - json.go, yaml.go: machine-readable encodings
//   - report.go: the cache scan report and version output
//
// Table output highlights skipped files in color when the terminal
// supports it; JSON and YAML output are stable for scripting.
package output
