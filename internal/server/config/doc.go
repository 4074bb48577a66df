// Package config defines the kiss-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values and enumerations
//   - verify.go: validation (port range, enumerations, limits)
//
// Configuration is loaded via internal/infra/confloader from a YAML
// file, KISS_* environment variables and command line flags.
package config
