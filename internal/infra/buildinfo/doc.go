// Package buildinfo exposes build-time version information.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/kiss-go/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/kiss-go/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo
