// Package benchmark measures the request hot path of kiss-server: path
// resolution, index lookup, conditional evaluation, head parsing and full
// keep-alive round trips against a live listener, plus cache build time.
//
// Each benchmark runs over several cache sizes (see FileCounts):
//
//	go test -run=^$ -bench=. -benchmem ./internal/tests/benchmark/
//	go test -run=^$ -bench=Serve -benchtime=5s ./internal/tests/benchmark/
package benchmark
