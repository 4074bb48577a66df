package benchmark

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/kiss-go/internal/core/domain"
	"github.com/yndnr/kiss-go/internal/storage/memory"
)

// FileCounts defines the index sizes for benchmarking.
var FileCounts = []int{100, 1000, 10000, 50000}

// SmallFileCounts for benchmarks that touch the filesystem.
var SmallFileCounts = []int{100, 1000}

var modTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// filePath returns the URL path of the i-th generated file.
func filePath(i int) string {
	return fmt.Sprintf("/section-%d/page-%d.html", i%50, i)
}

// buildIndex creates a frozen index of count small HTML files.
func buildIndex(b *testing.B, count int) *memory.Index {
	b.Helper()
	ib := memory.NewIndexBuilder("")
	body := []byte("<!doctype html><title>bench</title><p>hello</p>")
	for i := 0; i < count; i++ {
		p := filePath(i)
		e := domain.NewEntry(p, body, modTime, domain.MimeType(p), domain.DefaultResponseHeaders())
		if err := ib.Insert(e); err != nil {
			b.Fatalf("insert %s: %v", p, err)
		}
	}
	ix, err := ib.Freeze()
	if err != nil {
		b.Fatalf("freeze: %v", err)
	}
	return ix
}

// writeTree writes count files of size bytes under a temp directory.
func writeTree(b *testing.B, count, size int) string {
	b.Helper()
	root := b.TempDir()
	body := make([]byte, size)
	for i := 0; i < count; i++ {
		p := filepath.Join(root, filepath.FromSlash(filePath(i)))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			b.Fatal(err)
		}
		if err := os.WriteFile(p, body, 0o644); err != nil {
			b.Fatal(err)
		}
	}
	return root
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithFileCounts runs a benchmark function with various index sizes.
func runWithFileCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("files_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
