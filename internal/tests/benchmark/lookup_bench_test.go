package benchmark

import (
	"net/http"
	"testing"

	"github.com/yndnr/kiss-go/internal/core/service"
	"github.com/yndnr/kiss-go/internal/storage/memory"
)

// BenchmarkLookup measures target resolution plus index lookup.
func BenchmarkLookup(b *testing.B) {
	runWithFileCounts(b, FileCounts, func(b *testing.B, count int) {
		ix := buildIndex(b, count)
		targets := make([]string, 1024)
		for i := range targets {
			targets[i] = filePath(i * 7 % count)
		}
		reportMemory(b, "index")

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, _, ok := ix.Lookup(targets[i%len(targets)]); !ok {
				b.Fatal("lookup miss")
			}
		}
	})
}

// BenchmarkResolve compares clean targets with ones that need decoding.
func BenchmarkResolve(b *testing.B) {
	targets := map[string]string{
		"clean":   "/section-1/page-1.html",
		"query":   "/section-1/page-1.html?v=123",
		"encoded": "/section-1/%70age-1.html",
		"dots":    "/section-1/../section-1/./page-1.html",
	}
	for name, target := range targets {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, ok := memory.Resolve(target); !ok {
					b.Fatal("resolve failed")
				}
			}
		})
	}
}

// BenchmarkEvaluate measures response selection for a hit.
func BenchmarkEvaluate(b *testing.B) {
	ix := buildIndex(b, 100)
	_, e, ok := ix.Lookup(filePath(1))
	if !ok {
		b.Fatal("lookup miss")
	}
	cases := map[string]service.Conditions{
		"plain":         {},
		"if-none-match": {IfNoneMatch: `"x", ` + e.ETag(), HasIfNoneMatch: true},
		"if-modified":   {IfModifiedSince: e.LastModified().Format(http.TimeFormat), HasIfModifiedSince: true},
	}
	for name, cond := range cases {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				service.Evaluate(e, http.MethodGet, cond)
			}
		})
	}
}
