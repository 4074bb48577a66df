package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/errgroup"

	"github.com/yndnr/kiss-go/internal/core/domain"
	"github.com/yndnr/kiss-go/internal/storage/memory"
)

// Default configuration values.
const (
	DefaultMaxFileSize = 50 << 20
	DefaultRoot        = "."
)

// OversizePolicy selects what happens to files above the size cap.
type OversizePolicy string

const (
	// OversizeSkip leaves oversized files out of the index.
	OversizeSkip OversizePolicy = "skip"
	// OversizeFail aborts the build on the first oversized file.
	OversizeFail OversizePolicy = "fail"
)

// Config configures a cache build.
type Config struct {
	// Root is the content directory to scan.
	Root string

	// MaxFileSize is the largest file, in bytes, admitted to the cache.
	MaxFileSize int64

	// Oversize decides between skipping and failing on oversized files.
	Oversize OversizePolicy

	// Strict escalates unreadable files to a startup error.
	Strict bool

	// IndexFile names the file that directory paths alias to.
	IndexFile string

	// Workers bounds concurrent file reads. Zero means GOMAXPROCS.
	Workers int

	// Headers are baked into every precomputed response.
	Headers domain.ResponseHeaders

	// Executable is the server binary excluded from the cache. Empty means
	// the running executable.
	Executable string

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns the default build configuration for root.
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		MaxFileSize: DefaultMaxFileSize,
		Oversize:    OversizeSkip,
		IndexFile:   memory.DefaultIndexFile,
		Headers:     domain.DefaultResponseHeaders(),
		Logger:      slog.Default(),
	}
}

// Builder scans a content root once and produces the frozen path index.
type Builder struct {
	cfg    Config
	logger *slog.Logger
}

// NewBuilder creates a builder, filling zero config fields with defaults.
func NewBuilder(cfg Config) *Builder {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Oversize == "" {
		cfg.Oversize = OversizeSkip
	}
	if cfg.IndexFile == "" {
		cfg.IndexFile = memory.DefaultIndexFile
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Builder{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "cache_builder"),
	}
}

// candidate is a file admitted by the walk, waiting to be read.
type candidate struct {
	urlPath string
	fsPath  string
	modTime time.Time
	size    int64
}

// Build walks the content root, reads every admitted file, and returns the
// frozen index with build statistics.
//
// Errors are startup errors: an unreadable root, an oversized file under
// OversizeFail, or an unreadable file in strict mode. ctx cancels the
// build between files.
func (b *Builder) Build(ctx context.Context) (*memory.Index, *BuildStats, error) {
	start := time.Now()

	root, err := canonicalRoot(b.cfg.Root)
	if err != nil {
		return nil, nil, domain.ErrContentRootUnreadable.WithDetails(b.cfg.Root).WithCause(err)
	}
	stats := newBuildStats(root)
	ib := memory.NewIndexBuilder(b.cfg.IndexFile)
	self := b.executableInfo()

	cands, err := b.walk(ctx, root, self, ib, stats)
	if err != nil {
		return nil, nil, err
	}

	entries, err := b.read(ctx, cands, stats)
	if err != nil {
		return nil, nil, err
	}

	for _, e := range entries {
		if err := ib.Insert(e); err != nil {
			return nil, nil, fmt.Errorf("storage: index %s: %w", e.Path(), err)
		}
	}
	ix, err := ib.Freeze()
	if err != nil {
		return nil, nil, fmt.Errorf("storage: freeze index: %w", err)
	}

	stats.Admitted = ix.Len()
	stats.Aliases = ix.Aliases()
	stats.Bytes = ix.Bytes()
	stats.Fingerprint = fingerprint(entries)
	stats.Duration = time.Since(start)

	b.logger.Info("content cache built",
		"root", root,
		"files", stats.Admitted,
		"aliases", stats.Aliases,
		"bytes", humanize.IBytes(uint64(stats.Bytes)),
		"skipped", len(stats.Skipped),
		"fingerprint", stats.Fingerprint,
		"duration", stats.Duration,
	)
	return ix, stats, nil
}

// walk collects candidate files in lexical order.
func (b *Builder) walk(ctx context.Context, root string, self os.FileInfo, ib *memory.IndexBuilder, stats *BuildStats) ([]candidate, error) {
	var cands []candidate

	err := filepath.WalkDir(root, func(fsPath string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if fsPath == root {
				return domain.ErrContentRootUnreadable.WithDetails(root).WithCause(walkErr)
			}
			if err := b.unreadable(stats, relURL(root, fsPath), walkErr); err != nil {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if fsPath == root {
			return nil
		}

		urlPath := relURL(root, fsPath)
		if strings.ContainsRune(d.Name(), '\\') {
			b.skip(stats, urlPath, SkipInvalidName, nil)
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := b.fileInfo(root, fsPath, d)
		if err != nil {
			var reason skipError
			if errors.As(err, &reason) {
				b.skip(stats, urlPath, reason.reason, nil)
				return nil
			}
			return b.unreadable(stats, urlPath, err)
		}
		stats.Scanned++

		if self != nil && os.SameFile(info, self) {
			ib.Exclude(urlPath)
			b.skip(stats, urlPath, SkipSelfBinary, nil)
			return nil
		}
		if info.Size() > b.cfg.MaxFileSize {
			if b.cfg.Oversize == OversizeFail {
				return domain.ErrContentFileTooLarge.WithDetails(fmt.Sprintf("%s (%s > %s)",
					urlPath, humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(b.cfg.MaxFileSize))))
			}
			b.skip(stats, urlPath, SkipOversized, nil)
			return nil
		}

		cands = append(cands, candidate{
			urlPath: urlPath,
			fsPath:  fsPath,
			modTime: info.ModTime(),
			size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cands, nil
}

type skipError struct{ reason SkipReason }

func (e skipError) Error() string { return string(e.reason) }

// fileInfo returns the info of a regular file, following symlinks whose
// target stays inside root.
func (b *Builder) fileInfo(root, fsPath string, d fs.DirEntry) (os.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(fsPath)
		if err != nil {
			return nil, err
		}
		if !within(root, target) {
			return nil, skipError{SkipSymlinkEscape}
		}
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, skipError{SkipNotRegular}
		}
		return info, nil
	}
	if !d.Type().IsRegular() {
		return nil, skipError{SkipNotRegular}
	}
	return d.Info()
}

// read loads candidate files on a bounded pool and builds their entries.
// The result keeps walk order and omits files that could not be read.
func (b *Builder) read(ctx context.Context, cands []candidate, stats *BuildStats) ([]*domain.Entry, error) {
	entries := make([]*domain.Entry, len(cands))
	failures := make([]error, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i := range cands {
		c := cands[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(c.fsPath)
			if err == nil && int64(len(content)) > b.cfg.MaxFileSize {
				err = fmt.Errorf("file grew to %d bytes during scan", len(content))
			}
			if err != nil {
				if b.cfg.Strict {
					return domain.ErrContentFileUnreadable.WithDetails(c.urlPath).WithCause(err)
				}
				failures[i] = err
				return nil
			}
			entries[i] = domain.NewEntry(c.urlPath, content, c.modTime,
				domain.MimeType(c.urlPath), b.cfg.Headers)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := entries[:0]
	for i, e := range entries {
		if e == nil {
			b.skip(stats, cands[i].urlPath, SkipUnreadable, failures[i])
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// unreadable records an unreadable path, escalating in strict mode.
func (b *Builder) unreadable(stats *BuildStats, urlPath string, err error) error {
	if b.cfg.Strict {
		return domain.ErrContentFileUnreadable.WithDetails(urlPath).WithCause(err)
	}
	b.skip(stats, urlPath, SkipUnreadable, err)
	return nil
}

func (b *Builder) skip(stats *BuildStats, urlPath string, reason SkipReason, err error) {
	stats.Skipped = append(stats.Skipped, Skipped{Path: urlPath, Reason: reason, Err: err})
	args := []any{"path", urlPath, "reason", reason}
	if err != nil {
		args = append(args, "error", err)
	}
	b.logger.Warn("skipping file", args...)
}

// executableInfo stats the server binary. A failure only disables the
// exclusion check; it is logged, not fatal.
func (b *Builder) executableInfo() os.FileInfo {
	exe := b.cfg.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			b.logger.Warn("cannot locate server executable", "error", err)
			return nil
		}
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	info, err := os.Stat(exe)
	if err != nil {
		b.logger.Warn("cannot stat server executable", "path", exe, "error", err)
		return nil
	}
	return info
}

// canonicalRoot resolves root to an absolute, symlink-free directory path.
func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return abs, nil
}

// relURL maps a filesystem path under root to its URL path.
func relURL(root, fsPath string) string {
	rel, err := filepath.Rel(root, fsPath)
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// fingerprint digests the sorted (path, etag) pairs of the admitted files.
func fingerprint(entries []*domain.Entry) string {
	sorted := make([]*domain.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path() < sorted[j].Path() })

	h := murmur3.New128()
	for _, e := range sorted {
		h.Write([]byte(e.Path()))
		h.Write([]byte{0})
		h.Write([]byte(e.ETag()))
		h.Write([]byte{'\n'})
	}
	h1, h2 := h.Sum128()
	return fmt.Sprintf("%016x%016x", h1, h2)
}
