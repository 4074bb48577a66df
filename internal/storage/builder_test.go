package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/kiss-go/internal/core/domain"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func testConfig(root string) Config {
	cfg := DefaultConfig(root)
	// Keep the test binary out of the picture.
	cfg.Executable = filepath.Join(root, "..", "no-such-binary")
	return cfg
}

func TestBuild_Basic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "<h1>home</h1>")
	writeFile(t, root, "css/site.css", "body{}")
	writeFile(t, root, "docs/index.html", "<h1>docs</h1>")
	writeFile(t, root, "docs/guide.md", "# guide")
	writeFile(t, root, "empty.txt", "")

	ix, stats, err := NewBuilder(testConfig(root)).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, ix.Len())
	assert.Equal(t, 5, stats.Admitted)
	assert.Equal(t, 5, stats.Scanned)
	assert.Equal(t, 3, stats.Aliases)
	assert.Empty(t, stats.Skipped)
	assert.Len(t, stats.Fingerprint, 32)

	_, e, ok := ix.Lookup("/css/site.css")
	require.True(t, ok)
	assert.Equal(t, "text/css; charset=utf-8", e.ContentType())
	assert.Equal(t, []byte("body{}"), e.Body())

	_, home, ok := ix.Lookup("/")
	require.True(t, ok)
	assert.Equal(t, "/index.html", home.Path())

	_, docs, ok := ix.Lookup("/docs")
	require.True(t, ok)
	_, docsSlash, ok := ix.Lookup("/docs/")
	require.True(t, ok)
	assert.Same(t, docs, docsSlash)

	_, empty, ok := ix.Lookup("/empty.txt")
	require.True(t, ok)
	assert.Zero(t, empty.Size())
}

func TestBuild_FingerprintDeterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")
	writeFile(t, root, "b/c.txt", "c")
	mtime := time.Unix(1700000000, 0)
	for _, rel := range []string{"a.txt", "b/c.txt"} {
		require.NoError(t, os.Chtimes(filepath.Join(root, rel), mtime, mtime))
	}

	_, s1, err := NewBuilder(testConfig(root)).Build(context.Background())
	require.NoError(t, err)
	_, s2, err := NewBuilder(testConfig(root)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s1.Fingerprint, s2.Fingerprint)

	writeFile(t, root, "d.txt", "d")
	_, s3, err := NewBuilder(testConfig(root)).Build(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, s1.Fingerprint, s3.Fingerprint)
}

func TestBuild_OversizeSkip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", "ok")
	writeFile(t, root, "big.bin", strings.Repeat("x", 64))

	cfg := testConfig(root)
	cfg.MaxFileSize = 16
	ix, stats, err := NewBuilder(cfg).Build(context.Background())
	require.NoError(t, err)

	_, _, ok := ix.Lookup("/big.bin")
	assert.False(t, ok)
	_, _, ok = ix.Lookup("/small.txt")
	assert.True(t, ok)
	assert.Equal(t, 1, stats.Count(SkipOversized))
}

func TestBuild_OversizeFail(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.bin", strings.Repeat("x", 64))

	cfg := testConfig(root)
	cfg.MaxFileSize = 16
	cfg.Oversize = OversizeFail
	_, _, err := NewBuilder(cfg).Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrContentFileTooLarge)
	assert.True(t, domain.IsStartupError(err))
}

func TestBuild_UnreadableLenient(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.txt", "ok")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling.txt")))

	ix, stats, err := NewBuilder(testConfig(root)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, 1, stats.Count(SkipUnreadable))
}

func TestBuild_UnreadableStrict(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.txt", "ok")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling.txt")))

	cfg := testConfig(root)
	cfg.Strict = true
	_, _, err := NewBuilder(cfg).Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrContentFileUnreadable)
	assert.True(t, domain.IsStartupError(err))
}

func TestBuild_RootUnreadable(t *testing.T) {
	_, _, err := NewBuilder(testConfig(filepath.Join(t.TempDir(), "absent"))).Build(context.Background())
	assert.ErrorIs(t, err, domain.ErrContentRootUnreadable)

	file := writeFile(t, t.TempDir(), "plain.txt", "x")
	_, _, err = NewBuilder(testConfig(file)).Build(context.Background())
	assert.ErrorIs(t, err, domain.ErrContentRootUnreadable)
}

func TestBuild_ExcludesExecutable(t *testing.T) {
	root := t.TempDir()
	exe := writeFile(t, root, "bin/kiss-server", "\x7fELF")
	writeFile(t, root, "index.html", "home")
	require.NoError(t, os.Symlink(exe, filepath.Join(root, "alias-of-binary")))
	require.NoError(t, os.Link(exe, filepath.Join(root, "hardlink")))

	cfg := testConfig(root)
	cfg.Executable = exe
	ix, stats, err := NewBuilder(cfg).Build(context.Background())
	require.NoError(t, err)

	for _, target := range []string{
		"/bin/kiss-server",
		"/bin/./kiss-server",
		"/bin/kiss%2Dserver",
		"/bin//kiss-server",
		`/bin\kiss-server`,
		"/alias-of-binary",
		"/hardlink",
	} {
		_, _, ok := ix.Lookup(target)
		assert.False(t, ok, target)
	}
	assert.Equal(t, 3, stats.Count(SkipSelfBinary))
	assert.Equal(t, 1, ix.Len())
}

func TestBuild_SymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	secret := writeFile(t, outside, "secret.txt", "s3cr3t")

	root := t.TempDir()
	inner := writeFile(t, root, "real.txt", "real")
	require.NoError(t, os.Symlink(secret, filepath.Join(root, "leak.txt")))
	require.NoError(t, os.Symlink(inner, filepath.Join(root, "link.txt")))

	ix, stats, err := NewBuilder(testConfig(root)).Build(context.Background())
	require.NoError(t, err)

	_, _, ok := ix.Lookup("/leak.txt")
	assert.False(t, ok)
	_, e, ok := ix.Lookup("/link.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("real"), e.Body())
	assert.Equal(t, 1, stats.Count(SkipSymlinkEscape))
}

func TestBuild_BackslashNamesSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, `a\b.txt`, "x")
	writeFile(t, root, "ok.txt", "ok")

	ix, stats, err := NewBuilder(testConfig(root)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, 1, stats.Count(SkipInvalidName))
}

func TestBuild_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewBuilder(testConfig(root)).Build(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuild_ResponseHeadersBaked(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")

	cfg := testConfig(root)
	cfg.Headers = domain.ResponseHeaders{CacheControl: "no-cache"}
	ix, _, err := NewBuilder(cfg).Build(context.Background())
	require.NoError(t, err)

	_, e, ok := ix.Lookup("/a.txt")
	require.True(t, ok)
	head := string(e.HeadersOnly())
	assert.Contains(t, head, "Cache-Control: no-cache\r\n")
	assert.NotContains(t, head, "X-Frame-Options")
}
