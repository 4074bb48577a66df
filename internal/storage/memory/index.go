package memory

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/yndnr/kiss-go/internal/core/domain"
)

// DefaultIndexFile is the file name that directory paths alias to.
const DefaultIndexFile = "index.html"

var (
	// ErrFrozen is returned when an IndexBuilder is used after Freeze.
	ErrFrozen = errors.New("memory: index builder already frozen")

	// ErrDuplicatePath is returned when two entries claim the same key.
	ErrDuplicatePath = errors.New("memory: duplicate index path")
)

// IndexBuilder collects entries before the index is published.
//
// It is used by a single goroutine during startup. Freeze hands the
// collected entries over to an Index and disables the builder.
type IndexBuilder struct {
	indexFile string
	entries   map[string]*domain.Entry
	excluded  map[string]struct{}
	files     int
	aliases   int
	bytes     int64
	frozen    bool
}

// NewIndexBuilder creates a builder. indexFile names the file that
// directory paths alias to; empty means DefaultIndexFile.
func NewIndexBuilder(indexFile string) *IndexBuilder {
	if indexFile == "" {
		indexFile = DefaultIndexFile
	}
	return &IndexBuilder{
		indexFile: indexFile,
		entries:   make(map[string]*domain.Entry),
		excluded:  make(map[string]struct{}),
	}
}

// Insert adds an entry under its canonical path. When the entry is a
// directory index file, the directory path with and without a trailing
// slash is registered as an alias of the same entry.
func (b *IndexBuilder) Insert(e *domain.Entry) error {
	if b.frozen {
		return ErrFrozen
	}
	p := e.Path()
	if key, ok := Clean(p); !ok || key != p {
		return fmt.Errorf("memory: path %q is not canonical", p)
	}
	if _, skip := b.excluded[p]; skip {
		return nil
	}
	if prev, dup := b.entries[p]; dup {
		if prev.Path() == p {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, p)
		}
		// A real file wins over a directory alias.
		b.aliases--
	}

	b.entries[p] = e
	b.files++
	b.bytes += e.Size()

	if path.Base(p) != b.indexFile {
		return nil
	}
	dir := path.Dir(p)
	aliases := []string{dir}
	if dir != "/" {
		aliases = append(aliases, dir+"/")
	}
	for _, alias := range aliases {
		if _, taken := b.entries[alias]; taken {
			continue
		}
		b.entries[alias] = e
		b.aliases++
	}
	return nil
}

// Exclude marks a canonical path as never servable. Excluded paths are
// refused at insert time and again at lookup time.
func (b *IndexBuilder) Exclude(urlPath string) {
	if b.frozen {
		return
	}
	key, ok := Clean(urlPath)
	if !ok {
		return
	}
	if key != "/" {
		key = strings.TrimSuffix(key, "/")
	}
	b.excluded[key] = struct{}{}
}

// Freeze publishes the collected entries as an immutable Index.
// Subsequent calls to Insert fail with ErrFrozen.
func (b *IndexBuilder) Freeze() (*Index, error) {
	if b.frozen {
		return nil, ErrFrozen
	}
	b.frozen = true
	ix := &Index{
		entries:  b.entries,
		excluded: b.excluded,
		files:    b.files,
		aliases:  b.aliases,
		bytes:    b.bytes,
	}
	b.entries = nil
	b.excluded = nil
	return ix, nil
}

// Index maps canonical request paths to cached entries.
//
// An Index has no mutation methods; it is safe for any number of
// concurrent readers without synchronization. The zero value is an
// empty index.
type Index struct {
	entries  map[string]*domain.Entry
	excluded map[string]struct{}
	files    int
	aliases  int
	bytes    int64
}

// Lookup resolves a raw request-target and returns its canonical key and
// entry. key is empty when the target does not resolve; it is set even
// when no entry is stored under it.
func (ix *Index) Lookup(target string) (key string, e *domain.Entry, ok bool) {
	key, ok = Resolve(target)
	if !ok {
		return "", nil, false
	}
	e, ok = ix.Get(key)
	return key, e, ok
}

// Get returns the entry stored under an already canonical key.
func (ix *Index) Get(key string) (*domain.Entry, bool) {
	if ix == nil {
		return nil, false
	}
	if ix.isExcluded(key) {
		return nil, false
	}
	e, ok := ix.entries[key]
	return e, ok
}

func (ix *Index) isExcluded(key string) bool {
	if len(ix.excluded) == 0 {
		return false
	}
	if _, ok := ix.excluded[key]; ok {
		return true
	}
	if len(key) > 1 && key[len(key)-1] == '/' {
		_, ok := ix.excluded[key[:len(key)-1]]
		return ok
	}
	return false
}

// Len returns the number of files in the index, not counting aliases.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return ix.files
}

// Aliases returns the number of directory alias keys.
func (ix *Index) Aliases() int {
	if ix == nil {
		return 0
	}
	return ix.aliases
}

// Bytes returns the total content size of all indexed files.
func (ix *Index) Bytes() int64 {
	if ix == nil {
		return 0
	}
	return ix.bytes
}
