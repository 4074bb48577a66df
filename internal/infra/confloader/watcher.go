package confloader

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor produces when
// saving a file into one reload.
const DefaultDebounce = 200 * time.Millisecond

// Watcher calls a function when one configuration file changes.
//
// The parent directory is watched rather than the file itself, so saves
// that replace the file through a rename are seen as well.
type Watcher struct {
	fs       *fsnotify.Watcher
	file     string
	onChange func()
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	fireMu sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets the quiet period after the last event before
// onChange runs. Zero calls onChange for every event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// NewWatcher starts watching file. After Start, onChange is called from a
// background goroutine, never concurrently with itself.
func NewWatcher(file string, onChange func(), opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fsw,
		file:     filepath.Clean(file),
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := fsw.Add(filepath.Dir(w.file)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start processes events in a new goroutine until Stop.
func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) run() {
	w.logger.Debug("watching configuration file", "file", w.file)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.file {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("configuration file changed", "op", ev.Op.String())
			w.schedule()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("configuration watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) schedule() {
	if w.debounce == 0 {
		w.fire()
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.fireMu.Lock()
	defer w.fireMu.Unlock()
	select {
	case <-w.done:
		return
	default:
	}
	if w.onChange != nil {
		w.onChange()
	}
}

// Stop ends watching. A pending debounced call is dropped. Stop may be
// called more than once, and before Start.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.fs.Close()
	})
	return err
}
