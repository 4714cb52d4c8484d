// Package watcher reports debounced changes to a fixed set of files, such as the config
// file of a running server.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher calls onChange once a watched file has been quiet for the debounce interval.
// It watches parent directories, so a file replaced by rename (as most editors save) is
// still followed.
type Watcher struct {
	paths    map[string]struct{}
	onChange func(path string)
	quiet    time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	fs      *fsnotify.Watcher
	pending map[string]*time.Timer
	stop    chan struct{}
	once    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for watch events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce overrides the quiet interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.quiet = d
		}
	}
}

// NewWatcher creates a watcher for files. onChange receives the cleaned absolute path.
func NewWatcher(files []string, onChange func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		paths:    make(map[string]struct{}, len(files)),
		onChange: onChange,
		quiet:    defaultDebounce,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
		stop:     make(chan struct{}),
	}
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			w.paths[filepath.Clean(abs)] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching in the background until ctx is done or Stop is called.
// Calling Start on a running watcher does nothing.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.stop:
		return nil
	default:
	}
	if w.fs != nil {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range w.dirs() {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return err
		}
	}
	w.fs = fw
	w.logger.Debug("watching files", zap.Int("files", len(w.paths)), zap.Duration("debounce", w.quiet))
	go w.loop(ctx, fw)
	return nil
}

func (w *Watcher) dirs() []string {
	seen := make(map[string]bool)
	var out []string
	for p := range w.paths {
		if d := filepath.Dir(p); !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.stop:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// saves are writes, creates, or renames onto the watched name.
const saves = fsnotify.Write | fsnotify.Create | fsnotify.Rename

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if _, ok := w.paths[path]; !ok || ev.Op&saves == 0 {
		return
	}
	w.logger.Debug("file event", zap.Stringer("op", ev.Op), zap.String("path", path))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fs == nil {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.quiet)
		return
	}
	w.pending[path] = time.AfterFunc(w.quiet, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()
	w.logger.Info("file changed", zap.String("path", path))
	if w.onChange != nil {
		w.onChange(path)
	}
}

// Stop stops watching and drops pending notifications. It is safe to call more than once;
// a stopped watcher is not restarted by Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fw := w.fs
	w.fs = nil
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	if fw != nil {
		_ = fw.Close()
	}
	w.once.Do(func() { close(w.stop) })
}
