// Package watch reruns an invocation when the files it was built from change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/hierbuild/internal/logfields"
)

// DefaultDebounce coalesces bursts of writes such as editor save sequences.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc is called once per debounced burst of changes. Errors are logged
// and watching continues.
type ChangeFunc func(ctx context.Context) error

// Watcher monitors a set of files through their parent directories, which
// survives editors that replace files on save.
type Watcher struct {
	files    map[string]struct{}
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange ChangeFunc
	trigger  chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New starts watching the directories holding files. Events arriving before Run
// is called are kept and delivered once it starts.
func New(files []string, onChange ChangeFunc, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		files:    make(map[string]struct{}, len(files)),
		watcher:  fw,
		debounce: DefaultDebounce,
		onChange: onChange,
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run delivers debounced change notifications until ctx is done. Change
// callbacks run on the calling goroutine and never overlap.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}()
	slog.Info("Watching for changes", logfields.Count(len(w.files)))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.run(ctx)

		case <-w.trigger:
			w.run(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

// Trigger requests an immediate callback, bypassing the debounce.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		if event.Op&fsnotify.Remove != 0 {
			slog.Warn("Watched file removed", logfields.Path(event.Name))
		}
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

func (w *Watcher) run(ctx context.Context) {
	if err := w.onChange(ctx); err != nil {
		slog.Error("Rerun after change failed", logfields.Error(err))
	}
}
