// Package watch follows the original demo sources and mirrors every change
// into the scratch workspace, then signals a debounced rebuild.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/demostage/internal/lifecycle"
	"git.home.luguber.info/inful/demostage/internal/logfields"
	"git.home.luguber.info/inful/demostage/internal/metrics"
	"git.home.luguber.info/inful/demostage/internal/stage"
)

// DefaultDebounce coalesces bursts of editor writes into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Applier mirrors a single source change; *stage.Syncer implements it.
type Applier interface {
	Apply(stage.Change) (stage.Action, int, error)
}

// Options configures a Watcher.
type Options struct {
	Root     string
	Syncer   Applier
	Debounce time.Duration
	// OnChange runs after a quiet period following applied changes. Calls
	// never overlap; changes arriving meanwhile schedule one more call.
	OnChange func(ctx context.Context)
	Recorder metrics.Recorder
	// Lifecycle, when set, recovers panics on the watcher's goroutines so the
	// workspace is still cleaned up before the process exits.
	Lifecycle *lifecycle.Manager
}

// Watcher watches Root recursively.
type Watcher struct {
	opts       Options
	fw         *fsnotify.Watcher
	rebuildReq chan struct{}

	mu    sync.Mutex
	timer *time.Timer

	closeOnce sync.Once
}

// New creates the watcher and registers every directory below opts.Root.
func New(opts Options) (*Watcher, error) {
	if opts.Syncer == nil {
		return nil, errors.New("watch: syncer required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := addDirsRecursive(fw, opts.Root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{opts: opts, fw: fw, rebuildReq: make(chan struct{}, 1)}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if lc := w.opts.Lifecycle; lc != nil {
			defer lc.Recover()
		}
		w.rebuildWorker(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	slog.Info("Watching demo sources", logfields.Path(w.opts.Root))
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				w.stopTimer()
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				w.stopTimer()
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

// Close stops the underlying watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.stopTimer()
		err = w.fw.Close()
	})
	return err
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op == fsnotify.Chmod {
		return
	}
	removed := ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(w.fw, ev.Name)
		}
	}

	action, files, err := w.opts.Syncer.Apply(stage.Change{Path: ev.Name, Removed: removed})
	if err != nil {
		slog.Warn("Failed to mirror change", logfields.Path(ev.Name), logfields.Op(ev.Op.String()), logfields.Error(err))
		return
	}
	if action == stage.ActionSkipped {
		return
	}
	w.opts.Recorder.IncSyncAction(action.String())
	if action == stage.ActionCopied {
		w.opts.Recorder.IncFilesCopied(files)
	}
	slog.Debug("File change mirrored", logfields.Path(ev.Name), logfields.Op(ev.Op.String()), slog.String("action", action.String()))
	w.trigger()
}

// trigger (re)arms the debounce timer.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		select {
		case w.rebuildReq <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// rebuildWorker serializes OnChange calls. rebuildReq has capacity one, so
// requests arriving during a call collapse into a single follow-up call.
func (w *Watcher) rebuildWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.rebuildReq:
			if w.opts.OnChange != nil && ctx.Err() == nil {
				w.opts.OnChange(ctx)
			}
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && stage.Ignored(d.Name(), true) {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not be
// mirrored. Staging applies the same rule, so what is staged is also kept in sync.
func shouldIgnoreEvent(path string) bool {
	return stage.Ignored(filepath.Base(path), false)
}
