package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/demostage/internal/lifecycle"
	"git.home.luguber.info/inful/demostage/internal/stage"
)

func TestShouldIgnoreEvent(t *testing.T) {
	tests := map[string]bool{
		"/d/simple/index.js":      false,
		"/d/simple/.index.js.swp": true,
		"/d/simple/index.js~":     true,
		"/d/simple/#index.js#":    true,
		"/d/simple/.DS_Store":     true,
		"/d/simple/4913":          true,
		"/d/config.js":            false,
		"/d/simple/.babelrc":      false,
		"/d/simple/.#index.js":    true,
	}
	for path, want := range tests {
		require.Equal(t, want, shouldIgnoreEvent(path), path)
	}
}

type fakeApplier struct {
	mu      sync.Mutex
	changes []stage.Change
}

func (f *fakeApplier) Apply(c stage.Change) (stage.Action, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, c)
	return stage.ActionCopied, 1, nil
}

func TestNew_RequiresExistingRoot(t *testing.T) {
	_, err := New(Options{Root: filepath.Join(t.TempDir(), "missing"), Syncer: &fakeApplier{}})
	require.Error(t, err)

	_, err = New(Options{Root: t.TempDir()})
	require.Error(t, err)
}

func TestWatcher_MirrorsChangeAndDebouncesRebuild(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "demos")
	dest := filepath.Join(base, ".demos")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "simple"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "simple", "index.js"), []byte("v1"), 0o600))
	_, err := stage.Stage(src, "**", dest)
	require.NoError(t, err)

	var rebuilds atomic.Int32
	w, err := New(Options{
		Root:     src,
		Syncer:   stage.NewSyncer(src, "**", dest),
		Debounce: 100 * time.Millisecond,
		OnChange: func(context.Context) { rebuilds.Add(1) },
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for _, v := range []string{"v2", "v3", "v4"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, "simple", "index.js"), []byte(v), 0o600))
	}

	staged := filepath.Join(dest, "simple", "index.js")
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(staged)
		return err == nil && string(b) == "v4"
	}, 3*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return rebuilds.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, int32(1), rebuilds.Load(), "burst of writes should coalesce into one rebuild")

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	src := t.TempDir()
	applier := &fakeApplier{}
	w, err := New(Options{Root: src, Syncer: applier, Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	newDir := filepath.Join(src, "another-demo")
	require.NoError(t, os.Mkdir(newDir, 0o750))
	require.Eventually(t, func() bool {
		applier.mu.Lock()
		defer applier.mu.Unlock()
		return len(applier.changes) > 0
	}, 3*time.Second, 20*time.Millisecond)

	// Files inside the new directory are now reported too.
	nested := filepath.Join(newDir, "index.js")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(nested, []byte("x"), 0o600)
		applier.mu.Lock()
		defer applier.mu.Unlock()
		for _, c := range applier.changes {
			if c.Path == nested {
				return true
			}
		}
		return false
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWatcher_CloseEndsRun(t *testing.T) {
	w, err := New(Options{Root: t.TempDir(), Syncer: &fakeApplier{}})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(t.Context()) }()
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestWatcher_MirrorsStagedDotfile(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "demos")
	dest := filepath.Join(base, ".demos")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "simple"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "simple", ".babelrc"), []byte("{}"), 0o600))
	_, err := stage.Stage(src, "**", dest)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dest, "simple", ".babelrc"))

	w, err := New(Options{Root: src, Syncer: stage.NewSyncer(src, "**", dest), Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(src, "simple", ".babelrc"), []byte(`{"presets":[]}`), 0o600))
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(filepath.Join(dest, "simple", ".babelrc"))
		return err == nil && string(b) == `{"presets":[]}`
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_PanickingRebuildCleansUpAndExits(t *testing.T) {
	src := t.TempDir()
	exits := make(chan int, 1)
	lc := lifecycle.New(lifecycle.WithExitFunc(func(code int) { exits <- code }))
	var cleaned atomic.Bool
	lc.Register(func() error { cleaned.Store(true); return nil })

	w, err := New(Options{
		Root:      src,
		Syncer:    &fakeApplier{},
		Debounce:  10 * time.Millisecond,
		OnChange:  func(context.Context) { panic("bundler crashed") },
		Lifecycle: lc,
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(src, "index.js"), []byte("x"), 0o600))
	select {
	case code := <-exits:
		require.Equal(t, 10, code)
	case <-time.After(3 * time.Second):
		t.Fatal("panic in the rebuild worker did not reach the lifecycle manager")
	}
	require.True(t, cleaned.Load())
	require.Equal(t, 1, lc.CleanupRuns())

	cancel()
	require.NoError(t, <-done)
}
