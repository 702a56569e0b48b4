// Package lifecycle owns process termination: it turns signals into context
// cancellation and guarantees registered cleanups run exactly once before
// the process exits, whichever path gets there first.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	derrors "git.home.luguber.info/inful/demostage/internal/errors"
	"git.home.luguber.info/inful/demostage/internal/logfields"
)

// Manager collects cleanup functions and runs them once.
type Manager struct {
	mu       sync.Mutex
	cleanups []func() error

	once sync.Once
	runs atomic.Int32
	err  error

	exitFunc func(int)
	signals  []os.Signal
}

// Option customizes a Manager.
type Option func(*Manager)

// WithExitFunc replaces os.Exit, mainly for tests.
func WithExitFunc(fn func(int)) Option {
	return func(m *Manager) { m.exitFunc = fn }
}

// WithSignals overrides the handled signal set.
func WithSignals(sigs ...os.Signal) Option {
	return func(m *Manager) { m.signals = sigs }
}

// New returns a Manager handling the platform's termination signals.
func New(opts ...Option) *Manager {
	m := &Manager{exitFunc: os.Exit, signals: terminationSignals()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a cleanup. Cleanups run in reverse registration order.
// Registering after cleanup has run has no effect.
func (m *Manager) Register(fn func() error) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, fn)
}

// Cleanup runs every registered cleanup synchronously. Only the first call
// does any work; later calls return the first call's error.
func (m *Manager) Cleanup() error {
	m.once.Do(func() {
		m.runs.Add(1)
		m.mu.Lock()
		fns := m.cleanups
		m.cleanups = nil
		m.mu.Unlock()

		var errs []error
		for i := len(fns) - 1; i >= 0; i-- {
			if err := fns[i](); err != nil {
				slog.Warn("Cleanup failed", logfields.Error(err))
				errs = append(errs, err)
			}
		}
		m.err = errors.Join(errs...)
	})
	return m.err
}

// CleanupRuns reports how many times cleanup actually executed (0 or 1).
func (m *Manager) CleanupRuns() int { return int(m.runs.Load()) }

// Notify returns a context cancelled when one of the handled signals
// arrives. The returned stop function releases the signal handlers.
func (m *Manager) Notify(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, m.signals...)

	go func() {
		select {
		case sig := <-ch:
			slog.Info("Received signal; shutting down", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(ch)
		cancel()
	}
}

// Exit runs the cleanup, then terminates the process with code.
func (m *Manager) Exit(code int) {
	if err := m.Cleanup(); err != nil && code == 0 {
		code = 1
	}
	m.exitFunc(code)
}

// Recover turns a panic in the calling goroutine into a reported internal
// error followed by Exit. Use as `defer m.Recover()`.
func (m *Manager) Recover() {
	r := recover()
	if r == nil {
		return
	}
	code := derrors.NewCLIErrorAdapter(false, slog.Default()).Report(derrors.Panic(r))
	m.Exit(code)
}
