package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	derrors "git.home.luguber.info/inful/demostage/internal/errors"
	"git.home.luguber.info/inful/demostage/internal/logfields"
)

// Manager handles the scratch workspace directory.
type Manager struct {
	mu      sync.Mutex
	path    string
	created bool
}

// NewManager creates a manager for the fixed scratch directory path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Reset destroys any previous contents and creates the directory fresh.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(m.path); err != nil {
		return derrors.WorkspaceError("reset", err).WithContext("path", m.path)
	}
	if err := os.MkdirAll(m.path, 0o750); err != nil {
		return derrors.WorkspaceError("create", err).WithContext("path", m.path)
	}
	m.created = true
	slog.Info("Created scratch workspace", logfields.Path(m.path))
	return nil
}

// Path returns the path to the workspace directory
func (m *Manager) Path() string {
	return m.path
}

// Exists reports whether the workspace directory is currently on disk.
func (m *Manager) Exists() bool {
	st, err := os.Stat(m.path)
	return err == nil && st.IsDir()
}

// Cleanup removes the workspace directory synchronously. Removing an absent
// workspace is not an error, so Cleanup may be called from any exit path.
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(m.path); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	if m.created {
		slog.Info("Cleaned up scratch workspace", logfields.Path(m.path))
	}
	m.created = false
	return nil
}
