package demos

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	derrors "git.home.luguber.info/inful/demostage/internal/errors"
	"git.home.luguber.info/inful/demostage/internal/logfields"
	"git.home.luguber.info/inful/demostage/internal/util/sets"
)

// Demo describes one demo directory.
type Demo struct {
	Name string // directory basename
	Path string // absolute path
}

// Locator enumerates demos under a root directory.
type Locator struct {
	root     string
	reserved string
}

// NewLocator creates a locator for root, skipping the reserved shared-config entry.
func NewLocator(root, reserved string) *Locator {
	return &Locator{root: root, reserved: reserved}
}

// List returns the demos under the root in directory-listing order.
//
// When requested is non-empty every name must be an existing demo directory,
// otherwise List fails with a config-category error naming the first missing
// one and returns nothing. The result is then restricted to the requested
// names. An empty result is a config-category error as well.
func (l *Locator) List(requested []string) ([]Demo, error) {
	entries, err := readDirUnsorted(l.root)
	if err != nil {
		return nil, derrors.WorkspaceError("list demos", err).WithContext("root", l.root)
	}

	var all []Demo
	found := sets.New[string]()
	for _, entry := range entries {
		name := entry.Name()
		if name == l.reserved || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(l.root, name)
		if !isDir(entry, path) {
			continue
		}
		all = append(all, Demo{Name: name, Path: path})
		found.Add(name)
	}

	if missing := found.Missing(requested...); len(missing) > 0 {
		return nil, derrors.DemoNotFound(missing[0], filepath.Join(l.root, missing[0]))
	}

	demos := all
	if len(requested) > 0 {
		want := sets.New(requested...)
		demos = demos[:0:0]
		for _, d := range all {
			if want.Has(d.Name) {
				demos = append(demos, d)
			}
		}
	}

	if len(demos) == 0 {
		return nil, derrors.NoDemos(l.root, requested)
	}

	slog.Debug("Located demos", logfields.Path(l.root), logfields.Files(len(demos)))
	return demos, nil
}

// readDirUnsorted lists dir in the order the filesystem yields entries.
// os.ReadDir would sort by name, which callers must not rely on.
func readDirUnsorted(dir string) ([]fs.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return f.ReadDir(-1)
}

// isDir reports whether entry is a directory, following symlinks.
func isDir(entry fs.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	st, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Cannot stat demo candidate", logfields.Path(path), logfields.Error(err))
		}
		return false
	}
	return st.IsDir()
}

// Names returns the demo names in order.
func Names(demos []Demo) []string {
	names := make([]string, len(demos))
	for i, d := range demos {
		names[i] = d.Name
	}
	return names
}
