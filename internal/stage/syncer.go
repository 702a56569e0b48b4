package stage

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/demostage/internal/logfields"
)

// Action reports what Apply did with a change.
type Action int

const (
	ActionSkipped Action = iota
	ActionCopied
	ActionRemoved
)

func (a Action) String() string {
	switch a {
	case ActionCopied:
		return "copied"
	case ActionRemoved:
		return "removed"
	default:
		return "skipped"
	}
}

// Change is a single filesystem change below the source root.
type Change struct {
	Path    string // absolute path under the source root
	Removed bool   // removed or renamed away
}

// Syncer applies incremental source changes to an already staged workspace.
// It is not safe for concurrent use; the watcher is its only caller.
type Syncer struct {
	srcRoot string
	pattern string
	destDir string
}

// NewSyncer creates a syncer mirroring srcRoot into destDir for paths matching pattern.
func NewSyncer(srcRoot, pattern, destDir string) *Syncer {
	return &Syncer{srcRoot: srcRoot, pattern: pattern, destDir: destDir}
}

// Apply mirrors one change. Files are re-copied, new directories are copied
// recursively, and removed paths are deleted from the workspace. Paths outside
// the source root, not matching the pattern, or Ignored are skipped.
func (s *Syncer) Apply(c Change) (Action, int, error) {
	rel, ok := relSlash(s.srcRoot, c.Path)
	if !ok {
		return ActionSkipped, 0, nil
	}
	dest := filepath.Join(s.destDir, filepath.FromSlash(rel))

	if c.Removed {
		return s.remove(rel, dest)
	}

	info, err := os.Stat(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		// Gone again before we got to it: treat as removal.
		return s.remove(rel, dest)
	}
	if err != nil {
		return ActionSkipped, 0, err
	}
	if ignoredRel(rel, info.IsDir()) {
		return ActionSkipped, 0, nil
	}

	if info.IsDir() {
		files, _, err := copyTree(s.srcRoot, c.Path, s.pattern, s.destDir)
		if err != nil {
			return ActionSkipped, files, err
		}
		if files == 0 {
			return ActionSkipped, 0, nil
		}
		slog.Debug("Copied new directory", logfields.Path(rel), logfields.Files(files))
		return ActionCopied, files, nil
	}

	match, err := doublestar.Match(s.pattern, rel)
	if err != nil || !match {
		return ActionSkipped, 0, err
	}
	if _, err := copyFile(c.Path, dest); err != nil {
		if errors.Is(err, errNotRegular) {
			return ActionSkipped, 0, nil
		}
		return ActionSkipped, 0, err
	}
	slog.Debug("Copied changed file", logfields.Path(rel))
	return ActionCopied, 1, nil
}

// remove deletes the mirrored path if it exists in the workspace.
func (s *Syncer) remove(rel, dest string) (Action, int, error) {
	if _, err := os.Lstat(dest); errors.Is(err, fs.ErrNotExist) {
		return ActionSkipped, 0, nil
	}
	if err := os.RemoveAll(dest); err != nil {
		return ActionSkipped, 0, err
	}
	slog.Debug("Removed staged path", logfields.Path(rel))
	return ActionRemoved, 1, nil
}
