// Package stage mirrors demo sources into the scratch workspace, either as a
// clean bulk copy or as incremental per-path updates driven by a watcher.
package stage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	derrors "git.home.luguber.info/inful/demostage/internal/errors"
	"git.home.luguber.info/inful/demostage/internal/logfields"
)

// Result summarizes a bulk copy.
type Result struct {
	Files    int
	Bytes    int64
	Duration time.Duration
}

// Stage copies every file under srcRoot whose slash-separated relative path
// matches pattern into destDir, leaving out entries Ignored reports. destDir
// is removed first, so after Stage it reflects exactly the current source set.
func Stage(srcRoot, pattern, destDir string) (Result, error) {
	start := time.Now()
	var res Result

	if !doublestar.ValidatePattern(pattern) {
		return res, derrors.StageFailed(srcRoot, fmt.Errorf("invalid pattern %q", pattern))
	}
	st, err := os.Stat(srcRoot)
	if err != nil {
		return res, derrors.StageFailed(srcRoot, err)
	}
	if !st.IsDir() {
		return res, derrors.StageFailed(srcRoot, fmt.Errorf("%s is not a directory", srcRoot))
	}

	if err := os.RemoveAll(destDir); err != nil {
		return res, derrors.StageFailed(srcRoot, fmt.Errorf("clean %s: %w", destDir, err))
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return res, derrors.StageFailed(srcRoot, fmt.Errorf("create %s: %w", destDir, err))
	}

	files, bytes, err := copyTree(srcRoot, srcRoot, pattern, destDir)
	res.Files, res.Bytes = files, bytes
	res.Duration = time.Since(start)
	if err != nil {
		return res, derrors.StageFailed(srcRoot, err)
	}

	slog.Info("Staged demo sources",
		logfields.Source(srcRoot),
		logfields.Dest(destDir),
		logfields.Files(res.Files),
		logfields.Duration(res.Duration))
	return res, nil
}

// copyTree copies matching files below dir (which lies inside srcRoot) into destDir.
func copyTree(srcRoot, dir, pattern, destDir string) (int, int64, error) {
	var files int
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && Ignored(d.Name(), true) {
				return filepath.SkipDir
			}
			return nil
		}
		if Ignored(d.Name(), false) {
			return nil
		}
		rel, ok := relSlash(srcRoot, path)
		if !ok {
			return nil
		}
		match, err := doublestar.Match(pattern, rel)
		if err != nil {
			return err
		}
		if !match {
			return nil
		}
		n, err := copyFile(path, filepath.Join(destDir, filepath.FromSlash(rel)))
		if errors.Is(err, errNotRegular) {
			return nil
		}
		if err != nil {
			return err
		}
		files++
		total += n
		return nil
	})
	return files, total, err
}

var errNotRegular = errors.New("not a regular file")

// copyFile copies a single file from src to dst, creating parent directories
// and preserving the permission bits. Symlinks to regular files are followed.
func copyFile(src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if !srcInfo.Mode().IsRegular() {
		return 0, errNotRegular
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return 0, err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dstFile, srcFile)
	if cerr := dstFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}

	return n, os.Chmod(dst, srcInfo.Mode().Perm())
}

// relSlash returns path relative to root in slash form; ok is false when path is outside root.
func relSlash(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
