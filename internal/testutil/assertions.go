package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// FileAssertions provides chained assertions on files below a base directory.
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

// NewFileAssertions creates a new file assertions helper.
func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

func (fa *FileAssertions) path(rel string) string {
	return filepath.Join(fa.baseDir, filepath.FromSlash(rel))
}

// FileExists asserts that rel is a file.
func (fa *FileAssertions) FileExists(rel string) *FileAssertions {
	fa.t.Helper()
	require.FileExists(fa.t, fa.path(rel))
	return fa
}

// NotExists asserts that nothing exists at rel.
func (fa *FileAssertions) NotExists(rel string) *FileAssertions {
	fa.t.Helper()
	require.NoFileExists(fa.t, fa.path(rel))
	require.NoDirExists(fa.t, fa.path(rel))
	return fa
}

// FileContains asserts that rel contains want.
func (fa *FileAssertions) FileContains(rel, want string) *FileAssertions {
	fa.t.Helper()
	require.Contains(fa.t, ReadFile(fa.t, fa.path(rel)), want)
	return fa
}

// FileNotContains asserts that rel does not contain unwanted.
func (fa *FileAssertions) FileNotContains(rel, unwanted string) *FileAssertions {
	fa.t.Helper()
	require.NotContains(fa.t, ReadFile(fa.t, fa.path(rel)), unwanted)
	return fa
}
