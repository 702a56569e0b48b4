package stage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/demostage/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

// fixture lays out demos/{config.js,simple/index.js,full-demo/index.js} and returns (src, dest).
func fixture(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	src := filepath.Join(base, "demos")
	writeFile(t, filepath.Join(src, "config.js"), "export const ROOM_NAME = 'x'\n")
	writeFile(t, filepath.Join(src, "simple", "index.js"), "export default 1\n")
	writeFile(t, filepath.Join(src, "full-demo", "index.js"), "export default 2\n")
	writeFile(t, filepath.Join(src, "full-demo", "components", "App.js"), "export default 3\n")
	return src, filepath.Join(base, ".demos")
}

func TestStage_CopiesEverything(t *testing.T) {
	src, dest := fixture(t)

	res, err := Stage(src, "**", dest)
	require.NoError(t, err)
	require.Equal(t, 4, res.Files)
	require.Positive(t, res.Bytes)

	require.Equal(t, "export default 1\n", readFile(t, filepath.Join(dest, "simple", "index.js")))
	require.Equal(t, "export default 3\n", readFile(t, filepath.Join(dest, "full-demo", "components", "App.js")))
	require.FileExists(t, filepath.Join(dest, "config.js"))
}

func TestStage_SecondRunLeavesNoOrphans(t *testing.T) {
	src, dest := fixture(t)

	_, err := Stage(src, "**", dest)
	require.NoError(t, err)
	writeFile(t, filepath.Join(dest, "simple", "index.html"), "<html></html>")

	require.NoError(t, os.RemoveAll(filepath.Join(src, "full-demo")))
	res, err := Stage(src, "**", dest)
	require.NoError(t, err)
	require.Equal(t, 2, res.Files)

	require.NoDirExists(t, filepath.Join(dest, "full-demo"))
	require.NoFileExists(t, filepath.Join(dest, "simple", "index.html"))
	require.FileExists(t, filepath.Join(dest, "simple", "index.js"))
}

func TestStage_IdempotentForUnchangedSources(t *testing.T) {
	src, dest := fixture(t)

	first, err := Stage(src, "**", dest)
	require.NoError(t, err)
	second, err := Stage(src, "**", dest)
	require.NoError(t, err)

	require.Equal(t, first.Files, second.Files)
	require.Equal(t, first.Bytes, second.Bytes)
}

func TestStage_PatternRestrictsSources(t *testing.T) {
	src, dest := fixture(t)

	res, err := Stage(src, "{config.js,simple/**}", dest)
	require.NoError(t, err)
	require.Equal(t, 2, res.Files)
	require.FileExists(t, filepath.Join(dest, "config.js"))
	require.FileExists(t, filepath.Join(dest, "simple", "index.js"))
	require.NoDirExists(t, filepath.Join(dest, "full-demo"))
}

func TestStage_PreservesPermissions(t *testing.T) {
	src, dest := fixture(t)
	script := filepath.Join(src, "simple", "run.sh")
	writeFile(t, script, "#!/bin/sh\n")
	require.NoError(t, os.Chmod(script, 0o750))

	_, err := Stage(src, "**", dest)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dest, "simple", "run.sh"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}

func TestStage_MissingSourceIsFilesystemError(t *testing.T) {
	base := t.TempDir()
	_, err := Stage(filepath.Join(base, "missing"), "**", filepath.Join(base, ".demos"))
	require.Error(t, err)
	require.True(t, derrors.IsCategory(err, derrors.CategoryFileSystem))
}

func TestStage_InvalidPattern(t *testing.T) {
	src, dest := fixture(t)
	_, err := Stage(src, "[", dest)
	require.Error(t, err)
}

func TestSyncer_ChangeCopiesOnlyThatFile(t *testing.T) {
	src, dest := fixture(t)
	_, err := Stage(src, "**", dest)
	require.NoError(t, err)

	// Marker proving the other demo is left alone.
	marker := filepath.Join(dest, "full-demo", "index.html")
	writeFile(t, marker, "scaffold")

	writeFile(t, filepath.Join(src, "simple", "index.js"), "export default 42\n")
	s := NewSyncer(src, "**", dest)

	action, n, err := s.Apply(Change{Path: filepath.Join(src, "simple", "index.js")})
	require.NoError(t, err)
	require.Equal(t, ActionCopied, action)
	require.Equal(t, 1, n)
	require.Equal(t, "export default 42\n", readFile(t, filepath.Join(dest, "simple", "index.js")))
	require.Equal(t, "scaffold", readFile(t, marker))
	require.Equal(t, "export default 2\n", readFile(t, filepath.Join(dest, "full-demo", "index.js")))
}

func TestSyncer_NewDirectoryCopiedRecursively(t *testing.T) {
	src, dest := fixture(t)
	_, err := Stage(src, "**", dest)
	require.NoError(t, err)

	writeFile(t, filepath.Join(src, "simple", "widgets", "a.js"), "a")
	writeFile(t, filepath.Join(src, "simple", "widgets", "b.js"), "b")

	action, n, err := NewSyncer(src, "**", dest).Apply(Change{Path: filepath.Join(src, "simple", "widgets")})
	require.NoError(t, err)
	require.Equal(t, ActionCopied, action)
	require.Equal(t, 2, n)
	require.FileExists(t, filepath.Join(dest, "simple", "widgets", "b.js"))
}

func TestSyncer_RemovalDeletesMirror(t *testing.T) {
	src, dest := fixture(t)
	_, err := Stage(src, "**", dest)
	require.NoError(t, err)

	path := filepath.Join(src, "full-demo", "components", "App.js")
	require.NoError(t, os.Remove(path))

	action, _, err := NewSyncer(src, "**", dest).Apply(Change{Path: path, Removed: true})
	require.NoError(t, err)
	require.Equal(t, ActionRemoved, action)
	require.NoFileExists(t, filepath.Join(dest, "full-demo", "components", "App.js"))

	// A write event for a path that vanished behaves like a removal.
	require.NoError(t, os.Remove(filepath.Join(src, "simple", "index.js")))
	action, _, err = NewSyncer(src, "**", dest).Apply(Change{Path: filepath.Join(src, "simple", "index.js")})
	require.NoError(t, err)
	require.Equal(t, ActionRemoved, action)
}

func TestSyncer_SkipsUnmatchedAndOutsidePaths(t *testing.T) {
	src, dest := fixture(t)
	_, err := Stage(src, "{config.js,simple/**}", dest)
	require.NoError(t, err)
	s := NewSyncer(src, "{config.js,simple/**}", dest)

	writeFile(t, filepath.Join(src, "full-demo", "index.js"), "changed")
	action, _, err := s.Apply(Change{Path: filepath.Join(src, "full-demo", "index.js")})
	require.NoError(t, err)
	require.Equal(t, ActionSkipped, action)
	require.NoDirExists(t, filepath.Join(dest, "full-demo"))

	action, _, err = s.Apply(Change{Path: filepath.Join(filepath.Dir(src), "elsewhere.js")})
	require.NoError(t, err)
	require.Equal(t, ActionSkipped, action)
}

func TestIgnored(t *testing.T) {
	files := map[string]bool{
		"index.js":      false,
		".babelrc":      false,
		".env":          false,
		"index.js~":     true,
		".index.js.swp": true,
		".#index.js":    true,
		"#index.js#":    true,
		".DS_Store":     true,
		"4913":          true,
	}
	for name, want := range files {
		require.Equal(t, want, Ignored(name, false), name)
	}
	require.True(t, Ignored(".git", true))
	require.False(t, Ignored("components", true))
}

func TestStage_SkipsIgnoredEntriesButKeepsDotfiles(t *testing.T) {
	src, dest := fixture(t)
	writeFile(t, filepath.Join(src, "simple", ".babelrc"), "{}")
	writeFile(t, filepath.Join(src, "simple", "index.js~"), "backup")
	writeFile(t, filepath.Join(src, "simple", ".git", "HEAD"), "ref")

	res, err := Stage(src, "**", dest)
	require.NoError(t, err)
	require.Equal(t, 5, res.Files)
	require.FileExists(t, filepath.Join(dest, "simple", ".babelrc"))
	require.NoFileExists(t, filepath.Join(dest, "simple", "index.js~"))
	require.NoDirExists(t, filepath.Join(dest, "simple", ".git"))
}

func TestSyncer_AgreesWithStageOnIgnoredPaths(t *testing.T) {
	src, dest := fixture(t)
	_, err := Stage(src, "**", dest)
	require.NoError(t, err)
	s := NewSyncer(src, "**", dest)

	writeFile(t, filepath.Join(src, "simple", ".git", "config"), "x")
	action, _, err := s.Apply(Change{Path: filepath.Join(src, "simple", ".git", "config")})
	require.NoError(t, err)
	require.Equal(t, ActionSkipped, action)
	action, _, err = s.Apply(Change{Path: filepath.Join(src, "simple", ".git")})
	require.NoError(t, err)
	require.Equal(t, ActionSkipped, action)
	require.NoDirExists(t, filepath.Join(dest, "simple", ".git"))

	writeFile(t, filepath.Join(src, "simple", ".babelrc"), "{}")
	action, n, err := s.Apply(Change{Path: filepath.Join(src, "simple", ".babelrc")})
	require.NoError(t, err)
	require.Equal(t, ActionCopied, action)
	require.Equal(t, 1, n)
}
