// Package testutil builds demo project fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Project is a throwaway checkout: <Base>/demos with its sibling scratch and output dirs.
type Project struct {
	Base    string
	Root    string
	Scratch string
	Out     string
}

// NewProject lays out a demo root with the shared config.js, a "simple"
// demo and a "full-demo" that carries a stylesheet.
func NewProject(t *testing.T) *Project {
	t.Helper()
	base := t.TempDir()
	p := &Project{
		Base:    base,
		Root:    filepath.Join(base, "demos"),
		Scratch: filepath.Join(base, ".demos"),
		Out:     filepath.Join(base, "dist"),
	}
	p.Write(t, "config.js", "export const API_KEY = process.env.API_KEY\n")
	p.Write(t, "simple/index.js", "export default () => null\n")
	p.Write(t, "full-demo/index.js", "export default () => null\n")
	p.Write(t, "full-demo/styles.css", "body {\n  margin: 0px;\n}\n")
	return p
}

// Write creates rel (slash separated, relative to Root) with content.
func (p *Project) Write(t *testing.T, rel, content string) {
	t.Helper()
	WriteFile(t, filepath.Join(p.Root, filepath.FromSlash(rel)), content)
}

// Staged returns the scratch path of rel.
func (p *Project) Staged(rel string) string {
	return filepath.Join(p.Scratch, filepath.FromSlash(rel))
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	// #nosec G304 - test helper, paths are controlled by test code
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}
