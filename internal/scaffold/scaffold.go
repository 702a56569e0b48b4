// Package scaffold writes the shared HTML shell and bootstrap entry script
// into every staged demo directory.
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/demostage/internal/demos"
	derrors "git.home.luguber.info/inful/demostage/internal/errors"
	"git.home.luguber.info/inful/demostage/internal/logfields"
)

// Fixed file names inside each staged demo directory.
const (
	ShellFile    = "index.html"
	EntryFile    = "app.js"
	BundleScript = "bundle.js" // produced by the bundler from EntryFile
)

const titlePlaceholder = "{{title}}"

const shellTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{title}}</title>
</head>
<body>
<div id="app"></div>
<script src="bundle.js"></script>
</body>
</html>
`

// entryTemplate mounts the demo's default export into #app.
const entryTemplate = `import React from "react"
import ReactDOM from "react-dom"
import App from "./index"

ReactDOM.render(<App />, document.getElementById("app"))
`

// Options controls shell rendering.
type Options struct {
	Stylesheet string // conventional stylesheet name looked up in the demo dir; empty disables
}

// Inject writes the HTML shell and the bootstrap entry script into demoDir,
// overwriting whatever was there.
func Inject(demoDir string, opts Options) error {
	hasStylesheet := false
	if opts.Stylesheet != "" {
		st, err := os.Stat(filepath.Join(demoDir, opts.Stylesheet))
		switch {
		case err == nil:
			hasStylesheet = st.Mode().IsRegular()
		case !errors.Is(err, fs.ErrNotExist):
			return derrors.ScaffoldFailed(demoDir, err)
		}
	}

	stylesheet := ""
	if hasStylesheet {
		stylesheet = opts.Stylesheet
	}
	shell, err := RenderShell(filepath.Base(demoDir), stylesheet)
	if err != nil {
		return derrors.ScaffoldFailed(demoDir, err)
	}

	if err := os.WriteFile(filepath.Join(demoDir, ShellFile), shell, 0o644); err != nil {
		return derrors.ScaffoldFailed(demoDir, err)
	}
	if err := os.WriteFile(filepath.Join(demoDir, EntryFile), []byte(entryTemplate), 0o644); err != nil {
		return derrors.ScaffoldFailed(demoDir, err)
	}

	slog.Debug("Injected scaffold",
		logfields.Path(demoDir),
		slog.Bool("stylesheet", hasStylesheet))
	return nil
}

// InjectAll injects the scaffold into the staged directory of every demo.
// Entries of scratchDir that are not demo directories are never touched.
func InjectAll(scratchDir string, list []demos.Demo, opts Options) error {
	for _, d := range list {
		dir := filepath.Join(scratchDir, d.Name)
		st, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Demo has no staged files; skipping scaffold", logfields.Demo(d.Name))
			continue
		}
		if err != nil {
			return derrors.ScaffoldFailed(dir, err)
		}
		if !st.IsDir() {
			continue
		}
		if err := Inject(dir, opts); err != nil {
			return err
		}
	}
	slog.Info("Injected scaffolds", logfields.Files(len(list)))
	return nil
}

// RenderShell renders the HTML shell for a demo titled title. When
// stylesheet is non-empty a <link rel="stylesheet"> is appended as the last
// element of <head>, so it renders immediately before </head>.
func RenderShell(title, stylesheet string) ([]byte, error) {
	doc, err := html.Parse(strings.NewReader(shellTemplate))
	if err != nil {
		return nil, fmt.Errorf("parse shell template: %w", err)
	}

	head := findElement(doc, atom.Head)
	titleNode := findElement(doc, atom.Title)
	if head == nil || titleNode == nil {
		return nil, errors.New("shell template lacks <head> or <title>")
	}

	substituteText(titleNode, titlePlaceholder, title)

	if stylesheet != "" {
		head.AppendChild(&html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Link,
			Data:     "link",
			Attr: []html.Attribute{
				{Key: "rel", Val: "stylesheet"},
				{Key: "href", Val: stylesheet},
			},
		})
		// keep one element per line like the rest of the head
		head.AppendChild(&html.Node{Type: html.TextNode, Data: "\n"})
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render shell: %w", err)
	}
	return buf.Bytes(), nil
}

// EntryScript returns the bootstrap entry script content.
func EntryScript() string { return entryTemplate }

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func substituteText(n *html.Node, placeholder, value string) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			c.Data = strings.ReplaceAll(c.Data, placeholder, value)
		}
	}
}
