package bundler

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"

	derrors "git.home.luguber.info/inful/demostage/internal/errors"
	"git.home.luguber.info/inful/demostage/internal/logfields"
)

const (
	mimeHTML = "text/html"
	mimeCSS  = "text/css"
)

func newMinifier() *minify.M {
	m := minify.New()
	m.Add(mimeHTML, &html.Minifier{KeepDocumentTags: true, KeepEndTags: true, KeepQuotes: true})
	m.AddFunc(mimeCSS, css.Minify)
	return m
}

// Publish copies the static assets a production bundle needs next to it:
// the demo's HTML shell and, when present, its stylesheet. With minify set
// both are minified; a file the minifier rejects is copied unchanged.
func Publish(stagedDemoDir, outDemoDir, shell, stylesheet string, minify bool) error {
	if err := os.MkdirAll(outDemoDir, 0o750); err != nil {
		return derrors.WorkspaceError("publish", err).WithContext("path", outDemoDir)
	}

	m := newMinifier()
	assets := []struct{ name, mime string }{{shell, mimeHTML}, {stylesheet, mimeCSS}}
	for _, a := range assets {
		if a.name == "" {
			continue
		}
		src := filepath.Join(stagedDemoDir, a.name)
		data, err := os.ReadFile(src)
		if errors.Is(err, fs.ErrNotExist) && a.mime == mimeCSS {
			continue
		}
		if err != nil {
			return derrors.WorkspaceError("publish", err).WithContext("path", src)
		}
		if minify {
			out, err := m.Bytes(a.mime, data)
			if err != nil {
				slog.Warn("Minify failed; publishing original", logfields.Path(src), logfields.Error(err))
			} else {
				data = out
			}
		}
		dst := filepath.Join(outDemoDir, a.name)
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return derrors.WorkspaceError("publish", fmt.Errorf("write %s: %w", dst, err))
		}
	}
	slog.Debug("Published demo assets", logfields.Dest(outDemoDir), slog.Bool("minify", minify))
	return nil
}
