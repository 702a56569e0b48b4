package httpserver

import (
	"bytes"
	"net/http"
	"strings"
)

const liveReloadTag = `<script async src="/livereload.js"></script>`

// injectLiveReloadScript is a middleware that injects the LiveReload client script
// into HTML responses before </body>.
func injectLiveReloadScript(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		isHTMLPage := path == "/" || path == "" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, ".html")
		if !isHTMLPage {
			next.ServeHTTP(w, r)
			return
		}

		injector := newLiveReloadInjector(w)
		next.ServeHTTP(injector, r)
		injector.finalize()
	})
}

// liveReloadInjector buffers HTML responses up to maxSize so the client
// script can be inserted; anything else passes straight through.
type liveReloadInjector struct {
	http.ResponseWriter
	statusCode    int
	buffer        []byte
	headerWritten bool
	passthrough   bool
	maxSize       int
}

func newLiveReloadInjector(w http.ResponseWriter) *liveReloadInjector {
	return &liveReloadInjector{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		maxSize:        512 * 1024,
	}
}

func (l *liveReloadInjector) WriteHeader(code int) {
	l.statusCode = code
	if l.passthrough {
		l.ResponseWriter.WriteHeader(code)
		l.headerWritten = true
	}
}

func (l *liveReloadInjector) Write(data []byte) (int, error) {
	if !l.headerWritten && !l.passthrough && l.buffer == nil {
		contentType := l.ResponseWriter.Header().Get("Content-Type")
		isHTML := contentType == "" || strings.Contains(contentType, "text/html")
		if !isHTML || l.statusCode != http.StatusOK {
			l.startPassthrough()
			return l.ResponseWriter.Write(data)
		}
		l.buffer = make([]byte, 0, 16*1024)
	}

	if l.passthrough {
		return l.ResponseWriter.Write(data)
	}

	if len(l.buffer)+len(data) > l.maxSize {
		l.startPassthrough()
		if len(l.buffer) > 0 {
			if _, err := l.ResponseWriter.Write(l.buffer); err != nil {
				return 0, err
			}
		}
		return l.ResponseWriter.Write(data)
	}

	l.buffer = append(l.buffer, data...)
	return len(data), nil
}

func (l *liveReloadInjector) startPassthrough() {
	l.passthrough = true
	l.ResponseWriter.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	l.headerWritten = true
}

// finalize must be called after the handler completes to inject the script.
func (l *liveReloadInjector) finalize() {
	if l.passthrough || len(l.buffer) == 0 {
		if !l.headerWritten {
			l.ResponseWriter.WriteHeader(l.statusCode)
		}
		return
	}

	body := l.buffer
	if i := bytes.LastIndex(body, []byte("</body>")); i >= 0 {
		out := make([]byte, 0, len(body)+len(liveReloadTag))
		out = append(out, body[:i]...)
		out = append(out, liveReloadTag...)
		out = append(out, body[i:]...)
		body = out
	}

	l.ResponseWriter.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	_, _ = l.ResponseWriter.Write(body)
}
