// Package httpserver runs the development server that serves the staged demos.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	derrors "git.home.luguber.info/inful/demostage/internal/errors"
	"git.home.luguber.info/inful/demostage/internal/logfields"
	smw "git.home.luguber.info/inful/demostage/internal/server/middleware"
)

// Options configures the dev server.
type Options struct {
	Host  string
	Port  int // 0 binds an ephemeral port
	Root  string
	HTTPS bool

	// Optional: live reload support. Nil disables /livereload and script injection.
	LiveReloadHub *LiveReloadHub

	// Optional: served at /metrics.
	MetricsHandler http.Handler

	// Optional: when set, "/" redirects to this demo's page.
	DefaultDemo string
}

// Server serves the scratch workspace over HTTP or HTTPS.
type Server struct {
	opts   Options
	srv    *http.Server
	mchain func(http.Handler) http.Handler

	mu     sync.Mutex
	ln     net.Listener
	scheme string
	done   chan struct{}
}

// New constructs a dev server; nothing is bound until Start.
func New(opts Options) *Server {
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	scheme := "http"
	if opts.HTTPS {
		scheme = "https"
	}
	return &Server{
		opts:   opts,
		scheme: scheme,
		mchain: smw.Chain(slog.Default()),
	}
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var root http.Handler = http.FileServer(http.Dir(s.opts.Root))
	root = noCache(root)
	if s.opts.LiveReloadHub != nil {
		root = injectLiveReloadScript(root)
		mux.Handle("/livereload", s.opts.LiveReloadHub)
		mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			if _, err := w.Write(LiveReloadScript()); err != nil {
				slog.Error("failed to write livereload script", logfields.Error(err))
			}
		})
	}
	if s.opts.MetricsHandler != nil {
		mux.Handle("/metrics", s.opts.MetricsHandler)
	}
	if s.opts.DefaultDemo != "" {
		root = redirectRoot("/"+s.opts.DefaultDemo+"/", root)
	}
	mux.Handle("/", s.mchain(root))
	return mux
}

// Start binds the listener and serves in the background. The port is known
// as soon as Start returns, so callers can open browsers right after.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return errors.New("server already started")
	}

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return derrors.ServerFailed(addr, err)
	}

	// SSE connections are long-lived, so there is no write timeout.
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if s.opts.HTTPS {
		tlsCfg, err := selfSignedConfig(s.opts.Host)
		if err != nil {
			_ = ln.Close()
			return derrors.ServerFailed(addr, err)
		}
		s.srv.TLSConfig = tlsCfg
	}
	s.ln = ln
	s.done = make(chan struct{})

	go func(srv *http.Server, ln net.Listener, done chan struct{}) {
		defer close(done)
		var err error
		if s.opts.HTTPS {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("dev server error", logfields.Error(err))
		}
	}(s.srv, ln, s.done)

	slog.Info("Dev server started",
		logfields.URL(s.URL("/")),
		logfields.Port(s.Port()),
		slog.Bool("https", s.opts.HTTPS),
		slog.Bool("live_reload", s.opts.LiveReloadHub != nil))
	return nil
}

// Port returns the bound port, or 0 before Start.
func (s *Server) Port() int {
	if s.ln == nil {
		return 0
	}
	if tcp, ok := s.ln.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// URL returns the absolute URL for path on this server.
func (s *Server) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", s.scheme, net.JoinHostPort(s.opts.Host, strconv.Itoa(s.Port())), path)
}

// Stop gracefully shuts the server down and closes live reload clients.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if s.opts.LiveReloadHub != nil {
		s.opts.LiveReloadHub.Shutdown()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("dev server shutdown: %w", err)
	}
	<-done
	slog.Info("Dev server stopped")
	return nil
}

func redirectRoot(target string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// noCache keeps browsers from holding on to stale bundles between rebuilds.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
