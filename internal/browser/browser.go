// Package browser opens demo pages in a web browser without waiting for it.
package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"git.home.luguber.info/inful/demostage/internal/demos"
	"git.home.luguber.info/inful/demostage/internal/logfields"
)

// Opener opens a URL. Implementations must not block on the browser.
type Opener interface {
	Open(url string) error
}

// System opens URLs with the platform launcher, or with App when set.
type System struct {
	App string // e.g. "google chrome"; empty uses the system default browser

	goos  string
	start func(*exec.Cmd) error
}

// NewSystem returns an opener for the current platform.
func NewSystem(app string) *System {
	return &System{App: app, goos: runtime.GOOS, start: startDetached}
}

func (s *System) Open(url string) error {
	name, args, err := Command(s.goos, s.App, url)
	if err != nil {
		return err
	}
	if err := s.start(exec.Command(name, args...)); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	slog.Info("Opened browser", logfields.URL(url), slog.String("app", s.App))
	return nil
}

// startDetached starts cmd and reaps it in the background.
func startDetached(cmd *exec.Cmd) error {
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Command returns the launcher invocation for goos. app selects a specific
// browser application and may be empty.
func Command(goos, app, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		if app != "" {
			return "open", []string{"-a", app, url}, nil
		}
		return "open", []string{url}, nil
	case "windows":
		if app != "" {
			return "cmd", []string{"/c", "start", "", app, url}, nil
		}
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		if app != "" {
			return linuxBinary(app), []string{url}, nil
		}
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, errors.New("unsupported platform")
	}
}

// linuxBinary maps a macOS style application name to its usual executable.
func linuxBinary(app string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(app)), " ", "-")
}

// URLs returns the pages to open for the active demos. A single demo opens
// the server root (which redirects to it); several open one page each.
func URLs(base string, list []demos.Demo) []string {
	base = strings.TrimSuffix(base, "/")
	if len(list) == 1 {
		return []string{base + "/"}
	}
	urls := make([]string, 0, len(list))
	for _, d := range list {
		urls = append(urls, base+"/"+d.Name+"/index.html")
	}
	return urls
}

// Recorder is an Opener that remembers URLs instead of opening them.
type Recorder struct {
	mu   sync.Mutex
	urls []string
	Err  error
}

func (r *Recorder) Open(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.urls = append(r.urls, url)
	return nil
}

// URLs returns the opened URLs in order.
func (r *Recorder) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}
