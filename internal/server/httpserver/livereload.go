package httpserver

import (
	"bufio"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"

	"git.home.luguber.info/inful/demostage/internal/metrics"
)

// LiveReloadHub manages SSE clients for hash-change broadcasts.
type LiveReloadHub struct {
	mu       sync.RWMutex
	nextID   int
	clients  map[int]*lrClient
	recorder metrics.Recorder
	closed   bool
	lastHash string
}

type lrClient struct {
	id   int
	ch   chan string
	done chan struct{}
}

// NewLiveReloadHub creates a hub. A nil recorder disables metrics.
func NewLiveReloadHub(rec metrics.Recorder) *LiveReloadHub {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &LiveReloadHub{clients: map[int]*lrClient{}, recorder: rec}
}

// ServeHTTP implements the SSE endpoint at /livereload.
func (h *LiveReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client := &lrClient{ch: make(chan string, 8), done: make(chan struct{})}
	h.mu.Lock()
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	current := h.lastHash
	h.mu.Unlock()

	bw := bufio.NewWriter(w)
	send := func(chunk string) bool {
		if _, err := bw.WriteString(chunk); err != nil {
			slog.Debug("livereload write", "error", err)
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first := ": connected\n\n"
	if current != "" {
		first += hashEvent(current)
	}
	if !send(first) {
		h.removeClient(client.id)
		return
	}

	hb := time.NewTicker(30 * time.Second)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.removeClient(client.id)
			return
		case <-client.done:
			return
		case <-hb.C:
			send(": ping\n\n")
		case hash := <-client.ch:
			send(hashEvent(hash))
		}
	}
}

func hashEvent(hash string) string {
	return "data: {\"hash\":\"" + hash + "\"}\n\n"
}

// Clients returns the number of connected clients.
func (h *LiveReloadHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *LiveReloadHub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// Broadcast sends a new hash to all clients. Empty and repeated hashes are
// ignored; clients whose buffers are full are dropped.
func (h *LiveReloadHub) Broadcast(hash string) {
	h.mu.Lock()
	if h.closed || hash == "" || hash == h.lastHash {
		h.mu.Unlock()
		return
	}
	h.lastHash = hash
	snapshot := make([]*lrClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- hash:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.recorder.IncLiveReload()
	slog.Debug("livereload broadcast", "hash", hash, "clients", len(snapshot), "dropped", dropped)
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *LiveReloadHub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*lrClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
}

const liveReloadScript = `(() => {
  if (window.__DEMOSTAGE_LR__) return;
  window.__DEMOSTAGE_LR__ = true;
  function connect() {
    const es = new EventSource('/livereload');
    let first = true;
    let current = null;
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (first) { current = p.hash; first = false; return; }
        if (p.hash && p.hash !== current) {
          console.log('[demostage] change detected, reloading');
          location.reload();
        }
      } catch (_) {}
    };
    es.onerror = () => {
      console.warn('[demostage] livereload error - retrying');
      es.close();
      setTimeout(connect, 2000);
    };
  }
  connect();
})();
`

var (
	clientScriptOnce sync.Once
	clientScript     []byte
)

// LiveReloadScript returns the minified browser client served at /livereload.js.
func LiveReloadScript() []byte {
	clientScriptOnce.Do(func() {
		m := minify.New()
		m.AddFunc("application/javascript", js.Minify)
		out, err := m.Bytes("application/javascript", []byte(liveReloadScript))
		if err != nil {
			slog.Warn("livereload: minify failed, using original", "error", err)
			out = []byte(liveReloadScript)
		}
		clientScript = out
	})
	return clientScript
}
