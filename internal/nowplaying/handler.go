package nowplaying

import (
	_ "embed"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/shared"
)

//go:embed viewer.html
var viewerPage []byte

// HandlerOptions configures a [Handler].
type HandlerOptions struct {
	Publisher *Publisher
	Hub       *Hub
	// HTMLPath is an optional viewer page served instead of the built-in one.
	HTMLPath string
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
	Logger  *log.Logger
}

// Handler serves the now-playing endpoints.
type Handler struct {
	publisher *Publisher
	hub       *Hub
	htmlPath  string
	metrics   http.Handler
	logger    *log.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Handler{
		publisher: opts.Publisher,
		hub:       opts.Hub,
		htmlPath:  opts.HTMLPath,
		metrics:   opts.Metrics,
		logger:    shared.WithLogger(opts.Logger, "component", "nowplaying-http"),
	}
}

// Routes lists the paths the handler answers; everything else gets the not-found text.
func (h *Handler) Routes() []string {
	routes := []string{"/nowplaying", "/nowplaying/", "/nowplaying/api", "/nowplaying/api/"}
	if h.hub != nil {
		routes = append(routes, "/nowplaying/ws")
	}
	if h.metrics != nil {
		routes = append(routes, "/metrics")
	}
	return routes
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/nowplaying/api", "/nowplaying/api/":
		if !allowRead(w, r) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Write(h.publisher.JSON())
	case "/nowplaying", "/nowplaying/":
		if !allowRead(w, r) {
			return
		}
		h.servePage(w)
	case "/nowplaying/ws":
		if h.hub == nil {
			notFound(w)
			return
		}
		h.hub.ServeHTTP(w, r)
	case "/metrics":
		if h.metrics == nil {
			notFound(w)
			return
		}
		h.metrics.ServeHTTP(w, r)
	default:
		notFound(w)
	}
}

func (h *Handler) servePage(w http.ResponseWriter) {
	page := viewerPage
	if h.htmlPath != "" {
		data, err := os.ReadFile(h.htmlPath)
		if err != nil {
			h.logger.Warn("viewer page unreadable, serving the built-in page", "path", h.htmlPath, "error", err)
		} else {
			page = data
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Endpoint not found"))
}
