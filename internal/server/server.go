package server

import (
	"net/http"

	"github.com/charmbracelet/log"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that owns its routes (OAuth callback, now playing).
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers behind a middleware stack.
type Router interface {
	http.Handler
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	NotFound(h http.Handler)
	Routes() []string
}

var _ Router = (*BasicRouter)(nil)

// Mount builds a router serving handler behind panic recovery and, when verbose, request logging.
// A nil fallback leaves unmatched paths to [http.ServeMux]'s 404.
func Mount(handler Handler, fallback http.Handler, logger *log.Logger, verbose bool) Router {
	r := NewBasicRouter()
	r.Use(Recover(logger))
	if verbose {
		r.Use(LogRequests(logger))
	}
	r.Handler(handler)
	if fallback != nil {
		r.NotFound(fallback)
	}
	return r
}
