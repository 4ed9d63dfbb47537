package server

import (
	"net/http"
	"slices"
	"sort"
	"strings"
)

// BasicRouter is a small HTTP router implementing the [Router] interface on top of [http.ServeMux].
//
// Paths registered through [BasicRouter.Handle] dispatch on method; GET handlers also answer HEAD and
// other methods get 405 with an Allow header.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	methods     map[string]methodSet
	paths       []string
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:     http.NewServeMux(),
		methods: map[string]methodSet{},
	}
}

// Use appends middleware; it only wraps handlers registered afterwards.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method on path, wrapped with the current middleware.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	set, ok := r.methods[path]
	if !ok {
		set = methodSet{}
		r.methods[path] = set
		r.mux.Handle(path, set)
		r.paths = append(r.paths, path)
	}
	set[strings.ToUpper(method)] = r.Apply(handler)
}

// Handler registers every route returned by [Handler.Routes] for all methods.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
		r.paths = append(r.paths, route)
	}
}

// NotFound registers h for every path no other route matches.
func (r *BasicRouter) NotFound(h http.Handler) {
	r.mux.Handle("/", r.Apply(h))
}

// Routes lists the registered paths, sorted.
func (r *BasicRouter) Routes() []string {
	routes := slices.Clone(r.paths)
	sort.Strings(routes)
	return slices.Compact(routes)
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware; the first added runs outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}

type methodSet map[string]http.Handler

func (m methodSet) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h, ok := m[req.Method]
	if !ok && req.Method == http.MethodHead {
		h, ok = m[http.MethodGet]
	}
	if !ok {
		w.Header().Set("Allow", m.allow())
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.ServeHTTP(w, req)
}

func (m methodSet) allow() string {
	methods := make([]string, 0, len(m)+1)
	for method := range m {
		methods = append(methods, method)
	}
	if _, ok := m[http.MethodGet]; ok {
		if _, ok := m[http.MethodHead]; !ok {
			methods = append(methods, http.MethodHead)
		}
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
