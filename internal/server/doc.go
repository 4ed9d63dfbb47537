// Package server provides HTTP routing, middleware, a start/stop listener and the OAuth callback handler.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [Mount] builds the router both local
// servers use: panic recovery, optional request logging, one [Handler] and an optional fallback.
//
// [Middleware] runs in the order it was added, the first added outermost.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with per-path method dispatch.
//
// # OAuth Callback Handler
//
// [CallbackHandler] receives the Spotify authorization redirect. GET serves a small page that relays the
// query string back by POST, and the POST carries either code and state or error and state.
//
// The handler validates the state parameter (CSRF protection) and emits exactly one [CallbackResult].
// Later callbacks are rejected so a replayed redirect cannot overwrite the first outcome.
//
// # Listener
//
// [Listener] binds synchronously so callers learn about a busy port immediately, serves in the background
// and shuts down synchronously. Both the callback server and the now playing server use it.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
