package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"
)

// CallbackResult contains the outcome of an authorization redirect.
type CallbackResult struct {
	Code string
	err  error
}

func (o *CallbackResult) Error() error {
	return o.err
}

// CallbackHandler handles OAuth2 authorization code callbacks.
// Implements the Handler interface for registration with a Router.
type CallbackHandler struct {
	path        string
	state       string
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler on path expecting the given state token.
// The state token should be cryptographically random for CSRF protection.
func NewCallbackHandler(path, state string) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{
		path:       path,
		state:      state,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP serves the relay page on GET and processes the callback on POST.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.servePage(w)
	case http.MethodPost:
		h.handleCallback(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CallbackHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.Send(CallbackResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	if errParam := q.Get("error"); errParam != "" {
		h.Send(CallbackResult{err: fmt.Errorf("authorization denied: %s", errParam)})
		w.WriteHeader(http.StatusOK)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.Send(CallbackResult{err: fmt.Errorf("callback missing code")})
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	h.Send(CallbackResult{Code: code})
	w.WriteHeader(http.StatusOK)
}

// Send sends the callback result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving the callback outcome.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

func (h *CallbackHandler) servePage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	callbackPage.Execute(w, struct{ Path string }{h.path})
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>chatdj authorization</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; }
        .ok { color: #1DB954; }
        .fail { color: #E22134; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 id="title">Connecting to Spotify…</h1>
        <p id="detail">Please wait.</p>
    </div>
    <script>
        const params = new URLSearchParams(window.location.search);
        const title = document.getElementById("title");
        const detail = document.getElementById("detail");
        fetch("{{.Path}}" + window.location.search, { method: "POST" })
            .then((res) => {
                if (res.ok && !params.has("error")) {
                    title.textContent = "✓ Authorization Successful";
                    title.className = "ok";
                    detail.textContent = "You can close this window and return to chatdj.";
                } else {
                    title.textContent = "Authorization Failed";
                    title.className = "fail";
                    detail.textContent = params.get("error") || "Please try again.";
                }
            })
            .catch(() => {
                title.textContent = "Authorization Failed";
                title.className = "fail";
                detail.textContent = "chatdj is no longer listening.";
            });
    </script>
</body>
</html>
`))
