package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger { return log.New(io.Discard) }

func TestCallbackHandler(t *testing.T) {
	t.Run("emits code", func(t *testing.T) {
		h := NewCallbackHandler("", "state-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback?code=abc&state=state-1", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		res := <-h.Result()
		if res.Error() != nil {
			t.Fatalf("unexpected error %v", res.Error())
		}
		if res.Code != "abc" {
			t.Errorf("expected code abc, got %q", res.Code)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "expected")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback?code=abc&state=other", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		res := <-h.Result()
		if res.Error() == nil || !strings.Contains(res.Error().Error(), "state") {
			t.Errorf("expected state error, got %v", res.Error())
		}
	})

	t.Run("provider error", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback?error=access_denied&state=s", nil))

		res := <-h.Result()
		if res.Error() == nil || !strings.Contains(res.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", res.Error())
		}
	})

	t.Run("missing code", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback?state=s", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := <-h.Result(); res.Error() == nil {
			t.Error("expected error for missing code")
		}
	})

	t.Run("only one result", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/callback?code=first&state=s", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback?code=second&state=s", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replayed callback, got %d", rec.Code)
		}

		res, ok := <-h.Result()
		if !ok || res.Code != "first" {
			t.Errorf("expected first code, got %+v", res)
		}
		if _, ok := <-h.Result(); ok {
			t.Error("expected channel to be closed after one result")
		}
	})

	t.Run("GET serves relay page", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=x&state=s", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `method: "POST"`) {
			t.Error("expected page to relay by POST")
		}
		select {
		case <-h.Result():
			t.Error("GET must not produce a result")
		default:
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/callback", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware order", func(t *testing.T) {
		r := NewBasicRouter()
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, req)
				})
			}
		}
		r.Use(mw("first"), mw("second"))
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "pong")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		if rec.Body.String() != "pong" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})

	t.Run("method filter", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow != "GET, HEAD" {
			t.Errorf("expected Allow 'GET, HEAD', got %q", allow)
		}
	})

	t.Run("head falls back to get", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		r.Handle(http.MethodPost, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))

		for method, want := range map[string]int{http.MethodHead: http.StatusNoContent, http.MethodPost: http.StatusAccepted} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(method, "/ping", nil))
			if rec.Code != want {
				t.Errorf("%s: expected %d, got %d", method, want, rec.Code)
			}
		}
	})

	t.Run("mount", func(t *testing.T) {
		fallback := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Endpoint not found", http.StatusNotFound)
		})
		r := Mount(NewCallbackHandler("/callback", "s"), fallback, testLogger(), true)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected callback page, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
		if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Endpoint not found") {
			t.Errorf("unexpected fallback response %d %q", rec.Code, rec.Body.String())
		}

		if routes := r.Routes(); len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("routes", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodPost, "/b", http.NotFoundHandler())
		r.Handle(http.MethodGet, "/b", http.NotFoundHandler())
		r.Handle(http.MethodGet, "/a", http.NotFoundHandler())

		got := r.Routes()
		if len(got) != 2 || got[0] != "/a" || got[1] != "/b" {
			t.Errorf("unexpected routes %v", got)
		}
	})

	t.Run("not found fallback", func(t *testing.T) {
		r := NewBasicRouter()
		r.NotFound(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Endpoint not found", http.StatusNotFound)
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
		if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Endpoint not found") {
			t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("recover middleware", func(t *testing.T) {
		r := NewBasicRouter()
		r.Use(Recover(testLogger()), LogRequests(testLogger()))
		r.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestListener(t *testing.T) {
	t.Run("start and stop", func(t *testing.T) {
		l := NewListener("127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "ok")
		}), testLogger())

		if err := l.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		resp, err := http.Get("http://" + l.Addr() + "/")
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != "ok" {
			t.Errorf("unexpected body %q", body)
		}

		addr := l.Addr()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.Stop(ctx); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if err := l.Stop(ctx); err != nil {
			t.Errorf("second Stop() error = %v", err)
		}

		if conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
			conn.Close()
			t.Error("expected listener to be closed")
		}
	})

	t.Run("bind failure is reported", func(t *testing.T) {
		busy, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer busy.Close()

		l := NewListener(busy.Addr().String(), http.NotFoundHandler(), testLogger())
		if err := l.Start(); err == nil {
			l.Stop(context.Background())
			t.Fatal("expected bind failure")
		}
	})

	t.Run("double start", func(t *testing.T) {
		l := NewListener("127.0.0.1:0", http.NotFoundHandler(), testLogger())
		if err := l.Start(); err != nil {
			t.Fatal(err)
		}
		defer l.Stop(context.Background())

		if err := l.Start(); err == nil {
			t.Error("expected error on second start")
		}
	})
}
