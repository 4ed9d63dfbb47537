package nowplaying

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/models"
	tu "github.com/desertthunder/chatdj/internal/testing"
	"github.com/lxzan/gws"
)

var playing = models.NowPlayingSnapshot{Title: "Song A", Artist: "Band One", CoverURL: "https://img/a", IsPlaying: true}

func newTestPublisher(t *testing.T) (*Publisher, string, string) {
	t.Helper()
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "nowplaying.json")
	textPath := filepath.Join(dir, "nowplaying.txt")

	p, err := NewPublisher(jsonPath, textPath, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	return p, jsonPath, textPath
}

func TestPublisher(t *testing.T) {
	t.Run("starts empty", func(t *testing.T) {
		p, jsonPath, textPath := newTestPublisher(t)

		if got := tu.MustReadFile(t, jsonPath); got != "{}" {
			t.Errorf("expected {} in json file, got %q", got)
		}
		if got := tu.MustReadFile(t, textPath); got != "" {
			t.Errorf("expected empty text file, got %q", got)
		}
		if string(p.JSON()) != "{}" {
			t.Errorf("expected {} payload, got %s", p.JSON())
		}
	})

	t.Run("update writes both files", func(t *testing.T) {
		p, jsonPath, textPath := newTestPublisher(t)

		if err := p.Update(playing); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, jsonPath)), &got); err != nil {
			t.Fatal(err)
		}
		if got["title"] != "Song A" || got["artist"] != "Band One" || got["coverUrl"] != "https://img/a" || got["isPlaying"] != true {
			t.Errorf("unexpected json %v", got)
		}
		if text := tu.MustReadFile(t, textPath); text != "Song A - Band One" {
			t.Errorf("unexpected text %q", text)
		}
		if p.Snapshot() != playing {
			t.Errorf("unexpected snapshot %+v", p.Snapshot())
		}
	})

	t.Run("clear resets", func(t *testing.T) {
		p, jsonPath, textPath := newTestPublisher(t)
		p.Update(playing)

		if err := p.Clear(); err != nil {
			t.Fatal(err)
		}
		if tu.MustReadFile(t, jsonPath) != "{}" || tu.MustReadFile(t, textPath) != "" {
			t.Error("expected empty files after Clear")
		}
		if !p.Snapshot().IsZero() {
			t.Error("expected zero snapshot")
		}
	})

	t.Run("subscribers receive every change", func(t *testing.T) {
		p, _, _ := newTestPublisher(t)

		var got []string
		unsubscribe := p.Subscribe(func(payload []byte) { got = append(got, string(payload)) })
		p.Update(playing)
		p.Clear()
		unsubscribe()
		p.Update(playing)

		if len(got) != 2 || got[1] != "{}" || !strings.Contains(got[0], `"title": "Song A"`) {
			t.Errorf("unexpected payloads %q", got)
		}
	})

	t.Run("write failure is reported and snapshot kept", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "blocker")
		os.WriteFile(blocker, []byte("x"), 0o644)

		p, err := NewPublisher(filepath.Join(dir, "np.json"), filepath.Join(dir, "np.txt"), nil)
		if err != nil {
			t.Fatal(err)
		}
		p.textPath = filepath.Join(blocker, "np.txt")

		if err := p.Update(playing); err == nil {
			t.Error("expected write error")
		}
		if p.Snapshot() != playing {
			t.Error("expected in-memory snapshot to be replaced")
		}
	})
}

func newTestServer(t *testing.T, htmlPath string) (*Publisher, *httptest.Server) {
	t.Helper()
	p, _, _ := newTestPublisher(t)
	hub := NewHub(p.JSON, log.New(io.Discard))
	p.Subscribe(hub.Broadcast)

	h := NewHandler(HandlerOptions{
		Publisher: p,
		Hub:       hub,
		HTMLPath:  htmlPath,
		Metrics:   http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "# metrics") }),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return p, srv
}

func get(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func TestHandler(t *testing.T) {
	t.Run("api returns {} when idle", func(t *testing.T) {
		_, srv := newTestServer(t, "")

		for _, path := range []string{"/nowplaying/api/", "/nowplaying/api"} {
			status, ct, body := get(t, srv.URL+path)
			if status != http.StatusOK || ct != "application/json" || body != "{}" {
				t.Errorf("%s: got %d %s %q", path, status, ct, body)
			}
		}
	})

	t.Run("api returns the snapshot", func(t *testing.T) {
		p, srv := newTestServer(t, "")
		p.Update(playing)

		_, _, body := get(t, srv.URL+"/nowplaying/api/")
		var got models.NowPlayingSnapshot
		if err := json.Unmarshal([]byte(body), &got); err != nil {
			t.Fatal(err)
		}
		if got != playing {
			t.Errorf("expected %+v, got %+v", playing, got)
		}
	})

	t.Run("viewer page", func(t *testing.T) {
		_, srv := newTestServer(t, "")

		for _, path := range []string{"/nowplaying/", "/nowplaying"} {
			status, ct, body := get(t, srv.URL+path)
			if status != http.StatusOK || !strings.HasPrefix(ct, "text/html") || !strings.Contains(body, "/nowplaying/ws") {
				t.Errorf("%s: got %d %s", path, status, ct)
			}
		}
	})

	t.Run("configured viewer page", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "overlay.html")
		os.WriteFile(path, []byte("<p>custom</p>"), 0o644)
		_, srv := newTestServer(t, path)

		if _, _, body := get(t, srv.URL+"/nowplaying/"); body != "<p>custom</p>" {
			t.Errorf("expected custom page, got %q", body)
		}
	})

	t.Run("missing configured page falls back", func(t *testing.T) {
		_, srv := newTestServer(t, filepath.Join(t.TempDir(), "missing.html"))

		if status, _, body := get(t, srv.URL+"/nowplaying/"); status != 200 || !strings.Contains(body, "Now Playing") {
			t.Errorf("expected built-in page, got %d", status)
		}
	})

	t.Run("unknown paths", func(t *testing.T) {
		_, srv := newTestServer(t, "")

		for _, path := range []string{"/", "/nowplaying/other", "/favicon.ico"} {
			status, ct, body := get(t, srv.URL+path)
			if status != http.StatusNotFound || !strings.HasPrefix(ct, "text/plain") || body != "Endpoint not found" {
				t.Errorf("%s: got %d %s %q", path, status, ct, body)
			}
		}
	})

	t.Run("metrics", func(t *testing.T) {
		_, srv := newTestServer(t, "")
		if _, _, body := get(t, srv.URL+"/metrics"); body != "# metrics" {
			t.Errorf("expected metrics handler, got %q", body)
		}
	})

	t.Run("writes are rejected", func(t *testing.T) {
		_, srv := newTestServer(t, "")
		resp, err := http.Post(srv.URL+"/nowplaying/api/", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})
}

type wsRecorder struct {
	gws.BuiltinEventHandler
	messages chan string
}

func (r *wsRecorder) OnMessage(conn *gws.Conn, message *gws.Message) {
	r.messages <- message.Data.String()
	message.Close()
}

func TestHub(t *testing.T) {
	p, srv := newTestServer(t, "")
	p.Update(playing)

	rec := &wsRecorder{messages: make(chan string, 4)}
	conn, _, err := gws.NewClient(rec, &gws.ClientOption{
		Addr: "ws" + strings.TrimPrefix(srv.URL, "http") + "/nowplaying/ws",
	})
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.WriteClose(1000, nil)
	go conn.ReadLoop()

	next := func() models.NowPlayingSnapshot {
		t.Helper()
		select {
		case msg := <-rec.messages:
			var s models.NowPlayingSnapshot
			if err := json.Unmarshal([]byte(msg), &s); err != nil {
				t.Fatalf("bad payload %q: %v", msg, err)
			}
			return s
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a snapshot")
			return models.NowPlayingSnapshot{}
		}
	}

	if got := next(); got != playing {
		t.Errorf("expected current snapshot first, got %+v", got)
	}

	p.Clear()
	if got := next(); !got.IsZero() {
		t.Errorf("expected cleared snapshot, got %+v", got)
	}

	paused := playing
	paused.IsPlaying = false
	p.Update(paused)
	if got := next(); got != paused {
		t.Errorf("expected paused snapshot, got %+v", got)
	}
}
