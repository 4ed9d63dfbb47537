// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/chatdj/internal/ui"
)

// Notification is one line captured by [RecordingNotifier].
type Notification struct {
	Message  string
	Severity ui.Severity
}

// RecordingNotifier is a test double for [ui.Notifier]
type RecordingNotifier struct {
	mu    sync.Mutex
	lines []Notification
}

func (n *RecordingNotifier) Notify(message string, severity ui.Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lines = append(n.lines, Notification{Message: message, Severity: severity})
}

// Lines returns a copy of the captured notifications.
func (n *RecordingNotifier) Lines() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.lines...)
}

// Contains reports whether any captured message contains substr.
func (n *RecordingNotifier) Contains(substr string) bool {
	for _, l := range n.Lines() {
		if strings.Contains(l.Message, substr) {
			return true
		}
	}
	return false
}

// ChatMessage is one line captured by [RecordingSender].
type ChatMessage struct {
	Channel string
	Text    string
}

// RecordingSender records outgoing chat messages.
type RecordingSender struct {
	mu       sync.Mutex
	messages []ChatMessage
}

func (s *RecordingSender) Say(channel, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, ChatMessage{Channel: channel, Text: text})
}

// Messages returns a copy of the captured chat messages.
func (s *RecordingSender) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage(nil), s.messages...)
}

// Last returns the most recent message text, or "" when nothing was sent.
func (s *RecordingSender) Last() string {
	msgs := s.Messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

// RouteServer is an [httptest.Server] that dispatches on "METHOD /path" and counts hits per route.
type RouteServer struct {
	*httptest.Server
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

// NewRouteServer starts a server for routes keyed like "GET /v1/tracks/abc".
//
// Unknown routes answer 404. The server is closed when the test ends.
func NewRouteServer(t *testing.T, routes map[string]http.HandlerFunc) *RouteServer {
	t.Helper()
	rs := &RouteServer{routes: routes, hits: map[string]int{}}
	rs.Server = httptest.NewServer(http.HandlerFunc(rs.serve))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *RouteServer) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	rs.mu.Lock()
	h, ok := rs.routes[key]
	rs.hits[key]++
	rs.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"status":404,"message":"no route `+key+`"}}`)
		return
	}
	h(w, r)
}

// Hits returns how many requests matched key.
func (rs *RouteServer) Hits(key string) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.hits[key]
}

// JSON returns a handler answering status with body as application/json.
func JSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
