package nowplaying

import (
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/lxzan/gws"
)

// Hub pushes snapshots to WebSocket viewers.
type Hub struct {
	upgrader *gws.Upgrader
	current  func() []byte
	logger   *log.Logger

	mu    sync.Mutex
	conns map[*gws.Conn]struct{}
}

// NewHub creates a hub that greets every new connection with current().
func NewHub(current func() []byte, logger *log.Logger) *Hub {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	h := &Hub{
		current: current,
		logger:  shared.WithLogger(logger, "component", "ws"),
		conns:   make(map[*gws.Conn]struct{}),
	}
	h.upgrader = gws.NewUpgrader(h, &gws.ServerOption{})
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	go socket.ReadLoop()
}

// Broadcast sends payload to every open connection without waiting for slow readers.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.conns) == 0 {
		return
	}
	b := gws.NewBroadcaster(gws.OpcodeText, payload)
	defer b.Close()
	for conn := range h.conns {
		_ = b.Broadcast(conn)
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close sends a going-away frame to every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*gws.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	// Closing runs OnClose, which takes the lock.
	for _, conn := range conns {
		conn.WriteClose(1001, []byte("server shutting down"))
	}
}

func (h *Hub) OnOpen(conn *gws.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	if err := conn.WriteMessage(gws.OpcodeText, h.current()); err != nil {
		h.logger.Debug("failed to greet viewer", "error", err)
	}
	h.logger.Debug("viewer connected", "remote", conn.RemoteAddr())
}

func (h *Hub) OnClose(conn *gws.Conn, err error) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	h.logger.Debug("viewer disconnected", "remote", conn.RemoteAddr(), "error", err)
}

func (h *Hub) OnPing(conn *gws.Conn, payload []byte) {
	_ = conn.WritePong(payload)
}

func (h *Hub) OnPong(conn *gws.Conn, payload []byte) {}

// OnMessage discards anything viewers send.
func (h *Hub) OnMessage(conn *gws.Conn, message *gws.Message) {
	message.Close()
}
