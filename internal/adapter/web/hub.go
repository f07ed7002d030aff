package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"modelchat/internal/domain"
	"modelchat/internal/usecase/chat"
)

const (
	eventSnapshot = "snapshot"
	eventMessage  = "message"

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type event struct {
	Type     string           `json:"type"`
	Message  *domain.Message  `json:"message,omitempty"`
	Messages []domain.Message `json:"messages,omitempty"`
	Status   *chat.Status     `json:"status,omitempty"`
}

type snapshotSource interface {
	Messages() []domain.Message
	Status() chat.Status
}

// Hub pushes conversation updates to every connected page.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	source snapshotSource
	closed bool
}

func NewHub(source snapshotSource) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]struct{}),
		source: source,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	if !h.register(conn) {
		return
	}

	// Keep reading so close frames are processed; clients send nothing else.
	go func() {
		defer h.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// register adds conn and sends it the current conversation under the same
// lock broadcasts use, so no message is missed between snapshot and stream.
// A message may arrive twice; the page drops repeats by id.
func (h *Hub) register(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		conn.Close()
		return false
	}

	status := h.source.Status()
	snapshot := event{Type: eventSnapshot, Messages: h.source.Messages(), Status: &status}
	if err := writeEvent(conn, snapshot); err != nil {
		slog.Warn("websocket snapshot failed", "error", err)
		conn.Close()
		return false
	}

	h.conns[conn] = struct{}{}
	slog.Debug("websocket connected", "total", len(h.conns))
	return true
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.conns, conn)
	slog.Debug("websocket disconnected", "total", len(h.conns))
}

func (h *Hub) Broadcast(ev event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("websocket event encode failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("websocket write failed, dropping connection", "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.conns, conn)
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func writeEvent(conn *websocket.Conn, ev event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
