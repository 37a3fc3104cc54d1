package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"arduino-radar.klederson.com/internal/config"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is one websocket frame.
type Message struct {
	Type string      `json:"type"` // "reading" or "status"
	Data interface{} `json:"data"`
}

// hub fans session events out to websocket clients.
// A client that cannot take a frame within writeWait is dropped.
type hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]struct{}
	log       logrus.FieldLogger
	writeWait time.Duration
}

func newHub(log logrus.FieldLogger) *hub {
	return &hub{
		clients:   make(map[*websocket.Conn]struct{}),
		log:       log,
		writeWait: config.WSWriteTimeout,
	}
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request, hello Message) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade")
		return
	}
	// The hello frame goes out before the client is visible to broadcasts.
	if err := h.write(conn, hello); err != nil {
		_ = conn.Close()
		return
	}
	h.add(conn)
	go h.readPump(conn)
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.log.WithError(err).Error("encode ws message")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.WithError(err).Debug("dropping ws client")
			c.Close()
			delete(h.clients, c)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(h.writeWait))
		c.Close()
		delete(h.clients, c)
	}
}

// readPump drains client frames so control messages are handled, and drops
// the client once the connection fails.
func (h *hub) readPump(c *websocket.Conn) {
	defer func() {
		h.remove(c)
		_ = c.Close()
	}()
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) write(c *websocket.Conn, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_ = c.SetWriteDeadline(time.Now().Add(h.writeWait))
	return c.WriteMessage(websocket.TextMessage, data)
}
