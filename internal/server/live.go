package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard front end may be served from another origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub fans cycle updates out to connected websocket clients. A client whose
// buffer is full is disconnected rather than allowed to stall the others.
type hub struct {
	mu      sync.Mutex
	clients map[string]*liveClient
	logger  *zap.Logger
}

type liveClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		clients: make(map[string]*liveClient),
		logger:  logger,
	}
}

func (h *hub) add(conn *websocket.Conn) *liveClient {
	c := &liveClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("live client connected", zap.String("client", c.id), zap.Int("clients", n))
	return c
}

// remove is safe to call more than once per client.
func (h *hub) remove(c *liveClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("live client disconnected", zap.String("client", c.id), zap.Int("clients", n))
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to encode live message", zap.Error(err))
		return
	}

	var slow []*liveClient
	h.mu.Lock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow live client", zap.String("client", c.id))
		h.remove(c)
	}
}

// unicast queues msg for a single client, dropping it if the buffer is full.
func (h *hub) unicast(c *liveClient, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to encode live message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*liveClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

// writePump owns all writes to the connection.
func (h *hub) writePump(c *liveClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("live write failed", zap.String("client", c.id), zap.Error(err))
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump discards inbound messages and notices when the peer goes away.
func (h *hub) readPump(c *liveClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// handleLive upgrades the request and sends the current series right away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := s.hub.add(conn)
	sp := buildSeriesPayload(s.series, 0)
	s.hub.unicast(c, liveMessage{Type: "snapshot", At: s.now(), Series: &sp})

	go s.hub.writePump(c)
	go s.hub.readPump(c)
}
