// Package broadcast delivers outbound engine.Envelope values to connected UI
// clients over WebSocket. Hub implements engine.Publisher.
package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowcore/flowengine/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWaitFactor = 2
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one connected WebSocket session. Outbound frames are queued on
// send and drained by a dedicated writer goroutine so a slow client never
// blocks the Hub's broadcast loop.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub fans out Envelopes to every registered Client, evicting any client
// whose send buffer is full rather than blocking. Grounded on the pack's
// websocket broker/client pattern (abrahamVado-DriftPursuit/go-broker).
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	pingInterval time.Duration
}

// NewHub returns an empty Hub. pingInterval controls keepalive ping cadence;
// zero selects a 30s default.
func NewHub(pingInterval time.Duration) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		clients:      make(map[*Client]bool),
		pingInterval: pingInterval,
	}
}

// ServeWS upgrades r to a WebSocket connection and registers the resulting
// Client under clientID, blocking until the connection closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, clientID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{conn: conn, send: make(chan []byte, 256), id: clientID}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	waitDuration := h.pingInterval * pongWaitFactor
	_ = conn.SetReadDeadline(time.Now().Add(waitDuration))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(waitDuration))
	})

	go h.writePump(client)
	h.readPump(client)
	return nil
}

// readPump discards inbound frames (this transport is outbound-only from the
// engine's perspective; player input arrives through the application's own
// HTTP/event ingestion, not this socket) and deregisters client on any error.
func (h *Hub) readPump(client *Client) {
	defer func() {
		h.deregister(client)
		_ = client.conn.Close()
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) deregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Publish implements engine.Publisher: marshals env and fans it out to every
// connected client, evicting clients whose send buffer is full.
func (h *Hub) Publish(_ context.Context, env engine.Envelope) error {
	msg, err := json.Marshal(wireEnvelope{Type: env.Type, Payload: env.Payload})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
	return nil
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type wireEnvelope struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
