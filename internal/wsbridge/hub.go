// Package wsbridge mirrors a scene to browser subscribers over websockets
// and exposes start/stop controls over HTTP.
package wsbridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/scene"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 256
)

// Message is one websocket frame sent to subscribers. A new subscriber first
// receives a snapshot; create/remove/set ops follow. Ops may repeat state
// already in the snapshot and are idempotent.
type Message struct {
	Type   string     `json:"type"`
	Node   uint64     `json:"node,omitempty"`
	Parent uint64     `json:"parent,omitempty"`
	Props  jsonProps  `json:"props,omitempty"`
	Nodes  []jsonNode `json:"nodes,omitempty"`
}

type jsonNode struct {
	ID     uint64    `json:"id"`
	Parent uint64    `json:"parent"`
	Props  jsonProps `json:"props"`
}

type jsonProps map[string]any

func encodeProps(p scene.Properties) jsonProps {
	if len(p) == 0 {
		return nil
	}
	out := make(jsonProps, len(p))
	for k, v := range p {
		if v.IsText() {
			out[k] = v.Text()
		} else {
			out[k] = v.Float()
		}
	}
	return out
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans scene operations out to websocket clients. Clients that fall a
// full buffer behind are dropped.
type Hub struct {
	scene    *scene.Memory
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub observes m and serves its operations to subscribers.
func NewHub(m *scene.Memory, logger zerolog.Logger) *Hub {
	h := &Hub{
		scene:  m,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
	m.Observe(h.publish)
	return h
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) publish(op scene.Op) {
	data, err := json.Marshal(Message{
		Type:   string(op.Kind),
		Node:   uint64(op.Node),
		Parent: uint64(op.Parent),
		Props:  encodeProps(op.Props),
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("encode scene op")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("dropping slow subscriber")
			h.dropLocked(c)
		}
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams the scene until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	snap, err := h.snapshot()
	if err == nil {
		c.send <- snap
		h.clients[c] = struct{}{}
	}
	h.mu.Unlock()
	if err != nil {
		h.logger.Warn().Err(err).Msg("encode snapshot")
		conn.Close()
		return
	}
	h.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("subscriber joined")

	go h.writeLoop(c)
	// Incoming messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) snapshot() ([]byte, error) {
	nodes := h.scene.Snapshot()
	msg := Message{Type: "snapshot", Nodes: make([]jsonNode, len(nodes))}
	for i, n := range nodes {
		msg.Nodes[i] = jsonNode{ID: uint64(n.ID), Parent: uint64(n.Parent), Props: encodeProps(n.Props)}
	}
	return json.Marshal(msg)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(c)
			// drain until the hub closes send
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
