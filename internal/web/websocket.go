package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/rootexec"
)

// wsEvent is the JSON rendering of one rootexec.InboundEvent pushed to
// WebSocket/SSE subscribers.
type wsEvent struct {
	Sender  string            `json:"sender"`
	Headers map[string]string `json:"headers,omitempty"`
	Content string            `json:"content"`
}

func toWSEvent(ev rootexec.InboundEvent) wsEvent {
	return wsEvent{
		Sender:  ev.Sender.String(),
		Headers: ev.Message.Headers,
		Content: ev.Message.Content.String(),
	}
}

// Hub fans out the root executor's InboundEvent stream to every connected
// WebSocket client, mirroring the teacher's broadcast-hub shape without the
// per-agent demuxing the mail UI needed (spec.md doesn't scope events to a
// single recipient the way an inbox does).
type Hub struct {
	root *rootexec.RootExecutor

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	register   chan *wsClient
	unregister chan *wsClient

	cancel context.CancelFunc
}

// NewHub builds a Hub that relays root's InboundEvents.
func NewHub(root *rootexec.RootExecutor) *Hub {
	return &Hub{
		root:       root,
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

// Run drives the hub until ctx is cancelled or Stop is called. Call it in
// its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()
	defer cancel()

	events := h.root.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
			}
			h.mu.Unlock()

		case ev, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(toWSEvent(ev))
		}
	}
}

func (h *Hub) broadcast(ev wsEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.Send(ev)
	}
}

// Stop cancels the hub's Run loop, which then closes every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// wsClient is a single WebSocket connection subscribed to hub events.
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan wsEvent

	mu     sync.Mutex
	closed bool
}

func newWSClient(hub *Hub, conn *websocket.Conn) *wsClient {
	return &wsClient{hub: hub, conn: conn, send: make(chan wsEvent, sendBufferSize)}
}

func (c *wsClient) Send(ev wsEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
	}
}

func (c *wsClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	c.conn.Close()
}

func (c *wsClient) readPump() {
	defer func() { c.hub.unregister <- c }()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WarnS(r.Context(), "websocket upgrade failed", err)
		return
	}
	client := newWSClient(s.hub, conn)
	s.hub.register <- client
	go client.writePump()
	go client.readPump()
}
