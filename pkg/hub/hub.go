// Package hub owns the WebSocket side of the mock server: it accepts
// connections, greets each client, fans server events out to everyone, and
// feeds inbound commands to a single registered command handler.
//
// The hub is transport only. It never interprets command payloads; dispatch
// semantics live with the command handler.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"

	"github.com/websublime/vite-open-api-server-sub004/internal/id"
	"github.com/websublime/vite-open-api-server-sub004/pkg/logging"
)

// EventConnected is the greeting sent exactly once per connection, before
// any other traffic.
const EventConnected = "connected"

// writeTimeout bounds a single frame write so one stalled client cannot
// block a broadcast.
const writeTimeout = 5 * time.Second

// ClientCommand is an inbound client frame.
type ClientCommand struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// ServerEvent is an outbound server frame.
type ServerEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// CommandFunc handles one inbound command. Replies go through client.Send;
// broadcasts through the hub.
type CommandFunc func(client *Client, cmd *ClientCommand)

// WelcomeFunc produces the data payload of the connected greeting.
type WelcomeFunc func() map[string]any

// Client is one active WebSocket connection.
type Client struct {
	id     string
	conn   *ws.Conn
	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex
	closed  atomic.Bool
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Send marshals an event and writes it to this client. Sending to a closed
// client returns the underlying close error.
func (c *Client) Send(event *ServerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, data)
}

func (c *Client) close(code ws.StatusCode, reason string) {
	if c.closed.Swap(true) {
		return
	}
	c.cancel()
	_ = c.conn.Close(code, reason)
}

// Hub accepts WebSocket connections and routes frames.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client

	handler atomic.Pointer[CommandFunc]
	welcome atomic.Pointer[WelcomeFunc]
}

// New creates an empty hub.
func New(log *slog.Logger) *Hub {
	if log == nil {
		log = logging.Nop()
	}
	return &Hub{
		log:     log,
		clients: make(map[string]*Client),
	}
}

// SetCommandHandler installs the command handler. There is exactly one;
// setting it again replaces the previous handler.
func (h *Hub) SetCommandHandler(fn CommandFunc) {
	h.handler.Store(&fn)
}

// SetWelcome installs the factory for the connected greeting payload.
func (h *Hub) SetWelcome(fn WelcomeFunc) {
	h.welcome.Store(&fn)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and runs the connection's read loop until
// the client goes away. Malformed frames are logged and dropped; they never
// terminate the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Development tool: any origin may connect.
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		id:     id.Short(),
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}

	h.addClient(client)
	defer h.removeClient(client, ws.StatusNormalClosure, "")

	h.log.Debug("client connected", "client", client.id, "remote", r.RemoteAddr)

	if err := client.Send(&ServerEvent{Type: EventConnected, Data: h.welcomeData()}); err != nil {
		h.log.Warn("greeting failed", "client", client.id, "error", err)
		return
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug("client disconnected", "client", client.id, "error", err)
			return
		}

		var cmd ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Type == "" {
			h.log.Warn("malformed command dropped", "client", client.id, "error", err)
			continue
		}

		if fn := h.handler.Load(); fn != nil {
			(*fn)(client, &cmd)
		} else {
			h.log.Warn("command received before handler registered", "type", cmd.Type)
		}
	}
}

// Broadcast sends an event to every connected client. Clients whose write
// fails are dropped from the hub.
func (h *Hub) Broadcast(event *ServerEvent) {
	for _, client := range h.snapshot() {
		if client.closed.Load() {
			continue
		}
		if err := client.Send(event); err != nil {
			h.log.Debug("broadcast write failed, dropping client", "client", client.id, "error", err)
			h.removeClient(client, ws.StatusAbnormalClosure, "write failed")
		}
	}
}

// Close disconnects every client. Used on server shutdown.
func (h *Hub) Close() {
	for _, client := range h.snapshot() {
		h.removeClient(client, ws.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) welcomeData() map[string]any {
	if fn := h.welcome.Load(); fn != nil {
		return (*fn)()
	}
	return nil
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) removeClient(c *Client, code ws.StatusCode, reason string) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.close(code, reason)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}
