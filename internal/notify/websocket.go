package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/lernio/pathway/internal/progress"
)

const deliverTimeout = 5 * time.Second

// eventFrame is the wire shape of one streamed event.
type eventFrame struct {
	Type      string         `json:"type"`
	PathID    string         `json:"pathId"`
	LearnerID string         `json:"learnerId"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	At        time.Time      `json:"at"`
}

// WebSocketChannel streams progress events to every connected client. The
// channel is a Channel for the Gateway and an http.Handler for the server
// mux.
type WebSocketChannel struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewWebSocketChannel creates an empty channel; clients join by hitting
// its ServeHTTP endpoint.
func NewWebSocketChannel() *WebSocketChannel {
	return &WebSocketChannel{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection subscribed until
// the client goes away.
func (c *WebSocketChannel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.conns[conn] = struct{}{}
	c.mu.Unlock()

	// Block until the client disconnects. Reads are discarded; the stream
	// is one way.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()

	c.mu.Lock()
	delete(c.conns, conn)
	c.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
}

// Deliver writes the event to every connected client. Connections that
// fail to accept the write are dropped.
func (c *WebSocketChannel) Deliver(ctx context.Context, event progress.Event) error {
	frame := eventFrame{
		Type:      event.Type,
		PathID:    event.PathID,
		LearnerID: event.LearnerID,
		Message:   event.Message,
		Data:      event.Data,
		At:        event.CreatedAt,
	}
	if frame.At.IsZero() {
		frame.At = time.Now()
	}

	c.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(c.conns))
	for conn := range c.conns {
		conns = append(conns, conn)
	}
	c.mu.Unlock()

	for _, conn := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, deliverTimeout)
		err := wsjson.Write(writeCtx, conn, frame)
		cancel()
		if err != nil {
			c.drop(conn)
		}
	}
	return nil
}

// Close disconnects every client.
func (c *WebSocketChannel) Close() error {
	c.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(c.conns))
	for conn := range c.conns {
		conns = append(conns, conn)
	}
	c.conns = make(map[*websocket.Conn]struct{})
	c.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	return nil
}

// ClientCount returns how many clients are connected.
func (c *WebSocketChannel) ClientCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

func (c *WebSocketChannel) drop(conn *websocket.Conn) {
	c.mu.Lock()
	delete(c.conns, conn)
	c.mu.Unlock()
	conn.Close(websocket.StatusPolicyViolation, "write failed")
}
