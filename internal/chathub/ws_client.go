package chathub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// WebSocketClient implements Client over a gorilla/websocket connection with
// one read pump and one write pump goroutine.
type WebSocketClient struct {
	hub    *Hub
	conn   *websocket.Conn
	connID string
	logger *slog.Logger

	mu     sync.Mutex
	userID uint
	closed bool
	send   chan Event
}

// NewWebSocketClient wraps an upgraded connection. Call Run to start the pumps.
func NewWebSocketClient(hub *Hub, conn *websocket.Conn) *WebSocketClient {
	id := uuid.New().String()
	return &WebSocketClient{
		hub:    hub,
		conn:   conn,
		connID: id,
		logger: slog.Default().With("component", "ws_client", "conn_id", id),
		send:   make(chan Event, sendBufferSize),
	}
}

func (c *WebSocketClient) GetConnID() string { return c.connID }

func (c *WebSocketClient) GetUserID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *WebSocketClient) SetUserID(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

// Send queues an event for the write pump. Returns false when the client is
// closed or its buffer is full so callers never block on a dead connection.
func (c *WebSocketClient) Send(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump by closing the send channel. Idempotent; Send
// holds the same lock, so nothing can write to the channel after this.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads inbound frames and dispatches them into the hub. On any read
// error the connection is torn down through the hub, which makes cleanup
// happen exactly once regardless of how the connection died.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("read error", "error", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.logger.Warn("dropping malformed event", "error", err)
			continue
		}

		c.hub.Dispatch(context.Background(), c, ev)
	}
}

// writePump serializes queued events to the socket and keeps the connection
// alive with pings.
func (c *WebSocketClient) writePump() {
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
			if err := c.conn.WriteJSON(ev); err != nil {
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
