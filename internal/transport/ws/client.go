package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sketchspy/internal/app"
	"sketchspy/internal/domain"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// must stay below pongWait
	pingPeriod = pongWait * 9 / 10

	// reactions are the largest inbound frame
	maxMessageSize = 4096

	// Replies to the client's own messages
	sendBufferSize = 16

	// Bound on a single reaction forwarded to the room
	requestTimeout = 5 * time.Second
)

// Client streams one room subscription to one connection. It never touches
// room membership: dropping the connection only drops the subscription.
type Client struct {
	conn    *websocket.Conn
	hub     *app.GameHub
	session *app.Session
	sub     *app.Subscription
	send    chan []byte
	done    chan struct{}
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *app.GameHub, session *app.Session, sub *app.Subscription, logger *slog.Logger) *Client {
	return &Client{
		conn:    conn,
		hub:     hub,
		session: session,
		sub:     sub,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// greet confirms the subscription before any event is written
func (c *Client) greet() error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(NewServerMessage(MsgConnected, &ConnectedPayload{
		PlayerID: c.session.PlayerID,
		RoomCode: c.session.RoomCode,
	}))
}

// Send queues a reply to the client. Replies are dropped when the buffer is full.
func (c *Client) Send(message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, message dropped", "playerID", c.session.PlayerID)
	}
	return nil
}

// Close releases the subscription and the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	c.sub.Close()
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		c.handleMessage(message)
	}
}

// writePump writes room events and replies. Events are written in the order
// the room emitted them.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	events := c.sub.Events()
	for {
		select {
		case <-c.done:
			return
		case event, ok := <-events:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"))
				return
			}
			if err := c.conn.WriteJSON(NewServerMessage(MsgEvent, event)); err != nil {
				return
			}
			if c.removedBy(event) {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "removed from room"))
				return
			}
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// removedBy reports whether the event took this client's player out of the room
func (c *Client) removedBy(event domain.Event) bool {
	left, ok := event.Payload.(*domain.PlayerLeftPayload)
	return ok && left.PlayerID == c.session.PlayerID
}

func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	switch msg.Type {
	case MsgPing:
		c.Send(NewServerMessage(MsgPong, nil))
	case MsgReact:
		c.handleReact(msg.Payload)
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
	}
}

func (c *Client) handleReact(raw json.RawMessage) {
	var payload ReactPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.TargetID == "" {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := c.hub.React(ctx, c.session.Token, payload.TargetID, payload.Emoji); err != nil {
		c.sendError(errorCode(err), err.Error())
	}
}

func (c *Client) sendError(code, message string) {
	c.Send(NewServerMessage(MsgError, &ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
