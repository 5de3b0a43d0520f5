package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// feedBuffer holds events that arrive before the snapshot is applied
const feedBuffer = 256

// ErrFeedClosed is returned when the event stream ends
var ErrFeedClosed = errors.New("event feed closed")

// Received is an event paired with its local arrival time
type Received struct {
	Event Event
	At    time.Time
}

// Feed is a live subscription to one room's events. Events are buffered from
// the moment Dial returns.
type Feed interface {
	Events() <-chan Received
	Close() error
}

// Dialer opens a feed for a session
type Dialer interface {
	Dial(ctx context.Context, token, roomCode string) (Feed, error)
}

// WSDialer opens feeds over the server's websocket endpoint
type WSDialer struct {
	URL    string
	Dialer *websocket.Dialer
	Logger *slog.Logger
	Now    func() time.Time
}

// NewWSDialer creates a dialer for a server base URL such as http://localhost:8080
func NewWSDialer(baseURL string, logger *slog.Logger) *WSDialer {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return &WSDialer{
		URL:    u + "/ws",
		Dialer: websocket.DefaultDialer,
		Logger: logger,
		Now:    time.Now,
	}
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dial connects and waits for the server to confirm the subscription
func (d *WSDialer) Dial(ctx context.Context, token, roomCode string) (Feed, error) {
	q := url.Values{}
	q.Set("token", token)
	q.Set("roomCode", roomCode)

	conn, resp, err := d.Dialer.DialContext(ctx, d.URL+"?"+q.Encode(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial feed: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial feed: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	var hello wsMessage
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != "connected" {
		conn.Close()
		return nil, fmt.Errorf("dial feed: no subscription confirmation: %v", err)
	}
	conn.SetReadDeadline(time.Time{})

	f := &wsFeed{
		conn:   conn,
		events: make(chan Received, feedBuffer),
		done:   make(chan struct{}),
		logger: d.Logger,
		now:    d.Now,
	}
	go f.readLoop()
	return f, nil
}

type wsFeed struct {
	conn   *websocket.Conn
	events chan Received
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
	now    func() time.Time
}

func (f *wsFeed) Events() <-chan Received {
	return f.events
}

func (f *wsFeed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.conn.Close()
	})
	return err
}

// readLoop forwards events until the connection ends. A consumer that falls
// behind the buffer loses the feed and must resynchronize.
func (f *wsFeed) readLoop() {
	defer close(f.events)
	defer f.Close()

	for {
		var msg wsMessage
		if err := f.conn.ReadJSON(&msg); err != nil {
			select {
			case <-f.done:
			default:
				f.logger.Debug("feed ended", "error", err)
			}
			return
		}

		switch msg.Type {
		case "event":
			var ev Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				f.logger.Warn("malformed event", "error", err)
				continue
			}
			select {
			case f.events <- Received{Event: ev, At: f.now()}:
			default:
				f.logger.Warn("feed buffer full, dropping connection", "seq", ev.Seq)
				return
			}
		case "error":
			f.logger.Debug("server reported error", "payload", string(msg.Payload))
		}
	}
}
