package websocket

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	// Clients only send control frames; anything larger is a misbehaving peer.
	readLimit = 512
)

// Client is one open session of an authenticated user.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	userID int64
	send   chan []byte
	// lagged is set by the hub when an event was dropped for this session.
	lagged atomic.Bool
}

func NewClient(hub *Hub, conn *ws.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// enqueue queues msg without blocking. It reports false and marks the
// session as lagged when the buffer is full.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		c.lagged.Store(true)
		return false
	}
}

// Run queues greeting (if any) ahead of every hub event, registers the
// client and pumps until either side closes.
func (c *Client) Run(ctx context.Context, greeting *Message) {
	if greeting != nil {
		if data, err := json.Marshal(greeting); err == nil {
			c.enqueue(data)
		}
	}

	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.conn.SetReadLimit(readLimit)
	go c.writePump(ctx, cancel)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

// writePump writes queued events and keepalive pings. After an event was
// dropped it follows the next write with a resync so the browser refetches
// its list. Any write failure ends the session.
func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	resync, _ := json.Marshal(NewMessage("notification", "resync", 0, nil))

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				return
			}
			if c.lagged.CompareAndSwap(true, false) {
				if err := c.write(ctx, resync); err != nil {
					return
				}
			}
		case <-ticker.C:
			pingCtx, done := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			done()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, data)
}
