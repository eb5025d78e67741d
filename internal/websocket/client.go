package websocket

import (
	"context"
	"sync"
	"time"

	"collab-realtime/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	reasonSlowConsumer = "send buffer full"
)

// Transport is the part of *websocket.Conn the pumps use.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(limit int64)
}

// Client is one authenticated connection. Its identity is fixed for the
// connection's lifetime.
type Client struct {
	hub      *Hub
	conn     Transport
	id       string
	identity models.Identity
	limiter  *RateLimitWindow

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	leaveOnce sync.Once
}

func NewClient(hub *Hub, conn Transport, identity models.Identity) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		id:       uuid.NewString(),
		identity: identity,
		limiter:  NewRateLimitWindow(hub.cfg.MessagesPerWindow, hub.cfg.RateLimitWindow),
		send:     make(chan []byte, hub.cfg.SendBufferSize),
		done:     make(chan struct{}),
	}
}

func (c *Client) ID() string                { return c.id }
func (c *Client) UserID() string            { return c.identity.UserID }
func (c *Client) Profile() models.Profile   { return c.identity.Profile }
func (c *Client) Identity() models.Identity { return c.identity }

// Emit encodes the event and queues it for the write pump.
func (c *Client) Emit(event models.EventType, payload any) error {
	data, err := encode(event, payload)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

// enqueue never blocks. A closed client discards the frame. A full buffer
// means the peer cannot keep up: the client is closed and evicted so it
// reconnects and resyncs instead of silently missing frames.
func (c *Client) enqueue(data []byte) error {
	select {
	case <-c.done:
		return ErrHubClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrHubClosed
	default:
		c.hub.log.Warn("Send buffer full, evicting client", "conn_id", c.id, "user_id", c.UserID())
		c.Close()
		c.hub.tasks.Go("evict", func(context.Context) error {
			c.hub.Disconnect(c, reasonSlowConsumer)
			return nil
		})
		return ErrSendBlocked
	}
}

func (c *Client) emitError(msg string) {
	_ = c.Emit(models.EventError, models.ErrorPayload{Message: msg})
}

// Close stops the write pump, which sends a close frame and closes the
// transport. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) ReadPump() {
	reason := "client disconnect"
	defer func() {
		c.hub.Disconnect(c, reason)
		c.conn.Close()
	}()

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
				c.hub.log.Warn("WebSocket read error", "conn_id", c.id, "error", err)
				reason = "transport error"
			}
			return
		}
		c.hub.Dispatch(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.log.Debug("Write error", "conn_id", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
