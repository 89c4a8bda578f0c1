package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrConnClosed = errors.New("connection is closed")

// Peer is a single realtime subscriber.
type Peer interface {
	ID() string
	Send(msg []byte) error
	Close() error
}

// Conn is a Peer over a gorilla websocket. Writes are serialized so frames
// sent to one connection keep the order in which Send was called.
type Conn struct {
	id        string
	conn      *websocket.Conn
	writeWait time.Duration

	mu        sync.Mutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(conn *websocket.Conn, writeWait time.Duration) *Conn {
	return &Conn{
		id:        uuid.NewString(),
		conn:      conn,
		writeWait: writeWait,
		done:      make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Send writes one text frame.
func (c *Conn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return ErrConnClosed
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Ping sends a ping control frame.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return ErrConnClosed
	}

	if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Listen reads frames until the peer goes away, ctx is cancelled or the
// connection is closed locally. The read deadline is extended on every pong
// and a ping is sent every pingPeriod. handler may be nil.
func (c *Conn) Listen(ctx context.Context, pongWait, pingPeriod time.Duration, handler func(msg []byte)) error {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-c.done:
				return
			case <-ctx.Done():
				_ = c.Close()
				return
			case <-ticker.C:
				if err := c.Ping(); err != nil {
					_ = c.Close()
					return
				}
			}
		}
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
		if handler != nil {
			handler(msg)
		}
	}
}

// Close sends a close frame and releases the underlying connection. Safe to call twice.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.closed = true
		close(c.done)

		if c.conn == nil {
			return
		}
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeWait),
		)
		err = c.conn.Close()
	})
	return err
}
