package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Conn represents one websocket session of an authenticated user.
// A single user may have multiple devices/connections, each maintained separately.
//
// send is never closed: producers may race with teardown, so shutdown is
// signalled through done instead.
type Conn struct {
	id          string
	user        Identity
	ws          *websocket.Conn // nil for connections created in tests
	send        chan []byte
	connectedAt time.Time

	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

// NewConn creates a new connection object with a bounded outbound queue.
func NewConn(id string, user Identity, ws *websocket.Conn, sendQueueSize int) *Conn {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Conn{
		id:          id,
		user:        user,
		ws:          ws,
		send:        make(chan []byte, sendQueueSize),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

func (c *Conn) ID() string              { return c.id }
func (c *Conn) User() Identity          { return c.user }
func (c *Conn) UserID() string          { return c.user.ID }
func (c *Conn) Dropped() int64          { return c.dropped.Load() }
func (c *Conn) Outbound() <-chan []byte { return c.send }

// Done is closed when the connection is shutting down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close signals the connection goroutines to stop (idempotent).
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// enqueue never blocks: a closed connection or a full queue drops the payload.
func (c *Conn) enqueue(payload []byte) bool {
	if c.Closed() {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}
