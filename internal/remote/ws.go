// internal/remote/ws.go
//
// WebSocket executor.
//
// Each browser session owns one Conn.  Outbound frames are JSON encoded and
// queued on a buffered channel drained by a single write pump, so Execute
// never blocks on the network.  When the buffer is full the frame is
// refused with ErrSlowClient.
package remote

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Outbound frame kinds.
const (
	FrameInvoke   = "invoke"
	FrameDocument = "document"
	FrameError    = "error"
)

// Frame is the envelope written to the socket.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const writeWait = 10 * time.Second

// Conn is an Executor backed by a websocket connection.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewConn starts the write pump.  buffer is the number of frames that may
// be queued before Execute starts refusing.
func NewConn(ws *websocket.Conn, buffer int) *Conn {
	if buffer < 1 {
		buffer = 1
	}
	c := &Conn{
		ws:   ws,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *Conn) writePump() {
	defer close(c.done)
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// Execute queues an invoke frame.
func (c *Conn) Execute(inv Invocation) error { return c.Send(FrameInvoke, inv) }

// Send queues an arbitrary frame.
func (c *Conn) Send(kind string, payload any) error {
	data, err := json.Marshal(Frame{Type: kind, Payload: payload})
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSlowClient
	}
}

// Close stops the write pump after queued frames are flushed.  Safe to call
// more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// Done is closed once the write pump has exited.
func (c *Conn) Done() <-chan struct{} { return c.done }
