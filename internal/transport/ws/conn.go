package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const outboxSize = 32

type wsConn struct {
	conn   *websocket.Conn
	roomID string
	sender string
	out    chan Frame

	closeOnce sync.Once
	closed    chan struct{}
}

func newWSConn(c *websocket.Conn, roomID, sender string) *wsConn {
	return &wsConn{
		conn:   c,
		roomID: roomID,
		sender: sender,
		out:    make(chan Frame, outboxSize),
		closed: make(chan struct{}),
	}
}

// Send не блокируется: переполненный outbox значит, что подписчик не
// вычитывает сокет, — кадр отбрасывается, историю он заберёт пагинацией.
func (c *wsConn) Send(f Frame) bool {
	select {
	case <-c.closed:
		return false
	case c.out <- f:
		return true
	default:
		return false
	}
}

func (c *wsConn) writeFrame(f Frame, timeout time.Duration) error {
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteJSON(f)
}

// Close безопасен при одновременном вызове из read- и write-loop:
// оба видят один и тот же мёртвый сокет.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })

	return c.conn.Close()
}

func (c *wsConn) RoomID() string { return c.roomID }
func (c *wsConn) Sender() string { return c.sender }
