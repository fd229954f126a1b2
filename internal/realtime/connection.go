package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4096
	sendBuffer     = 64
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSlowConsumer     = errors.New("connection buffer exceeded")
)

// Connection wraps one member's websocket. Writes go through a buffered
// channel drained by a single writer goroutine.
type Connection struct {
	ID        string
	ProfileID string

	ws     *websocket.Conn
	send   chan []byte
	once   sync.Once
	closed chan struct{}
	done   chan struct{} // closed when the write loop exits
}

func NewConnection(profileID string, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the write loop. Call exactly once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload. A full buffer closes the connection.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrSlowConsumer
	}
}

func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

// Wait blocks until the write loop has exited.
func (c *Connection) Wait() {
	<-c.done
}

// readLoop consumes inbound frames (only control frames matter) until the
// peer goes away or stops answering pings.
func (c *Connection) readLoop() error {
	c.ws.SetReadLimit(maxInboundSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return err
		}
	}
}

func (c *Connection) writeLoop() {
	defer close(c.done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
