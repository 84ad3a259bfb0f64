// network/connection.go
package network

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single frame write so one stalled peer cannot
// block a broadcast fanout.
const writeWait = 5 * time.Second

type Connection interface {
	Send(data []byte) error
	ReadMessage() ([]byte, error)
	IsOpen() bool
	Close() error
	RemoteAddr() net.Addr
}

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	closed    bool
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

// Send writes one text frame. Best-effort: a write error marks the
// connection closed so later broadcasts skip it.
func (c *WSConnection) Send(data []byte) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if c.closed {
		return websocket.ErrCloseSent
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.closed = true
		return err
	}
	return nil
}

// ReadMessage blocks for the next whole text frame from the peer.
func (c *WSConnection) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.markClosed()
		return nil, err
	}
	return data, nil
}

func (c *WSConnection) IsOpen() bool {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return !c.closed
}

func (c *WSConnection) markClosed() {
	c.sendMutex.Lock()
	c.closed = true
	c.sendMutex.Unlock()
}

func (c *WSConnection) Close() error {
	c.markClosed()
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetReadLimit caps inbound frame size.
func (c *WSConnection) SetReadLimit(limit int64) {
	c.conn.SetReadLimit(limit)
}
