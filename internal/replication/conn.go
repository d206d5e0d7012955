package replication

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// conn frames a websocket. gorilla/websocket allows one concurrent reader
// and one concurrent writer; send serializes writers, receive must only be
// called from one goroutine.
type conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu       sync.Mutex
	compress bool
}

func newConn(ws *websocket.Conn, compress bool, writeTimeout time.Duration) *conn {
	return &conn{ws: ws, compress: compress, writeTimeout: writeTimeout}
}

func (c *conn) setCompress(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compress = on
}

func (c *conn) send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := EncodeFrame(f, c.compress)
	if err != nil {
		return err
	}
	if c.writeTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", f.Type, err)
	}
	return nil
}

// receive reads the next frame. A zero timeout waits indefinitely.
func (c *conn) receive(timeout time.Duration) (Frame, error) {
	if timeout > 0 {
		c.ws.SetReadDeadline(time.Now().Add(timeout))
		defer c.ws.SetReadDeadline(time.Time{})
	}
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	if messageType != websocket.BinaryMessage {
		return Frame{}, fmt.Errorf("unexpected websocket message type %d", messageType)
	}
	return DecodeFrame(data)
}

// close sends a normal closure (best effort) and closes the socket.
func (c *conn) close() {
	c.mu.Lock()
	deadline := time.Now().Add(time.Second)
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.mu.Unlock()
	c.ws.Close()
}
