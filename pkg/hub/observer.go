package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before assuming the
	// observer is gone.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxInboundSize bounds inbound frames. Observers only send pongs,
	// so anything larger is a misbehaving client.
	maxInboundSize = 4 * 1024

	// sendQueueSize is how many undelivered messages an observer may
	// queue before it counts as too slow and is dropped.
	sendQueueSize = 256
)

// Conn is the subset of the websocket connection the pumps use.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// observer is one connected monitor socket. Observers never speak;
// their reads exist only to surface pongs and disconnects.
type observer struct {
	hub  *Hub
	conn Conn
	send chan Message
}

// Serve registers the connection and pumps broadcasts to it until the
// socket or the hub closes. It blocks; call it from the websocket
// handler. Serving on a stopped hub writes a close frame and returns.
func Serve(h *Hub, conn Conn) {
	obs := &observer{hub: h, conn: conn, send: make(chan Message, sendQueueSize)}
	select {
	case h.register <- obs:
	case <-h.done:
		close(obs.send)
	}

	go obs.writePump()
	obs.readPump()
}

// readPump drains inbound frames until the connection dies, then
// unregisters.
func (o *observer) readPump() {
	defer func() {
		select {
		case o.hub.unregister <- o:
		case <-o.hub.done:
		}
		o.conn.Close()
	}()

	o.conn.SetReadLimit(maxInboundSize)
	o.conn.SetReadDeadline(time.Now().Add(pongWait))
	o.conn.SetPongHandler(func(string) error {
		o.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump owns all writes to the connection: queued broadcasts and
// keepalive pings.
func (o *observer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		o.conn.Close()
	}()

	for {
		select {
		case message, ok := <-o.send:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the queue; send a close frame.
				o.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := o.conn.WriteMessage(frameType(message.Type), message.Data); err != nil {
				return
			}

		case <-ticker.C:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// frameType maps a hub message type onto the websocket frame type.
func frameType(t MessageType) int {
	if t == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
