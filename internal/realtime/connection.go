package realtime

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Conn pumps hub frames to a single websocket client. The transport layer
// creates one per upgraded connection and runs Pump until the subscriber
// channel closes or a write fails; reads stay with the caller.
type Conn struct {
	ws *websocket.Conn
}

// NewConn wraps an upgraded websocket.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Pump forwards frames from sub to the socket, interleaving pings so
// intermediaries keep the connection alive. It returns when the
// subscriber's channel is closed (Unsubscribe) or a write fails, which for
// a disconnected client simply ends delivery of future events.
func (c *Conn) Pump(sub *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sub.C():
			if !ok {
				return
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close sends a close frame with the given code and reason, then tears the
// socket down.
func (c *Conn) Close(code int, reason string) {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	_ = c.ws.Close()
}

func (c *Conn) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
