// Realtime websocket handler.
//
// GET /ws upgrades the connection and attaches it to the broadcast hub. The
// write side runs the hub pump (realtime.Conn); the read side stays here and
// interprets client control frames:
//
//	{"type":"typing","room":"u1_u2","userId":"u1"}
//	{"type":"stopTyping","room":"u1_u2","userId":"u1"}
//
// Each typing change updates the volatile typing registry and broadcasts the
// room's full typing set as a `userTyping` event. Typing state is never
// persisted; a crashed client's entry disappears with its connection scope
// on the client side and costs nothing server-side beyond the set entry.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tbourn/go-messenger-backend/internal/http/middleware"
	"github.com/tbourn/go-messenger-backend/internal/realtime"
)

// socketReadWait bounds how long the read loop waits for any frame,
// including the pong replies to the pump's pings. Twice the ping period, so
// a client that misses one pong survives but a dead peer is reaped on the
// next deadline. Variable so tests can shrink it.
var socketReadWait = 60 * time.Second

// clientFrame is the inbound websocket message shape.
type clientFrame struct {
	Type   string `json:"type"`
	Room   string `json:"room"`
	UserID string `json:"userId"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement is handled by the CORS layer for the REST surface;
	// the socket accepts any origin, matching the open Socket.IO behavior.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Socket handles GET /ws.
func (h *Handlers) Socket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		return
	}

	lg := middleware.LoggerFrom(c)
	sub := h.hub.Subscribe()
	conn := realtime.NewConn(ws)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.Pump(sub)
	}()

	ws.SetReadLimit(1 << 20)
	_ = ws.SetReadDeadline(time.Now().Add(socketReadWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(socketReadWait))
	})

	// Read loop: typing control frames until the client goes away or stops
	// answering pings.
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			lg.Debug().Err(err).Msg("ws: malformed client frame")
			continue
		}
		h.handleTyping(frame)
	}

	h.hub.Unsubscribe(sub)
	<-done
	conn.Close(websocket.CloseNormalClosure, "")
}

// handleTyping applies one typing change and fans out the room's new set.
func (h *Handlers) handleTyping(frame clientFrame) {
	room := strings.TrimSpace(frame.Room)
	user := strings.TrimSpace(frame.UserID)
	if room == "" || user == "" {
		return
	}

	var set []string
	switch frame.Type {
	case "typing":
		set = h.typing.Start(room, user)
	case "stopTyping":
		set = h.typing.Stop(room, user)
	default:
		return
	}

	h.hub.Publish(realtime.EventUserTyping, realtime.TypingPayload{
		Room:        room,
		TypingUsers: set,
	})
}
