package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// subscribe upgrades the connection to the live subscription channel (§6):
// server-to-client frames are the JSON metric frames from the Metrics Bus;
// the single recognized client-to-server text message is "shutdown".
func (h *handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	if h.deps.Hub == nil || !websocket.IsWebSocketUpgrade(r) {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, frames := h.deps.Hub.Subscribe()
	defer h.deps.Hub.Unsubscribe(id)

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	done := make(chan struct{})
	go h.readLoop(conn, done)

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *handlers) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if string(message) == "shutdown" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte("Shutting down"))
			if h.deps.RequestShutdown != nil {
				h.deps.RequestShutdown()
			}
			return
		}
		if zlog != nil {
			zlog.Info().Str("message", string(message)).Msg("websocket message")
		}
	}
}
