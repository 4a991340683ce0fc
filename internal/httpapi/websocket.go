package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Any origin may open the event stream: it is read-only, unauthenticated
	// status data, served only on localhost by default.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebsocket upgrades GET /ws/events and streams one JSON registry.Event
// per mutation until the client disconnects.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	// Drain client reads in the background so ping/pong and close frames are
	// handled; this endpoint never expects incoming application messages.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for data := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
