package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checking is handled by the CORS policy on the REST endpoints;
	// the progress stream carries no sensitive data.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	progressInterval = 500 * time.Millisecond
	writeTimeout     = 5 * time.Second
)

// progressSocketHandler streams queue stats snapshots to the frontend so
// it can render live progress without polling.
func (s *Server) progressSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	websocketConnections.Inc()
	defer func() {
		websocketConnections.Dec()
		_ = conn.Close()
	}()

	// Drain client messages so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for range ticker.C {
		stats := s.orchestrator.Stats()
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(stats); err != nil {
			return
		}
	}
}
