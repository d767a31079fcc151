package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/routethat/playsim/pkg/streaming"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// renderers connect from any origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWatch streams every ingested run to a viewer.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	p := newPeer(conn)
	s.hub.add(p)
	defer s.hub.remove(p)

	go p.writePump()
	p.readPump(nil)
}

// handleIngest accepts a run streamed by a websocket recording backend,
// acknowledges its start and end, and relays every message to watchers.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.deps.Secret != "" && r.URL.Query().Get("secret") != s.deps.Secret {
		http.Error(w, "invalid secret", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := streaming.Decode(data, nil)
		if err != nil {
			s.log.Warn("Dropping malformed ingest message", "error", err)
			continue
		}

		switch env.Type {
		case streaming.TypeStartPlay:
			var start streaming.StartPlayPayload
			if _, err := streaming.Decode(data, &start); err == nil && start.Run != nil {
				s.log.Info("Ingesting run", "runId", start.Run.ID, "play", start.Run.PlayName)
			}
		case streaming.TypeEndPlay:
			var end streaming.EndPlayPayload
			if _, err := streaming.Decode(data, &end); err == nil && end.Result != nil {
				s.log.Info("Ingested run finished", "runId", end.Result.RunID, "status", end.Result.Status)
			}
		case streaming.TypeFrame:
		default:
			continue
		}

		s.hub.broadcast(data)

		if env.Type != streaming.TypeFrame {
			if err := conn.WriteMessage(websocket.TextMessage, streaming.Ack(env.Type)); err != nil {
				return
			}
		}
	}
}
