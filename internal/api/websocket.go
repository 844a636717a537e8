package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gupshup-ai/gupshup/internal/persona"
)

// upgrader promotes /ws requests to WebSocket connections. The API is
// same-host by design, so the default origin check stands.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// wsMessage is an inbound chat message over the socket.
type wsMessage struct {
	Message string `json:"message"`
	Tone    string `json:"tone,omitempty"`
}

// wsReply is the outbound reply. Error is set instead of Response when
// the message was rejected (e.g. unknown tone).
type wsReply struct {
	Response string `json:"response,omitempty"`
	Demo     bool   `json:"demo"`
	Error    string `json:"error,omitempty"`
}

// handleWebSocket serves a persistent chat session. Each socket gets
// its own conversation; turns are processed one at a time in arrival
// order, matching the synchronous per-conversation request path.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	convID := uuid.New().String()
	s.logger.Info("websocket session started", "conversation", convID)

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", "conversation", convID, "error", err)
			}
			return
		}

		if msg.Message == "" {
			s.writeWS(conn, convID, wsReply{Error: "message is required"})
			continue
		}

		reply, err := s.companion.Submit(r.Context(), convID, msg.Message, msg.Tone)
		if err != nil {
			if errors.Is(err, persona.ErrUnknownProfile) {
				s.writeWS(conn, convID, wsReply{Error: err.Error()})
				continue
			}
			s.logger.Error("websocket submit failed", "conversation", convID, "error", err)
			s.writeWS(conn, convID, wsReply{Error: "internal error"})
			continue
		}

		s.writeWS(conn, convID, wsReply{Response: reply.Text, Demo: reply.Demo})
	}
}

// writeWS sends one reply with a bounded write deadline.
func (s *Server) writeWS(conn *websocket.Conn, convID string, reply wsReply) {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(reply); err != nil {
		s.logger.Debug("websocket write failed", "conversation", convID, "error", err)
	}
}
