package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth happens before the upgrade; browser clients connect
	// from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsIncoming struct {
	Text string `json:"text"`
}

type wsOutgoing struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
	Event   string `json:"event,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one concurrent
// writer only and chunks race with notification forwarding.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(v wsOutgoing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// handleChatSocket is the streaming chat channel. Authentication and
// ownership are rejected with plain HTTP statuses before the upgrade.
func handleChatSocket(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			httpError(w, http.StatusUnauthorized, "authentication_error", "token query parameter is required")
			return
		}
		userID, err := deps.Tokens.Decode(token)
		if err != nil {
			httpError(w, http.StatusUnauthorized, "authentication_error", "invalid token")
			return
		}

		conversationID := chi.URLParam(r, "conversationID")
		conv, ok := deps.Store.GetConversation(conversationID)
		if !ok || conv.UserID != userID {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}

		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			deps.logger().Warn("websocket upgrade failed", "conversation_id", conversationID, "error", err)
			return
		}
		defer raw.Close()
		conn := &wsConn{conn: raw}

		sub := deps.Hub.Subscribe(conversationID)
		defer deps.Hub.Unsubscribe(sub)

		// Forward hub notifications until the subscription closes.
		go func() {
			for ev := range sub.Events() {
				if err := conn.send(wsOutgoing{Type: "notification", Event: ev}); err != nil {
					return
				}
			}
		}()

		for {
			_, payload, err := raw.ReadMessage()
			if err != nil {
				return
			}

			var in wsIncoming
			if err := json.Unmarshal(payload, &in); err != nil {
				if sendErr := conn.send(wsOutgoing{Type: "error", Message: "Payload inválido (JSON esperado)."}); sendErr != nil {
					return
				}
				continue
			}
			if strings.TrimSpace(in.Text) == "" {
				if sendErr := conn.send(wsOutgoing{Type: "error", Message: "Texto vacío"}); sendErr != nil {
					return
				}
				continue
			}

			deps.Tracker.StartTask(conversationID)
			writeFailed := false
			// Always drain the stream so generation and persistence
			// finish even when the peer is gone.
			for fragment := range deps.Sender.Execute(r.Context(), userID, conversationID, in.Text) {
				if writeFailed {
					continue
				}
				if err := conn.send(wsOutgoing{Type: "chunk", Content: fragment}); err != nil {
					writeFailed = true
				}
			}
			deps.Tracker.CompleteTask(conversationID)
			// Published only after the final chunk has been written, so
			// subscribers never see the finished event ahead of the reply.
			if deps.NotifyOnComplete && deps.Hub != nil {
				deps.Hub.NotifyFinished(conversationID)
			}
			if writeFailed {
				return
			}
		}
	}
}
