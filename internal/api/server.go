// Package api exposes the REST, websocket and MCP surfaces of the agent.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/agente/internal/agent"
	"github.com/kalambet/agente/internal/auth"
	"github.com/kalambet/agente/internal/calendar"
	"github.com/kalambet/agente/internal/llm"
	"github.com/kalambet/agente/internal/notify"
	"github.com/kalambet/agente/internal/store"
)

const maxRequestBodySize = 1 << 20 // 1MB
const maxUploadSize = 10 << 20     // 10MB

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Store    *store.Store
	Auth     *auth.Service
	Tokens   *auth.TokenService
	LLM      *llm.Service
	Calendar calendar.Client
	Sender   *agent.Sender
	Tracker  *agent.Tracker
	Hub      *notify.Hub
	Logger   *slog.Logger

	// NotifyOnComplete publishes a finished event per turn on the hub.
	NotifyOnComplete bool
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// NewHandler builds the HTTP router. Everything except /health and
// /auth/login requires a bearer token; the websocket endpoint carries its
// token as a query parameter instead.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/auth/login", handleLogin(deps))
	r.Get("/ws/chat/{conversationID}", handleChatSocket(deps))

	r.Group(func(r chi.Router) {
		r.Use(JWTAuth(deps.Tokens))

		r.Get("/conversations", handleListConversations(deps))
		r.Post("/conversations", handleCreateConversation(deps))
		r.Get("/conversations/{id}", handleGetConversation(deps))
		r.Put("/conversations/{id}", handleRenameConversation(deps))
		r.Delete("/conversations/{id}", handleDeleteConversation(deps))

		r.Post("/documents/upload", handleUploadDocument(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Post("/documents/query", handleQueryDocument(deps))

		r.Post("/events", handleCreateEvent(deps))
		r.Get("/events", handleListEvents(deps))
		r.Patch("/events/{id}", handleUpdateEvent(deps))
		r.Delete("/events/{id}", handleDeleteEvent(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
