package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/agente/internal/store"
)

type ConversationResponse struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ConversationDetailResponse struct {
	ID       string            `json:"id"`
	UserID   string            `json:"user_id"`
	Title    string            `json:"title"`
	Messages []MessageResponse `json:"messages"`
}

func toConversationResponse(c *store.Conversation) ConversationResponse {
	return ConversationResponse{ID: c.ID, UserID: c.UserID, Title: c.Title}
}

func handleListConversations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r)
		convs := deps.Store.ListConversationsByUser(userID)
		sort.Slice(convs, func(i, j int) bool {
			return convs[i].CreatedAt.Before(convs[j].CreatedAt)
		})

		out := make([]ConversationResponse, len(convs))
		for i, c := range convs {
			out[i] = toConversationResponse(c)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type createConversationRequest struct {
	Title string `json:"title"`
}

func handleCreateConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req createConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Title == "" {
			req.Title = "Nueva conversación"
		}

		conv := deps.Tracker.CreateConversation(CurrentUser(r), req.Title)
		writeJSON(w, http.StatusCreated, toConversationResponse(conv))
	}
}

// ownedConversation loads the conversation and enforces ownership.
// Foreign conversations are indistinguishable from absent ones.
func ownedConversation(deps Deps, r *http.Request, id string) (*store.Conversation, bool) {
	conv, ok := deps.Store.GetConversation(id)
	if !ok || conv.UserID != CurrentUser(r) {
		return nil, false
	}
	return conv, true
}

func handleGetConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, ok := ownedConversation(deps, r, chi.URLParam(r, "id"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}

		msgs := deps.Store.ListMessagesByConversation(conv.ID)
		out := ConversationDetailResponse{
			ID:       conv.ID,
			UserID:   conv.UserID,
			Title:    conv.Title,
			Messages: make([]MessageResponse, len(msgs)),
		}
		for i, m := range msgs {
			out.Messages[i] = MessageResponse{
				ID:        m.ID,
				Role:      m.Role,
				Content:   m.Content,
				CreatedAt: m.CreatedAt,
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type renameConversationRequest struct {
	Title string `json:"title"`
}

func handleRenameConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req renameConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Title == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "title is required")
			return
		}

		conv, ok := ownedConversation(deps, r, chi.URLParam(r, "id"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		deps.Store.UpdateConversationTitle(conv.ID, req.Title)
		writeJSON(w, http.StatusOK, ConversationResponse{ID: conv.ID, UserID: conv.UserID, Title: req.Title})
	}
}

func handleDeleteConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, ok := ownedConversation(deps, r, chi.URLParam(r, "id"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		deps.Store.DeleteConversation(conv.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}
