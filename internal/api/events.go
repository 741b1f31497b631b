package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/agente/internal/calendar"
	"github.com/kalambet/agente/internal/store"
)

type EventResponse struct {
	ID       string            `json:"id"`
	UserID   string            `json:"user_id"`
	Title    string            `json:"title"`
	StartsAt time.Time         `json:"starts_at"`
	EndsAt   time.Time         `json:"ends_at"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func toEventResponse(ev store.Event) EventResponse {
	return EventResponse{
		ID:       ev.ID,
		UserID:   ev.UserID,
		Title:    ev.Title,
		StartsAt: ev.StartsAt,
		EndsAt:   ev.EndsAt,
		Metadata: ev.Metadata,
	}
}

type eventCreateRequest struct {
	Title    string            `json:"title"`
	StartsAt time.Time         `json:"starts_at"`
	EndsAt   time.Time         `json:"ends_at"`
	Metadata map[string]string `json:"metadata"`
}

func handleCreateEvent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req eventCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Title == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "title is required")
			return
		}
		if req.StartsAt.IsZero() || req.EndsAt.IsZero() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "starts_at and ends_at are required")
			return
		}
		if !req.EndsAt.After(req.StartsAt) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "ends_at must be after starts_at")
			return
		}

		ev, err := deps.Calendar.CreateEvent(r.Context(), CurrentUser(r), req.Title, req.StartsAt, req.EndsAt, req.Metadata)
		if err != nil {
			httpError(w, http.StatusBadGateway, "external_service_error", "calendar create failed: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, toEventResponse(ev))
	}
}

func handleListEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := deps.Calendar.ListEvents(r.Context(), CurrentUser(r))
		if err != nil {
			httpError(w, http.StatusBadGateway, "external_service_error", "calendar list failed: %v", err)
			return
		}
		out := make([]EventResponse, len(events))
		for i, ev := range events {
			out[i] = toEventResponse(ev)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type eventUpdateRequest struct {
	Title    *string    `json:"title"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

func handleUpdateEvent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req eventUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Title == nil && req.StartsAt == nil && req.EndsAt == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no fields to update")
			return
		}

		eventID := chi.URLParam(r, "id")
		if !eventOwnedByUser(deps, r, eventID) {
			httpError(w, http.StatusNotFound, "not_found", "event not found")
			return
		}

		ev, found, err := deps.Calendar.UpdateEvent(r.Context(), eventID, calendar.Update{
			Title:    req.Title,
			StartsAt: req.StartsAt,
			EndsAt:   req.EndsAt,
		})
		if err != nil {
			httpError(w, http.StatusBadGateway, "external_service_error", "calendar update failed: %v", err)
			return
		}
		if !found {
			httpError(w, http.StatusNotFound, "not_found", "event not found")
			return
		}
		writeJSON(w, http.StatusOK, toEventResponse(ev))
	}
}

func handleDeleteEvent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "id")
		if !eventOwnedByUser(deps, r, eventID) {
			httpError(w, http.StatusNotFound, "not_found", "event not found")
			return
		}

		deleted, err := deps.Calendar.DeleteEvent(r.Context(), eventID)
		if err != nil {
			httpError(w, http.StatusBadGateway, "external_service_error", "calendar delete failed: %v", err)
			return
		}
		if !deleted {
			httpError(w, http.StatusNotFound, "not_found", "event not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// eventOwnedByUser checks the event exists and belongs to the caller.
// Provider errors are treated as not-owned; the mutation path reports
// them properly on its own call.
func eventOwnedByUser(deps Deps, r *http.Request, eventID string) bool {
	_, found, err := deps.Calendar.GetEvent(r.Context(), eventID, CurrentUser(r))
	return err == nil && found
}
