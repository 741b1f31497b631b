package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/agente/internal/store"
)

// HTTPClient talks to a remote calendar service over a small REST API
// (POST/GET/PATCH/DELETE on /events). A 404 maps to the absent result;
// any other non-2xx status is an external service error.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// eventPayload is the wire shape of an event.
type eventPayload struct {
	ID       string            `json:"id,omitempty"`
	UserID   string            `json:"user_id,omitempty"`
	Title    string            `json:"title,omitempty"`
	StartsAt *time.Time        `json:"starts_at,omitempty"`
	EndsAt   *time.Time        `json:"ends_at,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (p eventPayload) toEvent() store.Event {
	ev := store.Event{
		ID:       p.ID,
		UserID:   p.UserID,
		Title:    p.Title,
		Metadata: p.Metadata,
	}
	if p.StartsAt != nil {
		ev.StartsAt = p.StartsAt.UTC()
	}
	if p.EndsAt != nil {
		ev.EndsAt = p.EndsAt.UTC()
	}
	if ev.Metadata == nil {
		ev.Metadata = map[string]string{}
	}
	return ev
}

func (c *HTTPClient) CreateEvent(ctx context.Context, userID, title string, startsAt, endsAt time.Time, metadata map[string]string) (store.Event, error) {
	start, end := startsAt.UTC(), endsAt.UTC()
	body := eventPayload{UserID: userID, Title: title, StartsAt: &start, EndsAt: &end, Metadata: metadata}

	var created eventPayload
	status, err := c.do(ctx, http.MethodPost, "/events", body, &created)
	if err != nil {
		return store.Event{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return store.Event{}, fmt.Errorf("calendar create: unexpected status %d", status)
	}
	return created.toEvent(), nil
}

func (c *HTTPClient) ListEvents(ctx context.Context, userID string) ([]store.Event, error) {
	var payload []eventPayload
	status, err := c.do(ctx, http.MethodGet, "/events?user_id="+userID, nil, &payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("calendar list: unexpected status %d", status)
	}
	out := make([]store.Event, len(payload))
	for i, p := range payload {
		out[i] = p.toEvent()
	}
	return out, nil
}

func (c *HTTPClient) GetEvent(ctx context.Context, eventID, userID string) (store.Event, bool, error) {
	var payload eventPayload
	status, err := c.do(ctx, http.MethodGet, "/events/"+eventID, nil, &payload)
	if err != nil {
		return store.Event{}, false, err
	}
	switch status {
	case http.StatusOK:
		ev := payload.toEvent()
		if ev.UserID == "" {
			ev.UserID = userID
		}
		return ev, true, nil
	case http.StatusNotFound:
		return store.Event{}, false, nil
	default:
		return store.Event{}, false, fmt.Errorf("calendar get: unexpected status %d", status)
	}
}

func (c *HTTPClient) UpdateEvent(ctx context.Context, eventID string, upd Update) (store.Event, bool, error) {
	body := eventPayload{Title: deref(upd.Title)}
	if upd.StartsAt != nil {
		start := upd.StartsAt.UTC()
		body.StartsAt = &start
	}
	if upd.EndsAt != nil {
		end := upd.EndsAt.UTC()
		body.EndsAt = &end
	}

	var updated eventPayload
	status, err := c.do(ctx, http.MethodPatch, "/events/"+eventID, body, &updated)
	if err != nil {
		return store.Event{}, false, err
	}
	switch status {
	case http.StatusOK:
		return updated.toEvent(), true, nil
	case http.StatusNotFound:
		return store.Event{}, false, nil
	default:
		return store.Event{}, false, fmt.Errorf("calendar update: unexpected status %d", status)
	}
}

func (c *HTTPClient) DeleteEvent(ctx context.Context, eventID string) (bool, error) {
	status, err := c.do(ctx, http.MethodDelete, "/events/"+eventID, nil, nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("calendar delete: unexpected status %d", status)
	}
}

// do performs one request, decoding the response into out when it is
// non-nil and the status carries a body worth decoding.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating calendar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calendar request: %w", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding calendar response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
