package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/agente/internal/store"
)

// MemoryClient is an in-process Client used for development and tests.
// Events are stored in UTC and listed sorted by start time.
type MemoryClient struct {
	mu     sync.RWMutex
	events map[string]store.Event
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{events: make(map[string]store.Event)}
}

func (c *MemoryClient) CreateEvent(_ context.Context, userID, title string, startsAt, endsAt time.Time, metadata map[string]string) (store.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev := store.Event{
		ID:       uuid.New().String(),
		UserID:   userID,
		Title:    title,
		StartsAt: startsAt.UTC(),
		EndsAt:   endsAt.UTC(),
		Metadata: metadata,
	}
	if ev.Metadata == nil {
		ev.Metadata = map[string]string{}
	}
	c.events[ev.ID] = ev
	return ev, nil
}

func (c *MemoryClient) ListEvents(_ context.Context, userID string) ([]store.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []store.Event
	for _, ev := range c.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (c *MemoryClient) GetEvent(_ context.Context, eventID, userID string) (store.Event, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[eventID]
	if !ok || (userID != "" && ev.UserID != userID) {
		return store.Event{}, false, nil
	}
	return ev, true, nil
}

func (c *MemoryClient) UpdateEvent(_ context.Context, eventID string, upd Update) (store.Event, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[eventID]
	if !ok {
		return store.Event{}, false, nil
	}
	if upd.Title != nil {
		ev.Title = *upd.Title
	}
	if upd.StartsAt != nil {
		ev.StartsAt = upd.StartsAt.UTC()
	}
	if upd.EndsAt != nil {
		ev.EndsAt = upd.EndsAt.UTC()
	}
	c.events[eventID] = ev
	return ev, true, nil
}

func (c *MemoryClient) DeleteEvent(_ context.Context, eventID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[eventID]; !ok {
		return false, nil
	}
	delete(c.events, eventID)
	return true, nil
}
