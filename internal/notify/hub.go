// Package notify fans out per-conversation lifecycle events to live
// subscribers, typically websocket connections.
package notify

import (
	"log/slog"
	"sync"
)

// EventResponseFinished is published when a response generation completes.
const EventResponseFinished = "response_finished"

const subscriptionBuffer = 16

// Subscription is one listener on a conversation. Events delivers in
// publish order; when the buffer is full new events are dropped rather
// than blocking the publisher.
type Subscription struct {
	ConversationID string
	ch             chan string
}

func (s *Subscription) Events() <-chan string { return s.ch }

// Hub routes events to every active subscription of a conversation.
// Subscribers that were not registered at publish time never see the
// event; there is no replay.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string][]*Subscription
	logger *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string][]*Subscription),
		logger: slog.Default(),
	}
}

func (h *Hub) Subscribe(conversationID string) *Subscription {
	sub := &Subscription{
		ConversationID: conversationID,
		ch:             make(chan string, subscriptionBuffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[conversationID] = append(h.subs[conversationID], sub)
	return sub
}

// Unsubscribe removes the subscription by identity and closes its
// channel. Unsubscribing twice is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[sub.ConversationID]
	for i, s := range subs {
		if s == sub {
			h.subs[sub.ConversationID] = append(subs[:i], subs[i+1:]...)
			close(s.ch)
			break
		}
	}
	if len(h.subs[sub.ConversationID]) == 0 {
		delete(h.subs, sub.ConversationID)
	}
}

// NotifyFinished publishes the finished event to every current
// subscriber of the conversation.
func (h *Hub) NotifyFinished(conversationID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs[conversationID] {
		select {
		case sub.ch <- EventResponseFinished:
		default:
			h.logger.Warn("notification dropped, subscriber buffer full",
				"conversation_id", conversationID)
		}
	}
}
