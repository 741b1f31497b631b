package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Store keeps every entity in process memory. Keyed lookups are O(1);
// list operations are linear scans filtered by owner or conversation and
// make no ordering guarantee of their own — callers that need history
// order sort by creation time (insertion order breaks exact ties via the
// numeric ID suffix).
//
// Synthetic IDs (conv_N, msg_N, doc_N) are minted from per-entity counters
// under the store lock, so they are monotonically increasing for the life
// of the process even across deletions.
type Store struct {
	mu            sync.RWMutex
	users         map[string]User
	conversations map[string]*Conversation
	messages      map[string]*Message
	events        map[string]Event
	documents     map[string]*Document

	convSeq int
	msgSeq  int
	docSeq  int
}

func New() *Store {
	return &Store{
		users:         make(map[string]User),
		conversations: make(map[string]*Conversation),
		messages:      make(map[string]*Message),
		events:        make(map[string]Event),
		documents:     make(map[string]*Document),
	}
}

func (s *Store) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
}

func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// AddConversation stores the conversation, minting an ID and stamping the
// creation time when they are unset, and returns it.
func (s *Store) AddConversation(c *Conversation) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		s.convSeq++
		c.ID = fmt.Sprintf("conv_%d", s.convSeq)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.conversations[c.ID] = c
	return c
}

func (s *Store) GetConversation(id string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	return c, ok
}

func (s *Store) ListConversationsByUser(userID string) []*Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Conversation
	for _, c := range s.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

// UpdateConversationTitle sets the title. Concurrent updates are
// last-write-wins.
func (s *Store) UpdateConversationTitle(id, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return false
	}
	c.Title = title
	return true
}

// DeleteConversation removes the conversation and its messages. It is
// idempotent: deleting an absent conversation is a no-op. Ownership checks
// belong to the caller.
func (s *Store) DeleteConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	for msgID, m := range s.messages {
		if m.ConversationID == id {
			delete(s.messages, msgID)
		}
	}
}

// AddMessage stores the message, minting an ID and stamping the creation
// time when they are unset, and appends it to its conversation's ordered
// message list.
func (s *Store) AddMessage(m *Message) *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		s.msgSeq++
		m.ID = fmt.Sprintf("msg_%d", s.msgSeq)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.messages[m.ID] = m
	if c, ok := s.conversations[m.ConversationID]; ok {
		c.MessageIDs = append(c.MessageIDs, m.ID)
	}
	return m
}

// ListMessagesByConversation returns the conversation's messages sorted by
// creation time, with the numeric ID suffix breaking exact timestamp ties
// so the result always reflects insertion order.
func (s *Store) ListMessagesByConversation(conversationID string) []*Message {
	s.mu.RLock()
	var out []*Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return idSeq(out[i].ID) < idSeq(out[j].ID)
	})
	return out
}

func (s *Store) CountMessages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) AddEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

func (s *Store) ListEventsByUser(userID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// AddDocument stores the document, minting an ID and stamping the upload
// time when they are unset, and returns it.
func (s *Store) AddDocument(d *Document) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		s.docSeq++
		d.ID = fmt.Sprintf("doc_%d", s.docSeq)
	}
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}
	s.documents[d.ID] = d
	return d
}

func (s *Store) GetDocument(id string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	return d, ok
}

func (s *Store) ListDocumentsByUser(userID string) []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Document
	for _, d := range s.documents {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out
}

func (s *Store) ListDocumentsByConversation(conversationID string) []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Document
	for _, d := range s.documents {
		if d.ConversationID == conversationID {
			out = append(out, d)
		}
	}
	return out
}

// idSeq extracts the numeric suffix of a synthetic ID (msg_12 -> 12).
func idSeq(id string) int {
	idx := strings.LastIndexByte(id, '_')
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
