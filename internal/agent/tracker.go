package agent

import (
	"sync"

	"github.com/kalambet/agente/internal/store"
)

// Task tracks one in-flight response generation. Completion is observable
// through Done and is idempotent.
type Task struct {
	done chan struct{}
	once sync.Once
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish() { t.once.Do(func() { close(t.done) }) }

// Done is closed when the response has finished generating.
func (t *Task) Done() <-chan struct{} { return t.done }

// Finished reports completion without blocking.
func (t *Task) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Tracker records which conversation each user is actively in and which
// conversations have a response generation still running.
type Tracker struct {
	store *store.Store

	mu           sync.RWMutex
	activeByUser map[string]string
	tasks        map[string]*Task
}

func NewTracker(s *store.Store) *Tracker {
	return &Tracker{
		store:        s,
		activeByUser: make(map[string]string),
		tasks:        make(map[string]*Task),
	}
}

// CreateConversation opens a new conversation for the user and marks it
// as their active one.
func (t *Tracker) CreateConversation(userID, title string) *store.Conversation {
	conv := t.store.AddConversation(&store.Conversation{UserID: userID, Title: title})
	t.SetActiveConversation(userID, conv.ID)
	return conv
}

func (t *Tracker) SetActiveConversation(userID, conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeByUser[userID] = conversationID
}

func (t *Tracker) ActiveConversation(userID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.activeByUser[userID]
	return id, ok
}

// ListActiveConversations snapshots the user-to-conversation map.
func (t *Tracker) ListActiveConversations() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.activeByUser))
	for k, v := range t.activeByUser {
		out[k] = v
	}
	return out
}

// StartTask registers a pending response for the conversation, replacing
// any previous task.
func (t *Tracker) StartTask(conversationID string) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	task := newTask()
	t.tasks[conversationID] = task
	return task
}

func (t *Tracker) GetTask(conversationID string) (*Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	task, ok := t.tasks[conversationID]
	return task, ok
}

// CompleteTask marks the conversation's pending response as finished.
// Completing an absent or already finished task is a no-op.
func (t *Tracker) CompleteTask(conversationID string) {
	t.mu.RLock()
	task, ok := t.tasks[conversationID]
	t.mu.RUnlock()
	if ok {
		task.finish()
	}
}

// HasPendingResponse reports whether a generation is still running for
// the conversation.
func (t *Tracker) HasPendingResponse(conversationID string) bool {
	t.mu.RLock()
	task, ok := t.tasks[conversationID]
	t.mu.RUnlock()
	return ok && !task.Finished()
}
