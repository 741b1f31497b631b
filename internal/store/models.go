package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist or is not
// visible to the requesting user.
var ErrNotFound = errors.New("not found")

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type User struct {
	ID        string
	Username  string
	FullName  string
	CreatedAt time.Time
}

type Conversation struct {
	ID         string
	UserID     string
	Title      string
	MessageIDs []string // append-only, insertion order
	CreatedAt  time.Time
}

type Message struct {
	ID             string
	ConversationID string
	Role           string // RoleUser or RoleAssistant
	Content        string
	CreatedAt      time.Time
}

// Event is a read-through projection of a calendar entry. The calendar
// collaborator owns the event lifecycle; this struct is never authoritative.
type Event struct {
	ID       string
	UserID   string
	Title    string
	StartsAt time.Time
	EndsAt   time.Time
	Metadata map[string]string
}

type Document struct {
	ID             string
	UserID         string
	ConversationID string // optional; must belong to the same user when set
	Filename       string
	Content        string // extracted plain text, may be empty on extraction failure
	UploadedAt     time.Time
}
