// Package calendar defines the calendar collaborator. Event lifecycle is
// fully delegated to a Client; the local store only ever holds a
// read-through projection.
package calendar

import (
	"context"
	"time"

	"github.com/kalambet/agente/internal/store"
)

// Update carries the optional fields of an event patch. Nil fields are
// left untouched.
type Update struct {
	Title    *string
	StartsAt *time.Time
	EndsAt   *time.Time
}

// Client is the calendar provider interface. Get, Update and Delete report
// a missing event through their boolean result, not an error; errors mean
// the provider itself failed.
type Client interface {
	CreateEvent(ctx context.Context, userID, title string, startsAt, endsAt time.Time, metadata map[string]string) (store.Event, error)
	ListEvents(ctx context.Context, userID string) ([]store.Event, error)
	GetEvent(ctx context.Context, eventID, userID string) (store.Event, bool, error)
	UpdateEvent(ctx context.Context, eventID string, upd Update) (store.Event, bool, error)
	DeleteEvent(ctx context.Context, eventID string) (bool, error)
}

// ToolName is the registry name the calendar tool is registered under; the
// intent parser is only active when a client is wired.
const ToolName = "calendar"

// Tool exposes the calendar client in the tool registry. Execute is
// informational — natural-language calendar requests are handled by the
// intent parser, which drives the typed Client methods directly.
type Tool struct {
	client Client
}

func NewTool(c Client) *Tool {
	return &Tool{client: c}
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Client() Client { return t.client }

func (t *Tool) Execute(_ context.Context, _ string) (string, error) {
	return "Herramienta de calendario lista. Pide crear, listar, editar o eliminar eventos en lenguaje natural.", nil
}
