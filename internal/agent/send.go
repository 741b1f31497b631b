package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kalambet/agente/internal/llm"
	"github.com/kalambet/agente/internal/store"
	"github.com/kalambet/agente/internal/tools"
)

// FinishedMarker is appended as the final fragment of every turn so
// clients can detect end-of-response in-band.
const FinishedMarker = "\n[Respuesta finalizada]"

// toolCallRe matches the explicit tool invocation syntax
// "tool:<name>:<query>" (a space after the name also separates).
var toolCallRe = regexp.MustCompile(`^tool:([a-zA-Z0-9_\-]+)\s*[: ]\s*(.+)$`)

// Generator is the slice of the LLM service the orchestrator needs.
type Generator interface {
	StreamMessages(ctx context.Context, systemPrompt string, messages []llm.Message) (<-chan string, error)
}

// CalendarHandler classifies and executes natural-language calendar
// requests. handled is false when the turn is not about the calendar.
type CalendarHandler interface {
	Handle(ctx context.Context, userID, text string, history []llm.Message) (reply string, handled bool, err error)
}

// Config tunes the orchestrator.
type Config struct {
	// MaxHistoryMessages caps how many turns are sent to the LLM.
	MaxHistoryMessages int
}

const defaultMaxHistory = 10

// Sender runs one conversational turn end to end and streams the reply.
type Sender struct {
	store   *store.Store
	llm     Generator
	tools   *tools.Registry
	intents CalendarHandler
	tracker *Tracker
	cfg     Config
	logger  *slog.Logger
}

func NewSender(s *store.Store, gen Generator, reg *tools.Registry, intents CalendarHandler, tracker *Tracker, cfg Config) *Sender {
	if cfg.MaxHistoryMessages <= 0 {
		cfg.MaxHistoryMessages = defaultMaxHistory
	}
	return &Sender{
		store:   s,
		llm:     gen,
		tools:   reg,
		intents: intents,
		tracker: tracker,
		cfg:     cfg,
		logger:  slog.Default(),
	}
}

// Execute runs the turn in the background and returns the fragment
// stream. The channel is closed after the finished marker. Cancelling ctx
// stops delivery but not the turn itself: generation and persistence run
// to completion so the transcript never loses the assistant reply.
func (s *Sender) Execute(ctx context.Context, userID, conversationID, text string) <-chan string {
	out := make(chan string)
	go s.run(ctx, out, userID, conversationID, text)
	return out
}

func (s *Sender) run(ctx context.Context, out chan<- string, userID, conversationID, text string) {
	defer close(out)

	// Collaborator calls survive consumer disconnects.
	workCtx := context.WithoutCancel(ctx)

	emitting := true
	emit := func(fragment string) {
		if !emitting {
			return
		}
		select {
		case out <- fragment:
		case <-ctx.Done():
			emitting = false
		}
	}

	conv, err := s.resolveConversation(userID, conversationID)
	if err != nil {
		s.logger.Error("conversation resolution failed", "user_id", userID, "error", err)
		emit("Error interno al iniciar la conversación. Intenta nuevamente.")
		emit(FinishedMarker)
		return
	}
	s.tracker.SetActiveConversation(userID, conv.ID)

	s.store.AddMessage(&store.Message{
		ConversationID: conv.ID,
		Role:           store.RoleUser,
		Content:        text,
	})

	reply := s.respond(workCtx, userID, conv, text, emit)
	if reply != "" {
		s.store.AddMessage(&store.Message{
			ConversationID: conv.ID,
			Role:           store.RoleAssistant,
			Content:        reply,
		})
	}
	emit(FinishedMarker)
}

// respond produces the assistant reply for the turn, emitting fragments
// as they become available, and returns the full text for persistence.
func (s *Sender) respond(ctx context.Context, userID string, conv *store.Conversation, text string, emit func(string)) string {
	if reply, ok := s.maybeCallTool(ctx, text); ok {
		emit(reply)
		return reply
	}

	history := s.store.ListMessagesByConversation(conv.ID)
	docs := s.store.ListDocumentsByConversation(conv.ID)
	useDocs := ShouldUseDocumentContext(text, history, docs)

	if !useDocs && s.intents != nil {
		payload := BuildMessagePayload(history, s.cfg.MaxHistoryMessages)
		reply, handled, err := s.intents.Handle(ctx, userID, text, payload[:max(0, len(payload)-1)])
		if err != nil {
			s.logger.Error("calendar intent failed", "conversation_id", conv.ID, "error", err)
			reply = "No pude procesar la acción de calendario por un error interno."
			emit(reply)
			return reply
		}
		if handled {
			emit(reply)
			return reply
		}
	}

	var focus string
	if useDocs {
		focus = BuildDocumentFocus(text, docs)
	}
	user, _ := s.store.GetUser(userID)
	system := BuildSystemPrompt(&user, conv.ID, docs, focus)
	payload := BuildMessagePayload(history, s.cfg.MaxHistoryMessages)

	fragments, err := s.llm.StreamMessages(ctx, system, payload)
	if err != nil {
		s.logger.Error("generation failed", "conversation_id", conv.ID, "error", err)
		reply := "Ocurrió un error al generar la respuesta. Intenta nuevamente."
		emit(reply)
		return reply
	}

	var full strings.Builder
	for fragment := range fragments {
		full.WriteString(fragment)
		emit(fragment)
	}
	return full.String()
}

// maybeCallTool intercepts the explicit "tool:<name>:<query>" syntax.
func (s *Sender) maybeCallTool(ctx context.Context, text string) (string, bool) {
	m := toolCallRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil || s.tools == nil {
		return "", false
	}
	name, query := m[1], m[2]

	tool, ok := s.tools.Get(name)
	if !ok {
		return fmt.Sprintf("Herramienta no encontrada: %s", name), true
	}
	result, err := tool.Execute(ctx, query)
	if err != nil {
		s.logger.Error("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Error al ejecutar la herramienta %s.", name), true
	}
	return fmt.Sprintf("Resultado de herramienta (%s): %s", name, result), true
}

// resolveConversation returns the conversation the message belongs to. An
// explicit id wins when it exists and is the user's; an untargeted message
// goes to the user's active conversation. Everything else opens a fresh
// conversation rather than failing the turn.
func (s *Sender) resolveConversation(userID, conversationID string) (*store.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing user id")
	}
	if conversationID != "" {
		if conv, ok := s.store.GetConversation(conversationID); ok && conv.UserID == userID {
			return conv, nil
		}
		return s.store.AddConversation(&store.Conversation{UserID: userID, Title: "Nueva conversación"}), nil
	}
	if active, ok := s.tracker.ActiveConversation(userID); ok {
		if conv, ok := s.store.GetConversation(active); ok && conv.UserID == userID {
			return conv, nil
		}
	}
	return s.store.AddConversation(&store.Conversation{UserID: userID, Title: "Nueva conversación"}), nil
}
