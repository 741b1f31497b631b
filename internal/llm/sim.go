package llm

import (
	"context"
	"fmt"
)

// Sim is a deterministic offline Backend used when no provider is
// configured. It echoes the last user message, noting whether system
// context was applied.
type Sim struct{}

func (Sim) GenerateMessages(_ context.Context, systemPrompt string, messages []Message) (string, error) {
	last := lastUserMessage(messages)
	hint := ""
	if systemPrompt != "" {
		hint = " Contexto aplicado."
	}
	return fmt.Sprintf("Respuesta simulada%s: %s", hint, last), nil
}
