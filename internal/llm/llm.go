// Package llm provides the text-generation collaborator: a Backend produces
// one completion for a prompt, and Service layers the simple-prompt and
// streaming entry points on top of it.
package llm

import (
	"context"
	"strings"
)

// Message is one chat turn in the format every backend accepts.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Backend produces a single completion for a system prompt plus history.
type Backend interface {
	GenerateMessages(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}

const defaultChunkSize = 40

// Service wraps a Backend with the simple-prompt entry point and chunked
// streaming. Streaming is a lossless re-chunking of the single-shot result:
// concatenating every fragment always equals GenerateMessages output for
// the same inputs.
type Service struct {
	backend   Backend
	chunkSize int
}

// NewService creates a Service. If chunkSize <= 0, the default (40 runes
// per fragment) is used.
func NewService(backend Backend, chunkSize int) *Service {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Service{backend: backend, chunkSize: chunkSize}
}

// Generate answers a bare prompt with no system context.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	return s.GenerateMessages(ctx, "", []Message{{Role: "user", Content: prompt}})
}

// GenerateMessages produces one completion for the system prompt and history.
func (s *Service) GenerateMessages(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	if lastUserMessage(messages) == "" {
		return "No hay mensaje de usuario para responder.", nil
	}
	return s.backend.GenerateMessages(ctx, systemPrompt, messages)
}

// StreamMessages generates the full completion and delivers it as a finite,
// non-restartable sequence of fragments. The channel is closed after the
// last fragment; each send is a suspension point so concurrent streams
// interleave. Cancelling ctx stops delivery early.
func (s *Service) StreamMessages(ctx context.Context, systemPrompt string, messages []Message) (<-chan string, error) {
	full, err := s.GenerateMessages(ctx, systemPrompt, messages)
	if err != nil {
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		runes := []rune(full)
		for i := 0; i < len(runes); i += s.chunkSize {
			end := i + s.chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			select {
			case out <- string(runes[i:end]):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// BuildPrompt flattens a system prompt and history into the single-prompt
// format hosted completion APIs expect.
func BuildPrompt(systemPrompt string, messages []Message) string {
	var lines []string
	if systemPrompt != "" {
		lines = append(lines, "System: "+systemPrompt)
	}
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		lines = append(lines, titleRole(m.Role)+": "+m.Content)
	}
	if len(lines) == 0 {
		return lastUserMessage(messages)
	}
	return strings.Join(lines, "\n")
}

func titleRole(role string) string {
	if role == "" {
		return "User"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
