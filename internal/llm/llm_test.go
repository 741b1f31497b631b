package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// fixedBackend returns a canned completion.
type fixedBackend struct {
	response string
	err      error
}

func (b *fixedBackend) GenerateMessages(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	return b.response, b.err
}

func userMsg(text string) []Message {
	return []Message{{Role: "user", Content: text}}
}

func TestStreamMessages_LosslessRechunking(t *testing.T) {
	full := "hola mundo, esto es una respuesta bastante larga que se trocea en fragmentos"
	svc := NewService(&fixedBackend{response: full}, 7)

	stream, err := svc.StreamMessages(context.Background(), "", userMsg("saludo"))
	if err != nil {
		t.Fatalf("StreamMessages() error = %v", err)
	}

	var sb strings.Builder
	count := 0
	for frag := range stream {
		sb.WriteString(frag)
		count++
	}
	if sb.String() != full {
		t.Errorf("concatenated fragments = %q, want %q", sb.String(), full)
	}
	if count < 2 {
		t.Errorf("fragment count = %d, want chunked delivery", count)
	}
}

func TestStreamMessages_RespectsRuneBoundaries(t *testing.T) {
	full := "reunión mañana con Begoña en León, más café, más acción"
	svc := NewService(&fixedBackend{response: full}, 5)

	stream, err := svc.StreamMessages(context.Background(), "", userMsg("q"))
	if err != nil {
		t.Fatalf("StreamMessages() error = %v", err)
	}
	var sb strings.Builder
	for frag := range stream {
		if !strings.ContainsRune(full, []rune(frag)[0]) {
			t.Fatalf("fragment %q is not valid UTF-8 from the source", frag)
		}
		sb.WriteString(frag)
	}
	if sb.String() != full {
		t.Errorf("concatenated fragments = %q, want %q", sb.String(), full)
	}
}

func TestStreamMessages_BackendError(t *testing.T) {
	svc := NewService(&fixedBackend{err: fmt.Errorf("boom")}, 0)
	if _, err := svc.StreamMessages(context.Background(), "", userMsg("q")); err == nil {
		t.Error("StreamMessages() error = nil, want backend error")
	}
}

func TestGenerateMessages_NoUserMessage(t *testing.T) {
	svc := NewService(&fixedBackend{response: "nunca"}, 0)
	got, err := svc.GenerateMessages(context.Background(), "sys", []Message{{Role: "assistant", Content: "hola"}})
	if err != nil {
		t.Fatalf("GenerateMessages() error = %v", err)
	}
	if got != "No hay mensaje de usuario para responder." {
		t.Errorf("got %q, want the no-user-message sentinel", got)
	}
}

func TestSim_EchoesLastUserMessage(t *testing.T) {
	svc := NewService(Sim{}, 0)

	got, err := svc.GenerateMessages(context.Background(), "", userMsg("hola"))
	if err != nil {
		t.Fatalf("GenerateMessages() error = %v", err)
	}
	if got != "Respuesta simulada: hola" {
		t.Errorf("got %q", got)
	}

	got, err = svc.GenerateMessages(context.Background(), "contexto", userMsg("hola"))
	if err != nil {
		t.Fatalf("GenerateMessages() error = %v", err)
	}
	if got != "Respuesta simulada Contexto aplicado.: hola" {
		t.Errorf("got %q", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "hola"},
		{Role: "assistant", Content: "buenas"},
		{Role: "user", Content: "adiós"},
	}
	got := BuildPrompt("eres un agente", msgs)
	want := "System: eres un agente\nUser: hola\nAssistant: buenas\nUser: adiós"
	if got != want {
		t.Errorf("BuildPrompt() = %q, want %q", got, want)
	}
}

func TestBuildPrompt_SkipsEmptyContent(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: ""},
		{Role: "user", Content: "hola"},
	}
	got := BuildPrompt("", msgs)
	if got != "User: hola" {
		t.Errorf("BuildPrompt() = %q, want %q", got, "User: hola")
	}
}
