package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_GenerateMessages(t *testing.T) {
	var gotAuth string
	var gotBody completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"response": "hola desde el modelo"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "gpt-oss")
	got, err := c.GenerateMessages(context.Background(), "sistema", userMsg("hola"))
	if err != nil {
		t.Fatalf("GenerateMessages() error = %v", err)
	}
	if got != "hola desde el modelo" {
		t.Errorf("got %q", got)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "gpt-oss" {
		t.Errorf("Model = %q", gotBody.Model)
	}
	if gotBody.Message != "System: sistema\nUser: hola" {
		t.Errorf("Message = %q", gotBody.Message)
	}
}

func TestClient_MapsClientErrorsToText(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, "Error LLM: API key inválida."},
		{http.StatusTooManyRequests, "Error LLM: rate limit. Espera 5 segundos y reintenta."},
		{http.StatusBadRequest, "Error LLM: solicitud inválida (parámetros faltantes)."},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c := NewClient(srv.URL, "secret", "")
		got, err := c.GenerateMessages(context.Background(), "", userMsg("hola"))
		srv.Close()
		if err != nil {
			t.Errorf("status %d: error = %v, want text", tt.status, err)
			continue
		}
		if got != tt.want {
			t.Errorf("status %d: got %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestClient_UnexpectedStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "")
	if _, err := c.GenerateMessages(context.Background(), "", userMsg("hola")); err == nil {
		t.Error("error = nil, want unexpected status error")
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	c := NewClient("http://unused", "", "")
	got, err := c.GenerateMessages(context.Background(), "", userMsg("hola"))
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if got != "Error LLM: API key faltante." {
		t.Errorf("got %q", got)
	}
}

func TestExtractResponseText_FieldFallback(t *testing.T) {
	got := extractResponseText(map[string]any{"reply": "desde reply", "response": "  "})
	if got != "desde reply" {
		t.Errorf("got %q, want the first non-blank known field", got)
	}
}
