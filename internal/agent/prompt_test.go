package agent

import (
	"strings"
	"testing"

	"github.com/kalambet/agente/internal/store"
)

func TestIsDocumentQuery(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"resume el PDF", true},
		{"qué dice el documento", true},
		{"abre el archivo adjunto", true},
		{"agenda una reunión", false},
		{"documentación", false},
	}
	for _, tt := range tests {
		if got := IsDocumentQuery(tt.text); got != tt.want {
			t.Errorf("IsDocumentQuery(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestShouldUseDocumentContext(t *testing.T) {
	docs := []*store.Document{{ID: "doc_1", Filename: "informe.pdf", Content: "x"}}

	if !ShouldUseDocumentContext("resume el pdf", nil, nil) {
		t.Error("explicit keyword not detected")
	}
	if ShouldUseDocumentContext("hola", nil, nil) {
		t.Error("plain text with no docs flagged")
	}

	history := []*store.Message{{Role: store.RoleUser, Content: "qué dice el documento"}}
	if !ShouldUseDocumentContext("y la segunda sección?", history, docs) {
		t.Error("recent document turn not carried forward")
	}

	old := []*store.Message{
		{Content: "qué dice el documento"},
		{Content: "a"}, {Content: "b"}, {Content: "c"},
	}
	if ShouldUseDocumentContext("hola", old, docs) {
		t.Error("stale document turn outside the window still counted")
	}

	if !ShouldUseDocumentContext("háblame de informe.pdf", nil, docs) {
		t.Error("filename mention not detected")
	}
	if ShouldUseDocumentContext("háblame de informe", nil, docs) {
		t.Error("partial filename treated as a mention")
	}
}

func TestBuildMessagePayload(t *testing.T) {
	var history []*store.Message
	for i := 0; i < 5; i++ {
		history = append(history, &store.Message{Role: store.RoleUser, Content: string(rune('a' + i))})
	}
	got := BuildMessagePayload(history, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Content != "c" || got[2].Content != "e" {
		t.Errorf("payload = %+v", got)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	user := &store.User{ID: "alice", Username: "alice"}
	docs := []*store.Document{{Filename: "informe.pdf", Content: "presupuesto anual"}}

	got := BuildSystemPrompt(user, "conv_1", docs, "")
	for _, want := range []string{"Usuario: alice", "Conversación: conv_1", "- informe.pdf: presupuesto anual"} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildSystemPrompt() missing %q in %q", want, got)
		}
	}

	got = BuildSystemPrompt(nil, "conv_1", nil, "")
	if !strings.Contains(got, "Usuario: desconocido") {
		t.Errorf("missing anonymous user fallback: %q", got)
	}
	if !strings.Contains(got, "(sin PDFs asociados a esta conversación)") {
		t.Errorf("missing empty docs placeholder: %q", got)
	}

	got = BuildSystemPrompt(user, "conv_1", docs, "Documento: informe.pdf\ncontenido")
	if !strings.Contains(got, "Contexto PDF prioritario") {
		t.Errorf("missing focus block: %q", got)
	}
}

func TestBuildDocumentFocus(t *testing.T) {
	docs := []*store.Document{
		{ID: "doc_1", Filename: "viejo.pdf", Content: "texto viejo"},
		{ID: "doc_2", Filename: "nuevo.pdf", Content: "texto nuevo"},
	}

	got := BuildDocumentFocus("qué dice el pdf", docs)
	if !strings.HasPrefix(got, "Documento: nuevo.pdf\n") {
		t.Errorf("latest upload not chosen: %q", got)
	}

	got = BuildDocumentFocus("qué dice viejo.pdf", docs)
	if !strings.HasPrefix(got, "Documento: viejo.pdf\n") {
		t.Errorf("filename mention not honored: %q", got)
	}

	got = BuildDocumentFocus("pdf", []*store.Document{{ID: "doc_3", Filename: "escaneado.pdf"}})
	if !strings.Contains(got, "No se pudo extraer texto legible del PDF") {
		t.Errorf("missing OCR fallback: %q", got)
	}

	if got := BuildDocumentFocus("pdf", nil); got != "" {
		t.Errorf("focus for no docs = %q, want empty", got)
	}
}

func TestBuildDocumentFocus_Truncates(t *testing.T) {
	long := strings.Repeat("a", docFocusLimit+100)
	got := BuildDocumentFocus("pdf", []*store.Document{{ID: "doc_1", Filename: "x.pdf", Content: long}})
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long content not truncated: len %d", len(got))
	}
}

func TestBuildDocumentQueryPrompt(t *testing.T) {
	doc := &store.Document{Filename: "informe.pdf", Content: "el presupuesto es 100"}
	got := BuildDocumentQueryPrompt(doc, "cuál es el presupuesto")
	for _, want := range []string{
		"Documento: informe.pdf",
		"el presupuesto es 100",
		"Pregunta: cuál es el presupuesto",
		"No se encontró información en el documento.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	got := sanitizeText("hola\x00\x01  mundo\n\n\ttabulado")
	if got != "hola mundo tabulado" {
		t.Errorf("sanitizeText() = %q", got)
	}
}
