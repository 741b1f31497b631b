package tools

import (
	"context"
	"testing"

	"github.com/kalambet/agente/internal/store"
)

type echoTool struct{}

func (echoTool) Name() string { return "echo" }
func (echoTool) Execute(_ context.Context, query string) (string, error) {
	return "ok:" + query, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool{})

	tool, ok := r.Get("echo")
	if !ok {
		t.Fatal("Get(echo) not found")
	}
	got, err := tool.Execute(context.Background(), "hola")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "ok:hola" {
		t.Errorf("Execute() = %q", got)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) = ok, want not found")
	}
}

func TestPDFTool_KeywordSearch(t *testing.T) {
	s := store.New()
	doc := s.AddDocument(&store.Document{
		UserID:   "alice",
		Filename: "informe.pdf",
		Content:  "El presupuesto anual. Presupuesto revisado. PRESUPUESTO final.",
	})

	tool := NewPDFTool(s)
	got, err := tool.Execute(context.Background(), "search:"+doc.ID+":presupuesto")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "Coincidencias: 3" {
		t.Errorf("Execute() = %q, want Coincidencias: 3", got)
	}
}

func TestPDFTool_Sentinels(t *testing.T) {
	tool := NewPDFTool(store.New())

	tests := []struct {
		query string
		want  string
	}{
		{"buscar algo", pdfUsage},
		{"search:sin-separador", pdfUsage},
		{"search:doc_99:clave", "Documento no encontrado"},
	}
	for _, tt := range tests {
		got, err := tool.Execute(context.Background(), tt.query)
		if err != nil {
			t.Errorf("Execute(%q) error = %v", tt.query, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Execute(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
