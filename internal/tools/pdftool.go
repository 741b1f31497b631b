package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kalambet/agente/internal/store"
)

const pdfUsage = "Formato inválido. Usa search:<document_id>:<keyword>"

// PDFTool answers keyword-count queries over previously extracted document
// text. Query format: search:<document_id>:<keyword>. All outcomes are
// user-facing text; malformed queries are not errors.
type PDFTool struct {
	store *store.Store
}

func NewPDFTool(s *store.Store) *PDFTool {
	return &PDFTool{store: s}
}

func (t *PDFTool) Name() string { return "pdf" }

func (t *PDFTool) Execute(_ context.Context, query string) (string, error) {
	rest, ok := strings.CutPrefix(query, "search:")
	if !ok {
		return pdfUsage, nil
	}
	documentID, keyword, ok := strings.Cut(rest, ":")
	if !ok {
		return pdfUsage, nil
	}

	doc, ok := t.store.GetDocument(strings.TrimSpace(documentID))
	if !ok {
		return "Documento no encontrado", nil
	}

	count := countKeyword(doc.Content, strings.TrimSpace(keyword))
	return fmt.Sprintf("Coincidencias: %d", count), nil
}

// countKeyword counts case-insensitive occurrences of keyword in text.
func countKeyword(text, keyword string) int {
	if keyword == "" {
		return 0
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(keyword))
	if err != nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}
