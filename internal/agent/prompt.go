// Package agent orchestrates one conversational turn: persistence, tool
// dispatch, calendar intent handling, prompt assembly and streamed
// generation.
package agent

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/kalambet/agente/internal/llm"
	"github.com/kalambet/agente/internal/store"
)

var (
	docKeywordRe    = regexp.MustCompile(`(?i)\b(pdf|documento|archivo|fichero|adjunto)\b`)
	trailingDigitRe = regexp.MustCompile(`(\d+)$`)
)

const (
	docPreviewLimit = 500
	docFocusLimit   = 2000
	docQueryLimit   = 4000
)

// IsDocumentQuery reports whether the text talks about an uploaded file.
func IsDocumentQuery(text string) bool {
	return docKeywordRe.MatchString(text)
}

// ShouldUseDocumentContext decides whether this turn is about the
// conversation's documents: either the current text mentions one, or
// documents exist and a recent turn mentioned one, or the text names an
// uploaded filename outright.
func ShouldUseDocumentContext(text string, history []*store.Message, docs []*store.Document) bool {
	if IsDocumentQuery(text) {
		return true
	}
	if len(docs) == 0 {
		return false
	}
	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	for _, m := range recent {
		if IsDocumentQuery(m.Content) {
			return true
		}
	}
	lower := strings.ToLower(text)
	for _, d := range docs {
		name := strings.ToLower(d.Filename)
		if name != "" && strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// BuildMessagePayload converts the most recent maxMessages turns to the
// LLM wire shape, oldest first.
func BuildMessagePayload(history []*store.Message, maxMessages int) []llm.Message {
	if maxMessages > 0 && len(history) > maxMessages {
		history = history[len(history)-maxMessages:]
	}
	out := make([]llm.Message, len(history))
	for i, m := range history {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// BuildSystemPrompt assembles the per-turn system prompt: agent role,
// user and conversation identity, a preview of every attached document,
// and optionally a focus block with one document's full text.
func BuildSystemPrompt(user *store.User, conversationID string, docs []*store.Document, focus string) string {
	name := "desconocido"
	if user != nil && user.Username != "" {
		name = user.Username
	}

	var docList string
	if len(docs) == 0 {
		docList = "(sin PDFs asociados a esta conversación)"
	} else {
		lines := make([]string, len(docs))
		for i, d := range docs {
			preview := sanitizeText(d.Content)
			if len([]rune(preview)) > docPreviewLimit {
				preview = string([]rune(preview)[:docPreviewLimit]) + "..."
			}
			lines[i] = fmt.Sprintf("- %s: %s", d.Filename, preview)
		}
		docList = strings.Join(lines, "\n")
	}

	focusBlock := ""
	if focus != "" {
		focusBlock = "\n\nContexto PDF prioritario (usa esto para responder preguntas sobre el PDF):\n" + focus
	}

	return fmt.Sprintf("Eres un agente conversacional para gestión de calendario. Usa el contexto de la conversación para responder de forma coherente. Usuario: %s. Conversación: %s. PDFs en esta conversación:\n%s%s",
		name, conversationID, docList, focusBlock)
}

// BuildDocumentFocus picks the document the turn is about and renders its
// focus block. A filename mentioned in the text wins; otherwise the most
// recently uploaded document (highest ID suffix) is used. Empty when the
// conversation has no documents.
func BuildDocumentFocus(text string, docs []*store.Document) string {
	if len(docs) == 0 {
		return ""
	}

	var chosen *store.Document
	lower := strings.ToLower(text)
	for _, d := range docs {
		name := strings.ToLower(d.Filename)
		if name != "" && strings.Contains(lower, name) {
			chosen = d
			break
		}
	}
	if chosen == nil {
		sorted := append([]*store.Document{}, docs...)
		sort.Slice(sorted, func(i, j int) bool {
			return trailingDigits(sorted[i].ID) > trailingDigits(sorted[j].ID)
		})
		chosen = sorted[0]
	}

	content := sanitizeText(chosen.Content)
	if content == "" {
		return fmt.Sprintf("Documento: %s\n(No se pudo extraer texto legible del PDF. Si es un PDF escaneado, sube una versión con OCR.)", chosen.Filename)
	}
	if len([]rune(content)) > docFocusLimit {
		content = string([]rune(content)[:docFocusLimit]) + "..."
	}
	return fmt.Sprintf("Documento: %s\n%s", chosen.Filename, content)
}

// BuildDocumentQueryPrompt renders the single-document question prompt
// used by the document query endpoint.
func BuildDocumentQueryPrompt(doc *store.Document, question string) string {
	content := sanitizeText(doc.Content)
	if len([]rune(content)) > docQueryLimit {
		content = string([]rune(content)[:docQueryLimit]) + "..."
	}
	return fmt.Sprintf("Responde usando solo el contenido del documento. Si la respuesta no está en el documento, responde exactamente: No se encontró información en el documento.\n\nDocumento: %s\n%s\n\nPregunta: %s",
		doc.Filename, content, question)
}

// sanitizeText replaces non-printable runes with spaces and collapses
// runs of whitespace, so PDF extraction artifacts do not pollute prompts.
func sanitizeText(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

func trailingDigits(id string) int {
	m := trailingDigitRe.FindString(id)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
