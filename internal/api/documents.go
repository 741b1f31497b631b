package api

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kalambet/agente/internal/agent"
	"github.com/kalambet/agente/internal/extract"
	"github.com/kalambet/agente/internal/store"
)

type DocumentResponse struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Filename       string `json:"filename"`
}

func toDocumentResponse(d *store.Document) DocumentResponse {
	return DocumentResponse{
		ID:             d.ID,
		UserID:         d.UserID,
		ConversationID: d.ConversationID,
		Filename:       d.Filename,
	}
}

func handleUploadDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid multipart form: %v", err)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "file is required")
			return
		}
		defer file.Close()

		if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "only PDF files are supported")
			return
		}

		conversationID := r.FormValue("conversation_id")
		if conversationID != "" {
			if _, ok := ownedConversation(deps, r, conversationID); !ok {
				httpError(w, http.StatusNotFound, "not_found", "conversation not found")
				return
			}
		}

		// The PDF reader needs a seekable file on disk.
		tmp, err := os.CreateTemp("", "upload-*.pdf")
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to stage upload: %v", err)
			return
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()

		if _, err := io.Copy(tmp, file); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to stage upload: %v", err)
			return
		}

		// Extraction is best effort: unparseable PDFs are stored with an
		// empty body and surfaced via the OCR fallback message.
		content, err := extract.Text(tmp.Name())
		if err != nil {
			deps.logger().Warn("pdf extraction failed", "filename", header.Filename, "error", err)
			content = ""
		}

		doc := deps.Store.AddDocument(&store.Document{
			UserID:         CurrentUser(r),
			ConversationID: conversationID,
			Filename:       header.Filename,
			Content:        content,
		})
		writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
	}
}

func handleListDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r)

		var docs []*store.Document
		if conversationID := r.URL.Query().Get("conversation_id"); conversationID != "" {
			for _, d := range deps.Store.ListDocumentsByConversation(conversationID) {
				if d.UserID == userID {
					docs = append(docs, d)
				}
			}
		} else {
			docs = deps.Store.ListDocumentsByUser(userID)
		}
		sort.Slice(docs, func(i, j int) bool {
			return docs[i].UploadedAt.Before(docs[j].UploadedAt)
		})

		out := make([]DocumentResponse, len(docs))
		for i, d := range docs {
			out[i] = toDocumentResponse(d)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type documentQueryRequest struct {
	ConversationID string `json:"conversation_id"`
	DocumentID     string `json:"document_id"`
	Keyword        string `json:"keyword"`
}

type documentQueryResponse struct {
	Result string `json:"result"`
}

// handleQueryDocument answers a question about one uploaded document
// using its extracted text as the only context.
func handleQueryDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req documentQueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Keyword == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "keyword is required")
			return
		}

		doc, ok := resolveQueryDocument(deps, r, req)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}

		if strings.TrimSpace(doc.Content) == "" {
			writeJSON(w, http.StatusOK, documentQueryResponse{
				Result: "No se pudo extraer texto legible del PDF. Si es un PDF escaneado, sube una versión con OCR.",
			})
			return
		}

		answer, err := deps.LLM.Generate(r.Context(), agent.BuildDocumentQueryPrompt(doc, req.Keyword))
		if err != nil {
			httpError(w, http.StatusBadGateway, "external_service_error", "generation failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, documentQueryResponse{Result: answer})
	}
}

// resolveQueryDocument picks the target: an explicit document_id wins,
// otherwise the latest document of the conversation.
func resolveQueryDocument(deps Deps, r *http.Request, req documentQueryRequest) (*store.Document, bool) {
	userID := CurrentUser(r)
	if req.DocumentID != "" {
		doc, ok := deps.Store.GetDocument(req.DocumentID)
		if !ok || doc.UserID != userID {
			return nil, false
		}
		return doc, true
	}
	if req.ConversationID == "" {
		return nil, false
	}
	var candidates []*store.Document
	for _, d := range deps.Store.ListDocumentsByConversation(req.ConversationID) {
		if d.UserID == userID {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].UploadedAt.Before(candidates[j].UploadedAt)
	})
	return candidates[len(candidates)-1], true
}
