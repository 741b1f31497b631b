package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kalambet/agente/internal/agent"
	"github.com/kalambet/agente/internal/auth"
	"github.com/kalambet/agente/internal/calendar"
	"github.com/kalambet/agente/internal/llm"
	"github.com/kalambet/agente/internal/notify"
	"github.com/kalambet/agente/internal/store"
	"github.com/kalambet/agente/internal/tools"
)

func newTestDeps() Deps {
	s := store.New()
	tokens := auth.NewTokenService("test-secret", time.Hour)
	svc := llm.NewService(llm.Sim{}, 40)
	hub := notify.NewHub()
	tracker := agent.NewTracker(s)
	sender := agent.NewSender(s, svc, tools.NewRegistry(), nil, tracker, agent.Config{})
	return Deps{
		Store:    s,
		Auth:     auth.NewService(nil),
		Tokens:   tokens,
		LLM:      svc,
		Calendar: calendar.NewMemoryClient(),
		Sender:   sender,
		Tracker:  tracker,
		Hub:      hub,

		NotifyOnComplete: true,
	}
}

func loginToken(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(srv.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out.AccessToken
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestLogin(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()

	token := loginToken(t, srv, "admin", "admin123")
	subject, err := deps.Tokens.Decode(token)
	if err != nil || subject != "admin" {
		t.Errorf("token subject = %q, err %v", subject, err)
	}

	if _, found := deps.Store.GetUser("admin"); !found {
		t.Error("login did not provision the user record")
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]string{"username": "admin", "password": "mal"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]string{"username": "nadie", "password": "x"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unknown user status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newTestDeps()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/conversations")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}
}

func TestConversationCRUD(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newTestDeps()))
	defer srv.Close()
	token := loginToken(t, srv, "user1", "pass1")

	// Create.
	resp := doJSON(t, http.MethodPost, srv.URL+"/conversations", token, map[string]string{"title": "Planes"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created ConversationResponse
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.ID == "" || created.Title != "Planes" || created.UserID != "user1" {
		t.Fatalf("created = %+v", created)
	}

	// List.
	resp = doJSON(t, http.MethodGet, srv.URL+"/conversations", token, nil)
	var listed []ConversationResponse
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("listed = %+v", listed)
	}

	// Rename.
	resp = doJSON(t, http.MethodPut, srv.URL+"/conversations/"+created.ID, token, map[string]string{"title": "Planes 2026"})
	var renamed ConversationResponse
	json.NewDecoder(resp.Body).Decode(&renamed)
	resp.Body.Close()
	if renamed.Title != "Planes 2026" {
		t.Errorf("renamed = %+v", renamed)
	}

	// Detail.
	resp = doJSON(t, http.MethodGet, srv.URL+"/conversations/"+created.ID, token, nil)
	var detail ConversationDetailResponse
	json.NewDecoder(resp.Body).Decode(&detail)
	resp.Body.Close()
	if detail.Title != "Planes 2026" || len(detail.Messages) != 0 {
		t.Errorf("detail = %+v", detail)
	}

	// Delete, then delete again.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/conversations/"+created.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodDelete, srv.URL+"/conversations/"+created.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestConversationOwnership(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()

	conv := deps.Store.AddConversation(&store.Conversation{UserID: "user2", Title: "ajena"})
	token := loginToken(t, srv, "user1", "pass1")

	resp := doJSON(t, http.MethodGet, srv.URL+"/conversations/"+conv.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign get status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/conversations/"+conv.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want 404", resp.StatusCode)
	}
	if _, ok := deps.Store.GetConversation(conv.ID); !ok {
		t.Error("foreign delete removed the conversation")
	}
}

func TestEventCRUD(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newTestDeps()))
	defer srv.Close()
	token := loginToken(t, srv, "user1", "pass1")

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	resp := doJSON(t, http.MethodPost, srv.URL+"/events", token, map[string]any{
		"title":     "Demo",
		"starts_at": start.Format(time.RFC3339),
		"ends_at":   start.Add(time.Hour).Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var ev EventResponse
	json.NewDecoder(resp.Body).Decode(&ev)
	resp.Body.Close()
	if ev.ID == "" || ev.UserID != "user1" {
		t.Fatalf("event = %+v", ev)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/events", token, nil)
	var events []EventResponse
	json.NewDecoder(resp.Body).Decode(&events)
	resp.Body.Close()
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}

	resp = doJSON(t, http.MethodPatch, srv.URL+"/events/"+ev.ID, token, map[string]string{"title": "Demo 2"})
	var updated EventResponse
	json.NewDecoder(resp.Body).Decode(&updated)
	resp.Body.Close()
	if updated.Title != "Demo 2" {
		t.Errorf("updated = %+v", updated)
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/events/"+ev.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodDelete, srv.URL+"/events/"+ev.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestEventValidation(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newTestDeps()))
	defer srv.Close()
	token := loginToken(t, srv, "user1", "pass1")

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	resp := doJSON(t, http.MethodPost, srv.URL+"/events", token, map[string]any{
		"title":     "Al revés",
		"starts_at": start.Format(time.RFC3339),
		"ends_at":   start.Add(-time.Hour).Format(time.RFC3339),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("inverted range status = %d, want 400", resp.StatusCode)
	}
}

func TestEventOwnership(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	ev, err := deps.Calendar.CreateEvent(t.Context(), "user2", "ajena", start, start.Add(time.Hour), nil)
	if err != nil {
		t.Fatal(err)
	}

	token := loginToken(t, srv, "user1", "pass1")
	resp := doJSON(t, http.MethodDelete, srv.URL+"/events/"+ev.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign event delete status = %d, want 404", resp.StatusCode)
	}
}

func TestDocumentQuery(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()
	token := loginToken(t, srv, "user1", "pass1")

	doc := deps.Store.AddDocument(&store.Document{
		UserID:   "user1",
		Filename: "informe.pdf",
		Content:  "El presupuesto anual es de 100 mil.",
	})

	resp := doJSON(t, http.MethodPost, srv.URL+"/documents/query", token, map[string]string{
		"document_id": doc.ID,
		"keyword":     "presupuesto",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query status = %d", resp.StatusCode)
	}
	var out documentQueryResponse
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if out.Result == "" {
		t.Error("query result empty")
	}

	// Empty-content document surfaces the OCR fallback.
	scanned := deps.Store.AddDocument(&store.Document{UserID: "user1", Filename: "escaneado.pdf"})
	resp = doJSON(t, http.MethodPost, srv.URL+"/documents/query", token, map[string]string{
		"document_id": scanned.ID,
		"keyword":     "algo",
	})
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if out.Result != "No se pudo extraer texto legible del PDF. Si es un PDF escaneado, sube una versión con OCR." {
		t.Errorf("OCR fallback = %q", out.Result)
	}

	// Foreign document is invisible.
	foreign := deps.Store.AddDocument(&store.Document{UserID: "user2", Filename: "ajeno.pdf", Content: "x"})
	resp = doJSON(t, http.MethodPost, srv.URL+"/documents/query", token, map[string]string{
		"document_id": foreign.ID,
		"keyword":     "x",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign document status = %d, want 404", resp.StatusCode)
	}
}

func TestListDocumentsFiltersByConversation(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()
	token := loginToken(t, srv, "user1", "pass1")

	conv := deps.Store.AddConversation(&store.Conversation{UserID: "user1", Title: "t"})
	deps.Store.AddDocument(&store.Document{UserID: "user1", ConversationID: conv.ID, Filename: "a.pdf"})
	deps.Store.AddDocument(&store.Document{UserID: "user1", Filename: "b.pdf"})

	resp := doJSON(t, http.MethodGet, srv.URL+"/documents?conversation_id="+conv.ID, token, nil)
	var docs []DocumentResponse
	json.NewDecoder(resp.Body).Decode(&docs)
	resp.Body.Close()
	if len(docs) != 1 || docs[0].Filename != "a.pdf" {
		t.Errorf("filtered docs = %+v", docs)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/documents", token, nil)
	json.NewDecoder(resp.Body).Decode(&docs)
	resp.Body.Close()
	if len(docs) != 2 {
		t.Errorf("all docs = %+v", docs)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newTestDeps()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}
