package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a Backend for hosted single-prompt completion APIs
// (apifreellm-style: POST {message, model} with a bearer key).
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a Client targeting the given completion endpoint.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// completionRequest is the JSON body for the chat endpoint.
type completionRequest struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// GenerateMessages flattens the conversation into one prompt and requests a
// completion. Well-known client errors (bad key, rate limit, bad request)
// come back as user-facing text rather than errors; transport failures and
// unexpected statuses are errors.
func (c *Client) GenerateMessages(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "Error LLM: API key faltante.", nil
	}

	prompt := BuildPrompt(systemPrompt, messages)
	body, err := json.Marshal(completionRequest{Message: prompt, Model: c.model})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return "Error LLM: API key inválida.", nil
	case http.StatusTooManyRequests:
		return "Error LLM: rate limit. Espera 5 segundos y reintenta.", nil
	case http.StatusBadRequest:
		return "Error LLM: solicitud inválida (parámetros faltantes).", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion: unexpected status %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	return extractResponseText(payload), nil
}

// extractResponseText pulls the completion out of the provider's reply,
// trying the field names the API is known to use.
func extractResponseText(payload map[string]any) string {
	for _, key := range []string{"response", "message", "content", "text", "reply"} {
		if v, ok := payload[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return fmt.Sprintf("%v", payload)
}
