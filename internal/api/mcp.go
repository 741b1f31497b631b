package api

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/agente/internal/calendar"
	"github.com/kalambet/agente/internal/store"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *store.Store
	Calendar calendar.Client // optional; calendar tools error when nil
}

// NewMCPServer exposes the agent's store and calendar as MCP tools so
// external assistants can inspect conversations and manage events.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"agente",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("agente — conversational calendar agent: conversations, uploaded documents and calendar events."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_document",
			mcp.WithDescription("Count case-insensitive keyword matches inside an uploaded document."),
			mcp.WithString("document_id", mcp.Description("Document ID (doc_N)"), mcp.Required()),
			mcp.WithString("keyword", mcp.Description("Keyword to search for"), mcp.Required()),
		),
		mcpSearchDocument(deps),
	)

	s.AddTool(
		mcp.NewTool("list_conversations",
			mcp.WithDescription("List a user's conversations with their message counts."),
			mcp.WithString("user_id", mcp.Description("User ID"), mcp.Required()),
		),
		mcpListConversations(deps),
	)

	s.AddTool(
		mcp.NewTool("create_event",
			mcp.WithDescription("Create a calendar event. Times are RFC3339."),
			mcp.WithString("user_id", mcp.Description("User ID"), mcp.Required()),
			mcp.WithString("title", mcp.Description("Event title"), mcp.Required()),
			mcp.WithString("starts_at", mcp.Description("Start time, RFC3339"), mcp.Required()),
			mcp.WithString("ends_at", mcp.Description("End time, RFC3339; defaults to one hour after start")),
		),
		mcpCreateEvent(deps),
	)

	s.AddTool(
		mcp.NewTool("list_events",
			mcp.WithDescription("List a user's calendar events sorted by start time."),
			mcp.WithString("user_id", mcp.Description("User ID"), mcp.Required()),
		),
		mcpListEvents(deps),
	)

	return s
}

func mcpSearchDocument(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		documentID, err := req.RequireString("document_id")
		if err != nil {
			return mcpError("document_id is required"), nil
		}
		keyword, err := req.RequireString("keyword")
		if err != nil {
			return mcpError("keyword is required"), nil
		}

		doc, ok := deps.Store.GetDocument(documentID)
		if !ok {
			return mcpError(fmt.Sprintf("document %s not found", documentID)), nil
		}

		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(keyword))
		if err != nil {
			return mcpError(fmt.Sprintf("invalid keyword: %v", err)), nil
		}
		count := len(re.FindAllStringIndex(doc.Content, -1))

		b, err := json.Marshal(map[string]any{
			"document_id": doc.ID,
			"filename":    doc.Filename,
			"keyword":     keyword,
			"matches":     count,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListConversations(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		type convSummary struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Messages int    `json:"messages"`
		}

		convs := deps.Store.ListConversationsByUser(userID)
		summaries := make([]convSummary, len(convs))
		for i, c := range convs {
			summaries[i] = convSummary{
				ID:       c.ID,
				Title:    c.Title,
				Messages: len(deps.Store.ListMessagesByConversation(c.ID)),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal conversations: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCreateEvent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Calendar == nil {
			return mcpError("calendar not available: no client configured"), nil
		}

		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		title, err := req.RequireString("title")
		if err != nil {
			return mcpError("title is required"), nil
		}
		startsRaw, err := req.RequireString("starts_at")
		if err != nil {
			return mcpError("starts_at is required"), nil
		}
		starts, err := time.Parse(time.RFC3339, startsRaw)
		if err != nil {
			return mcpError(fmt.Sprintf("invalid starts_at: %v", err)), nil
		}

		ends := starts.Add(time.Hour)
		if endsRaw := req.GetString("ends_at", ""); endsRaw != "" {
			ends, err = time.Parse(time.RFC3339, endsRaw)
			if err != nil {
				return mcpError(fmt.Sprintf("invalid ends_at: %v", err)), nil
			}
		}
		if !ends.After(starts) {
			return mcpError("ends_at must be after starts_at"), nil
		}

		ev, err := deps.Calendar.CreateEvent(ctx, userID, title, starts, ends, nil)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to create event: %v", err)), nil
		}

		b, err := json.Marshal(toEventResponse(ev))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal event: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListEvents(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Calendar == nil {
			return mcpError("calendar not available: no client configured"), nil
		}

		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		events, err := deps.Calendar.ListEvents(ctx, userID)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list events: %v", err)), nil
		}

		out := make([]EventResponse, len(events))
		for i, ev := range events {
			out[i] = toEventResponse(ev)
		}
		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal events: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
