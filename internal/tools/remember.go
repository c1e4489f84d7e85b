package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danja/semem-sub000/internal/store"
)

// RememberInput defines the input schema for the remember tool.
type RememberInput struct {
	ID        string   `json:"id,omitempty" jsonschema:"Stable record ID, generated when omitted"`
	Prompt    string   `json:"prompt" jsonschema:"required,Prompt half of the interaction"`
	Response  string   `json:"response,omitempty" jsonschema:"Response half of the interaction"`
	Concepts  []string `json:"concepts,omitempty" jsonschema:"Concept tags attached to the interaction"`
	Timestamp string   `json:"timestamp,omitempty" jsonschema:"RFC 3339 interaction time, default now"`
}

// RememberResult is the response from the remember tool.
type RememberResult struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

// NewRememberHandler creates the remember tool handler.
// Embeds and stores one prompt/response interaction, upserting on ID.
func NewRememberHandler(deps *Dependencies) mcp.ToolHandlerFor[RememberInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RememberInput) (
		*mcp.CallToolResult, any, error,
	) {
		if strings.TrimSpace(input.Prompt) == "" {
			return ErrorResult("Prompt cannot be empty", "Provide the prompt text to store"), nil, nil
		}
		if deps.Memory == nil {
			return ErrorResult("Memory store is not configured", "Start the server with a database connection"), nil, nil
		}

		memInput := store.MemoryInput{
			ID:       input.ID,
			Prompt:   input.Prompt,
			Response: input.Response,
			Concepts: input.Concepts,
		}
		if input.Timestamp != "" {
			ts, err := time.Parse(time.RFC3339, input.Timestamp)
			if err != nil {
				return ErrorResult("Invalid timestamp: "+err.Error(), "Use RFC 3339, e.g. 2026-08-20T10:00:00Z"), nil, nil
			}
			memInput.Timestamp = ts
		}

		interaction, created, err := deps.Memory.Add(ctx, memInput)
		if err != nil {
			deps.Logger.Error("remember failed", "error", err)
			return ErrorResult("Failed to store interaction", "Database or embedder may be unavailable"), nil, nil
		}

		id, err := store.RecordIDString(interaction.ID)
		if err != nil {
			id = input.ID
		}

		result := RememberResult{ID: id, Created: created}
		jsonBytes, _ := json.MarshalIndent(result, "", "  ")

		deps.Logger.Info("remember completed", "id", id, "created", created)

		return TextResult(string(jsonBytes)), nil, nil
	}
}
