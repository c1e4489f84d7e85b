package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danja/semem-sub000/internal/search"
	"github.com/danja/semem-sub000/internal/zpt"
)

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query     string   `json:"query" jsonschema:"required,The search query text"`
	Zoom      string   `json:"zoom,omitempty" jsonschema:"Zoom level: entity, unit, text, community, corpus or micro (default entity)"`
	Tilt      string   `json:"tilt,omitempty" jsonschema:"Tilt style: embedding, graph, temporal or keywords (default embedding)"`
	Keywords  []string `json:"keywords,omitempty" jsonschema:"Keywords that boost matching results"`
	Domains   []string `json:"domains,omitempty" jsonschema:"Domain tags results must carry"`
	Entities  []string `json:"entities,omitempty" jsonschema:"Entity names that boost matching results"`
	Since     string   `json:"since,omitempty" jsonschema:"RFC 3339 lower bound on interaction time"`
	Until     string   `json:"until,omitempty" jsonschema:"RFC 3339 upper bound on interaction time"`
	Limit     int      `json:"limit,omitempty" jsonschema:"Target result count 1-100, default 10"`
	Threshold float64  `json:"threshold,omitempty" jsonschema:"Fixed similarity threshold 0-1, skips adaptive relaxation"`
}

// NewSearchHandler creates the search tool handler.
// Runs the adaptive multi-pass engine and reports the full outcome,
// pass records included.
func NewSearchHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, any, error,
	) {
		// Input validation
		if input.Query == "" {
			return ErrorResult("Query cannot be empty", "Provide a search query"), nil, nil
		}
		if input.Limit < 0 || input.Limit > 100 {
			return ErrorResult("Limit must be 1-100", "Reduce limit value"), nil, nil
		}
		if input.Threshold < 0 || input.Threshold > 1 {
			return ErrorResult("Threshold must be 0-1", "Use a cosine similarity value"), nil, nil
		}

		nav, err := searchNavigation(input)
		if err != nil {
			return ErrorResult(err.Error(), "Check zoom, tilt and time values"), nil, nil
		}

		opts := deps.Defaults
		if input.Limit > 0 {
			opts.TargetResultCount = input.Limit
			if opts.MaxResultCount < input.Limit {
				opts.MaxResultCount = input.Limit
			}
		}
		if input.Threshold > 0 {
			threshold := input.Threshold
			opts.Threshold = &threshold
		}

		outcome, err := deps.Engine.Execute(ctx, input.Query, nav, opts)
		if err != nil {
			return ErrorResult("Invalid search request: "+err.Error(), "Adjust limit or threshold"), nil, nil
		}

		// Update access tracking for each result
		touchResults(ctx, deps, outcome.Results)

		jsonBytes, _ := json.MarshalIndent(outcome, "", "  ")

		// Log completion (truncate query to 30 chars)
		queryLog := input.Query
		if len(queryLog) > 30 {
			queryLog = queryLog[:30] + "..."
		}
		deps.Logger.Info("search completed",
			"query", queryLog,
			"results", len(outcome.Results),
			"passes", outcome.PassesUsed,
			"stop_reason", outcome.Stats.StopReason,
		)

		return TextResult(string(jsonBytes)), nil, nil
	}
}

// searchNavigation maps tool input onto a navigation state.
func searchNavigation(input SearchInput) (zpt.NavigationState, error) {
	zoom, err := zpt.ParseZoom(input.Zoom)
	if err != nil {
		return zpt.NavigationState{}, err
	}
	tilt, err := zpt.ParseTilt(input.Tilt)
	if err != nil {
		return zpt.NavigationState{}, err
	}

	pan := zpt.PanFilter{
		Keywords: input.Keywords,
		Domains:  input.Domains,
		Entities: input.Entities,
	}
	var timeRange zpt.TimeRange
	if input.Since != "" {
		timeRange.Start, err = time.Parse(time.RFC3339, input.Since)
		if err != nil {
			return zpt.NavigationState{}, fmt.Errorf("invalid since time: %w", err)
		}
	}
	if input.Until != "" {
		timeRange.End, err = time.Parse(time.RFC3339, input.Until)
		if err != nil {
			return zpt.NavigationState{}, fmt.Errorf("invalid until time: %w", err)
		}
	}
	if !timeRange.IsZero() {
		pan.Temporal = &timeRange
	}

	return zpt.NavigationState{Zoom: zoom, Pan: pan, Tilt: tilt}, nil
}

// touchResults bumps access tracking for returned interactions.
func touchResults(ctx context.Context, deps *Dependencies, results []search.Result) {
	if deps.Memory == nil {
		return
	}
	ids := make([]string, 0, len(results))
	for _, res := range results {
		if res.ID != "" {
			ids = append(ids, res.ID)
		}
	}
	if len(ids) > 0 {
		deps.Memory.Touch(ctx, ids...)
	}
}
