package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MetricsInput defines the input schema for the get_metrics tool.
// No parameters; the report always covers the full engine lifetime.
type MetricsInput struct{}

// NewMetricsHandler creates the get_metrics tool handler.
// Reports search counters, operation timings and the learned
// threshold state in one snapshot.
func NewMetricsHandler(deps *Dependencies) mcp.ToolHandlerFor[MetricsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ MetricsInput) (
		*mcp.CallToolResult, any, error,
	) {
		report := deps.Engine.PerformanceReport()
		jsonBytes, _ := json.MarshalIndent(report, "", "  ")

		deps.Logger.Debug("metrics reported", "uptime_seconds", report.UptimeSeconds)

		return TextResult(string(jsonBytes)), nil, nil
	}
}
