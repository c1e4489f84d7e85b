package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	// Ping tool - connectivity check
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	// Search tool - adaptive multi-pass similarity search
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Search stored interactions with adaptive multi-pass similarity thresholds and zoom/pan/tilt navigation",
	}, NewSearchHandler(deps))

	// Remember tool - store one interaction
	mcp.AddTool(server, &mcp.Tool{
		Name:        "remember",
		Description: "Store a prompt/response interaction in semantic memory",
	}, NewRememberHandler(deps))

	// Metrics tool - engine observability snapshot
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_metrics",
		Description: "Report search performance metrics and learned threshold state",
	}, NewMetricsHandler(deps))
}
