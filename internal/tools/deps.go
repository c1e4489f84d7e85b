// Package tools provides MCP tool handlers and registration.
package tools

import (
	"context"
	"log/slog"

	"github.com/danja/semem-sub000/internal/search"
	"github.com/danja/semem-sub000/internal/store"
)

// Memory is the slice of the interaction store the handlers need.
// *store.Store satisfies it.
type Memory interface {
	Add(ctx context.Context, input store.MemoryInput) (*store.Interaction, bool, error)
	Touch(ctx context.Context, ids ...string)
}

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Engine   *search.AdaptiveSearchEngine
	Memory   Memory
	Defaults search.Options
	Logger   *slog.Logger
}
