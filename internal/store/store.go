package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danja/semem-sub000/internal/embedding"
	"github.com/danja/semem-sub000/internal/metrics"
	"github.com/danja/semem-sub000/internal/search"
)

// Store composes the SurrealDB client with an embedding provider. It is
// the collaborator the adaptive engine searches through.
type Store struct {
	client   *Client
	embedder embedding.Embedder
	metrics  *metrics.Collector
}

// Compile-time check that Store satisfies the engine's collaborator
// interface.
var _ search.Searcher = (*Store)(nil)

// New creates a Store. collector may be nil to skip timing metrics.
func New(client *Client, embedder embedding.Embedder, collector *metrics.Collector) *Store {
	return &Store{
		client:   client,
		embedder: embedder,
		metrics:  collector,
	}
}

// MemoryInput describes an interaction to remember.
type MemoryInput struct {
	ID        string
	Prompt    string
	Response  string
	Concepts  []string
	Timestamp time.Time
}

// SearchSimilar embeds the query and returns stored interactions whose
// cosine similarity meets threshold, best first.
func (s *Store) SearchSimilar(ctx context.Context, query string, limit int, threshold float64) ([]search.Candidate, error) {
	start := time.Now()
	emb, err := s.embedder.Embed(ctx, query)
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	start = time.Now()
	rows, err := s.client.QuerySimilar(ctx, emb, limit, threshold)
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpStoreQuery, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	candidates := make([]search.Candidate, 0, len(rows))
	for _, row := range rows {
		id, err := RecordIDString(row.ID)
		if err != nil {
			slog.Warn("skipping interaction with non-string ID", "error", err)
			continue
		}
		candidates = append(candidates, search.Candidate{
			ID:         id,
			Prompt:     row.Prompt,
			Response:   row.Response,
			Similarity: row.Similarity,
			Timestamp:  row.Timestamp,
			Concepts:   row.Concepts,
		})
	}
	return candidates, nil
}

// Add embeds and stores an interaction. A missing ID gets a fresh UUID,
// a zero timestamp becomes now. Returns (interaction, wasCreated, error).
func (s *Store) Add(ctx context.Context, input MemoryInput) (*Interaction, bool, error) {
	if strings.TrimSpace(input.Prompt) == "" {
		return nil, false, fmt.Errorf("prompt is required")
	}
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.Timestamp.IsZero() {
		input.Timestamp = time.Now().UTC()
	}

	start := time.Now()
	emb, err := s.embedder.Embed(ctx, input.Prompt+"\n"+input.Response)
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
	}
	if err != nil {
		return nil, false, fmt.Errorf("embed interaction: %w", err)
	}

	return s.client.QueryUpsertInteraction(ctx, input.ID, input.Prompt, input.Response, emb, input.Concepts, input.Timestamp)
}

// Touch updates access tracking for returned interactions. Failures are
// logged and do not interrupt the caller.
func (s *Store) Touch(ctx context.Context, ids ...string) {
	for _, id := range ids {
		if err := s.client.QueryTouchInteraction(ctx, id); err != nil {
			slog.Warn("failed to update interaction access", "interaction", id, "error", err)
		}
	}
}

// Count returns the number of stored interactions.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.client.QueryCountInteractions(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
