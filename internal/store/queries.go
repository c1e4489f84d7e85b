package store

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// knnEF is the HNSW search expansion factor. Larger values trade latency
// for recall.
const knnEF = 40

// Interaction is a stored prompt/response pair with its embedding metadata.
// Similarity is only populated by search projections.
type Interaction struct {
	ID          surrealmodels.RecordID `json:"id"`
	Prompt      string                 `json:"prompt"`
	Response    string                 `json:"response"`
	Embedding   []float32              `json:"embedding,omitempty"`
	Concepts    []string               `json:"concepts,omitempty"`
	Timestamp   time.Time              `json:"timestamp,omitempty"`
	Created     time.Time              `json:"created,omitempty"`
	Accessed    time.Time              `json:"accessed,omitempty"`
	AccessCount int                    `json:"access_count,omitempty"`
	Similarity  float64                `json:"similarity,omitempty"`
}

// RecordIDString safely extracts the string ID from a SurrealDB RecordID.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// QuerySimilar returns interactions whose embedding cosine similarity to
// emb meets threshold, best first. The KNN candidate count must be a
// literal in SurrealQL, so limit is interpolated.
func (c *Client) QuerySimilar(ctx context.Context, emb []float32, limit int, threshold float64) ([]Interaction, error) {
	if limit < 1 {
		limit = 1
	}

	sql := fmt.Sprintf(`
		SELECT id, prompt, response, concepts, timestamp, accessed, access_count,
			vector::similarity::cosine(embedding, $emb) AS similarity
		FROM interaction
		WHERE embedding <|%d,%d|> $emb
			AND vector::similarity::cosine(embedding, $emb) >= $threshold
		ORDER BY similarity DESC
	`, limit, knnEF)

	results, err := surrealdb.Query[[]Interaction](ctx, c.db, sql, map[string]any{
		"emb":       emb,
		"threshold": threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []Interaction{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryUpsertInteraction creates or updates an interaction by ID.
// Returns (interaction, wasCreated, error).
func (c *Client) QueryUpsertInteraction(
	ctx context.Context,
	id string,
	prompt string,
	response string,
	embedding []float32,
	concepts []string,
	timestamp time.Time,
) (*Interaction, bool, error) {
	if concepts == nil {
		concepts = []string{}
	}

	existsSQL := `SELECT count() AS c FROM type::record("interaction", $id)`
	existsResult, err := surrealdb.Query[[]struct{ C int }](ctx, c.db, existsSQL, map[string]any{"id": id})
	if err != nil {
		return nil, false, fmt.Errorf("check interaction exists: %w", wrapQueryError(err))
	}

	wasCreated := true
	if existsResult != nil && len(*existsResult) > 0 && len((*existsResult)[0].Result) > 0 {
		wasCreated = (*existsResult)[0].Result[0].C == 0
	}

	// Preserve created and access_count on update
	sql := `
		UPSERT type::record("interaction", $id) SET
			prompt = $prompt,
			response = $response,
			embedding = $embedding,
			concepts = $concepts,
			timestamp = type::datetime($timestamp),
			accessed = time::now(),
			created = IF created THEN created ELSE time::now() END,
			access_count = IF access_count THEN access_count ELSE 0 END
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]Interaction](ctx, c.db, sql, map[string]any{
		"id":        id,
		"prompt":    prompt,
		"response":  response,
		"embedding": embedding,
		"concepts":  concepts,
		"timestamp": timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, false, fmt.Errorf("upsert interaction: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, false, fmt.Errorf("upsert interaction: no result returned")
	}
	return &(*results)[0].Result[0], wasCreated, nil
}

// QueryGetInteraction retrieves an interaction by ID. Returns nil if not found.
func (c *Client) QueryGetInteraction(ctx context.Context, id string) (*Interaction, error) {
	results, err := surrealdb.Query[[]Interaction](ctx, c.db, `
		SELECT * FROM type::record("interaction", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get interaction: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryDeleteInteraction deletes an interaction by ID.
// Returns false if nothing matched (idempotent).
func (c *Client) QueryDeleteInteraction(ctx context.Context, id string) (bool, error) {
	results, err := surrealdb.Query[[]Interaction](ctx, c.db, `
		DELETE type::record("interaction", $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete interaction: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return false, nil
	}
	return len((*results)[0].Result) > 0, nil
}

// QueryTouchInteraction updates access tracking for an interaction.
func (c *Client) QueryTouchInteraction(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("interaction", $id) SET
			accessed = time::now(),
			access_count += 1
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("touch interaction: %w", wrapQueryError(err))
	}
	return nil
}

// QueryCountInteractions returns the total number of stored interactions.
func (c *Client) QueryCountInteractions(ctx context.Context) (int, error) {
	results, err := surrealdb.Query[[]struct {
		C int `json:"c"`
	}](ctx, c.db, `SELECT count() AS c FROM interaction GROUP ALL`, nil)
	if err != nil {
		return 0, fmt.Errorf("count interactions: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].C, nil
}
