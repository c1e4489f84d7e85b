package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danja/semem-sub000/internal/store"
)

var (
	addID        string
	addResponse  string
	addConcepts  []string
	addTimestamp string
)

var addCmd = &cobra.Command{
	Use:   "add <prompt>",
	Short: "Store an interaction in the memory",
	Long: `Store a prompt/response interaction with its embedding.

The prompt and response are embedded together so later queries match
either side of the exchange. Concepts are free-form tags picked up by
concept-richness scoring.

Examples:
  semsearch add "SurrealDB supports HNSW indexes for vector search"
  semsearch add "how do we rotate tokens" --response "a cron job refreshes them hourly" --concepts auth,ops
  semsearch add "standup notes 2026-08-20" --id standup-2026-08-20`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addID, "id", "", "stable record ID (generated if empty)")
	addCmd.Flags().StringVarP(&addResponse, "response", "r", "", "response half of the interaction")
	addCmd.Flags().StringSliceVarP(&addConcepts, "concepts", "c", nil, "concept tags")
	addCmd.Flags().StringVar(&addTimestamp, "timestamp", "", "interaction time (2006-01-02 or RFC 3339, default now)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	input := store.MemoryInput{
		ID:       addID,
		Prompt:   strings.Join(args, " "),
		Response: addResponse,
		Concepts: addConcepts,
	}
	if addTimestamp != "" {
		ts, err := parseTimeFlag(addTimestamp)
		if err != nil {
			return fmt.Errorf("--timestamp: %w", err)
		}
		input.Timestamp = ts
	}

	ctx := context.Background()
	rec, created, err := memory.Add(ctx, input)
	if err != nil {
		return fmt.Errorf("add interaction: %w", err)
	}

	id, err := store.RecordIDString(rec.ID)
	if err != nil {
		id = addID
	}
	if created {
		fmt.Printf("Stored interaction: %s\n", id)
	} else {
		fmt.Printf("Updated interaction: %s\n", id)
	}
	if verbose {
		fmt.Printf("  Concepts: %v\n", rec.Concepts)
		fmt.Printf("  Timestamp: %s\n", rec.Timestamp.Format(time.RFC3339))
	}
	return nil
}
