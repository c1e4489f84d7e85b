package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/danja/semem-sub000/internal/search"
	"github.com/danja/semem-sub000/internal/zpt"
)

var (
	queryZoom      string
	queryTilt      string
	queryKeywords  []string
	queryDomains   []string
	queryEntities  []string
	querySince     string
	queryUntil     string
	queryLimit     int
	queryThreshold float64
	queryNoLearn   bool
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search stored interactions with adaptive thresholds",
	Long: `Search stored interactions using multi-pass semantic retrieval.

The similarity threshold adapts to query complexity and the zoom level,
then relaxes across passes until enough good results accumulate. Pan
filters narrow the view: keywords and entities boost matching results,
domains and a time range constrain them.

Examples:
  semsearch query "how did we fix the token refresh bug"
  semsearch query "standup notes" --zoom unit --since 2026-08-01
  semsearch query "database migrations" --keywords surrealdb,schema
  semsearch query "kubernetes" --threshold 0.7`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryZoom, "zoom", "", "zoom level (entity, unit, text, community, corpus, micro)")
	queryCmd.Flags().StringVar(&queryTilt, "tilt", "", "tilt style (embedding, graph, temporal, keywords)")
	queryCmd.Flags().StringSliceVarP(&queryKeywords, "keywords", "k", nil, "boost results containing these keywords")
	queryCmd.Flags().StringSliceVar(&queryDomains, "domains", nil, "restrict results to these domains")
	queryCmd.Flags().StringSliceVar(&queryEntities, "entities", nil, "boost results mentioning these entities")
	queryCmd.Flags().StringVar(&querySince, "since", "", "only results at or after this time (2006-01-02 or RFC 3339)")
	queryCmd.Flags().StringVar(&queryUntil, "until", "", "only results before this time (2006-01-02 or RFC 3339)")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 0, "target number of results")
	queryCmd.Flags().Float64VarP(&queryThreshold, "threshold", "t", 0, "fixed similarity threshold, skips relaxation")
	queryCmd.Flags().BoolVar(&queryNoLearn, "no-learn", false, "skip recording the outcome in the session ledger")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the raw outcome as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	nav, err := buildNavigation()
	if err != nil {
		return err
	}

	opts := cfg.SearchOptions()
	if queryLimit > 0 {
		opts.TargetResultCount = queryLimit
		if opts.MaxResultCount < queryLimit {
			opts.MaxResultCount = queryLimit
		}
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = &queryThreshold
	}
	if queryNoLearn {
		opts.EnableLearning = false
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interactive := !queryJSON && term.IsTerminal(int(os.Stdout.Fd()))

	var outcome search.SearchOutcome
	if interactive {
		outcome, err = runQueryProgress(cancel, opts.MaxPasses, func(onPass func(search.PassRecord)) (search.SearchOutcome, error) {
			o := opts
			o.OnPass = onPass
			return engine.Execute(ctx, query, nav, o)
		})
	} else {
		outcome, err = engine.Execute(ctx, query, nav, opts)
	}
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	touchOutcome(ctx, outcome)

	if interactive {
		printOutcome(outcome)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}

// buildNavigation assembles the navigation state from the query flags.
func buildNavigation() (zpt.NavigationState, error) {
	zoom, err := zpt.ParseZoom(queryZoom)
	if err != nil {
		return zpt.NavigationState{}, err
	}
	tilt, err := zpt.ParseTilt(queryTilt)
	if err != nil {
		return zpt.NavigationState{}, err
	}

	pan := zpt.PanFilter{
		Keywords: queryKeywords,
		Domains:  queryDomains,
		Entities: queryEntities,
	}
	var tr zpt.TimeRange
	if querySince != "" {
		tr.Start, err = parseTimeFlag(querySince)
		if err != nil {
			return zpt.NavigationState{}, fmt.Errorf("--since: %w", err)
		}
	}
	if queryUntil != "" {
		tr.End, err = parseTimeFlag(queryUntil)
		if err != nil {
			return zpt.NavigationState{}, fmt.Errorf("--until: %w", err)
		}
	}
	if !tr.IsZero() {
		pan.Temporal = &tr
	}

	return zpt.NavigationState{Zoom: zoom, Pan: pan, Tilt: tilt}, nil
}

// parseTimeFlag accepts a plain date or a full RFC 3339 timestamp.
func parseTimeFlag(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want 2006-01-02 or RFC 3339)", s)
	}
	return t, nil
}

// touchOutcome bumps access tracking for displayed results.
func touchOutcome(ctx context.Context, outcome search.SearchOutcome) {
	if len(outcome.Results) == 0 {
		return
	}
	ids := make([]string, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) > 0 {
		memory.Touch(ctx, ids...)
	}
}

// printOutcome renders the styled result list with a stats footer.
func printOutcome(outcome search.SearchOutcome) {
	theme := defaultTheme

	if len(outcome.Results) == 0 {
		fmt.Println(theme.errorStyle().Render("No results."))
		printStatsFooter(outcome)
		return
	}

	fmt.Println(theme.completedStyle().Render(fmt.Sprintf("✓ %d results", len(outcome.Results))))
	fmt.Println()
	for i, r := range outcome.Results {
		fmt.Println(theme.statusStyle().Render(fmt.Sprintf("%d. %s", i+1, snippet(r.Prompt, 80))))
		if r.Response != "" {
			fmt.Printf("   %s\n", snippet(r.Response, 120))
		}
		meta := fmt.Sprintf("   similarity %.3f  quality %.3f", r.Similarity, r.QualityScore)
		if !r.Timestamp.IsZero() {
			meta += "  " + r.Timestamp.Format("2006-01-02")
		}
		fmt.Println(theme.hintStyle().Render(meta))
		if verbose {
			if len(r.MatchedKeywords) > 0 {
				fmt.Printf("   Keywords: %v\n", r.MatchedKeywords)
			}
			if len(r.MatchedEntities) > 0 {
				fmt.Printf("   Entities: %v\n", r.MatchedEntities)
			}
			if len(r.Concepts) > 0 {
				fmt.Printf("   Concepts: %v\n", r.Concepts)
			}
		}
		fmt.Println()
	}
	printStatsFooter(outcome)
}

func printStatsFooter(outcome search.SearchOutcome) {
	s := outcome.Stats
	line := fmt.Sprintf("%d passes in %s, stop: %s", outcome.PassesUsed,
		s.Elapsed.Round(time.Millisecond), s.StopReason)
	if s.AverageQuality > 0 {
		line += fmt.Sprintf(", avg quality %.2f", s.AverageQuality)
	}
	if s.Fallback {
		line += " (fallback)"
	}
	fmt.Println(defaultTheme.hintStyle().Render(line))
}

// snippet collapses whitespace and truncates to maxLen runes.
func snippet(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
