package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danja/semem-sub000/internal/metrics"
	"github.com/danja/semem-sub000/internal/zpt"
)

// Stop reasons reported in SearchStats.
const (
	StopTargetReached      = "target_reached_with_quality"
	StopMaxResults         = "max_results_exceeded"
	StopQualityDegradation = "quality_degradation"
	StopHighConfidence     = "high_confidence_sufficient_results"
	StopPassesExhausted    = "passes_exhausted"
	StopEmptyQuery         = "empty_query"
	StopCanceled           = "context_canceled"
	StopFallback           = "fallback_search"
	StopFallbackFailed     = "fallback_failed"
)

// fallbackThreshold is the fixed conservative threshold for the one-shot
// fallback search after a collaborator failure.
const fallbackThreshold = 0.3

// AdaptiveSearchEngine runs the multi-pass relaxation loop: thresholds
// from the calculator, candidates from the collaborator, pan boosts and
// constraints per pass, cross-pass deduplication, and final scoring.
//
// The engine never raises for runtime failures. Collaborator errors are
// absorbed into a fallback search or a failed-but-well-formed outcome;
// only invalid options produce an error from Execute.
type AdaptiveSearchEngine struct {
	searcher   Searcher
	calculator *ThresholdCalculator
	scorer     *ResultScorer
	ledger     *PerformanceLedger
	metrics    *metrics.Collector
}

// NewAdaptiveSearchEngine creates an engine around the similarity
// searcher. A nil calculator or scorer gets stock defaults; a nil ledger
// disables learning; a nil collector disables metrics.
func NewAdaptiveSearchEngine(searcher Searcher, calculator *ThresholdCalculator, scorer *ResultScorer, ledger *PerformanceLedger, collector *metrics.Collector) *AdaptiveSearchEngine {
	if calculator == nil {
		calculator = NewThresholdCalculator(DefaultTuning(), nil, ledger)
	}
	if scorer == nil {
		scorer = NewResultScorer(DefaultScoringWeights())
	}
	return &AdaptiveSearchEngine{
		searcher:   searcher,
		calculator: calculator,
		scorer:     scorer,
		ledger:     ledger,
		metrics:    collector,
	}
}

// Execute runs one adaptive search. The returned error is non-nil only
// for invalid options; every runtime condition is reported through the
// outcome itself.
func (e *AdaptiveSearchEngine) Execute(ctx context.Context, query string, nav zpt.NavigationState, opts Options) (SearchOutcome, error) {
	opts = opts.normalized()
	if err := opts.Validate(); err != nil {
		return SearchOutcome{}, err
	}

	requestID := uuid.NewString()
	started := time.Now()

	if strings.TrimSpace(query) == "" {
		outcome := SearchOutcome{
			Success: true,
			Results: []Result{},
			Stats: SearchStats{
				RequestID:  requestID,
				Query:      truncatedQuery(query),
				StopReason: StopEmptyQuery,
				Elapsed:    time.Since(started),
			},
		}
		e.recordMetrics(outcome, false)
		return outcome, nil
	}

	analysis := AnalyzeQuery(query)
	nav = nav.Normalize()
	cfg := e.calculator.Calculate(query, analysis, nav, opts)

	pan := nav.Pan
	if !opts.EnablePanBoosts {
		pan = zpt.PanFilter{}
	}
	matcher := newPanMatcher(pan, opts)

	passes := min(opts.MaxPasses, len(cfg.ExpansionSteps))
	merged := make([]Result, 0, opts.MaxResultCount)
	seen := make(map[string]struct{}, opts.MaxResultCount)
	records := make([]PassRecord, 0, passes)

	var (
		bestQuality float64
		stopReason  string
		collabErr   error
		passesUsed  int
	)

	for i := 0; i < passes; i++ {
		if ctx.Err() != nil {
			stopReason = StopCanceled
			break
		}

		threshold := cfg.ExpansionSteps[i]
		limit := opts.TargetResultCount + 2*i
		passStart := time.Now()

		cands, err := e.searcher.SearchSimilar(ctx, query, limit*2, threshold)
		if err != nil {
			collabErr = err
			slog.Warn("similarity search failed",
				"request_id", requestID, "pass", i+1, "threshold", threshold, "error", err)
			break
		}

		kept := matcher.apply(cands)
		sort.SliceStable(kept, func(a, b int) bool {
			return kept[a].AdjustedSimilarity > kept[b].AdjustedSimilarity
		})
		if len(kept) > limit {
			kept = kept[:limit]
		}

		added := 0
		for _, r := range kept {
			key := r.ContentKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, r)
			added++
		}

		rec := PassRecord{
			Pass:           i + 1,
			Threshold:      threshold,
			Limit:          limit,
			Found:          len(cands),
			Kept:           len(kept),
			Merged:         added,
			Elapsed:        time.Since(passStart),
			FiltersApplied: matcher.appliedKinds(),
		}
		records = append(records, rec)
		passesUsed = i + 1
		if e.metrics != nil {
			e.metrics.RecordTiming(metrics.OpSearchPass, rec.Elapsed)
		}
		if opts.OnPass != nil {
			opts.OnPass(rec)
		}

		current := interimAverageQuality(merged)
		switch {
		case len(merged) >= opts.TargetResultCount && current >= opts.MinAcceptableQuality:
			stopReason = StopTargetReached
		case len(merged) >= opts.MaxResultCount:
			stopReason = StopMaxResults
		case i > 0 && bestQuality-current > opts.QualityImprovementThreshold:
			stopReason = StopQualityDegradation
		case cfg.Confidence > opts.HighConfidenceCutoff && len(merged) >= opts.MinResultsPerPass:
			stopReason = StopHighConfidence
		}
		if stopReason != "" {
			break
		}
		// Best-quality tracking happens after the stop evaluation, so the
		// degradation criterion can never fire on the first relaxation.
		if current > bestQuality {
			bestQuality = current
		}
	}

	if collabErr != nil {
		outcome := e.fallback(ctx, query, requestID, started, records, passesUsed, cfg, opts, collabErr)
		e.recordMetrics(outcome, true)
		return outcome, nil
	}
	if stopReason == "" {
		stopReason = StopPassesExhausted
	}

	final := e.scorer.Optimize(merged, opts.MinAcceptableQuality, opts.TargetResultCount)
	outcome := SearchOutcome{
		Success:    len(final) > 0,
		Results:    final,
		PassesUsed: passesUsed,
		Stats: SearchStats{
			RequestID:      requestID,
			Query:          truncatedQuery(query),
			Passes:         records,
			StopReason:     stopReason,
			Threshold:      cfg,
			Elapsed:        time.Since(started),
			AverageQuality: averageQuality(final),
		},
	}

	if opts.EnableLearning && e.ledger != nil {
		e.ledger.RecordOutcome(outcome, cfg.Primary, analysis, nav)
	}
	e.recordMetrics(outcome, false)

	slog.Debug("adaptive search complete",
		"request_id", requestID,
		"strategy", cfg.Strategy,
		"passes", passesUsed,
		"results", len(final),
		"stop", stopReason,
		"elapsed", outcome.Stats.Elapsed)
	return outcome, nil
}

// fallback runs the one-shot conservative search after a collaborator
// failure: fixed threshold, target count, no boosts, no scoring, no
// learning.
func (e *AdaptiveSearchEngine) fallback(ctx context.Context, query, requestID string, started time.Time, records []PassRecord, passesUsed int, cfg ThresholdConfig, opts Options, cause error) SearchOutcome {
	outcome := SearchOutcome{
		Results:    []Result{},
		PassesUsed: passesUsed,
		Stats: SearchStats{
			RequestID:  requestID,
			Query:      truncatedQuery(query),
			Passes:     records,
			Threshold:  cfg,
			Fallback:   true,
			Error:      cause.Error(),
			StopReason: StopFallback,
		},
	}

	cands, err := e.searcher.SearchSimilar(ctx, query, opts.TargetResultCount, fallbackThreshold)
	if err != nil {
		slog.Warn("fallback search failed", "request_id", requestID, "error", err)
		outcome.Stats.StopReason = StopFallbackFailed
		outcome.Stats.Error = cause.Error() + "; fallback: " + err.Error()
		outcome.Stats.Elapsed = time.Since(started)
		return outcome
	}

	for _, c := range cands {
		outcome.Results = append(outcome.Results, Result{Candidate: c, AdjustedSimilarity: c.Similarity})
	}
	outcome.Success = len(outcome.Results) > 0
	outcome.Stats.Elapsed = time.Since(started)
	return outcome
}

func (e *AdaptiveSearchEngine) recordMetrics(outcome SearchOutcome, fallback bool) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordSearch(
		outcome.Success,
		outcome.PassesUsed,
		len(outcome.Results),
		outcome.Stats.AverageQuality,
		outcome.Stats.StopReason,
		fallback,
	)
	e.metrics.RecordTiming(metrics.OpSearch, outcome.Stats.Elapsed)
}

// PerformanceReport is the engine's read-only observability view.
type PerformanceReport struct {
	UptimeSeconds float64                               `json:"uptime_seconds"`
	Engine        *metrics.SearchSnapshot               `json:"engine,omitempty"`
	Operations    map[string]*metrics.OperationSnapshot `json:"operations,omitempty"`
	Calculator    CalculatorSnapshot                    `json:"calculator"`
	Ledger        LedgerSnapshot                        `json:"ledger"`
}

// PerformanceReport aggregates engine counters, the calculator snapshot,
// and the learning ledger. Side-effect-free.
func (e *AdaptiveSearchEngine) PerformanceReport() PerformanceReport {
	report := PerformanceReport{Calculator: e.calculator.Snapshot()}
	if e.metrics != nil {
		snap := e.metrics.Snapshot()
		report.UptimeSeconds = snap.UptimeSeconds
		report.Engine = snap.Search
		report.Operations = snap.Operations
	}
	if e.ledger != nil {
		report.Ledger = e.ledger.Snapshot()
	}
	return report
}

// statsQueryLen bounds the query echoed in SearchStats.
const statsQueryLen = 64

func truncatedQuery(query string) string {
	runes := []rune(query)
	if len(runes) <= statsQueryLen {
		return query
	}
	return string(runes[:statsQueryLen]) + "..."
}

// interimAverageQuality estimates cumulative quality mid-loop. Final
// quality scores are not assigned until optimization, so unscored
// results fall back to clamped raw similarity.
func interimAverageQuality(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		if r.QualityScore > 0 {
			sum += r.QualityScore
		} else {
			sum += clamp01(r.Similarity)
		}
	}
	return sum / float64(len(results))
}

func averageQuality(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		sum += r.QualityScore
	}
	return sum / float64(len(results))
}
