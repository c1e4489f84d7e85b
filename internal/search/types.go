// Package search implements the adaptive ranking core: query analysis,
// dynamic threshold calculation, progressive multi-pass retrieval with
// pan-filter boosts, composite quality scoring, and an in-memory
// performance ledger that feeds threshold tuning.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/danja/semem-sub000/internal/zpt"
)

// Candidate is one raw result from the similarity-search collaborator.
// Similarity is the collaborator's score in [0,1]. Timestamp and Concepts
// are optional; a zero Timestamp means "unknown".
type Candidate struct {
	ID         string    `json:"id,omitempty"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response"`
	Similarity float64   `json:"similarity"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	Concepts   []string  `json:"concepts,omitempty"`
}

// contentKeyLen bounds the dedup key to a fixed-length content prefix.
const contentKeyLen = 100

// ContentKey returns a stable deduplication key for the candidate.
// Collaborators are not required to supply IDs, so identity is derived
// from a fixed-length lowercase prefix of the content fields.
func (c Candidate) ContentKey() string {
	joined := strings.ToLower(c.Prompt + "\x1f" + c.Response)
	runes := []rune(joined)
	if len(runes) > contentKeyLen {
		runes = runes[:contentKeyLen]
	}
	return string(runes)
}

// contentLength is the combined length of the candidate's text fields,
// used by scoring and domain matching.
func (c Candidate) contentLength() int {
	return len(c.Prompt) + len(c.Response)
}

// Searcher is the similarity-search collaborator. Implementations return
// up to limit candidates with similarity at or above threshold, ranked by
// similarity. A failed call surfaces as an error; the engine converts
// collaborator failures into degraded outcomes, never panics.
type Searcher interface {
	SearchSimilar(ctx context.Context, query string, limit int, threshold float64) ([]Candidate, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string, limit int, threshold float64) ([]Candidate, error)

// SearchSimilar calls f.
func (f SearcherFunc) SearchSimilar(ctx context.Context, query string, limit int, threshold float64) ([]Candidate, error) {
	return f(ctx, query, limit, threshold)
}

// Result is a candidate enriched with filter boosts and a quality score.
// AdjustedSimilarity = Similarity plus keyword/entity boosts and may
// exceed 1. QualityScore is assigned during final optimization and stays
// within [0,1].
type Result struct {
	Candidate

	AdjustedSimilarity float64  `json:"adjusted_similarity"`
	KeywordBoost       float64  `json:"keyword_boost,omitempty"`
	EntityBoost        float64  `json:"entity_boost,omitempty"`
	MatchedKeywords    []string `json:"matched_keywords,omitempty"`
	MatchedEntities    []string `json:"matched_entities,omitempty"`
	QualityScore       float64  `json:"quality_score"`
}

// PassRecord captures one relaxation pass for the stats report.
type PassRecord struct {
	Pass           int           `json:"pass"`
	Threshold      float64       `json:"threshold"`
	Limit          int           `json:"limit"`
	Found          int           `json:"found"`
	Kept           int           `json:"kept"`
	Merged         int           `json:"merged"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	FiltersApplied []string      `json:"filters_applied,omitempty"`
}

// SearchStats reports how an outcome was produced. Query is echoed
// truncated so logged outcomes stay bounded.
type SearchStats struct {
	RequestID      string          `json:"request_id"`
	Query          string          `json:"query,omitempty"`
	Passes         []PassRecord    `json:"passes,omitempty"`
	StopReason     string          `json:"stop_reason"`
	Threshold      ThresholdConfig `json:"threshold"`
	Elapsed        time.Duration   `json:"elapsed_ns"`
	AverageQuality float64         `json:"average_quality"`
	Fallback       bool            `json:"fallback,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// SearchOutcome is the engine's result. The engine always returns a
// well-formed outcome: degraded operation is communicated via Success,
// Stats.StopReason and Stats.Error rather than raised errors.
type SearchOutcome struct {
	Success    bool        `json:"success"`
	Results    []Result    `json:"results"`
	PassesUsed int         `json:"passes_used"`
	Stats      SearchStats `json:"stats"`
}

// QueryComplexity classifies query length.
type QueryComplexity string

const (
	ComplexitySimple  QueryComplexity = "simple"
	ComplexityMedium  QueryComplexity = "medium"
	ComplexityComplex QueryComplexity = "complex"
)

// QueryType classifies query intent.
type QueryType string

const (
	TypeGeneral  QueryType = "general"
	TypeQuestion QueryType = "question"
	TypePersonal QueryType = "personal"
	TypeFactual  QueryType = "factual"
)

// QueryAnalysis is the derived, immutable feature set for one query.
// It is computed once per search call and consumed by threshold
// calculation and the performance ledger; it is never persisted.
type QueryAnalysis struct {
	Length          int             `json:"length"`
	WordCount       int             `json:"word_count"`
	Complexity      QueryComplexity `json:"complexity"`
	Type            QueryType       `json:"type"`
	SemanticDensity float64         `json:"semantic_density"`
	QuestionWords   int             `json:"question_words"`
	PersonalWords   int             `json:"personal_words"`
	TechnicalWords  int             `json:"technical_words"`
}

// ThresholdConfig is the per-call acceptance threshold plan. Primary and
// Fallback bound the relaxation; ExpansionSteps is the non-increasing
// sequence of thresholds tried across passes (1-4 entries). PanBoosts
// records the per-filter-kind threshold adjustments that were applied.
type ThresholdConfig struct {
	Primary        float64            `json:"primary"`
	Fallback       float64            `json:"fallback"`
	Confidence     float64            `json:"confidence"`
	Strategy       string             `json:"strategy"`
	ExpansionSteps []float64          `json:"expansion_steps"`
	PanBoosts      map[string]float64 `json:"pan_boosts,omitempty"`
}

// Options configures one engine invocation. Start from DefaultOptions and
// override fields; the zero value of the boolean toggles means disabled.
type Options struct {
	// Threshold, when set, bypasses relaxation entirely: exactly one pass
	// runs at this value regardless of MaxPasses.
	Threshold *float64

	// MaxPasses caps the relaxation loop (1-8).
	MaxPasses int
	// TargetResultCount is the number of results the caller wants.
	TargetResultCount int
	// MaxResultCount hard-caps the cumulative set; reaching it stops the loop.
	MaxResultCount int
	// MinResultsPerPass is the floor for the high-confidence early stop.
	MinResultsPerPass int

	// MinAcceptableQuality gates both the early stop on target size and the
	// final result filter.
	MinAcceptableQuality float64
	// QualityImprovementThreshold: relaxation stops once average quality
	// drops this far below the best pass seen.
	QualityImprovementThreshold float64
	// HighConfidenceCutoff: threshold confidence above this allows stopping
	// as soon as MinResultsPerPass results have accumulated.
	HighConfidenceCutoff float64

	// EnablePanBoosts toggles keyword/entity boosts and domain/temporal
	// constraints during passes.
	EnablePanBoosts bool
	// EnableDomainFilter and EnableTemporalFilter toggle the two
	// constraint kinds individually when pan boosts are on.
	EnableDomainFilter   bool
	EnableTemporalFilter bool
	// KeywordBoostFactor is added to adjusted similarity per keyword match.
	KeywordBoostFactor float64
	// EntityBoostFactor is added once per entity present in the content.
	EntityBoostFactor float64

	// EnableLearning toggles ledger recording after completed searches.
	EnableLearning bool

	// OnPass, when non-nil, is invoked after every completed pass. Used by
	// the CLI progress view and the live search stream.
	OnPass func(PassRecord)
}

// DefaultOptions returns the fully-populated default configuration.
func DefaultOptions() Options {
	return Options{
		MaxPasses:                   4,
		TargetResultCount:           10,
		MaxResultCount:              20,
		MinResultsPerPass:           3,
		MinAcceptableQuality:        0.4,
		QualityImprovementThreshold: 0.15,
		HighConfidenceCutoff:        0.75,
		EnablePanBoosts:             true,
		EnableDomainFilter:          true,
		EnableTemporalFilter:        true,
		KeywordBoostFactor:          0.1,
		EntityBoostFactor:           0.15,
		EnableLearning:              true,
	}
}

// Validate checks option bounds. Numeric fields left at zero are filled
// from defaults first, so only explicit out-of-range values fail.
func (o Options) Validate() error {
	if o.MaxPasses < 1 || o.MaxPasses > 8 {
		return errInvalid("max passes must be 1-8")
	}
	if o.TargetResultCount < 1 {
		return errInvalid("target result count must be >= 1")
	}
	if o.MaxResultCount < o.TargetResultCount {
		return errInvalid("max result count must be >= target result count")
	}
	if o.MinResultsPerPass < 1 {
		return errInvalid("min results per pass must be >= 1")
	}
	if o.MinAcceptableQuality < 0 || o.MinAcceptableQuality > 1 {
		return errInvalid("min acceptable quality must be in [0,1]")
	}
	if o.KeywordBoostFactor < 0 || o.EntityBoostFactor < 0 {
		return errInvalid("boost factors must be >= 0")
	}
	if o.Threshold != nil && (*o.Threshold <= 0 || *o.Threshold > 1) {
		return errInvalid("threshold override must be in (0,1]")
	}
	return nil
}

// normalized fills zero numeric fields from defaults. Boolean toggles are
// left alone: false means disabled.
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.MaxPasses == 0 {
		o.MaxPasses = def.MaxPasses
	}
	if o.TargetResultCount == 0 {
		o.TargetResultCount = def.TargetResultCount
	}
	if o.MaxResultCount == 0 {
		o.MaxResultCount = def.MaxResultCount
	}
	if o.MinResultsPerPass == 0 {
		o.MinResultsPerPass = def.MinResultsPerPass
	}
	if o.MinAcceptableQuality == 0 {
		o.MinAcceptableQuality = def.MinAcceptableQuality
	}
	if o.QualityImprovementThreshold == 0 {
		o.QualityImprovementThreshold = def.QualityImprovementThreshold
	}
	if o.HighConfidenceCutoff == 0 {
		o.HighConfidenceCutoff = def.HighConfidenceCutoff
	}
	if o.KeywordBoostFactor == 0 {
		o.KeywordBoostFactor = def.KeywordBoostFactor
	}
	if o.EntityBoostFactor == 0 {
		o.EntityBoostFactor = def.EntityBoostFactor
	}
	return o
}

// LedgerKey identifies one performance bucket.
type LedgerKey struct {
	QueryType QueryType     `json:"query_type"`
	Zoom      zpt.ZoomLevel `json:"zoom"`
}
