package search

import (
	"math"
	"sort"
	"time"
)

// ResultScorer assigns composite quality scores and produces the final
// ranked result list. Quality blends similarity, content length, filter
// boosts, recency, and concept richness into one bounded [0,1] score;
// ranking then mixes quality with boosted similarity.
type ResultScorer struct {
	weights ScoringWeights
	now     func() time.Time
}

// NewResultScorer returns a scorer with the given weights.
func NewResultScorer(weights ScoringWeights) *ResultScorer {
	return &ResultScorer{weights: weights, now: time.Now}
}

// Optimize scores every result, drops those below the quality floor,
// ranks the rest, and truncates to target. The returned slice is newly
// allocated; the inputs are not mutated.
func (s *ResultScorer) Optimize(results []Result, minAcceptableQuality float64, target int) []Result {
	now := s.now()
	floor := math.Max(s.weights.QualityFloor, minAcceptableQuality)

	scored := make([]Result, 0, len(results))
	for _, r := range results {
		r.QualityScore = s.score(r, now)
		if r.QualityScore < floor {
			continue
		}
		scored = append(scored, r)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return s.rank(scored[i]) > s.rank(scored[j])
	})

	if target > 0 && len(scored) > target {
		scored = scored[:target]
	}
	return scored
}

// score computes the composite quality for one result. A NaN anywhere in
// the blend falls back to the raw similarity, or 0.5 when that is NaN
// too.
func (s *ResultScorer) score(r Result, now time.Time) float64 {
	w := s.weights

	q := w.Base + r.Similarity*w.Similarity
	q += math.Min(1, float64(r.contentLength())/float64(w.LengthNorm)) * w.Length
	q += math.Min(w.PanBoostCap, r.KeywordBoost+r.EntityBoost)
	if !r.Timestamp.IsZero() {
		ageDays := now.Sub(r.Timestamp).Hours() / 24
		q += w.Recency * math.Max(0, 1-ageDays/w.RecencyHorizonDays)
	}
	q += math.Min(1, float64(len(r.Concepts))/float64(w.ConceptNorm)) * w.Concept

	if math.IsNaN(q) {
		if math.IsNaN(r.Similarity) {
			return 0.5
		}
		return clamp01(r.Similarity)
	}
	return clamp01(q)
}

// rank is the ordering key: quality-weighted with a boosted-similarity
// component so strong matches inside a quality band surface first.
func (s *ResultScorer) rank(r Result) float64 {
	return r.QualityScore*s.weights.QualityWeight + r.AdjustedSimilarity*s.weights.SimilarityWeight
}
