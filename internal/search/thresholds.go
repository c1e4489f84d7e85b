package search

import (
	"math"
	"sync/atomic"

	"github.com/danja/semem-sub000/internal/zpt"
)

// ThresholdCalculator turns query features, navigation state, content
// density and learned history into a per-call threshold plan. Calculate
// never fails: missing navigation fields degrade to defaults.
//
// The density estimator and ledger are injected so callers decide what
// is shared and what is isolated; either may be nil.
type ThresholdCalculator struct {
	tuning  Tuning
	density *DensityEstimator
	ledger  *PerformanceLedger
	calls   atomic.Uint64
}

// NewThresholdCalculator wires a calculator. A nil density estimator
// gets a private one; a nil ledger disables the learning modulation.
func NewThresholdCalculator(tuning Tuning, density *DensityEstimator, ledger *PerformanceLedger) *ThresholdCalculator {
	if density == nil {
		density = NewDensityEstimator()
	}
	return &ThresholdCalculator{tuning: tuning, density: density, ledger: ledger}
}

// modulation is one step's contribution to the threshold plan.
type modulation struct {
	adjustment float64
	confidence float64
}

// Calculate builds the threshold plan for one search call. An explicit
// override in the options collapses the plan to a single step and skips
// every modulation.
func (c *ThresholdCalculator) Calculate(query string, analysis QueryAnalysis, nav zpt.NavigationState, opts Options) ThresholdConfig {
	c.calls.Add(1)

	if opts.Threshold != nil {
		t := *opts.Threshold
		return ThresholdConfig{
			Primary:        t,
			Fallback:       math.Max(c.tuning.FallbackFloor, t-c.tuning.FallbackDrop),
			Confidence:     1,
			Strategy:       "explicit_override",
			ExpansionSteps: []float64{t},
		}
	}

	nav = nav.Normalize()

	base := c.baseThreshold(analysis, nav.Zoom)
	tilt := c.tiltModulation(nav)
	pan, panBoosts := c.panModulation(nav.Pan)
	density := c.densityModulation(query)
	learning := c.learningModulation(LedgerKey{QueryType: analysis.Type, Zoom: nav.Zoom})

	primary := clamp(
		base+tilt.adjustment+pan.adjustment+density.adjustment+learning.adjustment,
		c.tuning.PrimaryMin, c.tuning.PrimaryMax,
	)
	fallback := math.Max(c.tuning.FallbackFloor, primary-c.tuning.FallbackDrop)

	return ThresholdConfig{
		Primary:        primary,
		Fallback:       fallback,
		Confidence:     (tilt.confidence + pan.confidence + density.confidence + learning.confidence) / 4,
		Strategy:       strategyTag(analysis, panBoosts, density.adjustment, tilt.adjustment, learning.adjustment),
		ExpansionSteps: expansionSteps(primary, fallback, c.tuning.MaxExpansionSteps),
		PanBoosts:      panBoosts,
	}
}

// baseThreshold looks up the zoom band and applies the query-feature
// adjustments, clamping to the band after each.
func (c *ThresholdCalculator) baseThreshold(analysis QueryAnalysis, zoom zpt.ZoomLevel) float64 {
	band, ok := c.tuning.ZoomBands[zoom]
	if !ok {
		if band, ok = c.tuning.ZoomBands[zpt.DefaultZoom]; !ok {
			band = ZoomBand{Min: 0.1, Max: 0.8, Default: 0.3}
		}
	}

	base := band.Default
	switch analysis.Complexity {
	case ComplexitySimple:
		base += c.tuning.SimpleComplexityAdj
	case ComplexityComplex:
		base += c.tuning.ComplexComplexityAdj
	}
	base = clamp(base, band.Min, band.Max)

	switch analysis.Type {
	case TypePersonal:
		base += c.tuning.PersonalTypeAdj
	case TypeFactual:
		base += c.tuning.FactualTypeAdj
	}
	return clamp(base, band.Min, band.Max)
}

// tiltModulation applies the tilt-style adjustment and the active
// filter-count discount.
func (c *ThresholdCalculator) tiltModulation(nav zpt.NavigationState) modulation {
	m := modulation{
		adjustment: c.tuning.TiltAdjustments[nav.Tilt],
		confidence: c.tuning.TiltConfUnfiltered,
	}
	if kinds := len(nav.Pan.ActiveKinds()); kinds > 0 {
		m.adjustment -= math.Min(c.tuning.FilterKindCap, c.tuning.FilterKindStep*float64(kinds))
		m.confidence = c.tuning.TiltConfFiltered
	}
	return m
}

// panModulation sums the per-kind threshold discounts and returns them
// as the plan's pan-boost map.
func (c *ThresholdCalculator) panModulation(pan zpt.PanFilter) (modulation, map[string]float64) {
	kinds := pan.ActiveKinds()
	if len(kinds) == 0 {
		return modulation{confidence: c.tuning.PanConfIdle}, nil
	}

	boosts := make(map[string]float64, len(kinds))
	m := modulation{confidence: c.tuning.PanConfActive}
	for _, kind := range kinds {
		var adj float64
		switch kind {
		case zpt.PanKindKeywords:
			adj = -math.Min(c.tuning.PanKeywordCap, c.tuning.PanKeywordStep*float64(len(pan.Keywords)))
		case zpt.PanKindDomains:
			adj = c.tuning.PanDomainAdj
		case zpt.PanKindEntities:
			adj = c.tuning.PanEntityAdj
		case zpt.PanKindTemporal:
			adj = c.tuning.PanTemporalAdj
		}
		boosts[kind] = adj
		m.adjustment += adj
	}
	return m, boosts
}

func (c *ThresholdCalculator) densityModulation(query string) modulation {
	density := c.density.Estimate(query)
	m := modulation{confidence: c.tuning.DensityConf}
	switch {
	case density < c.tuning.DensityLowCutoff:
		m.adjustment = c.tuning.DensityLowAdj
	case density > c.tuning.DensityHighCutoff:
		m.adjustment = c.tuning.DensityHighAdj
	}
	return m
}

// learningModulation nudges the threshold by recent outcomes for the
// same (type, zoom) bucket, scaled up as the window fills.
func (c *ThresholdCalculator) learningModulation(key LedgerKey) modulation {
	idle := modulation{confidence: c.tuning.LearningConfIdle}
	if c.ledger == nil {
		return idle
	}
	stats, ok := c.ledger.Bucket(key)
	if !ok || stats.Samples < c.tuning.MinLearningSamples {
		return idle
	}

	fill := float64(stats.Samples) / float64(c.ledger.Window())
	m := modulation{confidence: c.tuning.LearningConfFactor * math.Min(1, fill)}
	scale := math.Min(c.tuning.LearningScaleCap, fill)
	switch {
	case stats.SuccessRate < c.tuning.LowSuccessRate:
		m.adjustment = c.tuning.LowSuccessAdj * scale
	case stats.SuccessRate > c.tuning.HighSuccessRate:
		m.adjustment = c.tuning.HighSuccessAdj * scale
	}
	return m
}

// strategyTag names the dominant modulation source, with a suffix when
// learned history contributed.
func strategyTag(analysis QueryAnalysis, panBoosts map[string]float64, densityAdj, tiltAdj, learningAdj float64) string {
	var tag string
	switch {
	case len(panBoosts) > 0:
		tag = "pan_filtered"
	case analysis.Type == TypePersonal:
		tag = "personal_focused"
	case analysis.Type == TypeFactual:
		tag = "factual_focused"
	case densityAdj != 0:
		tag = "density_adjusted"
	case tiltAdj != 0:
		tag = "tilt_adjusted"
	default:
		tag = "balanced_default"
	}
	if learningAdj != 0 {
		tag += "_learned"
	}
	return tag
}

// expansionSteps walks from primary down to fallback in equal
// decrements, dropping steps that repeat the previous value.
func expansionSteps(primary, fallback float64, max int) []float64 {
	if max < 1 {
		max = 1
	}
	steps := []float64{primary}
	if max == 1 || primary <= fallback {
		return steps
	}

	decrements := max - 1
	delta := (primary - fallback) / float64(decrements)
	for i := 1; i <= decrements; i++ {
		next := primary - delta*float64(i)
		if next == steps[len(steps)-1] {
			continue
		}
		steps = append(steps, next)
	}
	return steps
}

// CalculatorSnapshot is the calculator's read-only performance view.
type CalculatorSnapshot struct {
	Calculations    uint64 `json:"calculations"`
	DensityCacheLen int    `json:"density_cache_entries"`
}

// Snapshot reports how much work the calculator has done.
func (c *ThresholdCalculator) Snapshot() CalculatorSnapshot {
	return CalculatorSnapshot{
		Calculations:    c.calls.Load(),
		DensityCacheLen: c.density.CacheLen(),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
