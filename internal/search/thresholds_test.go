package search

import (
	"math"
	"strings"
	"testing"

	"github.com/danja/semem-sub000/internal/zpt"
)

func approxEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func newTestCalculator(ledger *PerformanceLedger) *ThresholdCalculator {
	return NewThresholdCalculator(DefaultTuning(), NewDensityEstimator(), ledger)
}

func TestBaseThreshold(t *testing.T) {
	c := newTestCalculator(nil)

	tests := []struct {
		name  string
		query string
		zoom  zpt.ZoomLevel
		want  float64
	}{
		{
			// Simple/general at entity zoom: 0.45 default + 0.10 simple.
			name:  "simple general entity",
			query: "hi",
			zoom:  zpt.ZoomEntity,
			want:  0.55,
		},
		{
			// Complex then personal pushes below the band: clamped to min.
			name: "complex personal clamps to band min",
			query: "i think my experience with i feel and my personal journey needs revisiting " +
				"because i think it shaped me deeply",
			zoom: zpt.ZoomEntity,
			want: 0.35,
		},
		{
			name:  "factual medium at unit",
			query: "explain the research behind this",
			zoom:  zpt.ZoomUnit,
			want:  0.40,
		},
		{
			name:  "unknown zoom degrades to default band",
			query: "hi",
			zoom:  zpt.ZoomLevel("galaxy"),
			want:  0.55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.baseThreshold(AnalyzeQuery(tt.query), tt.zoom)
			if !approxEq(got, tt.want) {
				t.Errorf("baseThreshold() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPanModulation(t *testing.T) {
	c := newTestCalculator(nil)

	t.Run("keywords and domains", func(t *testing.T) {
		pan := zpt.PanFilter{
			Keywords: []string{"graph", "vector", "index"},
			Domains:  []string{"databases"},
		}
		m, boosts := c.panModulation(pan)

		// 3 keywords: -min(0.08, 0.06) = -0.06, plus domain -0.03.
		if !approxEq(m.adjustment, -0.09) {
			t.Errorf("adjustment = %v, want -0.09", m.adjustment)
		}
		if m.confidence != 0.9 {
			t.Errorf("confidence = %v, want 0.9", m.confidence)
		}
		if !approxEq(boosts[zpt.PanKindKeywords], -0.06) || !approxEq(boosts[zpt.PanKindDomains], -0.03) {
			t.Errorf("boosts = %v", boosts)
		}
	})

	t.Run("keyword discount is capped", func(t *testing.T) {
		pan := zpt.PanFilter{Keywords: []string{"a", "b", "c", "d", "e", "f"}}
		m, _ := c.panModulation(pan)
		if !approxEq(m.adjustment, -0.08) {
			t.Errorf("adjustment = %v, want capped -0.08", m.adjustment)
		}
	})

	t.Run("no filters", func(t *testing.T) {
		m, boosts := c.panModulation(zpt.PanFilter{})
		if m.adjustment != 0 || m.confidence != 0.5 || boosts != nil {
			t.Errorf("idle pan: adj=%v conf=%v boosts=%v", m.adjustment, m.confidence, boosts)
		}
	})
}

func TestCalculate_PanLowersPrimary(t *testing.T) {
	c := newTestCalculator(nil)
	query := "vector index tuning"
	analysis := AnalyzeQuery(query)

	plain := zpt.NavigationState{Zoom: zpt.ZoomCorpus, Tilt: zpt.TiltEmbedding}
	filtered := plain
	filtered.Pan = zpt.PanFilter{
		Keywords: []string{"graph", "vector", "index"},
		Domains:  []string{"databases"},
	}

	base := c.Calculate(query, analysis, plain, DefaultOptions())
	modulated := c.Calculate(query, analysis, filtered, DefaultOptions())

	if modulated.Primary >= base.Primary {
		t.Errorf("filtered primary %v should be strictly below unfiltered %v", modulated.Primary, base.Primary)
	}
	if modulated.Strategy != "pan_filtered" {
		t.Errorf("Strategy = %q, want pan_filtered", modulated.Strategy)
	}
	if len(modulated.PanBoosts) != 2 {
		t.Errorf("PanBoosts = %v, want keyword and domain entries", modulated.PanBoosts)
	}
}

func TestLearningModulation(t *testing.T) {
	t.Run("insufficient samples", func(t *testing.T) {
		ledger := NewPerformanceLedger(50)
		key := LedgerKey{QueryType: TypeFactual, Zoom: zpt.ZoomUnit}
		for i := 0; i < 4; i++ {
			ledger.Record(key, 0.35, true)
		}

		m := newTestCalculator(ledger).learningModulation(key)
		if m.adjustment != 0 || m.confidence != 0.5 {
			t.Errorf("adj=%v conf=%v, want 0 and 0.5", m.adjustment, m.confidence)
		}
	})

	t.Run("five samples four successes", func(t *testing.T) {
		ledger := NewPerformanceLedger(50)
		key := LedgerKey{QueryType: TypeFactual, Zoom: zpt.ZoomUnit}
		for i := 0; i < 4; i++ {
			ledger.Record(key, 0.35, true)
		}
		ledger.Record(key, 0.35, false)

		m := newTestCalculator(ledger).learningModulation(key)
		// 0.8 success rate nudges up by 0.02 scaled by 5/50.
		if !approxEq(m.adjustment, 0.02*0.1) {
			t.Errorf("adjustment = %v, want 0.002", m.adjustment)
		}
		if !approxEq(m.confidence, 0.09) {
			t.Errorf("confidence = %v, want 0.09", m.confidence)
		}
	})

	t.Run("low success rate pushes down", func(t *testing.T) {
		ledger := NewPerformanceLedger(50)
		key := LedgerKey{QueryType: TypeGeneral, Zoom: zpt.ZoomEntity}
		for i := 0; i < 10; i++ {
			ledger.Record(key, 0.5, i < 2)
		}

		m := newTestCalculator(ledger).learningModulation(key)
		if !approxEq(m.adjustment, -0.04*(10.0/50.0)) {
			t.Errorf("adjustment = %v, want -0.008", m.adjustment)
		}
	})

	t.Run("nil ledger disables learning", func(t *testing.T) {
		m := newTestCalculator(nil).learningModulation(LedgerKey{QueryType: TypeGeneral, Zoom: zpt.ZoomEntity})
		if m.adjustment != 0 || m.confidence != 0.5 {
			t.Errorf("adj=%v conf=%v, want 0 and 0.5", m.adjustment, m.confidence)
		}
	})
}

func TestCalculate_LearnedStrategySuffix(t *testing.T) {
	ledger := NewPerformanceLedger(50)
	key := LedgerKey{QueryType: TypeGeneral, Zoom: zpt.ZoomEntity}
	for i := 0; i < 20; i++ {
		ledger.Record(key, 0.5, i < 4)
	}

	c := newTestCalculator(ledger)
	cfg := c.Calculate("hello there friend", AnalyzeQuery("hello there friend"),
		zpt.NavigationState{Zoom: zpt.ZoomEntity, Tilt: zpt.TiltEmbedding}, DefaultOptions())

	if !strings.HasSuffix(cfg.Strategy, "_learned") {
		t.Errorf("Strategy = %q, want _learned suffix", cfg.Strategy)
	}
}

func TestCalculate_BoundsProperty(t *testing.T) {
	ledger := NewPerformanceLedger(50)
	for i := 0; i < 30; i++ {
		ledger.Record(LedgerKey{QueryType: TypeQuestion, Zoom: zpt.ZoomText}, 0.3, i%3 == 0)
	}
	c := newTestCalculator(ledger)

	queries := []string{
		"",
		"hi",
		"what is the general idea about this topic and how does it help",
		"i think my experience tells me i feel this is personal to me",
		"explain the specific technical research study in exhaustive detail " +
			strings.Repeat("with more context ", 10),
	}
	zooms := []zpt.ZoomLevel{
		zpt.ZoomEntity, zpt.ZoomUnit, zpt.ZoomText,
		zpt.ZoomCommunity, zpt.ZoomCorpus, zpt.ZoomMicro, zpt.ZoomLevel("bogus"),
	}
	tilts := []zpt.TiltStyle{zpt.TiltGraph, zpt.TiltEmbedding, zpt.TiltTemporal, zpt.TiltKeywords}
	pans := []zpt.PanFilter{
		{},
		{Keywords: []string{"alpha", "beta", "gamma"}},
		{Keywords: []string{"alpha"}, Domains: []string{"science"}, Entities: []string{"Tesla"}},
	}

	for _, q := range queries {
		analysis := AnalyzeQuery(q)
		for _, zoom := range zooms {
			for _, tilt := range tilts {
				for _, pan := range pans {
					nav := zpt.NavigationState{Zoom: zoom, Pan: pan, Tilt: tilt}
					cfg := c.Calculate(q, analysis, nav, DefaultOptions())

					if cfg.Primary < 0.1 || cfg.Primary > 0.8 {
						t.Fatalf("primary %v out of [0.1, 0.8] for %q/%s/%s", cfg.Primary, q, zoom, tilt)
					}
					if cfg.Fallback < 0.05 || cfg.Fallback >= cfg.Primary {
						t.Fatalf("fallback %v not in [0.05, primary) for %q/%s/%s", cfg.Fallback, q, zoom, tilt)
					}
					if cfg.Confidence < 0 || cfg.Confidence > 1 {
						t.Fatalf("confidence %v out of [0,1]", cfg.Confidence)
					}
					assertNonIncreasingSteps(t, cfg)
				}
			}
		}
	}
}

func assertNonIncreasingSteps(t *testing.T, cfg ThresholdConfig) {
	t.Helper()
	if len(cfg.ExpansionSteps) == 0 || len(cfg.ExpansionSteps) > 4 {
		t.Fatalf("expansion steps length %d, want 1-4", len(cfg.ExpansionSteps))
	}
	if cfg.ExpansionSteps[0] != cfg.Primary {
		t.Fatalf("first step %v != primary %v", cfg.ExpansionSteps[0], cfg.Primary)
	}
	for i := 1; i < len(cfg.ExpansionSteps); i++ {
		if cfg.ExpansionSteps[i] > cfg.ExpansionSteps[i-1] {
			t.Fatalf("steps increase at %d: %v", i, cfg.ExpansionSteps)
		}
	}
	last := cfg.ExpansionSteps[len(cfg.ExpansionSteps)-1]
	if last < cfg.Fallback-1e-9 {
		t.Fatalf("last step %v below fallback %v", last, cfg.Fallback)
	}
}

func TestCalculate_ExplicitOverride(t *testing.T) {
	c := newTestCalculator(nil)
	opts := DefaultOptions()
	override := 0.42
	opts.Threshold = &override

	cfg := c.Calculate("anything at all", AnalyzeQuery("anything at all"),
		zpt.NavigationState{Zoom: zpt.ZoomEntity, Tilt: zpt.TiltGraph}, opts)

	if len(cfg.ExpansionSteps) != 1 || cfg.ExpansionSteps[0] != override {
		t.Errorf("ExpansionSteps = %v, want [0.42]", cfg.ExpansionSteps)
	}
	if cfg.Primary != override {
		t.Errorf("Primary = %v, want %v", cfg.Primary, override)
	}
	if cfg.Strategy != "explicit_override" {
		t.Errorf("Strategy = %q", cfg.Strategy)
	}
}

func TestExpansionSteps(t *testing.T) {
	steps := expansionSteps(0.55, 0.45, 4)
	want := []float64{0.55, 0.55 - 0.1/3, 0.55 - 0.2/3, 0.45}
	if len(steps) != 4 {
		t.Fatalf("got %d steps, want 4: %v", len(steps), steps)
	}
	for i := range want {
		if !approxEq(steps[i], want[i]) {
			t.Errorf("step[%d] = %v, want %v", i, steps[i], want[i])
		}
	}

	// Degenerate spread collapses to a single step.
	steps = expansionSteps(0.3, 0.3, 4)
	if len(steps) != 1 || steps[0] != 0.3 {
		t.Errorf("equal primary/fallback: got %v, want [0.3]", steps)
	}
}

func TestStrategyTag(t *testing.T) {
	tests := []struct {
		name        string
		analysis    QueryAnalysis
		panBoosts   map[string]float64
		densityAdj  float64
		tiltAdj     float64
		learningAdj float64
		want        string
	}{
		{
			name:      "pan wins over type",
			analysis:  QueryAnalysis{Type: TypePersonal},
			panBoosts: map[string]float64{"keywords": -0.02},
			want:      "pan_filtered",
		},
		{
			name:     "personal focus",
			analysis: QueryAnalysis{Type: TypePersonal},
			want:     "personal_focused",
		},
		{
			name:     "factual focus",
			analysis: QueryAnalysis{Type: TypeFactual},
			want:     "factual_focused",
		},
		{
			name:       "density adjusted",
			analysis:   QueryAnalysis{Type: TypeGeneral},
			densityAdj: -0.06,
			want:       "density_adjusted",
		},
		{
			name:     "tilt adjusted",
			analysis: QueryAnalysis{Type: TypeGeneral},
			tiltAdj:  0.03,
			want:     "tilt_adjusted",
		},
		{
			name:     "balanced default",
			analysis: QueryAnalysis{Type: TypeGeneral},
			want:     "balanced_default",
		},
		{
			name:        "learned suffix",
			analysis:    QueryAnalysis{Type: TypeFactual},
			learningAdj: 0.002,
			want:        "factual_focused_learned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strategyTag(tt.analysis, tt.panBoosts, tt.densityAdj, tt.tiltAdj, tt.learningAdj)
			if got != tt.want {
				t.Errorf("strategyTag() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCalculatorSnapshot(t *testing.T) {
	c := newTestCalculator(nil)
	nav := zpt.NavigationState{Zoom: zpt.ZoomEntity, Tilt: zpt.TiltEmbedding}
	for i := 0; i < 3; i++ {
		c.Calculate("query one", AnalyzeQuery("query one"), nav, DefaultOptions())
	}

	snap := c.Snapshot()
	if snap.Calculations != 3 {
		t.Errorf("Calculations = %d, want 3", snap.Calculations)
	}
	if snap.DensityCacheLen != 1 {
		t.Errorf("DensityCacheLen = %d, want 1", snap.DensityCacheLen)
	}
}
