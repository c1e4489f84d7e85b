package search

import "github.com/danja/semem-sub000/internal/zpt"

// ZoomBand is the {min, max, default} base-threshold triple for one zoom
// level.
type ZoomBand struct {
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
	Default float64 `yaml:"default" json:"default"`
}

// Tuning collects the heuristic constants behind threshold calculation.
// The values are tuned defaults with no derivation behind them; they can
// be overridden wholesale from configuration.
type Tuning struct {
	ZoomBands map[zpt.ZoomLevel]ZoomBand `yaml:"zoom_bands" json:"zoom_bands"`

	// Base-threshold adjustments from query features.
	SimpleComplexityAdj  float64 `yaml:"simple_complexity_adj" json:"simple_complexity_adj"`
	ComplexComplexityAdj float64 `yaml:"complex_complexity_adj" json:"complex_complexity_adj"`
	PersonalTypeAdj      float64 `yaml:"personal_type_adj" json:"personal_type_adj"`
	FactualTypeAdj       float64 `yaml:"factual_type_adj" json:"factual_type_adj"`

	// Navigation modulation.
	TiltAdjustments    map[zpt.TiltStyle]float64 `yaml:"tilt_adjustments" json:"tilt_adjustments"`
	FilterKindStep     float64                   `yaml:"filter_kind_step" json:"filter_kind_step"`
	FilterKindCap      float64                   `yaml:"filter_kind_cap" json:"filter_kind_cap"`
	TiltConfFiltered   float64                   `yaml:"tilt_conf_filtered" json:"tilt_conf_filtered"`
	TiltConfUnfiltered float64                   `yaml:"tilt_conf_unfiltered" json:"tilt_conf_unfiltered"`

	// Pan modulation.
	PanKeywordStep float64 `yaml:"pan_keyword_step" json:"pan_keyword_step"`
	PanKeywordCap  float64 `yaml:"pan_keyword_cap" json:"pan_keyword_cap"`
	PanDomainAdj   float64 `yaml:"pan_domain_adj" json:"pan_domain_adj"`
	PanEntityAdj   float64 `yaml:"pan_entity_adj" json:"pan_entity_adj"`
	PanTemporalAdj float64 `yaml:"pan_temporal_adj" json:"pan_temporal_adj"`
	PanConfActive  float64 `yaml:"pan_conf_active" json:"pan_conf_active"`
	PanConfIdle    float64 `yaml:"pan_conf_idle" json:"pan_conf_idle"`

	// Density modulation.
	DensityLowCutoff  float64 `yaml:"density_low_cutoff" json:"density_low_cutoff"`
	DensityHighCutoff float64 `yaml:"density_high_cutoff" json:"density_high_cutoff"`
	DensityLowAdj     float64 `yaml:"density_low_adj" json:"density_low_adj"`
	DensityHighAdj    float64 `yaml:"density_high_adj" json:"density_high_adj"`
	DensityConf       float64 `yaml:"density_conf" json:"density_conf"`

	// Learning modulation.
	MinLearningSamples int     `yaml:"min_learning_samples" json:"min_learning_samples"`
	LowSuccessRate     float64 `yaml:"low_success_rate" json:"low_success_rate"`
	HighSuccessRate    float64 `yaml:"high_success_rate" json:"high_success_rate"`
	LowSuccessAdj      float64 `yaml:"low_success_adj" json:"low_success_adj"`
	HighSuccessAdj     float64 `yaml:"high_success_adj" json:"high_success_adj"`
	LearningScaleCap   float64 `yaml:"learning_scale_cap" json:"learning_scale_cap"`
	LearningConfFactor float64 `yaml:"learning_conf_factor" json:"learning_conf_factor"`
	LearningConfIdle   float64 `yaml:"learning_conf_idle" json:"learning_conf_idle"`

	// Combination bounds.
	PrimaryMin        float64 `yaml:"primary_min" json:"primary_min"`
	PrimaryMax        float64 `yaml:"primary_max" json:"primary_max"`
	FallbackFloor     float64 `yaml:"fallback_floor" json:"fallback_floor"`
	FallbackDrop      float64 `yaml:"fallback_drop" json:"fallback_drop"`
	MaxExpansionSteps int     `yaml:"max_expansion_steps" json:"max_expansion_steps"`

	Scoring ScoringWeights `yaml:"scoring" json:"scoring"`
}

// ScoringWeights configures the composite quality score and the final
// ranking key. QualityWeight and SimilarityWeight should sum to 1.
type ScoringWeights struct {
	Base               float64 `yaml:"base" json:"base"`
	Similarity         float64 `yaml:"similarity" json:"similarity"`
	Length             float64 `yaml:"length" json:"length"`
	LengthNorm         int     `yaml:"length_norm" json:"length_norm"`
	PanBoostCap        float64 `yaml:"pan_boost_cap" json:"pan_boost_cap"`
	Recency            float64 `yaml:"recency" json:"recency"`
	RecencyHorizonDays float64 `yaml:"recency_horizon_days" json:"recency_horizon_days"`
	Concept            float64 `yaml:"concept" json:"concept"`
	ConceptNorm        int     `yaml:"concept_norm" json:"concept_norm"`

	QualityWeight    float64 `yaml:"quality_weight" json:"quality_weight"`
	SimilarityWeight float64 `yaml:"similarity_weight" json:"similarity_weight"`
	QualityFloor     float64 `yaml:"quality_floor" json:"quality_floor"`
}

// DefaultTuning returns the stock constants.
func DefaultTuning() Tuning {
	return Tuning{
		ZoomBands: map[zpt.ZoomLevel]ZoomBand{
			zpt.ZoomEntity:    {Min: 0.35, Max: 0.65, Default: 0.45},
			zpt.ZoomUnit:      {Min: 0.25, Max: 0.50, Default: 0.35},
			zpt.ZoomText:      {Min: 0.20, Max: 0.45, Default: 0.30},
			zpt.ZoomCommunity: {Min: 0.15, Max: 0.40, Default: 0.25},
			zpt.ZoomCorpus:    {Min: 0.10, Max: 0.35, Default: 0.20},
			zpt.ZoomMicro:     {Min: 0.10, Max: 0.35, Default: 0.20},
		},

		SimpleComplexityAdj:  0.10,
		ComplexComplexityAdj: -0.05,
		PersonalTypeAdj:      -0.08,
		FactualTypeAdj:       0.05,

		TiltAdjustments: map[zpt.TiltStyle]float64{
			zpt.TiltGraph:     -0.05,
			zpt.TiltEmbedding: 0.03,
			zpt.TiltTemporal:  -0.03,
			zpt.TiltKeywords:  0.02,
		},
		FilterKindStep:     0.02,
		FilterKindCap:      0.10,
		TiltConfFiltered:   0.8,
		TiltConfUnfiltered: 0.6,

		PanKeywordStep: 0.02,
		PanKeywordCap:  0.08,
		PanDomainAdj:   -0.03,
		PanEntityAdj:   -0.05,
		PanTemporalAdj: -0.02,
		PanConfActive:  0.9,
		PanConfIdle:    0.5,

		DensityLowCutoff:  0.4,
		DensityHighCutoff: 0.7,
		DensityLowAdj:     -0.06,
		DensityHighAdj:    0.04,
		DensityConf:       0.6,

		MinLearningSamples: 5,
		LowSuccessRate:     0.6,
		HighSuccessRate:    0.75,
		LowSuccessAdj:      -0.04,
		HighSuccessAdj:     0.02,
		LearningScaleCap:   0.9,
		LearningConfFactor: 0.9,
		LearningConfIdle:   0.5,

		PrimaryMin:        0.1,
		PrimaryMax:        0.8,
		FallbackFloor:     0.05,
		FallbackDrop:      0.1,
		MaxExpansionSteps: 4,

		Scoring: DefaultScoringWeights(),
	}
}

// DefaultScoringWeights returns the stock scoring configuration.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Base:               0.1,
		Similarity:         0.5,
		Length:             0.15,
		LengthNorm:         200,
		PanBoostCap:        0.2,
		Recency:            0.1,
		RecencyHorizonDays: 365,
		Concept:            0.1,
		ConceptNorm:        5,

		QualityWeight:    0.7,
		SimilarityWeight: 0.3,
		QualityFloor:     0.3,
	}
}
