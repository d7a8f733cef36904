package model

import "time"

// EngineConfig represents the tunable parameters of the maintenance
// engine. Anything likely to need per-deployment tuning (promotion
// threshold, feedback delta) lives here rather than in constants.
type EngineConfig struct {
	// Promotion parameters
	PromotionThreshold int `json:"promotion_threshold"` // distinct observations before promotion

	// Edge lifecycle parameters
	ReinforcementIncrement float64 `json:"reinforcement_increment"`
	DecayFactor            float64 `json:"decay_factor"`
	PruneThreshold         float64 `json:"prune_threshold"`
	MinEdgeConfidence      float64 `json:"min_edge_confidence"`
	SimilarityThreshold    float64 `json:"similarity_threshold"` // embedding strategy cutoff

	// Signal parameters
	RecencyHalfLifeDays float64 `json:"recency_half_life_days"`
	FeedbackDelta       float64 `json:"feedback_delta"`       // acknowledge/dismiss importance shift
	DemotionPenalty     float64 `json:"demotion_penalty"`     // importance penalty on demotion
	NoveltyPenalty      float64 `json:"novelty_penalty"`      // novelty penalty on demotion

	// Processing parameters
	ConsolidationWindow time.Duration `json:"consolidation_window"`
	ExtractionTimeout   time.Duration `json:"extraction_timeout"`
	BatchSize           int           `json:"batch_size"`
	MaxStrategyEntities int           `json:"max_strategy_entities"` // batching bound for pairwise strategies
}

// DefaultEngineConfig returns a sensible default configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PromotionThreshold:     2,
		ReinforcementIncrement: 1.0,
		DecayFactor:            0.99,
		PruneThreshold:         0.1,
		MinEdgeConfidence:      0.5,
		SimilarityThreshold:    0.75,
		RecencyHalfLifeDays:    30,
		FeedbackDelta:          0.1,
		DemotionPenalty:        0.2,
		NoveltyPenalty:         0.1,
		ConsolidationWindow:    24 * time.Hour,
		ExtractionTimeout:      30 * time.Second,
		BatchSize:              10,
		MaxStrategyEntities:    50,
	}
}
