package scorer

import (
	"math"
	"time"

	"github.com/evan-ryan-york/memograph/model"
)

// baseImportance maps entity types to their base importance score
var baseImportance = map[model.EntityType]float64{
	model.EntityTypeCoreIdentity: 1.0,
	model.EntityTypeProject:      0.85,
	model.EntityTypeFeature:      0.8,
	model.EntityTypeDecision:     0.75,
	model.EntityTypePerson:       0.7,
	model.EntityTypeReflection:   0.65,
	model.EntityTypeTask:         0.6,
	model.EntityTypeMeetingNote:  0.5,
	model.EntityTypeCompany:      0.5,
	model.EntityTypeReference:    0.4,
}

const defaultImportance = 0.5

// userImportanceShift is applied on top of the base score when the user
// has marked an entity as high or low importance
const userImportanceShift = 0.2

// CompositeWeights holds the weighting of the three signal components
// in the composite relevance score
type CompositeWeights struct {
	Importance float64
	Recency    float64
	Novelty    float64
}

// DefaultCompositeWeights returns the default composite weighting
func DefaultCompositeWeights() CompositeWeights {
	return CompositeWeights{Importance: 0.5, Recency: 0.3, Novelty: 0.2}
}

// Scorer computes relevance signals for promoted entities
type Scorer struct {
	halfLifeDays float64
	weights      CompositeWeights
}

// NewScorer creates a scorer with the given recency half-life in days
func NewScorer(halfLifeDays float64) *Scorer {
	if halfLifeDays <= 0 {
		halfLifeDays = 30
	}
	return &Scorer{
		halfLifeDays: halfLifeDays,
		weights:      DefaultCompositeWeights(),
	}
}

// Importance returns the importance score for an entity. The base score
// comes from the entity type; a user importance override in the metadata
// shifts it up or down, clamped to [0, 1].
func (s *Scorer) Importance(entity *model.Entity) float64 {
	importance, ok := baseImportance[entity.Type]
	if !ok {
		importance = defaultImportance
	}

	switch entity.Metadata.UserImportance() {
	case "high":
		importance += userImportanceShift
	case "low":
		importance -= userImportanceShift
	}

	return clamp(importance)
}

// Recency returns the exponential freshness score for an entity last
// touched at the given time. A just-touched entity scores 1; the score
// halves every half-life.
func (s *Scorer) Recency(lastTouched time.Time, now time.Time) float64 {
	ageDays := now.Sub(lastTouched).Hours() / 24
	if ageDays <= 0 {
		return 1
	}
	return math.Exp(-math.Ln2 / s.halfLifeDays * ageDays)
}

// Novelty scores how unexplored an entity is. Few connections and a
// young age both push the score toward 1.
func (s *Scorer) Novelty(edgeCount int, createdAt time.Time, now time.Time) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}

	connectionNovelty := 1 / (1 + 0.1*float64(edgeCount))
	ageNovelty := 1 / (1 + 0.05*ageDays)

	return clamp((connectionNovelty + ageNovelty) / 2)
}

// Score computes the full signal for an entity with the given edge count
func (s *Scorer) Score(entity *model.Entity, edgeCount int, now time.Time) *model.Signal {
	return &model.Signal{
		EntityID:   entity.ID,
		Importance: s.Importance(entity),
		Recency:    s.Recency(entity.UpdatedAt, now),
		Novelty:    s.Novelty(edgeCount, entity.CreatedAt, now),
	}
}

// Composite collapses a signal into a single relevance score using the
// default weights
func (s *Scorer) Composite(signal *model.Signal) float64 {
	return s.CompositeWith(signal, s.weights)
}

// CompositeWith collapses a signal using caller-supplied weights, for
// consumers that rank by a different blend than the default
func (s *Scorer) CompositeWith(signal *model.Signal, weights CompositeWeights) float64 {
	return clamp(weights.Importance*signal.Importance +
		weights.Recency*signal.Recency +
		weights.Novelty*signal.Novelty)
}

func clamp(value float64) float64 {
	return math.Min(math.Max(value, 0), 1)
}
