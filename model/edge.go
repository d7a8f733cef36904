package model

import (
	"time"

	"github.com/google/uuid"
)

// EdgeKind represents the type of relationship between two entities
type EdgeKind string

const (
	EdgeKindBelongsTo    EdgeKind = "belongs_to"
	EdgeKindModifies     EdgeKind = "modifies"
	EdgeKindMentions     EdgeKind = "mentions"
	EdgeKindInforms      EdgeKind = "informs"
	EdgeKindBlocks       EdgeKind = "blocks"
	EdgeKindContradicts  EdgeKind = "contradicts"
	EdgeKindRelatesTo    EdgeKind = "relates_to"
	EdgeKindRoleAt       EdgeKind = "role_at"
	EdgeKindSemanticNear EdgeKind = "semantically_related"
	EdgeKindTemporal     EdgeKind = "temporal_overlap"
	EdgeKindInferred     EdgeKind = "inferred_connection"
)

// Edge represents a typed, weighted relationship between two entities.
// Weight only increases through reinforcement and only decreases through
// the consolidation decay sweep; edges below the pruning threshold are
// removed by the next sweep.
type Edge struct {
	ID                  uuid.UUID  `json:"id"`
	FromID              uuid.UUID  `json:"from_id"`
	ToID                uuid.UUID  `json:"to_id"`
	Kind                EdgeKind   `json:"kind"`
	Weight              float64    `json:"weight"`
	Confidence          float64    `json:"confidence"`
	ValidFrom           *time.Time `json:"valid_from,omitempty"`
	ValidTo             *time.Time `json:"valid_to,omitempty"`
	Description         string     `json:"description,omitempty"`
	SourceObservationID *uuid.UUID `json:"source_observation_id,omitempty"`
	LastReinforcedAt    time.Time  `json:"last_reinforced_at"`
	LastDecayedAt       *time.Time `json:"last_decayed_at,omitempty"`
	Metadata            Metadata   `json:"metadata,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}
