package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType represents the concept category of an entity
type EntityType string

const (
	EntityTypeCoreIdentity EntityType = "core_identity"
	EntityTypePerson       EntityType = "person"
	EntityTypeProject      EntityType = "project"
	EntityTypeFeature      EntityType = "feature"
	EntityTypeDecision     EntityType = "decision"
	EntityTypeReflection   EntityType = "reflection"
	EntityTypeTask         EntityType = "task"
	EntityTypeMeetingNote  EntityType = "meeting_note"
	EntityTypeCompany      EntityType = "company"
	EntityTypeReference    EntityType = "reference_document"
)

// Entity represents an addressable node in the knowledge graph. A row
// starts metadata-only and becomes a first-class node when Promoted
// flips to true; demotion flips it back but keeps the row addressable
// for future re-promotion. A row is never hard-deleted while its
// reference set is non-empty.
type Entity struct {
	ID                  uuid.UUID   `json:"id"`
	Type                EntityType  `json:"entity_type"`
	Title               string      `json:"title"`
	NormalizedTitle     string      `json:"normalized_title"`
	Summary             string      `json:"summary,omitempty"`
	Metadata            Metadata    `json:"metadata,omitempty"`
	SourceObservationID *uuid.UUID  `json:"source_observation_id,omitempty"`
	ReferencedBy        []uuid.UUID `json:"referenced_by"`
	MentionCount        int         `json:"mention_count"`
	Promoted            bool        `json:"promoted"`
	Embedding           []float32   `json:"embedding,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// EntityPair is a pair of entities with their embedding cosine similarity
type EntityPair struct {
	FromID     uuid.UUID `json:"from_id"`
	ToID       uuid.UUID `json:"to_id"`
	Similarity float64   `json:"similarity"`
}

// NormalizeTitle normalizes an entity title for identity comparison
// (case-fold, trim, collapse inner whitespace)
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(title))), " ")
}

// ReferencedByOthers reports whether any observation other than the given
// one references this entity
func (e *Entity) ReferencedByOthers(observationID uuid.UUID) bool {
	for _, id := range e.ReferencedBy {
		if id != observationID {
			return true
		}
	}
	return false
}
