package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/evan-ryan-york/memograph/database"
	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
)

// Ledger tracks entity mentions and decides promotion. Every extracted
// candidate is recorded against its (normalized title, type) identity;
// an entity is promoted once it has been mentioned in enough distinct
// observations, or immediately when it is the primary subject of a note.
// Promotion happens at most once per entity.
type Ledger struct {
	mu        sync.Mutex
	entities  database.EntitiesDBHandlerFunctions
	threshold int
	cache     map[string]uuid.UUID
}

// RecordResult reports what a recorded mention did to the entity
type RecordResult struct {
	Entity      *model.Entity
	Created     bool
	PromotedNow bool
}

// NewLedger creates a mention ledger over the entities store.
// threshold is the number of distinct observations required for promotion.
func NewLedger(entities database.EntitiesDBHandlerFunctions, threshold int) (*Ledger, error) {
	if entities == nil {
		return nil, helper.NewError("entities handler validation", fmt.Errorf("entities handler is nil"))
	}
	if threshold < 1 {
		threshold = 1
	}

	return &Ledger{
		entities:  entities,
		threshold: threshold,
		cache:     map[string]uuid.UUID{},
	}, nil
}

// Record registers one mention of the candidate from the given observation
// and applies the promotion rule. Recording the same observation twice for
// the same entity does not count as a second mention.
func (l *Ledger) Record(candidate *model.CandidateEntity, observationID uuid.UUID) (*RecordResult, error) {
	if candidate == nil || strings.TrimSpace(candidate.Title) == "" {
		return nil, helper.NewError("candidate validation", fmt.Errorf("candidate title is empty"))
	}

	entity := &model.Entity{
		Type:                candidate.Type,
		Title:               strings.TrimSpace(candidate.Title),
		Summary:             candidate.Summary,
		Metadata:            model.Metadata{},
		SourceObservationID: &observationID,
	}

	created, err := l.entities.GetOrCreateEntity(entity)
	if err != nil {
		return nil, helper.NewError("get or create entity", err)
	}

	// Alias capture: remember surface forms that differ from the stored title
	if !created && entity.Title != strings.TrimSpace(candidate.Title) {
		if entity.Metadata == nil {
			entity.Metadata = model.Metadata{}
		}
		if entity.Metadata.AddAlias(strings.TrimSpace(candidate.Title)) {
			err = l.entities.UpdateEntityMetadata(entity.ID, entity.Metadata)
			if err != nil {
				return nil, helper.NewError("update entity metadata", err)
			}
		}
	}

	entity, err = l.entities.AddEntityReference(entity.ID, observationID)
	if err != nil {
		return nil, helper.NewError("add entity reference", err)
	}

	promotedNow := false
	if !entity.Promoted && l.ShouldPromote(entity, candidate.IsPrimarySubject) {
		err = l.entities.SetEntityPromoted(entity.ID, true)
		if err != nil {
			return nil, helper.NewError("promote entity", err)
		}
		entity.Promoted = true
		promotedNow = true
	}

	l.remember(entity)

	return &RecordResult{Entity: entity, Created: created, PromotedNow: promotedNow}, nil
}

// ShouldPromote applies the promotion rule to an unpromoted entity:
// enough distinct observations, or primary subject of the current note.
func (l *Ledger) ShouldPromote(entity *model.Entity, isPrimarySubject bool) bool {
	if entity.Promoted {
		return false
	}
	return isPrimarySubject || entity.MentionCount >= l.threshold
}

// EntityIDFor resolves a surface title and type to an entity ID,
// consulting the in-process cache before the store
func (l *Ledger) EntityIDFor(title string, entityType model.EntityType) (uuid.UUID, bool) {
	key := cacheKey(model.NormalizeTitle(title), entityType)

	l.mu.Lock()
	id, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		return id, true
	}

	entity, err := l.entities.SelectEntityByTitle(model.NormalizeTitle(title), entityType)
	if err != nil {
		return uuid.Nil, false
	}

	l.remember(entity)
	return entity.ID, true
}

func (l *Ledger) remember(entity *model.Entity) {
	l.mu.Lock()
	l.cache[cacheKey(entity.NormalizedTitle, entity.Type)] = entity.ID
	l.mu.Unlock()
}

func cacheKey(normalizedTitle string, entityType model.EntityType) string {
	return normalizedTitle + "|" + string(entityType)
}
