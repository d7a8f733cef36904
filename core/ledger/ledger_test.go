package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEntities is an in-memory stand-in for the entities store
type fakeEntities struct {
	byID    map[uuid.UUID]*model.Entity
	byTitle map[string]*model.Entity
}

func newFakeEntities() *fakeEntities {
	return &fakeEntities{
		byID:    map[uuid.UUID]*model.Entity{},
		byTitle: map[string]*model.Entity{},
	}
}

func (f *fakeEntities) key(normalizedTitle string, entityType model.EntityType) string {
	return normalizedTitle + "|" + string(entityType)
}

func (f *fakeEntities) GetOrCreateEntity(entity *model.Entity) (bool, error) {
	entity.NormalizedTitle = model.NormalizeTitle(entity.Title)
	existing, ok := f.byTitle[f.key(entity.NormalizedTitle, entity.Type)]
	if ok {
		*entity = *existing
		return false, nil
	}

	entity.ID = uuid.New()
	entity.CreatedAt = time.Now()
	entity.UpdatedAt = time.Now()
	stored := *entity
	f.byID[entity.ID] = &stored
	f.byTitle[f.key(entity.NormalizedTitle, entity.Type)] = &stored
	return true, nil
}

func (f *fakeEntities) AddEntityReference(id uuid.UUID, observationID uuid.UUID) (*model.Entity, error) {
	entity, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("entity %s not found", id)
	}
	for _, ref := range entity.ReferencedBy {
		if ref == observationID {
			copied := *entity
			return &copied, nil
		}
	}
	entity.ReferencedBy = append(entity.ReferencedBy, observationID)
	entity.MentionCount++
	copied := *entity
	return &copied, nil
}

func (f *fakeEntities) RemoveEntityReference(id uuid.UUID, observationID uuid.UUID) (*model.Entity, error) {
	entity, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("entity %s not found", id)
	}
	kept := entity.ReferencedBy[:0]
	for _, ref := range entity.ReferencedBy {
		if ref != observationID {
			kept = append(kept, ref)
		} else if entity.MentionCount > 0 {
			entity.MentionCount--
		}
	}
	entity.ReferencedBy = kept
	copied := *entity
	return &copied, nil
}

func (f *fakeEntities) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	entity, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("entity %s not found", id)
	}
	copied := *entity
	return &copied, nil
}

func (f *fakeEntities) SelectEntityByTitle(normalizedTitle string, entityType model.EntityType) (*model.Entity, error) {
	entity, ok := f.byTitle[f.key(normalizedTitle, entityType)]
	if !ok {
		return nil, fmt.Errorf("entity %s not found", normalizedTitle)
	}
	copied := *entity
	return &copied, nil
}

func (f *fakeEntities) SelectEntitiesByType(entityType model.EntityType) ([]*model.Entity, error) {
	var entities []*model.Entity
	for _, entity := range f.byID {
		if entity.Type == entityType {
			copied := *entity
			entities = append(entities, &copied)
		}
	}
	return entities, nil
}

func (f *fakeEntities) SelectEntitiesByObservation(observationID uuid.UUID) ([]*model.Entity, error) {
	var entities []*model.Entity
	for _, entity := range f.byID {
		for _, ref := range entity.ReferencedBy {
			if ref == observationID {
				copied := *entity
				entities = append(entities, &copied)
				break
			}
		}
	}
	return entities, nil
}

func (f *fakeEntities) SelectEntitiesUpdatedSince(since time.Time, limit int) ([]*model.Entity, error) {
	var entities []*model.Entity
	for _, entity := range f.byID {
		if !entity.UpdatedAt.Before(since) && len(entities) < limit {
			copied := *entity
			entities = append(entities, &copied)
		}
	}
	return entities, nil
}

func (f *fakeEntities) UpdateEntityMetadata(id uuid.UUID, metadata model.Metadata) error {
	entity, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("entity %s not found", id)
	}
	entity.Metadata = metadata
	return nil
}

func (f *fakeEntities) UpdateEntitySummary(id uuid.UUID, summary string) error {
	entity, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("entity %s not found", id)
	}
	entity.Summary = summary
	return nil
}

func (f *fakeEntities) UpdateEntityEmbedding(id uuid.UUID, embedding []float32) error {
	entity, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("entity %s not found", id)
	}
	entity.Embedding = embedding
	return nil
}

func (f *fakeEntities) SetEntityPromoted(id uuid.UUID, promoted bool) error {
	entity, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("entity %s not found", id)
	}
	entity.Promoted = promoted
	return nil
}

func (f *fakeEntities) SelectSimilarEntityPairs(threshold float64, limit int) ([]*model.EntityPair, error) {
	return nil, nil
}

func (f *fakeEntities) DeleteEntity(id uuid.UUID) error {
	entity, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("entity %s not found", id)
	}
	delete(f.byTitle, f.key(entity.NormalizedTitle, entity.Type))
	delete(f.byID, id)
	return nil
}

func TestNewLedger(t *testing.T) {
	t.Run("Valid call NewLedger", func(t *testing.T) {
		l, err := NewLedger(newFakeEntities(), 2)
		assert.NoError(t, err)
		require.NotNil(t, l)
	})

	t.Run("Invalid call NewLedger with nil store", func(t *testing.T) {
		_, err := NewLedger(nil, 2)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "entities handler is nil")
	})

	t.Run("Threshold below one is raised to one", func(t *testing.T) {
		l, err := NewLedger(newFakeEntities(), 0)
		require.NoError(t, err)
		assert.Equal(t, 1, l.threshold)
	})
}

func TestLedgerRecord(t *testing.T) {
	store := newFakeEntities()
	l, err := NewLedger(store, 2)
	require.NoError(t, err)

	t.Run("First mention creates unpromoted entity", func(t *testing.T) {
		result, err := l.Record(&model.CandidateEntity{
			Title:      "Project Atlas",
			Type:       model.EntityTypeProject,
			Confidence: 0.9,
		}, uuid.New())
		assert.NoError(t, err)
		require.NotNil(t, result)
		assert.True(t, result.Created)
		assert.False(t, result.PromotedNow)
		assert.False(t, result.Entity.Promoted)
		assert.Equal(t, 1, result.Entity.MentionCount)
	})

	t.Run("Second distinct observation promotes", func(t *testing.T) {
		result, err := l.Record(&model.CandidateEntity{
			Title: "Project Atlas",
			Type:  model.EntityTypeProject,
		}, uuid.New())
		assert.NoError(t, err)
		assert.False(t, result.Created)
		assert.True(t, result.PromotedNow)
		assert.True(t, result.Entity.Promoted)
		assert.Equal(t, 2, result.Entity.MentionCount)
	})

	t.Run("Promotion happens at most once", func(t *testing.T) {
		result, err := l.Record(&model.CandidateEntity{
			Title: "Project Atlas",
			Type:  model.EntityTypeProject,
		}, uuid.New())
		assert.NoError(t, err)
		assert.False(t, result.PromotedNow, "Expected an already promoted entity to stay promoted quietly")
		assert.True(t, result.Entity.Promoted)
	})

	t.Run("Repeated mention from the same observation does not count", func(t *testing.T) {
		observationID := uuid.New()
		first, err := l.Record(&model.CandidateEntity{
			Title: "Dana",
			Type:  model.EntityTypePerson,
		}, observationID)
		require.NoError(t, err)
		require.Equal(t, 1, first.Entity.MentionCount)

		second, err := l.Record(&model.CandidateEntity{
			Title: "Dana",
			Type:  model.EntityTypePerson,
		}, observationID)
		assert.NoError(t, err)
		assert.Equal(t, 1, second.Entity.MentionCount)
		assert.False(t, second.Entity.Promoted)
	})

	t.Run("Primary subject promotes immediately", func(t *testing.T) {
		result, err := l.Record(&model.CandidateEntity{
			Title:            "Launch decision",
			Type:             model.EntityTypeDecision,
			IsPrimarySubject: true,
		}, uuid.New())
		assert.NoError(t, err)
		assert.True(t, result.Created)
		assert.True(t, result.PromotedNow)
		assert.Equal(t, 1, result.Entity.MentionCount)
	})

	t.Run("Different surface form records an alias", func(t *testing.T) {
		result, err := l.Record(&model.CandidateEntity{
			Title: "  project   ATLAS ",
			Type:  model.EntityTypeProject,
		}, uuid.New())
		assert.NoError(t, err)
		assert.Equal(t, "Project Atlas", result.Entity.Title)

		stored, err := store.SelectEntity(result.Entity.ID)
		require.NoError(t, err)
		assert.Contains(t, stored.Metadata.Aliases(), "project   ATLAS")
	})

	t.Run("Empty candidate title is rejected", func(t *testing.T) {
		_, err := l.Record(&model.CandidateEntity{Title: "   "}, uuid.New())
		assert.Error(t, err)
	})
}

func TestLedgerEntityIDFor(t *testing.T) {
	store := newFakeEntities()
	l, err := NewLedger(store, 2)
	require.NoError(t, err)

	recorded, err := l.Record(&model.CandidateEntity{
		Title: "Helios",
		Type:  model.EntityTypeProject,
	}, uuid.New())
	require.NoError(t, err)

	t.Run("Resolves recorded title", func(t *testing.T) {
		id, ok := l.EntityIDFor("helios", model.EntityTypeProject)
		assert.True(t, ok)
		assert.Equal(t, recorded.Entity.ID, id)
	})

	t.Run("Resolves unnormalized surface form", func(t *testing.T) {
		id, ok := l.EntityIDFor("  HELIOS ", model.EntityTypeProject)
		assert.True(t, ok)
		assert.Equal(t, recorded.Entity.ID, id)
	})

	t.Run("Unknown title does not resolve", func(t *testing.T) {
		_, ok := l.EntityIDFor("unknown", model.EntityTypeProject)
		assert.False(t, ok)
	})

	t.Run("Falls back to the store on cold cache", func(t *testing.T) {
		cold, err := NewLedger(store, 2)
		require.NoError(t, err)

		id, ok := cold.EntityIDFor("Helios", model.EntityTypeProject)
		assert.True(t, ok)
		assert.Equal(t, recorded.Entity.ID, id)
	})
}
