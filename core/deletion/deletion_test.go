package deletion

import (
	"fmt"
	"testing"

	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObservations struct {
	observations map[uuid.UUID]*model.Observation
}

func (f *fakeObservations) SelectObservation(id uuid.UUID) (*model.Observation, error) {
	observation, ok := f.observations[id]
	if !ok {
		return nil, fmt.Errorf("observation %s not found", id)
	}
	return observation, nil
}

func (f *fakeObservations) DeleteObservation(id uuid.UUID) error {
	delete(f.observations, id)
	return nil
}

type fakeEntities struct {
	entities map[uuid.UUID]*model.Entity
}

func (f *fakeEntities) SelectEntitiesByObservation(observationID uuid.UUID) ([]*model.Entity, error) {
	var out []*model.Entity
	for _, entity := range f.entities {
		for _, ref := range entity.ReferencedBy {
			if ref == observationID {
				out = append(out, entity)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeEntities) RemoveEntityReference(id uuid.UUID, observationID uuid.UUID) (*model.Entity, error) {
	entity, ok := f.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s not found", id)
	}
	var refs []uuid.UUID
	removed := false
	for _, ref := range entity.ReferencedBy {
		if ref == observationID {
			removed = true
			continue
		}
		refs = append(refs, ref)
	}
	entity.ReferencedBy = refs
	if removed && entity.MentionCount > 0 {
		entity.MentionCount--
	}
	return entity, nil
}

func (f *fakeEntities) SetEntityPromoted(id uuid.UUID, promoted bool) error {
	entity, ok := f.entities[id]
	if !ok {
		return fmt.Errorf("entity %s not found", id)
	}
	entity.Promoted = promoted
	return nil
}

func (f *fakeEntities) UpdateEntityMetadata(id uuid.UUID, metadata model.Metadata) error {
	entity, ok := f.entities[id]
	if !ok {
		return fmt.Errorf("entity %s not found", id)
	}
	entity.Metadata = metadata
	return nil
}

func (f *fakeEntities) DeleteEntity(id uuid.UUID) error {
	delete(f.entities, id)
	return nil
}

type fakeEdges struct {
	edges map[uuid.UUID]*model.Edge
}

func (f *fakeEdges) DeleteEdgesByObservation(observationID uuid.UUID) (int, error) {
	count := 0
	for id, edge := range f.edges {
		if edge.SourceObservationID != nil && *edge.SourceObservationID == observationID {
			delete(f.edges, id)
			count++
		}
	}
	return count, nil
}

func (f *fakeEdges) DeleteEdgesForEntity(entityID uuid.UUID) (int, error) {
	count := 0
	for id, edge := range f.edges {
		if edge.FromID == entityID || edge.ToID == entityID {
			delete(f.edges, id)
			count++
		}
	}
	return count, nil
}

type fakeSignals struct {
	signals map[uuid.UUID]*model.Signal
}

func (f *fakeSignals) AdjustSignal(entityID uuid.UUID, importanceDelta float64, noveltyDelta float64, refreshRecency bool) (*model.Signal, error) {
	signal, ok := f.signals[entityID]
	if !ok {
		return nil, fmt.Errorf("signal for %s not found", entityID)
	}
	signal.Importance += importanceDelta
	signal.Novelty += noveltyDelta
	return signal, nil
}

func (f *fakeSignals) DeleteSignal(entityID uuid.UUID) error {
	delete(f.signals, entityID)
	return nil
}

type fixture struct {
	observations *fakeObservations
	entities     *fakeEntities
	edges        *fakeEdges
	signals      *fakeSignals
	coordinator  *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		observations: &fakeObservations{observations: map[uuid.UUID]*model.Observation{}},
		entities:     &fakeEntities{entities: map[uuid.UUID]*model.Entity{}},
		edges:        &fakeEdges{edges: map[uuid.UUID]*model.Edge{}},
		signals:      &fakeSignals{signals: map[uuid.UUID]*model.Signal{}},
	}
	coordinator, err := NewCoordinator(f.observations, f.entities, f.edges, f.signals, model.DefaultEngineConfig(), nil)
	require.NoError(t, err)
	f.coordinator = coordinator
	return f
}

func (f *fixture) addObservation() uuid.UUID {
	id := uuid.New()
	f.observations.observations[id] = &model.Observation{ID: id, Content: "note"}
	return id
}

func (f *fixture) addEntity(title string, mentionCount int, promoted bool, refs ...uuid.UUID) *model.Entity {
	entity := &model.Entity{
		ID:           uuid.New(),
		Type:         model.EntityTypeProject,
		Title:        title,
		MentionCount: mentionCount,
		Promoted:     promoted,
		ReferencedBy: refs,
	}
	f.entities.entities[entity.ID] = entity
	f.signals.signals[entity.ID] = &model.Signal{EntityID: entity.ID, Importance: 0.8, Recency: 1, Novelty: 0.5}
	return entity
}

func TestNewCoordinator(t *testing.T) {
	t.Run("Valid call NewCoordinator", func(t *testing.T) {
		f := newFixture(t)
		assert.NotNil(t, f.coordinator)
	})

	t.Run("Invalid call NewCoordinator with nil handler", func(t *testing.T) {
		coordinator, err := NewCoordinator(nil, &fakeEntities{}, &fakeEdges{}, &fakeSignals{}, model.DefaultEngineConfig(), nil)
		assert.Error(t, err)
		assert.Nil(t, coordinator)
	})
}

func TestPreview(t *testing.T) {
	t.Run("Classifies without mutating", func(t *testing.T) {
		f := newFixture(t)
		target := f.addObservation()
		other := f.addObservation()
		shared := f.addEntity("Project Beacon", 3, true, target, other)
		sole := f.addEntity("One Off Idea", 1, false, target)
		demotable := f.addEntity("Avery Chen", 2, true, target, other)

		plan, err := f.coordinator.Preview(target)
		require.NoError(t, err)
		require.Len(t, plan.Entities, 3)

		actions := map[uuid.UUID]Action{}
		for _, outcome := range plan.Entities {
			actions[outcome.EntityID] = outcome.Action
		}
		assert.Equal(t, ActionKept, actions[shared.ID])
		assert.Equal(t, ActionDeleted, actions[sole.ID])
		assert.Equal(t, ActionDemoted, actions[demotable.ID])

		// nothing changed
		assert.Len(t, f.entities.entities, 3)
		assert.Len(t, f.entities.entities[shared.ID].ReferencedBy, 2)
		assert.True(t, f.entities.entities[demotable.ID].Promoted)
		assert.Contains(t, f.observations.observations, target)
	})

	t.Run("Unknown observation is an error", func(t *testing.T) {
		f := newFixture(t)
		plan, err := f.coordinator.Preview(uuid.New())
		assert.Error(t, err)
		assert.Nil(t, plan)
	})
}

func TestDelete(t *testing.T) {
	t.Run("Shared entity only loses the reference", func(t *testing.T) {
		f := newFixture(t)
		target := f.addObservation()
		other := f.addObservation()
		shared := f.addEntity("Project Beacon", 3, true, target, other)

		plan, err := f.coordinator.Delete(target)
		require.NoError(t, err)
		require.Len(t, plan.Entities, 1)
		assert.Equal(t, ActionKept, plan.Entities[0].Action)
		assert.Equal(t, 1, plan.Entities[0].RemainingReferences)

		kept := f.entities.entities[shared.ID]
		require.NotNil(t, kept)
		assert.Equal(t, []uuid.UUID{other}, kept.ReferencedBy)
		assert.Equal(t, 2, kept.MentionCount)
		assert.True(t, kept.Promoted)
		assert.NotContains(t, f.observations.observations, target)
	})

	t.Run("Sole owned entity is removed with its dependents", func(t *testing.T) {
		f := newFixture(t)
		target := f.addObservation()
		sole := f.addEntity("One Off Idea", 1, true, target)
		neighbor := f.addEntity("Neighbor", 2, true, f.addObservation())

		edgeID := uuid.New()
		f.edges.edges[edgeID] = &model.Edge{ID: edgeID, FromID: sole.ID, ToID: neighbor.ID, Kind: model.EdgeKindRelatesTo}

		plan, err := f.coordinator.Delete(target)
		require.NoError(t, err)
		require.Len(t, plan.Entities, 1)
		assert.Equal(t, ActionDeleted, plan.Entities[0].Action)

		assert.NotContains(t, f.entities.entities, sole.ID)
		assert.NotContains(t, f.signals.signals, sole.ID)
		assert.NotContains(t, f.edges.edges, edgeID)
		assert.Contains(t, f.entities.entities, neighbor.ID)
	})

	t.Run("Entity falling below the mention threshold is demoted", func(t *testing.T) {
		f := newFixture(t)
		target := f.addObservation()
		other := f.addObservation()
		demotable := f.addEntity("Avery Chen", 2, true, target, other)

		plan, err := f.coordinator.Delete(target)
		require.NoError(t, err)
		require.Len(t, plan.Entities, 1)
		assert.Equal(t, ActionDemoted, plan.Entities[0].Action)

		demoted := f.entities.entities[demotable.ID]
		require.NotNil(t, demoted)
		assert.False(t, demoted.Promoted)
		assert.Equal(t, "reference lost through observation deletion", demoted.Metadata["demotion_reason"])

		signal := f.signals.signals[demotable.ID]
		require.NotNil(t, signal)
		assert.InDelta(t, 0.6, signal.Importance, 1e-9)
		assert.InDelta(t, 0.4, signal.Novelty, 1e-9)
	})

	t.Run("Unpromoted entity below the threshold is not demoted again", func(t *testing.T) {
		f := newFixture(t)
		target := f.addObservation()
		other := f.addObservation()
		metadataOnly := f.addEntity("Side Note", 2, false, target, other)

		plan, err := f.coordinator.Delete(target)
		require.NoError(t, err)
		require.Len(t, plan.Entities, 1)
		assert.Equal(t, ActionKept, plan.Entities[0].Action)
		assert.InDelta(t, 0.8, f.signals.signals[metadataOnly.ID].Importance, 1e-9)
	})

	t.Run("Observation sourced edges are always removed", func(t *testing.T) {
		f := newFixture(t)
		target := f.addObservation()
		other := f.addObservation()
		a := f.addEntity("Project Beacon", 3, true, target, other)
		b := f.addEntity("Avery Chen", 3, true, target, other)

		sourced := uuid.New()
		f.edges.edges[sourced] = &model.Edge{ID: sourced, FromID: a.ID, ToID: b.ID, Kind: model.EdgeKindRoleAt, SourceObservationID: &target}
		unrelated := uuid.New()
		f.edges.edges[unrelated] = &model.Edge{ID: unrelated, FromID: a.ID, ToID: b.ID, Kind: model.EdgeKindRelatesTo, SourceObservationID: &other}

		plan, err := f.coordinator.Delete(target)
		require.NoError(t, err)
		assert.Equal(t, 1, plan.EdgesDeleted)
		assert.NotContains(t, f.edges.edges, sourced)
		assert.Contains(t, f.edges.edges, unrelated)
	})

	t.Run("Deleting both referencing observations removes the entity", func(t *testing.T) {
		f := newFixture(t)
		first := f.addObservation()
		second := f.addObservation()
		entity := f.addEntity("Project Beacon", 2, true, first, second)

		_, err := f.coordinator.Delete(first)
		require.NoError(t, err)
		assert.Contains(t, f.entities.entities, entity.ID)

		plan, err := f.coordinator.Delete(second)
		require.NoError(t, err)
		assert.Equal(t, ActionDeleted, plan.Entities[0].Action)
		assert.NotContains(t, f.entities.entities, entity.ID)
		assert.NotContains(t, f.signals.signals, entity.ID)
	})
}
