package deletion

import (
	"fmt"
	"log/slog"

	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
)

// ObservationStore is the slice of the observations handler the
// coordinator needs
type ObservationStore interface {
	SelectObservation(id uuid.UUID) (*model.Observation, error)
	DeleteObservation(id uuid.UUID) error
}

// EntityStore is the slice of the entities handler the coordinator needs
type EntityStore interface {
	SelectEntitiesByObservation(observationID uuid.UUID) ([]*model.Entity, error)
	RemoveEntityReference(id uuid.UUID, observationID uuid.UUID) (*model.Entity, error)
	SetEntityPromoted(id uuid.UUID, promoted bool) error
	UpdateEntityMetadata(id uuid.UUID, metadata model.Metadata) error
	DeleteEntity(id uuid.UUID) error
}

// EdgeStore is the slice of the edges handler the coordinator needs
type EdgeStore interface {
	DeleteEdgesByObservation(observationID uuid.UUID) (int, error)
	DeleteEdgesForEntity(entityID uuid.UUID) (int, error)
}

// SignalStore is the slice of the signals handler the coordinator needs
type SignalStore interface {
	AdjustSignal(entityID uuid.UUID, importanceDelta float64, noveltyDelta float64, refreshRecency bool) (*model.Signal, error)
	DeleteSignal(entityID uuid.UUID) error
}

// Action is the fate of one entity when an observation is removed
type Action string

const (
	ActionKept    Action = "kept"
	ActionDemoted Action = "demoted"
	ActionDeleted Action = "deleted"
)

// EntityOutcome describes what happens to one entity
type EntityOutcome struct {
	EntityID            uuid.UUID `json:"entity_id"`
	Title               string    `json:"title"`
	Action              Action    `json:"action"`
	RemainingReferences int       `json:"remaining_references"`
}

// Plan is the full effect of removing one observation. Preview returns
// it without mutating; Delete returns what was actually done.
type Plan struct {
	ObservationID uuid.UUID        `json:"observation_id"`
	Entities      []*EntityOutcome `json:"entities"`
	EdgesDeleted  int              `json:"edges_deleted"`
}

// Coordinator removes an observation's contributions from the graph
// without touching state shared with other observations. Entities lose
// one reference; only an entity whose reference set empties out is
// removed, together with its signal row and every touching edge.
type Coordinator struct {
	observations ObservationStore
	entities     EntityStore
	edges        EdgeStore
	signals      SignalStore
	config       model.EngineConfig
	logger       *slog.Logger
}

// NewCoordinator creates a deletion coordinator
func NewCoordinator(observations ObservationStore, entities EntityStore, edges EdgeStore, signals SignalStore, config model.EngineConfig, logger *slog.Logger) (*Coordinator, error) {
	if observations == nil {
		return nil, helper.NewError("observations handler validation", fmt.Errorf("observations handler is nil"))
	}
	if entities == nil {
		return nil, helper.NewError("entities handler validation", fmt.Errorf("entities handler is nil"))
	}
	if edges == nil {
		return nil, helper.NewError("edges handler validation", fmt.Errorf("edges handler is nil"))
	}
	if signals == nil {
		return nil, helper.NewError("signals handler validation", fmt.Errorf("signals handler is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		observations: observations,
		entities:     entities,
		edges:        edges,
		signals:      signals,
		config:       config,
		logger:       logger,
	}, nil
}

// Preview classifies every affected entity without mutating anything
func (c *Coordinator) Preview(observationID uuid.UUID) (*Plan, error) {
	if _, err := c.observations.SelectObservation(observationID); err != nil {
		return nil, helper.NewError("select observation", err)
	}

	affected, err := c.entities.SelectEntitiesByObservation(observationID)
	if err != nil {
		return nil, helper.NewError("select entities by observation", err)
	}

	plan := &Plan{ObservationID: observationID}
	for _, entity := range affected {
		plan.Entities = append(plan.Entities, c.classify(entity, observationID))
	}
	return plan, nil
}

// Delete removes the observation and its exclusive graph contributions.
// Dependent rows go first, then entities, then the observation record
// itself, so a failure partway leaves the graph consistent and the
// deletion retryable.
func (c *Coordinator) Delete(observationID uuid.UUID) (*Plan, error) {
	if _, err := c.observations.SelectObservation(observationID); err != nil {
		return nil, helper.NewError("select observation", err)
	}

	affected, err := c.entities.SelectEntitiesByObservation(observationID)
	if err != nil {
		return nil, helper.NewError("select entities by observation", err)
	}

	plan := &Plan{ObservationID: observationID}

	// Edges sourced by this observation go unconditionally; their
	// provenance is this one observation, never shared.
	deleted, err := c.edges.DeleteEdgesByObservation(observationID)
	if err != nil {
		return nil, helper.NewError("delete edges by observation", err)
	}
	plan.EdgesDeleted = deleted

	for _, entity := range affected {
		outcome, err := c.applyToEntity(entity, observationID)
		if err != nil {
			return plan, err
		}
		plan.Entities = append(plan.Entities, outcome)
	}

	err = c.observations.DeleteObservation(observationID)
	if err != nil {
		return plan, helper.NewError("delete observation", err)
	}

	c.logger.Info("Deleted observation",
		slog.String("observation_id", observationID.String()),
		slog.Int("entities_affected", len(plan.Entities)),
		slog.Int("edges_deleted", plan.EdgesDeleted),
	)

	return plan, nil
}

// classify decides an entity's fate without touching it
func (c *Coordinator) classify(entity *model.Entity, observationID uuid.UUID) *EntityOutcome {
	remaining := 0
	for _, ref := range entity.ReferencedBy {
		if ref != observationID {
			remaining++
		}
	}

	outcome := &EntityOutcome{
		EntityID:            entity.ID,
		Title:               entity.Title,
		RemainingReferences: remaining,
	}

	switch {
	case remaining == 0:
		outcome.Action = ActionDeleted
	case entity.Promoted && c.remainingMentions(entity, observationID) < c.config.PromotionThreshold:
		outcome.Action = ActionDemoted
	default:
		outcome.Action = ActionKept
	}
	return outcome
}

// applyToEntity executes the classified fate for one entity
func (c *Coordinator) applyToEntity(entity *model.Entity, observationID uuid.UUID) (*EntityOutcome, error) {
	outcome := c.classify(entity, observationID)

	updated, err := c.entities.RemoveEntityReference(entity.ID, observationID)
	if err != nil {
		return nil, helper.NewError("remove entity reference", err)
	}

	switch outcome.Action {
	case ActionDeleted:
		if _, err := c.edges.DeleteEdgesForEntity(updated.ID); err != nil {
			return nil, helper.NewError("delete edges for entity", err)
		}
		err = c.signals.DeleteSignal(updated.ID)
		if err != nil {
			return nil, helper.NewError("delete signal", err)
		}
		err = c.entities.DeleteEntity(updated.ID)
		if err != nil {
			return nil, helper.NewError("delete entity", err)
		}
	case ActionDemoted:
		err = c.entities.SetEntityPromoted(updated.ID, false)
		if err != nil {
			return nil, helper.NewError("demote entity", err)
		}

		metadata := updated.Metadata
		if metadata == nil {
			metadata = model.Metadata{}
		}
		metadata[model.MetadataKeyDemotionReason] = "reference lost through observation deletion"
		err = c.entities.UpdateEntityMetadata(updated.ID, metadata)
		if err != nil {
			return nil, helper.NewError("update entity metadata", err)
		}

		// Fixed penalty rather than a full recompute; the next scoring
		// pass settles the exact values.
		_, err = c.signals.AdjustSignal(updated.ID, -c.config.DemotionPenalty, -c.config.NoveltyPenalty, false)
		if err != nil {
			c.logger.Warn("Signal penalty failed", slog.String("entity_id", updated.ID.String()), slog.Any("error", err))
		}
	}

	return outcome, nil
}

// remainingMentions estimates the mention count after this observation's
// reference is removed
func (c *Coordinator) remainingMentions(entity *model.Entity, observationID uuid.UUID) int {
	count := entity.MentionCount
	for _, ref := range entity.ReferencedBy {
		if ref == observationID {
			count--
			break
		}
	}
	if count < 0 {
		count = 0
	}
	return count
}
