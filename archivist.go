package memograph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evan-ryan-york/memograph/core/extraction"
	"github.com/evan-ryan-york/memograph/core/relationship"
	"github.com/evan-ryan-york/memograph/core/resolver"
	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ProcessReport summarizes what processing one observation did
type ProcessReport struct {
	ObservationID    uuid.UUID               `json:"observation_id"`
	Status           model.ObservationStatus `json:"status"`
	EntitiesRecorded int                     `json:"entities_recorded"`
	EntitiesPromoted int                     `json:"entities_promoted"`
	Relationships    *relationship.Report    `json:"relationships,omitempty"`
	Warnings         []string                `json:"warnings,omitempty"`
}

// ProcessObservation runs the full ingestion chain for one ready
// observation: clean, extract, record mentions, resolve references,
// link relationships and score signals. The observation ends in
// processed, processed_with_warnings or error state; extraction
// failures degrade to empty candidates instead of blocking ingestion.
func (m *Memograph) ProcessObservation(ctx context.Context, observationID uuid.UUID) (*ProcessReport, error) {
	if m.Extractor == nil {
		return nil, helper.NewError("process observation", fmt.Errorf("extractor not set, use SetExtraction() first"))
	}

	observation, err := m.Observations.SelectObservation(observationID)
	if err != nil {
		return nil, helper.NewError("select observation", err)
	}

	report := &ProcessReport{ObservationID: observationID}

	content := extraction.CleanContent(observation.Content)
	if content == "" {
		report.Status = model.ObservationStatusError
		_ = m.Observations.UpdateObservationStatus(observationID, model.ObservationStatusError)
		return report, helper.NewError("process observation", fmt.Errorf("observation content is empty"))
	}

	result := m.extract(ctx, content, report)

	m.designateSelf(observation, result, report)

	entities := m.recordMentions(observation, result, report)

	relationships, err := m.Engine.RunIncremental(ctx, &relationship.StrategyInput{
		Observation: observation,
		Entities:    entities,
		Candidates:  result.Relationships,
		Resolve:     m.resolveFunc(observation, entities),
	})
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("relationship pass aborted: %v", err))
	}
	report.Relationships = relationships

	m.scoreEntities(entities, report)

	report.Status = model.ObservationStatusProcessed
	if len(report.Warnings) > 0 {
		report.Status = model.ObservationStatusWarnings
	}
	err = m.Observations.UpdateObservationStatus(observationID, report.Status)
	if err != nil {
		return report, helper.NewError("update observation status", err)
	}

	m.log.Info("Processed observation",
		slog.String("observation_id", observationID.String()),
		slog.String("status", string(report.Status)),
		slog.Int("entities", report.EntitiesRecorded),
		slog.Int("promoted", report.EntitiesPromoted),
	)

	return report, nil
}

// extract calls the extraction collaborator under its timeout. Failures
// degrade to an empty result so ingestion never blocks on the collaborator.
func (m *Memograph) extract(ctx context.Context, content string, report *ProcessReport) *model.ExtractionResult {
	timeout := m.config.ExtractionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := m.Extractor(ctx, content)
	if err != nil || result == nil {
		if err != nil {
			m.log.Warn("Extraction unavailable, proceeding with empty candidates", slog.Any("error", err))
			report.Warnings = append(report.Warnings, fmt.Sprintf("extraction unavailable: %v", err))
		}
		return &model.ExtractionResult{}
	}
	return result
}

// designateSelf checks the candidates for a self introduction: a person
// typed primary subject while no self entity exists yet. A conflicting
// second designation is rejected and recorded as a warning, never
// silently overwritten.
func (m *Memograph) designateSelf(observation *model.Observation, result *model.ExtractionResult, report *ProcessReport) {
	if self, err := m.Resolver.SelfEntity(nil); err == nil {
		for _, candidate := range result.Entities {
			if candidate.Type != model.EntityTypePerson || !candidate.IsPrimarySubject {
				continue
			}
			if resolver.IsSelfReference(candidate.Title) ||
				self.NormalizedTitle == model.NormalizeTitle(candidate.Title) {
				continue
			}
			m.log.Warn("Self designation rejected",
				slog.String("title", candidate.Title), slog.String("self", self.Title))
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("self already designated as %q, ignoring introduction of %q", self.Title, candidate.Title))
		}
		return
	}

	for _, candidate := range result.Entities {
		if candidate.Type != model.EntityTypePerson || !candidate.IsPrimarySubject {
			continue
		}
		if resolver.IsSelfReference(candidate.Title) {
			continue
		}

		self, err := m.Resolver.DesignateSelf(candidate.Title, observation.ID)
		if err != nil {
			m.log.Warn("Self designation rejected", slog.String("title", candidate.Title), slog.Any("error", err))
			report.Warnings = append(report.Warnings, fmt.Sprintf("self designation rejected: %v", err))
			return
		}

		m.log.Info("Designated self entity", slog.String("entity_id", self.ID.String()), slog.String("title", self.Title))
		return
	}
}

// recordMentions feeds every candidate through the mention ledger and
// returns the touched entities. First person candidates count as
// mentions of the self entity instead of becoming entities of their own.
func (m *Memograph) recordMentions(observation *model.Observation, result *model.ExtractionResult, report *ProcessReport) []*model.Entity {
	var entities []*model.Entity
	for _, candidate := range result.Entities {
		if m.isSelfMention(observation, candidate) {
			self, err := m.Resolver.SelfEntity(observation.SelfEntityHint)
			if err != nil {
				continue
			}
			referenced, err := m.Entities.AddEntityReference(self.ID, observation.ID)
			if err != nil {
				m.log.Warn("Self reference not recorded", slog.Any("error", err))
				report.Warnings = append(report.Warnings, fmt.Sprintf("self reference not recorded: %v", err))
				continue
			}
			entities = append(entities, referenced)
			continue
		}

		recorded, err := m.Ledger.Record(candidate, observation.ID)
		if err != nil {
			m.log.Warn("Mention not recorded", slog.String("title", candidate.Title), slog.Any("error", err))
			report.Warnings = append(report.Warnings, fmt.Sprintf("mention %q not recorded: %v", candidate.Title, err))
			continue
		}

		report.EntitiesRecorded++
		if recorded.PromotedNow {
			report.EntitiesPromoted++
		}
		if recorded.Created {
			m.embedEntity(recorded.Entity, candidate)
		}
		entities = append(entities, recorded.Entity)
	}
	return entities
}

// isSelfMention reports whether a candidate refers to the graph owner,
// either through a first person pronoun or by the self entity's own title
func (m *Memograph) isSelfMention(observation *model.Observation, candidate *model.CandidateEntity) bool {
	if resolver.IsSelfReference(candidate.Title) {
		return true
	}

	self, err := m.Resolver.SelfEntity(observation.SelfEntityHint)
	if err != nil {
		return false
	}
	return self.NormalizedTitle == model.NormalizeTitle(candidate.Title)
}

// embedEntity computes and stores the embedding for a new entity
func (m *Memograph) embedEntity(entity *model.Entity, candidate *model.CandidateEntity) {
	if m.Embedder == nil {
		return
	}

	text := entity.Title
	if candidate.Summary != "" {
		text = text + ": " + candidate.Summary
	}
	embedding, err := m.Embedder(text)
	if err != nil {
		m.log.Warn("Embedding failed", slog.String("title", entity.Title), slog.Any("error", err))
		return
	}

	err = m.Entities.UpdateEntityEmbedding(entity.ID, embedding)
	if err != nil {
		m.log.Warn("Embedding not stored", slog.String("title", entity.Title), slog.Any("error", err))
	}
}

// resolveFunc builds the title resolution used by the incremental
// relationship pass: self pronouns to the self entity, then this
// observation's entities by normalized title, then the ledger cache.
func (m *Memograph) resolveFunc(observation *model.Observation, entities []*model.Entity) relationship.ResolveFunc {
	byTitle := map[string]uuid.UUID{}
	byType := map[string]model.EntityType{}
	for _, entity := range entities {
		byTitle[entity.NormalizedTitle] = entity.ID
		byType[entity.NormalizedTitle] = entity.Type
		for _, alias := range entity.Metadata.Aliases() {
			byTitle[model.NormalizeTitle(alias)] = entity.ID
		}
	}

	return func(title string) (uuid.UUID, bool) {
		if resolver.IsSelfReference(title) {
			self, err := m.Resolver.SelfEntity(observation.SelfEntityHint)
			if err != nil {
				return uuid.Nil, false
			}
			return self.ID, true
		}

		normalized := model.NormalizeTitle(title)
		if id, ok := byTitle[normalized]; ok {
			return id, true
		}

		if id, err := m.Resolver.Resolve(title, byType[normalized], m.Ledger, observation.SelfEntityHint); err == nil {
			return id, true
		}
		return uuid.Nil, false
	}
}

// scoreEntities recomputes the signal row for every touched entity
func (m *Memograph) scoreEntities(entities []*model.Entity, report *ProcessReport) {
	now := time.Now()
	for _, entity := range entities {
		if !entity.Promoted {
			continue
		}

		edgeCount, err := m.Edges.CountEdgesForEntity(entity.ID)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("edge count for %q failed: %v", entity.Title, err))
			continue
		}

		signal := m.Scorer.Score(entity, edgeCount, now)
		err = m.Signals.UpsertSignal(signal)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("signal for %q not stored: %v", entity.Title, err))
		}
	}
}

// ProcessPending processes one batch of ready observations and returns
// the number picked up. Observations run concurrently; each one is
// still a single sequential chain internally.
func (m *Memograph) ProcessPending(ctx context.Context) (int, error) {
	batchSize := m.config.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	pending, err := m.Observations.SelectObservationsByStatus(model.ObservationStatusReady, batchSize)
	if err != nil {
		return 0, helper.NewError("select ready observations", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for _, observation := range pending {
		group.Go(func() error {
			_, err := m.ProcessObservation(groupCtx, observation.ID)
			if err != nil {
				m.log.Warn("Observation failed", slog.String("observation_id", observation.ID.String()), slog.Any("error", err))
				statusErr := m.Observations.UpdateObservationStatus(observation.ID, model.ObservationStatusError)
				if statusErr != nil {
					return helper.NewError("mark observation failed", statusErr)
				}
			}
			return nil
		})
	}

	err = group.Wait()
	return len(pending), err
}

// Run drives the engine on fixed intervals until the context ends:
// pending observations every tick, a consolidation sweep every
// consolidationInterval. Errors are logged and the loop keeps going.
func (m *Memograph) Run(ctx context.Context, tick time.Duration, consolidationInterval time.Duration) error {
	if tick <= 0 || consolidationInterval <= 0 {
		return helper.NewError("scheduler validation", fmt.Errorf("tick and consolidation interval must be positive"))
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	consolidation := time.NewTicker(consolidationInterval)
	defer consolidation.Stop()

	m.log.Info("Scheduler started",
		slog.String("tick", tick.String()),
		slog.String("consolidation_interval", consolidationInterval.String()),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := m.ProcessPending(ctx)
			if err != nil {
				m.log.Warn("Processing tick failed", slog.Any("error", err))
			}
		case <-consolidation.C:
			_, err := m.Engine.RunConsolidation(ctx)
			if err != nil {
				m.log.Warn("Consolidation sweep failed", slog.Any("error", err))
			}
		}
	}
}
