package relationship

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
)

// EntityStore is the slice of the entities handler the engine needs
type EntityStore interface {
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntitiesUpdatedSince(since time.Time, limit int) ([]*model.Entity, error)
	SelectSimilarEntityPairs(threshold float64, limit int) ([]*model.EntityPair, error)
}

// EdgeStore is the slice of the edges handler the engine needs
type EdgeStore interface {
	ReinforceEdge(edge *model.Edge, increment float64) (bool, error)
	SelectEdgesForEntity(entityID uuid.UUID) ([]*model.Edge, error)
	DecayEdges(factor float64, sweepStarted time.Time) (int, error)
	PruneEdges(threshold float64) (int, error)
}

// Report summarizes what one engine run did to the graph
type Report struct {
	Proposed   int `json:"proposed"`
	Created    int `json:"created"`
	Reinforced int `json:"reinforced"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Decayed    int `json:"decayed"`
	Pruned     int `json:"pruned"`
}

// Engine maintains the edge set of the graph. It runs in two modes:
// incremental after each observation, and consolidation as a periodic
// sweep that also decays and prunes edge weights.
type Engine struct {
	entities EntityStore
	edges    EdgeStore
	config   model.EngineConfig
	logger   *slog.Logger

	incremental   []Strategy
	consolidation []Strategy
}

// NewEngine creates a relationship engine with the default strategy sets
func NewEngine(entities EntityStore, edges EdgeStore, config model.EngineConfig, logger *slog.Logger) (*Engine, error) {
	if entities == nil {
		return nil, helper.NewError("entities handler validation", fmt.Errorf("entities handler is nil"))
	}
	if edges == nil {
		return nil, helper.NewError("edges handler validation", fmt.Errorf("edges handler is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		entities: entities,
		edges:    edges,
		config:   config,
		logger:   logger,
		incremental: []Strategy{
			NewSemanticStrategy(),
			NewPatternStrategy(),
		},
		consolidation: []Strategy{
			NewEmbeddingStrategy(entities, config.SimilarityThreshold, config.MaxStrategyEntities),
			NewTemporalStrategy(entities, config.ConsolidationWindow, config.MaxStrategyEntities),
			NewTwoHopStrategy(entities, edges, config.ConsolidationWindow, config.MaxStrategyEntities),
		},
	}, nil
}

// RunIncremental applies the per-observation strategies to one
// observation's entities and relationship candidates
func (e *Engine) RunIncremental(ctx context.Context, input *StrategyInput) (*Report, error) {
	return e.run(ctx, e.incremental, input)
}

// RunConsolidation applies the periodic strategies to the recently
// touched part of the graph, then decays and prunes edge weights.
// The decay step is idempotent per sweep: re-running a failed sweep
// only touches edges the previous run did not reach.
func (e *Engine) RunConsolidation(ctx context.Context) (*Report, error) {
	sweepStarted := e.sweepStart(time.Now())

	report, err := e.run(ctx, e.consolidation, &StrategyInput{})
	if err != nil {
		return report, err
	}

	decayed, err := e.edges.DecayEdges(e.config.DecayFactor, sweepStarted)
	if err != nil {
		return report, helper.NewError("decay edges", err)
	}
	report.Decayed = decayed

	pruned, err := e.edges.PruneEdges(e.config.PruneThreshold)
	if err != nil {
		return report, helper.NewError("prune edges", err)
	}
	report.Pruned = pruned

	e.logger.Info("Consolidation sweep finished",
		slog.Int("proposed", report.Proposed),
		slog.Int("created", report.Created),
		slog.Int("reinforced", report.Reinforced),
		slog.Int("decayed", report.Decayed),
		slog.Int("pruned", report.Pruned),
	)

	return report, nil
}

// sweepStart aligns a point in time to the start of its consolidation
// window. A retried sweep inside the same window hands the decay step
// the same marker, so edges already decayed by a failed attempt are
// not decayed again.
func (e *Engine) sweepStart(now time.Time) time.Time {
	window := e.config.ConsolidationWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	return now.UTC().Truncate(window)
}

// run collects proposals from the given strategies and applies them
func (e *Engine) run(ctx context.Context, strategies []Strategy, input *StrategyInput) (*Report, error) {
	report := &Report{}

	for _, strategy := range strategies {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		proposals, err := strategy.Propose(ctx, input)
		if err != nil {
			e.logger.Warn("Strategy failed", slog.String("strategy", strategy.Name()), slog.Any("error", err))
			report.Failed++
			continue
		}

		report.Proposed += len(proposals)
		for _, edge := range proposals {
			e.apply(edge, strategy.Name(), report)
		}
	}

	return report, nil
}

// apply upserts one proposed edge. Proposals below the confidence floor
// are skipped; store failures (e.g. an endpoint deleted mid-run) skip the
// edge after one retry instead of failing the whole run.
func (e *Engine) apply(edge *model.Edge, strategyName string, report *Report) {
	if edge.Confidence < e.config.MinEdgeConfidence {
		report.Skipped++
		return
	}
	if edge.FromID == edge.ToID {
		report.Skipped++
		return
	}

	reinforced, err := e.edges.ReinforceEdge(edge, e.config.ReinforcementIncrement)
	if err != nil {
		reinforced, err = e.edges.ReinforceEdge(edge, e.config.ReinforcementIncrement)
	}
	if err != nil {
		e.logger.Warn("Edge upsert failed",
			slog.String("strategy", strategyName),
			slog.String("from", edge.FromID.String()),
			slog.String("to", edge.ToID.String()),
			slog.Any("error", err),
		)
		report.Failed++
		return
	}

	if reinforced {
		report.Reinforced++
	} else {
		report.Created++
	}
}
