package memograph

import (
	"context"
	"log/slog"
	"os"

	"github.com/evan-ryan-york/memograph/core/deletion"
	"github.com/evan-ryan-york/memograph/core/extraction"
	"github.com/evan-ryan-york/memograph/core/graph"
	"github.com/evan-ryan-york/memograph/core/ledger"
	"github.com/evan-ryan-york/memograph/core/relationship"
	"github.com/evan-ryan-york/memograph/core/resolver"
	"github.com/evan-ryan-york/memograph/core/scorer"
	"github.com/evan-ryan-york/memograph/database"
	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	loadSql "github.com/evan-ryan-york/memograph/sql"
	"github.com/google/uuid"
)

// Memograph provides a unified interface to the memory graph: capture,
// processing, scoring, feedback and deletion
type Memograph struct {
	DB           *helper.Database
	Observations *database.ObservationsDBHandler
	Entities     *database.EntitiesDBHandler
	Edges        *database.EdgesDBHandler
	Signals      *database.SignalsDBHandler
	Ledger       *ledger.Ledger
	Resolver     *resolver.Resolver
	Scorer       *scorer.Scorer
	Engine       *relationship.Engine
	Deletion     *deletion.Coordinator
	Extractor    extraction.ExtractFunc // Optional extraction collaborator
	Embedder     extraction.EmbedFunc   // Optional embedding function
	// Configuration and logging
	config model.EngineConfig
	log    *slog.Logger
}

// NewMemograph creates a new Memograph instance with all handlers initialized
func NewMemograph(dbConfig *helper.DatabaseConfiguration, engineConfig model.EngineConfig, embeddingDim int) (*Memograph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("memograph", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in dependency order (observations first, then
	// entities, then everything referencing entities).
	// force=false to not reload if functions already exist
	observations, err := database.NewObservationsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create observations handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	signals, err := database.NewSignalsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create signals handler", err)
	}

	mentionLedger, err := ledger.NewLedger(entities, engineConfig.PromotionThreshold)
	if err != nil {
		return nil, helper.NewError("create mention ledger", err)
	}

	referenceResolver, err := resolver.NewResolver(entities)
	if err != nil {
		return nil, helper.NewError("create reference resolver", err)
	}

	engine, err := relationship.NewEngine(entities, edges, engineConfig, logger)
	if err != nil {
		return nil, helper.NewError("create relationship engine", err)
	}

	coordinator, err := deletion.NewCoordinator(observations, entities, edges, signals, engineConfig, logger)
	if err != nil {
		return nil, helper.NewError("create deletion coordinator", err)
	}

	return &Memograph{
		DB:           db,
		Observations: observations,
		Entities:     entities,
		Edges:        edges,
		Signals:      signals,
		Ledger:       mentionLedger,
		Resolver:     referenceResolver,
		Scorer:       scorer.NewScorer(engineConfig.RecencyHalfLifeDays),
		Engine:       engine,
		Deletion:     coordinator,
		config:       engineConfig,
		log:          logger,
	}, nil
}

// Close closes the database connection
func (m *Memograph) Close() error {
	if m.DB != nil && m.DB.Instance != nil {
		return m.DB.Instance.Close()
	}
	return nil
}

// SetExtraction sets the extraction collaborator and embedding function
func (m *Memograph) SetExtraction(extractor extraction.ExtractFunc, embedder extraction.EmbedFunc) {
	m.Extractor = extractor
	m.Embedder = embedder
}

// UseDefaultExtraction sets up fully local extraction: NER over the
// distilbert-NER model for candidates and all-MiniLM-L6-v2 embeddings
// (384 dimensions). Local extraction finds no relationship candidates;
// edges then come from the pattern and consolidation strategies only.
func (m *Memograph) UseDefaultExtraction() error {
	extractor, err := extraction.DefaultNERExtractor()
	if err != nil {
		return helper.NewError("create default extractor", err)
	}

	embedder, err := extraction.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	m.Extractor = extractor
	m.Embedder = embedder
	return nil
}

// UseLLMExtraction sets up extraction through an OpenAI compatible chat
// endpoint, with local all-MiniLM-L6-v2 embeddings
func (m *Memograph) UseLLMExtraction(baseURL string, apiKey string, modelID string) error {
	embedder, err := extraction.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	m.Extractor = extraction.NewLLMExtractor(baseURL, apiKey, modelID)
	m.Embedder = embedder
	return nil
}

// Capture stores a new observation in the ready state. Processing
// happens separately through ProcessObservation or the scheduler.
func (m *Memograph) Capture(source string, content string, selfEntityHint *uuid.UUID, metadata model.Metadata) (*model.Observation, error) {
	observation := &model.Observation{
		Source:         source,
		Content:        content,
		SelfEntityHint: selfEntityHint,
		Metadata:       metadata,
	}
	err := m.Observations.InsertObservation(observation)
	if err != nil {
		return nil, helper.NewError("insert observation", err)
	}

	m.log.Info("Captured observation", slog.String("observation_id", observation.ID.String()), slog.String("source", source))
	return observation, nil
}

// PreviewDeletion classifies the effect of deleting an observation
// without changing anything
func (m *Memograph) PreviewDeletion(observationID uuid.UUID) (*deletion.Plan, error) {
	return m.Deletion.Preview(observationID)
}

// DeleteObservation removes an observation and its exclusive graph
// contributions
func (m *Memograph) DeleteObservation(observationID uuid.UUID) (*deletion.Plan, error) {
	return m.Deletion.Delete(observationID)
}

// Consolidate runs the periodic strategies plus the decay and pruning
// sweep once, on demand
func (m *Memograph) Consolidate(ctx context.Context) (*relationship.Report, error) {
	return m.Engine.RunConsolidation(ctx)
}

// BFSTraversal performs breadth-first search from an entity
func (m *Memograph) BFSTraversal(ctx context.Context, sourceID uuid.UUID, maxHops int, kinds []model.EdgeKind, minWeight float64) ([]*graph.TraversalResult, error) {
	return graph.BFS(ctx, m.Entities, m.Edges, sourceID, maxHops, kinds, minWeight)
}

// DFSTraversal performs depth-first search from an entity
func (m *Memograph) DFSTraversal(ctx context.Context, sourceID uuid.UUID, maxHops int, kinds []model.EdgeKind, minWeight float64) ([]*graph.TraversalResult, error) {
	return graph.DFS(ctx, m.Entities, m.Edges, sourceID, maxHops, kinds, minWeight)
}

// Neighbors retrieves the immediate neighbors of an entity
func (m *Memograph) Neighbors(ctx context.Context, entityID uuid.UUID, kinds []model.EdgeKind, minWeight float64) ([]*model.Entity, error) {
	return graph.Neighbors(ctx, m.Entities, m.Edges, entityID, kinds, minWeight)
}

// ChangeIndexType changes the entity vector index type between HNSW and IVFFlat
func (m *Memograph) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return m.Entities.ChangeIndexType(ctx, indexType, params)
}
