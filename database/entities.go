package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	loadSql "github.com/evan-ryan-york/memograph/sql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	GetOrCreateEntity(entity *model.Entity) (bool, error)
	AddEntityReference(id uuid.UUID, observationID uuid.UUID) (*model.Entity, error)
	RemoveEntityReference(id uuid.UUID, observationID uuid.UUID) (*model.Entity, error)
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntityByTitle(normalizedTitle string, entityType model.EntityType) (*model.Entity, error)
	SelectEntitiesByType(entityType model.EntityType) ([]*model.Entity, error)
	SelectEntitiesByObservation(observationID uuid.UUID) ([]*model.Entity, error)
	SelectEntitiesUpdatedSince(since time.Time, limit int) ([]*model.Entity, error)
	UpdateEntityMetadata(id uuid.UUID, metadata model.Metadata) error
	UpdateEntitySummary(id uuid.UUID, summary string) error
	UpdateEntityEmbedding(id uuid.UUID, embedding []float32) error
	SetEntityPromoted(id uuid.UUID, promoted bool) error
	SelectSimilarEntityPairs(threshold float64, limit int) ([]*model.EntityPair, error)
	DeleteEntity(id uuid.UUID) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
// embeddingDim sets the dimension of the entity embedding column.
func NewEntitiesDBHandler(db *helper.Database, embeddingDim int, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// GetOrCreateEntity inserts the entity or loads the existing row with the
// same normalized title and type. The entity is updated in place and the
// returned bool reports whether a new row was created.
func (h *EntitiesDBHandler) GetOrCreateEntity(entity *model.Entity) (bool, error) {
	entity.NormalizedTitle = model.NormalizeTitle(entity.Title)

	row := h.db.Instance.QueryRow(
		`SELECT * FROM get_or_create_entity($1, $2, $3, $4, $5, $6)`,
		entity.Type,
		entity.Title,
		entity.NormalizedTitle,
		entity.Summary,
		entity.Metadata,
		entity.SourceObservationID,
	)

	var created bool
	err := scanEntityWith(row, entity, &created)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created, nil
}

// AddEntityReference records an observation mention on the entity.
// Adding the same observation twice does not change the mention count.
func (h *EntitiesDBHandler) AddEntityReference(id uuid.UUID, observationID uuid.UUID) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM add_entity_reference($1, $2)`,
		id,
		observationID,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// RemoveEntityReference removes an observation mention from the entity
func (h *EntitiesDBHandler) RemoveEntityReference(id uuid.UUID, observationID uuid.UUID) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM remove_entity_reference($1, $2)`,
		id,
		observationID,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		id,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityByTitle retrieves an entity by normalized title and type
func (h *EntitiesDBHandler) SelectEntityByTitle(normalizedTitle string, entityType model.EntityType) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_title($1, $2)`,
		normalizedTitle,
		entityType,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesByType retrieves all entities of the given type
func (h *EntitiesDBHandler) SelectEntitiesByType(entityType model.EntityType) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_type($1)`,
		entityType,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := scanEntity(rows, entity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SelectEntitiesByObservation retrieves all entities referenced by or created
// from the given observation
func (h *EntitiesDBHandler) SelectEntitiesByObservation(observationID uuid.UUID) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_observation($1)`,
		observationID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := scanEntity(rows, entity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SelectEntitiesUpdatedSince retrieves entities updated at or after the given
// time, most recently updated first
func (h *EntitiesDBHandler) SelectEntitiesUpdatedSince(since time.Time, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_updated_since($1, $2)`,
		since,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := scanEntity(rows, entity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// UpdateEntityMetadata updates the metadata of an entity
func (h *EntitiesDBHandler) UpdateEntityMetadata(id uuid.UUID, metadata model.Metadata) error {
	_, err := h.db.Instance.Exec(
		`SELECT * FROM update_entity_metadata($1, $2)`,
		id,
		metadata,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// UpdateEntitySummary updates the summary of an entity
func (h *EntitiesDBHandler) UpdateEntitySummary(id uuid.UUID, summary string) error {
	_, err := h.db.Instance.Exec(
		`SELECT * FROM update_entity_summary($1, $2)`,
		id,
		summary,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// UpdateEntityEmbedding updates the embedding vector of an entity
func (h *EntitiesDBHandler) UpdateEntityEmbedding(id uuid.UUID, embedding []float32) error {
	embeddingVector := pgvector.NewVector(embedding)
	_, err := h.db.Instance.Exec(
		`SELECT * FROM update_entity_embedding($1, $2)`,
		id,
		embeddingVector,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SetEntityPromoted sets the promoted flag of an entity
func (h *EntitiesDBHandler) SetEntityPromoted(id uuid.UUID, promoted bool) error {
	_, err := h.db.Instance.Exec(
		`SELECT * FROM set_entity_promoted($1, $2)`,
		id,
		promoted,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectSimilarEntityPairs retrieves distinct entity pairs whose embedding
// cosine similarity is at least the given threshold, most similar first
func (h *EntitiesDBHandler) SelectSimilarEntityPairs(threshold float64, limit int) ([]*model.EntityPair, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_similar_entity_pairs($1, $2)`,
		threshold,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var pairs []*model.EntityPair
	for rows.Next() {
		pair := &model.EntityPair{}
		err := rows.Scan(
			&pair.FromID,
			&pair.ToID,
			&pair.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		pairs = append(pairs, pair)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return pairs, nil
}

// DeleteEntity deletes an entity by ID
func (h *EntitiesDBHandler) DeleteEntity(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner, entity *model.Entity) error {
	return scanEntityWith(row, entity)
}

// scanEntityWith scans a full entity row plus any trailing columns
// (e.g. the created flag of get_or_create_entity). The embedding column
// is nullable.
func scanEntityWith(row rowScanner, entity *model.Entity, extra ...any) error {
	var embedding pgvector.Vector
	var hasEmbedding bool

	dest := []any{
		&entity.ID,
		&entity.Type,
		&entity.Title,
		&entity.NormalizedTitle,
		&entity.Summary,
		&entity.Metadata,
		&entity.SourceObservationID,
		pq.Array(&entity.ReferencedBy),
		&entity.MentionCount,
		&entity.Promoted,
		&nullableVector{vector: &embedding, valid: &hasEmbedding},
		&entity.CreatedAt,
		&entity.UpdatedAt,
	}
	dest = append(dest, extra...)

	err := row.Scan(dest...)
	if err != nil {
		return err
	}

	if hasEmbedding {
		entity.Embedding = embedding.Slice()
	} else {
		entity.Embedding = nil
	}

	return nil
}

// nullableVector scans a pgvector column that may be NULL
type nullableVector struct {
	vector *pgvector.Vector
	valid  *bool
}

func (n *nullableVector) Scan(src any) error {
	if src == nil {
		*n.valid = false
		return nil
	}
	*n.valid = true
	return n.vector.Scan(src)
}
