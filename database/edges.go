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
)

// EdgesDBHandlerFunctions defines the interface for Edges database operations.
type EdgesDBHandlerFunctions interface {
	ReinforceEdge(edge *model.Edge, increment float64) (bool, error)
	SelectEdge(id uuid.UUID) (*model.Edge, error)
	SelectEdgeByTriple(fromID uuid.UUID, toID uuid.UUID, kind model.EdgeKind) (*model.Edge, error)
	SelectEdgesForEntity(entityID uuid.UUID) ([]*model.Edge, error)
	SelectEdgesByObservation(observationID uuid.UUID) ([]*model.Edge, error)
	CountEdgesForEntity(entityID uuid.UUID) (int, error)
	DecayEdges(factor float64, sweepStarted time.Time) (int, error)
	PruneEdges(threshold float64) (int, error)
	DeleteEdge(id uuid.UUID) error
	DeleteEdgesForEntity(entityID uuid.UUID) (int, error)
	DeleteEdgesByObservation(observationID uuid.UUID) (int, error)
}

// EdgesDBHandler handles edge-related database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// It initializes the database connection and loads edge-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'edges' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_edges();`)
	if err != nil {
		log.Panicf("error initializing edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table edges")

	return nil
}

// ReinforceEdge inserts the edge or, when the (from, to, kind) triple already
// exists, increments its weight by the given amount, keeps the higher
// confidence and widens the validity interval. The edge is updated in place
// and the returned bool reports whether an existing edge was reinforced.
func (h *EdgesDBHandler) ReinforceEdge(edge *model.Edge, increment float64) (bool, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM reinforce_edge($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		edge.FromID,
		edge.ToID,
		edge.Kind,
		edge.Confidence,
		increment,
		edge.Description,
		edge.ValidFrom,
		edge.ValidTo,
		edge.SourceObservationID,
		edge.Metadata,
	)

	var reinforced bool
	err := scanEdgeWith(row, edge, &reinforced)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return reinforced, nil
}

// SelectEdge retrieves an edge by ID
func (h *EdgesDBHandler) SelectEdge(id uuid.UUID) (*model.Edge, error) {
	edge := &model.Edge{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_edge($1)`,
		id,
	)

	err := scanEdge(row, edge)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return edge, nil
}

// SelectEdgeByTriple retrieves the edge with the given from, to and kind
func (h *EdgesDBHandler) SelectEdgeByTriple(fromID uuid.UUID, toID uuid.UUID, kind model.EdgeKind) (*model.Edge, error) {
	edge := &model.Edge{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_edge_by_triple($1, $2, $3)`,
		fromID,
		toID,
		kind,
	)

	err := scanEdge(row, edge)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return edge, nil
}

// SelectEdgesForEntity retrieves all edges touching the given entity
func (h *EdgesDBHandler) SelectEdgesForEntity(entityID uuid.UUID) ([]*model.Edge, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_edges_for_entity($1)`,
		entityID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge := &model.Edge{}
		err := scanEdge(rows, edge)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// SelectEdgesByObservation retrieves all edges created from the given observation
func (h *EdgesDBHandler) SelectEdgesByObservation(observationID uuid.UUID) ([]*model.Edge, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_edges_by_observation($1)`,
		observationID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge := &model.Edge{}
		err := scanEdge(rows, edge)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// CountEdgesForEntity counts the edges touching the given entity
func (h *EdgesDBHandler) CountEdgesForEntity(entityID uuid.UUID) (int, error) {
	var count int
	row := h.db.Instance.QueryRow(
		`SELECT * FROM count_edges_for_entity($1)`,
		entityID,
	)

	err := row.Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return count, nil
}

// DecayEdges multiplies every edge weight by the given factor once per sweep.
// Re-running with the same sweepStarted time only touches edges the previous
// run did not reach. Returns the number of decayed edges.
func (h *EdgesDBHandler) DecayEdges(factor float64, sweepStarted time.Time) (int, error) {
	var decayed int
	row := h.db.Instance.QueryRow(
		`SELECT * FROM decay_edges($1, $2)`,
		factor,
		sweepStarted,
	)

	err := row.Scan(&decayed)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return decayed, nil
}

// PruneEdges deletes all edges with weight below the given threshold.
// Returns the number of pruned edges.
func (h *EdgesDBHandler) PruneEdges(threshold float64) (int, error) {
	var pruned int
	row := h.db.Instance.QueryRow(
		`SELECT * FROM prune_edges($1)`,
		threshold,
	)

	err := row.Scan(&pruned)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return pruned, nil
}

// DeleteEdge deletes an edge by ID
func (h *EdgesDBHandler) DeleteEdge(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_edge($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteEdgesForEntity deletes all edges touching the given entity.
// Returns the number of deleted edges.
func (h *EdgesDBHandler) DeleteEdgesForEntity(entityID uuid.UUID) (int, error) {
	var deleted int
	row := h.db.Instance.QueryRow(
		`SELECT * FROM delete_edges_for_entity($1)`,
		entityID,
	)

	err := row.Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}

// DeleteEdgesByObservation deletes all edges created from the given observation.
// Returns the number of deleted edges.
func (h *EdgesDBHandler) DeleteEdgesByObservation(observationID uuid.UUID) (int, error) {
	var deleted int
	row := h.db.Instance.QueryRow(
		`SELECT * FROM delete_edges_by_observation($1)`,
		observationID,
	)

	err := row.Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}

func scanEdge(row rowScanner, edge *model.Edge) error {
	return scanEdgeWith(row, edge)
}

// scanEdgeWith scans a full edge row plus any trailing columns
// (e.g. the reinforced flag of reinforce_edge)
func scanEdgeWith(row rowScanner, edge *model.Edge, extra ...any) error {
	dest := []any{
		&edge.ID,
		&edge.FromID,
		&edge.ToID,
		&edge.Kind,
		&edge.Weight,
		&edge.Confidence,
		&edge.ValidFrom,
		&edge.ValidTo,
		&edge.Description,
		&edge.SourceObservationID,
		&edge.LastReinforcedAt,
		&edge.LastDecayedAt,
		&edge.Metadata,
		&edge.CreatedAt,
	}
	dest = append(dest, extra...)

	return row.Scan(dest...)
}
