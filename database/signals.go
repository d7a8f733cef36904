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
)

// SignalsDBHandlerFunctions defines the interface for Signals database operations.
type SignalsDBHandlerFunctions interface {
	UpsertSignal(signal *model.Signal) error
	SelectSignal(entityID uuid.UUID) (*model.Signal, error)
	AdjustSignal(entityID uuid.UUID, importanceDelta float64, noveltyDelta float64, refreshRecency bool) (*model.Signal, error)
	DeleteSignal(entityID uuid.UUID) error
	RecordDismissedPattern(pattern *model.DismissedPattern) error
	SelectDismissedPatterns() ([]*model.DismissedPattern, error)
}

// SignalsDBHandler handles signal-related database operations
type SignalsDBHandler struct {
	db *helper.Database
}

// NewSignalsDBHandler creates a new signals database handler.
// It initializes the database connection and loads signal-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSignalsDBHandler(db *helper.Database, force bool) (*SignalsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	signalsDbHandler := &SignalsDBHandler{
		db: db,
	}

	err := loadSql.LoadSignalsSql(signalsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load signals sql", err)
	}

	err = signalsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SignalsDBHandler")

	return signalsDbHandler, nil
}

// CreateTable creates the 'signals' and 'dismissed_patterns' tables in the
// database. If the tables already exist, it does not create them again.
func (h *SignalsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_signals();`)
	if err != nil {
		log.Panicf("error initializing signals tables: %#v", err)
	}

	h.db.Logger.Info("Checked/created tables signals and dismissed_patterns")

	return nil
}

// UpsertSignal inserts or replaces the signal row for an entity
func (h *SignalsDBHandler) UpsertSignal(signal *model.Signal) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_signal($1, $2, $3, $4)`,
		signal.EntityID,
		signal.Importance,
		signal.Recency,
		signal.Novelty,
	)

	err := scanSignal(row, signal)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectSignal retrieves the signal row for an entity
func (h *SignalsDBHandler) SelectSignal(entityID uuid.UUID) (*model.Signal, error) {
	signal := &model.Signal{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_signal($1)`,
		entityID,
	)

	err := scanSignal(row, signal)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return signal, nil
}

// AdjustSignal shifts importance and novelty by the given deltas, keeping
// both in [0, 1]. Setting refreshRecency resets recency to 1 and stamps the
// surfaced time.
func (h *SignalsDBHandler) AdjustSignal(entityID uuid.UUID, importanceDelta float64, noveltyDelta float64, refreshRecency bool) (*model.Signal, error) {
	signal := &model.Signal{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM adjust_signal($1, $2, $3, $4)`,
		entityID,
		importanceDelta,
		noveltyDelta,
		refreshRecency,
	)

	err := scanSignal(row, signal)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return signal, nil
}

// DeleteSignal deletes the signal row for an entity
func (h *SignalsDBHandler) DeleteSignal(entityID uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_signal($1)`,
		entityID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// RecordDismissedPattern records a dismissed insight pattern, incrementing
// the dismiss count when the insight type was seen before
func (h *SignalsDBHandler) RecordDismissedPattern(pattern *model.DismissedPattern) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM record_dismissed_pattern($1, $2, $3)`,
		pattern.InsightType,
		pq.Array(pattern.DriverTypes),
		pq.Array(pattern.Keywords),
	)

	err := row.Scan(
		&pattern.ID,
		&pattern.InsightType,
		pq.Array(&pattern.DriverTypes),
		pq.Array(&pattern.Keywords),
		&pattern.DismissCount,
		&pattern.LastDismissedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDismissedPatterns retrieves all dismissed patterns, most recently
// dismissed first
func (h *SignalsDBHandler) SelectDismissedPatterns() ([]*model.DismissedPattern, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_dismissed_patterns()`,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var patterns []*model.DismissedPattern
	for rows.Next() {
		pattern := &model.DismissedPattern{}
		err := rows.Scan(
			&pattern.ID,
			&pattern.InsightType,
			pq.Array(&pattern.DriverTypes),
			pq.Array(&pattern.Keywords),
			&pattern.DismissCount,
			&pattern.LastDismissedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		patterns = append(patterns, pattern)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return patterns, nil
}

func scanSignal(row rowScanner, signal *model.Signal) error {
	return row.Scan(
		&signal.EntityID,
		&signal.Importance,
		&signal.Recency,
		&signal.Novelty,
		&signal.LastSurfacedAt,
		&signal.UpdatedAt,
	)
}
