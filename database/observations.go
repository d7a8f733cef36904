package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	"github.com/evan-ryan-york/memograph/sql"
	"github.com/google/uuid"
)

// ObservationsDBHandlerFunctions defines the interface for Observations database operations.
type ObservationsDBHandlerFunctions interface {
	InsertObservation(observation *model.Observation) error
	SelectObservation(id uuid.UUID) (*model.Observation, error)
	SelectObservationsByStatus(status model.ObservationStatus, limit int) ([]*model.Observation, error)
	UpdateObservationStatus(id uuid.UUID, status model.ObservationStatus) error
	DeleteObservation(id uuid.UUID) error
}

// ObservationsDBHandler handles observation-related database operations
type ObservationsDBHandler struct {
	db *helper.Database
}

// NewObservationsDBHandler creates a new observations database handler.
// It initializes the database connection and loads observation-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewObservationsDBHandler(db *helper.Database, force bool) (*ObservationsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	observationsDbHandler := &ObservationsDBHandler{
		db: db,
	}

	err := sql.LoadObservationsSql(observationsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load observations sql", err)
	}

	err = observationsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ObservationsDBHandler")

	return observationsDbHandler, nil
}

// CreateTable creates the 'observations' table in the database.
// If the table already exists, it does not create it again.
func (h *ObservationsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_observations();`)
	if err != nil {
		log.Panicf("error initializing observations table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table observations")

	return nil
}

// InsertObservation inserts a new observation
func (h *ObservationsDBHandler) InsertObservation(observation *model.Observation) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_observation($1, $2, $3, $4)`,
		observation.Source,
		observation.Content,
		observation.SelfEntityHint,
		observation.Metadata,
	)

	err := row.Scan(
		&observation.ID,
		&observation.Source,
		&observation.Content,
		&observation.Status,
		&observation.SelfEntityHint,
		&observation.Metadata,
		&observation.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectObservation retrieves an observation by ID
func (h *ObservationsDBHandler) SelectObservation(id uuid.UUID) (*model.Observation, error) {
	observation := &model.Observation{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_observation($1)`,
		id,
	)

	err := row.Scan(
		&observation.ID,
		&observation.Source,
		&observation.Content,
		&observation.Status,
		&observation.SelfEntityHint,
		&observation.Metadata,
		&observation.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return observation, nil
}

// SelectObservationsByStatus retrieves observations with the given status, oldest first
func (h *ObservationsDBHandler) SelectObservationsByStatus(status model.ObservationStatus, limit int) ([]*model.Observation, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_observations_by_status($1, $2)`,
		status,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var observations []*model.Observation
	for rows.Next() {
		observation := &model.Observation{}
		err := rows.Scan(
			&observation.ID,
			&observation.Source,
			&observation.Content,
			&observation.Status,
			&observation.SelfEntityHint,
			&observation.Metadata,
			&observation.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		observations = append(observations, observation)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return observations, nil
}

// UpdateObservationStatus updates the processing status of an observation
func (h *ObservationsDBHandler) UpdateObservationStatus(id uuid.UUID, status model.ObservationStatus) error {
	_, err := h.db.Instance.Exec(
		`SELECT * FROM update_observation_status($1, $2)`,
		id,
		status,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteObservation deletes an observation by ID
func (h *ObservationsDBHandler) DeleteObservation(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_observation($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
