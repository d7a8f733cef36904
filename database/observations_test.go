package database

import (
	"testing"
	"time"

	"github.com/evan-ryan-york/memograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationsNewObservationsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewObservationsDBHandler", func(t *testing.T) {
		observationsDbHandler, err := NewObservationsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewObservationsDBHandler to not return an error")
		require.NotNil(t, observationsDbHandler, "Expected NewObservationsDBHandler to return a non-nil instance")
		require.NotNil(t, observationsDbHandler.db, "Expected NewObservationsDBHandler to have a non-nil database instance")
		require.NotNil(t, observationsDbHandler.db.Instance, "Expected NewObservationsDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewObservationsDBHandler with nil database", func(t *testing.T) {
		_, err := NewObservationsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating ObservationsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestObservationsInsert(t *testing.T) {
	database := initDB(t)

	observationsDbHandler, err := NewObservationsDBHandler(database, true)
	require.NoError(t, err, "Expected NewObservationsDBHandler to not return an error")

	t.Run("Insert observation", func(t *testing.T) {
		observation := &model.Observation{
			Source:   "journal",
			Content:  "Met with Dana about the search rollout.",
			Metadata: model.Metadata{"channel": "daily_note"},
		}

		err := observationsDbHandler.InsertObservation(observation)
		assert.NoError(t, err, "Expected Insert to not return an error")
		assert.NotEmpty(t, observation.ID, "Expected inserted observation to have an ID")
		assert.Equal(t, model.ObservationStatusReady, observation.Status, "Expected new observation to be ready")
		assert.WithinDuration(t, observation.CreatedAt, time.Now(), 2*time.Second, "Expected CreatedAt to be set")

		// Cleanup
		observationsDbHandler.DeleteObservation(observation.ID)
	})

	t.Run("Insert observation with empty metadata", func(t *testing.T) {
		observation := &model.Observation{
			Source:  "chat",
			Content: "Shipped the importer fix.",
		}

		err := observationsDbHandler.InsertObservation(observation)
		assert.NoError(t, err, "Expected Insert to not return an error")
		assert.NotNil(t, observation.Metadata, "Expected metadata to be scanned as empty map")

		// Cleanup
		observationsDbHandler.DeleteObservation(observation.ID)
	})
}

func TestObservationsSelect(t *testing.T) {
	database := initDB(t)

	observationsDbHandler, err := NewObservationsDBHandler(database, true)
	require.NoError(t, err, "Expected NewObservationsDBHandler to not return an error")

	observation := &model.Observation{
		Source:  "journal",
		Content: "Started planning the Q4 roadmap.",
	}
	err = observationsDbHandler.InsertObservation(observation)
	require.NoError(t, err)
	defer observationsDbHandler.DeleteObservation(observation.ID)

	t.Run("Select observation by ID", func(t *testing.T) {
		selected, err := observationsDbHandler.SelectObservation(observation.ID)
		assert.NoError(t, err, "Expected Select to not return an error")
		require.NotNil(t, selected)
		assert.Equal(t, observation.ID, selected.ID)
		assert.Equal(t, observation.Content, selected.Content)
		assert.Equal(t, model.ObservationStatusReady, selected.Status)
	})

	t.Run("Select observations by status", func(t *testing.T) {
		observations, err := observationsDbHandler.SelectObservationsByStatus(model.ObservationStatusReady, 10)
		assert.NoError(t, err, "Expected Select to not return an error")
		require.NotEmpty(t, observations, "Expected at least one ready observation")

		found := false
		for _, o := range observations {
			if o.ID == observation.ID {
				found = true
			}
		}
		assert.True(t, found, "Expected inserted observation in ready list")
	})
}

func TestObservationsUpdateStatus(t *testing.T) {
	database := initDB(t)

	observationsDbHandler, err := NewObservationsDBHandler(database, true)
	require.NoError(t, err, "Expected NewObservationsDBHandler to not return an error")

	observation := &model.Observation{
		Source:  "journal",
		Content: "Reviewed the hiring plan with Priya.",
	}
	err = observationsDbHandler.InsertObservation(observation)
	require.NoError(t, err)
	defer observationsDbHandler.DeleteObservation(observation.ID)

	t.Run("Update observation status", func(t *testing.T) {
		err := observationsDbHandler.UpdateObservationStatus(observation.ID, model.ObservationStatusProcessed)
		assert.NoError(t, err, "Expected Update to not return an error")

		selected, err := observationsDbHandler.SelectObservation(observation.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ObservationStatusProcessed, selected.Status)
	})

	t.Run("Updated observation leaves ready queue", func(t *testing.T) {
		observations, err := observationsDbHandler.SelectObservationsByStatus(model.ObservationStatusReady, 100)
		require.NoError(t, err)

		for _, o := range observations {
			assert.NotEqual(t, observation.ID, o.ID, "Expected processed observation to not appear in ready list")
		}
	})
}

func TestObservationsDelete(t *testing.T) {
	database := initDB(t)

	observationsDbHandler, err := NewObservationsDBHandler(database, true)
	require.NoError(t, err, "Expected NewObservationsDBHandler to not return an error")

	t.Run("Delete observation", func(t *testing.T) {
		observation := &model.Observation{
			Source:  "chat",
			Content: "Dropped the old migration scripts.",
		}
		err := observationsDbHandler.InsertObservation(observation)
		require.NoError(t, err)

		err = observationsDbHandler.DeleteObservation(observation.ID)
		assert.NoError(t, err, "Expected Delete to not return an error")

		_, err = observationsDbHandler.SelectObservation(observation.ID)
		assert.Error(t, err, "Expected Select to fail for deleted observation")
	})
}
