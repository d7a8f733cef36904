package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed observations.sql
var observationsSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed edges.sql
var edgesSQL string

//go:embed signals.sql
var signalsSQL string

// Function lists for verification
var ObservationsFunctions = []string{
	"init_observations",
	"insert_observation",
	"select_observation",
	"select_observations_by_status",
	"update_observation_status",
	"delete_observation",
}

var EntitiesFunctions = []string{
	"init_entities",
	"get_or_create_entity",
	"add_entity_reference",
	"remove_entity_reference",
	"select_entity",
	"select_entity_by_title",
	"select_entities_by_type",
	"select_entities_by_observation",
	"select_entities_updated_since",
	"update_entity_metadata",
	"update_entity_summary",
	"update_entity_embedding",
	"set_entity_promoted",
	"select_similar_entity_pairs",
	"delete_entity",
}

var EdgesFunctions = []string{
	"init_edges",
	"reinforce_edge",
	"select_edge",
	"select_edge_by_triple",
	"select_edges_for_entity",
	"select_edges_by_observation",
	"count_edges_for_entity",
	"decay_edges",
	"prune_edges",
	"delete_edge",
	"delete_edges_for_entity",
	"delete_edges_by_observation",
}

var SignalsFunctions = []string{
	"init_signals",
	"upsert_signal",
	"select_signal",
	"adjust_signal",
	"delete_signal",
	"record_dismissed_pattern",
	"select_dismissed_patterns",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadObservationsSql loads observation-related SQL functions
func LoadObservationsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ObservationsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing observations functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(observationsSQL)
	if err != nil {
		return fmt.Errorf("error executing observations SQL: %w", err)
	}

	exist, err := checkFunctions(db, ObservationsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL observations functions loaded successfully")
	return nil
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, EntitiesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing entities functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(entitiesSQL)
	if err != nil {
		return fmt.Errorf("error executing entities SQL: %w", err)
	}

	exist, err := checkFunctions(db, EntitiesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL entities functions loaded successfully")
	return nil
}

// LoadEdgesSql loads edge-related SQL functions
func LoadEdgesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, EdgesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing edges functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(edgesSQL)
	if err != nil {
		return fmt.Errorf("error executing edges SQL: %w", err)
	}

	exist, err := checkFunctions(db, EdgesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL edges functions loaded successfully")
	return nil
}

// LoadSignalsSql loads signal-related SQL functions
func LoadSignalsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, SignalsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing signals functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(signalsSQL)
	if err != nil {
		return fmt.Errorf("error executing signals SQL: %w", err)
	}

	exist, err := checkFunctions(db, SignalsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL signals functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadObservationsSql(db, force); err != nil {
		return err
	}

	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadEdgesSql(db, force); err != nil {
		return err
	}

	if err := LoadSignalsSql(db, force); err != nil {
		return err
	}

	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
