package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/evan-ryan-york/memograph"
	"github.com/evan-ryan-york/memograph/core/extraction"
	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

var notes = []string{
	"My name is Noor Haddad, keeping work notes here.",
	"First sync with Priya Nair about the meridian migration. She leads data platform at Corvid Systems.",
	"Meridian migration again: decided to cut over region by region instead of all at once.",
	"Priya flagged that the meridian migration blocks the reporting rewrite until the cutover finishes.",
}

func main() {
	// LLM extraction settings from .env (OPENAI_BASE_URL, OPENAI_API_KEY, OPENAI_MODEL)
	_ = godotenv.Load()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	m, err := memograph.NewMemograph(dbConfig, model.DefaultEngineConfig(), extraction.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to create memograph: %v", err)
	}
	defer m.Close()

	// LLM extraction when configured, local NER otherwise
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		err = m.UseLLMExtraction(baseURL, os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
	} else {
		err = m.UseDefaultExtraction()
	}
	if err != nil {
		log.Fatalf("Failed to set up extraction: %v", err)
	}

	ctx := context.Background()

	fmt.Println("Capturing and processing notes...")
	var observations []*model.Observation
	for _, note := range notes {
		observation, err := m.Capture("advanced_example", note, nil, nil)
		if err != nil {
			log.Fatalf("Failed to capture note: %v", err)
		}
		observations = append(observations, observation)

		report, err := m.ProcessObservation(ctx, observation.ID)
		if err != nil {
			log.Fatalf("Failed to process note: %v", err)
		}
		fmt.Printf("  %s: %d entities, %d promoted\n", report.Status, report.EntitiesRecorded, report.EntitiesPromoted)
	}

	// Consolidation links entities across observations and ages edges
	report, err := m.Consolidate(ctx)
	if err != nil {
		log.Fatalf("Failed to consolidate: %v", err)
	}
	fmt.Printf("\nConsolidation: %d created, %d reinforced, %d decayed, %d pruned\n",
		report.Created, report.Reinforced, report.Decayed, report.Pruned)

	// Walk the graph out from a promoted project, if one emerged
	projects, err := m.Entities.SelectEntitiesByType(model.EntityTypeProject)
	if err != nil {
		log.Fatalf("Failed to list projects: %v", err)
	}
	for _, project := range projects {
		if !project.Promoted {
			continue
		}

		fmt.Printf("\nNeighborhood of %q:\n", project.Title)
		results, err := m.BFSTraversal(ctx, project.ID, 2, nil, 0)
		if err != nil {
			log.Fatalf("Failed to traverse: %v", err)
		}
		for _, result := range results {
			fmt.Printf("  %d hops: %s\n", result.Distance, result.Entity.Title)
		}

		// Feedback moves the signal scores
		if err := m.Acknowledge([]uuid.UUID{project.ID}); err != nil {
			log.Fatalf("Failed to acknowledge: %v", err)
		}
		if signal, err := m.Signals.SelectSignal(project.ID); err == nil {
			fmt.Printf("  signal after acknowledge: importance %.2f, recency %.2f\n", signal.Importance, signal.Recency)
		}
		break
	}

	// Preview what deleting the first note would do before doing it
	plan, err := m.PreviewDeletion(observations[0].ID)
	if err != nil {
		log.Fatalf("Failed to preview deletion: %v", err)
	}
	fmt.Printf("\nDeleting the first note would affect %d entities:\n", len(plan.Entities))
	for _, outcome := range plan.Entities {
		fmt.Printf("  %s: %s (%d references left)\n", outcome.Title, outcome.Action, outcome.RemainingReferences)
	}

	if _, err := m.DeleteObservation(observations[0].ID); err != nil {
		log.Fatalf("Failed to delete observation: %v", err)
	}
	fmt.Println("\nAdvanced example completed successfully!")
}
