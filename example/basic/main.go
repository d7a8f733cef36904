package main

import (
	"context"
	"fmt"
	"log"

	"github.com/evan-ryan-york/memograph"
	"github.com/evan-ryan-york/memograph/core/extraction"
	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
)

var notes = []string{
	"I am Sam Teller, starting a notebook for my side projects.",
	"Kicked off project Lantern today. Talked it through with Ana Ruiz at Fermata Labs.",
	"Second session on project Lantern, the scope is finally settling.",
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
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

	// Set up local extraction (NER candidates + embeddings)
	if err := m.UseDefaultExtraction(); err != nil {
		log.Fatalf("Failed to set up extraction: %v", err)
	}

	// Capture and process a few notes
	fmt.Println("Capturing notes...")
	for _, note := range notes {
		if _, err := m.Capture("basic_example", note, nil, nil); err != nil {
			log.Fatalf("Failed to capture note: %v", err)
		}
	}

	picked, err := m.ProcessPending(context.Background())
	if err != nil {
		log.Fatalf("Failed to process notes: %v", err)
	}
	fmt.Printf("Processed %d observations\n", picked)

	// Run one consolidation sweep (linking, decay, pruning)
	report, err := m.Consolidate(context.Background())
	if err != nil {
		log.Fatalf("Failed to consolidate: %v", err)
	}
	fmt.Printf("Consolidation: %d proposed, %d created, %d reinforced, %d decayed, %d pruned\n",
		report.Proposed, report.Created, report.Reinforced, report.Decayed, report.Pruned)

	// Show what the graph learned
	people, err := m.Entities.SelectEntitiesByType(model.EntityTypePerson)
	if err != nil {
		log.Fatalf("Failed to list people: %v", err)
	}
	fmt.Printf("\nPeople in the graph:\n")
	for _, person := range people {
		fmt.Printf("  %s (mentions: %d, promoted: %v)\n", person.Title, person.MentionCount, person.Promoted)
	}

	if self, err := m.Resolver.SelfEntity(nil); err == nil {
		fmt.Printf("\nSelf entity: %s\n", self.Title)
	}

	fmt.Println("\nBasic example completed successfully!")
}
