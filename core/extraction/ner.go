package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// DefaultNERExtractor creates a fallback extractor using a local NER model.
// Uses distilbert-NER for named entity recognition. It only proposes
// entities, never relationships, and never marks a primary subject.
func DefaultNERExtractor() (ExtractFunc, error) {
	// Prepare model (download if needed)
	// Using KnightsAnalytics optimized distilbert-NER model
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	// Create token classification pipeline for NER
	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}), // Ignore non-entity tokens
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(ctx context.Context, content string) (*model.ExtractionResult, error) {
		result, err := nerPipeline.RunPipeline([]string{content})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		extraction := &model.ExtractionResult{
			Entities:      []*model.CandidateEntity{},
			Relationships: []*model.CandidateRelationship{},
		}
		if len(result.Entities) == 0 {
			return extraction, nil
		}

		seen := map[string]bool{}
		for _, entity := range result.Entities[0] {
			title := strings.TrimSpace(entity.Word)
			entityType := entityTypeForLabel(entity.Entity)
			key := model.NormalizeTitle(title) + "|" + string(entityType)
			if title == "" || seen[key] {
				continue
			}
			seen[key] = true

			extraction.Entities = append(extraction.Entities, &model.CandidateEntity{
				Title:      title,
				Type:       entityType,
				Confidence: float64(entity.Score),
			})
		}

		return extraction, nil
	}, nil
}

// entityTypeForLabel maps BIO-tagged NER labels to entity types
func entityTypeForLabel(label string) model.EntityType {
	label = strings.TrimPrefix(label, "B-")
	label = strings.TrimPrefix(label, "I-")

	switch label {
	case "PER", "PERSON":
		return model.EntityTypePerson
	case "ORG", "ORGANIZATION":
		return model.EntityTypeCompany
	default:
		return model.EntityTypeReference
	}
}
