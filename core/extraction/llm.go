package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	"github.com/sashabaranov/go-openai"
)

const extractionSystemPrompt = `You extract knowledge from personal notes.
Given one note, identify the concepts it talks about and the relationships between them.

Respond with JSON only, no prose, in this shape:
{
  "entities": [
    {"title": "...", "type": "...", "summary": "...", "confidence": 0.0, "is_primary_subject": false}
  ],
  "relationships": [
    {"from_title": "...", "to_title": "...", "kind": "...", "confidence": 0.0, "description": "...", "start_date": null, "end_date": null}
  ]
}

Entity types: core_identity, person, project, feature, decision, reflection, task, meeting_note, company, reference_document.
Relationship kinds: belongs_to, modifies, mentions, informs, blocks, contradicts, relates_to, role_at.
Mark at most one entity as the primary subject of the note.
Dates are RFC 3339 timestamps or null.`

// rawRelationship mirrors CandidateRelationship with string dates so that
// malformed dates from the collaborator degrade to nil instead of failing
// the whole extraction.
type rawRelationship struct {
	FromTitle   string         `json:"from_title"`
	ToTitle     string         `json:"to_title"`
	Kind        model.EdgeKind `json:"kind"`
	Confidence  float64        `json:"confidence"`
	Description string         `json:"description"`
	StartDate   *string        `json:"start_date"`
	EndDate     *string        `json:"end_date"`
}

type rawResult struct {
	Entities      []*model.CandidateEntity `json:"entities"`
	Relationships []*rawRelationship       `json:"relationships"`
}

// NewLLMExtractor creates an extractor backed by an OpenAI-compatible chat
// completion endpoint. An empty baseURL uses the default OpenAI endpoint.
func NewLLMExtractor(baseURL string, apiKey string, modelID string) ExtractFunc {
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	}
	client := openai.NewClientWithConfig(config)

	return func(ctx context.Context, content string) (*model.ExtractionResult, error) {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: modelID,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: content},
			},
			Temperature: 0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return nil, helper.NewError("chat completion", err)
		}
		if len(resp.Choices) == 0 {
			return nil, helper.NewError("chat completion", fmt.Errorf("no choices returned"))
		}

		return parseExtractionResponse(resp.Choices[0].Message.Content)
	}
}

// parseExtractionResponse parses the collaborator's JSON reply. Markdown
// code fences around the JSON are tolerated.
func parseExtractionResponse(reply string) (*model.ExtractionResult, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	raw := &rawResult{}
	err := json.Unmarshal([]byte(reply), raw)
	if err != nil {
		return nil, helper.NewError("unmarshal extraction response", err)
	}

	result := &model.ExtractionResult{
		Entities:      make([]*model.CandidateEntity, 0, len(raw.Entities)),
		Relationships: make([]*model.CandidateRelationship, 0, len(raw.Relationships)),
	}

	for _, entity := range raw.Entities {
		if entity == nil || strings.TrimSpace(entity.Title) == "" {
			continue
		}
		result.Entities = append(result.Entities, entity)
	}

	for _, rel := range raw.Relationships {
		if rel == nil || strings.TrimSpace(rel.FromTitle) == "" || strings.TrimSpace(rel.ToTitle) == "" {
			continue
		}
		result.Relationships = append(result.Relationships, &model.CandidateRelationship{
			FromTitle:   rel.FromTitle,
			ToTitle:     rel.ToTitle,
			Kind:        rel.Kind,
			Confidence:  rel.Confidence,
			Description: rel.Description,
			StartDate:   parseDate(rel.StartDate),
			EndDate:     parseDate(rel.EndDate),
		})
	}

	return result, nil
}

func parseDate(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", *value)
		if err != nil {
			return nil
		}
	}
	return &parsed
}
