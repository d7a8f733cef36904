package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Signal holds the relevance scores computed for a promoted entity.
// Created with promotion, recomputed on every subsequent touch.
type Signal struct {
	EntityID       uuid.UUID  `json:"entity_id"`
	Importance     float64    `json:"importance"`
	Recency        float64    `json:"recency"`
	Novelty        float64    `json:"novelty"`
	LastSurfacedAt *time.Time `json:"last_surfaced_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DismissedPattern records the signature of a dismissed insight so
// downstream consumers can avoid resurfacing similar ones
type DismissedPattern struct {
	ID              uuid.UUID `json:"id"`
	InsightType     string    `json:"insight_type"`
	DriverTypes     []string  `json:"driver_types"`
	Keywords        []string  `json:"keywords"`
	DismissCount    int       `json:"dismiss_count"`
	LastDismissedAt time.Time `json:"last_dismissed_at"`
}

// patternStopwords are words too common to distinguish one dismissed
// insight from another
var patternStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "have": true, "has": true, "was": true,
	"are": true, "your": true, "about": true, "into": true, "been": true,
}

const maxPatternKeywords = 10

// NewDismissedPattern builds the signature of a dismissed insight. The
// keywords are the distinct meaningful words of the insight text,
// lowercased, capped at ten.
func NewDismissedPattern(insightType string, insightText string, driverTypes []string) *DismissedPattern {
	var keywords []string
	seen := map[string]bool{}

	for _, word := range strings.Fields(strings.ToLower(insightText)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if len(word) < 4 || patternStopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == maxPatternKeywords {
			break
		}
	}

	return &DismissedPattern{
		InsightType: insightType,
		DriverTypes: driverTypes,
		Keywords:    keywords,
	}
}
