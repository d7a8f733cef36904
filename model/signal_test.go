package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDismissedPattern(t *testing.T) {
	t.Run("Extracts distinct meaningful keywords", func(t *testing.T) {
		pattern := NewDismissedPattern(
			"stale_review_reminder",
			"You have not touched the Weekly Review for two weeks.",
			[]string{"reflection"},
		)

		assert.Equal(t, "stale_review_reminder", pattern.InsightType)
		assert.Equal(t, []string{"reflection"}, pattern.DriverTypes)
		assert.Equal(t, []string{"touched", "weekly", "review", "weeks"}, pattern.Keywords)
	})

	t.Run("Drops stopwords short words and punctuation", func(t *testing.T) {
		pattern := NewDismissedPattern("idle", "This was about the plan, and the plan!", nil)

		assert.Equal(t, []string{"plan"}, pattern.Keywords)
	})

	t.Run("Caps keywords at ten", func(t *testing.T) {
		pattern := NewDismissedPattern("idle",
			"alpha bravo charlie delta echoes foxtrot golfs hotel india juliet kilos lima", nil)

		assert.Len(t, pattern.Keywords, 10)
	})

	t.Run("Empty text yields no keywords", func(t *testing.T) {
		pattern := NewDismissedPattern("idle", "", nil)

		assert.Empty(t, pattern.Keywords)
	})
}
