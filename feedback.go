package memograph

import (
	"fmt"
	"log/slog"

	"github.com/evan-ryan-york/memograph/helper"
	"github.com/evan-ryan-york/memograph/model"
	"github.com/google/uuid"
)

// Acknowledge records positive feedback on surfaced entities: importance
// rises by the configured feedback delta and recency is refreshed
func (m *Memograph) Acknowledge(entityIDs []uuid.UUID) error {
	if len(entityIDs) == 0 {
		return helper.NewError("acknowledge validation", fmt.Errorf("no entity ids given"))
	}

	for _, entityID := range entityIDs {
		_, err := m.Signals.AdjustSignal(entityID, m.config.FeedbackDelta, 0, true)
		if err != nil {
			return helper.NewError(fmt.Sprintf("acknowledge entity %s", entityID), err)
		}
	}

	m.log.Info("Acknowledged entities", slog.Int("count", len(entityIDs)))
	return nil
}

// Dismiss records negative feedback on surfaced entities: importance
// drops by the configured feedback delta. The optional pattern captures
// the signature of the dismissed insight so similar ones are not
// resurfaced.
func (m *Memograph) Dismiss(entityIDs []uuid.UUID, pattern *model.DismissedPattern) error {
	if len(entityIDs) == 0 {
		return helper.NewError("dismiss validation", fmt.Errorf("no entity ids given"))
	}

	for _, entityID := range entityIDs {
		_, err := m.Signals.AdjustSignal(entityID, -m.config.FeedbackDelta, 0, false)
		if err != nil {
			return helper.NewError(fmt.Sprintf("dismiss entity %s", entityID), err)
		}
	}

	if pattern != nil {
		err := m.Signals.RecordDismissedPattern(pattern)
		if err != nil {
			return helper.NewError("record dismissed pattern", err)
		}
	}

	m.log.Info("Dismissed entities", slog.Int("count", len(entityIDs)))
	return nil
}
