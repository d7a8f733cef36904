package helper

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(buf *bytes.Buffer, level slog.Level) *PrettyHandler {
	return NewPrettyHandler(buf, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: level},
	})
}

func TestNewPrettyHandler(t *testing.T) {
	t.Run("Valid call NewPrettyHandler", func(t *testing.T) {
		var buf bytes.Buffer

		handler := newTestHandler(&buf, slog.LevelInfo)

		assert.NotNil(t, handler, "Expected NewPrettyHandler to return a non-nil handler")
		assert.NotNil(t, handler.Handler, "Expected handler to wrap an inner Handler")
		assert.NotNil(t, handler.l, "Expected handler to carry a logger")
	})
}

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("Record carries level, message and attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newTestHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "Consolidation sweep finished", 0)
		record.AddAttrs(slog.Int("created", 3), slog.Int("pruned", 1))

		err := handler.Handle(ctx, record)

		require.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "INFO:", "Expected output to contain the level")
		assert.Contains(t, output, "Consolidation sweep finished", "Expected output to contain the message")
		assert.Contains(t, output, "created", "Expected output to contain attribute keys")
		assert.Contains(t, output, "3", "Expected output to contain attribute values")
	})

	t.Run("Each level renders its own tag", func(t *testing.T) {
		levels := map[slog.Level]string{
			slog.LevelDebug: "DEBUG:",
			slog.LevelInfo:  "INFO:",
			slog.LevelWarn:  "WARN:",
			slog.LevelError: "ERROR:",
		}

		for level, tag := range levels {
			var buf bytes.Buffer
			handler := newTestHandler(&buf, slog.LevelDebug)

			record := slog.NewRecord(time.Now(), level, "Mention not recorded", 0)
			err := handler.Handle(ctx, record)

			require.NoError(t, err)
			assert.Contains(t, buf.String(), tag)
		}
	})

	t.Run("Timestamp uses the short bracket format", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newTestHandler(&buf, slog.LevelInfo)

		stamp := time.Date(2026, 8, 30, 9, 15, 42, 123_000_000, time.UTC)
		record := slog.NewRecord(stamp, slog.LevelInfo, "Initialized EntitiesDBHandler", 0)

		err := handler.Handle(ctx, record)

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "[09:15:42.123]")
	})

	t.Run("Attributes render as indented JSON", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newTestHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "Observation deleted", 0)
		record.AddAttrs(
			slog.String("observation_id", "9f1c"),
			slog.Int("entities_deleted", 2),
		)

		err := handler.Handle(ctx, record)

		require.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, `"observation_id"`)
		assert.Contains(t, output, `"entities_deleted"`)
		assert.True(t, strings.Contains(output, "{"), "Expected a JSON block in the output")
	})

	t.Run("Record without attributes still logs", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newTestHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelWarn, "Extraction failed, continuing without candidates", 0)

		err := handler.Handle(ctx, record)

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Extraction failed, continuing without candidates")
	})
}

func TestPrettyHandlerWithLogger(t *testing.T) {
	t.Run("Works as a slog handler end to end", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(newTestHandler(&buf, slog.LevelInfo))

		logger.Info("Promoted entity", slog.String("title", "Atlas Redesign"))
		logger.Debug("Below level, dropped")

		output := buf.String()
		assert.Contains(t, output, "Promoted entity")
		assert.Contains(t, output, "Atlas Redesign")
		assert.NotContains(t, output, "Below level, dropped")
	})
}
