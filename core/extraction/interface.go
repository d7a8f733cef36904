package extraction

import (
	"context"
	"strings"
	"unicode"

	"github.com/evan-ryan-york/memograph/model"
)

// ExtractFunc produces entity and relationship candidates from observation content
type ExtractFunc func(ctx context.Context, content string) (*model.ExtractionResult, error)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

// CleanContent normalizes raw observation content before extraction.
// It strips non-printing control characters, trims surrounding
// whitespace and collapses runs of blank lines.
func CleanContent(content string) string {
	content = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, content)

	lines := strings.Split(strings.TrimSpace(content), "\n")
	cleaned := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			cleaned = append(cleaned, "")
			continue
		}
		blank = false
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}
