package engine

import (
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/memory"
)

// Free-text size ceilings. Overlong input is truncated at a word
// boundary rather than rejected; an empty title is rejected outright.
const (
	maxTitleChars   = 200
	maxContentChars = 20000
)

// validateText normalizes the free-text fields of a record before any
// mutation touches the store.
func (e *Engine) validateText(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", fmt.Errorf("%w: empty title", memory.ErrInvalidInput)
	}
	content = strings.TrimSpace(content)

	if len(title) > maxTitleChars {
		e.Logger.Warn("truncating title",
			zap.Int("chars", len(title)), zap.Int("max", maxTitleChars))
		title = truncateClean(title, maxTitleChars)
	}
	if len(content) > maxContentChars {
		e.Logger.Warn("truncating content",
			zap.Int("chars", len(content)), zap.Int("max", maxContentChars))
		content = truncateClean(content, maxContentChars)
	}
	return title, content, nil
}

// truncateClean truncates a string to maxLen, cutting at the last word boundary
// to avoid mid-word breaks.
func truncateClean(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	// Back up to last space
	truncated := s[:maxLen]
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > maxLen-200 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
