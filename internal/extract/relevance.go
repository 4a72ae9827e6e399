package extract

import (
	"errors"
	"strings"
)

// ErrNoRelevanceKeywords aborts the whole task: with nothing to match
// against, every document would be classified irrelevant and the run would
// silently produce nothing.
var ErrNoRelevanceKeywords = errors.New("no relevance keywords configured")

// Classifier decides whether a document is about a tender at all, by
// case-insensitive substring match against the configured keyword list.
type Classifier struct {
	keywords []string
}

func NewClassifier(keywords []string) (*Classifier, error) {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoRelevanceKeywords
	}
	return &Classifier{keywords: cleaned}, nil
}

// Classify returns whether any keyword occurs in the text, plus the ones
// that did. Zero matches is a normal outcome, distinct from the
// missing-keyword configuration error.
func (c *Classifier) Classify(text string) (bool, []string) {
	lower := strings.ToLower(text)

	var matched []string
	for _, kw := range c.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return len(matched) > 0, matched
}
