package search

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/config"
)

// QueryFilters narrows a search beyond its free-text terms.
type QueryFilters struct {
	// TimeWindow is one of "d", "w", "m", "y" (past day/week/month/year).
	TimeWindow string
	// FileType restricts results to a document suffix, e.g. "pdf".
	FileType string
	// Region is appended as a quoted location term.
	Region string
}

// QueryBuilder turns free-text terms plus filters into one search URL per
// engine, honoring engine-specific syntax. Engines are not interchangeable:
// a time window becomes a URL parameter for Google and a free-text year
// suffix for Bing.
type QueryBuilder struct {
	registry *config.Registry
}

func NewQueryBuilder(registry *config.Registry) *QueryBuilder {
	return &QueryBuilder{registry: registry}
}

// Build returns the full results-page URL for one engine, or
// ErrUnsupportedEngine when the engine id has no registry entry.
func (b *QueryBuilder) Build(engineID string, terms []string, filters QueryFilters) (string, error) {
	eng, ok := b.registry.Engine(engineID)
	if ok && eng.Strategy != "http" && eng.Strategy != "browser" {
		ok = false
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEngine, engineID)
	}

	query := joinTerms(terms)

	if filters.FileType != "" {
		query += " filetype:" + strings.ToLower(strings.TrimPrefix(filters.FileType, "."))
	}
	if filters.Region != "" {
		query += fmt.Sprintf(" %q", filters.Region)
	}
	if filters.TimeWindow != "" && eng.YearSuffix {
		// Engines without a time parameter get the window expressed as a
		// free-text year, which biases results toward recent postings.
		query += " " + time.Now().Format("2006")
	}

	searchURL := strings.Replace(eng.SearchURL, "{query}", url.QueryEscape(query), 1)

	if filters.TimeWindow != "" && eng.TimeParam != "" {
		searchURL += "&" + eng.TimeParam + "=" + url.QueryEscape("qdr:"+filters.TimeWindow)
	}

	return searchURL, nil
}

// joinTerms quotes multi-word terms and ORs them together so any single
// term is enough for a page to match.
func joinTerms(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if strings.Contains(term, " ") && !strings.HasPrefix(term, `"`) {
			term = `"` + term + `"`
		}
		parts = append(parts, term)
	}
	return strings.Join(parts, " OR ")
}
