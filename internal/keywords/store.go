package keywords

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/models"
)

// DefaultClosingKeywords anchor closing-date extraction when no keywords are
// configured in the database.
var DefaultClosingKeywords = []string{
	"closing date",
	"deadline",
	"closing on",
	"submission deadline",
	"closes on",
	"due date",
	"bid closing",
	"tender closing",
	"last date of submission",
}

// Store reads keyword configuration from the search_keywords table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) keywordsByKind(ctx context.Context, kind string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT keyword FROM search_keywords WHERE kind = $1 ORDER BY keyword", kind)
	if err != nil {
		return nil, fmt.Errorf("keyword query failed for kind %q: %w", kind, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}

// GetClosingKeywords returns the configured closing-date trigger keywords,
// falling back to the built-in default list when none are configured.
func (s *Store) GetClosingKeywords(ctx context.Context) ([]string, error) {
	kws, err := s.keywordsByKind(ctx, "closing")
	if err != nil {
		return nil, err
	}
	if len(kws) == 0 {
		return DefaultClosingKeywords, nil
	}
	return kws, nil
}

// GetRelevantKeywords returns the configured relevance keywords. An empty
// result is returned as-is; deciding whether that aborts the task is the
// caller's concern.
func (s *Store) GetRelevantKeywords(ctx context.Context) ([]string, error) {
	return s.keywordsByKind(ctx, "relevance")
}

// Snapshot fetches both keyword sets once, for use over one task's lifetime.
func (s *Store) Snapshot(ctx context.Context) (models.KeywordSet, error) {
	closing, err := s.GetClosingKeywords(ctx)
	if err != nil {
		return models.KeywordSet{}, err
	}
	relevant, err := s.GetRelevantKeywords(ctx)
	if err != nil {
		return models.KeywordSet{}, err
	}
	return models.KeywordSet{ClosingKeywords: closing, RelevantKeywords: relevant}, nil
}
