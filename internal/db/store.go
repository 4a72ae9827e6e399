package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/models"
)

// Store persists tenders in Postgres. Rows are keyed by source_url: the
// upsert inserts a new row or refreshes every mutable field of an existing
// one, never touching the key.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert writes a tender keyed by its source URL. Status must already have
// been recomputed by the caller; this layer stores what it is given.
func (s *Store) Upsert(ctx context.Context, t models.Tender) error {
	query := `
		INSERT INTO tenders (
			title, description, closing_date, source_url, status,
			format, scraped_at, tender_type, location, keywords
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
		ON CONFLICT (source_url) DO UPDATE SET
			updated_at = NOW(),
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			closing_date = EXCLUDED.closing_date,
			status = EXCLUDED.status,
			format = EXCLUDED.format,
			scraped_at = EXCLUDED.scraped_at,
			tender_type = COALESCE(NULLIF(EXCLUDED.tender_type, ''), tenders.tender_type),
			location = COALESCE(NULLIF(EXCLUDED.location, ''), tenders.location),
			keywords = COALESCE(NULLIF(EXCLUDED.keywords, '{}'::text[]), tenders.keywords)
	`

	_, err := s.pool.Exec(ctx, query,
		t.Title,
		t.Description,
		nilIfZeroTime(t.ClosingDate),
		t.SourceURL,
		string(t.Status),
		string(t.Format),
		t.ScrapedAt,
		nilIfEmpty(t.TenderType),
		nilIfEmpty(t.Location),
		t.Keywords,
	)
	return err
}

// ListParams filters the tender listing.
type ListParams struct {
	Status string // "open", "closed" or "" for all
	Query  string
	Limit  int
	Offset int
}

// ListResult is one page of tenders plus the unpaginated total.
type ListResult struct {
	Tenders []models.Tender `json:"tenders"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

const selectCols = `id, title, COALESCE(description, ''), closing_date, source_url, status,
	format, scraped_at, COALESCE(tender_type, ''), COALESCE(location, ''), keywords`

func (s *Store) List(ctx context.Context, params ListParams) (*ListResult, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Query != "" {
		where += fmt.Sprintf(" AND (title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", argIdx, argIdx)
		args = append(args, params.Query)
		argIdx++
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM tenders " + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	if params.Limit <= 0 {
		params.Limit = 50
	}

	selectSQL := fmt.Sprintf(
		"SELECT %s FROM tenders %s ORDER BY closing_date ASC NULLS LAST, scraped_at DESC LIMIT $%d OFFSET $%d",
		selectCols, where, argIdx, argIdx+1,
	)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var tenders []models.Tender
	for rows.Next() {
		var t models.Tender
		var closingDate *time.Time
		var status, format string

		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &closingDate, &t.SourceURL, &status,
			&format, &t.ScrapedAt, &t.TenderType, &t.Location, &t.Keywords,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		if closingDate != nil {
			t.ClosingDate = *closingDate
		}
		t.Status = models.TenderStatus(status)
		t.Format = models.DocumentFormat(format)
		tenders = append(tenders, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if tenders == nil {
		tenders = []models.Tender{}
	}

	return &ListResult{
		Tenders: tenders,
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
	}, nil
}

// GetBySourceURL fetches one tender by its natural key.
func (s *Store) GetBySourceURL(ctx context.Context, sourceURL string) (*models.Tender, error) {
	sql := fmt.Sprintf("SELECT %s FROM tenders WHERE source_url = $1", selectCols)
	row := s.pool.QueryRow(ctx, sql, strings.TrimSpace(sourceURL))

	var t models.Tender
	var closingDate *time.Time
	var status, format string

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &closingDate, &t.SourceURL, &status,
		&format, &t.ScrapedAt, &t.TenderType, &t.Location, &t.Keywords,
	)
	if err != nil {
		return nil, fmt.Errorf("not found: %w", err)
	}

	if closingDate != nil {
		t.ClosingDate = *closingDate
	}
	t.Status = models.TenderStatus(status)
	t.Format = models.DocumentFormat(format)
	return &t, nil
}

// nilIfEmpty returns nil for empty strings so NULL is stored in DB.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nilIfZeroTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
