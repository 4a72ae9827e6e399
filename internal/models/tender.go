package models

import (
	"time"

	"github.com/google/uuid"
)

// TenderStatus is the persisted open/closed state of a tender. It is always
// recomputed from the closing date at write time, never trusted from a
// previous row.
type TenderStatus string

const (
	TenderOpen   TenderStatus = "open"
	TenderClosed TenderStatus = "closed"
)

// DocumentFormat identifies the source document type a tender was extracted from.
type DocumentFormat string

const (
	FormatHTML DocumentFormat = "HTML"
	FormatPDF  DocumentFormat = "PDF"
	FormatDOC  DocumentFormat = "DOC"
)

// Tender is a discovered procurement opportunity. SourceURL is the natural
// key: at most one persisted row per URL.
type Tender struct {
	ID          uuid.UUID      `json:"id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	ClosingDate time.Time      `json:"closing_date"`
	SourceURL   string         `json:"source_url"`
	Status      TenderStatus   `json:"status"`
	Format      DocumentFormat `json:"format"`
	ScrapedAt   time.Time      `json:"scraped_at"`
	TenderType  string         `json:"tender_type"`
	Location    string         `json:"location"`
	Keywords    []string       `json:"keywords,omitempty"`
}

// ComputeStatus derives the open/closed status from the closing date.
func ComputeStatus(closingDate, now time.Time) TenderStatus {
	if closingDate.After(now) {
		return TenderOpen
	}
	return TenderClosed
}

// TaskStatus is the lifecycle state of one discovery task.
type TaskStatus string

const (
	TaskIdle     TaskStatus = "idle"
	TaskRunning  TaskStatus = "running"
	TaskComplete TaskStatus = "complete"
	TaskError    TaskStatus = "error"
	TaskCanceled TaskStatus = "canceled"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskComplete || s == TaskError || s == TaskCanceled
}

// TaskSummary aggregates the outcome counters of a task.
type TaskSummary struct {
	OpenCount   int `json:"open_count"`
	ClosedCount int `json:"closed_count"`
	TotalCount  int `json:"total_count"`
}

// SearchTask is the serializable state of one discovery run. It is mutated
// only by the controller that owns it and persisted as an opaque blob in the
// task state store.
type SearchTask struct {
	TaskID      string      `json:"task_id"`
	QueryTerms  []string    `json:"query_terms"`
	Engines     []string    `json:"engines"`
	Status      TaskStatus  `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	VisitedURLs []string    `json:"visited_urls"`
	TotalURLs   int         `json:"total_urls"`
	Results     []Tender    `json:"results"`
	Summary     TaskSummary `json:"summary"`
	Message     string      `json:"message,omitempty"`
}

// KeywordSet is a read-only snapshot of the configured keyword lists,
// fetched once per task.
type KeywordSet struct {
	ClosingKeywords  []string `json:"closing_keywords"`
	RelevantKeywords []string `json:"relevant_keywords"`
}
