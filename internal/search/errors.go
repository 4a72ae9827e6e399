package search

import (
	"errors"
	"fmt"
)

// ErrUnsupportedEngine is returned by the query builder for an engine id
// that has no registry entry. The caller skips that engine and continues.
var ErrUnsupportedEngine = errors.New("unsupported engine")

// HarvestError wraps any failure while harvesting one engine's results.
// It aborts that engine only, never the whole task.
type HarvestError struct {
	Engine string
	Cause  error
}

func (e *HarvestError) Error() string {
	return fmt.Sprintf("harvest failed for engine %s: %v", e.Engine, e.Cause)
}

func (e *HarvestError) Unwrap() error { return e.Cause }

// RejectReason classifies why a candidate link was dropped.
type RejectReason string

const (
	RejectInvalidURL     RejectReason = "invalid_url"
	RejectExcludedDomain RejectReason = "excluded_domain"
	RejectDuplicate      RejectReason = "duplicate"
	RejectDecodeFailed   RejectReason = "decode_failed"
)

// LinkRejected reports a single skipped link.
type LinkRejected struct {
	Href   string
	Reason RejectReason
}

func (e *LinkRejected) Error() string {
	return fmt.Sprintf("link rejected (%s): %s", e.Reason, e.Href)
}
