package review

import "errors"

// Error taxonomy for the review protocol.  Sentinel variables allow callers
// to classify failures with errors.Is instead of string comparisons; the
// HTTP layer maps them onto response codes.

var (
	// ErrNotFound is returned when no review exists for the task.
	ErrNotFound = errors.New("review: not found")

	// ErrInvalidState indicates the requested action is illegal for the
	// record's current status (e.g. feedback after approval).
	ErrInvalidState = errors.New("review: invalid state")

	// ErrVersionConflict indicates a stale optimistic-concurrency
	// precondition; the caller must re-read before retrying.
	ErrVersionConflict = errors.New("review: version conflict")

	// ErrWorkflowUnavailable indicates the owning workflow instance is not
	// running and cannot receive signals.  Retryable.
	ErrWorkflowUnavailable = errors.New("review: workflow unavailable")

	// ErrTimeout indicates the next plan revision did not arrive within the
	// wait bound.  Retryable; the eventual update is not lost.
	ErrTimeout = errors.New("review: timeout awaiting plan")
)
