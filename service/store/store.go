package store

import (
	"context"

	"github.com/viant/steer/model/review"
	"github.com/viant/steer/service/messaging"
)

// Event envelope published on every successful review state change.
type Event struct {
	Topic   string            `json:"topic"`
	Record  *review.Record    `json:"record"`
	Headers map[string]string `json:"headers,omitempty"` // optional - user, correlation-id etc.
}

// Standard event topics.
const (
	TopicPlanPublished    = "plan.published"
	TopicFeedbackReceived = "feedback.received"
	TopicReviewApproved   = "review.approved"
	TopicReviewArchived   = "review.archived"
)

// Service defines the review state store contract.  All mutations for a
// given task id are serialized; independent tasks proceed in parallel.
type Service interface {
	// Publish records a new plan revision.  The first publish creates the
	// record with version 1, round 0 and status reviewing; subsequent
	// publishes bump the version by exactly one and append a feedback round
	// attributed to the supplied feedback message.  Publishing against an
	// approved record logs and no-ops.
	Publish(ctx context.Context, taskID, plan string, intent review.Intent, feedback string) (*review.Record, error)

	// Get returns a snapshot of the record or review.ErrNotFound.
	Get(ctx context.Context, taskID string) (*review.Record, error)

	// ApplyFeedback validates the optimistic-concurrency precondition and
	// marks the record as awaiting the next revision.  The version bump
	// happens when the workflow's callback invokes Publish.  While a
	// revision is in flight further feedback fails with
	// review.ErrVersionConflict even though the version still matches.
	ApplyFeedback(ctx context.Context, taskID, message string, expectedVersion uint64) error

	// ClearPending releases the feedback-in-flight guard; the protocol layer
	// calls it when signal delivery fails after ApplyFeedback succeeded so
	// that the record does not stay wedged.
	ClearPending(ctx context.Context, taskID string) error

	// ApplyApproval transitions the record to its terminal approved status.
	// The version freezes at the last published value.  Re-approving an
	// already approved record with the frozen version is idempotent.
	ApplyApproval(ctx context.Context, taskID string, expectedVersion uint64) (*review.Record, error)

	// List returns snapshots of all records, optionally narrowed by status.
	List(ctx context.Context, status ...review.Status) ([]*review.Record, error)

	// Archive retires the record once the owning task is terminal.
	// Archiving an absent record is a no-op.
	Archive(ctx context.Context, taskID string) error

	// Queue exposes the lifecycle event fan-out.
	Queue() messaging.Queue[Event]
}
