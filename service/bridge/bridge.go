package bridge

import (
	"context"
	"time"

	"github.com/viant/steer/model/review"
	"github.com/viant/steer/service/messaging"
)

// SignalType names the logical signals a workflow instance understands.
type SignalType string

const (
	SignalFeedback SignalType = "review_feedback"
	SignalApproval SignalType = "review_approve"
)

// Signal is the wire payload delivered to the workflow engine.
type Signal struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"taskId"`
	Type      SignalType `json:"type"`
	Message   string     `json:"message,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Service is the two-way contract between the review surface and the
// workflow engine.
type Service interface {
	// SignalFeedback delivers a feedback message to the owning workflow
	// instance.  Fails with review.ErrWorkflowUnavailable when the instance
	// is not running.
	SignalFeedback(ctx context.Context, taskID, message string) error

	// SignalApproval delivers the approval signal; it returns as soon as the
	// engine acknowledges receipt and never waits for execution.
	SignalApproval(ctx context.Context, taskID string) error

	// AwaitNextPublish blocks until the workflow publishes a plan revision
	// with version greater than sinceVersion, the timeout elapses
	// (review.ErrTimeout) or ctx is cancelled.  A revision that already
	// landed resolves immediately.
	AwaitNextPublish(ctx context.Context, taskID string, sinceVersion uint64, timeout time.Duration) (*review.Record, error)

	// PublishPlan is the callback entry point the engine invokes whenever it
	// produces a plan revision; it updates the store and resolves pending
	// waiters.  feedback attributes the revision to the human message that
	// triggered it (empty for the initial plan).
	PublishPlan(ctx context.Context, taskID, plan string, intent review.Intent, feedback string) (*review.Record, error)

	// Register marks a workflow instance as running and able to receive
	// signals; Unregister flips it back (terminal or cancelled).
	Register(taskID string)
	Unregister(taskID string)

	// Signals exposes the queue the engine consumes signals from.
	Signals() messaging.Queue[Signal]
}
