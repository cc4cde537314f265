package engine

import (
	"time"
)

// TaskState tracks a task through its lifecycle.
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateReviewing TaskState = "reviewing"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCancelled:
		return true
	}
	return false
}

// Task represents one long-running autonomous job subject to plan review.
type Task struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind,omitempty"`
	Prompt     string     `json:"prompt"`
	State      TaskState  `json:"state"`
	Feedback   []string   `json:"feedback,omitempty"`
	Output     string     `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Clone returns a deep copy so that callers can inspect a task without
// racing the engine's workers.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	ret := *t
	ret.Feedback = append([]string(nil), t.Feedback...)
	if t.FinishedAt != nil {
		finished := *t.FinishedAt
		ret.FinishedAt = &finished
	}
	return &ret
}

// Transition captures a task state change published on the event hub.
type Transition struct {
	TaskID string    `json:"taskId"`
	From   TaskState `json:"from"`
	To     TaskState `json:"to"`
	At     time.Time `json:"at"`
}
