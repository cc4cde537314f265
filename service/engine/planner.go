package engine

import (
	"context"

	"github.com/viant/steer/model/review"
)

// Planner produces plan text for a task.  The implementation is opaque to
// this module - typically an LLM call that folds the accumulated feedback
// transcript into a revised plan and classifies its intent.
type Planner interface {
	Plan(ctx context.Context, task *Task, feedback []string) (message string, intent review.Intent, err error)
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(ctx context.Context, task *Task, feedback []string) (string, review.Intent, error)

func (f PlannerFunc) Plan(ctx context.Context, task *Task, feedback []string) (string, review.Intent, error) {
	return f(ctx, task, feedback)
}

// Executor carries out an approved task.
type Executor interface {
	Execute(ctx context.Context, task *Task) (output string, err error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task *Task) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, task *Task) (string, error) {
	return f(ctx, task)
}

// NopExecutor completes every task without doing any work.
var NopExecutor = ExecutorFunc(func(_ context.Context, _ *Task) (string, error) {
	return "", nil
})
