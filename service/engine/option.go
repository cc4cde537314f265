package engine

import (
	"github.com/viant/steer/progress"
	"github.com/viant/steer/service/bridge"
	"github.com/viant/steer/service/dao"
	"github.com/viant/steer/service/event"
	"github.com/viant/steer/service/store"
)

type Option func(*Service)

// WithConfig replaces the default engine configuration.
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithWorkers sets the signal worker count.
func WithWorkers(count int) Option {
	return func(s *Service) { s.config.WorkerCount = count }
}

// WithPlanner sets the plan producer.
func WithPlanner(planner Planner) Option {
	return func(s *Service) { s.planner = planner }
}

// WithExecutor sets the post-approval executor.
func WithExecutor(executor Executor) Option {
	return func(s *Service) { s.executor = executor }
}

// WithBridge sets the signal bridge.
func WithBridge(signalBridge bridge.Service) Option {
	return func(s *Service) { s.bridge = signalBridge }
}

// WithReviewStore sets the review state store used for archival.
func WithReviewStore(reviews store.Service) Option {
	return func(s *Service) { s.reviews = reviews }
}

// WithTaskDAO sets the task persistence backend.
func WithTaskDAO(tasks dao.Service[string, Task]) Option {
	return func(s *Service) { s.tasks = tasks }
}

// WithProgress attaches a progress tracker.
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) { s.progress = tracker }
}

// WithEvents attaches the event hub; the engine publishes task transitions
// on it.
func WithEvents(events *event.Service) Option {
	return func(s *Service) { s.events = events }
}

// WithArchiveOnCompletion retires the review record when the owning task
// reaches a terminal state.  Off by default - retention is normally the
// host's concern.
func WithArchiveOnCompletion(archive bool) Option {
	return func(s *Service) { s.archiveOnDone = archive }
}
