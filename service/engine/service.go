package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/viant/steer/internal/clock"
	"github.com/viant/steer/internal/idgen"
	"github.com/viant/steer/model/review"
	"github.com/viant/steer/policy"
	"github.com/viant/steer/progress"
	"github.com/viant/steer/service/bridge"
	"github.com/viant/steer/service/dao"
	"github.com/viant/steer/service/event"
	"github.com/viant/steer/service/store"
	"github.com/viant/steer/tracing"
)

// Config represents engine configuration.
type Config struct {
	// WorkerCount is the number of workers consuming review signals
	WorkerCount int

	// IdleDelay is the back-off applied when a polling queue vendor has no
	// pending message
	IdleDelay time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		WorkerCount: 5,
		IdleDelay:   50 * time.Millisecond,
	}
}

// Service runs submitted tasks through the plan review checkpoint.
type Service struct {
	config   Config
	tasks    dao.Service[string, Task]
	reviews  store.Service
	bridge   bridge.Service
	planner  Planner
	executor Executor
	progress *progress.Progress
	events   *event.Service

	// archiveOnDone retires the review record when the owning task reaches a
	// terminal state
	archiveOnDone bool

	// per-task mutexes serialize signal handling, cancellation and planning
	// for one task while unrelated tasks proceed in parallel
	keysMu sync.Mutex
	keys   map[string]*sync.Mutex

	workers    []*worker
	workerWg   sync.WaitGroup
	shutdownCh chan struct{}
}

func (s *Service) lockTask(taskID string) *sync.Mutex {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	mux, ok := s.keys[taskID]
	if !ok {
		mux = &sync.Mutex{}
		s.keys[taskID] = mux
	}
	return mux
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a new engine service.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		executor:   NopExecutor,
		keys:       map[string]*sync.Mutex{},
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	if s.bridge == nil {
		return nil, fmt.Errorf("signal bridge is required")
	}
	if s.reviews == nil {
		return nil, fmt.Errorf("review store is required")
	}
	if s.tasks == nil {
		return nil, fmt.Errorf("task DAO is required")
	}
	return s, nil
}

// Submit registers a task and, unless policy exempts or blocks it, starts the
// review checkpoint.  The first plan is produced asynchronously; clients poll
// the review endpoint until it lands.
func (s *Service) Submit(ctx context.Context, task *Task) error {
	if task == nil {
		return dao.ErrNilEntity
	}
	if task.ID == "" {
		task.ID = idgen.New()
	}
	now := clock.Now()
	task.State = TaskStatePending
	task.CreatedAt = now
	task.UpdatedAt = now
	if err := s.tasks.Save(ctx, task); err != nil {
		return err
	}
	s.progress.Update(progress.Delta{Submitted: 1})

	switch policy.FromContext(ctx).ModeFor(task.Kind) {
	case policy.ModeDeny:
		return s.fail(context.Background(), task, "review policy blocks this task")
	case policy.ModeAuto:
		s.bridge.Register(task.ID)
		go s.runUnattended(task)
	default:
		s.bridge.Register(task.ID)
		go s.beginReview(task)
	}
	return nil
}

// beginReview produces the first plan and parks the task at the checkpoint.
// Runs detached from the submission context: the review outlives the
// submitting request.
func (s *Service) beginReview(task *Task) {
	ctx, span := tracing.StartSpan(context.Background(), "engine.beginReview", "INTERNAL")
	span.WithAttributes(map[string]string{"task.id": task.ID})
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	mux := s.lockTask(task.ID)
	mux.Lock()
	defer mux.Unlock()

	var message string
	var intent review.Intent
	if message, intent, err = s.planner.Plan(ctx, task, nil); err != nil {
		_ = s.fail(ctx, task, fmt.Sprintf("planning failed: %v", err))
		return
	}
	if _, err = s.bridge.PublishPlan(ctx, task.ID, message, intent, ""); err != nil {
		_ = s.fail(ctx, task, fmt.Sprintf("plan publish failed: %v", err))
		return
	}
	s.transition(ctx, task, TaskStateReviewing)
	s.progress.Update(progress.Delta{Reviewing: 1})
}

// runUnattended skips the human checkpoint entirely (auto policy).
func (s *Service) runUnattended(task *Task) {
	ctx := context.Background()
	mux := s.lockTask(task.ID)
	mux.Lock()
	defer mux.Unlock()
	if _, _, err := s.planner.Plan(ctx, task, nil); err != nil {
		_ = s.fail(ctx, task, fmt.Sprintf("planning failed: %v", err))
		return
	}
	s.execute(ctx, task)
}

// Start begins consuming review signals.
func (s *Service) Start(ctx context.Context) error {
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{id: i, service: s, ctx: workerCtx, cancelFn: cancel}
		s.workers = append(s.workers, w)
		s.workerWg.Add(1)
		go w.run()
	}
	return nil
}

// Shutdown stops all workers and waits for in-flight signals to finish.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
	for _, w := range s.workers {
		w.cancelFn()
	}
	s.workerWg.Wait()
}

func (w *worker) run() {
	defer w.service.workerWg.Done()
	queue := w.service.bridge.Signals()
	for {
		select {
		case <-w.service.shutdownCh:
			return
		default:
		}
		msg, err := queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			// Polling vendor with no pending message.
			time.Sleep(w.service.config.IdleDelay)
			continue
		}
		signal := msg.T()
		if err = w.service.handleSignal(w.ctx, signal); err != nil {
			log.Printf("steer/engine: worker %d failed to handle %v signal for task %v: %v", w.id, signal.Type, signal.TaskID, err)
			_ = msg.Nack(err)
			continue
		}
		_ = msg.Ack()
	}
}

func (s *Service) handleSignal(ctx context.Context, signal *bridge.Signal) error {
	ctx, span := tracing.StartSpan(ctx, "engine.handleSignal", "CONSUMER")
	span.WithAttributes(map[string]string{"task.id": signal.TaskID, "signal.type": string(signal.Type)})
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	mux := s.lockTask(signal.TaskID)
	mux.Lock()
	defer mux.Unlock()

	var task *Task
	if task, err = s.tasks.Load(ctx, signal.TaskID); err != nil {
		return err
	}
	if task == nil {
		// Signal for an unknown task; drop rather than retry forever.
		log.Printf("steer/engine: dropping %v signal for unknown task %v", signal.Type, signal.TaskID)
		return nil
	}
	if task.State.IsTerminal() {
		log.Printf("steer/engine: dropping %v signal for terminal task %v", signal.Type, signal.TaskID)
		return nil
	}
	switch signal.Type {
	case bridge.SignalFeedback:
		err = s.handleFeedback(ctx, task, signal.Message)
	case bridge.SignalApproval:
		err = s.handleApproval(ctx, task)
	default:
		log.Printf("steer/engine: dropping unsupported signal %v for task %v", signal.Type, signal.TaskID)
	}
	return err
}

// handleFeedback recomputes the plan with the accumulated transcript and
// publishes the revision; the bridge resolves the waiting HTTP caller.
func (s *Service) handleFeedback(ctx context.Context, task *Task, message string) error {
	task.Feedback = append(task.Feedback, message)
	task.UpdatedAt = clock.Now()
	if err := s.tasks.Save(ctx, task); err != nil {
		return err
	}
	plan, intent, err := s.planner.Plan(ctx, task, task.Feedback)
	if err != nil {
		return fmt.Errorf("planning failed for task %v: %w", task.ID, err)
	}
	if _, err = s.bridge.PublishPlan(ctx, task.ID, plan, intent, message); err != nil {
		return err
	}
	s.progress.Update(progress.Delta{Rounds: 1})
	return nil
}

// handleApproval resumes execution; it never blocks the approving caller
// because approval signals are consumed asynchronously.
func (s *Service) handleApproval(ctx context.Context, task *Task) error {
	s.progress.Update(progress.Delta{Reviewing: -1, Approved: 1})
	s.execute(ctx, task)
	return nil
}

func (s *Service) execute(ctx context.Context, task *Task) {
	s.transition(ctx, task, TaskStateRunning)
	s.progress.Update(progress.Delta{Running: 1})

	output, err := s.executor.Execute(ctx, task)
	s.progress.Update(progress.Delta{Running: -1})
	if err != nil {
		_ = s.fail(ctx, task, err.Error())
		return
	}
	task.Output = output
	s.finish(ctx, task, TaskStateCompleted)
	s.progress.Update(progress.Delta{Completed: 1})
}

func (s *Service) fail(ctx context.Context, task *Task, reason string) error {
	task.Error = reason
	s.finish(ctx, task, TaskStateFailed)
	s.progress.Update(progress.Delta{Failed: 1})
	return nil
}

// Cancel marks a task cancelled; subsequent signals for it fail with
// workflow-unavailable.
func (s *Service) Cancel(ctx context.Context, taskID string) error {
	mux := s.lockTask(taskID)
	mux.Lock()
	defer mux.Unlock()

	task, err := s.tasks.Load(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return dao.ErrNotFound
	}
	if task.State.IsTerminal() {
		return nil
	}
	s.finish(ctx, task, TaskStateCancelled)
	s.progress.Update(progress.Delta{Cancelled: 1})
	return nil
}

// Task returns a snapshot of a task by id.  The copy is taken under the
// per-task lock so that pollers never observe a worker's half-applied write.
func (s *Service) Task(ctx context.Context, taskID string) (*Task, error) {
	mux := s.lockTask(taskID)
	mux.Lock()
	defer mux.Unlock()

	task, err := s.tasks.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, dao.ErrNotFound
	}
	return task.Clone(), nil
}

func (s *Service) finish(ctx context.Context, task *Task, state TaskState) {
	s.transition(ctx, task, state)
	now := clock.Now()
	task.FinishedAt = &now
	_ = s.tasks.Save(ctx, task)
	s.bridge.Unregister(task.ID)
	if s.archiveOnDone {
		if err := s.reviews.Archive(ctx, task.ID); err != nil {
			log.Printf("steer/engine: failed to archive review for task %v: %v", task.ID, err)
		}
	}
}

func (s *Service) transition(ctx context.Context, task *Task, state TaskState) {
	from := task.State
	task.State = state
	task.UpdatedAt = clock.Now()
	_ = s.tasks.Save(ctx, task)
	if s.events == nil {
		return
	}
	publisher, err := event.PublisherOf[Transition](s.events)
	if err != nil {
		return
	}
	_ = publisher.Publish(ctx, event.NewEvent(
		&event.Context{TaskID: task.ID, EventType: "task.transitioned", Source: "engine"},
		Transition{TaskID: task.ID, From: from, To: state, At: task.UpdatedAt},
	))
}
