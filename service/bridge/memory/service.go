package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/viant/steer/internal/clock"
	"github.com/viant/steer/internal/idgen"
	"github.com/viant/steer/model/review"
	"github.com/viant/steer/service/bridge"
	"github.com/viant/steer/service/messaging"
	qmem "github.com/viant/steer/service/messaging/memory"
	"github.com/viant/steer/service/store"
)

type service struct {
	store   store.Service
	signals messaging.Queue[bridge.Signal]

	mu      sync.Mutex
	running map[string]bool
	// waiters are resolved by PublishPlan; each channel receives exactly one
	// snapshot and is then discarded
	waiters map[string][]chan *review.Record
}

// New creates an in-process signal bridge bound to the supplied review state
// store.
func New(reviewStore store.Service, options ...Option) bridge.Service {
	ret := &service{
		store:   reviewStore,
		signals: qmem.NewQueue[bridge.Signal](qmem.DefaultConfig()),
		running: map[string]bool{},
		waiters: map[string][]chan *review.Record{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) SignalFeedback(ctx context.Context, taskID, message string) error {
	return s.signal(ctx, taskID, bridge.SignalFeedback, message)
}

func (s *service) SignalApproval(ctx context.Context, taskID string) error {
	return s.signal(ctx, taskID, bridge.SignalApproval, "")
}

func (s *service) signal(ctx context.Context, taskID string, signalType bridge.SignalType, message string) error {
	s.mu.Lock()
	running := s.running[taskID]
	s.mu.Unlock()
	if !running {
		return fmt.Errorf("%w: task %v", review.ErrWorkflowUnavailable, taskID)
	}
	signal := bridge.Signal{
		ID:        idgen.New(),
		TaskID:    taskID,
		Type:      signalType,
		Message:   message,
		CreatedAt: clock.Now(),
	}
	return s.signals.Publish(ctx, &signal)
}

func (s *service) AwaitNextPublish(ctx context.Context, taskID string, sinceVersion uint64, timeout time.Duration) (*review.Record, error) {
	// Register the waiter before checking the store so that a publish
	// landing in between cannot be missed.
	waiter := make(chan *review.Record, 1)
	s.mu.Lock()
	s.waiters[taskID] = append(s.waiters[taskID], waiter)
	s.mu.Unlock()
	defer s.removeWaiter(taskID, waiter)

	record, err := s.store.Get(ctx, taskID)
	if err != nil && !errors.Is(err, review.ErrNotFound) {
		return nil, err
	}
	if record != nil && record.Version > sinceVersion {
		return record, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case record = <-waiter:
		return record, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: task %v after %s", review.ErrTimeout, taskID, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *service) removeWaiter(taskID string, waiter chan *review.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiters := s.waiters[taskID]
	for i, candidate := range waiters {
		if candidate == waiter {
			s.waiters[taskID] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(s.waiters[taskID]) == 0 {
		delete(s.waiters, taskID)
	}
}

func (s *service) PublishPlan(ctx context.Context, taskID, plan string, intent review.Intent, feedback string) (*review.Record, error) {
	record, err := s.store.Publish(ctx, taskID, plan, intent, feedback)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	waiters := s.waiters[taskID]
	delete(s.waiters, taskID)
	s.mu.Unlock()
	for _, waiter := range waiters {
		waiter <- record.Clone()
	}
	return record, nil
}

func (s *service) Register(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[taskID] = true
}

func (s *service) Unregister(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, taskID)
}

func (s *service) Signals() messaging.Queue[bridge.Signal] { return s.signals }

var _ bridge.Service = (*service)(nil)
