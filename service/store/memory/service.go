package memory

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/viant/steer/internal/clock"
	"github.com/viant/steer/model/review"
	"github.com/viant/steer/service/dao"
	dstore "github.com/viant/steer/service/dao/store"
	"github.com/viant/steer/service/messaging"
	qmem "github.com/viant/steer/service/messaging/memory"
	"github.com/viant/steer/service/store"
)

type service struct {
	records dao.Service[string, review.Record]
	events  messaging.Queue[store.Event]

	// per-task mutexes enforce the single-writer-per-key invariant without
	// serializing unrelated tasks behind one global lock
	keysMu sync.Mutex
	keys   map[string]*sync.Mutex
}

func recordKey(r *review.Record) string { return r.TaskID }

// New creates an in-memory review state store.  Options may swap the backing
// DAO (e.g. for an afs-persisted one) or the event queue.
func New(options ...Option) store.Service {
	ret := &service{
		records: dstore.NewMemoryStore[string, review.Record](recordKey),
		events:  qmem.NewQueue[store.Event](qmem.DefaultConfig()),
		keys:    map[string]*sync.Mutex{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) lockKey(taskID string) *sync.Mutex {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	mux, ok := s.keys[taskID]
	if !ok {
		mux = &sync.Mutex{}
		s.keys[taskID] = mux
	}
	return mux
}

// publishEvent fans out a lifecycle event.  It runs after the key lock is
// released and must never suspend a mutation: when the buffer is full the
// event is dropped and logged.
func (s *service) publishEvent(ctx context.Context, event *store.Event) {
	if queue, ok := s.events.(interface {
		TryPublish(ctx context.Context, event *store.Event) bool
	}); ok {
		if !queue.TryPublish(ctx, event) {
			log.Printf("steer/store: dropped %v event for task %v: queue full", event.Topic, event.Record.TaskID)
		}
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("steer/store: failed to publish %v event for task %v: %v", event.Topic, event.Record.TaskID, err)
	}
}

func (s *service) Publish(ctx context.Context, taskID, plan string, intent review.Intent, feedback string) (*review.Record, error) {
	if taskID == "" {
		return nil, dao.ErrInvalidID
	}
	snapshot, topic, err := s.applyPublish(ctx, taskID, plan, intent, feedback)
	if err != nil || topic == "" {
		return snapshot, err
	}
	s.publishEvent(ctx, &store.Event{Topic: topic, Record: snapshot})
	return snapshot, nil
}

func (s *service) applyPublish(ctx context.Context, taskID, plan string, intent review.Intent, feedback string) (*review.Record, string, error) {
	mux := s.lockKey(taskID)
	mux.Lock()
	defer mux.Unlock()

	record, err := s.records.Load(ctx, taskID)
	if err != nil {
		return nil, "", err
	}
	now := clock.Now()
	topic := store.TopicPlanPublished
	switch {
	case record == nil:
		record = &review.Record{
			TaskID:        taskID,
			Status:        review.StatusReviewing,
			Version:       1,
			Round:         0,
			CurrentPlan:   plan,
			CurrentIntent: intent,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	case record.Status == review.StatusApproved:
		// Protocol violation on the workflow side; never corrupt a terminal
		// record.
		log.Printf("steer/store: ignored publish for approved task %v", taskID)
		return record.Clone(), "", nil
	default:
		versionBefore := record.Version
		record.Version++
		record.Round++
		record.Rounds = append(record.Rounds, &review.Round{
			Number:        record.Round,
			Message:       feedback,
			VersionBefore: versionBefore,
			VersionAfter:  record.Version,
			Timestamp:     now,
		})
		record.CurrentPlan = plan
		record.CurrentIntent = intent
		record.Pending = false
		record.UpdatedAt = now
		topic = store.TopicFeedbackReceived
	}
	if err = s.records.Save(ctx, record); err != nil {
		return nil, "", err
	}
	return record.Clone(), topic, nil
}

func (s *service) Get(ctx context.Context, taskID string) (*review.Record, error) {
	if taskID == "" {
		return nil, dao.ErrInvalidID
	}
	mux := s.lockKey(taskID)
	mux.Lock()
	defer mux.Unlock()

	record, err := s.records.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, review.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *service) ApplyFeedback(ctx context.Context, taskID, message string, expectedVersion uint64) error {
	if message == "" {
		return fmt.Errorf("%w: empty feedback message", review.ErrInvalidState)
	}
	mux := s.lockKey(taskID)
	mux.Lock()
	defer mux.Unlock()

	record, err := s.records.Load(ctx, taskID)
	if err != nil {
		return err
	}
	if record == nil {
		return review.ErrNotFound
	}
	if record.Status != review.StatusReviewing {
		return fmt.Errorf("%w: feedback on %v record", review.ErrInvalidState, record.Status)
	}
	if record.Version != expectedVersion {
		return fmt.Errorf("%w: expected %d, current %d", review.ErrVersionConflict, expectedVersion, record.Version)
	}
	if record.Pending {
		// The version bump is deferred to the workflow's publish callback, so
		// a second feedback carrying the same version would double-apply
		// without this guard.
		return fmt.Errorf("%w: feedback already in flight for version %d", review.ErrVersionConflict, record.Version)
	}
	record.Pending = true
	record.UpdatedAt = clock.Now()
	return s.records.Save(ctx, record)
}

func (s *service) ClearPending(ctx context.Context, taskID string) error {
	mux := s.lockKey(taskID)
	mux.Lock()
	defer mux.Unlock()

	record, err := s.records.Load(ctx, taskID)
	if err != nil || record == nil {
		return err
	}
	if !record.Pending {
		return nil
	}
	record.Pending = false
	record.UpdatedAt = clock.Now()
	return s.records.Save(ctx, record)
}

func (s *service) ApplyApproval(ctx context.Context, taskID string, expectedVersion uint64) (*review.Record, error) {
	snapshot, approved, err := s.applyApproval(ctx, taskID, expectedVersion)
	if err != nil || !approved {
		return snapshot, err
	}
	s.publishEvent(ctx, &store.Event{Topic: store.TopicReviewApproved, Record: snapshot})
	return snapshot, nil
}

func (s *service) applyApproval(ctx context.Context, taskID string, expectedVersion uint64) (*review.Record, bool, error) {
	mux := s.lockKey(taskID)
	mux.Lock()
	defer mux.Unlock()

	record, err := s.records.Load(ctx, taskID)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, review.ErrNotFound
	}
	if record.Version != expectedVersion {
		return nil, false, fmt.Errorf("%w: expected %d, current %d", review.ErrVersionConflict, expectedVersion, record.Version)
	}
	if record.Status == review.StatusApproved {
		// Idempotent replay with the frozen version.
		return record.Clone(), false, nil
	}
	if record.Status != review.StatusReviewing {
		return nil, false, fmt.Errorf("%w: approval on %v record", review.ErrInvalidState, record.Status)
	}
	record.Status = review.StatusApproved
	record.Pending = false
	record.UpdatedAt = clock.Now()
	if err = s.records.Save(ctx, record); err != nil {
		return nil, false, err
	}
	return record.Clone(), true, nil
}

func (s *service) List(ctx context.Context, status ...review.Status) ([]*review.Record, error) {
	var parameters []*dao.Parameter
	if len(status) > 0 {
		values := make([]string, 0, len(status))
		for _, candidate := range status {
			values = append(values, string(candidate))
		}
		parameters = append(parameters, dao.NewParameter("Status", values...))
	}
	records, err := s.records.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	out := make([]*review.Record, 0, len(records))
	for _, record := range records {
		// The DAO hands back live pointers; clone under the key lock so a
		// concurrent Publish cannot mutate mid-copy.
		mux := s.lockKey(record.TaskID)
		mux.Lock()
		if len(status) == 0 || matchesStatus(record.Status, status) {
			out = append(out, record.Clone())
		}
		mux.Unlock()
	}
	return out, nil
}

func matchesStatus(actual review.Status, status []review.Status) bool {
	for _, candidate := range status {
		if actual == candidate {
			return true
		}
	}
	return false
}

func (s *service) Archive(ctx context.Context, taskID string) error {
	snapshot, err := s.applyArchive(ctx, taskID)
	if err != nil || snapshot == nil {
		return err
	}
	s.publishEvent(ctx, &store.Event{Topic: store.TopicReviewArchived, Record: snapshot})
	return nil
}

func (s *service) applyArchive(ctx context.Context, taskID string) (*review.Record, error) {
	mux := s.lockKey(taskID)
	mux.Lock()
	defer mux.Unlock()

	record, err := s.records.Load(ctx, taskID)
	if err != nil || record == nil {
		return nil, err
	}
	if err = s.records.Delete(ctx, taskID); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

func (s *service) Queue() messaging.Queue[store.Event] { return s.events }

var _ store.Service = (*service)(nil)
