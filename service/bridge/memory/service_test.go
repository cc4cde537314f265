package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/viant/steer/model/review"
	"github.com/viant/steer/service/bridge"
	smemory "github.com/viant/steer/service/store/memory"
)

func TestSignalDelivery(t *testing.T) {
	ctx := context.Background()
	reviews := smemory.New()
	svc := New(reviews)

	// Signals for unregistered tasks are rejected outright
	err := svc.SignalFeedback(ctx, "t1", "please revise")
	assert.ErrorIs(t, err, review.ErrWorkflowUnavailable)
	err = svc.SignalApproval(ctx, "t1")
	assert.ErrorIs(t, err, review.ErrWorkflowUnavailable)

	svc.Register("t1")
	assert.NoError(t, svc.SignalFeedback(ctx, "t1", "please revise"))
	assert.NoError(t, svc.SignalApproval(ctx, "t1"))

	msg, err := svc.Signals().Consume(ctx)
	assert.NoError(t, err)
	signal := msg.T()
	assert.EqualValues(t, bridge.SignalFeedback, signal.Type)
	assert.EqualValues(t, "t1", signal.TaskID)
	assert.EqualValues(t, "please revise", signal.Message)
	assert.NotEmpty(t, signal.ID)
	_ = msg.Ack()

	msg, err = svc.Signals().Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, bridge.SignalApproval, msg.T().Type)
	_ = msg.Ack()

	// Unregister closes the window again
	svc.Unregister("t1")
	err = svc.SignalFeedback(ctx, "t1", "too late")
	assert.ErrorIs(t, err, review.ErrWorkflowUnavailable)
}

func TestAwaitNextPublish(t *testing.T) {
	ctx := context.Background()
	reviews := smemory.New()
	svc := New(reviews)

	_, err := svc.PublishPlan(ctx, "t1", "initial plan", review.IntentFeedback, "")
	assert.NoError(t, err)

	// Publish arriving while the caller waits resolves the rendezvous
	done := make(chan *review.Record, 1)
	go func() {
		record, waitErr := svc.AwaitNextPublish(ctx, "t1", 1, time.Second)
		assert.NoError(t, waitErr)
		done <- record
	}()

	time.Sleep(20 * time.Millisecond)
	_, err = svc.PublishPlan(ctx, "t1", "revised plan", review.IntentReady, "tighter scope")
	assert.NoError(t, err)

	select {
	case record := <-done:
		assert.EqualValues(t, 2, record.Version)
		assert.EqualValues(t, "revised plan", record.CurrentPlan)
	case <-time.After(time.Second):
		assert.Fail(t, "await did not resolve")
	}
}

func TestAwaitNextPublishImmediate(t *testing.T) {
	ctx := context.Background()
	reviews := smemory.New()
	svc := New(reviews)

	_, _ = svc.PublishPlan(ctx, "t1", "plan", review.IntentFeedback, "")
	_, _ = svc.PublishPlan(ctx, "t1", "plan v2", review.IntentFeedback, "fb")

	// A publish that already happened satisfies the wait without blocking
	started := time.Now()
	record, err := svc.AwaitNextPublish(ctx, "t1", 1, time.Second)
	assert.NoError(t, err)
	assert.EqualValues(t, 2, record.Version)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
}

func TestAwaitNextPublishTimeout(t *testing.T) {
	ctx := context.Background()
	reviews := smemory.New()
	svc := New(reviews)
	_, _ = svc.PublishPlan(ctx, "t1", "plan", review.IntentFeedback, "")

	_, err := svc.AwaitNextPublish(ctx, "t1", 1, 30*time.Millisecond)
	assert.ErrorIs(t, err, review.ErrTimeout)
}

func TestAwaitNextPublishContextCancel(t *testing.T) {
	reviews := smemory.New()
	svc := New(reviews)
	_, _ = svc.PublishPlan(context.Background(), "t1", "plan", review.IntentFeedback, "")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := svc.AwaitNextPublish(ctx, "t1", 1, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitResolvesAllWaiters(t *testing.T) {
	ctx := context.Background()
	reviews := smemory.New()
	svc := New(reviews)
	_, _ = svc.PublishPlan(ctx, "t1", "plan", review.IntentFeedback, "")

	results := make(chan uint64, 3)
	for i := 0; i < 3; i++ {
		go func() {
			record, err := svc.AwaitNextPublish(ctx, "t1", 1, time.Second)
			assert.NoError(t, err)
			results <- record.Version
		}()
	}
	time.Sleep(20 * time.Millisecond)
	_, err := svc.PublishPlan(ctx, "t1", "plan v2", review.IntentFeedback, "fb")
	assert.NoError(t, err)

	for i := 0; i < 3; i++ {
		select {
		case version := <-results:
			assert.EqualValues(t, 2, version)
		case <-time.After(time.Second):
			assert.Fail(t, "waiter did not resolve")
		}
	}
}
