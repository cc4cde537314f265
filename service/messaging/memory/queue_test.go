package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type payload struct {
	Name string
}

func TestPublishConsume(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[payload](DefaultConfig())

	assert.NoError(t, queue.Publish(ctx, &payload{Name: "first"}))
	assert.NoError(t, queue.Publish(ctx, &payload{Name: "second"}))
	assert.EqualValues(t, 2, queue.Size())

	msg, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, "first", msg.T().Name)
	assert.NoError(t, msg.Ack())
	assert.Error(t, msg.Ack())

	msg, err = queue.Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, "second", msg.T().Name)
	assert.NoError(t, msg.Ack())
	assert.EqualValues(t, 0, queue.Size())
}

func TestTryPublish(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[payload](Config{QueueBuffer: 2})

	assert.True(t, queue.TryPublish(ctx, &payload{Name: "a"}))
	assert.True(t, queue.TryPublish(ctx, &payload{Name: "b"}))

	// Full buffer: report failure instead of blocking
	assert.False(t, queue.TryPublish(ctx, &payload{Name: "overflow"}))
	assert.EqualValues(t, 2, queue.Size())

	msg, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, "a", msg.T().Name)
	assert.NoError(t, msg.Ack())
}

func TestConsumeHonoursContext(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNackRetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[payload](Config{MaxRetries: 2, RetryDelay: 5 * time.Millisecond, DeadLetter: true, QueueBuffer: 10})

	assert.NoError(t, queue.Publish(ctx, &payload{Name: "poison"}))
	for i := 0; i < 3; i++ {
		consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
		msg, err := queue.Consume(consumeCtx)
		cancel()
		assert.NoError(t, err)
		assert.NoError(t, msg.Nack(errors.New("cannot process")))
	}

	// Retry budget exhausted: nothing requeued, one dead letter
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, queue.Size())
	assert.EqualValues(t, 1, queue.DLQSize())
}
