package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateAndSnapshot(t *testing.T) {
	tracker := New()
	assert.False(t, tracker.Snapshot().StartedAt.IsZero())

	tracker.Update(Delta{Submitted: 1, Reviewing: 1})
	tracker.Update(Delta{Rounds: 2})
	tracker.Update(Delta{Reviewing: -1, Approved: 1, Running: 1})

	snapshot := tracker.Snapshot()
	assert.EqualValues(t, 1, snapshot.SubmittedTasks)
	assert.EqualValues(t, 0, snapshot.ReviewingTasks)
	assert.EqualValues(t, 1, snapshot.ApprovedTasks)
	assert.EqualValues(t, 1, snapshot.RunningTasks)
	assert.EqualValues(t, 2, snapshot.FeedbackRounds)
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tracker *Progress
	tracker.Update(Delta{Submitted: 1})
	tracker.OnChange(func(Counters) {})
	assert.EqualValues(t, Counters{}, tracker.Snapshot())
}

func TestOnChange(t *testing.T) {
	tracker := New()
	var mu sync.Mutex
	var seen []int
	tracker.OnChange(func(c Counters) {
		mu.Lock()
		seen = append(seen, c.SubmittedTasks)
		mu.Unlock()
	})
	tracker.Update(Delta{Submitted: 1})
	tracker.Update(Delta{Submitted: 1})

	mu.Lock()
	defer mu.Unlock()
	assert.EqualValues(t, []int{1, 2}, seen)
}

func TestConcurrentUpdates(t *testing.T) {
	tracker := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(Delta{Submitted: 1, Rounds: 1})
		}()
	}
	wg.Wait()
	snapshot := tracker.Snapshot()
	assert.EqualValues(t, 50, snapshot.SubmittedTasks)
	assert.EqualValues(t, 50, snapshot.FeedbackRounds)
}
