package progress

import (
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the engine.  The
// fields are signed and can be either positive (increment) or negative
// (decrement).
type Delta struct {
	Submitted int
	Reviewing int
	Approved  int
	Running   int
	Completed int
	Failed    int
	Cancelled int
	Rounds    int
}

// Counters holds the aggregated task totals for one engine instance.
type Counters struct {
	StartedAt time.Time

	SubmittedTasks int
	ReviewingTasks int
	ApprovedTasks  int
	RunningTasks   int
	CompletedTasks int
	FailedTasks    int
	CancelledTasks int
	FeedbackRounds int
}

// Progress keeps aggregated task counters.  It is safe for concurrent use.
type Progress struct {
	counters Counters
	mu       sync.Mutex
	onChange func(Counters)
}

// Update applies the supplied delta to the tracker.  If an onChange callback
// has been registered it is invoked with a copy of the updated counters
// outside the critical section so that slow callbacks (JSON encoding, I/O)
// do not block engine internals.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.counters.SubmittedTasks += d.Submitted
	p.counters.ReviewingTasks += d.Reviewing
	p.counters.ApprovedTasks += d.Approved
	p.counters.RunningTasks += d.Running
	p.counters.CompletedTasks += d.Completed
	p.counters.FailedTasks += d.Failed
	p.counters.CancelledTasks += d.Cancelled
	p.counters.FeedbackRounds += d.Rounds

	snapshot := p.counters
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

// OnChange registers a callback invoked after every Update.
func (p *Progress) OnChange(fn func(Counters)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// New creates a tracker stamped with the current time.
func New() *Progress {
	return &Progress{counters: Counters{StartedAt: time.Now()}}
}
