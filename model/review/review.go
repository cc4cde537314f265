package review

import (
	"time"
)

// Status describes the lifecycle stage of a review record.  Transitions are
// strictly none -> reviewing -> approved; reviewing may self-loop on feedback
// and approved is terminal.
type Status string

const (
	StatusNone      Status = "none"
	StatusReviewing Status = "reviewing"
	StatusApproved  Status = "approved"
)

// Intent classifies the latest plan revision: still needs iteration, ready
// for confirmation, or cleared to run.
type Intent string

const (
	IntentFeedback Intent = "feedback"
	IntentReady    Intent = "ready"
	IntentExecute  Intent = "execute"
)

// Round captures one completed feedback exchange: the human message together
// with the version window it closed.
type Round struct {
	Number        int       `json:"round_number"`
	Message       string    `json:"message"`
	VersionBefore uint64    `json:"version_before"`
	VersionAfter  uint64    `json:"version_after"`
	Timestamp     time.Time `json:"timestamp"`
}

// Record is the authoritative per-task review state.  Version increases by
// exactly one on every successful publish; rounds are append-only with
// contiguous numbers starting at 1 (the initial publish is round 0 and has
// no entry).
type Record struct {
	TaskID        string    `json:"taskId"`
	Status        Status    `json:"status"`
	Version       uint64    `json:"version"`
	Round         int       `json:"round"`
	CurrentPlan   string    `json:"currentPlan"`
	CurrentIntent Intent    `json:"currentIntent"`
	Rounds        []*Round  `json:"rounds,omitempty"`
	Pending       bool      `json:"pending,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so that callers can hand records across
// goroutines without racing the store's master copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	ret := *r
	if len(r.Rounds) > 0 {
		ret.Rounds = make([]*Round, len(r.Rounds))
		for i, round := range r.Rounds {
			cp := *round
			ret.Rounds[i] = &cp
		}
	}
	return &ret
}

// LastRound returns the most recent feedback round or nil when no feedback
// has been applied yet.
func (r *Record) LastRound() *Round {
	if len(r.Rounds) == 0 {
		return nil
	}
	return r.Rounds[len(r.Rounds)-1]
}
