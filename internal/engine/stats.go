package engine

import (
	"sync/atomic"
	"time"
)

// State represents the runner's lifecycle state.
type State int32

const (
	StateIdle        State = 0
	StateDiscovering State = 1
	StateExtracting  State = 2
	StateDone        State = 3
	StateFailed      State = 4
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateExtracting:
		return "extracting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats tracks extraction counters for one run.
type Stats struct {
	Total           atomic.Int64
	AlreadyComplete atomic.Int64
	Pending         atomic.Int64
	Attempted       atomic.Int64
	Succeeded       atomic.Int64
	Skipped         atomic.Int64
	Failed          atomic.Int64
	StorageFaults   atomic.Int64
	StartTime       time.Time
}

// Summary is a point-in-time copy of Stats.
type Summary struct {
	RunID           string
	Total           int64
	AlreadyComplete int64
	Attempted       int64
	Succeeded       int64
	Skipped         int64
	Failed          int64
	StorageFaults   int64
	Remaining       int64
	Interrupted     bool
	Elapsed         time.Duration
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() Summary {
	attempted := s.Attempted.Load()
	return Summary{
		Total:           s.Total.Load(),
		AlreadyComplete: s.AlreadyComplete.Load(),
		Attempted:       attempted,
		Succeeded:       s.Succeeded.Load(),
		Skipped:         s.Skipped.Load(),
		Failed:          s.Failed.Load(),
		StorageFaults:   s.StorageFaults.Load(),
		Remaining:       max(s.Pending.Load()-attempted, 0),
		Elapsed:         time.Since(s.StartTime),
	}
}

// LogAttrs flattens the summary for structured logging.
func (s Summary) LogAttrs() []any {
	return []any{
		"run_id", s.RunID,
		"total", s.Total,
		"already_complete", s.AlreadyComplete,
		"attempted", s.Attempted,
		"succeeded", s.Succeeded,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"storage_faults", s.StorageFaults,
		"remaining", s.Remaining,
		"interrupted", s.Interrupted,
		"elapsed", s.Elapsed.Round(time.Millisecond).String(),
	}
}
