package animation

import (
	"time"

	"animkit/internal/runtime/supervisor"
	"animkit/pkg/easing"
)

// DefaultRate is the tick interval used when neither the run nor the
// scheduler config sets one (~60Hz).
const DefaultRate = 16 * time.Millisecond

// Config controls the tick scheduler.
type Config struct {
	// Rate is the default tick interval for runs that don't set one.
	Rate time.Duration

	// HistorySize bounds the finished-run ring kept for Snapshot.
	HistorySize int

	// SlowTick is the step duration above which a (throttled) warning is
	// logged. 0 means "longer than the run's own tick interval".
	SlowTick time.Duration
}

// Run describes one committed animation.
//
// Step receives eased progress on every tick and exactly 1.0 on the final
// tick. Finished fires exactly once: on completion, abort, replacement,
// step failure or scheduler shutdown.
type Run struct {
	Rate     time.Duration
	Length   time.Duration
	Easing   easing.Func
	Step     func(progress float64) error
	Finished func(Result)

	// Repeat is consulted after the final tick; returning true restarts the
	// run from zero (Reset is called first) instead of finishing it.
	Repeat func() bool
	Reset  func()
}

// Result reports how a run ended.
type Result struct {
	Name     string
	Value    float64 // last progress handed to Step
	Canceled bool
	Err      error
	Ticks    int
	Started  time.Time
	Took     time.Duration
}

// Outcome classifies the result for logs and the run journal.
func (r Result) Outcome() string {
	switch {
	case r.Err != nil:
		return OutcomeFailed
	case r.Canceled:
		return OutcomeCanceled
	default:
		return OutcomeCompleted
	}
}

const (
	OutcomeCompleted = "completed"
	OutcomeCanceled  = "canceled"
	OutcomeFailed    = "failed"
)

// Committer is the scheduling surface storyboards depend on.
type Committer interface {
	// Commit starts run under name, aborting any run already registered under it.
	Commit(name string, run Run) error
	// Abort stops the named run. Unknown names are a no-op and return false.
	Abort(name string) bool
	IsRunning(name string) bool
}

// RunInfo is a point-in-time view of an active run.
type RunInfo struct {
	Name     string
	Started  time.Time
	Length   time.Duration
	Rate     time.Duration
	Ticks    int
	Progress float64
}

// Snapshot is a lightweight view for diagnostics.
type Snapshot struct {
	Running    bool
	Rate       time.Duration
	Active     []RunInfo
	History    []Result
	Supervisor supervisor.SupervisorCounters
}
