package journal

import (
	"context"
	"errors"
	"time"

	"animkit/internal/animation"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the journal.
//
// Driver values:
//   - "file": JSON Lines file (<path>.runs.jsonl)
//   - "sqlite": SQLite database file (build tag sqlite)
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one finished run. Keep it compact and schema-stable.
type Record struct {
	Name    string    `json:"name"`
	Started time.Time `json:"started"`
	TookMS  int64     `json:"took_ms"`
	Ticks   int       `json:"ticks"`
	Outcome string    `json:"outcome"`
	Error   string    `json:"error,omitempty"`
}

// Took returns the run duration.
func (r Record) Took() time.Duration { return time.Duration(r.TookMS) * time.Millisecond }

// FromResult converts a scheduler result.
func FromResult(res animation.Result) Record {
	r := Record{
		Name:    res.Name,
		Started: res.Started,
		TookMS:  res.Took.Milliseconds(),
		Ticks:   res.Ticks,
		Outcome: res.Outcome(),
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	return r
}

// Store is the journal API used by the app.
type Store interface {
	Append(ctx context.Context, r Record) error
	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)
	Close() error
}
