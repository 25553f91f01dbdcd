package animation

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"animkit/internal/eventbus"
	"animkit/internal/runtime/supervisor"
	logx "animkit/pkg/logx"
)

const warnThrottleEvery = 5 * time.Second

// Scheduler drives named runs on periodic tickers, one goroutine per run.
type Scheduler struct {
	mu   sync.Mutex
	cfg  Config
	log  logx.Logger
	bus  eventbus.Bus
	sup  *supervisor.Supervisor
	runs map[string]*activeRun
	seq  uint64

	slowWarn *rate.Limiter

	hmu     sync.Mutex
	history []Result
}

type activeRun struct {
	id      uint64
	name    string
	run     Run
	rate    time.Duration
	started time.Time

	stopped  atomic.Bool
	done     chan struct{}
	once     sync.Once
	ticks    atomic.Int64
	progress atomic.Uint64 // math.Float64bits
}

var _ Committer = (*Scheduler)(nil)

// NewScheduler returns a stopped scheduler; call Start before Commit.
func NewScheduler(cfg Config, log logx.Logger, bus eventbus.Bus) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	return &Scheduler{
		cfg:      cfg,
		log:      log,
		bus:      bus,
		runs:     map[string]*activeRun{},
		slowWarn: rate.NewLimiter(rate.Every(warnThrottleEvery), 1),
	}
}

// Apply swaps tunables. Runs already in flight keep their tick interval.
func (s *Scheduler) Apply(cfg Config) {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Start makes the scheduler accept commits. It is idempotent.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup != nil {
		return
	}
	s.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(s.log.With(logx.String("comp", "animation"))))
	s.log.Info("scheduler started", logx.Duration("rate", s.cfg.Rate))
}

// Stop cancels every active run (their Finished sees Canceled and ErrStopped)
// and waits for tick loops to exit or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	start := time.Now()
	s.mu.Lock()
	sup := s.sup
	s.sup = nil
	s.mu.Unlock()
	if sup == nil {
		return nil
	}

	err := sup.Stop(ctx)

	// Anything that never reached its loop is finished here.
	s.mu.Lock()
	left := make([]*activeRun, 0, len(s.runs))
	for _, ar := range s.runs {
		left = append(left, ar)
	}
	s.mu.Unlock()
	for _, ar := range left {
		s.finish(ar, Result{Canceled: true, Err: ErrStopped})
	}

	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
	return err
}

func (s *Scheduler) Commit(name string, run Run) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNoName
	}
	if run.Step == nil {
		return ErrNoStep
	}

	s.mu.Lock()
	sup := s.sup
	if sup == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	rt := run.Rate
	if rt <= 0 {
		rt = s.cfg.Rate
	}
	s.seq++
	ar := &activeRun{
		id:      s.seq,
		name:    name,
		run:     run,
		rate:    rt,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	prev := s.runs[name]
	s.runs[name] = ar
	s.mu.Unlock()

	if prev != nil {
		s.log.Debug("run replaced", logx.String("name", name))
		s.finish(prev, Result{Canceled: true})
	}

	s.log.Debug("run committed", logx.String("name", name), logx.Duration("length", run.Length), logx.Duration("rate", rt))
	eventbus.Publish(s.bus, eventbus.AnimationStarted, name)
	sup.Go(fmt.Sprintf("animation:%s#%d", name, ar.id), func(ctx context.Context) error {
		s.loop(ctx, ar)
		return nil
	})
	return nil
}

func (s *Scheduler) Abort(name string) bool {
	s.mu.Lock()
	ar := s.runs[strings.TrimSpace(name)]
	s.mu.Unlock()
	if ar == nil {
		return false
	}
	s.finish(ar, Result{Canceled: true})
	return true
}

func (s *Scheduler) IsRunning(name string) bool {
	s.mu.Lock()
	_, ok := s.runs[strings.TrimSpace(name)]
	s.mu.Unlock()
	return ok
}

func (s *Scheduler) loop(ctx context.Context, ar *activeRun) {
	ticker := time.NewTicker(ar.rate)
	defer ticker.Stop()

	slow := s.slowTick(ar.rate)
	origin := ar.started
	for {
		select {
		case <-ctx.Done():
			s.finish(ar, Result{Canceled: true, Err: ErrStopped})
			return
		case <-ar.done:
			return
		case <-ticker.C:
		}
		if ar.stopped.Load() {
			return
		}

		elapsed := time.Since(origin)
		final := ar.run.Length <= 0 || elapsed >= ar.run.Length
		p := 1.0
		if !final {
			p = ar.run.Easing.Ease(float64(elapsed) / float64(ar.run.Length))
		}

		t0 := time.Now()
		err := s.step(ar, p)
		if took := time.Since(t0); took > slow && s.slowWarn.Allow() {
			s.log.Warn("slow animation tick", logx.String("name", ar.name), logx.Duration("took", took), logx.Duration("rate", ar.rate))
		}
		if err != nil {
			s.finish(ar, Result{Err: err})
			return
		}
		if !final {
			continue
		}
		if ar.run.Repeat != nil && ar.run.Repeat() {
			if ar.run.Reset != nil {
				ar.run.Reset()
			}
			origin = time.Now()
			continue
		}
		s.finish(ar, Result{})
		return
	}
}

func (s *Scheduler) step(ar *activeRun, p float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("animation step panicked", logx.String("name", ar.name), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			err = fmt.Errorf("%w: %v", ErrStepPanic, r)
		}
	}()
	ar.ticks.Add(1)
	ar.progress.Store(math.Float64bits(p))
	return ar.run.Step(p)
}

func (s *Scheduler) slowTick(runRate time.Duration) time.Duration {
	s.mu.Lock()
	d := s.cfg.SlowTick
	s.mu.Unlock()
	if d <= 0 {
		d = runRate
	}
	return d
}

// finish settles a run exactly once: unregisters it, records history,
// publishes the lifecycle event and invokes Finished.
func (s *Scheduler) finish(ar *activeRun, res Result) {
	ar.once.Do(func() {
		ar.stopped.Store(true)
		close(ar.done)

		s.mu.Lock()
		if s.runs[ar.name] == ar {
			delete(s.runs, ar.name)
		}
		histMax := s.cfg.HistorySize
		s.mu.Unlock()

		res.Name = ar.name
		res.Ticks = int(ar.ticks.Load())
		res.Value = math.Float64frombits(ar.progress.Load())
		res.Started = ar.started
		res.Took = time.Since(ar.started)

		s.hmu.Lock()
		s.history = append(s.history, res)
		if over := len(s.history) - histMax; over > 0 {
			s.history = append([]Result(nil), s.history[over:]...)
		}
		s.hmu.Unlock()

		fields := []logx.Field{
			logx.String("name", ar.name),
			logx.String("outcome", res.Outcome()),
			logx.Int("ticks", res.Ticks),
			logx.Duration("took", res.Took),
		}
		switch res.Outcome() {
		case OutcomeFailed:
			s.log.Warn("run failed", append(fields, logx.Err(res.Err))...)
			eventbus.Publish(s.bus, eventbus.AnimationFailed, res)
		case OutcomeCanceled:
			s.log.Debug("run aborted", fields...)
			eventbus.Publish(s.bus, eventbus.AnimationAborted, res)
		default:
			s.log.Debug("run finished", fields...)
			eventbus.Publish(s.bus, eventbus.AnimationFinished, res)
		}

		if ar.run.Finished != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						s.log.Error("animation finished callback panicked", logx.String("name", ar.name), logx.Any("panic", r))
					}
				}()
				ar.run.Finished(res)
			}()
		}
	})
}

// Snapshot returns active runs (sorted by name) and recent results.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Running: s.sup != nil, Rate: s.cfg.Rate}
	for _, ar := range s.runs {
		snap.Active = append(snap.Active, RunInfo{
			Name:     ar.name,
			Started:  ar.started,
			Length:   ar.run.Length,
			Rate:     ar.rate,
			Ticks:    int(ar.ticks.Load()),
			Progress: math.Float64frombits(ar.progress.Load()),
		})
	}
	if s.sup != nil {
		snap.Supervisor = s.sup.Counters()
	}
	s.mu.Unlock()

	sort.Slice(snap.Active, func(i, j int) bool { return snap.Active[i].Name < snap.Active[j].Name })

	s.hmu.Lock()
	snap.History = append([]Result(nil), s.history...)
	s.hmu.Unlock()
	return snap
}
