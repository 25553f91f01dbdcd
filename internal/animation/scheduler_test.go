package animation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"animkit/internal/eventbus"
)

func startScheduler(t *testing.T, bus eventbus.Bus) *Scheduler {
	t.Helper()
	s := NewScheduler(Config{Rate: 2 * time.Millisecond, HistorySize: 4}, loggerForTest(), bus)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("run did not finish")
		return Result{}
	}
}

type progressLog struct {
	mu     sync.Mutex
	values []float64
}

func (p *progressLog) step(v float64) error {
	p.mu.Lock()
	p.values = append(p.values, v)
	p.mu.Unlock()
	return nil
}

func (p *progressLog) snapshot() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.values...)
}

func TestCommitRunsToCompletion(t *testing.T) {
	t.Parallel()
	s := startScheduler(t, nil)
	var pl progressLog
	done := make(chan Result, 1)

	err := s.Commit("fade", Run{
		Length:   30 * time.Millisecond,
		Step:     pl.step,
		Finished: func(r Result) { done <- r },
	})
	if err != nil {
		t.Fatal(err)
	}
	r := waitResult(t, done)
	if r.Outcome() != OutcomeCompleted || r.Value != 1 || r.Name != "fade" {
		t.Fatalf("result = %+v", r)
	}

	vals := pl.snapshot()
	if len(vals) == 0 || vals[len(vals)-1] != 1 {
		t.Fatalf("final tick must deliver 1.0, got %v", vals)
	}
	for i := 1; i < len(vals); i++ {
		if vals[i] < vals[i-1] {
			t.Fatalf("progress went backwards: %v", vals)
		}
	}
	if s.IsRunning("fade") {
		t.Fatal("finished run still registered")
	}
	if h := s.Snapshot().History; len(h) != 1 || h[0].Name != "fade" {
		t.Fatalf("history = %+v", h)
	}
}

func TestAbortBeforeFirstTick(t *testing.T) {
	t.Parallel()
	s := NewScheduler(Config{Rate: 50 * time.Millisecond}, loggerForTest(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	var steps atomic.Int32
	done := make(chan Result, 1)
	_ = s.Commit("slide", Run{
		Length:   time.Second,
		Step:     func(float64) error { steps.Add(1); return nil },
		Finished: func(r Result) { done <- r },
	})
	if !s.Abort("slide") {
		t.Fatal("Abort should report an active run")
	}
	r := waitResult(t, done)
	if !r.Canceled || r.Err != nil {
		t.Fatalf("result = %+v, want canceled", r)
	}
	time.Sleep(120 * time.Millisecond)
	if n := steps.Load(); n != 0 {
		t.Fatalf("steps after abort = %d, want 0", n)
	}
	if s.Abort("slide") {
		t.Fatal("second Abort should be a no-op")
	}
	if s.Abort("unknown") {
		t.Fatal("Abort of unknown name should be a no-op")
	}
}

func TestCommitSameNameReplaces(t *testing.T) {
	t.Parallel()
	s := startScheduler(t, nil)
	first := make(chan Result, 1)
	second := make(chan Result, 1)
	step := func(float64) error { return nil }

	_ = s.Commit("x", Run{Length: time.Second, Step: step, Finished: func(r Result) { first <- r }})
	_ = s.Commit("x", Run{Length: 10 * time.Millisecond, Step: step, Finished: func(r Result) { second <- r }})

	if r := waitResult(t, first); !r.Canceled {
		t.Fatalf("replaced run result = %+v, want canceled", r)
	}
	if r := waitResult(t, second); r.Outcome() != OutcomeCompleted {
		t.Fatalf("replacement result = %+v", r)
	}
}

func TestStepErrorAndPanicSurface(t *testing.T) {
	t.Parallel()
	s := startScheduler(t, nil)
	boom := errors.New("setter failed")

	errDone := make(chan Result, 1)
	_ = s.Commit("err", Run{Length: time.Second, Step: func(float64) error { return boom }, Finished: func(r Result) { errDone <- r }})
	if r := waitResult(t, errDone); !errors.Is(r.Err, boom) || r.Outcome() != OutcomeFailed {
		t.Fatalf("result = %+v, want setter error", r)
	}

	panicDone := make(chan Result, 1)
	_ = s.Commit("panic", Run{Length: time.Second, Step: func(float64) error { panic("bad step") }, Finished: func(r Result) { panicDone <- r }})
	if r := waitResult(t, panicDone); !errors.Is(r.Err, ErrStepPanic) {
		t.Fatalf("result = %+v, want ErrStepPanic", r)
	}
}

func TestZeroLengthCompletesOnFirstTick(t *testing.T) {
	t.Parallel()
	s := startScheduler(t, nil)
	var pl progressLog
	done := make(chan Result, 1)
	_ = s.Commit("instant", Run{Step: pl.step, Finished: func(r Result) { done <- r }})
	r := waitResult(t, done)
	if r.Outcome() != OutcomeCompleted || r.Ticks != 1 {
		t.Fatalf("result = %+v", r)
	}
	if vals := pl.snapshot(); len(vals) != 1 || vals[0] != 1 {
		t.Fatalf("values = %v, want [1]", vals)
	}
}

func TestRepeatResetsAndRestarts(t *testing.T) {
	t.Parallel()
	s := startScheduler(t, nil)
	var repeats, resets atomic.Int32
	done := make(chan Result, 1)
	_ = s.Commit("loop", Run{
		Length:   5 * time.Millisecond,
		Step:     func(float64) error { return nil },
		Repeat:   func() bool { return repeats.Add(1) < 3 },
		Reset:    func() { resets.Add(1) },
		Finished: func(r Result) { done <- r },
	})
	r := waitResult(t, done)
	if r.Outcome() != OutcomeCompleted {
		t.Fatalf("result = %+v", r)
	}
	if resets.Load() != 2 || repeats.Load() != 3 {
		t.Fatalf("resets=%d repeats=%d, want 2/3", resets.Load(), repeats.Load())
	}
}

func TestCommitValidationAndLifecycle(t *testing.T) {
	t.Parallel()
	s := NewScheduler(Config{}, loggerForTest(), nil)
	if err := s.Commit("a", Run{Step: func(float64) error { return nil }}); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("err = %v, want ErrNotStarted", err)
	}
	s.Start(context.Background())
	if err := s.Commit(" ", Run{Step: func(float64) error { return nil }}); !errors.Is(err, ErrNoName) {
		t.Fatalf("err = %v, want ErrNoName", err)
	}
	if err := s.Commit("a", Run{}); !errors.Is(err, ErrNoStep) {
		t.Fatalf("err = %v, want ErrNoStep", err)
	}

	done := make(chan Result, 1)
	_ = s.Commit("long", Run{Length: time.Hour, Step: func(float64) error { return nil }, Finished: func(r Result) { done <- r }})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r := waitResult(t, done); !r.Canceled || !errors.Is(r.Err, ErrStopped) {
		t.Fatalf("result = %+v, want canceled by stop", r)
	}
	if s.Snapshot().Running {
		t.Fatal("snapshot should report stopped")
	}
}

func TestLifecycleEvents(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()
	s := startScheduler(t, bus)

	done := make(chan Result, 1)
	_ = s.Commit("evt", Run{Length: 5 * time.Millisecond, Step: func(float64) error { return nil }, Finished: func(r Result) { done <- r }})
	waitResult(t, done)

	var types []string
	for len(types) < 2 {
		select {
		case e := <-ch:
			types = append(types, e.Type)
		case <-time.After(time.Second):
			t.Fatalf("events so far: %v", types)
		}
	}
	if types[0] != eventbus.AnimationStarted || types[1] != eventbus.AnimationFinished {
		t.Fatalf("events = %v", types)
	}
}
