package storyboard

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
	"weak"

	"github.com/google/uuid"

	"animkit/internal/animation"
	"animkit/internal/props"
	logx "animkit/pkg/logx"
)

// Storyboard is an ordered collection of timelines run as one named
// animation. It is itself a timeline: its own BeginTime is ignored, Duration
// 0 means "derived from the children", and Easing applies to the whole run.
type Storyboard struct {
	TimelineBase

	// Failed receives the error of a run that stopped on a failed write.
	Failed func(error)

	// Finished receives every run's result, whatever its outcome, after
	// Completed or Failed.
	Finished func(animation.Result)

	store *props.Store
	sched animation.Committer
	log   logx.Logger
	rate  time.Duration

	mu       sync.Mutex
	name     string
	children []Timeline
}

type Option func(*Storyboard)

func WithName(name string) Option { return func(sb *Storyboard) { sb.name = strings.TrimSpace(name) } }

// WithRate sets the tick interval; 0 uses the scheduler's default.
func WithRate(d time.Duration) Option { return func(sb *Storyboard) { sb.rate = d } }

func WithLogger(log logx.Logger) Option { return func(sb *Storyboard) { sb.log = log } }

// New returns an empty storyboard writing into store and running on sched.
// A nil store gets a private one.
func New(store *props.Store, sched animation.Committer, opts ...Option) *Storyboard {
	if store == nil {
		store = props.NewStore()
	}
	sb := &Storyboard{store: store, sched: sched}
	sb.obj = props.NewObject("storyboard")
	for _, o := range opts {
		if o != nil {
			o(sb)
		}
	}
	if sb.log.IsZero() {
		sb.log = logx.Nop()
	}
	return sb
}

// Store returns the attached-property store bindings and values live in.
func (sb *Storyboard) Store() *props.Store { return sb.store }

// Name returns the run name, generating a unique one on first use.
func (sb *Storyboard) Name() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.name == "" {
		sb.name = "storyboard-" + uuid.NewString()
	}
	return sb.name
}

// SetName renames the storyboard. A run already committed keeps its old name.
func (sb *Storyboard) SetName(name string) {
	sb.mu.Lock()
	sb.name = strings.TrimSpace(name)
	sb.mu.Unlock()
}

// Add appends children in authoring order.
func (sb *Storyboard) Add(children ...Timeline) *Storyboard {
	sb.mu.Lock()
	for _, c := range children {
		if c != nil {
			sb.children = append(sb.children, c)
		}
	}
	sb.mu.Unlock()
	return sb
}

// Remove drops the first occurrence of tl and reports whether it was found.
func (sb *Storyboard) Remove(tl Timeline) bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	for i, c := range sb.children {
		if c == tl {
			sb.children = append(sb.children[:i], sb.children[i+1:]...)
			return true
		}
	}
	return false
}

func (sb *Storyboard) Children() []Timeline {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return append([]Timeline(nil), sb.children...)
}

// Begin compiles the children and commits the run. Configuration errors are
// returned before anything is committed. Reusing a name replaces the run
// currently registered under it.
//
// A child with a target property but no bound target animates its own
// Object(). A child without a property, or whose bound target was
// collected, is skipped. Children running past Duration are cut off at the
// end and don't fire Completed.
func (sb *Storyboard) Begin() error {
	if sb.sched == nil {
		return ErrNoScheduler
	}
	name := sb.Name()
	c, err := sb.compile(name)
	if err != nil {
		sb.log.Warn("storyboard rejected", logx.String("name", name), logx.Err(err))
		return err
	}

	failed, finished := sb.Failed, sb.Finished
	err = c.root.Commit(sb.sched, name, animation.CommitOptions{
		Rate:   sb.rate,
		Length: c.length,
		Finished: func(res animation.Result) {
			if res.Err != nil && failed != nil {
				failed(res.Err)
			}
			if finished != nil {
				finished(res)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("storyboard %s: %w", name, err)
	}
	sb.log.Debug("storyboard begun",
		logx.String("name", name),
		logx.Duration("length", c.length),
		logx.Int("nodes", c.root.Len()),
		logx.Int("skipped", c.skipped),
	)
	return nil
}

// End aborts the run. It is a no-op when nothing runs under the name.
func (sb *Storyboard) End() {
	if sb.sched == nil {
		return
	}
	sb.sched.Abort(sb.Name())
}

func (sb *Storyboard) IsRunning() bool {
	return sb.sched != nil && sb.sched.IsRunning(sb.Name())
}

func (sb *Storyboard) Pause() error  { return fmt.Errorf("pause: %w", ErrUnsupported) }
func (sb *Storyboard) Resume() error { return fmt.Errorf("resume: %w", ErrUnsupported) }
func (sb *Storyboard) Loop() error   { return fmt.Errorf("loop: %w", ErrUnsupported) }

type compiled struct {
	root    *animation.Animation
	length  time.Duration
	skipped int
}

// window is a leg of a child on the storyboard's absolute timeline.
type window struct {
	begin, end time.Duration
	reverse    bool
}

func (sb *Storyboard) compile(name string) (compiled, error) {
	children := sb.Children()

	forward := sb.Duration
	if forward <= 0 {
		forward = derivedDuration(children)
	}
	length := forward
	if sb.AutoReverse {
		length *= 2
	}

	root := animation.New(nil, 0, 1, sb.Easing, sb.Completed)
	out := compiled{root: root, length: length}

	for i, child := range children {
		target := resolveTarget(sb.store, child)
		prop := GetTargetProperty(sb.store, child)
		if target == nil || prop == nil {
			out.skipped++
			continue
		}

		var (
			got     reflect.Type
			valueAt func(t float64, reverse bool) any
		)
		switch tl := child.(type) {
		case *DoubleAnimation:
			got, valueAt = float64Type, tl.valueAt
		case interpolating:
			got, valueAt = tl.valueType(), tl.valueAt
		default:
			return compiled{}, fmt.Errorf("%w: child %d is %T", ErrUnknownTimeline, i, child)
		}
		if !fits(prop.Type, got) {
			return compiled{}, &ConfigError{Storyboard: name, Index: i, Property: prop.Name, Want: prop.Type, Got: got}
		}

		legs := sb.legs(child.Timing(), length)
		t := child.Timing()
		for j, leg := range legs {
			// Legs starting at or after the end never play; when the last one
			// is dropped the child never completes.
			if length > 0 && leg.begin >= length {
				continue
			}
			var finished func()
			if j == len(legs)-1 {
				finished = t.Completed
			}
			step := writer(sb.store, target, prop, leg.reverse, valueAt)
			root.Add(fraction(leg.begin, length), fraction(leg.end, length),
				animation.New(step, 0, 1, t.Easing, finished))
		}
	}
	return out, nil
}

// legs lays out a child's windows: its forward leg, the reverse leg when
// the child auto-reverses, and when the storyboard auto-reverses, a mirror
// of each in the second half. The result is ordered by end time so the last
// leg is the one that completes the child.
func (sb *Storyboard) legs(t *TimelineBase, length time.Duration) []window {
	begin, dur := max(t.BeginTime, 0), max(t.Duration, 0)
	legs := []window{{begin: begin, end: begin + dur}}
	if t.AutoReverse {
		legs = append(legs, window{begin: begin + dur, end: begin + 2*dur, reverse: true})
	}
	if sb.AutoReverse {
		for _, w := range legs {
			legs = append(legs, window{begin: length - w.end, end: length - w.begin, reverse: !w.reverse})
		}
	}
	sort.SliceStable(legs, func(i, j int) bool { return legs[i].end < legs[j].end })
	return legs
}

// derivedDuration is the end of the latest child, counting an auto-reversing
// child as twice its begin plus duration. No children means zero.
func derivedDuration(children []Timeline) time.Duration {
	var d time.Duration
	for _, c := range children {
		t := c.Timing()
		end := max(t.BeginTime, 0) + max(t.Duration, 0)
		if t.AutoReverse {
			end *= 2
		}
		d = max(d, end)
	}
	return d
}

// fraction places at on the run's [0,1] progress. It is not clamped: a leg
// running past the end keeps its rate and is cut off there.
func fraction(at, length time.Duration) float64 {
	if length <= 0 {
		return 0
	}
	return float64(at) / float64(length)
}

// fits reports whether values of got may be written to a property declared as want.
func fits(want, got reflect.Type) bool {
	return want == nil || got.AssignableTo(want)
}

// writer builds the per-tick closure for one leg. It only holds target
// weakly; once the target is collected the closure does nothing.
func writer(store *props.Store, target *props.Object, prop *props.Property, reverse bool, valueAt func(float64, bool) any) func(float64) error {
	ref := weak.Make(target)
	return func(p float64) error {
		obj := ref.Value()
		if obj == nil {
			return nil
		}
		return store.SetValue(obj, prop, valueAt(p, reverse))
	}
}
