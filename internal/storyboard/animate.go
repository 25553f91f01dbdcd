package storyboard

import (
	"context"
	"sync"
	"time"
	"weak"

	"animkit/internal/animation"
	"animkit/internal/props"
	"animkit/pkg/easing"
)

// DefaultAnimateLength is the AnimateTo length used when none is given.
const DefaultAnimateLength = 250 * time.Millisecond

// Completion is a one-shot future resolved when an AnimateTo run ends.
type Completion struct {
	once     sync.Once
	done     chan struct{}
	canceled bool
	err      error
}

func newCompletion() *Completion { return &Completion{done: make(chan struct{})} }

func (c *Completion) resolve(canceled bool, err error) {
	c.once.Do(func() {
		c.canceled, c.err = canceled, err
		close(c.done)
	})
}

// Done is closed once the run finished, was aborted or failed.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Wait blocks until the run ends or ctx is done. canceled reports whether
// the run was aborted or replaced; err carries a failed write or ctx.Err().
func (c *Completion) Wait(ctx context.Context) (canceled bool, err error) {
	select {
	case <-c.done:
		return c.canceled, c.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// AnimateTo tweens a single float64 property of target from start to end
// under name. The target is held weakly. A zero length means
// DefaultAnimateLength and a nil ease means linear.
func AnimateTo(sched animation.Committer, store *props.Store, target props.Bindable, prop *props.Property,
	start, end float64, name string, length time.Duration, ease easing.Func,
) *Completion {
	c := newCompletion()
	if sched == nil {
		c.resolve(false, ErrNoScheduler)
		return c
	}
	if target == nil || target.Object() == nil {
		c.resolve(false, props.ErrNilObject)
		return c
	}
	if prop == nil {
		c.resolve(false, props.ErrNilProperty)
		return c
	}
	if !fits(prop.Type, float64Type) {
		c.resolve(false, &ConfigError{Storyboard: name, Property: prop.Name, Want: prop.Type, Got: float64Type})
		return c
	}
	if length == 0 {
		length = DefaultAnimateLength
	}
	if ease == nil {
		ease = easing.Linear
	}

	ref := weak.Make(target.Object())
	step := func(v float64) error {
		obj := ref.Value()
		if obj == nil {
			return nil
		}
		return store.SetValue(obj, prop, v)
	}

	err := animation.New(step, start, end, ease, nil).Commit(sched, name, animation.CommitOptions{
		Length:   length,
		Finished: func(res animation.Result) { c.resolve(res.Canceled, res.Err) },
	})
	if err != nil {
		c.resolve(false, err)
	}
	return c
}
