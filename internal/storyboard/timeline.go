package storyboard

import (
	"reflect"
	"sync"
	"time"

	"animkit/internal/interp"
	"animkit/internal/props"
	"animkit/pkg/easing"
)

// DefaultDuration is the duration given to timelines built with a constructor.
const DefaultDuration = 4000 * time.Millisecond

// Timeline is one timed entry of a storyboard. The set of implementations is
// closed: DoubleAnimation, Animation[V] and Storyboard.
type Timeline interface {
	props.Bindable
	Timing() *TimelineBase
	timeline()
}

// TimelineBase holds the timing every timeline shares. Fields are meant to be
// set before Begin and are read-only while a run is active.
type TimelineBase struct {
	// BeginTime is relative to the owning storyboard's origin.
	BeginTime time.Duration
	Duration  time.Duration

	// AutoReverse plays the entry back from To to From right after it ends.
	AutoReverse bool

	// Easing is applied to the entry's local progress. nil keeps the
	// progress handed down by the storyboard.
	Easing easing.Func

	// Completed fires once the entry (including its reverse leg) finished.
	// It is not called for aborted or failed runs.
	Completed func()

	once sync.Once
	obj  *props.Object
}

// Timing exposes the shared timing fields.
func (b *TimelineBase) Timing() *TimelineBase { return b }

// Object returns the handle attached values (target, target property) hang on.
func (b *TimelineBase) Object() *props.Object {
	b.once.Do(func() {
		if b.obj == nil {
			b.obj = props.NewObject("timeline")
		}
	})
	return b.obj
}

func (b *TimelineBase) timeline() {}

func (b *TimelineBase) init(name string) {
	b.Duration = DefaultDuration
	b.obj = props.NewObject(name)
}

// DoubleAnimation interpolates a float64 property.
type DoubleAnimation struct {
	TimelineBase
	From, To float64
}

// NewDoubleAnimation returns a DoubleAnimation with the default duration.
func NewDoubleAnimation(from, to float64) *DoubleAnimation {
	a := &DoubleAnimation{From: from, To: to}
	a.init("double-animation")
	return a
}

// Animation interpolates any value type that knows how to interpolate itself.
type Animation[V interp.Interpolatable[V]] struct {
	TimelineBase
	From, To V
}

// NewAnimation returns a typed animation with the default duration.
func NewAnimation[V interp.Interpolatable[V]](from, to V) *Animation[V] {
	a := &Animation[V]{From: from, To: to}
	a.init("animation")
	return a
}

type (
	ColorAnimation = Animation[interp.Color]
	PointAnimation = Animation[interp.Point]
)

// NewColorAnimation returns a ColorAnimation with the default duration.
func NewColorAnimation(from, to interp.Color) *ColorAnimation { return NewAnimation(from, to) }

// NewPointAnimation returns a PointAnimation with the default duration.
func NewPointAnimation(from, to interp.Point) *PointAnimation { return NewAnimation(from, to) }

// interpolating is the type-erased view of Animation[V] the compiler uses.
type interpolating interface {
	Timeline
	valueType() reflect.Type
	valueAt(t float64, reverse bool) any
}

func (a *Animation[V]) valueType() reflect.Type { return reflect.TypeFor[V]() }

func (a *Animation[V]) valueAt(t float64, reverse bool) any {
	if reverse {
		return interp.Interpolate(a.To, a.From, t)
	}
	return interp.Interpolate(a.From, a.To, t)
}

func (a *DoubleAnimation) valueAt(t float64, reverse bool) any {
	if reverse {
		return interp.Lerp(a.To, a.From, t)
	}
	return interp.Lerp(a.From, a.To, t)
}

var float64Type = reflect.TypeFor[float64]()
