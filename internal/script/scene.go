package script

import (
	"fmt"
	"reflect"
	"sort"

	"animkit/internal/animation"
	"animkit/internal/interp"
	"animkit/internal/props"
	"animkit/internal/storyboard"
)

// Target is a named object built from a document, with one declared
// property per initial value.
type Target struct {
	Name  string
	obj   *props.Object
	props map[string]*props.Property
}

// Object makes a Target usable as an animation target.
func (t *Target) Object() *props.Object { return t.obj }

// Property returns the declared property called name.
func (t *Target) Property(name string) (*props.Property, bool) {
	p, ok := t.props[name]
	return p, ok
}

// PropertyNames returns the declared property names, sorted.
func (t *Target) PropertyNames() []string {
	out := make([]string, 0, len(t.props))
	for n := range t.props {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Scene is a document turned into live objects: its targets (holding their
// values in store) and a storyboard ready to Begin.
type Scene struct {
	Name       string
	Storyboard *storyboard.Storyboard

	store   *props.Store
	targets map[string]*Target
}

// Target returns the named target.
func (s *Scene) Target(name string) (*Target, bool) {
	t, ok := s.targets[name]
	return t, ok
}

// Snapshot returns the current value of every target property.
func (s *Scene) Snapshot() map[string]map[string]any {
	out := make(map[string]map[string]any, len(s.targets))
	for name, t := range s.targets {
		vals := make(map[string]any, len(t.props))
		for pn, p := range t.props {
			vals[pn] = s.store.GetValue(t.obj, p)
		}
		out[name] = vals
	}
	return out
}

// Build creates the document's targets in store (seeded with their initial
// values) and a storyboard animating them on sched. opts are applied after
// the document's own name and rate.
func (d *Document) Build(store *props.Store, sched animation.Committer, opts ...storyboard.Option) (*Scene, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", d.Name, ErrInvalidDocument, err)
	}
	if store == nil {
		store = props.NewStore()
	}
	scene := &Scene{Name: d.Name, store: store, targets: make(map[string]*Target, len(d.Targets))}

	for name, values := range d.Targets {
		t := &Target{Name: name, obj: props.NewObject(name), props: make(map[string]*props.Property, len(values))}
		for pn, raw := range values {
			v := inferValue(raw)
			var typ reflect.Type
			if v != nil {
				typ = reflect.TypeOf(v)
			}
			p := props.NewPropertyOf(pn, typ, v)
			if err := store.SetValue(t.obj, p, v); err != nil {
				return nil, fmt.Errorf("%s: target %s: %w", d.Name, name, err)
			}
			t.props[pn] = p
		}
		scene.targets[name] = t
	}

	base := []storyboard.Option{storyboard.WithName(d.Name), storyboard.WithRate(mustDuration(d.Rate))}
	sb := storyboard.New(store, sched, append(base, opts...)...)
	sb.Duration = mustDuration(d.Duration)
	sb.AutoReverse = d.AutoReverse
	sb.Easing, _ = parseEasing("easing", d.Easing)

	for i, spec := range d.Timelines {
		tl, err := d.timeline(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: timelines[%d]: %w", d.Name, i, err)
		}
		target := scene.targets[spec.Target]
		prop, _ := target.Property(spec.Property)
		if err := storyboard.Bind(store, tl, target, prop); err != nil {
			return nil, fmt.Errorf("%s: timelines[%d]: %w", d.Name, i, err)
		}
		sb.Add(tl)
	}
	scene.Storyboard = sb
	return scene, nil
}

func (d *Document) timeline(spec TimelineSpec) (storyboard.Timeline, error) {
	initial := d.Targets[spec.Target][spec.Property]
	kind := spec.kind(initial)
	from, err := parseValue(kind, spec.From)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to, err := parseValue(kind, spec.To)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	var tl storyboard.Timeline
	switch kind {
	case KindDouble:
		tl = storyboard.NewDoubleAnimation(from.(float64), to.(float64))
	case KindColor:
		tl = storyboard.NewColorAnimation(from.(interp.Color), to.(interp.Color))
	case KindPoint:
		tl = storyboard.NewPointAnimation(from.(interp.Point), to.(interp.Point))
	}

	t := tl.Timing()
	t.BeginTime = mustDuration(spec.Begin)
	if spec.Duration != "" {
		t.Duration = mustDuration(spec.Duration)
	}
	t.AutoReverse = spec.AutoReverse
	t.Easing, _ = parseEasing("easing", spec.Easing)
	return tl, nil
}
