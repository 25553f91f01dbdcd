package storyboard

import (
	"weak"

	"animkit/internal/props"
)

// Attached properties binding a timeline to what it animates. The target is
// stored as a weak pointer so a binding never keeps its target alive.
var (
	TargetProperty         = props.NewProperty[weak.Pointer[props.Object]]("Storyboard.Target", weak.Pointer[props.Object]{})
	TargetPropertyProperty = props.NewProperty[*props.Property]("Storyboard.TargetProperty", nil)
)

// SetTarget binds tl to target. A nil target clears the binding.
func SetTarget(store *props.Store, tl Timeline, target props.Bindable) error {
	if target == nil || target.Object() == nil {
		store.ClearValue(tl.Object(), TargetProperty)
		return nil
	}
	return store.SetValue(tl.Object(), TargetProperty, weak.Make(target.Object()))
}

// GetTarget returns the bound target, or nil when none is bound or the
// target has been collected.
func GetTarget(store *props.Store, tl Timeline) *props.Object {
	wp := props.Value[weak.Pointer[props.Object]](store, tl.Object(), TargetProperty)
	return wp.Value()
}

// SetTargetProperty selects the property tl writes to.
func SetTargetProperty(store *props.Store, tl Timeline, p *props.Property) error {
	if p == nil {
		store.ClearValue(tl.Object(), TargetPropertyProperty)
		return nil
	}
	return store.SetValue(tl.Object(), TargetPropertyProperty, p)
}

func GetTargetProperty(store *props.Store, tl Timeline) *props.Property {
	return props.Value[*props.Property](store, tl.Object(), TargetPropertyProperty)
}

// Bind is SetTarget followed by SetTargetProperty.
func Bind(store *props.Store, tl Timeline, target props.Bindable, p *props.Property) error {
	if err := SetTarget(store, tl, target); err != nil {
		return err
	}
	return SetTargetProperty(store, tl, p)
}

// resolveTarget mirrors the binding lookup the compiler uses: an unbound
// timeline animates its own object, a bound-but-collected one resolves to nil.
func resolveTarget(store *props.Store, tl Timeline) *props.Object {
	v, ok := store.Lookup(tl.Object(), TargetProperty)
	if !ok {
		return tl.Object()
	}
	wp, _ := v.(weak.Pointer[props.Object])
	return wp.Value()
}
