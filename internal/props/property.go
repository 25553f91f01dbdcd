package props

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// Property identifies a settable value slot. Identity is the pointer; two
// properties with the same name are distinct.
type Property struct {
	Name    string
	Type    reflect.Type
	Default any
}

// NewProperty declares a property whose values must be of type T.
func NewProperty[T any](name string, def T) *Property {
	return &Property{Name: name, Type: reflect.TypeFor[T](), Default: def}
}

// NewPropertyOf declares a property from a runtime type. Default may be nil.
func NewPropertyOf(name string, typ reflect.Type, def any) *Property {
	return &Property{Name: name, Type: typ, Default: def}
}

func (p *Property) String() string {
	if p == nil {
		return "<nil>"
	}
	if p.Type == nil {
		return p.Name
	}
	return p.Name + "(" + p.Type.String() + ")"
}

// accepts reports whether v may be stored under p.
func (p *Property) accepts(v any) error {
	if p.Type == nil || v == nil {
		return nil
	}
	got := reflect.TypeOf(v)
	if got == p.Type || (p.Type.Kind() == reflect.Interface && got.Implements(p.Type)) {
		return nil
	}
	return fmt.Errorf("%w: %s wants %s, got %s", ErrTypeMismatch, p.Name, p.Type, got)
}

var objectSeq atomic.Uint64

// Object is a bindable handle. It carries a name and a sequence id for
// diagnostics only; attached values live in a Store.
type Object struct {
	id   uint64
	name string
}

// NewObject allocates a new bindable handle.
func NewObject(name string) *Object {
	return &Object{id: objectSeq.Add(1), name: name}
}

func (o *Object) ID() uint64 {
	if o == nil {
		return 0
	}
	return o.id
}

func (o *Object) Name() string {
	if o == nil {
		return ""
	}
	return o.name
}

// Object lets *Object satisfy Bindable.
func (o *Object) Object() *Object { return o }

func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	if o.name == "" {
		return fmt.Sprintf("object#%d", o.id)
	}
	return fmt.Sprintf("%s#%d", o.name, o.id)
}

// Bindable is anything that exposes an Object handle, so domain types can
// embed *Object and be used directly as animation targets.
type Bindable interface {
	Object() *Object
}
