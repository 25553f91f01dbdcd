package props

import (
	"errors"
	"fmt"
	"sync"
	"weak"

	"animkit/internal/eventbus"
)

var (
	ErrTypeMismatch = errors.New("property type mismatch")
	ErrNilObject    = errors.New("nil object")
	ErrNilProperty  = errors.New("nil property")
)

// pruneEvery controls how often SetValue sweeps entries of collected objects.
const pruneEvery = 256

// Change is the payload of eventbus.PropertyChanged events.
type Change struct {
	Object   string
	Property string
	Value    any
}

// Store is a concurrency-safe side-table object -> property -> value.
type Store struct {
	mu     sync.RWMutex
	values map[weak.Pointer[Object]]map[*Property]any
	writes uint64

	bus eventbus.Bus
}

func NewStore() *Store {
	return &Store{values: map[weak.Pointer[Object]]map[*Property]any{}}
}

// WithBus makes the store publish a PropertyChanged event for every write.
func (s *Store) WithBus(bus eventbus.Bus) *Store {
	s.mu.Lock()
	s.bus = bus
	s.mu.Unlock()
	return s
}

// SetValue stores v under (obj, p). A nil v clears the entry.
func (s *Store) SetValue(obj *Object, p *Property, v any) error {
	if obj == nil {
		return ErrNilObject
	}
	if p == nil {
		return ErrNilProperty
	}
	if err := p.accepts(v); err != nil {
		return fmt.Errorf("set %s on %s: %w", p.Name, obj, err)
	}
	if v == nil {
		s.ClearValue(obj, p)
		return nil
	}

	key := weak.Make(obj)
	s.mu.Lock()
	m := s.values[key]
	if m == nil {
		m = map[*Property]any{}
		s.values[key] = m
	}
	m[p] = v
	s.writes++
	if s.writes%pruneEvery == 0 {
		s.pruneLocked()
	}
	bus := s.bus
	s.mu.Unlock()

	if bus != nil {
		bus.Publish(eventbus.Event{
			Type: eventbus.PropertyChanged,
			Data: Change{Object: obj.String(), Property: p.Name, Value: v},
		})
	}
	return nil
}

// Lookup returns the explicitly stored value, without falling back to the default.
func (s *Store) Lookup(obj *Object, p *Property) (any, bool) {
	if obj == nil || p == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[weak.Make(obj)][p]
	return v, ok
}

// GetValue returns the stored value or the property default.
func (s *Store) GetValue(obj *Object, p *Property) any {
	if p == nil {
		return nil
	}
	if v, ok := s.Lookup(obj, p); ok {
		return v
	}
	return p.Default
}

func (s *Store) ClearValue(obj *Object, p *Property) {
	if obj == nil || p == nil {
		return
	}
	key := weak.Make(obj)
	s.mu.Lock()
	if m := s.values[key]; m != nil {
		delete(m, p)
		if len(m) == 0 {
			delete(s.values, key)
		}
	}
	s.mu.Unlock()
}

// Len reports how many objects currently hold values, after pruning
// entries whose objects were collected.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return len(s.values)
}

func (s *Store) pruneLocked() {
	for k := range s.values {
		if k.Value() == nil {
			delete(s.values, k)
		}
	}
}

// Value reads a typed value, falling back to the zero value when the stored
// value (or default) has another type.
func Value[T any](s *Store, obj *Object, p *Property) T {
	v, _ := s.GetValue(obj, p).(T)
	return v
}
