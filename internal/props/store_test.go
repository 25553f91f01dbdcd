package props

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"animkit/internal/eventbus"
)

func TestSetGetAndDefault(t *testing.T) {
	t.Parallel()
	s := NewStore()
	opacity := NewProperty("Opacity", 1.0)
	box := NewObject("box")

	if got := Value[float64](s, box, opacity); got != 1.0 {
		t.Fatalf("default = %v, want 1", got)
	}
	if err := s.SetValue(box, opacity, 0.25); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if got := s.GetValue(box, opacity); got != 0.25 {
		t.Fatalf("GetValue = %v, want 0.25", got)
	}
	if _, ok := s.Lookup(NewObject("other"), opacity); ok {
		t.Fatal("values must be keyed by object identity")
	}

	s.ClearValue(box, opacity)
	if _, ok := s.Lookup(box, opacity); ok {
		t.Fatal("ClearValue left a value behind")
	}
}

func TestSetValueTypeMismatch(t *testing.T) {
	t.Parallel()
	s := NewStore()
	label := NewProperty("Label", "")
	err := s.SetValue(NewObject("box"), label, 3.5)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("err = %v, want ErrTypeMismatch", err)
	}
	if err := s.SetValue(nil, label, "x"); !errors.Is(err, ErrNilObject) {
		t.Fatalf("nil object err = %v", err)
	}
}

func TestInterfaceTypedProperty(t *testing.T) {
	t.Parallel()
	s := NewStore()
	target := NewProperty[Bindable]("Target", nil)
	obj := NewObject("box")
	if err := s.SetValue(obj, target, NewObject("other")); err != nil {
		t.Fatalf("interface property should accept implementations: %v", err)
	}
	if err := s.SetValue(obj, target, 42); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("err = %v, want mismatch", err)
	}
}

func TestStoreDoesNotKeepObjectsAlive(t *testing.T) {
	s := NewStore()
	p := NewProperty("X", 0.0)
	func() {
		obj := NewObject("ephemeral")
		if err := s.SetValue(obj, p, 1.0); err != nil {
			t.Fatal(err)
		}
	}()
	for i := 0; i < 5 && s.Len() > 0; i++ {
		runtime.GC()
	}
	if n := s.Len(); n != 0 {
		t.Fatalf("Len = %d after GC, want 0", n)
	}
}

func TestStorePublishesChanges(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	s := NewStore().WithBus(bus)
	p := NewProperty("Opacity", 0.0)
	if err := s.SetValue(NewObject("box"), p, 0.5); err != nil {
		t.Fatal(err)
	}
	select {
	case e := <-ch:
		c, ok := e.Data.(Change)
		if e.Type != eventbus.PropertyChanged || !ok || c.Property != "Opacity" || c.Value != 0.5 {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}
}
