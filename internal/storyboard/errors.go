package storyboard

import (
	"errors"
	"fmt"
	"reflect"

	"animkit/internal/props"
)

var (
	// ErrUnsupported is returned by Pause, Resume and Loop.
	ErrUnsupported = fmt.Errorf("storyboard: %w", errors.ErrUnsupported)

	// ErrTypeMismatch is shared with props so either sentinel matches.
	ErrTypeMismatch = props.ErrTypeMismatch

	ErrNoScheduler     = errors.New("storyboard: no scheduler")
	ErrUnknownTimeline = errors.New("storyboard: unsupported timeline kind")
)

// ConfigError reports a child whose value type does not fit the property it
// is bound to. Begin returns it before anything is committed.
type ConfigError struct {
	Storyboard string
	Index      int
	Property   string
	Want       reflect.Type // the property's declared type
	Got        reflect.Type // the timeline's value type
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("storyboard %s: child %d: property %s is %s, timeline animates %s",
		e.Storyboard, e.Index, e.Property, typeName(e.Want), typeName(e.Got))
}

func (e *ConfigError) Unwrap() error { return ErrTypeMismatch }

func typeName(t reflect.Type) string {
	if t == nil {
		return "<any>"
	}
	return t.String()
}
