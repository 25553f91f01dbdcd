package animation

import "errors"

var (
	ErrNotStarted = errors.New("animation scheduler not started")
	ErrStopped    = errors.New("animation scheduler stopped")
	ErrNoName     = errors.New("animation name is required")
	ErrNoStep     = errors.New("animation step callback is required")
	ErrStepPanic  = errors.New("animation step panicked")
)
