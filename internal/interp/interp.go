// Package interp defines the interpolation capability typed timelines rely on,
// together with the value types animkit ships with.
package interp

// Interpolatable is implemented by value types that can produce the value at
// fraction t between two instances of themselves. Implementations must be
// pure and total; t may leave [0,1] under overshooting easing curves.
type Interpolatable[T any] interface {
	InterpolateTo(from, to T, t float64) T
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Interpolate is a convenience for calling the capability through a zero value.
func Interpolate[T Interpolatable[T]](from, to T, t float64) T {
	var zero T
	return zero.InterpolateTo(from, to, t)
}
