package interp

import "fmt"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (Point) InterpolateTo(from, to Point, t float64) Point {
	return Point{X: Lerp(from.X, to.X, t), Y: Lerp(from.Y, to.Y, t)}
}

func (p Point) String() string { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// ParsePoint accepts a two-element numeric slice, as decoded from JSON/YAML.
func ParsePoint(v any) (Point, error) {
	xs, ok := v.([]any)
	if !ok || len(xs) != 2 {
		return Point{}, fmt.Errorf("point: want [x, y], got %v", v)
	}
	var out [2]float64
	for i, x := range xs {
		f, ok := x.(float64)
		if !ok {
			return Point{}, fmt.Errorf("point: element %d is %T, want number", i, x)
		}
		out[i] = f
	}
	return Point{X: out[0], Y: out[1]}, nil
}
