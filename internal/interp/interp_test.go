package interp

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPointInterpolate(t *testing.T) {
	t.Parallel()
	from, to := Point{X: 0, Y: 10}, Point{X: 100, Y: -10}
	tests := []struct {
		t    float64
		want Point
	}{
		{0, from},
		{0.5, Point{X: 50, Y: 0}},
		{1, to},
		{1.1, Point{X: 110, Y: -12}},
	}
	for _, tt := range tests {
		got := Interpolate(from, to, tt.t)
		if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) {
			t.Fatalf("Interpolate(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestColorInterpolateClamps(t *testing.T) {
	t.Parallel()
	black := Color{A: 1}
	white := Color{R: 1, G: 1, B: 1, A: 1}

	mid := Interpolate(black, white, 0.5)
	if !near(mid.R, 0.5) || !near(mid.A, 1) {
		t.Fatalf("mid = %+v", mid)
	}
	over := Interpolate(black, white, 1.3)
	if over.R != 1 {
		t.Fatalf("overshoot not clamped: %+v", over)
	}
}

func TestParseColor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"red", "#ff0000ff"},
		{"CornflowerBlue", "#6495edff"},
		{"#00ff00", "#00ff00ff"},
		{"#fff", "#ffffffff"},
		{"#0000ff80", "#0000ff80"},
	}
	for _, tt := range tests {
		c, err := ParseColor(tt.in)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", tt.in, err)
		}
		if got := c.Hex(); got != tt.want {
			t.Fatalf("ParseColor(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "notacolor", "#12", "#gggggg"} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("ParseColor(%q) should fail", bad)
		}
	}
}

func TestParsePoint(t *testing.T) {
	t.Parallel()
	p, err := ParsePoint([]any{1.5, -2.0})
	if err != nil || p != (Point{X: 1.5, Y: -2}) {
		t.Fatalf("ParsePoint = %v, %v", p, err)
	}
	if _, err := ParsePoint([]any{"x", 1.0}); err == nil {
		t.Fatal("expected error for non-numeric element")
	}
}
