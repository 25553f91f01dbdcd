// Package easing maps normalized elapsed time to normalized progress.
//
// Every curve satisfies f(0) == 0 and f(1) == 1. Spring curves overshoot in
// between, so callers must not assume the output stays inside [0,1].
package easing

import (
	"math"
	"sort"
	"strings"
)

// Func is a pure easing curve.
type Func func(t float64) float64

// Ease applies f to t. A nil Func is linear.
func (f Func) Ease(t float64) float64 {
	if f == nil {
		return t
	}
	return f(t)
}

var (
	Linear Func = func(t float64) float64 { return t }

	SinIn    Func = func(t float64) float64 { return -math.Cos(t*math.Pi/2) + 1 }
	SinOut   Func = func(t float64) float64 { return math.Sin(t * math.Pi / 2) }
	SinInOut Func = func(t float64) float64 { return -math.Cos(math.Pi*t)/2 + 0.5 }

	CubicIn  Func = func(t float64) float64 { return t * t * t }
	CubicOut Func = func(t float64) float64 {
		u := t - 1
		return u*u*u + 1
	}
	CubicInOut Func = func(t float64) float64 {
		if t < 0.5 {
			return 4 * t * t * t
		}
		u := -2*t + 2
		return 1 - u*u*u/2
	}

	BounceOut Func = bounceOut
	BounceIn  Func = func(t float64) float64 { return 1 - bounceOut(1-t) }

	SpringIn  Func = func(t float64) float64 { return t * t * ((springOvershoot+1)*t - springOvershoot) }
	SpringOut Func = func(t float64) float64 {
		u := t - 1
		return u*u*((springOvershoot+1)*u+springOvershoot) + 1
	}
)

const springOvershoot = 1.70158

func bounceOut(t float64) float64 {
	const n, d = 7.5625, 2.75
	switch {
	case t < 1/d:
		return n * t * t
	case t < 2/d:
		t -= 1.5 / d
		return n*t*t + 0.75
	case t < 2.5/d:
		t -= 2.25 / d
		return n*t*t + 0.9375
	default:
		t -= 2.625 / d
		return n*t*t + 0.984375
	}
}

var byName = map[string]Func{
	"linear":       Linear,
	"sin_in":       SinIn,
	"sin_out":      SinOut,
	"sin_in_out":   SinInOut,
	"cubic_in":     CubicIn,
	"cubic_out":    CubicOut,
	"cubic_in_out": CubicInOut,
	"bounce_in":    BounceIn,
	"bounce_out":   BounceOut,
	"spring_in":    SpringIn,
	"spring_out":   SpringOut,
}

// ByName resolves a curve by its snake_case name ("cubic_in_out").
// Dashes and case are ignored; the empty name is linear.
func ByName(name string) (Func, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	if key == "" {
		return Linear, true
	}
	f, ok := byName[key]
	return f, ok
}

// Names lists the curves ByName understands.
func Names() []string {
	out := make([]string, 0, len(byName))
	for k := range byName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
