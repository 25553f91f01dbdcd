// Package script loads storyboard documents (YAML or JSON) and builds live
// storyboards with their targets from them.
//
// A document declares named targets with initial property values, and an
// ordered list of timelines animating those properties:
//
//	name: intro
//	easing: cubic_out
//	targets:
//	  box: {opacity: 0.0, fill: "#ff0000", origin: [0, 0]}
//	timelines:
//	  - {target: box, property: opacity, kind: double, from: 0, to: 1, duration: 500ms}
//	  - {target: box, property: fill, kind: color, from: red, to: "#0000ff", begin: 250ms, duration: 1s}
//
// Property types are inferred from initial values: numbers are float64,
// color strings are interp.Color, [x, y] pairs are interp.Point, and
// anything else keeps its decoded type. Timeline kinds are not checked
// against property types here; a mismatch surfaces from Storyboard.Begin.
package script
