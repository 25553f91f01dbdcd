// Package storyboard compiles ordered collections of timelines into a single
// animation.Animation tree and commits it to a scheduler.
//
// Timelines never hold their targets: the (target, property) binding is a
// pair of attached values in a props.Store, and compiled update closures only
// keep weak references, so a collected target silently stops receiving
// writes.
package storyboard
