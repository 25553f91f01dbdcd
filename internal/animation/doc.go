// Package animation drives time-windowed update callbacks.
//
// It has two halves:
//   - Animation, a composition tree whose children each own a normalized
//     [begin, end] window of their parent's [0,1] run
//   - Scheduler, a named periodic-tick driver that feeds a run's progress
//     into a step callback until the run completes or is aborted
//
// Storyboards compile into an Animation and commit it through the Committer
// interface; nothing in this package knows about properties or targets.
package animation
