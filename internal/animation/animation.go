package animation

import (
	"time"

	"animkit/internal/interp"
	"animkit/pkg/easing"
)

// windowEpsilon absorbs float error when deciding a window has been reached.
const windowEpsilon = 1e-9

// Animation is a node of the composition tree.
//
// A node's own step receives its progress mapped into [start, end]. Each
// child owns a window [begin, begin+span] of its parent's progress. A window
// may hang past either end of [0,1]; the child is then cut off, never
// rescaled, and only finishes if its local progress actually reaches 1.
//
// Children without an easing window on the parent's eased progress. A child
// with its own easing replaces the inherited curve: it windows on the raw
// progress and eases that.
//
// A tree is built for a single run and is driven from one goroutine.
type Animation struct {
	step       func(float64) error
	start, end float64
	easing     easing.Func
	finished   func()

	begin, span float64
	children    []*Animation
	done        bool
}

// New creates a node. step, ease and finished may be nil; a nil ease
// inherits the progress curve of the parent.
func New(step func(float64) error, start, end float64, ease easing.Func, finished func()) *Animation {
	return &Animation{step: step, start: start, end: end, easing: ease, finished: finished, span: 1}
}

// Add nests child under a for the window [begin, end] of a's progress and
// returns a. Siblings may overlap; an inverted window collapses to begin.
func (a *Animation) Add(begin, end float64, child *Animation) *Animation {
	if child == nil {
		return a
	}
	if end < begin {
		end = begin
	}
	child.begin = begin
	child.span = end - begin
	a.children = append(a.children, child)
	return a
}

// Len reports the number of direct children.
func (a *Animation) Len() int { return len(a.children) }

// Callback returns the dispatch function a scheduler drives with raw
// (uneased) progress.
func (a *Animation) Callback() func(progress float64) error {
	return func(p float64) error { return a.apply(p, a.easing.Ease(p)) }
}

// Reset clears finish state so the tree can be driven again.
func (a *Animation) Reset() {
	a.done = false
	for _, c := range a.children {
		c.Reset()
	}
}

// local maps parent progress v into the child's window. The first value at
// or past the window end yields exactly 1.
func (a *Animation) local(v float64) float64 {
	if a.span <= 0 || v >= a.begin+a.span-windowEpsilon {
		return 1
	}
	return clamp01((v - a.begin) / a.span)
}

// apply drives the node with its raw progress and its eased progress.
func (a *Animation) apply(raw, p float64) error {
	if a.step != nil {
		if err := a.step(interp.Lerp(a.start, a.end, p)); err != nil {
			return err
		}
	}
	for _, c := range a.children {
		if c.done {
			continue
		}
		src := p
		if c.easing != nil {
			src = raw
		}
		// A window starting at or past the parent's end is never entered.
		if src < c.begin || (c.span > 0 && c.begin >= 1) {
			continue
		}
		local := c.local(src)
		childP := local
		if c.easing != nil {
			childP = c.easing.Ease(local)
		}
		if err := c.apply(c.local(raw), childP); err != nil {
			return err
		}
		if local >= 1 {
			c.done = true
			if c.finished != nil {
				c.finished()
			}
		}
	}
	return nil
}

// CommitOptions tunes Animation.Commit.
type CommitOptions struct {
	Rate   time.Duration
	Length time.Duration
	// Easing overrides the root's own easing for the whole run.
	Easing   easing.Func
	Finished func(Result)
	Repeat   func() bool
}

// Commit hands the tree to c under name. The run carries raw progress and
// the tree applies the root easing itself, so children with their own
// easing never see the root curve. The root's finished callback fires after
// the final tick (so after every descendant's) and only when the run
// completed; opts.Finished always fires.
func (a *Animation) Commit(c Committer, name string, opts CommitOptions) error {
	ease := opts.Easing
	if ease == nil {
		ease = a.easing
	}
	return c.Commit(name, Run{
		Rate:   opts.Rate,
		Length: opts.Length,
		Step: func(raw float64) error {
			return a.apply(raw, ease.Ease(raw))
		},
		Finished: func(res Result) {
			if res.Err == nil && !res.Canceled && a.finished != nil {
				a.finished()
			}
			if opts.Finished != nil {
				opts.Finished(res)
			}
		},
		Repeat: opts.Repeat,
		Reset:  a.Reset,
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
