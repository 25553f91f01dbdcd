package app

import (
	"context"
	"time"

	"animkit/internal/animation"
	"animkit/internal/eventbus"
	"animkit/internal/journal"
	logx "animkit/pkg/logx"
)

const journalWriteTimeout = 2 * time.Second

// recordEvents logs bus events and appends finished runs to the journal.
// Events still buffered when ctx ends are drained so shutdown aborts are
// recorded too.
func (a *App) recordEvents(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e, ok := <-events:
					if !ok {
						return
					}
					a.recordEvent(e)
				default:
					return
				}
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			a.recordEvent(e)
		}
	}
}

func (a *App) recordEvent(e eventbus.Event) {
	switch e.Type {
	case eventbus.AnimationFinished, eventbus.AnimationAborted, eventbus.AnimationFailed:
		res, ok := e.Data.(animation.Result)
		if !ok {
			return
		}
		a.log.Debug("event", logx.String("type", e.Type), logx.String("name", res.Name), logx.Time("at", e.Time))
		if a.jrnl == nil {
			return
		}
		// The app context may already be gone here; journal writes get their own.
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		defer cancel()
		if err := a.jrnl.Append(ctx, journal.FromResult(res)); err != nil {
			a.log.Warn("journal append failed", logx.String("name", res.Name), logx.Err(err))
		}
	case eventbus.PropertyChanged:
		// Too chatty for debug: one per tick per property.
		if a.log.Enabled(logx.LevelTrace) {
			a.log.Trace("event", logx.String("type", e.Type))
		}
	default:
		a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
	}
}

// History returns up to n journaled runs, newest first.
func (a *App) History(ctx context.Context, n int) ([]journal.Record, error) {
	if a.jrnl == nil {
		return nil, journal.ErrDisabled
	}
	return a.jrnl.Recent(ctx, n)
}
