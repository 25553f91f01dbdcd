package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"animkit/internal/animation"
	"animkit/internal/config"
	"animkit/internal/eventbus"
	"animkit/internal/script"
	"animkit/internal/storyboard"
	logx "animkit/pkg/logx"
)

// Play loads the document at path, builds its scene and begins its
// storyboard. A document already playing under the same name is replaced.
// The returned channel receives the run's result once.
func (a *App) Play(ctx context.Context, path string) (*script.Scene, <-chan animation.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	doc, err := script.Load(path)
	if err != nil {
		return nil, nil, err
	}
	log := a.log.With(logx.String("comp", "storyboard"), logx.String("document", doc.Name))
	scene, err := doc.Build(a.store, a.sched, storyboard.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}

	done := make(chan animation.Result, 1)
	scene.Storyboard.Failed = func(err error) {
		if errors.Is(err, animation.ErrStopped) {
			return
		}
		log.Warn("storyboard failed", logx.Err(err))
	}
	scene.Storyboard.Finished = func(res animation.Result) {
		done <- res
	}
	if err := scene.Storyboard.Begin(); err != nil {
		return nil, nil, err
	}

	a.mu.Lock()
	a.scenes[path] = scene
	a.mu.Unlock()

	log.Info("storyboard playing", logx.String("path", path), logx.Int("timelines", len(doc.Timelines)))
	return scene, done, nil
}

// Scene returns the scene most recently played from path.
func (a *App) Scene(path string) (*script.Scene, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.scenes[path]
	return s, ok
}

// PlayAll plays every document concurrently and waits for all of them to
// finish. Canceling ctx ends the runs still playing. The first document that
// can't be loaded or begun cancels the others.
func (a *App) PlayAll(ctx context.Context) error {
	paths := a.Documents()
	if len(paths) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		g.Go(func() error {
			scene, done, err := a.Play(gctx, p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			select {
			case res := <-done:
				a.log.Info("storyboard finished",
					logx.String("document", scene.Name),
					logx.String("outcome", res.Outcome()),
					logx.Duration("took", res.Took),
				)
				return nil
			case <-gctx.Done():
				scene.Storyboard.End()
				<-done
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}

// watchDocuments replays a document whenever its file changes.
func (a *App) watchDocuments(ctx context.Context) error {
	paths := a.Documents()
	log := a.log.With(logx.String("comp", "documents.watch"))
	return config.WatchFiles(ctx, log, paths, config.DefaultDebounce, func(path string) {
		if _, _, err := a.Play(ctx, path); err != nil {
			log.Warn("document reload failed", logx.String("path", path), logx.Err(err))
			return
		}
		eventbus.Publish(a.bus, eventbus.DocumentReloaded, path)
		log.Info("document reloaded", logx.String("path", path))
	})
}
