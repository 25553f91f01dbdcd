package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"animkit/internal/animation"
	"animkit/internal/config"
	"animkit/internal/eventbus"
	"animkit/internal/journal"
	"animkit/internal/observability/diag"
	"animkit/internal/props"
	"animkit/internal/runtime/supervisor"
	"animkit/internal/script"
	logx "animkit/pkg/logx"
)

// App wires config, logging, the event bus, the tick scheduler, the run
// journal and storyboard documents together.
type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store *props.Store
	sched *animation.Scheduler
	jrnl  journal.Store
	diag  *diag.Service

	// extra are document paths given on the command line.
	extra []string

	mu     sync.Mutex
	scenes map[string]*script.Scene // by document path
}

// New loads the config at cfgPath and builds every component. Nothing runs
// until Start.
func New(cfgPath string, extra ...string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	return newApp(cfgm, cfg, extra)
}

func newApp(cfgm *config.ConfigManager, cfg *config.Config, extra []string) (*App, error) {
	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	sched := animation.NewScheduler(schedCfg, log.With(logx.String("comp", "scheduler")), bus)

	diagCfg, err := mapDiagConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	var jrnl journal.Store
	if jc, enabled, err := mapJournalConfig(cfg, cfgm.Dir()); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := journal.Open(jc, log)
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		jrnl = st
		log.Info("journal enabled", logx.String("driver", jc.Driver), logx.String("path", jc.Path))
	}

	return &App{
		cfgm:   cfgm,
		log:    log,
		logs:   logSvc,
		bus:    bus,
		store:  props.NewStore().WithBus(bus),
		sched:  sched,
		jrnl:   jrnl,
		diag:   diag.New(diagCfg, log.With(logx.String("comp", "diag")), sched.Snapshot),
		extra:  extra,
		scenes: map[string]*script.Scene{},
	}, nil
}

func (a *App) Scheduler() *animation.Scheduler { return a.sched }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Documents returns the configured document paths followed by the extra ones.
func (a *App) Documents() []string {
	var out []string
	seen := map[string]bool{}
	if cfg := a.cfgm.Get(); cfg != nil {
		for _, p := range cfg.StoryboardPaths(a.cfgm.Dir()) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	for _, p := range a.extra {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Watching reports whether documents are replayed on change.
func (a *App) Watching() bool {
	cfg := a.cfgm.Get()
	return cfg != nil && cfg.Watch
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapSchedulerConfig(cfg); err != nil {
			return err
		}
		if _, err := mapDiagConfig(cfg); err != nil {
			return err
		}
		_, _, err := mapJournalConfig(cfg, a.cfgm.Dir())
		return err
	})

	a.sched.Start(a.sup.Context())
	a.diag.Start(a.sup.Context())

	events, unsub := a.bus.Subscribe(256)
	a.sup.Go0("eventbus.record", func(c context.Context) {
		defer unsub()
		a.recordEvents(c, events)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	if a.Watching() {
		a.sup.Go("documents.watch", func(c context.Context) error {
			return a.watchDocuments(c)
		})
	}

	a.log.Info("app started", logx.Int("documents", len(a.Documents())), logx.Bool("watch", a.Watching()))
	return nil
}

func (a *App) reloadLoop(c context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-c.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}

			sections, attrs := config.SummarizeConfigChange(lastApplied, newCfg)
			lastApplied = newCfg
			if len(sections) == 0 {
				a.log.Info("config reloaded (no changes)")
				continue
			}

			a.logs.Apply(mapLoggingConfig(newCfg))
			if sc, err := mapSchedulerConfig(newCfg); err != nil {
				a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
			} else {
				a.sched.Apply(sc)
			}
			for _, s := range sections {
				switch s {
				case "debug":
					if dc, err := mapDiagConfig(newCfg); err != nil {
						a.log.Warn("invalid debug config; keeping previous", logx.Err(err))
					} else {
						a.diag.Reconfigure(c, dc)
					}
				case "journal", "storyboards", "watch":
					a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
				}
			}

			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
		}
	}
}

// Stop shuts components down in order, bounding each step so one component
// can't stall the whole stop.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		a.closeResources()
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// The scheduler goes first so aborted runs still reach the recorder.
	a.step(ctx, "scheduler", 2*time.Second, a.sched.Stop)

	a.step(ctx, "diag", 2*time.Second, func(c context.Context) error {
		a.diag.Stop(c)
		return nil
	})

	a.sup.Cancel()
	a.step(ctx, "supervisor", 2*time.Second, a.sup.Wait)

	a.log.Info("stopped")
	a.closeResources()
	return nil
}

func (a *App) closeResources() {
	if a.jrnl != nil {
		if err := a.jrnl.Close(); err != nil {
			a.log.Warn("journal close failed", logx.Err(err))
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}

func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()

	// respect the caller's deadline; never extend it
	if dl, ok := ctx.Deadline(); ok {
		max = min(max, time.Until(dl))
	}
	if max <= 0 {
		a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
