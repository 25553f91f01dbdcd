package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"animkit/internal/app"
	logx "animkit/pkg/logx"
)

func main() {
	var (
		cfgPath string
		history int
	)
	flag.StringVar(&cfgPath, "config", "./animkit.yaml", "path to config (yaml or json)")
	flag.IntVar(&history, "history", 0, "print the last N journaled runs and exit")
	flag.Parse()

	// Used until the configured logger exists, and for fatal exits.
	boot := logx.NewConsole("info")

	a, err := app.New(cfgPath, flag.Args()...)
	if err != nil {
		boot.Error("fatal: load", logx.String("config", cfgPath), logx.Err(err))
		os.Exit(1)
	}

	if history > 0 {
		os.Exit(printHistory(a, history))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sigReason atomic.Value // app.StopReason
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case s := <-sigs:
			if s == syscall.SIGTERM {
				sigReason.Store(app.StopSIGTERM)
			} else {
				sigReason.Store(app.StopSIGINT)
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.Start(ctx); err != nil {
		boot.Error("fatal: start", logx.Err(err))
		os.Exit(1)
	}

	reason, code := app.StopPlayedAll, 0
	if err := a.PlayAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		boot.Error("play failed", logx.Err(err))
		reason, code = app.StopFatalError, 1
	}

	// Watch mode keeps replaying edited documents until interrupted.
	if code == 0 && a.Watching() {
		select {
		case <-ctx.Done():
		case <-a.Done():
			if err := a.Err(); err != nil {
				boot.Error("fatal: supervisor", logx.Err(err))
				reason, code = app.StopFatalError, 1
			}
		}
	}

	if r, ok := sigReason.Load().(app.StopReason); ok && code == 0 {
		reason = r
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	if code != 0 {
		os.Exit(code)
	}
}

func printHistory(a *app.App, n int) int {
	defer a.Stop(context.Background(), app.StopAppStop)

	recs, err := a.History(context.Background(), n)
	if err != nil {
		logx.NewConsole("info").Error("history unavailable", logx.Err(err))
		return 1
	}
	for _, r := range recs {
		line := fmt.Sprintf("%-24s %-9s %8s  %s ticks  %s",
			r.Name, r.Outcome, r.Took().Round(time.Millisecond), humanize.Comma(int64(r.Ticks)), humanize.Time(r.Started))
		if r.Error != "" {
			line += "  error: " + r.Error
		}
		fmt.Println(line)
	}
	return 0
}
