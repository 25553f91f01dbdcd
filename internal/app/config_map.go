package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"animkit/internal/animation"
	"animkit/internal/config"
	"animkit/internal/journal"
	"animkit/internal/observability/diag"
	logx "animkit/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	if cfg == nil {
		return logx.Config{Level: "info", Console: true}
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapSchedulerConfig(cfg *config.Config) (animation.Config, error) {
	if cfg == nil {
		return animation.Config{}, nil
	}
	s, err := cfg.Scheduler.Settings()
	if err != nil {
		return animation.Config{}, err
	}
	return animation.Config{Rate: s.TickInterval, HistorySize: s.HistorySize, SlowTick: s.SlowTickWarn}, nil
}

// mapJournalConfig resolves a relative journal path against base.
func mapJournalConfig(cfg *config.Config, base string) (journal.Config, bool, error) {
	if cfg == nil || cfg.Journal == nil {
		return journal.Config{}, false, nil
	}
	jc := cfg.Journal
	driver := strings.ToLower(strings.TrimSpace(jc.Driver))
	if driver == "" || driver == "none" {
		return journal.Config{}, false, nil
	}
	path := strings.TrimSpace(jc.Path)
	if path == "" {
		path = config.DefaultJournalPath
	}
	if base != "" && !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}

	switch driver {
	case "file":
		return journal.Config{Driver: driver, Path: path}, true, nil
	case "sqlite", "sqlite3":
		busy, err := config.ParseDurationOrDefault("journal.busy_timeout", jc.BusyTimeout, time.Second)
		if err != nil {
			return journal.Config{}, false, err
		}
		return journal.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return journal.Config{}, false, fmt.Errorf("unknown journal.driver: %s", jc.Driver)
	}
}

func mapDiagConfig(cfg *config.Config) (diag.Config, error) {
	if cfg == nil {
		return diag.Config{}, nil
	}
	d := cfg.Debug
	rt, err := config.ParseDurationOrDefault("debug.read_timeout", d.ReadTimeout, 10*time.Second)
	if err != nil {
		return diag.Config{}, err
	}
	// profile and trace stream for their ?seconds= window; keep the write timeout above it.
	wt, err := config.ParseDurationOrDefault("debug.write_timeout", d.WriteTimeout, 60*time.Second)
	if err != nil {
		return diag.Config{}, err
	}
	return diag.Config{
		Enabled:       d.Enabled,
		Addr:          strings.TrimSpace(d.Addr),
		Token:         strings.TrimSpace(d.Token),
		AllowInsecure: d.AllowInsecure,
		ReadTimeout:   rt,
		WriteTimeout:  wt,
	}, nil
}
