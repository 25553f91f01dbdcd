package config

import (
	"slices"
	"strings"

	logx "animkit/pkg/logx"
)

// SummarizeConfigChange returns the changed section names and structured
// attrs describing their new values, for logging a reload.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if strings.TrimSpace(oldCfg.Scheduler.TickInterval) != strings.TrimSpace(newCfg.Scheduler.TickInterval) ||
		oldCfg.Scheduler.HistorySize != newCfg.Scheduler.HistorySize ||
		strings.TrimSpace(oldCfg.Scheduler.SlowTickWarn) != strings.TrimSpace(newCfg.Scheduler.SlowTickWarn) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.tick_interval", strings.TrimSpace(newCfg.Scheduler.TickInterval)),
			logx.Int("scheduler.history_size", newCfg.Scheduler.HistorySize),
			logx.String("scheduler.slow_tick_warn", strings.TrimSpace(newCfg.Scheduler.SlowTickWarn)),
		)
	}

	oj, nj := journalOrZero(oldCfg.Journal), journalOrZero(newCfg.Journal)
	if (oldCfg.Journal == nil) != (newCfg.Journal == nil) || oj != nj {
		changed = append(changed, "journal")
		attrs = append(attrs,
			logx.Bool("journal.enabled", newCfg.Journal != nil),
			logx.String("journal.driver", nj.Driver),
		)
	}

	if !slices.Equal(oldCfg.Storyboards, newCfg.Storyboards) {
		changed = append(changed, "storyboards")
		attrs = append(attrs, logx.Int("storyboards.count", len(newCfg.Storyboards)))
	}

	if oldCfg.Watch != newCfg.Watch {
		changed = append(changed, "watch")
		attrs = append(attrs, logx.Bool("watch", newCfg.Watch))
	}

	if oldCfg.Debug != newCfg.Debug {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", newCfg.Debug.Enabled),
			logx.String("debug.addr", strings.TrimSpace(newCfg.Debug.Addr)),
			logx.Bool("debug.token_set", newCfg.Debug.Token != ""),
		)
	}

	return changed, attrs
}

func journalOrZero(j *JournalConfig) JournalConfig {
	if j == nil {
		return JournalConfig{}
	}
	return *j
}
