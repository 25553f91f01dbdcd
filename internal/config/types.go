package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Defaults applied when a field is omitted.
const (
	DefaultTickInterval = 16 * time.Millisecond
	DefaultHistorySize  = 100
	DefaultJournalPath  = "./animkit_journal"
)

type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`

	// Journal is optional; when omitted finished runs are only logged.
	Journal *JournalConfig `json:"journal,omitempty"`

	// Storyboards lists document files to play. Relative paths are resolved
	// against the config file's directory.
	Storyboards []string `json:"storyboards,omitempty"`

	// Watch replays a document whenever its file changes.
	Watch bool `json:"watch,omitempty"`

	// Debug serves health, run snapshots and pprof over HTTP.
	Debug DebugConfig `json:"debug"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the tick scheduler.
//
// All durations are Go duration strings (e.g. "16ms", "1s").
//
// Defaults (when fields are omitted/zero):
//   - tick_interval: "16ms"
//   - history_size: 100
//   - slow_tick_warn: "0s" (warn when a tick outlasts its own interval)
type SchedulerConfig struct {
	TickInterval string `json:"tick_interval,omitempty"`
	HistorySize  int    `json:"history_size,omitempty"`
	SlowTickWarn string `json:"slow_tick_warn,omitempty"`
}

// JournalConfig selects where finished runs are recorded.
//
// Example:
//
//	"journal": { "driver": "file", "path": "./animkit_journal" }
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DebugConfig controls the optional diagnostics HTTP server.
//
// Security:
//   - Prefer binding to localhost (default "127.0.0.1:6060").
//   - A non-loopback addr needs Token or AllowInsecure.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	ReadTimeout   string `json:"read_timeout,omitempty"`
	WriteTimeout  string `json:"write_timeout,omitempty"`
}

// SchedulerSettings is SchedulerConfig with durations parsed and defaults applied.
type SchedulerSettings struct {
	TickInterval time.Duration
	HistorySize  int
	SlowTickWarn time.Duration
}

func (s SchedulerConfig) Settings() (SchedulerSettings, error) {
	tick, err := ParseDurationOrDefault("scheduler.tick_interval", s.TickInterval, DefaultTickInterval)
	if err != nil {
		return SchedulerSettings{}, err
	}
	slow, err := ParseDurationField("scheduler.slow_tick_warn", s.SlowTickWarn)
	if err != nil {
		return SchedulerSettings{}, err
	}
	if s.HistorySize < 0 {
		return SchedulerSettings{}, fmt.Errorf("scheduler.history_size: must be >= 0")
	}
	hs := s.HistorySize
	if hs == 0 {
		hs = DefaultHistorySize
	}
	return SchedulerSettings{TickInterval: tick, HistorySize: hs, SlowTickWarn: slow}, nil
}

// Validate checks every field that is parsed lazily elsewhere, so a bad
// reload is rejected before it is committed.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := c.Scheduler.Settings(); err != nil {
		return err
	}
	if j := c.Journal; j != nil {
		switch strings.ToLower(strings.TrimSpace(j.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("journal.driver: unknown driver %q", j.Driver)
		}
		if _, err := ParseDurationField("journal.busy_timeout", j.BusyTimeout); err != nil {
			return err
		}
	}
	if _, err := ParseDurationField("debug.read_timeout", c.Debug.ReadTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("debug.write_timeout", c.Debug.WriteTimeout); err != nil {
		return err
	}
	for i, p := range c.Storyboards {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("storyboards[%d]: empty path", i)
		}
	}
	return nil
}

// StoryboardPaths returns the document paths resolved against base (usually
// the config file's directory).
func (c *Config) StoryboardPaths(base string) []string {
	out := make([]string, 0, len(c.Storyboards))
	for _, p := range c.Storyboards {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) && base != "" {
			p = filepath.Join(base, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}
