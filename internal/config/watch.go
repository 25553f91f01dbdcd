package config

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "animkit/pkg/logx"
)

const (
	DefaultDebounce = 250 * time.Millisecond

	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// WatchFiles calls onChange (debounced, per file) whenever one of paths is
// written, created, renamed or removed. Parent directories are watched so
// editors that replace files atomically are handled. When fsnotify breaks,
// the watcher is recreated with jittered exponential backoff. WatchFiles
// blocks until ctx is done and then returns nil.
func WatchFiles(ctx context.Context, log logx.Logger, paths []string, debounce time.Duration, onChange func(path string)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	// dir -> lowercased basename -> original path
	dirs := map[string]map[string]string{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		dir, base := filepath.Dir(abs), strings.ToLower(filepath.Base(abs))
		if dirs[dir] == nil {
			dirs[dir] = map[string]string{}
		}
		dirs[dir][base] = p
	}
	if len(dirs) == 0 {
		<-ctx.Done()
		return nil
	}

	d := newDebouncer(debounce, onChange)
	defer d.stop()

	bo := newBackoff()
	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err == nil {
			for dir := range dirs {
				if err = w.Add(dir); err != nil {
					_ = w.Close()
					break
				}
			}
		}
		if err != nil {
			log.Warn("file watch init failed", logx.Err(err))
			if !sleepCtx(ctx, bo.next()) {
				return nil
			}
			continue
		}

		bo.reset()
		log.Debug("file watcher started", logx.Int("dirs", len(dirs)), logx.Int("files", len(paths)))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				files := dirs[filepath.Dir(ev.Name)]
				p, hit := files[strings.ToLower(filepath.Base(ev.Name))]
				if hit && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
					log.Debug("file change detected; scheduling reload", logx.String("path", p))
					d.trigger(p)
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				msg := strings.ToLower(err.Error())
				// Overflow means events may have been missed; reload everything.
				if strings.Contains(msg, "overflow") {
					log.Warn("file watch overflow; forcing reload", logx.Err(err))
					for _, files := range dirs {
						for _, p := range files {
							d.trigger(p)
						}
					}
					continue
				}
				log.Warn("file watch error", logx.Err(err))
				if strings.Contains(msg, "closed") {
					broken = true
				}
			}
		}

		_ = w.Close()
		wait := bo.next()
		log.Warn("file watcher stopped; restarting", logx.Duration("backoff", wait))
		if !sleepCtx(ctx, wait) {
			return nil
		}
	}
}

// debouncer coalesces bursts of events per key into one call.
type debouncer struct {
	delay time.Duration
	fn    func(string)

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func newDebouncer(delay time.Duration, fn func(string)) *debouncer {
	return &debouncer{delay: delay, fn: fn, timers: map[string]*time.Timer{}}
}

func (d *debouncer) trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t := d.timers[key]; t != nil {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		stopped := d.stopped
		delete(d.timers, key)
		d.mu.Unlock()
		if !stopped {
			d.fn(key)
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	for k, t := range d.timers {
		t.Stop()
		delete(d.timers, k)
	}
	d.mu.Unlock()
}

// backoff is a jittered exponential delay between watcher restarts.
type backoff struct {
	cur time.Duration
	rng *rand.Rand
}

func newBackoff() *backoff {
	return &backoff{cur: restartBackoffBase, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (b *backoff) next() time.Duration {
	wait := b.cur + time.Duration(b.rng.Int63n(int64(b.cur/2)+1))
	b.cur = min(b.cur*2, restartBackoffMax)
	return wait
}

func (b *backoff) reset() { b.cur = restartBackoffBase }

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
