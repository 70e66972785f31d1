package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "hwbot/pkg/logx"
)

const (
	// settleDelay lets an editor finish writing before the file is re-read.
	settleDelay = 250 * time.Millisecond

	rewatchMin = 250 * time.Millisecond
	rewatchMax = 5 * time.Second
)

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove | fsnotify.Chmod

// Watch reloads the config whenever the file changes, until ctx is done.
// The parent directory is watched so the file may be created later. A broken
// watcher is recreated with backoff.
func (m *ConfigManager) Watch(ctx context.Context) error {
	if m.path == "" {
		<-ctx.Done()
		return nil
	}
	dir := filepath.Dir(m.path)
	log := m.log.With(logx.String("dir", dir), logx.String("file", filepath.Base(m.path)))

	backoff := rewatchMin
	for {
		w, err := newDirWatcher(dir)
		if err == nil {
			backoff = rewatchMin
			log.Debug("config watcher started")
			m.watchEvents(ctx, w)
			_ = w.Close()
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("config watcher stopped; restarting")
		} else {
			log.Warn("config watch setup failed", logx.Err(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, rewatchMax)
	}
}

func newDirWatcher(dir string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// watchEvents runs until ctx is done or the watcher breaks. Bursts of events
// collapse into one reload after settleDelay.
func (m *ConfigManager) watchEvents(ctx context.Context, w *fsnotify.Watcher) {
	name := filepath.Base(m.path)

	settle := time.NewTimer(settleDelay)
	if !settle.Stop() {
		<-settle.C
	}
	defer settle.Stop()
	schedule := func() {
		settle.Reset(settleDelay)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-settle.C:
			m.reload(ctx)
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if strings.EqualFold(filepath.Base(ev.Name), name) && ev.Op&relevantOps != 0 {
				m.log.Debug("config change detected", logx.String("op", ev.Op.String()))
				schedule()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			switch {
			case err == nil:
			case errors.Is(err, fsnotify.ErrEventOverflow):
				// Events may have been lost.
				m.log.Warn("config watch overflow; forcing reload", logx.Err(err))
				schedule()
			case errors.Is(err, fsnotify.ErrClosed):
				return
			default:
				m.log.Warn("config watch error", logx.Err(err))
			}
		}
	}
}
