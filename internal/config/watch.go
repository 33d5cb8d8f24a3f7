package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"vibetrader/internal/logger"
)

// Watch re-loads the config whenever the file changes and hands the new
// value to onChange. A load failure keeps the previous config in effect.
// Editors often replace the file instead of writing in place, so the path
// is re-added after rename/remove events. Blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}

	var debounce *time.Timer
	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			logger.Warnf("config reload skipped: %v", err)
			return
		}
		onChange(cfg)
		logger.Infof("config reloaded from %s", path)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				// wait for the editor to finish the replace
				time.Sleep(100 * time.Millisecond)
				_ = watcher.Add(path)
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}
