// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long Watch waits after the last write before calling fn,
// so one save that produces several events triggers one reload.
const settle = 200 * time.Millisecond

// Watch calls fn each time the file at path is written or replaced, until
// ctx is done. The parent directory is watched so that editors which save
// by rename are seen too.
func (l *Loader) Watch(ctx context.Context, path string, fn func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	l.logger.Info("watching corpus", "path", abs)

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(settle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("watch error", "path", abs, "error", err)
		case <-timer.C:
			l.logger.Info("corpus changed", "path", abs)
			fn()
		}
	}
}
