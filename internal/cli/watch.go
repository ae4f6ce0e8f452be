package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce collapses the bursts of events editors produce on save.
const debounce = 100 * time.Millisecond

// Watch calls onChange each time the file at path is written, until ctx is
// done. The parent directory is watched so that editors replacing the file
// through a rename are followed. Errors returned by onChange are logged and
// do not stop the watch.
func Watch(ctx context.Context, path string, log *zap.Logger, onChange func() error) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	log.Info("watching model", zap.String("path", path))

	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				log.Debug("model changed", zap.Stringer("op", event.Op))
				fire = time.After(debounce)
			}

		case <-fire:
			fire = nil
			if err := onChange(); err != nil {
				log.Error("regeneration failed", zap.Error(err))
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}
