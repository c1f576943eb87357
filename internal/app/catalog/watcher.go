package catalog

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"
)

// Watch reloads catalog sounds whenever their files are written or replaced.
// It blocks until ctx is done.
func Watch(ctx context.Context, c *Catalog) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer w.Close()

	// Watch directories so editors that replace files by rename are still seen
	dirs := make(map[string]struct{})
	for _, f := range c.Files() {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
		zlog.Debug().Msgf("catalog: watching %s", dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !c.Contains(ev.Name) {
				continue
			}
			if err := c.Reload(ev.Name); err != nil {
				zlog.Warn().Msgf("catalog: reload failed, keeping previous frames: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			zlog.Warn().Msgf("catalog: watcher error: %v", err)
		}
	}
}
