package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"intentd/internal/common/fsutil"
)

// WatchManifest invokes onChange after each settled burst of change
// events on the manifest at path. The parent directory is watched rather
// than the file itself because editors typically replace the file on
// save. WatchManifest blocks until ctx is done; watcher errors are
// logged, never fatal. Only the initial setup can return an error.
func WatchManifest(ctx context.Context, log zerolog.Logger, path string, debounce time.Duration, onChange func()) error {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return fmt.Errorf("abs path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	base := filepath.Base(abs)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("event", ev.Op.String()).Str("path", ev.Name).Msg("manifest changed")
			if timer == nil {
				timer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("manifest watcher error")
		case <-fire:
			timer = nil
			onChange()
		}
	}
}
