package preset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/nightview"
)

// settle is how long Watch waits after the last change before reloading.
// Editors often write a file in several steps.
const settle = 50 * time.Millisecond

// Watch applies the preset at path to p, then reapplies it whenever the
// file changes until ctx is done. A reload that fails to read, parse or
// validate is logged and leaves p as it was.
//
// The directory is watched rather than the file, so presets replaced by
// rename (as Save and most editors do) keep being followed.
func Watch(ctx context.Context, path string, p *nightview.Params) error {
	path = filepath.Clean(path)
	ps, err := Load(path)
	if err != nil {
		return err
	}
	ps.Apply(p)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("preset: watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("preset: watch %s: %w", filepath.Dir(path), err)
	}
	nightview.Logger().Info("preset: watching", "path", path, "name", ps.Name)

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			reload = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			nightview.Logger().Warn("preset: watcher error", "path", path, "err", err)
		case <-reload:
			reload = nil
			ps, err := Load(path)
			if err != nil {
				nightview.Logger().Warn("preset: reload failed, keeping current parameters", "path", path, "err", err)
				continue
			}
			ps.Apply(p)
			nightview.Logger().Info("preset: reloaded", "path", path, "name", ps.Name)
		}
	}
}
