package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the backing file and forces a reload each time it is
// written, calling onChange with the fresh snapshot copy. It runs until
// ctx is cancelled.
//
// If a reload fails (unreadable file, invalid YAML, validation error),
// the error is logged and the previously cached configuration remains
// active; onChange is not called.
func (m *Manager) Watch(ctx context.Context, onChange func(*Configuration)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(m.path); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", m.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only reload on write or create events. Editors often write via
			// rename (atomic save), so also catch fsnotify.Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := m.Load(true)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", m.path, "err", err)
				continue
			}

			slog.Info("config: reloaded", "path", m.path)
			onChange(cfg)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(m.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
