package auth

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce coalesces the write+rename bursts editors and other processes
// produce when replacing the credentials file.
const watchDebounce = 250 * time.Millisecond

// Watch re-verifies the identity whenever the credentials file changes on
// disk, so a sign-in or sign-out performed by another process is picked up
// without restarting. It blocks until ctx is cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: the credentials file is replaced atomically, so
	// watching the file itself would lose the watch on every write.
	if err := watcher.Add(filepath.Dir(m.store.Path())); err != nil {
		return err
	}

	var pending *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != tokenFile && filepath.Base(event.Name) != legacyTokenFile {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			m.logger.Debug().Msg("credentials changed on disk, rechecking")
			m.Recheck(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn().Err(err).Msg("credentials watcher error")
		}
	}
}
