package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/logger"
)

// Watch emits a signal after files below the root change. Events within
// the debounce window are coalesced into one signal, and a signal not yet
// consumed absorbs later ones. The channel is closed when ctx is done.
func (c *Connector) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filesystem: create watcher: %w", err)
	}
	if err := c.addTree(watcher, c.rootPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("filesystem: watch %s: %w: %w", c.rootPath, err, domain.ErrSourceUnavailable)
	}

	signals := make(chan struct{}, 1)
	go func() {
		defer close(signals)
		defer watcher.Close()

		timer := time.NewTimer(c.debounce)
		if !timer.Stop() {
			<-timer.C
		}
		pending := false

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !c.handleFsEvent(watcher, event) {
					continue
				}
				if pending && !timer.Stop() {
					<-timer.C
				}
				timer.Reset(c.debounce)
				pending = true

			case <-timer.C:
				pending = false
				select {
				case signals <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("filesystem watcher: %v", err)
			}
		}
	}()

	return signals, nil
}

// handleFsEvent reports whether event affects a listed document.
// New directories are added to the watch set.
func (c *Connector) handleFsEvent(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	if isHidden(filepath.Base(event.Name)) {
		return false
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		// The path no longer exists: it was a listed file or a directory
		// that may have held some.
		return filepath.Ext(event.Name) == "" || c.accepts(event.Name)
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return false
	}
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := c.addTree(watcher, event.Name); err != nil {
				logger.Warn("filesystem watcher: add %s: %v", event.Name, err)
			}
			return true
		}
		return false
	}
	return info.Mode().IsRegular() && c.accepts(event.Name)
}

// addTree watches dir and every visible subdirectory.
func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
