package packer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/macropower/rulepack/pkg/log"
)

// WatchDebounce is how long [Watch] waits for events to settle.
var WatchDebounce = 250 * time.Millisecond

// Watch packs once, then packs again whenever a rule file below opts.Input
// changes, until ctx is done. onResult receives the outcome of every run.
func Watch(ctx context.Context, opts PackOptions, onResult func(*PackResult, error)) error {
	logger := log.WithContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck // Best effort.

	err = watchTree(watcher, opts.Input)
	if err != nil {
		return err
	}

	run := func() {
		res, err := Pack(ctx, opts)
		if ctx.Err() != nil {
			return
		}

		onResult(res, err)
	}

	run()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Ignore events that are not related to file content changes.
			if evt.Op == fsnotify.Chmod {
				continue
			}

			if evt.Has(fsnotify.Create) {
				info, err := os.Stat(evt.Name)
				if err == nil && info.IsDir() {
					err = watchTree(watcher, evt.Name)
					if err != nil {
						logger.Warn("watch new directory", slog.String("path", evt.Name), slog.Any("error", err))
					}
				}
			}

			if !isRuleEvent(evt) {
				continue
			}

			logger.Debug("rule change", slog.String("event", evt.String()))

			if timer == nil {
				timer = time.NewTimer(WatchDebounce)
			} else {
				timer.Reset(WatchDebounce)
			}

			fire = timer.C

		case <-fire:
			fire = nil

			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("file watcher error", slog.Any("error", err))
		}
	}
}

func isRuleEvent(evt fsnotify.Event) bool {
	switch filepath.Ext(evt.Name) {
	case ".yaml", ".yml":
		return true
	case "":
		// Removing or renaming a directory removes the rules below it.
		return evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename)
	}

	return false
}

// watchTree adds root and every directory below it to watcher.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		err = watcher.Add(path)
		if err != nil {
			return fmt.Errorf("add path to watcher: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %q: %w", root, err)
	}

	return nil
}
