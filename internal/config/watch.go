package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Locate returns the config file Load would read.
func Locate(path string) (string, bool) {
	if path != "" {
		_, err := os.Stat(path)
		return path, err == nil
	}
	for _, dir := range Dirs() {
		p := filepath.Join(dir, FileName)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// Watch reloads the config file whenever it is written or replaced and
// passes every valid result to fn. Invalid files are reported to onErr and
// otherwise ignored. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func(Config), onErr func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			c, err := Load(abs)
			if err != nil {
				onErr(err)
				continue
			}
			fn(c)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onErr(err)
		}
	}
}
