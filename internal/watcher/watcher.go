// Package watcher publishes record change events for edits made to the
// repository directory tree outside the store (manual edits, syncs).
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for each observed record change.
// op is one of "created", "updated", "deleted".
type EventCallback func(op, kind, path string)

// Watch starts an fsnotify watcher on the repository root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) for every
// record-level change.
//
// Dot-prefixed directories and files are ignored, matching the store's
// enumeration rules. New directories created at runtime are automatically
// added to the watch list.
func Watch(ctx context.Context, repoRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root, err := filepath.Abs(repoRoot)
	if err != nil {
		return err
	}
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			kind, rel, inRepo := splitRecordPath(root, absPath)
			if !inRepo {
				continue
			}

			// New directories: start watching them. Temp-rename writes
			// never create directories, so Create on a dir is always an
			// external mkdir.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			var op string
			switch {
			case ev.Op&fsnotify.Create != 0:
				op = "created"
			case ev.Op&fsnotify.Write != 0:
				op = "updated"
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a separate Create event.
				op = "deleted"
			default:
				continue
			}

			logger.Debug("watcher: record event",
				slog.String("op", op),
				slog.String("kind", kind),
				slog.String("path", rel))
			if cb != nil {
				cb(op, kind, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// splitRecordPath maps an absolute path back to (kind, relative path).
// Paths outside the root, directly at the root, or with any dot-prefixed
// component are rejected.
func splitRecordPath(root, abs string) (kind, rel string, ok bool) {
	r, err := filepath.Rel(root, abs)
	if err != nil || r == "." || strings.HasPrefix(r, "..") {
		return "", "", false
	}
	parts := strings.Split(filepath.ToSlash(r), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	for _, p := range parts {
		if strings.HasPrefix(p, ".") {
			return "", "", false
		}
	}
	return parts[0], strings.Join(parts[1:], "/"), true
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		return w.Add(path)
	})
}
