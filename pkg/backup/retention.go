package backup

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"backupmon/pkg/log"
)

const backupPattern = "backup_*"

// Prune removes backup_* files anywhere under root, run logs included, whose
// modification time is more than retention before now. Files that cannot be
// removed are logged and skipped. It returns the removed paths.
func Prune(root string, retention time.Duration, now time.Time) ([]string, error) {
	var removed []string

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipDir
			}
			log.Warn().Err(walkErr).Str("path", path).Msg("Skipping unreadable path")
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if matched, _ := filepath.Match(backupPattern, entry.Name()); !matched {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Warn().Err(err).Str("path", path).Msg("Failed to stat file")
			}
			return nil
		}
		if now.Sub(info.ModTime()) <= retention {
			return nil
		}

		if err := os.Remove(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to remove expired file")
			return nil
		}
		removed = append(removed, path)
		return nil
	})
	return removed, err
}
