// Package dir implements store.Catalog over a plain backup directory: backups
// are files named backup_* and their logs live in logs/backup_*.log.
package dir

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"backupmon/pkg/log"
	"backupmon/pkg/store"
)

const (
	backupPattern = "backup_*"
	logPattern    = "backup_*.log"
	logsDir       = "logs"
)

// Catalog reads backups from a directory.
type Catalog struct {
	root string
}

// New creates a catalog rooted at root.
func New(root string) *Catalog {
	return &Catalog{root: root}
}

// Root returns the backup directory.
func (c *Catalog) Root() string {
	return c.root
}

// Available implements store.Catalog.
func (c *Catalog) Available() error {
	info, err := os.Stat(c.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store.DirNotFoundError{Path: c.root}
		}
		return err
	}
	if !info.IsDir() {
		return store.NotADirectoryError{Path: c.root}
	}
	return nil
}

// ListBackups implements store.Catalog. A missing directory has no backups.
func (c *Catalog) ListBackups() ([]store.Backup, error) {
	matches, err := filepath.Glob(filepath.Join(c.root, backupPattern))
	if err != nil {
		return nil, err
	}

	backups := make([]store.Backup, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// Removed between glob and stat, e.g. by retention cleanup.
				continue
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		backups = append(backups, store.Backup{
			Name:       info.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].ModifiedAt.Equal(backups[j].ModifiedAt) {
			return backups[i].ModifiedAt.After(backups[j].ModifiedAt)
		}
		return backups[i].Name > backups[j].Name
	})

	return backups, nil
}

// TailLogs implements store.Catalog. Files are read in name order; line
// terminators are stripped.
func (c *Catalog) TailLogs(lines int) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(c.root, logsDir, logPattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]string, 0)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		tail, err := tailFile(path, lines)
		if err != nil {
			return nil, err
		}
		out = append(out, tail...)
	}
	return out, nil
}

// tailFile returns the last n lines of path.
func tailFile(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("Failed to close log file")
		}
	}()

	ring := make([]string, n)
	count := 0
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			ring[count%n] = strings.TrimRight(line, "\r\n")
			count++
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
	}

	if count <= n {
		return ring[:count], nil
	}
	start := count % n
	return append(ring[start:], ring[:start]...), nil
}
