package store

import (
	"time"
)

// Backup is a backup file found in the catalog.
type Backup struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}

// Catalog defines read access to a backup directory.
type Catalog interface {
	// Available reports whether the backup directory exists and is a directory.
	Available() error

	// ListBackups returns every backup, newest first.
	ListBackups() ([]Backup, error)

	// TailLogs returns the last lines lines of every backup log.
	TailLogs(lines int) ([]string, error)
}

// DirNotFoundError is returned when the backup directory is missing.
type DirNotFoundError struct {
	Path string
}

func (e DirNotFoundError) Error() string {
	return "backup directory not found"
}

// NotADirectoryError is returned when the backup path is not a directory.
type NotADirectoryError struct {
	Path string
}

func (e NotADirectoryError) Error() string {
	return "backup path is not a directory"
}
