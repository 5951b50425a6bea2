// Package backup dumps PostgreSQL databases into the backup directory,
// compresses the dumps and prunes files past their retention.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"backupmon/pkg/log"

	"github.com/rs/zerolog"
)

const (
	// LogDirName is the directory under the backup root holding run logs.
	LogDirName = "logs"

	timestampLayout = "20060102_150405"
	runLogTimestamp = "2006-01-02 15:04:05"

	dirPerm  = 0o750
	filePerm = 0o640
)

var (
	// ErrNoBackups is returned when no database of a run was dumped.
	ErrNoBackups = errors.New("no database was backed up")
)

// Dumper writes a dump of one database to dest.
type Dumper interface {
	Dump(ctx context.Context, database, dest string) error
}

// Options configures a Runner.
type Options struct {
	Dir           string
	Databases     []string
	RetentionDays int
	Compression   bool
}

// Result describes one backup run.
type Result struct {
	LogFile string
	Files   []string
	Failed  []string
	Removed []string
}

// Runner performs backup runs.
type Runner struct {
	dumper  Dumper
	opts    Options
	metrics *Metrics
	now     func() time.Time
}

// NewRunner creates a runner. A nil metrics gets an unregistered set.
func NewRunner(dumper Dumper, opts Options, metrics *Metrics) *Runner {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Runner{
		dumper:  dumper,
		opts:    opts,
		metrics: metrics,
		now:     time.Now,
	}
}

// Run dumps every database into backup_<db>_<timestamp>.dump under the
// backup directory, gzips it when compression is on, then removes expired
// backup_* files. A failed database does not stop the others. Pruning is
// skipped when nothing was backed up. The run is logged to
// logs/backup_<timestamp>.log.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	started := r.now()
	stamp := started.Format(timestampLayout)

	logDir := filepath.Join(r.opts.Dir, LogDirName)
	if err := os.MkdirAll(logDir, dirPerm); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	result := &Result{LogFile: filepath.Join(logDir, "backup_"+stamp+".log")}
	logFile, err := os.OpenFile(result.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer func() {
		if closeErr := logFile.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("file", result.LogFile).Msg("Failed to close run log")
		}
	}()

	runLog := zerolog.New(zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: logFile, NoColor: true, TimeFormat: runLogTimestamp},
		log.Logger,
	)).With().Timestamp().Logger()

	runLog.Info().Str("dir", r.opts.Dir).Strs("databases", r.opts.Databases).Msg("Backup run started")

	for _, database := range r.opts.Databases {
		if ctx.Err() != nil {
			break
		}

		file, err := r.backupDatabase(ctx, database, stamp)
		if err != nil {
			runLog.Error().Err(err).Str("database", database).Msg("Database backup failed")
			result.Failed = append(result.Failed, database)
			continue
		}
		runLog.Info().Str("database", database).Str("file", file).Msg("Database backed up")
		result.Files = append(result.Files, file)
	}

	if err := ctx.Err(); err != nil {
		runLog.Warn().Err(err).Msg("Backup run cancelled")
		r.metrics.runs.WithLabelValues(resultFailure).Inc()
		return result, err
	}

	if len(result.Files) == 0 {
		runLog.Error().Strs("failed", result.Failed).Msg("No database was backed up")
		r.metrics.runs.WithLabelValues(resultFailure).Inc()
		return result, ErrNoBackups
	}

	removed, err := Prune(r.opts.Dir, time.Duration(r.opts.RetentionDays)*24*time.Hour, r.now())
	result.Removed = removed
	r.metrics.removed.Add(float64(len(removed)))
	for _, path := range removed {
		runLog.Info().Str("file", path).Msg("Removed expired file")
	}
	if err != nil {
		runLog.Error().Err(err).Msg("Retention cleanup failed")
	}

	r.metrics.runs.WithLabelValues(resultSuccess).Inc()
	r.metrics.lastSuccess.Set(float64(r.now().Unix()))
	runLog.Info().
		Int("files", len(result.Files)).
		Int("failed", len(result.Failed)).
		Int("removed", len(removed)).
		Dur("took", r.now().Sub(started)).
		Msg("Backup run finished")
	return result, nil
}

func (r *Runner) backupDatabase(ctx context.Context, database, stamp string) (string, error) {
	dest := filepath.Join(r.opts.Dir, fmt.Sprintf("backup_%s_%s.dump", database, stamp))

	if err := r.dumper.Dump(ctx, database, dest); err != nil {
		if removeErr := os.Remove(dest); removeErr != nil && !os.IsNotExist(removeErr) {
			log.Warn().Err(removeErr).Str("file", dest).Msg("Failed to remove partial dump")
		}
		return "", err
	}

	if !r.opts.Compression {
		return dest, nil
	}

	compressed, err := CompressFile(dest)
	if err != nil {
		// The uncompressed dump is still a valid backup.
		log.Error().Err(err).Str("file", dest).Msg("Compression failed, keeping uncompressed dump")
		return dest, nil
	}
	return compressed, nil
}
