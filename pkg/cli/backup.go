package cli

import (
	"context"
	"os/signal"
	"syscall"

	"backupmon/pkg/backup"
	"backupmon/pkg/config"
	"backupmon/pkg/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump the configured PostgreSQL databases on a schedule",
		Long: "Dump the configured PostgreSQL databases with pg_dump into the backup directory,\n" +
			"once at start and then on the configured schedule. Expired backups and run logs are removed after each run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("backup-dir") {
				cfg.Server.BackupDir, _ = cmd.Flags().GetString("backup-dir")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner := newBackupRunner(cfg, nil)
			if once {
				result, err := runner.Run(ctx)
				if err != nil {
					return err
				}
				log.Info().Strs("files", result.Files).Msg("Backup complete")
				return nil
			}

			scheduler, err := newBackupScheduler(cfg, runner)
			if err != nil {
				return err
			}
			scheduler.Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single backup and exit")
	cmd.Flags().String("backup-dir", "", "Backup directory (overrides config)")
	return cmd
}

func newBackupRunner(cfg *config.Config, reg prometheus.Registerer) *backup.Runner {
	dumper := &backup.PgDump{
		Host:     cfg.Backup.Host,
		Port:     cfg.Backup.Port,
		User:     cfg.Backup.User,
		Password: cfg.Backup.Password,
	}
	return backup.NewRunner(dumper, backup.Options{
		Dir:           cfg.Server.BackupDir,
		Databases:     cfg.Backup.DatabaseNames(),
		RetentionDays: cfg.Backup.RetentionDays,
		Compression:   cfg.Backup.Compression,
	}, backup.NewMetrics(reg))
}

func newBackupScheduler(cfg *config.Config, runner *backup.Runner) (*backup.Scheduler, error) {
	spec, err := backup.ScheduleSpec(cfg.Backup.Interval, cfg.Backup.Time)
	if err != nil {
		return nil, err
	}
	return backup.NewScheduler(runner, spec)
}

// startBackups runs the scheduler in the background until ctx is done.
func startBackups(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) error {
	scheduler, err := newBackupScheduler(cfg, newBackupRunner(cfg, reg))
	if err != nil {
		return err
	}
	go scheduler.Run(ctx)
	return nil
}
