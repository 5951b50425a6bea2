package cli

import (
	"context"

	"backupmon/pkg/log"
	"backupmon/pkg/server"
	"backupmon/pkg/store/dir"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the backup monitor API over a backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
			}
			if cmd.Flags().Changed("backup-dir") {
				cfg.Server.BackupDir, _ = cmd.Flags().GetString("backup-dir")
			}
			if cmd.Flags().Changed("with-backups") {
				cfg.Backup.Enabled, _ = cmd.Flags().GetBool("with-backups")
			}

			catalog := dir.New(cfg.Server.BackupDir)
			if err := catalog.Available(); err != nil {
				log.Warn().Err(err).Str("backup_dir", cfg.Server.BackupDir).Msg("Backup directory not available yet")
			}

			mon, err := server.NewMonitorServer(catalog, cfg.Server.Username, cfg.Server.Password, cfg.Server.LogTailLines)
			if err != nil {
				return err
			}

			if cfg.Backup.Enabled {
				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()
				if err := startBackups(ctx, cfg, mon.Registry()); err != nil {
					return err
				}
			}

			log.Info().
				Str("backup_dir", cfg.Server.BackupDir).
				Str("username", cfg.Server.Username).
				Bool("backups", cfg.Backup.Enabled).
				Msg("Configured backup monitor")

			return mon.Start(cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	cmd.Flags().String("backup-dir", "", "Backup directory (overrides config)")
	cmd.Flags().Bool("with-backups", false, "Also run the pg_dump scheduler (overrides config)")
	return cmd
}
