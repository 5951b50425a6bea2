package cli

import (
	"fmt"
	"io"
	"os"

	"backupmon/pkg/config"
	"backupmon/pkg/log"

	"github.com/spf13/cobra"
)

// NewRootCmd returns the root cobra command for the backupmon CLI.
func NewRootCmd(version string, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "backupmon",
		Short:         "Watch and serve the state of a PostgreSQL backup directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addGlobalFlags(cmd)

	cmd.AddCommand(newVersionCmd(version, stdout))
	cmd.AddCommand(newWatchCmd(stdin, stdout))
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newBackupCmd())
	cmd.AddCommand(newConfigCmd(stdout))

	return cmd
}

// Execute runs the CLI with the process stdio and returns the exit code.
func Execute(version string) int {
	root := NewRootCmd(version, os.Stdin, os.Stdout, os.Stderr)
	err := root.Execute()
	_ = log.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// addGlobalFlags adds the flags shared by every subcommand.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", "backupmon.toml", "Path to the TOML configuration file")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().String("log-file", "", "Write logs to this file (rotated) instead of stderr")
}

// loadConfig reads the config file named by --config and applies the global
// logging flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Root().PersistentFlags()
	if flags.Changed("debug") {
		cfg.Log.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("log-file") {
		cfg.Log.File, _ = flags.GetString("log-file")
	}

	setupLogging(cfg.Log)
	return cfg, nil
}

func setupLogging(cfg config.LogConfig) {
	if cfg.File != "" {
		log.SetOutputFile(cfg.File)
	}
	if cfg.Debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}
}
