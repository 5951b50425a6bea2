package cli

import (
	"bufio"
	"context"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"backupmon/pkg/dashboard"
	"backupmon/pkg/log"
	"backupmon/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newWatchCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var (
		noClear  bool
		logLines int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the monitor API and render the dashboard in the terminal",
		Long: "Poll the monitor API and render the dashboard in the terminal.\n\n" +
			"Commands on stdin: n (next page), p (previous page), <number> (go to page), r (refresh), q (quit).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("url") {
				cfg.Client.BaseURL, _ = flags.GetString("url")
			}
			if flags.Changed("interval") {
				cfg.Client.PollInterval.Duration, _ = flags.GetDuration("interval")
			}
			if flags.Changed("page-size") {
				cfg.Client.PageSize, _ = flags.GetInt("page-size")
			}
			if flags.Changed("metrics-addr") {
				cfg.Client.MetricsAddr, _ = flags.GetString("metrics-addr")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry := prometheus.NewRegistry()
			client := dashboard.NewClient(cfg.Client.BaseURL, cfg.Client.Username, cfg.Client.Password, cfg.Client.RequestTimeout.Duration)
			dash := dashboard.New(client, cfg.Client.PollInterval.Duration, cfg.Client.PageSize, dashboard.NewMetrics(registry))

			renderer := dashboard.NewRenderer(stdout, logLines, !noClear)
			unsubscribe := dash.Subscribe(renderer.Render)
			defer unsubscribe()
			renderer.Render(dash.Snapshot())

			if cfg.Client.MetricsAddr != "" {
				go func() {
					if err := server.ServeMetrics(ctx, cfg.Client.MetricsAddr, registry); err != nil {
						log.Error().Err(err).Msg("Metrics server failed")
					}
				}()
			}

			log.Info().
				Str("url", cfg.Client.BaseURL).
				Dur("interval", cfg.Client.PollInterval.Duration).
				Int("page_size", cfg.Client.PageSize).
				Msg("Watching backup monitor")

			if err := dash.Start(ctx); err != nil {
				return err
			}
			defer dash.Stop()

			runCommands(ctx, dash, stdin)
			return nil
		},
	}
	cmd.Flags().String("url", "", "Monitor API base URL (overrides config)")
	cmd.Flags().Duration("interval", 30*time.Second, "Poll interval (overrides config)")
	cmd.Flags().Int("page-size", 0, "Backups per page (overrides config)")
	cmd.Flags().String("metrics-addr", "", "Expose dashboard metrics on this address")
	cmd.Flags().BoolVar(&noClear, "no-clear", false, "Append frames instead of clearing the terminal")
	cmd.Flags().IntVar(&logLines, "log-lines", dashboard.DefaultLogLines, "Number of log lines to show")
	return cmd
}

// runCommands reads commands from in until ctx is done or q is entered. When
// in is exhausted the dashboard keeps polling until ctx is done.
func runCommands(ctx context.Context, dash *dashboard.Dashboard, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if quit := handleCommand(ctx, dash, line); quit {
				return
			}
		}
	}
}

// handleCommand applies one input line and reports whether to quit.
func handleCommand(ctx context.Context, dash *dashboard.Dashboard, line string) bool {
	input := strings.ToLower(strings.TrimSpace(line))

	switch input {
	case "":
		return false
	case "q", "quit", "exit":
		return true
	case "n", "next":
		_ = dash.MovePage(ctx, 1)
	case "p", "prev":
		_ = dash.MovePage(ctx, -1)
	case "r", "refresh":
		_ = dash.FetchData(ctx)
	default:
		target, err := strconv.Atoi(input)
		if err != nil {
			log.Warn().Str("input", input).Msg("Unknown command")
			return false
		}
		_ = dash.ChangePage(ctx, target)
	}
	return false
}
