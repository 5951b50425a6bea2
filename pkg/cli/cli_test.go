package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"backupmon/pkg/backup"
	"backupmon/pkg/config"
	"backupmon/pkg/dashboard"
	"backupmon/pkg/server"
	"backupmon/pkg/store/dir"

	"github.com/stretchr/testify/suite"
)

// CLITestSuite tests the cobra commands
type CLITestSuite struct {
	suite.Suite
	dir        string
	configPath string
	stdout     *bytes.Buffer
	stderr     *bytes.Buffer
	httpServer *httptest.Server
}

func (s *CLITestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.configPath = filepath.Join(s.dir, "backupmon.toml")
	s.stdout = &bytes.Buffer{}
	s.stderr = &bytes.Buffer{}
	s.T().Setenv(config.EnvUsername, "admin")
	s.T().Setenv(config.EnvPassword, "secret")
	s.T().Setenv(config.EnvBackupDir, "")

	backupDir := filepath.Join(s.dir, "backups")
	s.Require().NoError(os.MkdirAll(backupDir, 0o750))
	for _, name := range []string{"backup_1.sql.gz", "backup_2.sql.gz", "backup_3.sql.gz"} {
		s.Require().NoError(os.WriteFile(filepath.Join(backupDir, name), []byte("dump"), 0o600))
	}

	mon, err := server.NewMonitorServer(dir.New(backupDir), "admin", "secret", 100)
	s.Require().NoError(err)
	s.httpServer = httptest.NewServer(mon)
}

func (s *CLITestSuite) TearDownTest() {
	s.httpServer.Close()
}

func (s *CLITestSuite) run(stdin string, args ...string) error {
	root := NewRootCmd("1.2.3", strings.NewReader(stdin), s.stdout, s.stderr)
	root.SetArgs(append([]string{"--config", s.configPath}, args...))
	return root.Execute()
}

func (s *CLITestSuite) TestHelpListsCommands() {
	s.Require().NoError(s.run("", "--help"))

	output := s.stdout.String()
	for _, name := range []string{"watch", "serve", "backup", "config", "version"} {
		s.Contains(output, name)
	}
}

func (s *CLITestSuite) TestVersion() {
	s.Require().NoError(s.run("", "version"))
	s.Equal("backupmon 1.2.3\n", s.stdout.String())
}

func (s *CLITestSuite) TestConfigInit() {
	s.Require().NoError(s.run("", "config", "init"))
	s.Contains(s.stdout.String(), "wrote "+s.configPath)

	cfg, err := config.Load(s.configPath)
	s.Require().NoError(err)
	s.Equal(config.DefaultBaseURL, cfg.Client.BaseURL)

	err = s.run("", "config", "init")
	s.Error(err)
	s.Contains(err.Error(), "already exists")

	s.NoError(s.run("", "config", "init", "--force"))
}

func (s *CLITestSuite) TestUnknownCommand() {
	s.Error(s.run("", "frobnicate"))
}

func (s *CLITestSuite) TestWatchRendersAndQuits() {
	err := s.run("q\n", "watch", "--url", s.httpServer.URL, "--no-clear", "--interval", "1h")
	s.Require().NoError(err)

	output := s.stdout.String()
	s.Contains(output, "Backup Monitor")
	s.Contains(output, "Health: unknown")
	s.NotContains(output, "\033[2J")
}

func (s *CLITestSuite) TestWatchRejectsBadURL() {
	err := s.run("", "watch", "--url", "ftp://nowhere")
	s.ErrorIs(err, config.ErrInvalidBaseURL)
}

func (s *CLITestSuite) TestServeRequiresPassword() {
	s.T().Setenv(config.EnvPassword, "")
	err := s.run("", "serve", "--backup-dir", s.dir)
	s.ErrorIs(err, server.ErrMissingPassword)
}

func (s *CLITestSuite) TestHandleCommand() {
	client := dashboard.NewClient(s.httpServer.URL, "admin", "secret", 5*time.Second)
	dash := dashboard.New(client, time.Hour, 1, nil)
	ctx := context.Background()

	s.False(handleCommand(ctx, dash, "r"))
	s.Equal(3, dash.Snapshot().Backups.TotalPages)

	s.False(handleCommand(ctx, dash, "n"))
	s.Equal(2, dash.Snapshot().Backups.Page)

	s.False(handleCommand(ctx, dash, " 3 "))
	s.Equal(3, dash.Snapshot().Backups.Page)

	s.False(handleCommand(ctx, dash, "n"))
	s.Equal(3, dash.Snapshot().Backups.Page)

	s.False(handleCommand(ctx, dash, "p"))
	s.Equal(2, dash.Snapshot().Backups.Page)

	s.False(handleCommand(ctx, dash, "bogus"))
	s.False(handleCommand(ctx, dash, ""))
	s.True(handleCommand(ctx, dash, "Q"))
}

func (s *CLITestSuite) TestRunCommandsStopsOnContext() {
	client := dashboard.NewClient(s.httpServer.URL, "admin", "secret", 5*time.Second)
	dash := dashboard.New(client, time.Hour, 10, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		runCommands(ctx, dash, strings.NewReader(""))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.Fail("runCommands did not return after context expiry")
	}
}

func (s *CLITestSuite) TestBackupOnceWithoutPgDump() {
	s.T().Setenv("PATH", s.T().TempDir())
	s.T().Setenv(config.EnvPGDatabase, "app,billing")
	backupDir := filepath.Join(s.dir, "fresh")

	err := s.run("", "backup", "--once", "--backup-dir", backupDir)
	s.ErrorIs(err, backup.ErrNoBackups)

	logs, globErr := filepath.Glob(filepath.Join(backupDir, backup.LogDirName, "backup_*.log"))
	s.Require().NoError(globErr)
	s.Require().Len(logs, 1)
	data, readErr := os.ReadFile(logs[0])
	s.Require().NoError(readErr)
	s.Contains(string(data), "pg_dump binary not found")
	s.Contains(string(data), "billing")
}

func (s *CLITestSuite) TestBackupRejectsBadSchedule() {
	s.T().Setenv(config.EnvBackupInterval, "weekly")

	err := s.run("", "backup", "--backup-dir", s.dir)
	s.ErrorIs(err, config.ErrInvalidSchedule)
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}
