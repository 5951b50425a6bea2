// Package config loads backupmon settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"backupmon/pkg/models"
)

const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultUsername       = "admin"
	DefaultPollInterval   = 30 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultServerAddr     = ":8000"
	DefaultBackupDir      = "/backups"
	DefaultLogTailLines   = 100

	DefaultPGHost         = "localhost"
	DefaultPGPort         = "5432"
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "postgres"
	DefaultRetentionDays  = 7
	DefaultBackupInterval = "daily"
	DefaultBackupTime     = "03:00"

	EnvUsername  = "WEB_UI_USERNAME"
	EnvPassword  = "WEB_UI_PASSWORD"
	EnvBackupDir = "BACKUP_DIR"

	EnvPGHost         = "PG_HOST"
	EnvPGPort         = "PG_PORT"
	EnvPGUser         = "PG_USER"
	EnvPGPassword     = "PG_PASSWORD"
	EnvPGDatabase     = "PG_DATABASE"
	EnvRetentionDays  = "BACKUP_RETENTION_DAYS"
	EnvCompression    = "ENABLE_COMPRESSION"
	EnvBackupInterval = "BACKUP_INTERVAL"
	EnvBackupTime     = "BACKUP_TIME"

	backupTimeLayout = "15:04"

	configDirPerm  = 0o750
	configFilePerm = 0o600
)

var (
	ErrInvalidBaseURL   = errors.New("base_url must be an absolute http(s) URL")
	ErrInvalidInterval  = errors.New("poll_interval must be positive")
	ErrInvalidPageSize  = errors.New("page_size out of range")
	ErrInvalidTailLines = errors.New("log_tail_lines must be positive")
	ErrInvalidRetention = errors.New("retention_days must be positive")
	ErrInvalidSchedule  = errors.New("interval must be daily, hourly or a number of minutes")
	ErrInvalidTime      = errors.New("time must be HH:MM")
	ErrNoDatabases      = errors.New("at least one database is required")
)

// Duration wraps time.Duration so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete backupmon configuration.
type Config struct {
	Client ClientConfig `toml:"client"`
	Server ServerConfig `toml:"server"`
	Backup BackupConfig `toml:"backup"`
	Log    LogConfig    `toml:"log"`
}

// ClientConfig configures the dashboard poller.
type ClientConfig struct {
	BaseURL        string   `toml:"base_url"`
	Username       string   `toml:"username"`
	Password       string   `toml:"password"`
	PollInterval   Duration `toml:"poll_interval"`
	RequestTimeout Duration `toml:"request_timeout"`
	PageSize       int      `toml:"page_size"`
	MetricsAddr    string   `toml:"metrics_addr"`
}

// ServerConfig configures the monitor backend.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	BackupDir    string `toml:"backup_dir"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	LogTailLines int    `toml:"log_tail_lines"`
}

// BackupConfig configures the pg_dump scheduler. Dumps are written to
// Server.BackupDir.
type BackupConfig struct {
	// Enabled starts the scheduler alongside serve.
	Enabled       bool     `toml:"enabled"`
	Host          string   `toml:"host"`
	Port          string   `toml:"port"`
	User          string   `toml:"user"`
	Password      string   `toml:"password"`
	Databases     []string `toml:"databases"`
	RetentionDays int      `toml:"retention_days"`
	Compression   bool     `toml:"compression"`
	// Interval is "daily", "hourly" or a number of minutes.
	Interval string `toml:"interval"`
	// Time is the HH:MM of the daily run.
	Time string `toml:"time"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug bool   `toml:"debug"`
	File  string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			BaseURL:        DefaultBaseURL,
			Username:       DefaultUsername,
			PollInterval:   Duration{DefaultPollInterval},
			RequestTimeout: Duration{DefaultRequestTimeout},
			PageSize:       models.DefaultPageSize,
		},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			BackupDir:    DefaultBackupDir,
			Username:     DefaultUsername,
			LogTailLines: DefaultLogTailLines,
		},
		Backup: BackupConfig{
			Host:          DefaultPGHost,
			Port:          DefaultPGPort,
			User:          DefaultPGUser,
			Databases:     []string{DefaultPGDatabase},
			RetentionDays: DefaultRetentionDays,
			Compression:   true,
			Interval:      DefaultBackupInterval,
			Time:          DefaultBackupTime,
		},
	}
}

// Load reads the configuration at path on top of the defaults, then applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides credentials, the backup directory and the backup
// settings from the environment. Both the client and the server read the same
// credentials.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvUsername); ok && v != "" {
		c.Client.Username = v
		c.Server.Username = v
	}
	if v, ok := lookup(EnvPassword); ok && v != "" {
		c.Client.Password = v
		c.Server.Password = v
	}
	if v, ok := lookup(EnvBackupDir); ok && v != "" {
		c.Server.BackupDir = v
	}

	strVars := map[string]*string{
		EnvPGHost:         &c.Backup.Host,
		EnvPGPort:         &c.Backup.Port,
		EnvPGUser:         &c.Backup.User,
		EnvPGPassword:     &c.Backup.Password,
		EnvBackupInterval: &c.Backup.Interval,
		EnvBackupTime:     &c.Backup.Time,
	}
	for key, target := range strVars {
		if v, ok := lookup(key); ok && v != "" {
			*target = v
		}
	}
	if v, ok := lookup(EnvPGDatabase); ok && v != "" {
		c.Backup.Databases = strings.Split(v, ",")
	}
	if v, ok := lookup(EnvRetentionDays); ok && v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRetentionDays, err)
		}
		c.Backup.RetentionDays = days
	}
	if v, ok := lookup(EnvCompression); ok && v != "" {
		c.Backup.Compression = strings.EqualFold(v, "true")
	}
	return nil
}

// Validate checks the values that would otherwise fail at runtime.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.Client.BaseURL)
	}
	if c.Client.PollInterval.Duration <= 0 {
		return ErrInvalidInterval
	}
	if c.Client.PageSize < 1 || c.Client.PageSize > models.MaxPageSize {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, c.Client.PageSize)
	}
	if c.Server.LogTailLines <= 0 {
		return ErrInvalidTailLines
	}
	return c.Backup.Validate()
}

// Validate checks the backup schedule, retention and database list.
func (b *BackupConfig) Validate() error {
	if b.RetentionDays < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRetention, b.RetentionDays)
	}
	if len(b.DatabaseNames()) == 0 {
		return ErrNoDatabases
	}
	switch b.Interval {
	case "daily":
		if _, err := time.Parse(backupTimeLayout, b.Time); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTime, b.Time)
		}
	case "hourly":
	default:
		if minutes, err := strconv.Atoi(b.Interval); err != nil || minutes < 1 {
			return fmt.Errorf("%w: %q", ErrInvalidSchedule, b.Interval)
		}
	}
	return nil
}

// DatabaseNames returns the configured databases, trimmed, without blanks.
func (b *BackupConfig) DatabaseNames() []string {
	names := make([]string, 0, len(b.Databases))
	for _, name := range b.Databases {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, configFilePerm)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
