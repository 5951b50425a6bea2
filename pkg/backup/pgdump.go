package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const pgDumpBinary = "pg_dump"

// PgDump dumps databases with the pg_dump CLI in custom format.
type PgDump struct {
	Host     string
	Port     string
	User     string
	Password string

	// Binary overrides the pg_dump lookup on PATH.
	Binary string
}

// Dump runs pg_dump for database, writing to dest.
func (p *PgDump) Dump(ctx context.Context, database, dest string) error {
	exe := p.Binary
	if exe == "" {
		var err error
		exe, err = exec.LookPath(pgDumpBinary)
		if err != nil {
			return fmt.Errorf("pg_dump binary not found on PATH: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, exe, p.args(database, dest)...) // #nosec G204 - arguments come from configuration
	cmd.Env = p.env(os.Environ())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pg_dump %s: %w: %s", database, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (p *PgDump) args(database, dest string) []string {
	return []string{
		"-h", p.Host,
		"-p", p.Port,
		"-U", p.User,
		"-d", database,
		"-F", "c",
		"-f", dest,
	}
}

// env passes the password through PGPASSWORD so it never shows up in the
// process list.
func (p *PgDump) env(base []string) []string {
	if p.Password == "" {
		return base
	}
	return append(base, "PGPASSWORD="+p.Password)
}
