package main

import (
	_ "embed"
	"os"
	"strings"

	"backupmon/pkg/cli"
	"backupmon/pkg/log"
)

//go:embed VERSION
var Version string

func main() {
	// Initialize logger first
	_ = log.Logger

	os.Exit(cli.Execute(strings.TrimSpace(Version)))
}
