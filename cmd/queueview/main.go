package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/orrn/queueview/internal/config"
)

type globalOptions struct {
	Config   string `short:"c" long:"config" env:"QUEUEVIEW_CONFIG" default:"config.yaml" description:"Path to the YAML config file"`
	LogLevel string `long:"log-level" description:"Override logging.level"`
}

var global globalOptions

func main() {
	parser := flags.NewParser(&global, flags.Default)

	parser.AddCommand("serve",
		"Serve queue pages and the live board",
		"Serves the HTML and JSON queue views from the job store, the ingest API and, when viewer.enabled is set, a live board polling viewer.endpoint.",
		&serveCommand{})
	parser.AddCommand("watch",
		"Follow a remote queue in the terminal",
		"Polls a queue page's json/ endpoint and prints every row change.",
		&watchCommand{})
	parser.AddCommand("hash-password",
		"Print a bcrypt hash for auth.admin_password_hash",
		"Reads the password from the first argument and prints its bcrypt hash.",
		&hashPasswordCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies the environment and validates
// the result.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(global.Config)
	if err != nil {
		return nil, nil, err
	}
	cfg.ApplyEnv()
	if global.LogLevel != "" {
		cfg.Logging.Level = global.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := config.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
