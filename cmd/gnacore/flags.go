package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gnacore/internal/backend"
	"github.com/samcharles93/gnacore/internal/kernel"
	"github.com/samcharles93/gnacore/internal/logger"
)

var (
	tierName       string
	logLevel       string
	logFormat      string
	debug          bool
	configFile     string
	bufferCapacity int64

	// set by setup
	cfg        Config
	activeTier backend.Tier
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tier",
			Usage:       "kernel tier (auto, baseline, mid, wide)",
			Value:       backend.Auto,
			Destination: &tierName,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Destination: &configFile,
		},
		&cli.Int64Flag{
			Name:        "buffer-capacity",
			Usage:       "default accumulation window in elements for recurrent and gmm layers (0 = hardware default)",
			Destination: &bufferCapacity,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// setup loads the config file, builds the logger and picks the kernel tier
// before any command runs.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := configFile
	if path == "" {
		path = configPath()
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	cfg = loaded
	applyGlobalConfig(cmd, cfg)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log, err := logger.ForFormat(logFormat, level, os.Stderr)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	activeTier, err = backend.Select(tierName)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	log.Debug("kernel tier selected", "tier", activeTier, "requested", tierName, "lanes", kernel.Lanes(activeTier))
	return logger.WithContext(ctx, log), nil
}

func activeTable() *kernel.Table {
	return kernel.TableFor(activeTier)
}
