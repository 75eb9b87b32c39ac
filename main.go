package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sevlyar/go-daemon"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/mahyarmirrashed/noeol/internal/config"
	"github.com/mahyarmirrashed/noeol/internal/filter"
	"github.com/mahyarmirrashed/noeol/internal/report"
	"github.com/mahyarmirrashed/noeol/internal/scanner"
	"github.com/mahyarmirrashed/noeol/internal/watch"
)

// Set at build time: go build -ldflags "-X main.version=1.2.3"
var version = "dev"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "noeol",
		Usage:     "report files that do not end with a newline",
		ArgsUsage: "[path...]",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,

		HideHelpCommand: true,
		// Globs may contain commas.
		DisableSliceFlagSeparator: true,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars("NOEOL_CONFIG"),
				Value:   config.DefaultConfigFilename,
			},
			&cli.StringSliceFlag{
				Name:    "ignore-dir",
				Usage:   "directory to skip with everything below it (repeatable)",
				Sources: cli.EnvVars("NOEOL_IGNORE_DIR"),
			},
			&cli.StringSliceFlag{
				Name:    "scan-pattern",
				Usage:   "only check files whose name matches this glob (repeatable)",
				Sources: cli.EnvVars("NOEOL_SCAN_PATTERN"),
			},
			&cli.BoolFlag{
				Name:    "short",
				Usage:   "print failing paths only",
				Sources: cli.EnvVars("NOEOL_SHORT"),
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Usage:   "disable colored output",
				Sources: cli.EnvVars("NOEOL_NO_COLOR"),
			},
			&cli.BoolFlag{
				Name:    "exit-code",
				Usage:   "exit with status 1 when a file has no EOL",
				Sources: cli.EnvVars("NOEOL_EXIT_CODE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "logging level: debug, info, warn, error",
				Sources: cli.EnvVars("NOEOL_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "watch",
				Usage:   "keep checking files as they change",
				Sources: cli.EnvVars("NOEOL_WATCH"),
			},
			&cli.BoolFlag{
				Name:    "daemonize",
				Usage:   "run the watcher as daemon",
				Sources: cli.EnvVars("NOEOL_DAEMONIZE"),
			},
			&cli.DurationFlag{
				Name:    "delay",
				Usage:   "wait before checking a changed file",
				Sources: cli.EnvVars("NOEOL_DELAY"),
				Value:   0,
			},
			&cli.BoolFlag{
				Name:    "notifications",
				Usage:   "send desktop notifications in watch mode",
				Sources: cli.EnvVars("NOEOL_NOTIFICATIONS"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.SetOutput(stderr)

			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			setLogLevel(cfg.LogLevel)

			return run(ctx, cfg, stdout, stderr)
		},
	}
}

// resolveConfig loads the config file if it exists and overrides it with flags.
func resolveConfig(cmd *cli.Command) (*config.Config, error) {
	var cfg *config.Config
	configPath := cmd.String("config")

	// Only load config if the file exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	// Override config with flags if set
	if cmd.Args().Present() {
		cfg.Paths = cmd.Args().Slice()
	}
	if cmd.IsSet("ignore-dir") {
		cfg.IgnoreDirs = cmd.StringSlice("ignore-dir")
	}
	if cmd.IsSet("scan-pattern") {
		cfg.ScanPatterns = cmd.StringSlice("scan-pattern")
	}
	if cmd.IsSet("short") {
		cfg.Short = cmd.Bool("short")
	}
	if cmd.IsSet("no-color") {
		cfg.NoColor = cmd.Bool("no-color")
	}
	if cmd.IsSet("exit-code") {
		cfg.ExitCode = cmd.Bool("exit-code")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("watch") {
		cfg.Watch = cmd.Bool("watch")
	}
	if cmd.IsSet("daemonize") {
		cfg.Daemonize = cmd.Bool("daemonize")
	}
	if cmd.IsSet("delay") {
		cfg.Delay = cmd.Duration("delay")
	}
	if cmd.IsSet("notifications") {
		cfg.Notifications = cmd.Bool("notifications")
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

func run(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	f, err := filter.New(cfg.IgnoreDirs, cfg.ScanPatterns)
	if err != nil {
		return err
	}

	if cfg.Daemonize && !cfg.Watch {
		log.Warn("--daemonize has no effect without --watch")
	}
	if cfg.Watch && cfg.Daemonize {
		daemonCtx := &daemon.Context{
			PidFileName: "noeol.pid",
			PidFilePerm: 0644,
			LogFileName: "noeol.log",
			LogFilePerm: 0640,
			WorkDir:     "./",
			Umask:       027,
			Args:        append([]string{"[noeol-daemon]"}, os.Args[1:]...),
		}

		d, err := daemonCtx.Reborn()
		if err != nil {
			return fmt.Errorf("unable to run: %w", err)
		}
		if d != nil {
			return nil // Parent process exits
		}
		defer daemonCtx.Release()
		log.Info("Daemon started")
	}

	rep := report.New(stdout, stderr, cfg.Short, cfg.NoColor)
	sc := scanner.New(f, rep)

	var w *watch.Watcher
	if cfg.Watch {
		w = watch.New(cfg, sc)
	}

	rep.Settings(cfg)
	res := sc.Run(cfg.Paths)
	rep.Summary(res.Failed)
	log.Debugf("Checked %d files: %d without EOL, %d unreadable", res.Checked, res.Failed, res.Errored)

	if w != nil {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	if cfg.ExitCode && res.Failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}
