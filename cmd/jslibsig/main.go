package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/jslibsig/internal/config"
	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/metrics"
	"github.com/standardbeagle/jslibsig/internal/signature"
	"github.com/standardbeagle/jslibsig/internal/store"
	"github.com/standardbeagle/jslibsig/internal/version"
)

const (
	exitFailure    = 1
	exitValidation = 2
)

// appState carries what Before sets up for the commands.
type appState struct {
	metrics *metrics.Metrics
}

func newApp(stdout, stderr io.Writer) *cli.App {
	state := &appState{}
	return &cli.App{
		Name:                   "jslibsig",
		Usage:                  "Fingerprint JavaScript functions and recognize library versions",
		Version:                version.FullInfo(),
		UseShortOptionHandling: true,
		Writer:                 stdout,
		ErrWriter:              stderr,
		// Exit codes are decided in main.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory holding .jslibsig.kdl, or a .kdl file",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Reference store backend (sqlite, badger)",
			},
			&cli.StringFlag{
				Name:  "store-path",
				Usage: "Reference store location",
			},
			&cli.BoolFlag{
				// -v stays with the built-in --version flag.
				Name:  "verbose",
				Usage: "Show debug output",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics to this textfile when the command ends",
			},
		},
		Before: func(c *cli.Context) error {
			debug.SetLogOutput(c.App.ErrWriter)
			if c.Bool("verbose") {
				debug.SetVerbose(true)
				debug.SetDebugOutput(c.App.ErrWriter)
			}
			state.metrics = metrics.New()
			return nil
		},
		After: func(c *cli.Context) error {
			path := c.String("metrics-file")
			if path == "" || state.metrics == nil {
				return nil
			}
			if err := state.metrics.WriteToTextfile(path); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			return nil
		},
		Commands: []*cli.Command{
			indexCommand(state),
			analyzeCommand(state),
			extractCommand(),
			statsCommand(state),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args)
	if err != nil {
		debug.Error("run failed", "error", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps validation problems to a distinct status so scripts can tell
// bad input from a failed run.
func exitCode(err error) int {
	var cfgErr *lerrors.ConfigError
	if errors.As(err, &cfgErr) {
		return exitValidation
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return exitFailure
}

// loadConfigWithOverrides loads the configuration and applies the global
// store flags. Commands apply their own flags and call validate afterwards.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if backend := c.String("store"); backend != "" {
		cfg.Store.Backend = backend
	}
	if path := c.String("store-path"); path != "" {
		cfg.Store.Path = path
	}
	return cfg, nil
}

func validate(cfg *config.Config) error {
	return config.ValidateConfig(cfg)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store at %s: %w", cfg.Store.Backend, cfg.Store.Path, err)
	}
	return s, nil
}

func newGenerator(cfg *config.Config) (*signature.Generator, error) {
	gen, err := signature.NewGenerator(signature.Options{
		SimHashBits: cfg.Signature.SimHashBits,
		MinHashSize: cfg.Signature.MinHashSize,
		Seed:        cfg.Signature.Seed,
		Weights:     signature.DefaultWeights(),
	})
	if err != nil {
		return nil, lerrors.NewConfigError("signature", "", err)
	}
	return gen, nil
}

// requireDir fails with a validation error unless path is a directory.
func requireDir(flag, path string) error {
	if path == "" {
		return lerrors.NewConfigError(flag, path, errors.New("is required"))
	}
	info, err := os.Stat(path)
	if err != nil {
		return lerrors.NewConfigError(flag, path, err)
	}
	if !info.IsDir() {
		return lerrors.NewConfigError(flag, path, errors.New("not a directory"))
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return lerrors.NewConfigError(flag, path, err)
	}
	if len(entries) == 0 {
		return lerrors.NewConfigError(flag, path, errors.New("directory is empty"))
	}
	return nil
}
