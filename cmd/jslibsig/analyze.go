package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/jslibsig/internal/config"
	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/recognition"
	"github.com/standardbeagle/jslibsig/internal/scanner"
	"github.com/standardbeagle/jslibsig/internal/watch"
)

func analyzeCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Recognize library versions in a folder of JavaScript",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Folder to analyze",
			},
			&cli.BoolFlag{
				Name:  "each",
				Usage: "Analyze every immediate subfolder separately",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Re-run the analysis when JavaScript files change",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text or json",
				Value: "text",
			},
			&cli.Float64Flag{
				Name:  "simhash-threshold",
				Usage: "SimHash similarity percentage a match must exceed",
			},
			&cli.Float64Flag{
				Name:  "minhash-threshold",
				Usage: "MinHash similarity percentage a match must exceed",
			},
			&cli.IntFlag{
				Name:  "min-occurrences",
				Usage: "Matches a version needs to be reported, for both hash families",
			},
			&cli.IntFlag{
				Name:  "simhash-min-occurrences",
				Usage: "Matches a version needs to be reported by SimHash",
			},
			&cli.IntFlag{
				Name:  "minhash-min-occurrences",
				Usage: "Matches a version needs to be reported by MinHash",
			},
			&cli.IntFlag{
				Name:  "threshold",
				Usage: "Drop functions with this many features or fewer",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Matching workers (0 = one per CPU)",
			},
		},
		Action: func(c *cli.Context) error {
			input := c.String("input")
			if err := requireDir("input", input); err != nil {
				return err
			}
			format := c.String("format")
			if format != "text" && format != "json" {
				return lerrors.NewConfigError("format", format, fmt.Errorf("must be text or json"))
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			applyRecognizeFlags(c, cfg)
			if err := validate(cfg); err != nil {
				return err
			}
			gen, err := newGenerator(cfg)
			if err != nil {
				return err
			}

			s, err := openStore(c.Context, cfg)
			if err != nil {
				return err
			}
			corpus, err := recognition.Load(c.Context, s, recognition.LoadOptions{
				Partitions:  cfg.Recognize.LoadPartitions,
				Concurrency: cfg.Recognize.LoadConcurrency,
			}, state.metrics)
			s.Close()
			if err != nil {
				return err
			}

			r, err := recognition.New(corpus, gen, recognition.OptionsFromConfig(cfg), state.metrics)
			if err != nil {
				return err
			}

			run := func(ctx context.Context) error {
				return analyzeOnce(ctx, r, input, c.Bool("each"), format, c.App.Writer)
			}
			if err := run(c.Context); err != nil {
				return err
			}
			if !c.Bool("watch") {
				return nil
			}
			return watchAndAnalyze(c.Context, cfg, input, run)
		},
	}
}

func applyRecognizeFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("simhash-threshold") {
		cfg.Recognize.SimHashThreshold = c.Float64("simhash-threshold")
	}
	if c.IsSet("minhash-threshold") {
		cfg.Recognize.MinHashThreshold = c.Float64("minhash-threshold")
	}
	if c.IsSet("min-occurrences") {
		cfg.Recognize.SimHashMinOccurrence = c.Int("min-occurrences")
		cfg.Recognize.MinHashMinOccurrence = c.Int("min-occurrences")
	}
	if c.IsSet("simhash-min-occurrences") {
		cfg.Recognize.SimHashMinOccurrence = c.Int("simhash-min-occurrences")
	}
	if c.IsSet("minhash-min-occurrences") {
		cfg.Recognize.MinHashMinOccurrence = c.Int("minhash-min-occurrences")
	}
	if c.IsSet("threshold") {
		cfg.Recognize.FeatureThreshold = c.Int("threshold")
	}
	if c.IsSet("workers") {
		cfg.Recognize.MatchWorkers = c.Int("workers")
	}
}

func analyzeOnce(ctx context.Context, r *recognition.Recognizer, input string, each bool, format string, w io.Writer) error {
	var reports []*recognition.Report
	if each {
		reps, err := r.AnalyzeEach(ctx, input)
		if err != nil {
			return err
		}
		reports = reps
	} else {
		rep, err := r.AnalyzeFolder(ctx, input)
		if err != nil {
			return err
		}
		reports = []*recognition.Report{rep}
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, rep := range reports {
		if _, err := rep.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

func watchAndAnalyze(ctx context.Context, cfg *config.Config, input string, run func(context.Context) error) error {
	w, err := watch.New(input, scanner.NewFilter(cfg.Index.Include, cfg.Index.Exclude), cfg.Recognize.WatchDebounce)
	if err != nil {
		return fmt.Errorf("watch %s: %w", input, err)
	}
	defer w.Close()

	debug.Info("watching for changes", "path", input)
	err = w.Run(ctx, func(ctx context.Context, changed []string) {
		debug.Info("re-analyzing", "changed_files", len(changed))
		if err := run(ctx); err != nil && ctx.Err() == nil {
			debug.Error("analysis failed", "error", err)
		}
	})
	if ctx.Err() != nil {
		// Interrupted by the user: a normal way to end watch mode.
		return nil
	}
	return err
}
