package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/jslibsig/internal/indexing"
)

func indexCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Index <package>/<version> directories into the reference store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Root folder holding one directory per package",
			},
			&cli.StringFlag{
				Name:  "package",
				Usage: "Index only this package (name or @scope/name)",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "Namespace recorded for every indexed entry",
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "Version directories indexed concurrently",
			},
			&cli.IntFlag{
				Name:  "threshold",
				Usage: "Drop functions with this many features or fewer",
			},
		},
		Action: func(c *cli.Context) error {
			input := c.String("input")
			if err := requireDir("input", input); err != nil {
				return err
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if c.IsSet("namespace") {
				cfg.Index.Namespace = c.String("namespace")
			}
			if c.IsSet("parallel") {
				cfg.Index.MaxParallelVersions = c.Int("parallel")
			}
			if c.IsSet("threshold") {
				cfg.Index.FeatureThreshold = c.Int("threshold")
			}
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
			defer s.Close()

			ix := indexing.New(s, gen, indexing.OptionsFromConfig(cfg), state.metrics)
			res, err := ix.IndexPackages(c.Context, input, c.String("package"))
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "Indexed %d versions: %d files, %d functions stored in %s\n",
				len(res.Versions), res.Files, res.Functions, res.Duration.Round(time.Millisecond))
			if res.Failed > 0 {
				fmt.Fprintf(c.App.Writer, "%d files could not be indexed\n", res.Failed)
			}
			if err := res.Err(); err != nil {
				failures := res.StoreFailures()
				for _, v := range failures {
					fmt.Fprintf(c.App.Writer, "not stored: %s@%s\n", v.Dir.Name(), v.Dir.Version)
				}
				return fmt.Errorf("%d of %d versions could not be stored: %w", len(failures), len(res.Versions), err)
			}
			return nil
		},
	}
}
