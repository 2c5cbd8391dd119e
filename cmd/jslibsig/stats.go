package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/recognition"
)

func statsCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print reference corpus size, libraries and versions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text or json",
				Value: "text",
			},
		},
		Action: func(c *cli.Context) error {
			format := c.String("format")
			if format != "text" && format != "json" {
				return lerrors.NewConfigError("format", format, fmt.Errorf("must be text or json"))
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if err := validate(cfg); err != nil {
				return err
			}

			s, err := openStore(c.Context, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			corpus, err := recognition.Load(c.Context, s, recognition.LoadOptions{
				Partitions:  cfg.Recognize.LoadPartitions,
				Concurrency: cfg.Recognize.LoadConcurrency,
			}, state.metrics)
			if err != nil {
				return err
			}

			stats := corpus.Stats()
			if format == "json" {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			_, err = stats.WriteTo(c.App.Writer)
			return err
		},
	}
}
