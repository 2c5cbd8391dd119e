package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/features"
	"github.com/standardbeagle/jslibsig/internal/types"
)

// extractedFunction is the dump record of one function.
type extractedFunction struct {
	types.Function `yaml:",inline"`
	SimHash        string `json:"simhash,omitempty" yaml:"simhash,omitempty"`
	MinHash        string `json:"minhash,omitempty" yaml:"minhash,omitempty"`
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Dump the feature streams of one JavaScript file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "JavaScript file to extract",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, json or yaml",
				Value: "text",
			},
			&cli.BoolFlag{
				Name:  "signatures",
				Usage: "Include SimHash and MinHash signatures",
			},
			&cli.IntFlag{
				Name:  "threshold",
				Usage: "Drop functions with this many features or fewer",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.String("file")
			if path == "" {
				return lerrors.NewConfigError("file", path, fmt.Errorf("is required"))
			}
			format := c.String("format")
			switch format {
			case "text", "json", "yaml":
			default:
				return lerrors.NewConfigError("format", format, fmt.Errorf("must be text, json or yaml"))
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if err := validate(cfg); err != nil {
				return err
			}

			fns, err := features.ExtractFile(c.Context, path)
			if err != nil {
				return err
			}
			if c.IsSet("threshold") {
				fns = features.FilterByFeatureCount(fns, c.Int("threshold"))
			}

			out := make([]extractedFunction, len(fns))
			for i, fn := range fns {
				out[i].Function = *fn
			}
			if c.Bool("signatures") {
				gen, err := newGenerator(cfg)
				if err != nil {
					return err
				}
				for i, fn := range fns {
					sig := gen.Sign(fn)
					out[i].SimHash = hex.EncodeToString(sig.SimHash.Bytes())
					out[i].MinHash = hex.EncodeToString(sig.MinHash.Bytes())
				}
			}
			return writeExtracted(c.App.Writer, format, out)
		},
	}
}

func writeExtracted(w io.Writer, format string, fns []extractedFunction) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(fns)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(fns); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, fn := range fns {
		fmt.Fprintf(w, "%s (line %d, %d args, %d features)\n", fn.Name, fn.Line, fn.ArgumentCount, len(fn.Features))
		if fn.SimHash != "" {
			fmt.Fprintf(w, "  simhash %s\n  minhash %s\n", fn.SimHash, fn.MinHash)
		}
		for _, f := range fn.Features {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	return nil
}
