package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/opensquiggly/spinach-sub000/internal/debug"
	"github.com/opensquiggly/spinach-sub000/internal/version"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:                   "spinach",
		Usage:                  "Trigram-indexed regular expression search over source trees",
		Version:                version.FullInfo(),
		Writer:                 stdout,
		ErrWriter:              stderr,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Directory to index (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Index only files matching glob patterns (e.g., --include '**/*.go')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Skip files matching glob patterns (e.g., --exclude '**/testdata/**')",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show debug output and stack traces",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Print engine metrics in Prometheus text format on exit",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				debug.SetDebugOutput(c.App.ErrWriter)
				debug.Enable(true)
			}
			return nil
		},
		Commands: []*cli.Command{
			indexCommand(),
			searchCommand(),
			planCommand(),
			watchCommand(),
		},
	}
}
