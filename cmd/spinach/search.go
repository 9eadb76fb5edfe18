package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/opensquiggly/spinach-sub000/internal/display"
	"github.com/opensquiggly/spinach-sub000/internal/query"
	"github.com/opensquiggly/spinach-sub000/internal/search"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// jsonMatch is one line of --json output.
type jsonMatch struct {
	User       string `json:"user"`
	Repository string `json:"repository"`
	Path       string `json:"path"`
	Position   int64  `json:"position"`
	Length     int    `json:"length"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Text       string `json:"text"`
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search the project root for a regular expression",
		ArgsUsage: "PATTERN",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "case-insensitive",
				Aliases: []string{"i"},
				Usage:   "Case-insensitive search",
			},
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Report every match in a file, not only the first",
			},
			&cli.BoolFlag{
				Name:  "full-scan",
				Usage: "Scan every file when the pattern has no literal of three or more bytes",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output one JSON object per match",
			},
			&cli.IntFlag{
				Name:    "max-results",
				Aliases: []string{"m"},
				Usage:   "Stop after this many matches (0 = config value)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("search requires exactly one PATTERN, got %d arguments", c.NArg())
			}
			pattern := c.Args().First()

			s, err := newSession(c)
			if err != nil {
				return withStack(c, err)
			}
			if _, _, err := s.build(c.Context, nil); err != nil {
				return s.finish(c, err)
			}

			opts := search.OptionsFromConfig(s.cfg.Search)
			if c.Bool("case-insensitive") {
				opts.CaseSensitive = false
			}
			if c.Bool("all") {
				opts.DocMatchType = types.AllMatchesInDocument
			}
			if c.Bool("full-scan") {
				opts.AllowFullScan = true
			}
			if n := c.Int("max-results"); n > 0 {
				opts.MaxResults = n
			}

			w := c.App.Writer
			enc := json.NewEncoder(w)
			count := 0
			err = search.NewEngine(s.index).Each(c.Context, pattern, opts, func(m search.Match) bool {
				count++
				if c.Bool("json") {
					return enc.Encode(jsonMatch{
						User:       m.User.Name,
						Repository: m.Repository.Name,
						Path:       m.Document.Path,
						Position:   m.Position,
						Length:     m.Length,
						Line:       m.Line,
						Column:     m.Column,
						Text:       m.LineText,
					}) == nil
				}
				fmt.Fprintf(w, "%s:%d:%d: %s\n", m.Document.Path, m.Line, m.Column, m.LineText)
				return true
			})
			if err != nil {
				return s.finish(c, err)
			}
			if count == 0 && !c.Bool("json") {
				fmt.Fprintln(c.App.ErrWriter, "no matches")
			}
			return s.finish(c, nil)
		},
	}
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Print the literal query a pattern is narrowed by",
		ArgsUsage: "PATTERN",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "case-insensitive",
				Aliases: []string{"i"},
				Usage:   "Plan a case-insensitive search",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: compact, text (tree) or json",
				Value:   "compact",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("plan requires exactly one PATTERN, got %d arguments", c.NArg())
			}
			n, err := query.BuildQuery(c.Args().First(), !c.Bool("case-insensitive"))
			if err != nil {
				return withStack(c, err)
			}
			out := display.NewTreeFormatter(display.FormatterOptions{Format: c.String("format")}).Format(n)
			fmt.Fprintln(c.App.Writer, strings.TrimSuffix(out, "\n"))
			if n.IsAll() {
				fmt.Fprintln(c.App.ErrWriter, "pattern has no literal of three or more bytes; searching it requires --full-scan")
			}
			return nil
		},
	}
}
