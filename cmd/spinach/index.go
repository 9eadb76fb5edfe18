package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/indexing"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:    "index",
		Aliases: []string{"i"},
		Usage:   "Index the project root and print statistics",
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return withStack(c, err)
			}

			w := c.App.Writer
			synced, indexed, err := s.build(c.Context, func(slice indexing.IndexStats) {
				if !slice.Completed {
					fmt.Fprintf(w, "indexed %d files, continuing...\n", slice.Indexed)
				}
			})
			if err != nil {
				return s.finish(c, err)
			}

			fmt.Fprintf(w, "Root: %s\n", s.cfg.Project.Root)
			fmt.Fprintf(w, "Files: %d added, %d binary skipped\n", synced.Added, synced.Binary)
			fmt.Fprintf(w, "Indexed: %d files, %d bytes in %v\n", indexed.Indexed, indexed.Bytes, indexed.Duration.Round(time.Millisecond))
			if indexed.Failed > 0 {
				fmt.Fprintf(w, "Unreadable: %d files\n", indexed.Failed)
			}

			st := s.index.Stats()
			fmt.Fprintf(w, "Documents: %d (%d indexed)\n", st.Documents-st.DeletedDocuments, st.IndexedDocuments)
			fmt.Fprintf(w, "Trigrams: %d, postings: %d\n", st.Trigrams, st.Postings)
			if top := st.TopExtensions(5); len(top) > 0 {
				parts := make([]string, 0, len(top))
				for _, ext := range top {
					name := ext
					if name == "" {
						name = "(none)"
					}
					parts = append(parts, fmt.Sprintf("%s=%d", name, st.ExtensionDistribution[ext]))
				}
				fmt.Fprintf(w, "Extensions: %s\n", strings.Join(parts, " "))
			}
			return s.finish(c, indexed.Err())
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Index the project root and keep the index current until interrupted",
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return withStack(c, err)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := c.App.Writer
			_, indexed, err := s.build(ctx, nil)
			if err != nil {
				return s.finish(c, err)
			}
			fmt.Fprintf(w, "Indexed %d files; watching %s\n", indexed.Indexed, s.cfg.Project.Root)

			watcher, err := indexing.NewWatcher(s.cfg)
			if err != nil {
				return s.finish(c, err)
			}
			defer watcher.Stop()
			if err := watcher.Add(defaultRepo, s.cfg.Project.Root); err != nil {
				return s.finish(c, err)
			}
			watcher.Start()

			err = s.indexer.Follow(ctx, watcher, s.timeSlice(), func(_ types.RepoKey, synced indexing.SyncStats, indexed indexing.IndexStats) {
				fmt.Fprintf(w, "refreshed: %d added, %d changed, %d removed, %d indexed\n",
					synced.Added, synced.Changed, synced.Removed, indexed.Indexed)
			})
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			return s.finish(c, err)
		},
	}
}
