package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"

	"github.com/opensquiggly/spinach-sub000/internal/config"
	"github.com/opensquiggly/spinach-sub000/internal/core"
	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/indexing"
	"github.com/opensquiggly/spinach-sub000/internal/metrics"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// Every run indexes the project root as one repository of one user.
var (
	defaultRepo = types.RepoKey{UserType: 1, UserID: 1, RepoType: 1, RepoID: 1}
	defaultUser = "local"
)

type session struct {
	cfg     *config.Config
	index   *core.Index
	indexer *indexing.Indexer
	metrics *metrics.Metrics
}

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	cfg, err := config.LoadWithRoot(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config for %q: %w", root, err)
	}

	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Include = config.DeduplicatePatterns(append(cfg.Include, includes...))
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Exclude = config.DeduplicatePatterns(append(cfg.Exclude, excludes...))
	}
	if root != "" {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
		}
		cfg.Project.Root = absRoot
	}
	return cfg, config.Validate(cfg)
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	ix := core.NewIndex(core.Options{
		UserCacheSize:       cfg.Cache.Users,
		RepositoryCacheSize: cfg.Cache.Repositories,
		DocumentCacheSize:   cfg.Cache.Documents,
		Metrics:             m,
	})
	idx := indexing.NewIndexer(ix, cfg)
	if _, err := idx.AddRepository(defaultRepo, defaultUser, cfg.Project.Name, cfg.Project.Root); err != nil {
		return nil, err
	}
	return &session{cfg: cfg, index: ix, indexer: idx, metrics: m}, nil
}

func (s *session) timeSlice() time.Duration {
	return time.Duration(s.cfg.Index.TimeSliceMs) * time.Millisecond
}

// build syncs the root and indexes it in slices until nothing is pending.
// progress, when set, is called after every slice.
func (s *session) build(ctx context.Context, progress func(indexing.IndexStats)) (indexing.SyncStats, indexing.IndexStats, error) {
	synced, err := s.indexer.Sync(defaultRepo)
	if err != nil {
		return synced, indexing.IndexStats{}, err
	}

	total := indexing.IndexStats{}
	for {
		stats, err := s.indexer.IndexAll(ctx, s.timeSlice())
		total.Indexed += stats.Indexed
		total.Failed += stats.Failed
		total.Binary += stats.Binary
		total.Bytes += stats.Bytes
		total.Duration += stats.Duration
		total.Errors = append(total.Errors, stats.Errors...)
		if err != nil {
			return synced, total, err
		}
		if progress != nil {
			progress(stats)
		}
		if stats.Completed {
			total.Completed = true
			return synced, total, nil
		}
	}
}

// finish prints metrics when asked to and attaches a stack trace to err in
// verbose mode.
func (s *session) finish(c *cli.Context, err error) error {
	if s != nil && c.Bool("metrics") {
		families, gatherErr := s.metrics.Registry().Gather()
		if gatherErr == nil {
			for _, mf := range families {
				_, _ = expfmt.MetricFamilyToText(c.App.Writer, mf)
			}
		}
	}
	return withStack(c, err)
}

func withStack(c *cli.Context, err error) error {
	if err == nil || !c.Bool("verbose") {
		return err
	}
	var traced interface{ StackTrace() string }
	if errors.As(err, &traced) {
		fmt.Fprintln(c.App.ErrWriter, traced.StackTrace())
	}
	return err
}
