// Package search drives compiled query cursors over the index and confirms
// every candidate document against the full regular expression.
package search

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/opensquiggly/spinach-sub000/internal/cache"
	"github.com/opensquiggly/spinach-sub000/internal/config"
	"github.com/opensquiggly/spinach-sub000/internal/core"
	"github.com/opensquiggly/spinach-sub000/internal/debug"
	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/metrics"
	"github.com/opensquiggly/spinach-sub000/internal/posting"
	"github.com/opensquiggly/spinach-sub000/internal/query"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// DefaultPlanCacheSize bounds the number of compiled patterns kept.
const DefaultPlanCacheSize = 128

// Options controls a single search.
type Options struct {
	CaseSensitive     bool
	DocMatchType      types.DocMatchType
	MaxDocSize        int64 // 0 disables the limit
	LargeDocThreshold int64 // 0 disables the document-end seek
	MaxResults        int   // 0 = unlimited
	AllowFullScan     bool
}

// OptionsFromConfig copies the search section of cfg.
func OptionsFromConfig(cfg config.Search) Options {
	return Options{
		CaseSensitive:     cfg.CaseSensitive,
		DocMatchType:      cfg.DocMatchType,
		MaxDocSize:        cfg.MaxDocSize,
		LargeDocThreshold: cfg.LargeDocThreshold,
		MaxResults:        cfg.MaxResults,
		AllowFullScan:     cfg.AllowFullScan,
	}
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		CaseSensitive:     true,
		DocMatchType:      types.FirstMatchOnly,
		MaxDocSize:        types.DefaultMaxDocSize,
		LargeDocThreshold: types.DefaultLargeDocThreshold,
	}
}

type planKey struct {
	pattern       string
	caseSensitive bool
}

// Plan is a parsed pattern: its query tree and the regular expression that
// confirms candidates.
type Plan struct {
	Pattern string
	Query   *query.Node
	Regexp  *regexp.Regexp
}

// Engine runs searches against one index. Like the index it is not safe
// for concurrent use.
type Engine struct {
	index   *core.Index
	plans   *cache.LRU[planKey, *Plan]
	metrics *metrics.Metrics
}

// NewEngine creates an engine over ix. Metrics are taken from the index.
func NewEngine(ix *core.Index) *Engine {
	return &Engine{
		index:   ix,
		plans:   cache.NewLRU[planKey, *Plan](DefaultPlanCacheSize),
		metrics: ix.Metrics(),
	}
}

// Plan parses pattern into a query tree and a confirming regular
// expression. Plans are cached per (pattern, case sensitivity).
func (e *Engine) Plan(pattern string, caseSensitive bool) (*Plan, error) {
	key := planKey{pattern: pattern, caseSensitive: caseSensitive}
	if p, ok := e.plans.Get(key); ok {
		return p, nil
	}

	node, err := query.BuildQuery(pattern, caseSensitive)
	if err != nil {
		return nil, errors.NewSearchError(pattern, err)
	}
	prefix := "(?m)"
	if !caseSensitive {
		prefix = "(?mi)"
	}
	re, err := regexp.Compile(prefix + pattern)
	if err != nil {
		return nil, errors.NewSearchError(pattern, err)
	}

	p := &Plan{Pattern: pattern, Query: node, Regexp: re}
	e.plans.Put(key, p)
	return p, nil
}

// Search collects the matches of pattern. See Each.
func (e *Engine) Search(ctx context.Context, pattern string, opts Options) ([]Match, error) {
	var matches []Match
	err := e.Each(ctx, pattern, opts, func(m Match) bool {
		matches = append(matches, m)
		return true
	})
	return matches, err
}

// Each calls fn for every confirmed match in (user, repository, document,
// position) order until fn returns false or MaxResults is reached.
//
// A pattern without a literal of at least three bytes cannot be narrowed by
// the index; Each then fails with ErrFullScanRequired unless
// opts.AllowFullScan is set.
func (e *Engine) Each(ctx context.Context, pattern string, opts Options, fn func(Match) bool) error {
	started := time.Now()
	defer func() { e.metrics.ObserveQuery(time.Since(started)) }()

	plan, err := e.Plan(pattern, opts.CaseSensitive)
	if err != nil {
		return err
	}

	emitted := 0
	emit := func(m Match) bool {
		emitted++
		e.metrics.Confirmed(1)
		if !fn(m) {
			return false
		}
		return opts.MaxResults <= 0 || emitted < opts.MaxResults
	}

	cur, err := query.Compile(e.index, plan.Query, posting.LiteralOptions{
		CaseSensitive: opts.CaseSensitive,
		DocMatchType:  opts.DocMatchType,
		MaxDocSize:    opts.MaxDocSize,
	})
	if err != nil {
		if errors.Is(err, errors.ErrFullScanRequired) && opts.AllowFullScan {
			debug.LogSearch("pattern %q has no usable literal, scanning every document", pattern)
			return e.fullScan(ctx, plan, opts, emit)
		}
		return errors.NewSearchError(pattern, err)
	}

	debug.Logger().Debug("search",
		zap.String("pattern", pattern),
		zap.Stringer("plan", plan.Query),
		zap.Bool("case_sensitive", opts.CaseSensitive))

	return e.drive(ctx, cur, plan, opts, emit)
}

// drive walks the candidate cursor. Each candidate document is confirmed
// once; the cursor then leaves the document, by seeking past its end when
// the document is large and by draining its remaining positions otherwise.
func (e *Engine) drive(ctx context.Context, cur posting.Cursor, plan *Plan, opts Options, emit func(Match) bool) error {
	ok := cur.MoveNext()
	for ok {
		if err := ctx.Err(); err != nil {
			return err
		}

		key, data := cur.Key(), cur.Value()
		user, repo, doc := data.User, data.Repository, data.Document
		e.metrics.Candidate()

		if !confirm(plan.Regexp, user, repo, doc, opts.DocMatchType, emit) {
			doc.DropContent()
			return nil
		}

		if opts.LargeDocThreshold > 0 && doc.CurrentLength > opts.LargeDocThreshold {
			e.metrics.Skipped(metrics.SkipLargeDoc)
			ok = cur.MoveUntilGreaterThanOrEqual(posting.DocumentEnd(key, data))
			doc.DropContent()
			continue
		}
		for ok = cur.MoveNext(); ok && cur.Value().Document.Key == doc.Key; ok = cur.MoveNext() {
		}
		doc.DropContent()
	}
	return nil
}

// fullScan confirms every searchable document in index order.
func (e *Engine) fullScan(ctx context.Context, plan *Plan, opts Options, emit func(Match) bool) error {
	var scanErr error
	stopped := false
	e.index.ForEachRepository(func(repo *types.Repository) bool {
		user, ok := e.index.Users.TryFind(repo.Key.User())
		if !ok {
			e.metrics.Skipped(metrics.SkipInvalid)
			return true
		}
		e.index.ForEachDocument(repo.Key, func(doc *types.Document) bool {
			if err := ctx.Err(); err != nil {
				scanErr = err
				return false
			}
			switch {
			case !doc.IsIndexed:
				return true
			case doc.Status != types.DocStatusNormal:
				e.metrics.Skipped(metrics.SkipDeleted)
				return true
			case opts.MaxDocSize > 0 && doc.CurrentLength > opts.MaxDocSize:
				e.metrics.Skipped(metrics.SkipOversized)
				return true
			}
			e.metrics.Candidate()
			more := confirm(plan.Regexp, user, repo, doc, opts.DocMatchType, emit)
			doc.DropContent()
			if !more {
				stopped = true
			}
			return more
		})
		return scanErr == nil && !stopped
	})
	return scanErr
}

// confirm runs re over the document content and emits the matches the
// match type allows. It reports whether the caller should continue.
func confirm(re *regexp.Regexp, user *types.User, repo *types.Repository, doc *types.Document, matchType types.DocMatchType, emit func(Match) bool) bool {
	content := doc.Content()
	if len(content) == 0 {
		return true
	}

	var spans [][]int
	if matchType == types.FirstMatchOnly {
		if loc := re.FindIndex(content); loc != nil {
			spans = [][]int{loc}
		}
	} else {
		spans = re.FindAllIndex(content, -1)
	}

	for _, span := range spans {
		if !emit(newMatch(user, repo, doc, content, span[0], span[1])) {
			return false
		}
	}
	return true
}
