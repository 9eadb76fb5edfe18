// Package indexing keeps the index in step with repository directories:
// it enumerates files, detects changes and feeds document content to the
// index in resumable, time-sliced passes.
package indexing

import (
	"context"
	"fmt"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opensquiggly/spinach-sub000/internal/config"
	"github.com/opensquiggly/spinach-sub000/internal/core"
	"github.com/opensquiggly/spinach-sub000/internal/debug"
	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// SyncStats summarizes one enumeration pass over a repository.
type SyncStats struct {
	Added     int
	Changed   int
	Removed   int
	Unchanged int
	Binary    int
}

// IndexStats summarizes one indexing pass.
type IndexStats struct {
	Indexed   int
	Failed    int
	Binary    int
	Bytes     int64
	Completed bool // no document is left waiting for content
	Duration  time.Duration
	Errors    []error
}

// Err joins the per-file errors of the pass.
func (s IndexStats) Err() error {
	return errors.NewMultiError(s.Errors).ErrorOrNil()
}

func (s *IndexStats) add(o IndexStats) {
	s.Indexed += o.Indexed
	s.Failed += o.Failed
	s.Binary += o.Binary
	s.Bytes += o.Bytes
	s.Errors = append(s.Errors, o.Errors...)
}

// Indexer feeds repository files into an index. Like the index it is not
// safe for concurrent use; file reads fan out to worker goroutines but
// every index mutation happens on the calling goroutine.
type Indexer struct {
	index         *core.Index
	enumerator    *Enumerator
	binary        *BinaryDetector
	workers       int
	respectBinary bool
	readFile      func(string) ([]byte, error)
}

// NewIndexer creates an indexer for ix configured from cfg.
func NewIndexer(ix *core.Index, cfg *config.Config) *Indexer {
	workers := cfg.Index.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Indexer{
		index:         ix,
		enumerator:    NewEnumerator(cfg),
		binary:        NewBinaryDetector(),
		workers:       workers,
		respectBinary: cfg.Index.RespectBinaryDetection,
		readFile:      os.ReadFile,
	}
}

// AddRepository registers a repository rooted at root, creating its user
// first when needed.
func (idx *Indexer) AddRepository(key types.RepoKey, userName, name, root string) (*types.Repository, error) {
	if _, ok := idx.index.Users.TryFind(key.User()); !ok {
		if _, err := idx.index.AddUser(key.User(), userName); err != nil {
			return nil, err
		}
	}
	return idx.index.AddRepository(key, name, root)
}

// Sync enumerates the repository root and reconciles its documents: new
// files are added unindexed, vanished files are tombstoned and changed
// files are tombstoned and added again. A file whose size is unchanged but
// whose modification time moved is hashed before it counts as changed.
func (idx *Indexer) Sync(key types.RepoKey) (SyncStats, error) {
	var stats SyncStats

	repo, ok := idx.index.Repositories.TryFind(key)
	if !ok {
		return stats, errors.NewIndexingError("sync", fmt.Errorf("repository %s: %w", key, errors.ErrNotFound))
	}

	entries, err := idx.enumerator.Enumerate(repo.RootFolder)
	if err != nil {
		return stats, errors.NewIndexingError("sync", err).WithRepository(repo.Name)
	}

	live := make(map[string]*types.Document)
	idx.index.ForEachDocument(key, func(doc *types.Document) bool {
		if doc.Status == types.DocStatusNormal {
			live[doc.Path] = doc
		}
		return true
	})

	for _, entry := range entries {
		doc, known := live[entry.Path]
		if known {
			delete(live, entry.Path)
			if !idx.hasChanged(doc, entry) {
				stats.Unchanged++
				if doc.ModTime != entry.ModTime {
					if err := idx.index.TouchDocument(doc.Key, entry.ModTime); err != nil {
						return stats, err
					}
				}
				continue
			}
			if err := idx.index.Delete(doc.Key); err != nil {
				return stats, err
			}
			stats.Changed++
		} else if idx.respectBinary && idx.binary.IsBinaryFile(entry.FullPath) {
			stats.Binary++
			continue
		}

		_, err := idx.index.AddDocument(key, core.DocumentInfo{
			Name:    path.Base(entry.Path),
			Path:    entry.Path,
			Length:  entry.Size,
			ModTime: entry.ModTime,
		})
		if err != nil {
			return stats, errors.NewIndexingError("sync", err).WithRepository(repo.Name).WithFile(entry.Path)
		}
		if !known {
			stats.Added++
		}
	}

	for _, doc := range live {
		if err := idx.index.Delete(doc.Key); err != nil {
			return stats, err
		}
		stats.Removed++
	}

	debug.Logger().Debug("repository synced",
		zap.Stringer("repo", key),
		zap.Int("added", stats.Added),
		zap.Int("changed", stats.Changed),
		zap.Int("removed", stats.Removed),
		zap.Int("unchanged", stats.Unchanged))
	return stats, nil
}

func (idx *Indexer) hasChanged(doc *types.Document, entry FileEntry) bool {
	if doc.OriginalLength != entry.Size {
		return true
	}
	if doc.ModTime == entry.ModTime || !doc.IsIndexed {
		return false
	}
	content, err := idx.readFile(entry.FullPath)
	if err != nil {
		return true
	}
	return xxhash.Sum64(content) != doc.ContentHash
}

type readResult struct {
	content []byte
	err     error
}

// IndexRepository indexes the content of every document of the repository
// still waiting for it. Files are read in parallel batches and indexed one
// at a time; before each file the context and, when budget is positive,
// the time budget are checked. At least one file is indexed per call. When
// the pass stops early the repository keeps HasFilesToIndex set so a later
// pass resumes where this one ended.
func (idx *Indexer) IndexRepository(ctx context.Context, key types.RepoKey, budget time.Duration) (stats IndexStats, err error) {
	started := time.Now()

	repo, ok := idx.index.Repositories.TryFind(key)
	if !ok {
		return stats, errors.NewIndexingError("index", fmt.Errorf("repository %s: %w", key, errors.ErrNotFound))
	}
	if repo.IsIndexing {
		return stats, errors.NewIndexingError("index", errors.ErrIndexingInProgress).WithRepository(repo.Name)
	}

	var pending []*types.Document
	idx.index.ForEachDocument(key, func(doc *types.Document) bool {
		if doc.Status == types.DocStatusNormal && !doc.IsIndexed {
			pending = append(pending, doc)
		}
		return true
	})

	if err := idx.index.UpdateRepository(key, func(b *core.RepoBlock) { b.IsIndexing = true }); err != nil {
		return stats, err
	}

	processed := 0
	defer func() {
		stats.Completed = processed == len(pending)
		stats.Duration = time.Since(started)
		updateErr := idx.index.UpdateRepository(key, func(b *core.RepoBlock) {
			b.IsIndexing = false
			b.HasFilesToIndex = !stats.Completed
		})
		if err == nil {
			err = updateErr
		}
		debug.Logger().Debug("repository indexed",
			zap.Stringer("repo", key),
			zap.Int("indexed", stats.Indexed),
			zap.Int("pending", len(pending)-processed),
			zap.Duration("duration", stats.Duration))
	}()

	var deadline time.Time
	if budget > 0 {
		deadline = started.Add(budget)
	}

	batchSize := idx.workers * 4
	for i := 0; i < len(pending); i += batchSize {
		batch := pending[i:min(i+batchSize, len(pending))]
		contents := idx.readBatch(ctx, batch)

		for j, doc := range batch {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if processed > 0 && !deadline.IsZero() && time.Now().After(deadline) {
				debug.LogIndexing("time slice of %v used up in %s, %d documents left", budget, repo.Name, len(pending)-processed)
				return stats, nil
			}
			if err := idx.indexDocument(doc, contents[j], &stats); err != nil {
				return stats, errors.NewIndexingError("index", err).WithRepository(repo.Name).WithFile(doc.Path)
			}
			processed++
		}
	}
	return stats, nil
}

// readBatch reads the content of batch on up to idx.workers goroutines.
func (idx *Indexer) readBatch(ctx context.Context, batch []*types.Document) []readResult {
	results := make([]readResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, doc := range batch {
		fullPath := doc.FullPath
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			results[i].content, results[i].err = idx.readFile(fullPath)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// indexDocument stores one document's content. An unreadable file is
// indexed as empty so it stops being pending; it returns to the queue once
// its modification time changes. Content that turns out to be binary
// tombstones the document.
func (idx *Indexer) indexDocument(doc *types.Document, r readResult, stats *IndexStats) error {
	if r.err != nil {
		stats.Failed++
		stats.Errors = append(stats.Errors, errors.NewFileError("read", doc.FullPath, r.err))
		debug.LogIndexing("cannot read %s: %v", doc.FullPath, r.err)
		return idx.index.IndexDocumentContent(doc.Key, nil)
	}
	if idx.respectBinary && idx.binary.IsBinaryByContent(r.content) {
		stats.Binary++
		return idx.index.Delete(doc.Key)
	}
	if err := idx.index.IndexDocumentContent(doc.Key, r.content); err != nil {
		return err
	}
	stats.Indexed++
	stats.Bytes += int64(min(int64(len(r.content)), doc.CurrentLength))
	return nil
}

// IndexAll runs IndexRepository over every repository with pending files,
// in key order, sharing one time budget across them.
func (idx *Indexer) IndexAll(ctx context.Context, budget time.Duration) (IndexStats, error) {
	started := time.Now()
	total := IndexStats{Completed: true}

	var keys []types.RepoKey
	idx.index.ForEachRepository(func(repo *types.Repository) bool {
		if repo.HasFilesToIndex && !repo.IsIndexing {
			keys = append(keys, repo.Key)
		}
		return true
	})

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			total.Completed = false
			return total, err
		}
		remaining := time.Duration(0)
		if budget > 0 {
			remaining = budget - time.Since(started)
			if remaining <= 0 {
				total.Completed = false
				break
			}
		}

		stats, err := idx.IndexRepository(ctx, key, remaining)
		total.add(stats)
		if !stats.Completed {
			total.Completed = false
		}
		if err != nil {
			total.Duration = time.Since(started)
			return total, err
		}
	}

	total.Duration = time.Since(started)
	return total, nil
}

// Refresh syncs a repository with its directory and indexes what changed.
func (idx *Indexer) Refresh(ctx context.Context, key types.RepoKey, budget time.Duration) (SyncStats, IndexStats, error) {
	synced, err := idx.Sync(key)
	if err != nil {
		return synced, IndexStats{}, err
	}
	indexed, err := idx.IndexRepository(ctx, key, budget)
	return synced, indexed, err
}

// Follow refreshes the repositories reported by w until ctx is done. Work
// left over by a time-sliced pass is resumed between notifications so a
// burst of changes never waits behind a long indexing run. report, when
// set, receives the outcome of every refresh.
func (idx *Indexer) Follow(ctx context.Context, w *Watcher, budget time.Duration, report func(types.RepoKey, SyncStats, IndexStats)) error {
	pending := false
	refresh := func(key types.RepoKey) {
		synced, indexed, err := idx.Refresh(ctx, key, budget)
		if err != nil {
			debug.Logger().Warn("refresh failed", zap.Stringer("repo", key), zap.Error(err))
		}
		if !indexed.Completed {
			pending = true
		}
		if report != nil {
			report(key, synced, indexed)
		}
	}

	for {
		if pending {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case key := <-w.Changes():
				refresh(key)
				continue
			default:
			}
			stats, err := idx.IndexAll(ctx, budget)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				debug.Logger().Warn("resumed indexing failed", zap.Error(err))
				pending = false
				continue
			}
			pending = !stats.Completed
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case key := <-w.Changes():
			refresh(key)
		}
	}
}
