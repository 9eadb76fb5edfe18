// Package core holds the trigram index laid out over the ordered-map store:
// user, repository and document trees, the per-repository offset index,
// and the trigram → match tree → posting list chain, together with the
// entity caches that materialize stored blocks.
package core

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/opensquiggly/spinach-sub000/internal/debug"
	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/metrics"
	"github.com/opensquiggly/spinach-sub000/internal/store"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// Options configures a new Index.
type Options struct {
	UserCacheSize       int
	RepositoryCacheSize int
	DocumentCacheSize   int

	// ReadFile loads document content by full path. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)

	Metrics *metrics.Metrics
}

// DocumentInfo describes a document being added to a repository.
type DocumentInfo struct {
	Name        string
	Path        string // relative to the repository root
	Length      int64
	ModTime     int64
	ContentHash uint64
}

// Index is the trigram index. It is not safe for concurrent use: one owner
// goroutine performs every mutation and query.
type Index struct {
	store    *store.Store
	users    *userTree
	repos    *repoTree
	docs     *docTree
	offsets  *offsetTree
	trigrams *trigramTree

	Users        *UserCache
	Repositories *RepositoryCache
	Documents    *DocumentCache

	readFile func(string) ([]byte, error)
	metrics  *metrics.Metrics
}

// NewIndex creates an empty index.
func NewIndex(opts Options) *Index {
	s := store.New()
	ix := &Index{
		store:    s,
		users:    store.CreateMap[types.UserKey, UserBlock](s, types.CompareUserKeys),
		repos:    store.CreateMap[types.RepoKey, RepoBlock](s, types.CompareRepoKeys),
		docs:     store.CreateMap[types.DocKey, DocBlock](s, types.CompareDocKeys),
		offsets:  store.CreateMap[types.OffsetKey, uint32](s, types.CompareOffsetKeys),
		trigrams: store.CreateMap[uint32, store.Handle](s, cmp.Compare[uint32]),
		readFile: opts.ReadFile,
		metrics:  opts.Metrics,
	}
	if ix.readFile == nil {
		ix.readFile = os.ReadFile
	}

	ix.Users = newEntityCache(metrics.CacheUsers, sizeOr(opts.UserCacheSize, types.DefaultUserCacheSize),
		ix.users, ix.materializeUser, types.InvalidUser, opts.Metrics)
	ix.Repositories = newEntityCache(metrics.CacheRepositories, sizeOr(opts.RepositoryCacheSize, types.DefaultRepositoryCacheSize),
		ix.repos, ix.materializeRepository, types.InvalidRepository, opts.Metrics)
	ix.Documents = newEntityCache(metrics.CacheDocuments, sizeOr(opts.DocumentCacheSize, types.DefaultDocumentCacheSize),
		ix.docs, ix.materializeDocument, types.InvalidDocument, opts.Metrics)
	return ix
}

func sizeOr(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

// Metrics returns the metrics sink the index was created with (possibly nil).
func (ix *Index) Metrics() *metrics.Metrics {
	return ix.metrics
}

// AddUser registers a user.
func (ix *Index) AddUser(key types.UserKey, name string) (*types.User, error) {
	if _, found := ix.users.Find(key); found {
		return nil, fmt.Errorf("user %s: %w", key, errors.ErrAlreadyExists)
	}
	ix.users.Put(key, UserBlock{Key: key, NameAddr: ix.store.Heap().Append(name)})
	ix.Users.Invalidate(key)

	user, _ := ix.Users.TryFind(key)
	return user, nil
}

// AddRepository registers a repository under an existing user. rootFolder
// anchors the relative paths of its documents.
func (ix *Index) AddRepository(key types.RepoKey, name, rootFolder string) (*types.Repository, error) {
	if _, found := ix.users.Find(key.User()); !found {
		return nil, fmt.Errorf("user %s: %w", key.User(), errors.ErrNotFound)
	}
	if _, found := ix.repos.Find(key); found {
		return nil, fmt.Errorf("repository %s: %w", key, errors.ErrAlreadyExists)
	}

	heap := ix.store.Heap()
	ix.repos.Put(key, RepoBlock{
		Key:            key,
		NameAddr:       heap.Append(name),
		RootFolderAddr: heap.Append(rootFolder),
	})
	ix.Repositories.Invalidate(key)

	repo, _ := ix.Repositories.TryFind(key)
	return repo, nil
}

// UpdateRepository applies fn to the stored repository block in place.
func (ix *Index) UpdateRepository(key types.RepoKey, fn func(*RepoBlock)) error {
	node := ix.repos.FindCursor(key)
	if !node.Valid() {
		return fmt.Errorf("repository %s: %w", key, errors.ErrNotFound)
	}
	block := node.Value()
	fn(&block)
	block.Key = key
	node.Replace(block)
	ix.Repositories.Refresh(key)
	return nil
}

// AddDocument appends a document to a repository. The document receives the
// next document id and the next free range of the repository's virtual
// offset space; it is not searchable until IndexDocumentContent runs.
func (ix *Index) AddDocument(repoKey types.RepoKey, info DocumentInfo) (*types.Document, error) {
	if info.Length < 0 {
		return nil, fmt.Errorf("document %q: negative length %d", info.Path, info.Length)
	}

	var key types.DocKey
	var start int64
	err := ix.UpdateRepository(repoKey, func(b *RepoBlock) {
		b.LastDocID++
		key = types.DocKey{RepoKey: repoKey, DocID: b.LastDocID}
		start = b.NextOffset
		b.NextOffset += info.Length
		b.HasFilesToIndex = true
	})
	if err != nil {
		return nil, err
	}

	heap := ix.store.Heap()
	ix.docs.Put(key, DocBlock{
		Key:            key,
		Status:         types.DocStatusNormal,
		OriginalLength: info.Length,
		CurrentLength:  info.Length,
		StartingOffset: start,
		ContentHash:    info.ContentHash,
		ModTime:        info.ModTime,
		NameAddr:       heap.Append(info.Name),
		PathAddr:       heap.Append(info.Path),
	})
	// An empty document owns no offsets; registering it would shadow the
	// next document starting at the same offset.
	if info.Length > 0 {
		ix.offsets.Put(types.OffsetKey{RepoKey: repoKey, Offset: start}, key.DocID)
	}

	debug.Logger().Debug("document added",
		zap.Stringer("doc", key),
		zap.String("path", info.Path),
		zap.Int64("start", start),
		zap.Int64("length", info.Length))

	doc, _ := ix.Documents.TryFind(key)
	return doc, nil
}

// IndexDocumentContent records every trigram position of content in the
// document's offset range and marks the document indexed. Content longer
// than the document's recorded length is truncated to it.
func (ix *Index) IndexDocumentContent(key types.DocKey, content []byte) error {
	node := ix.docs.FindCursor(key)
	if !node.Valid() {
		return fmt.Errorf("document %s: %w", key, errors.ErrNotFound)
	}
	block := node.Value()

	if int64(len(content)) > block.CurrentLength {
		content = content[:block.CurrentLength]
	}

	for t, positions := range ExtractTrigrams(content) {
		postings, err := ix.postingListFor(t, key.RepoKey)
		if err != nil {
			return err
		}
		for _, p := range positions {
			postings.Put(block.StartingOffset+int64(p), Posting{})
		}
	}

	block.IsIndexed = true
	block.ContentHash = xxhash.Sum64(content)
	node.Replace(block)
	ix.Documents.Refresh(key)
	ix.metrics.Indexed()
	return nil
}

func (ix *Index) postingListFor(trigram uint32, repo types.RepoKey) (*PostingList, error) {
	var matches *MatchTree
	if h, found := ix.trigrams.Find(trigram); found {
		m, err := store.OpenMap[types.RepoKey, store.Handle](ix.store, h)
		if err != nil {
			return nil, err
		}
		matches = m
	} else {
		matches = store.CreateMap[types.RepoKey, store.Handle](ix.store, types.CompareRepoKeys)
		ix.trigrams.Put(trigram, matches.Handle())
	}

	if h, found := matches.Find(repo); found {
		return store.OpenMap[int64, Posting](ix.store, h)
	}
	postings := store.CreateMap[int64, Posting](ix.store, cmp.Compare[int64])
	matches.Put(repo, postings.Handle())
	return postings, nil
}

// Delete tombstones a document. Its postings stay in place and cursors skip
// them.
func (ix *Index) Delete(key types.DocKey) error {
	return ix.setStatus(key, types.DocStatusDeleted)
}

// Undelete restores a tombstoned document.
func (ix *Index) Undelete(key types.DocKey) error {
	return ix.setStatus(key, types.DocStatusNormal)
}

// TouchDocument records a new modification time for a document whose
// content is unchanged.
func (ix *Index) TouchDocument(key types.DocKey, modTime int64) error {
	node := ix.docs.FindCursor(key)
	if !node.Valid() {
		return fmt.Errorf("document %s: %w", key, errors.ErrNotFound)
	}
	block := node.Value()
	block.ModTime = modTime
	node.Replace(block)
	ix.Documents.Refresh(key)
	return nil
}

func (ix *Index) setStatus(key types.DocKey, status types.DocStatus) error {
	node := ix.docs.FindCursor(key)
	if !node.Valid() {
		return fmt.Errorf("document %s: %w", key, errors.ErrNotFound)
	}
	block := node.Value()
	block.Status = status
	node.Replace(block)
	ix.Documents.Refresh(key)
	return nil
}

// MatchTree returns the match tree of a packed trigram.
func (ix *Index) MatchTree(trigram uint32) (*MatchTree, bool) {
	h, found := ix.trigrams.Find(trigram)
	if !found {
		return nil, false
	}
	m, err := store.OpenMap[types.RepoKey, store.Handle](ix.store, h)
	if err != nil {
		return nil, false
	}
	return m, true
}

// PostingList opens the posting list stored under h.
func (ix *Index) PostingList(h store.Handle) (*PostingList, bool) {
	p, err := store.OpenMap[int64, Posting](ix.store, h)
	if err != nil {
		return nil, false
	}
	return p, true
}

// DocumentAt finds the document whose range starts at the greatest
// starting offset <= offset within repo. The caller still checks that the
// document's range contains offset.
func (ix *Index) DocumentAt(repo types.RepoKey, offset int64) (types.DocKey, bool) {
	c := ix.offsets.SeekFloor(types.OffsetKey{RepoKey: repo, Offset: offset})
	if !c.Valid() || c.Key().RepoKey != repo {
		return types.DocKey{}, false
	}
	return types.DocKey{RepoKey: repo, DocID: c.Value()}, true
}

// ForEachRepository calls fn for every repository in key order until fn
// returns false.
func (ix *Index) ForEachRepository(fn func(*types.Repository) bool) {
	for c := ix.repos.First(); c.Valid(); c.Next() {
		repo, ok := ix.Repositories.TryFind(c.Key())
		if !ok {
			continue
		}
		if !fn(repo) {
			return
		}
	}
}

// ForEachDocument calls fn for every document of repo, tombstones included,
// in document id order until fn returns false.
func (ix *Index) ForEachDocument(repo types.RepoKey, fn func(*types.Document) bool) {
	for c := ix.docs.Seek(types.DocKey{RepoKey: repo}); c.Valid(); c.Next() {
		key := c.Key()
		if key.RepoKey != repo {
			return
		}
		doc, ok := ix.Documents.TryFind(key)
		if !ok {
			continue
		}
		if !fn(doc) {
			return
		}
	}
}

func (ix *Index) loadString(addr store.Address) string {
	s, err := ix.store.Heap().Load(addr)
	if err != nil {
		debug.Log("CORE", "string heap load at %d: %v", addr, err)
		return ""
	}
	return s
}

func (ix *Index) materializeUser(b UserBlock) *types.User {
	return types.NewUser(b.Key, ix.loadString(b.NameAddr))
}

func (ix *Index) materializeRepository(b RepoBlock) *types.Repository {
	repo := types.NewRepository(b.Key, ix.loadString(b.NameAddr), ix.loadString(b.RootFolderAddr))
	repo.LastDocID = b.LastDocID
	repo.NextOffset = b.NextOffset
	repo.HasFilesToIndex = b.HasFilesToIndex
	repo.IsIndexing = b.IsIndexing
	return repo
}

func (ix *Index) materializeDocument(b DocBlock) *types.Document {
	path := ix.loadString(b.PathAddr)
	fullPath := path
	if repo, ok := ix.Repositories.TryFind(b.Key.RepoKey); ok && repo.RootFolder != "" {
		fullPath = filepath.Join(repo.RootFolder, filepath.FromSlash(path))
	}

	doc := types.NewDocument(b.Key, ix.contentLoader(fullPath))
	doc.Status = b.Status
	doc.IsIndexed = b.IsIndexed
	doc.OriginalLength = b.OriginalLength
	doc.CurrentLength = b.CurrentLength
	doc.StartingOffset = b.StartingOffset
	doc.ContentHash = b.ContentHash
	doc.ModTime = b.ModTime
	doc.Name = ix.loadString(b.NameAddr)
	doc.Path = path
	doc.FullPath = fullPath
	return doc
}

func (ix *Index) contentLoader(fullPath string) types.ContentLoader {
	readFile := ix.readFile
	return func() ([]byte, error) {
		data, err := readFile(fullPath)
		if err != nil {
			debug.LogSearch("content of %s unavailable, treating as empty: %v", fullPath, err)
		}
		return data, err
	}
}
