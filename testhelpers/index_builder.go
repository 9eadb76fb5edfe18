// Package testhelpers provides shared fixtures for index, cursor and search
// tests.
package testhelpers

import (
	"fmt"
	"path"
	"testing"

	"github.com/opensquiggly/spinach-sub000/internal/core"
	"github.com/opensquiggly/spinach-sub000/internal/metrics"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// DefaultRepo is the repository files land in unless InRepository says
// otherwise.
var DefaultRepo = types.RepoKey{UserType: 1, UserID: 1, RepoType: 1, RepoID: 1}

// TestFile is one document of a fixture.
type TestFile struct {
	Repo    types.RepoKey
	Path    string
	Content []byte
	Deleted bool
	Pad     int64 // extra offset-space bytes reserved before the file
}

// IndexBuilder assembles an in-memory index without touching the disk.
// Content is served from memory through the index's ReadFile hook.
//
//	fx := testhelpers.NewIndexBuilder().
//		AddFile("a.go", "package a").
//		AddFile("b.go", "package b").
//		Build(t)
type IndexBuilder struct {
	repo    types.RepoKey
	files   []*TestFile
	opts    core.Options
	unread  map[string]bool
	skipIdx map[string]bool
}

// NewIndexBuilder creates a builder targeting DefaultRepo.
func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{
		repo:    DefaultRepo,
		unread:  make(map[string]bool),
		skipIdx: make(map[string]bool),
	}
}

// InRepository directs subsequent files to repo.
func (b *IndexBuilder) InRepository(repo types.RepoKey) *IndexBuilder {
	b.repo = repo
	return b
}

// AddFile adds an indexed document.
func (b *IndexBuilder) AddFile(name, content string) *IndexBuilder {
	b.files = append(b.files, &TestFile{Repo: b.repo, Path: name, Content: []byte(content)})
	return b
}

// AddDeletedFile adds a document and tombstones it after indexing.
func (b *IndexBuilder) AddDeletedFile(name, content string) *IndexBuilder {
	b.AddFile(name, content)
	b.files[len(b.files)-1].Deleted = true
	return b
}

// AddUnreadableFile adds an indexed document whose content read fails at
// query time.
func (b *IndexBuilder) AddUnreadableFile(name, content string) *IndexBuilder {
	b.AddFile(name, content)
	b.unread[b.fullPath(b.repo, name)] = true
	return b
}

// AddUnindexedFile adds a document without recording its trigrams.
func (b *IndexBuilder) AddUnindexedFile(name, content string) *IndexBuilder {
	b.AddFile(name, content)
	b.skipIdx[b.fullPath(b.repo, name)] = true
	return b
}

// AddPadding reserves n bytes of offset space in the current repository so
// that the next file starts at a chosen virtual offset.
func (b *IndexBuilder) AddPadding(n int64) *IndexBuilder {
	b.files = append(b.files, &TestFile{Repo: b.repo, Path: fmt.Sprintf(".pad-%d", len(b.files)), Pad: n, Deleted: true})
	return b
}

// WithOptions overrides index options. ReadFile is always replaced.
func (b *IndexBuilder) WithOptions(opts core.Options) *IndexBuilder {
	b.opts = opts
	return b
}

// WithMetrics attaches a metrics sink.
func (b *IndexBuilder) WithMetrics(m *metrics.Metrics) *IndexBuilder {
	b.opts.Metrics = m
	return b
}

func (b *IndexBuilder) fullPath(repo types.RepoKey, name string) string {
	return path.Join(repoRoot(repo), name)
}

func repoRoot(repo types.RepoKey) string {
	return fmt.Sprintf("/mem/%d/%d/%d/%d", repo.UserType, repo.UserID, repo.RepoType, repo.RepoID)
}

// Fixture is a built index plus lookup tables for assertions.
type Fixture struct {
	Index *core.Index
	Docs  map[string]*types.Document // by path, last added wins
	Files map[string][]byte          // by full path
	Reads map[string]int             // content reads by full path
}

// Doc returns the document added under name.
func (f *Fixture) Doc(t testing.TB, name string) *types.Document {
	t.Helper()
	doc, ok := f.Docs[name]
	if !ok {
		t.Fatalf("no document %q in fixture", name)
	}
	return doc
}

// Build creates users, repositories and documents in insertion order and
// indexes every file.
func (b *IndexBuilder) Build(t testing.TB) *Fixture {
	t.Helper()

	fx := &Fixture{
		Docs:  make(map[string]*types.Document),
		Files: make(map[string][]byte),
		Reads: make(map[string]int),
	}

	opts := b.opts
	opts.ReadFile = func(p string) ([]byte, error) {
		fx.Reads[p]++
		if b.unread[p] {
			return nil, fmt.Errorf("read %s: permission denied", p)
		}
		data, ok := fx.Files[p]
		if !ok {
			return nil, fmt.Errorf("read %s: no such file", p)
		}
		return data, nil
	}
	ix := core.NewIndex(opts)
	fx.Index = ix

	users := make(map[types.UserKey]bool)
	repos := make(map[types.RepoKey]bool)

	for _, f := range b.files {
		if u := f.Repo.User(); !users[u] {
			if _, err := ix.AddUser(u, fmt.Sprintf("user-%d", u.UserID)); err != nil {
				t.Fatalf("add user %s: %v", u, err)
			}
			users[u] = true
		}
		if !repos[f.Repo] {
			if _, err := ix.AddRepository(f.Repo, fmt.Sprintf("repo-%d", f.Repo.RepoID), repoRoot(f.Repo)); err != nil {
				t.Fatalf("add repository %s: %v", f.Repo, err)
			}
			repos[f.Repo] = true
		}

		length := int64(len(f.Content)) + f.Pad
		doc, err := ix.AddDocument(f.Repo, core.DocumentInfo{
			Name:   path.Base(f.Path),
			Path:   f.Path,
			Length: length,
		})
		if err != nil {
			t.Fatalf("add document %s: %v", f.Path, err)
		}

		full := b.fullPath(f.Repo, f.Path)
		fx.Files[full] = f.Content
		if !b.skipIdx[full] {
			if err := ix.IndexDocumentContent(doc.Key, f.Content); err != nil {
				t.Fatalf("index %s: %v", f.Path, err)
			}
		}
		if f.Deleted {
			if err := ix.Delete(doc.Key); err != nil {
				t.Fatalf("delete %s: %v", f.Path, err)
			}
		}
		if f.Pad == 0 {
			fx.Docs[f.Path], _ = ix.Documents.TryFind(doc.Key)
		}
	}

	// Reads during setup are not interesting to tests.
	for k := range fx.Reads {
		delete(fx.Reads, k)
	}
	ix.Documents.Clear()
	return fx
}
