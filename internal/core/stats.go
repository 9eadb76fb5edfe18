package core

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/opensquiggly/spinach-sub000/internal/store"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// Stats summarizes the contents of an index.
type Stats struct {
	Users            int64
	Repositories     int64
	Documents        int64
	DeletedDocuments int64
	IndexedDocuments int64
	TotalSizeBytes   int64
	Trigrams         int64
	Postings         int64
	HeapBytes        int64

	// ExtensionDistribution counts live documents per lower-cased file
	// extension ("" for none).
	ExtensionDistribution map[string]int64
}

// Stats walks every tree of the index. It is meant for diagnostics, not for
// hot paths.
func (ix *Index) Stats() Stats {
	s := Stats{
		Users:                 int64(ix.users.Len()),
		Repositories:          int64(ix.repos.Len()),
		Trigrams:              int64(ix.trigrams.Len()),
		HeapBytes:             int64(ix.store.Heap().Size()),
		ExtensionDistribution: make(map[string]int64),
	}

	for c := ix.docs.First(); c.Valid(); c.Next() {
		b := c.Value()
		s.Documents++
		if b.Status == types.DocStatusDeleted {
			s.DeletedDocuments++
			continue
		}
		if b.IsIndexed {
			s.IndexedDocuments++
		}
		s.TotalSizeBytes += b.CurrentLength
		ext := strings.ToLower(filepath.Ext(ix.loadString(b.PathAddr)))
		s.ExtensionDistribution[ext]++
	}

	for t := ix.trigrams.First(); t.Valid(); t.Next() {
		matches, err := store.OpenMap[types.RepoKey, store.Handle](ix.store, t.Value())
		if err != nil {
			continue
		}
		for m := matches.First(); m.Valid(); m.Next() {
			if postings, ok := ix.PostingList(m.Value()); ok {
				s.Postings += int64(postings.Len())
			}
		}
	}
	return s
}

// TopExtensions returns up to n extensions ordered by descending document
// count, ties broken by name.
func (s Stats) TopExtensions(n int) []string {
	exts := make([]string, 0, len(s.ExtensionDistribution))
	for ext := range s.ExtensionDistribution {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		ci, cj := s.ExtensionDistribution[exts[i]], s.ExtensionDistribution[exts[j]]
		if ci != cj {
			return ci > cj
		}
		return exts[i] < exts[j]
	})
	if n >= 0 && len(exts) > n {
		exts = exts[:n]
	}
	return exts
}
