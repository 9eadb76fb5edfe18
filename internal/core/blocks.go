package core

import (
	"github.com/opensquiggly/spinach-sub000/internal/store"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// UserBlock is the stored form of a user.
type UserBlock struct {
	Key      types.UserKey
	NameAddr store.Address
}

// RepoBlock is the stored form of a repository.
type RepoBlock struct {
	Key             types.RepoKey
	NameAddr        store.Address
	RootFolderAddr  store.Address
	LastDocID       uint32
	NextOffset      int64
	HasFilesToIndex bool
	IsIndexing      bool
}

// DocBlock is the stored form of a document. Strings live in the heap.
type DocBlock struct {
	Key            types.DocKey
	Status         types.DocStatus
	IsIndexed      bool
	OriginalLength int64
	CurrentLength  int64
	StartingOffset int64
	ContentHash    uint64
	ModTime        int64
	NameAddr       store.Address
	PathAddr       store.Address
}

// Posting is the value type of a posting list; the position is the key.
type Posting = struct{}

type (
	userTree    = store.OrderedMap[types.UserKey, UserBlock]
	repoTree    = store.OrderedMap[types.RepoKey, RepoBlock]
	docTree     = store.OrderedMap[types.DocKey, DocBlock]
	offsetTree  = store.OrderedMap[types.OffsetKey, uint32]
	trigramTree = store.OrderedMap[uint32, store.Handle]

	// MatchTree maps a repository to the handle of its posting list for one
	// trigram.
	MatchTree = store.OrderedMap[types.RepoKey, store.Handle]

	// PostingList holds ascending virtual offsets.
	PostingList = store.OrderedMap[int64, Posting]
)
