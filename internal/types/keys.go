package types

import (
	"cmp"
	"fmt"
)

// UserKey identifies a user: (userType, userId).
type UserKey struct {
	UserType uint16
	UserID   uint32
}

// Compare orders by UserType, then UserID.
func (k UserKey) Compare(o UserKey) int {
	if c := cmp.Compare(k.UserType, o.UserType); c != 0 {
		return c
	}
	return cmp.Compare(k.UserID, o.UserID)
}

func (k UserKey) String() string {
	return fmt.Sprintf("%d/%d", k.UserType, k.UserID)
}

// RepoKey identifies a repository: (userType, userId, repoType, repoId).
type RepoKey struct {
	UserType uint16
	UserID   uint32
	RepoType uint16
	RepoID   uint32
}

// User returns the owning user's key.
func (k RepoKey) User() UserKey {
	return UserKey{UserType: k.UserType, UserID: k.UserID}
}

// Compare orders by the user prefix, then RepoType, then RepoID.
func (k RepoKey) Compare(o RepoKey) int {
	if c := k.User().Compare(o.User()); c != 0 {
		return c
	}
	if c := cmp.Compare(k.RepoType, o.RepoType); c != 0 {
		return c
	}
	return cmp.Compare(k.RepoID, o.RepoID)
}

func (k RepoKey) String() string {
	return fmt.Sprintf("%d/%d:%d/%d", k.UserType, k.UserID, k.RepoType, k.RepoID)
}

// DocKey identifies a document inside a repository.
type DocKey struct {
	RepoKey
	DocID uint32
}

// Compare orders by the repository prefix, then DocID.
func (k DocKey) Compare(o DocKey) int {
	if c := k.RepoKey.Compare(o.RepoKey); c != 0 {
		return c
	}
	return cmp.Compare(k.DocID, o.DocID)
}

func (k DocKey) String() string {
	return fmt.Sprintf("%s#%d", k.RepoKey, k.DocID)
}

// OffsetKey addresses a position in a repository's virtual offset space.
type OffsetKey struct {
	RepoKey
	Offset int64
}

// Compare orders by the repository prefix, then Offset.
func (k OffsetKey) Compare(o OffsetKey) int {
	if c := k.RepoKey.Compare(o.RepoKey); c != 0 {
		return c
	}
	return cmp.Compare(k.Offset, o.Offset)
}

// MatchKey identifies a candidate position. Two keys anchored at different
// raw offsets compare equal when their effective offsets line up.
type MatchKey struct {
	RepoKey
	Offset         int64
	AdjustedOffset int64
}

// EffectiveOffset is Offset + AdjustedOffset.
func (k MatchKey) EffectiveOffset() int64 {
	return k.Offset + k.AdjustedOffset
}

// Compare orders by the repository prefix, then EffectiveOffset.
func (k MatchKey) Compare(o MatchKey) int {
	if c := k.RepoKey.Compare(o.RepoKey); c != 0 {
		return c
	}
	return cmp.Compare(k.EffectiveOffset(), o.EffectiveOffset())
}

// Equal reports whether both keys address the same effective position.
func (k MatchKey) Equal(o MatchKey) bool {
	return k.Compare(o) == 0
}

func (k MatchKey) String() string {
	return fmt.Sprintf("%s@%d%+d", k.RepoKey, k.Offset, k.AdjustedOffset)
}

// CompareUserKeys, CompareRepoKeys, CompareDocKeys, CompareOffsetKeys and
// CompareMatchKeys adapt the methods for ordered structures.
func CompareUserKeys(a, b UserKey) int     { return a.Compare(b) }
func CompareRepoKeys(a, b RepoKey) int     { return a.Compare(b) }
func CompareDocKeys(a, b DocKey) int       { return a.Compare(b) }
func CompareOffsetKeys(a, b OffsetKey) int { return a.Compare(b) }
func CompareMatchKeys(a, b MatchKey) int   { return a.Compare(b) }
