package search

import (
	"bytes"

	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// Match is one confirmed occurrence of a pattern.
type Match struct {
	User       *types.User
	Repository *types.Repository
	Document   *types.Document
	Position   int64 // byte offset of the match inside the document
	Length     int
	Line       int // 1-based
	Column     int // 1-based, in bytes
	LineText   string
}

func newMatch(user *types.User, repo *types.Repository, doc *types.Document, content []byte, start, end int) Match {
	ls := lineStart(content, start)
	le := bytes.IndexByte(content[start:], '\n')
	if le < 0 {
		le = len(content)
	} else {
		le += start
	}
	return Match{
		User:       user,
		Repository: repo,
		Document:   doc,
		Position:   int64(start),
		Length:     end - start,
		Line:       bytesToLine(content, start),
		Column:     start - ls + 1,
		LineText:   string(bytes.TrimSuffix(content[ls:le], []byte("\r"))),
	}
}

func lineStart(content []byte, offset int) int {
	return bytes.LastIndexByte(content[:offset], '\n') + 1
}

func bytesToLine(content []byte, offset int) int {
	return bytes.Count(content[:offset], []byte("\n")) + 1
}
