package types

// Common system-wide constants
const (
	// Size limits
	DefaultMaxDocSize = 4 * 1024 * 1024 // 4MB - documents above this are never surfaced by cursors
	// Rationale: Generated files and data dumps dominate anything larger
	// and make every trigram posting list they touch expensive to walk.

	DefaultLargeDocThreshold = 256 * 1024 // 256KB - candidates in larger documents seek past the document end
	// Rationale: A seek costs two tree descents; draining a handful of
	// remaining positions in a small document is cheaper than that.

	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB per file - standard limit for indexing

	// Cache capacities
	DefaultUserCacheSize       = 256
	DefaultRepositoryCacheSize = 1024
	DefaultDocumentCacheSize   = 16384

	// Binary detection
	BinaryPreCheckBytes = 512 // Number of bytes to read for binary magic number detection

	// TrigramLength is the index granularity in bytes.
	TrigramLength = 3
)

// DocMatchType selects how many confirmed matches a document may contribute.
type DocMatchType int

const (
	// FirstMatchOnly surfaces at most one match per document.
	FirstMatchOnly DocMatchType = iota
	// AllMatchesInDocument surfaces every confirmed match.
	AllMatchesInDocument
)

func (t DocMatchType) String() string {
	switch t {
	case FirstMatchOnly:
		return "first"
	case AllMatchesInDocument:
		return "all"
	default:
		return "unknown"
	}
}

// ParseDocMatchType accepts "first" and "all" (and their long spellings).
func ParseDocMatchType(s string) (DocMatchType, bool) {
	switch s {
	case "first", "first_match_only", "FirstMatchOnly":
		return FirstMatchOnly, true
	case "all", "all_matches", "AllMatchesInDocument":
		return AllMatchesInDocument, true
	default:
		return FirstMatchOnly, false
	}
}
