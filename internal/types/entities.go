package types

// DocStatus is the lifecycle state of a document. Documents are never
// physically removed; deletion leaves a tombstone.
type DocStatus uint8

const (
	DocStatusNormal DocStatus = iota
	DocStatusDeleted
)

func (s DocStatus) String() string {
	switch s {
	case DocStatusNormal:
		return "normal"
	case DocStatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// User is a materialized user record.
type User struct {
	Key   UserKey
	Name  string
	valid bool
}

// NewUser returns a valid user.
func NewUser(key UserKey, name string) *User {
	return &User{Key: key, Name: name, valid: true}
}

// IsValid reports whether the user was found.
func (u *User) IsValid() bool { return u != nil && u.valid }

// Repository is a materialized repository record.
type Repository struct {
	Key             RepoKey
	Name            string
	RootFolder      string
	LastDocID       uint32
	NextOffset      int64
	HasFilesToIndex bool
	IsIndexing      bool
	valid           bool
}

// NewRepository returns a valid repository.
func NewRepository(key RepoKey, name, rootFolder string) *Repository {
	return &Repository{Key: key, Name: name, RootFolder: rootFolder, valid: true}
}

// IsValid reports whether the repository was found.
func (r *Repository) IsValid() bool { return r != nil && r.valid }

// ContentLoader reads a document's full content.
type ContentLoader func() ([]byte, error)

// Document is a materialized document record with lazily loaded content.
type Document struct {
	Key            DocKey
	Status         DocStatus
	IsIndexed      bool
	OriginalLength int64
	CurrentLength  int64
	StartingOffset int64
	ContentHash    uint64
	ModTime        int64 // unix nanoseconds at enumeration
	Name           string
	Path           string // relative to the repository root
	FullPath       string

	loader     ContentLoader
	content    []byte
	loaded     bool
	contentErr error
	valid      bool
}

// NewDocument returns a valid document whose content is produced by loader.
func NewDocument(key DocKey, loader ContentLoader) *Document {
	return &Document{Key: key, loader: loader, valid: true}
}

// IsValid reports whether the document was found.
func (d *Document) IsValid() bool { return d != nil && d.valid }

// EndOffset is the first virtual offset past the document.
func (d *Document) EndOffset() int64 { return d.StartingOffset + d.CurrentLength }

// Contains reports whether offset falls inside the document's range.
func (d *Document) Contains(offset int64) bool {
	return offset >= d.StartingOffset && offset < d.EndOffset()
}

// Content returns the document content, loading it on first use. A read
// failure yields empty content; ContentErr reports the cause.
func (d *Document) Content() []byte {
	if !d.loaded {
		d.loaded = true
		if d.loader != nil {
			d.content, d.contentErr = d.loader()
			if d.contentErr != nil {
				d.content = nil
			}
		}
	}
	return d.content
}

// ContentErr returns the error from the last content load, if any.
func (d *Document) ContentErr() error { return d.contentErr }

// SetContent primes the content so no load happens.
func (d *Document) SetContent(content []byte) {
	d.content = content
	d.contentErr = nil
	d.loaded = true
}

// DropContent releases loaded content; the next Content call reloads it.
func (d *Document) DropContent() {
	d.content = nil
	d.contentErr = nil
	d.loaded = false
}

// Sentinel invalid objects returned when a lookup misses.
var (
	InvalidUser       = &User{}
	InvalidRepository = &Repository{}
	InvalidDocument   = &Document{}
)

// MatchData is the resolved context of a cursor position. A cursor owns its
// MatchData and overwrites it on every move.
type MatchData struct {
	IsUserValid   bool
	IsRepoValid   bool
	IsDocValid    bool
	User          *User
	Repository    *Repository
	Document      *Document
	MatchPosition int64
}

// IsValid reports whether user, repository and document all resolved.
func (m *MatchData) IsValid() bool {
	return m != nil && m.IsUserValid && m.IsRepoValid && m.IsDocValid
}

// Reset clears the data back to the invalid sentinels.
func (m *MatchData) Reset() {
	*m = MatchData{User: InvalidUser, Repository: InvalidRepository, Document: InvalidDocument}
}
