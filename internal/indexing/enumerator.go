package indexing

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/opensquiggly/spinach-sub000/internal/config"
	"github.com/opensquiggly/spinach-sub000/internal/debug"
	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/pkg/pathutil"
)

// FileEntry is one file found under a repository root.
type FileEntry struct {
	Path     string // slash-separated, relative to the root
	FullPath string
	Size     int64
	ModTime  int64 // unix nanoseconds
}

// Enumerator lists the indexable files of a directory tree.
type Enumerator struct {
	include       []string
	exclude       []string
	maxFileSize   int64
	respectBinary bool
	binary        *BinaryDetector
}

// NewEnumerator creates an enumerator from the include, exclude and index
// sections of cfg.
func NewEnumerator(cfg *config.Config) *Enumerator {
	return &Enumerator{
		include:       cfg.Include,
		exclude:       cfg.Exclude,
		maxFileSize:   cfg.Index.MaxFileSize,
		respectBinary: cfg.Index.RespectBinaryDetection,
		binary:        NewBinaryDetector(),
	}
}

// Enumerate walks root in lexical order and returns the files that pass the
// include and exclude patterns, the size limit and, when enabled, the
// extension-based binary check. Content sniffing is left to the caller so
// unchanged files are never opened.
func (e *Enumerator) Enumerate(root string) ([]FileEntry, error) {
	var entries []FileEntry
	var skipped []error

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			skipped = append(skipped, errors.NewFileError("walk", path, err))
			return nil
		}
		if path == root {
			return nil
		}

		rel, ok := pathutil.Within(path, root)
		if !ok {
			return nil
		}

		if d.IsDir() {
			if e.shouldExcludeDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if e.shouldExclude(rel) || !e.shouldInclude(rel) {
			return nil
		}
		if e.respectBinary && e.binary.IsBinaryByExtension(rel) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			skipped = append(skipped, errors.NewFileError("stat", path, infoErr))
			return nil
		}
		if e.maxFileSize > 0 && info.Size() > e.maxFileSize {
			skipped = append(skipped, errors.NewFileTooLargeError(path, info.Size(), e.maxFileSize))
			return nil
		}

		entries = append(entries, FileEntry{
			Path:     rel,
			FullPath: path,
			Size:     info.Size(),
			ModTime:  info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return nil, errors.NewFileError("walk", root, err)
	}

	for _, s := range skipped {
		debug.LogIndexing("%v", s)
	}
	return entries, nil
}

func (e *Enumerator) shouldExclude(rel string) bool {
	for _, pattern := range e.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// shouldExcludeDir prunes a directory when an exclusion of the form
// "<dir>/**" names it.
func (e *Enumerator) shouldExcludeDir(rel string) bool {
	for _, pattern := range e.exclude {
		dirPattern, ok := strings.CutSuffix(pattern, "/**")
		if !ok {
			continue
		}
		if matched, _ := doublestar.Match(dirPattern, rel); matched {
			return true
		}
	}
	return false
}

// shouldInclude accepts everything when no include patterns are set.
func (e *Enumerator) shouldInclude(rel string) bool {
	if len(e.include) == 0 {
		return true
	}
	for _, pattern := range e.include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}
