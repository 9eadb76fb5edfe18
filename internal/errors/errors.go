package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"time"

	goerrors "github.com/go-errors/errors"
)

// Error types for the spinach search engine
type ErrorType string

const (
	// Indexing errors
	ErrorTypeIndexing ErrorType = "indexing"
	ErrorTypeSearch   ErrorType = "search"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypeFileTooLarge ErrorType = "file_too_large"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

var (
	// ErrMalformedTrigram is returned when a trigram cursor is asked for a
	// string that is not exactly three bytes long.
	ErrMalformedTrigram = stderrors.New("trigram must be exactly 3 bytes")

	// ErrIndexingInProgress is returned when an indexing pass is requested for
	// a repository that already has one in progress.
	ErrIndexingInProgress = stderrors.New("repository is already being indexed")

	// ErrFullScanRequired is returned when a query has no literal of at least
	// three characters and can only be answered by scanning every document.
	ErrFullScanRequired = stderrors.New("query cannot be narrowed by the trigram index; full scan required")

	// ErrNotFound is returned by store lookups addressed by handle and by
	// index mutations naming an entity that does not exist.
	ErrNotFound = stderrors.New("not found")

	// ErrAlreadyExists is returned when adding a user or repository whose key
	// is taken.
	ErrAlreadyExists = stderrors.New("already exists")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// IndexingError represents an error during the indexing process
type IndexingError struct {
	Type        ErrorType
	Repository  string
	FilePath    string
	Operation   string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
	stack       *goerrors.Error
}

// NewIndexingError creates a new indexing error with context
func NewIndexingError(op string, err error) *IndexingError {
	return &IndexingError{
		Type:       ErrorTypeIndexing,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
		stack:      goerrors.Wrap(err, 1),
	}
}

// WithRepository adds repository information to the error
func (e *IndexingError) WithRepository(repo string) *IndexingError {
	e.Repository = repo
	return e
}

// WithFile adds file information to the error
func (e *IndexingError) WithFile(path string) *IndexingError {
	e.FilePath = path
	return e
}

// WithRecoverable marks the error as recoverable
func (e *IndexingError) WithRecoverable(recoverable bool) *IndexingError {
	e.Recoverable = recoverable
	return e
}

// Error implements the error interface
func (e *IndexingError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.FilePath, e.Underlying)
	}
	if e.Repository != "" {
		return fmt.Sprintf("%s %s failed for repository %s: %v", e.Type, e.Operation, e.Repository, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *IndexingError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable checks if the error can be retried
func (e *IndexingError) IsRecoverable() bool {
	return e.Recoverable
}

// StackTrace returns the stack captured when the error was created.
func (e *IndexingError) StackTrace() string {
	return stackOf(e.stack)
}

// SearchError represents a search operation error
type SearchError struct {
	Type       ErrorType
	Pattern    string
	Underlying error
	Timestamp  time.Time
	stack      *goerrors.Error
}

// NewSearchError creates a new search error
func NewSearchError(pattern string, err error) *SearchError {
	return &SearchError{
		Type:       ErrorTypeSearch,
		Pattern:    pattern,
		Underlying: err,
		Timestamp:  time.Now(),
		stack:      goerrors.Wrap(err, 1),
	}
}

// Error implements the error interface
func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed for pattern %q: %v", e.Pattern, e.Underlying)
}

// Unwrap returns the underlying error
func (e *SearchError) Unwrap() error {
	return e.Underlying
}

// StackTrace returns the stack captured when the error was created.
func (e *SearchError) StackTrace() string {
	return stackOf(e.stack)
}

func stackOf(e *goerrors.Error) string {
	if e == nil {
		return ""
	}
	return string(e.Stack())
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// NewFileTooLargeError reports a file that exceeds the configured size limit.
func NewFileTooLargeError(path string, size, limit int64) *FileError {
	return &FileError{
		Type:       ErrorTypeFileTooLarge,
		Path:       path,
		Operation:  "size check",
		Underlying: fmt.Errorf("size %d exceeds limit %d", size, limit),
		Timestamp:  time.Now(),
	}
}

func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, fs.ErrPermission) {
		return true
	}
	errStr := err.Error()
	return errStr == "permission denied" || errStr == "access denied"
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected.
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
