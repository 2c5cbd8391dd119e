package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Error types for the fingerprinting pipeline
type ErrorType string

const (
	// Extraction errors
	ErrorTypeExtraction  ErrorType = "extraction"
	ErrorTypeUnknownNode ErrorType = "unknown_node"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Storage errors
	ErrorTypeStore ErrorType = "store"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// ExtractionError represents a per-file failure while parsing or walking a
// source file. It never aborts the enclosing batch.
type ExtractionError struct {
	Type        ErrorType
	FilePath    string
	Stage       string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// NewExtractionError creates a new extraction error for the given stage
func NewExtractionError(stage string, err error) *ExtractionError {
	return &ExtractionError{
		Type:        ErrorTypeExtraction,
		Stage:       stage,
		Underlying:  err,
		Timestamp:   time.Now(),
		Recoverable: true,
	}
}

// WithFile adds file information to the error
func (e *ExtractionError) WithFile(path string) *ExtractionError {
	e.FilePath = path
	return e
}

// WithRecoverable marks the error as recoverable
func (e *ExtractionError) WithRecoverable(recoverable bool) *ExtractionError {
	e.Recoverable = recoverable
	return e
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Stage, e.FilePath, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, e.Stage, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ExtractionError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable checks if the error can be skipped
func (e *ExtractionError) IsRecoverable() bool {
	return e.Recoverable
}

// UnknownNodeError is raised when the walker meets a syntax node kind it
// has no handler for. It points at a parser/extractor version mismatch.
type UnknownNodeError struct {
	Type      ErrorType
	Kind      string
	Line      int
	Column    int
	Timestamp time.Time
}

// NewUnknownNodeError creates a new unknown node error. Line and column are 1-based.
func NewUnknownNodeError(kind string, line, column int) *UnknownNodeError {
	return &UnknownNodeError{
		Type:      ErrorTypeUnknownNode,
		Kind:      kind,
		Line:      line,
		Column:    column,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unhandled syntax node %q at %d:%d", e.Kind, e.Line, e.Column)
}

// StoreError represents a reference store failure
type StoreError struct {
	Type       ErrorType
	Operation  string
	Transient  bool
	Underlying error
	Timestamp  time.Time
}

// NewStoreError creates a new store error
func NewStoreError(op string, transient bool, err error) *StoreError {
	return &StoreError{
		Type:       ErrorTypeStore,
		Operation:  op,
		Transient:  transient,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Operation, e.Underlying)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Underlying
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

func isPermissionError(err error) bool {
	if errors.Is(err, fs.ErrPermission) {
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

// ConfigError represents a configuration or input validation error
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

// IsRecoverable reports whether err is confined to one file and may be
// logged and skipped. Unknown node errors are not.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var unknown *UnknownNodeError
	if errors.As(err, &unknown) {
		return false
	}
	var extraction *ExtractionError
	if errors.As(err, &extraction) {
		return extraction.Recoverable
	}
	var fileErr *FileError
	return errors.As(err, &fileErr)
}

// IsTransient reports whether err is a store failure worth retrying.
func IsTransient(err error) bool {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Transient
	}
	return false
}
