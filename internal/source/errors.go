package source

import (
	"errors"
	"fmt"
)

// SourceUnavailableError reports that a row source could not be opened.
type SourceUnavailableError struct {
	Source string // Row source description (RowSourceKey.String)
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("SOURCE_UNAVAILABLE: %s: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// SourceError reports a failure while iterating an open row source.
type SourceError struct {
	Source string
	Chunk  int64 // 1-based sequence of the chunk being fetched
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("SOURCE_ERROR: %s (chunk %d): %v", e.Source, e.Chunk, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsSourceUnavailable returns true if err is or wraps a SourceUnavailableError.
func IsSourceUnavailable(err error) bool {
	var se *SourceUnavailableError
	return errors.As(err, &se)
}

// IsSourceError returns true if err is or wraps a SourceError.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
