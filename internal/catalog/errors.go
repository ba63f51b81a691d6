package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// DefinitionErrorCode categorizes construction-time errors.
type DefinitionErrorCode string

const (
	// ErrCodeCyclicDependency indicates a derived column depends on itself.
	ErrCodeCyclicDependency DefinitionErrorCode = "CYCLIC_DEPENDENCY"

	// ErrCodeMissingField indicates a resolver reads a raw field absent from
	// the source projection.
	ErrCodeMissingField DefinitionErrorCode = "MISSING_FIELD"

	// ErrCodeUnknownColumn indicates a requested output has no raw field and
	// no resolver.
	ErrCodeUnknownColumn DefinitionErrorCode = "UNKNOWN_COLUMN"

	// ErrCodeInvalidDefinition indicates a structurally invalid definition.
	ErrCodeInvalidDefinition DefinitionErrorCode = "INVALID_DEFINITION"
)

// DefinitionError reports a catalog that cannot be constructed.
//
// Construction errors are fatal for the whole run: they are raised before
// any row source is opened.
type DefinitionError struct {
	Code    DefinitionErrorCode
	Catalog string

	// Columns names the offending columns. For cycles this is the cycle
	// path with the first member repeated at the end.
	Columns []string

	Message string
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Columns) > 0 {
		sep := ", "
		if e.Code == ErrCodeCyclicDependency {
			sep = " -> "
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Columns, sep))
	}
	if e.Catalog != "" {
		fmt.Fprintf(&b, " (catalog=%s)", e.Catalog)
	}
	return b.String()
}

func definitionErrorf(code DefinitionErrorCode, catalog string, columns []string, format string, args ...any) *DefinitionError {
	return &DefinitionError{
		Code:    code,
		Catalog: catalog,
		Columns: columns,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsCyclicDependency returns true if err is a cycle detection error.
// Uses errors.As to handle wrapped errors.
func IsCyclicDependency(err error) bool {
	return hasCode(err, ErrCodeCyclicDependency)
}

// IsMissingField returns true if err is a missing raw field error.
func IsMissingField(err error) bool {
	return hasCode(err, ErrCodeMissingField)
}

// IsUnknownColumn returns true if err is an unknown output column error.
func IsUnknownColumn(err error) bool {
	return hasCode(err, ErrCodeUnknownColumn)
}

// IsDefinitionError returns true for any construction-time error.
func IsDefinitionError(err error) bool {
	var de *DefinitionError
	return errors.As(err, &de)
}

func hasCode(err error, code DefinitionErrorCode) bool {
	var de *DefinitionError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ColumnComputationError reports a resolver failure while evaluating a chunk.
// The chunk fails atomically: none of its rows reach the sink.
type ColumnComputationError struct {
	Catalog string
	Column  string
	Chunk   int64 // sequence of the failed chunk
	Cause   error
}

func (e *ColumnComputationError) Error() string {
	return fmt.Sprintf("COLUMN_COMPUTATION: %s.%s (chunk %d): %v", e.Catalog, e.Column, e.Chunk, e.Cause)
}

func (e *ColumnComputationError) Unwrap() error {
	return e.Cause
}

// IsColumnComputationError returns true if err is or wraps a
// ColumnComputationError.
func IsColumnComputationError(err error) bool {
	var ce *ColumnComputationError
	return errors.As(err, &ce)
}
