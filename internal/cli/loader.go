package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/catsim/internal/catalog"
	"github.com/roach88/catsim/internal/compiler"
	"github.com/roach88/catsim/internal/engine"
	"github.com/roach88/catsim/internal/queryir"
	"github.com/roach88/catsim/internal/sink"
	"github.com/roach88/catsim/internal/source"
)

// Error codes for structured CLI output.
const (
	// Load errors (E0xx)
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeLoadFailed = "E004" // Manifest load or compile failed
	ErrCodeNotFound   = "E005" // Path not found
	ErrCodeStore      = "E006" // Database open or ingest failed
	ErrCodeConfig     = "E007" // Invalid configuration

	// Catalog definition errors (E1xx)
	ErrCodeCyclicDependency  = "E101"
	ErrCodeMissingField      = "E102"
	ErrCodeUnknownColumn     = "E103"
	ErrCodeInvalidDefinition = "E104"

	// Run errors (E2xx)
	ErrCodeRunFailed = "E201" // One or more classes failed
	ErrCodeCancelled = "E202" // Run interrupted
)

// LoadResult is a compiled manifest with one spec per catalog, both in
// declaration order.
type LoadResult struct {
	Manifest *compiler.Manifest
	Specs    []*catalog.Spec
}

// LoadError is a manifest that could not be turned into catalog specs.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadCatalogs compiles the manifest in dir and constructs every spec.
// No row source is opened.
func LoadCatalogs(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "error accessing manifest directory", Err: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	manifest, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "failed to compile manifest", Err: err}
	}
	specs, err := manifest.Specs()
	if err != nil {
		return nil, &LoadError{Code: definitionCode(err), Message: "invalid catalog definition", Err: err}
	}
	return &LoadResult{Manifest: manifest, Specs: specs}, nil
}

// definitionCode maps a catalog construction error to its CLI error code.
func definitionCode(err error) string {
	var de *catalog.DefinitionError
	if !errors.As(err, &de) {
		return ErrCodeGeneric
	}
	switch de.Code {
	case catalog.ErrCodeCyclicDependency:
		return ErrCodeCyclicDependency
	case catalog.ErrCodeMissingField:
		return ErrCodeMissingField
	case catalog.ErrCodeUnknownColumn:
		return ErrCodeUnknownColumn
	default:
		return ErrCodeInvalidDefinition
	}
}

// errorCode returns the structured code carried by err, if any.
func errorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

// planBackend satisfies source.Backend for coordinators that are only
// planned, never run.
type planBackend struct{}

func (planBackend) Execute(context.Context, queryir.Select, int) (source.ChunkIterator, error) {
	return nil, errors.New("planning backend does not execute queries")
}

// planClasses groups specs into equivalence classes without touching a
// database.
func planClasses(specs []*catalog.Spec) ([]engine.ClassPlan, error) {
	entries := make([]engine.Entry, len(specs))
	for i, spec := range specs {
		entries[i] = engine.Entry{Spec: spec, Sink: sink.NewMemorySink()}
	}
	coord, err := engine.New(planBackend{}, entries)
	if err != nil {
		return nil, err
	}
	return coord.Plan(), nil
}

// ClassSummary is the printable form of one equivalence class.
type ClassSummary struct {
	Source   string   `json:"source" yaml:"source"`
	Catalogs []string `json:"catalogs" yaml:"catalogs"`
	Status   string   `json:"status,omitempty" yaml:"status,omitempty"`
	Chunks   int64    `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	Rows     int64    `json:"rows,omitempty" yaml:"rows,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}
