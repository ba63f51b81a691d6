package engine

import (
	"slices"

	"github.com/roach88/catsim/internal/ir"
)

// Status is the terminal state of one equivalence class.
type Status string

const (
	StatusOK        Status = "ok"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ClassOutcome describes how one equivalence class finished.
type ClassOutcome struct {
	Key      ir.RowSourceKey
	Catalogs []string // member catalogs in definition order
	Status   Status
	Err      error // nil when Status is StatusOK

	// Chunks and Rows count the chunks that reached every sink in the
	// class. When a sink fails, members appended before it may also hold
	// the failed chunk.
	Chunks int64
	Rows   int64
}

// Report is the aggregate result of a run, one outcome per class in
// first-appearance order.
type Report struct {
	RunID   string
	Classes []ClassOutcome
}

// Err returns a *RunError if any class failed, else nil.
// Cancelled classes are not failures.
func (r *Report) Err() error {
	var failed []ClassOutcome
	for _, c := range r.Classes {
		if c.Status == StatusFailed {
			failed = append(failed, c)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &RunError{RunID: r.RunID, Failed: failed, Total: len(r.Classes)}
}

// Succeeded reports whether every class completed.
func (r *Report) Succeeded() bool {
	for _, c := range r.Classes {
		if c.Status != StatusOK {
			return false
		}
	}
	return true
}

// Outcome returns the outcome of the class containing catalog.
func (r *Report) Outcome(catalog string) (ClassOutcome, bool) {
	for _, c := range r.Classes {
		if slices.Contains(c.Catalogs, catalog) {
			return c, true
		}
	}
	return ClassOutcome{}, false
}

// Count returns how many classes finished with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, c := range r.Classes {
		if c.Status == s {
			n++
		}
	}
	return n
}
