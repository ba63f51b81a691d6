package catalog

import (
	"fmt"

	"github.com/roach88/catsim/internal/ir"
)

// Evaluator produces one catalog's output for each chunk of its row source.
//
// An Evaluator holds no state between chunks, so one chunk's result never
// depends on the chunks before it. It is safe for concurrent use.
type Evaluator struct {
	spec *Spec
}

// NewEvaluator creates an evaluator for spec.
func NewEvaluator(spec *Spec) *Evaluator {
	return &Evaluator{spec: spec}
}

// Spec returns the evaluated spec.
func (e *Evaluator) Spec() *Spec {
	return e.spec
}

// Evaluate resolves the spec's outputs over chunk, in declared order.
//
// Raw fields pass through unchanged. Derived columns are computed in plan
// order, each at most once, and discarded when Evaluate returns. If any
// resolver fails, Evaluate returns a *ColumnComputationError and no
// ResolvedChunk: a chunk is emitted whole or not at all.
func (e *Evaluator) Evaluate(chunk *ir.Chunk) (*ir.ResolvedChunk, error) {
	s := e.spec
	resolved := make(map[string]ir.Column, len(s.plan)+len(s.outputs))

	lookup := func(name string) (ir.Column, error) {
		if col, ok := resolved[name]; ok {
			return col, nil
		}
		if !s.raw[name] {
			return nil, fmt.Errorf("column %q not resolved", name)
		}
		col, ok := chunk.Field(name)
		if !ok {
			return nil, fmt.Errorf("raw field %q missing from chunk", name)
		}
		resolved[name] = col
		return col, nil
	}

	for _, name := range s.plan {
		r := s.columns[name]
		deps := make(map[string]ir.Column, len(r.Deps))
		for _, dep := range r.Deps {
			col, err := lookup(dep)
			if err != nil {
				return nil, e.fail(name, chunk, err)
			}
			deps[dep] = col
		}

		col, err := call(r.Func, &ResolveContext{
			catalog: s.name,
			column:  name,
			chunk:   chunk,
			deps:    deps,
		})
		if err != nil {
			return nil, e.fail(name, chunk, err)
		}
		if col == nil {
			return nil, e.fail(name, chunk, fmt.Errorf("resolver returned no column"))
		}
		if col.Len() != chunk.Len() {
			return nil, e.fail(name, chunk, fmt.Errorf("resolver returned %d values for %d rows", col.Len(), chunk.Len()))
		}
		resolved[name] = col
	}

	out := &ir.ResolvedChunk{
		Catalog: s.name,
		Seq:     chunk.Seq,
		IDs:     chunk.IDs,
		Names:   s.Outputs(),
		Columns: make([]ir.Column, len(s.outputs)),
	}
	for i, name := range s.outputs {
		col, err := lookup(name)
		if err != nil {
			return nil, e.fail(name, chunk, err)
		}
		out.Columns[i] = col
	}
	return out, nil
}

func (e *Evaluator) fail(column string, chunk *ir.Chunk, cause error) error {
	return &ColumnComputationError{
		Catalog: e.spec.name,
		Column:  column,
		Chunk:   chunk.Seq,
		Cause:   cause,
	}
}

// call runs a resolver, converting a panic into an error.
func call(fn ResolverFunc, rc *ResolveContext) (col ir.Column, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolver panicked: %v", r)
		}
	}()
	return fn(rc)
}
