package catalog

import (
	"fmt"
	"slices"

	"github.com/roach88/catsim/internal/ir"
)

// ResolverFunc computes one derived column over a chunk.
//
// It must be pure: read the context, return a fresh column with exactly
// rc.Len() values, and never modify columns it was handed.
type ResolverFunc func(rc *ResolveContext) (ir.Column, error)

// Resolver is a derived column: the columns it reads and how to compute it.
// Deps are resolved before Func runs; Func may read only those columns.
type Resolver struct {
	Deps []string
	Func ResolverFunc
}

// ResolveContext is what a resolver sees: the current chunk's length and
// ids plus its already-resolved dependencies.
type ResolveContext struct {
	catalog string
	column  string
	chunk   *ir.Chunk
	deps    map[string]ir.Column
}

// Len returns the number of rows in the chunk.
func (rc *ResolveContext) Len() int {
	return rc.chunk.Len()
}

// IDs returns the chunk's unique identifiers.
func (rc *ResolveContext) IDs() ir.Int64Column {
	return rc.chunk.IDs
}

// Column returns a declared dependency.
func (rc *ResolveContext) Column(name string) (ir.Column, error) {
	col, ok := rc.deps[name]
	if !ok {
		return nil, fmt.Errorf("%s reads %q, which is not a declared dependency", rc.column, name)
	}
	return col, nil
}

// Float64 returns a declared dependency as float64 values, converting
// integer columns.
func (rc *ResolveContext) Float64(name string) (ir.Float64Column, error) {
	col, err := rc.Column(name)
	if err != nil {
		return nil, err
	}
	f, err := ir.AsFloat64(col)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// Alias resolves to another column unchanged.
func Alias(dep string) Resolver {
	return Resolver{
		Deps: []string{dep},
		Func: func(rc *ResolveContext) (ir.Column, error) {
			return rc.Column(dep)
		},
	}
}

// Sum resolves to the element-wise sum of numeric columns.
func Sum(deps ...string) Resolver {
	return Resolver{
		Deps: slices.Clone(deps),
		Func: func(rc *ResolveContext) (ir.Column, error) {
			out := make(ir.Float64Column, rc.Len())
			for _, dep := range deps {
				col, err := rc.Float64(dep)
				if err != nil {
					return nil, err
				}
				out = ir.Add(out, col)
			}
			return out, nil
		},
	}
}

// Scaled resolves to k times a numeric column.
func Scaled(k float64, dep string) Resolver {
	return Resolver{
		Deps: []string{dep},
		Func: func(rc *ResolveContext) (ir.Column, error) {
			col, err := rc.Float64(dep)
			if err != nil {
				return nil, err
			}
			return ir.Scale(k, col), nil
		},
	}
}
