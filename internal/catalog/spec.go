package catalog

import (
	"maps"
	"slices"

	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/queryir"
)

// Spec is a validated, immutable catalog: its row source, requested
// outputs, flattened resolvers and evaluation plan.
//
// Specs are safe for concurrent use; all state is fixed by NewSpec.
type Spec struct {
	name     string
	source   Source
	outputs  []string
	columns  map[string]Resolver
	plan     []string // derived columns reachable from outputs, dependencies first
	raw      map[string]bool
	required []string
	query    queryir.Select
	key      ir.RowSourceKey
}

// NewSpec validates def against src and builds its spec.
//
// Errors are *DefinitionError values, checked in this order:
// INVALID_DEFINITION, UNKNOWN_COLUMN, MISSING_FIELD, CYCLIC_DEPENDENCY.
func NewSpec(src Source, def Definition) (*Spec, error) {
	name := def.Name
	if name == "" {
		return nil, definitionErrorf(ErrCodeInvalidDefinition, "", nil, "catalog has no name")
	}
	if err := checkSource(name, src); err != nil {
		return nil, err
	}

	flat, err := flatten(&def)
	if err != nil {
		return nil, err
	}
	if len(flat.outputs) == 0 {
		return nil, definitionErrorf(ErrCodeInvalidDefinition, name, nil, "no output columns")
	}
	if dups := duplicates(flat.outputs); len(dups) > 0 {
		return nil, definitionErrorf(ErrCodeInvalidDefinition, name, dups, "output listed more than once")
	}

	for _, col := range slices.Sorted(maps.Keys(flat.columns)) {
		r := flat.columns[col]
		switch {
		case r.Func == nil:
			return nil, definitionErrorf(ErrCodeInvalidDefinition, name, []string{col}, "resolver has no function")
		case col == src.IDColumn:
			return nil, definitionErrorf(ErrCodeInvalidDefinition, name, []string{col}, "derived column shadows the id column")
		case src.Declares(col):
			return nil, definitionErrorf(ErrCodeInvalidDefinition, name, []string{col}, "derived column shadows a raw field of source %s", src.Name)
		}
		if dups := duplicates(r.Deps); len(dups) > 0 {
			return nil, definitionErrorf(ErrCodeInvalidDefinition, name, []string{col}, "dependency %q declared twice", dups[0])
		}
	}

	isDerived := func(c string) bool {
		_, ok := flat.columns[c]
		return ok
	}
	// In auto mode every name without a resolver is a table column.
	isRaw := func(c string) bool {
		return !isDerived(c) && (src.Auto() || src.Declares(c))
	}

	var unknown []string
	for _, out := range flat.outputs {
		if !isRaw(out) && !isDerived(out) {
			unknown = append(unknown, out)
		}
	}
	if len(unknown) > 0 {
		return nil, definitionErrorf(ErrCodeUnknownColumn, name, unknown, "no raw field or resolver for output")
	}

	for _, col := range slices.Sorted(maps.Keys(flat.columns)) {
		var missing []string
		for _, dep := range flat.columns[col].Deps {
			if !isRaw(dep) && !isDerived(dep) {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			return nil, definitionErrorf(ErrCodeMissingField, name, missing,
				"resolver for %s reads fields not projected by source %s", col, src.Name)
		}
	}

	if cycle := findCycle(buildDependencyGraph(flat.columns)); cycle != nil {
		return nil, definitionErrorf(ErrCodeCyclicDependency, name, cycle, "column depends on itself")
	}

	s := &Spec{
		name:    name,
		source:  src,
		outputs: flat.outputs,
		columns: flat.columns,
		raw:     make(map[string]bool),
	}
	s.plan, s.required = s.walk(isRaw)
	for _, f := range s.required {
		s.raw[f] = true
	}
	s.raw[src.IDColumn] = true
	s.query = src.query(s.required)
	s.key = s.query.Key()

	if err := queryir.Validate(s.query); err != nil {
		return nil, definitionErrorf(ErrCodeInvalidDefinition, name, nil, "source %s: %v", src.Name, err)
	}
	return s, nil
}

// walk orders the derived columns reachable from the outputs so that every
// column follows its dependencies, and collects the raw fields they read.
func (s *Spec) walk(isRaw func(string) bool) (plan, required []string) {
	visited := make(map[string]bool)
	fields := make(map[string]bool)

	var visit func(string)
	visit = func(col string) {
		if visited[col] {
			return
		}
		visited[col] = true
		if isRaw(col) {
			if col != s.source.IDColumn {
				fields[col] = true
			}
			return
		}
		for _, dep := range s.columns[col].Deps {
			visit(dep)
		}
		plan = append(plan, col)
	}
	for _, out := range s.outputs {
		visit(out)
	}
	return plan, slices.Sorted(maps.Keys(fields))
}

func checkSource(catalog string, src Source) error {
	if src.Table == "" {
		return definitionErrorf(ErrCodeInvalidDefinition, catalog, nil, "source %q has no table", src.Name)
	}
	if src.IDColumn == "" {
		return definitionErrorf(ErrCodeInvalidDefinition, catalog, nil, "source %q has no id column", src.Name)
	}
	if _, ok := src.Columns[src.IDColumn]; ok {
		return definitionErrorf(ErrCodeInvalidDefinition, catalog, []string{src.IDColumn}, "source %q maps its id column", src.Name)
	}
	return nil
}

// Name returns the catalog name.
func (s *Spec) Name() string { return s.name }

// Source returns the row source definition.
func (s *Spec) Source() Source { return s.source }

// Outputs returns the requested output columns in declared order.
func (s *Spec) Outputs() []string { return slices.Clone(s.outputs) }

// Key returns the row source key. Specs with equal keys share an adapter.
func (s *Spec) Key() ir.RowSourceKey { return s.key }

// Query returns the backing query for this spec's row source.
func (s *Spec) Query() queryir.Select { return s.query }

// RequiredFields returns the minimal set of raw fields (excluding the id
// column) the outputs depend on, sorted.
func (s *Spec) RequiredFields() []string { return slices.Clone(s.required) }

// Plan returns the derived columns evaluated per chunk, dependencies first.
func (s *Spec) Plan() []string { return slices.Clone(s.plan) }

// Resolver returns the flattened resolver for a derived column.
func (s *Spec) Resolver(name string) (Resolver, bool) {
	r, ok := s.columns[name]
	return r, ok
}

func duplicates(names []string) []string {
	seen := make(map[string]bool, len(names))
	var dups []string
	for _, n := range names {
		if seen[n] && !slices.Contains(dups, n) {
			dups = append(dups, n)
		}
		seen[n] = true
	}
	return dups
}
