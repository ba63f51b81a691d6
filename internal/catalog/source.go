package catalog

import (
	"maps"
	"slices"

	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/queryir"
)

// Source is a row source definition: which table to read and which raw
// fields it exposes.
//
// Columns maps a raw field name to the backend expression producing it
// (e.g. "raJ2000" → "2.0*ra"). A source with no Columns is in auto mode:
// each catalog over it projects exactly the table columns it references.
// Auto mode trusts those names: NewSpec cannot check them against the table,
// so a misspelled raw dependency is not a MISSING_FIELD error. It surfaces
// when the class opens its row source, as SourceUnavailable, after other
// classes may already have written output. Declare Columns to have every
// raw name checked at construction.
//
// Sources are plain values; build them once and pass them to NewSpec.
type Source struct {
	Name     string
	Table    string
	IDColumn string
	Columns  map[string]string
	Filter   queryir.Predicate // nil = every row
}

// Auto reports whether the source projects on demand.
func (s Source) Auto() bool {
	return len(s.Columns) == 0
}

// Declares reports whether name is a raw field of the source: the id column
// or a declared mapping. In auto mode only the id column is known.
func (s Source) Declares(name string) bool {
	if name == s.IDColumn {
		return true
	}
	_, ok := s.Columns[name]
	return ok
}

// projections returns the declared mappings sorted by name.
func (s Source) projections() []ir.Projection {
	names := slices.Sorted(maps.Keys(s.Columns))
	out := make([]ir.Projection, len(names))
	for i, name := range names {
		out[i] = ir.Projection{Name: name, Expr: s.Columns[name]}
	}
	return out
}

// query builds the backing query. In auto mode fields become identity
// projections; otherwise every declared mapping is projected so that all
// catalogs over the same source share one key.
func (s Source) query(fields []string) queryir.Select {
	var proj []ir.Projection
	if s.Auto() {
		proj = make([]ir.Projection, len(fields))
		for i, f := range fields {
			proj[i] = ir.Projection{Name: f, Expr: f}
		}
	} else {
		proj = s.projections()
	}
	return queryir.Select{
		From:        s.Table,
		IDColumn:    s.IDColumn,
		Projections: proj,
		Filter:      s.Filter,
	}
}
