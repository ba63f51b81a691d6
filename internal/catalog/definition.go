package catalog

import (
	"maps"
	"slices"
)

// Definition is a catalog as its author writes it.
//
// A definition with a Base inherits the base's resolvers and outputs.
// Its own Columns override base resolvers of the same name, and its
// Outputs, when non-empty, replace the inherited list.
type Definition struct {
	Name    string
	Base    *Definition
	Outputs []string
	Columns map[string]Resolver
}

// flattened is a definition with its override chain applied.
type flattened struct {
	outputs []string
	columns map[string]Resolver
}

// flatten walks the Base chain from the root down, so nearer definitions
// override farther ones.
func flatten(def *Definition) (*flattened, error) {
	var chain []*Definition
	seen := make(map[*Definition]bool)
	for d := def; d != nil; d = d.Base {
		if seen[d] {
			names := make([]string, 0, len(chain)+1)
			for _, c := range chain {
				names = append(names, c.Name)
			}
			names = append(names, d.Name)
			return nil, definitionErrorf(ErrCodeInvalidDefinition, def.Name, names, "base chain loops")
		}
		seen[d] = true
		chain = append(chain, d)
	}

	f := &flattened{columns: make(map[string]Resolver)}
	for _, d := range slices.Backward(chain) {
		maps.Copy(f.columns, d.Columns)
		if len(d.Outputs) > 0 {
			f.outputs = slices.Clone(d.Outputs)
		}
	}
	return f, nil
}
