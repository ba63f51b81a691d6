package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/catsim/internal/catalog"
)

// rawCatalog is a catalog entry before base and source references are
// resolved.
type rawCatalog struct {
	name    string
	source  string
	base    string
	outputs []string
	columns map[string]catalog.Resolver
	output  string
	pos     token.Pos
}

func parseCatalogs(v cue.Value) ([]*rawCatalog, error) {
	cv := v.LookupPath(cue.ParsePath("catalog"))
	if !cv.Exists() {
		return nil, nil
	}
	iter, err := cv.Fields()
	if err != nil {
		return nil, formatCUEError("catalog", err)
	}

	var out []*rawCatalog
	for iter.Next() {
		rc, err := parseCatalog(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

func parseCatalog(name string, v cue.Value) (*rawCatalog, error) {
	field := "catalog." + name
	rc := &rawCatalog{name: name, pos: v.Pos()}

	var err error
	if rc.source, err = optionalString(v, "source", field); err != nil {
		return nil, err
	}
	if rc.base, err = optionalString(v, "base", field); err != nil {
		return nil, err
	}
	if rc.output, err = optionalString(v, "output", field); err != nil {
		return nil, err
	}
	if ov := v.LookupPath(cue.ParsePath("outputs")); ov.Exists() {
		if rc.outputs, err = stringList(ov, field+".outputs"); err != nil {
			return nil, err
		}
	}

	cv := v.LookupPath(cue.ParsePath("columns"))
	if !cv.Exists() {
		return rc, nil
	}
	iter, err := cv.Fields()
	if err != nil {
		return nil, formatCUEError(field+".columns", err)
	}
	rc.columns = make(map[string]catalog.Resolver)
	for iter.Next() {
		r, err := parseColumn(iter.Value(), field+".columns."+iter.Label())
		if err != nil {
			return nil, err
		}
		rc.columns[iter.Label()] = r
	}
	return rc, nil
}

// parseColumn accepts either a bare string, which aliases another column,
// or {deps, expr} with a CEL expression over deps.
func parseColumn(v cue.Value, field string) (catalog.Resolver, error) {
	if alias, err := v.String(); err == nil {
		return catalog.Alias(alias), nil
	}

	expr, err := requiredString(v, "expr", field)
	if err != nil {
		return catalog.Resolver{}, err
	}
	var deps []string
	if dv := v.LookupPath(cue.ParsePath("deps")); dv.Exists() {
		if deps, err = stringList(dv, field+".deps"); err != nil {
			return catalog.Resolver{}, err
		}
	}

	r, err := compileExpr(expr, deps)
	if err != nil {
		return catalog.Resolver{}, &CompileError{Field: field + ".expr", Message: err.Error(), Pos: v.Pos()}
	}
	return r, nil
}

// link resolves base and source references and fills m.Catalogs in
// declaration order. Base chains are resolved depth-first; a base that
// is missing or leads back to the catalog is a compile error.
func (m *Manifest) link(raw []*rawCatalog) error {
	byName := make(map[string]*rawCatalog, len(raw))
	for _, rc := range raw {
		byName[rc.name] = rc
	}

	defs := make(map[string]*catalog.Definition, len(raw))
	sources := make(map[string]string, len(raw))
	visiting := make(map[string]bool)

	var resolve func(rc *rawCatalog) error
	resolve = func(rc *rawCatalog) error {
		if _, done := defs[rc.name]; done {
			return nil
		}
		if visiting[rc.name] {
			return &CompileError{Field: "catalog." + rc.name + ".base", Message: "base chain loops back to " + rc.name, Pos: rc.pos}
		}
		visiting[rc.name] = true
		defer delete(visiting, rc.name)

		def := &catalog.Definition{Name: rc.name, Outputs: rc.outputs, Columns: rc.columns}
		src := rc.source
		if rc.base != "" {
			base, ok := byName[rc.base]
			if !ok {
				return &CompileError{Field: "catalog." + rc.name + ".base", Message: fmt.Sprintf("unknown base catalog %q", rc.base), Pos: rc.pos}
			}
			if err := resolve(base); err != nil {
				return err
			}
			def.Base = defs[base.name]
			if src == "" {
				src = sources[base.name]
			}
		}
		if src == "" {
			return &CompileError{Field: "catalog." + rc.name + ".source", Message: "source is required (directly or through base)", Pos: rc.pos}
		}
		if _, ok := m.Sources[src]; !ok {
			return &CompileError{Field: "catalog." + rc.name + ".source", Message: fmt.Sprintf("unknown source %q", src), Pos: rc.pos}
		}

		defs[rc.name] = def
		sources[rc.name] = src
		return nil
	}

	for _, rc := range raw {
		if err := resolve(rc); err != nil {
			return err
		}
		output := rc.output
		if output == "" {
			output = rc.name + ".txt"
		}
		m.Catalogs = append(m.Catalogs, Catalog{
			Name:       rc.name,
			Source:     sources[rc.name],
			Output:     output,
			Definition: defs[rc.name],
		})
	}
	return nil
}
