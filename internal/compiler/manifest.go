package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/catsim/internal/catalog"
	"github.com/roach88/catsim/internal/queryir"
)

// Manifest is a compiled catalog manifest: row sources, catalog
// definitions in declaration order, and each catalog's output target.
//
// Manifest format (CUE):
//
//	source: table1DB1: {
//		table: "table1"
//		id:    "id"                                  // default "id"
//		columns: {raJ2000: "ra", decJ2000: "dec"}    // omit both for auto mode
//		passthrough: ["mag", "dmag"]                 // identity mappings
//		filter: [{field: "mag", op: "<", value: 22.0}]
//	}
//	catalog: Cat1: {
//		source:  "table1DB1"                         // inherited from base if omitted
//		base:    "Cat0"                              // optional
//		outputs: ["raObs", "final_mag"]              // inherited from base if omitted
//		columns: {
//			raObs:     {deps: ["raJ2000"], expr: "raJ2000"}
//			final_mag: {deps: ["mag", "dmag"], expr: "mag + dmag"}
//		}
//		output: "cat1.txt"                           // default "<name>.txt"
//	}
type Manifest struct {
	Sources  map[string]catalog.Source
	Catalogs []Catalog
}

// Catalog is one compiled catalog entry.
type Catalog struct {
	Name       string
	Source     string
	Output     string
	Definition *catalog.Definition
}

// LoadDir loads every .cue file in dir as one CUE instance and compiles it.
func LoadDir(dir string) (*Manifest, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &CompileError{Field: "manifest", Message: fmt.Sprintf("manifest directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &CompileError{Field: "manifest", Message: fmt.Sprintf("not a directory: %s", dir)}
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil || len(files) == 0 {
		return nil, &CompileError{Field: "manifest", Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Field: "manifest", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError("manifest", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError("manifest", err)
	}
	return Compile(value)
}

// CompileString compiles manifest source text. Used by tests and the
// scenario harness.
func CompileString(src string) (*Manifest, error) {
	value := cuecontext.New().CompileString(src)
	if err := value.Err(); err != nil {
		return nil, formatCUEError("manifest", err)
	}
	return Compile(value)
}

// Compile turns a built CUE value into a Manifest.
func Compile(v cue.Value) (*Manifest, error) {
	m := &Manifest{Sources: make(map[string]catalog.Source)}

	if sv := v.LookupPath(cue.ParsePath("source")); sv.Exists() {
		iter, err := sv.Fields()
		if err != nil {
			return nil, formatCUEError("source", err)
		}
		for iter.Next() {
			src, err := compileSource(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			m.Sources[src.Name] = src
		}
	}

	raw, err := parseCatalogs(v)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &CompileError{Field: "catalog", Message: "at least one catalog is required", Pos: v.Pos()}
	}
	if err := m.link(raw); err != nil {
		return nil, err
	}
	return m, nil
}

// Specs builds one spec per catalog, in declaration order.
// Errors are *catalog.DefinitionError values wrapped with the catalog name.
func (m *Manifest) Specs() ([]*catalog.Spec, error) {
	specs := make([]*catalog.Spec, 0, len(m.Catalogs))
	for _, c := range m.Catalogs {
		spec, err := catalog.NewSpec(m.Sources[c.Source], *c.Definition)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Catalog returns the named catalog entry.
func (m *Manifest) Catalog(name string) (Catalog, bool) {
	for _, c := range m.Catalogs {
		if c.Name == name {
			return c, true
		}
	}
	return Catalog{}, false
}

func compileSource(name string, v cue.Value) (catalog.Source, error) {
	field := "source." + name
	src := catalog.Source{Name: name, IDColumn: "id"}

	table, err := requiredString(v, "table", field)
	if err != nil {
		return src, err
	}
	src.Table = table

	if idv := v.LookupPath(cue.ParsePath("id")); idv.Exists() {
		id, err := idv.String()
		if err != nil {
			return src, formatCUEError(field+".id", err)
		}
		src.IDColumn = id
	}

	if cv := v.LookupPath(cue.ParsePath("columns")); cv.Exists() {
		iter, err := cv.Fields()
		if err != nil {
			return src, formatCUEError(field+".columns", err)
		}
		src.Columns = make(map[string]string)
		for iter.Next() {
			expr, err := iter.Value().String()
			if err != nil {
				return src, formatCUEError(field+".columns."+iter.Label(), err)
			}
			src.Columns[iter.Label()] = expr
		}
	}

	if pv := v.LookupPath(cue.ParsePath("passthrough")); pv.Exists() {
		names, err := stringList(pv, field+".passthrough")
		if err != nil {
			return src, err
		}
		if src.Columns == nil {
			src.Columns = make(map[string]string)
		}
		for _, n := range names {
			if expr, dup := src.Columns[n]; dup && expr != n {
				return src, &CompileError{Field: field + ".passthrough", Message: fmt.Sprintf("%s is already mapped to %q", n, expr), Pos: pv.Pos()}
			}
			src.Columns[n] = n
		}
	}

	if fv := v.LookupPath(cue.ParsePath("filter")); fv.Exists() {
		filter, err := compileFilter(fv, field+".filter")
		if err != nil {
			return src, err
		}
		src.Filter = filter
	}
	return src, nil
}

// compileFilter parses a list of {field, op, value} conditions into a
// conjunction. A single condition is returned unwrapped.
func compileFilter(v cue.Value, field string) (queryir.Predicate, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(field, err)
	}

	var preds []queryir.Predicate
	for i := 0; list.Next(); i++ {
		item := list.Value()
		path := fmt.Sprintf("%s[%d]", field, i)

		name, err := requiredString(item, "field", path)
		if err != nil {
			return nil, err
		}
		op, err := requiredString(item, "op", path)
		if err != nil {
			return nil, err
		}
		lit, err := literal(item.LookupPath(cue.ParsePath("value")), path+".value")
		if err != nil {
			return nil, err
		}

		if op == "=" || op == "==" {
			preds = append(preds, queryir.Equals{Field: name, Value: lit})
			continue
		}
		cmp := queryir.CompareOp(op)
		if !cmp.Valid() {
			return nil, &CompileError{Field: path + ".op", Message: fmt.Sprintf("unsupported operator %q", op), Pos: item.Pos()}
		}
		preds = append(preds, queryir.Compare{Field: name, Op: cmp, Value: lit})
	}

	switch len(preds) {
	case 0:
		return nil, nil
	case 1:
		return preds[0], nil
	default:
		return queryir.And{Predicates: preds}, nil
	}
}

func literal(v cue.Value, field string) (any, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: field, Message: "value is required"}
	}
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		return n, formatCUEError(field, err)
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return f, formatCUEError(field, err)
	case cue.StringKind:
		s, err := v.String()
		return s, formatCUEError(field, err)
	case cue.BoolKind:
		b, err := v.Bool()
		return b, formatCUEError(field, err)
	default:
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("unsupported literal kind %s", v.Kind()), Pos: v.Pos()}
	}
}

func requiredString(v cue.Value, name, field string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(name))
	if !sv.Exists() {
		return "", &CompileError{Field: field + "." + name, Message: name + " is required", Pos: v.Pos()}
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(field+"."+name, err)
	}
	return s, nil
}

func optionalString(v cue.Value, name, field string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(name))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(field+"."+name, err)
	}
	return s, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(field, err)
	}
	var out []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, formatCUEError(field, err)
		}
		out = append(out, s)
	}
	return out, nil
}
