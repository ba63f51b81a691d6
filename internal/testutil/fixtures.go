package testutil

import (
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/roach88/catsim/internal/ir"
)

// Table is an in-memory raw table: unique ids plus named columns.
type Table struct {
	Name     string
	IDColumn string
	Order    []string // column order for text output
	IDs      ir.Int64Column
	Columns  map[string]ir.Column
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.IDs)
}

// Float64 returns a numeric column, panicking if absent.
// For test assertions only.
func (t *Table) Float64(name string) ir.Float64Column {
	col, ok := t.Columns[name].(ir.Float64Column)
	if !ok {
		panic(fmt.Sprintf("testutil: table %s has no float column %q", t.Name, name))
	}
	return col
}

// WriteText writes the table in the '#'-headed whitespace format that
// store.IngestText reads. Floats use %e like the fixture generator of the
// compound catalog tests; the ingested values are therefore rounded to 7
// significant digits relative to the in-memory table.
func (t *Table) WriteText(w io.Writer) error {
	header := append([]string{t.IDColumn}, t.Order...)
	if _, err := fmt.Fprintf(w, "# %s\n", strings.Join(header, " ")); err != nil {
		return err
	}
	for i, id := range t.IDs {
		fields := make([]string, 0, len(header))
		fields = append(fields, fmt.Sprintf("%d", id))
		for _, name := range t.Order {
			switch col := t.Columns[name].(type) {
			case ir.Float64Column:
				fields = append(fields, fmt.Sprintf("%e", col[i]))
			default:
				fields = append(fields, fmt.Sprint(col.Value(i)))
			}
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return nil
}

// Text returns WriteText output as a string.
func (t *Table) Text() string {
	var b strings.Builder
	_ = t.WriteText(&b)
	return b.String()
}

// StarTable builds the primary compound-catalog fixture: n rows with
// columns ra, dec, mag, dmag, dra, ddec and ids 0..n-1, generated from a
// fixed seed so every run sees identical data.
func StarTable(name string, n int, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))
	sample := func(scale, offset float64) ir.Float64Column {
		col := make(ir.Float64Column, n)
		for i := range col {
			col[i] = rng.Float64()*scale + offset
		}
		return col
	}

	t := &Table{
		Name:     name,
		IDColumn: "id",
		Order:    []string{"ra", "dec", "mag", "dmag", "dra", "ddec"},
		IDs:      sequentialIDs(n),
		Columns:  map[string]ir.Column{},
	}
	t.Columns["ra"] = sample(360.0, 0)
	t.Columns["dec"] = sample(180.0, -90.0)
	t.Columns["mag"] = sample(10.0, 15.0)
	t.Columns["dmag"] = sample(10.0, -5.0)
	t.Columns["dra"] = sample(5.0, -2.5)
	t.Columns["ddec"] = sample(-2.0, -4.0)
	return t
}

// OffsetTable builds the secondary fixture: n rows with ra, dec, mag in
// ranges disjoint from StarTable, so cross-table leakage is detectable.
func OffsetTable(name string, n int, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))
	sample := func(scale, offset float64) ir.Float64Column {
		col := make(ir.Float64Column, n)
		for i := range col {
			col[i] = rng.Float64()*scale + offset
		}
		return col
	}

	t := &Table{
		Name:     name,
		IDColumn: "id",
		Order:    []string{"ra", "dec", "mag"},
		IDs:      sequentialIDs(n),
		Columns:  map[string]ir.Column{},
	}
	t.Columns["ra"] = sample(360.0, 360.0)
	t.Columns["dec"] = sample(180.0, 180.0)
	t.Columns["mag"] = sample(3.0, 7.0)
	return t
}

func sequentialIDs(n int) ir.Int64Column {
	ids := make(ir.Int64Column, n)
	for i := range ids {
		ids[i] = int64(i)
	}
	return ids
}
