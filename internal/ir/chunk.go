package ir

import (
	"fmt"
	"slices"
)

// Chunk is an ordered batch of raw rows, keyed by the unique id column.
//
// Rows are ordered by ascending id. Every column in Fields has exactly
// IDs.Len() values. Chunk boundaries carry no meaning: a chunk of 10 rows
// followed by a chunk of 5 is equivalent to one chunk of 15.
type Chunk struct {
	// IDColumn is the name of the unique identifier column.
	IDColumn string

	// IDs holds one unique identifier per row, strictly ascending.
	IDs Int64Column

	// Fields maps projected column name to its values.
	Fields map[string]Column

	// Seq is the 1-based position of this chunk in its source's stream.
	Seq int64
}

// Len returns the number of rows.
func (c *Chunk) Len() int {
	return len(c.IDs)
}

// Field returns the named raw column.
// The id column is addressable by name like any other field.
func (c *Chunk) Field(name string) (Column, bool) {
	if name == c.IDColumn && name != "" {
		return c.IDs, true
	}
	col, ok := c.Fields[name]
	return col, ok
}

// FieldNames returns projected field names in sorted order.
func (c *Chunk) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks that every field is aligned with the id column.
func (c *Chunk) Validate() error {
	n := len(c.IDs)
	for _, name := range c.FieldNames() {
		if got := c.Fields[name].Len(); got != n {
			return fmt.Errorf("field %q has %d values, want %d", name, got, n)
		}
	}
	return nil
}

// ResolvedChunk is a chunk projected onto one catalog's requested outputs.
//
// Names and Columns are parallel and follow the catalog's declared output
// order. IDs is carried along so sinks can key rows without re-reading the
// source chunk.
type ResolvedChunk struct {
	Catalog string
	Seq     int64
	IDs     Int64Column
	Names   []string
	Columns []Column
}

// Len returns the number of rows.
func (r *ResolvedChunk) Len() int {
	return len(r.IDs)
}

// Column returns the named output column.
func (r *ResolvedChunk) Column(name string) (Column, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Columns[i], true
		}
	}
	return nil, false
}

// Row returns the i-th row's values in output order.
func (r *ResolvedChunk) Row(i int) []any {
	row := make([]any, len(r.Columns))
	for j, col := range r.Columns {
		row[j] = col.Value(i)
	}
	return row
}
