package ir

import "fmt"

// Column is a sealed interface over typed value sequences.
// Only Float64Column, Int64Column and StringColumn implement it.
type Column interface {
	// Len returns the number of values.
	Len() int

	// Value returns the i-th value boxed as a Go native value.
	Value(i int) any

	column() // Sealed
}

// Float64Column holds real-valued data (positions, magnitudes, offsets).
type Float64Column []float64

func (Float64Column) column()           {}
func (c Float64Column) Len() int        { return len(c) }
func (c Float64Column) Value(i int) any { return c[i] }

// Int64Column holds integer data, including unique identifiers.
type Int64Column []int64

func (Int64Column) column()           {}
func (c Int64Column) Len() int        { return len(c) }
func (c Int64Column) Value(i int) any { return c[i] }

// StringColumn holds text data.
type StringColumn []string

func (StringColumn) column()           {}
func (c StringColumn) Len() int        { return len(c) }
func (c StringColumn) Value(i int) any { return c[i] }

// AsFloat64 returns c as a Float64Column.
// Int64Column is widened element-wise; StringColumn is rejected.
func AsFloat64(c Column) (Float64Column, error) {
	switch col := c.(type) {
	case Float64Column:
		return col, nil
	case Int64Column:
		out := make(Float64Column, len(col))
		for i, v := range col {
			out[i] = float64(v)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("nil column")
	default:
		return nil, fmt.Errorf("column of type %T is not numeric", c)
	}
}

// Add returns the element-wise sum a+b.
// Panics if lengths differ; callers align columns to one chunk.
func Add(a, b Float64Column) Float64Column {
	if len(a) != len(b) {
		panic(fmt.Sprintf("ir.Add: length mismatch %d != %d", len(a), len(b)))
	}
	out := make(Float64Column, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Scale returns the element-wise product k*a.
func Scale(k float64, a Float64Column) Float64Column {
	out := make(Float64Column, len(a))
	for i := range a {
		out[i] = k * a[i]
	}
	return out
}
