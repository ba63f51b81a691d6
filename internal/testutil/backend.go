package testutil

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/queryir"
	"github.com/roach88/catsim/internal/source"
)

// MemoryBackend serves in-memory tables through source.Backend.
//
// Projection expressions may be a bare column name or "<number>*<column>".
// Filters support Equals, Compare and And over numeric and string columns.
// Tables must have ascending ids; MemoryBackend does not sort.
type MemoryBackend struct {
	mu     sync.Mutex
	tables map[string]*Table
}

// NewMemoryBackend creates a backend serving the given tables by name.
func NewMemoryBackend(tables ...*Table) *MemoryBackend {
	b := &MemoryBackend{tables: make(map[string]*Table)}
	for _, t := range tables {
		b.tables[t.Name] = t
	}
	return b
}

// Execute implements source.Backend.
func (b *MemoryBackend) Execute(ctx context.Context, q queryir.Select, chunkSize int) (source.ChunkIterator, error) {
	b.mu.Lock()
	t, ok := b.tables[q.From]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no such table: %s", q.From)
	}
	if q.IDColumn != t.IDColumn {
		return nil, fmt.Errorf("table %s has id column %q, not %q", t.Name, t.IDColumn, q.IDColumn)
	}

	cols := make(map[string]ir.Column, len(q.Projections))
	for _, p := range q.Projections {
		col, err := project(t, p.Expr)
		if err != nil {
			return nil, fmt.Errorf("projection %s: %w", p.Name, err)
		}
		cols[p.Name] = col
	}

	var rows []int
	for i := range t.IDs {
		keep, err := matches(t, i, q.Filter)
		if err != nil {
			return nil, err
		}
		if keep {
			rows = append(rows, i)
		}
	}

	return &memoryIterator{table: t, idColumn: q.IDColumn, cols: cols, rows: rows, chunkSize: chunkSize}, nil
}

type memoryIterator struct {
	table     *Table
	idColumn  string
	cols      map[string]ir.Column
	rows      []int
	pos       int
	chunkSize int
	closed    bool
}

func (it *memoryIterator) Next(ctx context.Context) (*ir.Chunk, error) {
	if it.closed {
		return nil, fmt.Errorf("iterator closed")
	}
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	end := min(it.pos+it.chunkSize, len(it.rows))
	sel := it.rows[it.pos:end]
	it.pos = end

	chunk := &ir.Chunk{
		IDColumn: it.idColumn,
		IDs:      make(ir.Int64Column, len(sel)),
		Fields:   make(map[string]ir.Column, len(it.cols)),
	}
	for j, r := range sel {
		chunk.IDs[j] = it.table.IDs[r]
	}
	for name, col := range it.cols {
		chunk.Fields[name] = gather(col, sel)
	}
	return chunk, nil
}

func (it *memoryIterator) Close() error {
	it.closed = true
	return nil
}

// project evaluates "col" or "<k>*col" over a whole table.
func project(t *Table, expr string) (ir.Column, error) {
	expr = strings.ReplaceAll(expr, " ", "")
	if factor, name, ok := strings.Cut(expr, "*"); ok {
		k, err := strconv.ParseFloat(factor, 64)
		if err != nil {
			return nil, fmt.Errorf("unsupported expression %q", expr)
		}
		col, err := ir.AsFloat64(t.Columns[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return ir.Scale(k, col), nil
	}
	if expr == t.IDColumn {
		return t.IDs, nil
	}
	col, ok := t.Columns[expr]
	if !ok {
		return nil, fmt.Errorf("no such column: %s", expr)
	}
	return col, nil
}

func gather(col ir.Column, rows []int) ir.Column {
	switch c := col.(type) {
	case ir.Float64Column:
		out := make(ir.Float64Column, len(rows))
		for j, r := range rows {
			out[j] = c[r]
		}
		return out
	case ir.Int64Column:
		out := make(ir.Int64Column, len(rows))
		for j, r := range rows {
			out[j] = c[r]
		}
		return out
	case ir.StringColumn:
		out := make(ir.StringColumn, len(rows))
		for j, r := range rows {
			out[j] = c[r]
		}
		return out
	}
	panic(fmt.Sprintf("testutil: unsupported column %T", col))
}

func matches(t *Table, row int, p queryir.Predicate) (bool, error) {
	switch pred := p.(type) {
	case nil:
		return true, nil
	case queryir.And:
		for _, sub := range pred.Predicates {
			ok, err := matches(t, row, sub)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case queryir.Equals:
		v, err := cell(t, pred.Field, row)
		if err != nil {
			return false, err
		}
		return fmt.Sprint(v) == fmt.Sprint(pred.Value), nil
	case queryir.Compare:
		v, err := cell(t, pred.Field, row)
		if err != nil {
			return false, err
		}
		a, aok := asFloat(v)
		b, bok := asFloat(pred.Value)
		if !aok || !bok {
			return false, fmt.Errorf("non-numeric comparison on %s", pred.Field)
		}
		switch pred.Op {
		case queryir.OpLess:
			return a < b, nil
		case queryir.OpLessEqual:
			return a <= b, nil
		case queryir.OpGreater:
			return a > b, nil
		case queryir.OpGreaterEqual:
			return a >= b, nil
		}
		return false, fmt.Errorf("unsupported operator %q", pred.Op)
	default:
		return false, fmt.Errorf("unsupported predicate %T", p)
	}
}

func cell(t *Table, field string, row int) (any, error) {
	if field == t.IDColumn {
		return t.IDs[row], nil
	}
	col, ok := t.Columns[field]
	if !ok {
		return nil, fmt.Errorf("no such column: %s", field)
	}
	return col.Value(row), nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// CountingBackend wraps a backend and counts Execute calls per row source.
type CountingBackend struct {
	source.Backend

	mu    sync.Mutex
	opens map[string]int
	total int
}

// NewCountingBackend wraps b.
func NewCountingBackend(b source.Backend) *CountingBackend {
	return &CountingBackend{Backend: b, opens: make(map[string]int)}
}

// Execute implements source.Backend.
func (c *CountingBackend) Execute(ctx context.Context, q queryir.Select, chunkSize int) (source.ChunkIterator, error) {
	c.mu.Lock()
	c.opens[q.Key().MustHash()]++
	c.total++
	c.mu.Unlock()
	return c.Backend.Execute(ctx, q, chunkSize)
}

// Opens returns how many times the row source of q was opened.
func (c *CountingBackend) Opens(key ir.RowSourceKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[key.MustHash()]
}

// TotalOpens returns the number of Execute calls across all row sources.
func (c *CountingBackend) TotalOpens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// FaultyBackend injects failures into a wrapped backend.
//
// Faults apply only to queries against Table ("" = every table).
type FaultyBackend struct {
	source.Backend

	Table string

	// OpenErr, if set, is returned from Execute.
	OpenErr error

	// ChunkErr, if set, is returned from the FailAt-th Next call (1-based).
	ChunkErr error
	FailAt   int
}

// Execute implements source.Backend.
func (f *FaultyBackend) Execute(ctx context.Context, q queryir.Select, chunkSize int) (source.ChunkIterator, error) {
	if f.Table != "" && f.Table != q.From {
		return f.Backend.Execute(ctx, q, chunkSize)
	}
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	it, err := f.Backend.Execute(ctx, q, chunkSize)
	if err != nil {
		return nil, err
	}
	return &faultyIterator{ChunkIterator: it, err: f.ChunkErr, failAt: f.FailAt}, nil
}

type faultyIterator struct {
	source.ChunkIterator
	err    error
	failAt int
	calls  int
}

func (it *faultyIterator) Next(ctx context.Context) (*ir.Chunk, error) {
	it.calls++
	if it.err != nil && it.calls == it.failAt {
		return nil, it.err
	}
	return it.ChunkIterator.Next(ctx)
}
