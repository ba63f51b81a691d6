package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math"

	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/queryir"
	"github.com/roach88/catsim/internal/source"
)

// Execute implements source.Backend.
//
// The paginated statement is prepared immediately, so a missing table or
// column fails here rather than on the first Next.
func (s *Store) Execute(ctx context.Context, q queryir.Select, chunkSize int) (source.ChunkIterator, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	// Every page carries the keyset condition so one statement serves all
	// pages. The first page starts at math.MinInt64.
	start := int64(math.MinInt64)
	query, _, err := s.compiler.Compile(q.Page(&start, chunkSize))
	if err != nil {
		return nil, err
	}

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare %q: %w", query, err)
	}

	names := make([]string, len(q.Projections))
	for i, p := range q.Projections {
		names[i] = p.Name
	}

	return &chunkIterator{
		store:     s,
		query:     q,
		stmt:      stmt,
		names:     names,
		chunkSize: chunkSize,
	}, nil
}

// chunkIterator fetches one page per Next call.
//
// Pages after the first start at the previous page's last id, inclusive,
// and ask for one extra row. Exactly one row with that id is expected at
// the head of the page; it was already delivered and is dropped.
type chunkIterator struct {
	store     *Store
	query     queryir.Select
	stmt      *sql.Stmt
	names     []string
	chunkSize int
	last      *int64
	done      bool
}

// Next fetches the next page. Returns io.EOF once a page comes back short.
//
// A repeated id that straddles a page boundary is an error, as it would
// be inside a page; it is never dropped silently.
func (it *chunkIterator) Next(ctx context.Context) (*ir.Chunk, error) {
	if it.done {
		return nil, io.EOF
	}

	start, limit := int64(math.MinInt64), it.chunkSize
	if it.last != nil {
		start, limit = *it.last, it.chunkSize+1
	}
	_, params, err := it.store.compiler.Compile(it.query.Page(&start, limit))
	if err != nil {
		return nil, err
	}

	rows, err := it.stmt.QueryContext(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("query page from id %d: %w", start, err)
	}
	defer rows.Close()

	chunk, err := scanChunk(rows, it.query.IDColumn, it.names, limit)
	if err != nil {
		return nil, err
	}

	if it.last != nil {
		chunk, err = dropResumeRow(chunk, *it.last)
		if err != nil {
			return nil, err
		}
		// The resume row vanished between pages.
		if chunk.Len() > it.chunkSize {
			chunk = sliceChunk(chunk, 0, it.chunkSize)
		}
	}

	if chunk.Len() < it.chunkSize {
		it.done = true
	}
	if chunk.Len() == 0 {
		return nil, io.EOF
	}
	last := chunk.IDs[chunk.Len()-1]
	it.last = &last
	return chunk, nil
}

// dropResumeRow removes the leading row whose id equals last. A second
// leading row with the same id means the id column is not unique.
func dropResumeRow(chunk *ir.Chunk, last int64) (*ir.Chunk, error) {
	if chunk.Len() == 0 || chunk.IDs[0] != last {
		return chunk, nil
	}
	if chunk.Len() > 1 && chunk.IDs[1] == last {
		return nil, fmt.Errorf("id column %q: duplicate id %d across chunk boundary", chunk.IDColumn, last)
	}
	return sliceChunk(chunk, 1, chunk.Len()), nil
}

// sliceChunk returns rows [lo, hi) of chunk.
func sliceChunk(chunk *ir.Chunk, lo, hi int) *ir.Chunk {
	fields := make(map[string]ir.Column, len(chunk.Fields))
	for name, col := range chunk.Fields {
		fields[name] = sliceColumn(col, lo, hi)
	}
	return &ir.Chunk{IDColumn: chunk.IDColumn, IDs: chunk.IDs[lo:hi], Fields: fields}
}

func sliceColumn(col ir.Column, lo, hi int) ir.Column {
	switch c := col.(type) {
	case ir.Float64Column:
		return c[lo:hi]
	case ir.Int64Column:
		return c[lo:hi]
	case ir.StringColumn:
		return c[lo:hi]
	default:
		panic(fmt.Sprintf("unknown column type %T", col))
	}
}

// Close releases the prepared statement.
func (it *chunkIterator) Close() error {
	it.done = true
	if it.stmt == nil {
		return nil
	}
	err := it.stmt.Close()
	it.stmt = nil
	return err
}

// scanChunk reads all rows of one page into typed columns.
func scanChunk(rows *sql.Rows, idColumn string, names []string, capacity int) (*ir.Chunk, error) {
	ids := make(ir.Int64Column, 0, capacity)
	raw := make([][]any, len(names))
	for i := range raw {
		raw[i] = make([]any, 0, capacity)
	}

	dest := make([]any, len(names)+1)
	for rows.Next() {
		vals := make([]any, len(names)+1)
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		id, ok := toInt64(vals[0])
		if !ok {
			return nil, fmt.Errorf("id column %q: expected integer, got %T", idColumn, vals[0])
		}
		ids = append(ids, id)
		for i := range names {
			raw[i] = append(raw[i], vals[i+1])
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	fields := make(map[string]ir.Column, len(names))
	for i, name := range names {
		col, err := buildColumn(raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		fields[name] = col
	}

	return &ir.Chunk{IDColumn: idColumn, IDs: ids, Fields: fields}, nil
}

// buildColumn types a column from driver values.
//
// All integers → Int64Column. Any real (or NULL among numbers) widens to
// Float64Column with NULL as NaN. Any text → StringColumn.
func buildColumn(vals []any) (ir.Column, error) {
	allInt, numeric := true, true
	for _, v := range vals {
		switch v.(type) {
		case int64, int32, int:
		case float64, float32:
			allInt = false
		case nil:
			allInt = false
		case string, []byte:
			numeric = false
		default:
			return nil, fmt.Errorf("unsupported driver type %T", v)
		}
	}

	switch {
	case !numeric:
		col := make(ir.StringColumn, len(vals))
		for i, v := range vals {
			switch s := v.(type) {
			case nil:
			case []byte:
				col[i] = string(s)
			case string:
				col[i] = s
			default:
				col[i] = fmt.Sprint(s)
			}
		}
		return col, nil
	case allInt:
		col := make(ir.Int64Column, len(vals))
		for i, v := range vals {
			col[i], _ = toInt64(v)
		}
		return col, nil
	default:
		col := make(ir.Float64Column, len(vals))
		for i, v := range vals {
			col[i] = toFloat64(v)
		}
		return col, nil
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case nil:
		return math.NaN()
	default:
		i, _ := toInt64(v)
		return float64(i)
	}
}
