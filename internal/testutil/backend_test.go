package testutil

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/queryir"
	"github.com/roach88/catsim/internal/source"
)

func drain(t *testing.T, it source.ChunkIterator) []*ir.Chunk {
	t.Helper()
	var chunks []*ir.Chunk
	for {
		c, err := it.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, c)
	}
}

func TestStarTable_Deterministic(t *testing.T) {
	a := StarTable("t", 20, 42)
	b := StarTable("t", 20, 42)
	c := StarTable("t", 20, 7)

	assert.Equal(t, a.Float64("ra"), b.Float64("ra"))
	assert.NotEqual(t, a.Float64("ra"), c.Float64("ra"))
	assert.Equal(t, 20, a.Len())
}

func TestMemoryBackend_ChunksAndProjection(t *testing.T) {
	tbl := StarTable("table1", 25, 42)
	b := NewMemoryBackend(tbl)

	q := queryir.Select{
		From:     "table1",
		IDColumn: "id",
		Projections: []ir.Projection{
			{Name: "ra", Expr: "ra"},
			{Name: "raJ2000", Expr: "2.0*ra"},
		},
	}
	it, err := b.Execute(context.Background(), q, 10)
	require.NoError(t, err)
	chunks := drain(t, it)

	require.Len(t, chunks, 3)
	assert.Equal(t, 10, chunks[0].Len())
	assert.Equal(t, 5, chunks[2].Len())

	ra := chunks[0].Fields["ra"].(ir.Float64Column)
	scaled := chunks[0].Fields["raJ2000"].(ir.Float64Column)
	for i := range ra {
		assert.Equal(t, 2.0*ra[i], scaled[i])
	}
}

func TestMemoryBackend_Filter(t *testing.T) {
	tbl := StarTable("table1", 50, 42)
	b := NewMemoryBackend(tbl)

	q := queryir.Select{
		From:        "table1",
		IDColumn:    "id",
		Projections: []ir.Projection{{Name: "mag", Expr: "mag"}},
		Filter:      queryir.Compare{Field: "mag", Op: queryir.OpLess, Value: 20.0},
	}
	it, err := b.Execute(context.Background(), q, 100)
	require.NoError(t, err)
	for _, c := range drain(t, it) {
		for _, m := range c.Fields["mag"].(ir.Float64Column) {
			assert.Less(t, m, 20.0)
		}
	}
}

func TestMemoryBackend_UnknownTable(t *testing.T) {
	b := NewMemoryBackend()
	_, err := b.Execute(context.Background(), queryir.Select{From: "nope", IDColumn: "id"}, 10)
	assert.Error(t, err)
}

func TestCountingBackend_CountsPerKey(t *testing.T) {
	b := NewCountingBackend(NewMemoryBackend(StarTable("t", 5, 1)))
	q := queryir.Select{From: "t", IDColumn: "id", Projections: []ir.Projection{{Name: "ra", Expr: "ra"}}}

	for range 2 {
		it, err := b.Execute(context.Background(), q, 10)
		require.NoError(t, err)
		require.NoError(t, it.Close())
	}

	assert.Equal(t, 2, b.Opens(q.Key()))
	assert.Equal(t, 2, b.TotalOpens())
}

func TestFaultyBackend_FailsAtChunk(t *testing.T) {
	boom := errors.New("disk on fire")
	b := &FaultyBackend{
		Backend:  NewMemoryBackend(StarTable("t", 30, 1)),
		ChunkErr: boom,
		FailAt:   2,
	}
	q := queryir.Select{From: "t", IDColumn: "id", Projections: []ir.Projection{{Name: "ra", Expr: "ra"}}}
	it, err := b.Execute(context.Background(), q, 10)
	require.NoError(t, err)

	_, err = it.Next(context.Background())
	require.NoError(t, err)
	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, boom)
}
