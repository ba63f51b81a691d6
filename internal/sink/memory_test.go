package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catsim/internal/ir"
)

func resolved(seq int64, ids ir.Int64Column, ra ir.Float64Column) *ir.ResolvedChunk {
	return &ir.ResolvedChunk{
		Catalog: "Cat1",
		Seq:     seq,
		IDs:     ids,
		Names:   []string{"raObs"},
		Columns: []ir.Column{ra},
	}
}

func TestMemorySink_RecordsInOrder(t *testing.T) {
	m := NewMemorySink()
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, resolved(1, ir.Int64Column{1, 2}, ir.Float64Column{10, 20})))
	require.NoError(t, m.Append(ctx, resolved(2, ir.Int64Column{3}, ir.Float64Column{30})))

	assert.Len(t, m.Chunks(), 2)
	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, []int64{1, 2, 3}, m.IDs())
	assert.Equal(t, []float64{10, 20, 30}, m.Float64("raObs"))
	assert.Nil(t, m.Column("missing"))
}

func TestMemorySink_FailOn(t *testing.T) {
	boom := errors.New("disk full")
	m := NewMemorySink().FailOn(2, boom)
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, resolved(1, ir.Int64Column{1}, ir.Float64Column{1})))
	assert.ErrorIs(t, m.Append(ctx, resolved(2, ir.Int64Column{2}, ir.Float64Column{2})), boom)
	assert.Equal(t, 1, m.Rows())
}
