package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsFloat64(t *testing.T) {
	f, err := AsFloat64(Int64Column{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, Float64Column{1, 2, 3}, f)

	f, err = AsFloat64(Float64Column{0.5})
	require.NoError(t, err)
	assert.Equal(t, Float64Column{0.5}, f)

	_, err = AsFloat64(StringColumn{"a"})
	assert.Error(t, err)

	_, err = AsFloat64(nil)
	assert.Error(t, err)
}

func TestAddScale(t *testing.T) {
	a := Float64Column{1, 2, 3}
	b := Float64Column{0.5, 0.25, -1}

	assert.Equal(t, Float64Column{1.5, 2.25, 2}, Add(a, b))
	assert.Equal(t, Float64Column{2, 4, 6}, Scale(2, a))
	assert.Equal(t, Float64Column{1, 2, 3}, a, "inputs untouched")

	assert.Panics(t, func() { Add(a, Float64Column{1}) })
}

func TestChunk_FieldAndValidate(t *testing.T) {
	c := &Chunk{
		IDColumn: "id",
		IDs:      Int64Column{1, 2},
		Fields: map[string]Column{
			"ra":  Float64Column{10, 20},
			"tag": StringColumn{"a", "b"},
		},
	}

	require.NoError(t, c.Validate())
	assert.Equal(t, 2, c.Len())

	id, ok := c.Field("id")
	require.True(t, ok)
	assert.Equal(t, Int64Column{1, 2}, id)

	_, ok = c.Field("dec")
	assert.False(t, ok)

	assert.Equal(t, []string{"ra", "tag"}, c.FieldNames())

	c.Fields["bad"] = Float64Column{1}
	assert.ErrorContains(t, c.Validate(), `field "bad" has 1 values, want 2`)
}

func TestResolvedChunk_Row(t *testing.T) {
	r := &ResolvedChunk{
		IDs:     Int64Column{7, 8},
		Names:   []string{"raObs", "name"},
		Columns: []Column{Float64Column{1.5, 2.5}, StringColumn{"x", "y"}},
	}

	assert.Equal(t, []any{2.5, "y"}, r.Row(1))

	col, ok := r.Column("name")
	require.True(t, ok)
	assert.Equal(t, StringColumn{"x", "y"}, col)

	_, ok = r.Column("missing")
	assert.False(t, ok)
}
