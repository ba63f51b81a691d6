package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowSourceKey_ProjectionOrderIgnored(t *testing.T) {
	a := NewRowSourceKey("table1", "id", []Projection{
		{Name: "raJ2000", Expr: "ra"},
		{Name: "decJ2000", Expr: "dec"},
	}, "")
	b := NewRowSourceKey("table1", "id", []Projection{
		{Name: "decJ2000", Expr: "dec"},
		{Name: "raJ2000", Expr: "ra"},
	}, "")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.MustHash(), b.MustHash())
	assert.Equal(t, []string{"decJ2000", "raJ2000"}, a.FieldNames())
}

func TestRowSourceKey_DistinguishesSources(t *testing.T) {
	base := NewRowSourceKey("table1", "id", []Projection{{Name: "raJ2000", Expr: "ra"}}, "")

	testCases := []struct {
		name  string
		other RowSourceKey
	}{
		{"different table", NewRowSourceKey("table2", "id", []Projection{{Name: "raJ2000", Expr: "ra"}}, "")},
		{"scaled expression", NewRowSourceKey("table1", "id", []Projection{{Name: "raJ2000", Expr: "2.0*ra"}}, "")},
		{"extra column", NewRowSourceKey("table1", "id", []Projection{{Name: "raJ2000", Expr: "ra"}, {Name: "dra", Expr: "dra"}}, "")},
		{"filter", NewRowSourceKey("table1", "id", []Projection{{Name: "raJ2000", Expr: "ra"}}, "mag < 20")},
		{"id column", NewRowSourceKey("table1", "objid", []Projection{{Name: "raJ2000", Expr: "ra"}}, "")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, base.Equal(tc.other))
			assert.NotEqual(t, base.MustHash(), tc.other.MustHash())
		})
	}
}

func TestRowSourceKey_NFCNormalized(t *testing.T) {
	// "é" precomposed vs "e" + combining acute accent
	a := NewRowSourceKey("caf\u00e9", "id", nil, "")
	b := NewRowSourceKey("cafe\u0301", "id", nil, "")

	assert.True(t, a.Equal(b))
}

func TestRowSourceKey_NewCopiesProjection(t *testing.T) {
	proj := []Projection{{Name: "b", Expr: "b"}, {Name: "a", Expr: "a"}}
	key := NewRowSourceKey("t", "id", proj, "")

	proj[0].Expr = "mutated"

	assert.Equal(t, "b", key.Projection[1].Expr)
	assert.Equal(t, "b", proj[1].Name, "input slice must not be reordered")
}

func TestRowSourceKey_String(t *testing.T) {
	key := NewRowSourceKey("table1", "id", []Projection{
		{Name: "raJ2000", Expr: "2.0*ra"},
		{Name: "dec", Expr: "dec"},
	}, "mag < ?")

	assert.Equal(t, "table1(dec, raJ2000=2.0*ra) WHERE mag < ?", key.String())
	assert.Equal(t, "id ASC", key.OrderBy)
}
