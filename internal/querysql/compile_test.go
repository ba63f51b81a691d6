package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/queryir"
)

func TestCompile_SimpleSelect(t *testing.T) {
	compiler := NewSQLCompiler(DialectSQLite)

	sql, params, err := compiler.Compile(queryir.Select{
		From:     "table1",
		IDColumn: "id",
		Projections: []ir.Projection{
			{Name: "decJ2000", Expr: "2.0*dec"},
			{Name: "ra", Expr: "ra"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, 2.0*dec AS decJ2000, ra FROM table1 ORDER BY id ASC", sql)
	assert.Empty(t, params)
}

func TestCompile_GoldenSQL(t *testing.T) {
	start := int64(42)

	testCases := []struct {
		name       string
		dialect    Dialect
		query      queryir.Select
		wantSQL    string
		wantParams []any
	}{
		{
			name:    "first page",
			dialect: DialectSQLite,
			query: queryir.Select{
				From:        "table1",
				IDColumn:    "id",
				Projections: []ir.Projection{{Name: "ra", Expr: "ra"}},
				Limit:       10,
			},
			wantSQL:    "SELECT id, ra FROM table1 ORDER BY id ASC LIMIT ?",
			wantParams: []any{int64(10)},
		},
		{
			name:    "next page with filter",
			dialect: DialectSQLite,
			query: queryir.Select{
				From:        "table1",
				IDColumn:    "id",
				Projections: []ir.Projection{{Name: "ra", Expr: "ra"}},
				Filter:      queryir.Compare{Field: "mag", Op: queryir.OpLess, Value: 20.5},
				StartAt:     &start,
				Limit:       10,
			},
			wantSQL:    "SELECT id, ra FROM table1 WHERE mag < ? AND id >= ? ORDER BY id ASC LIMIT ?",
			wantParams: []any{20.5, int64(42), int64(10)},
		},
		{
			name:    "postgres placeholders",
			dialect: DialectPostgres,
			query: queryir.Select{
				From:        "table1",
				IDColumn:    "id",
				Projections: []ir.Projection{{Name: "ra", Expr: "ra"}},
				Filter: queryir.And{Predicates: []queryir.Predicate{
					queryir.Equals{Field: "band", Value: "r"},
					&queryir.Compare{Field: "mag", Op: queryir.OpGreaterEqual, Value: 15},
				}},
				StartAt: &start,
				Limit:   5,
			},
			wantSQL:    "SELECT id, ra FROM table1 WHERE (band = $1 AND mag >= $2) AND id >= $3 ORDER BY id ASC LIMIT $4",
			wantParams: []any{"r", int64(15), int64(42), int64(5)},
		},
		{
			name:    "empty and",
			dialect: DialectSQLite,
			query: queryir.Select{
				From:     "t",
				IDColumn: "objid",
				Filter:   queryir.And{},
			},
			wantSQL: "SELECT objid FROM t WHERE 1 = 1 ORDER BY objid ASC",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := NewSQLCompiler(tc.dialect).Compile(tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, sql)
			assert.Equal(t, tc.wantParams, params)
		})
	}
}

func TestCompile_NoStringInterpolation(t *testing.T) {
	dangerousValue := "'; DROP TABLE table1; --"

	sql, params, err := NewSQLCompiler(DialectSQLite).Compile(queryir.Select{
		From:     "table1",
		IDColumn: "id",
		Filter:   queryir.Equals{Field: "band", Value: dangerousValue},
	})
	require.NoError(t, err)

	assert.NotContains(t, sql, dangerousValue)
	assert.Contains(t, params, dangerousValue)
	assert.Contains(t, sql, "band = ?")
}

func TestCompile_RejectsInvalid(t *testing.T) {
	_, _, err := NewSQLCompiler(DialectSQLite).Compile(queryir.Select{
		From:     "table1 t; DROP TABLE x",
		IDColumn: "id",
	})

	var ve *queryir.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	queries := []queryir.Select{
		{From: "a", IDColumn: "id"},
		{From: "a", IDColumn: "id", Limit: 3},
		{From: "a", IDColumn: "id", Filter: queryir.Equals{Field: "x", Value: true}},
	}

	for _, q := range queries {
		sql, _, err := NewSQLCompiler(DialectSQLite).Compile(q)
		require.NoError(t, err)
		assert.Contains(t, sql, "ORDER BY id ASC", "query MUST order by id: %s", sql)
	}
}
