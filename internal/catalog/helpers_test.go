package catalog

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/testutil"
)

// The three sources of the compound catalog fixture.
var (
	table1DB1 = Source{
		Name:     "table1DB1",
		Table:    "table1",
		IDColumn: "id",
		Columns: map[string]string{
			"raJ2000": "ra", "decJ2000": "dec",
			"mag": "mag", "dmag": "dmag", "dra": "dra", "ddec": "ddec",
		},
	}
	table1DB2 = Source{
		Name:     "table1DB2",
		Table:    "table1",
		IDColumn: "id",
		Columns: map[string]string{
			"raJ2000": "2.0*ra", "decJ2000": "2.0*dec",
			"mag": "mag", "dmag": "dmag", "dra": "dra", "ddec": "ddec",
		},
	}
	table2DB = Source{Name: "table2DB", Table: "table2", IDColumn: "id"}
)

func cat1() Definition {
	return Definition{
		Name:    "Cat1",
		Outputs: []string{"raObs", "decObs", "final_mag"},
		Columns: map[string]Resolver{
			"raObs":     Alias("raJ2000"),
			"decObs":    Alias("decJ2000"),
			"final_mag": Sum("mag", "dmag"),
		},
	}
}

// chunkFrom projects rows [lo, hi) of a fixture table the way src would.
func chunkFrom(tbl *testutil.Table, src Source, lo, hi int, seq int64) *ir.Chunk {
	c := &ir.Chunk{
		IDColumn: tbl.IDColumn,
		IDs:      append(ir.Int64Column(nil), tbl.IDs[lo:hi]...),
		Fields:   map[string]ir.Column{},
		Seq:      seq,
	}
	for name, expr := range src.Columns {
		k, raw := 1.0, expr
		if factor, name, ok := strings.Cut(expr, "*"); ok {
			k, _ = strconv.ParseFloat(factor, 64)
			raw = name
		}
		c.Fields[name] = ir.Scale(k, tbl.Float64(raw)[lo:hi])
	}
	return c
}

// counted wraps a resolver and counts its invocations.
func counted(r Resolver, calls *atomic.Int64) Resolver {
	inner := r.Func
	r.Func = func(rc *ResolveContext) (ir.Column, error) {
		calls.Add(1)
		return inner(rc)
	}
	return r
}
