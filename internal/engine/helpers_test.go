package engine

import (
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/catsim/internal/catalog"
	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/testutil"
)

var (
	table1DB1 = catalog.Source{
		Name:     "table1DB1",
		Table:    "table1",
		IDColumn: "id",
		Columns: map[string]string{
			"raJ2000": "ra", "decJ2000": "dec",
			"mag": "mag", "dmag": "dmag", "dra": "dra", "ddec": "ddec",
		},
	}
	table1DB2 = catalog.Source{
		Name:     "table1DB2",
		Table:    "table1",
		IDColumn: "id",
		Columns: map[string]string{
			"raJ2000": "2.0*ra", "decJ2000": "2.0*dec",
			"mag": "mag", "dmag": "dmag", "dra": "dra", "ddec": "ddec",
		},
	}
	table2DB = catalog.Source{Name: "table2DB", Table: "table2", IDColumn: "id"}
)

func cat1Def() catalog.Definition {
	return catalog.Definition{
		Name:    "Cat1",
		Outputs: []string{"raObs", "decObs", "final_mag"},
		Columns: map[string]catalog.Resolver{
			"raObs":     catalog.Alias("raJ2000"),
			"decObs":    catalog.Alias("decJ2000"),
			"final_mag": catalog.Sum("mag", "dmag"),
		},
	}
}

func cat2Def() catalog.Definition {
	base := cat1Def()
	return catalog.Definition{
		Name: "Cat2",
		Base: &base,
		Columns: map[string]catalog.Resolver{
			"raObs":  catalog.Sum("raJ2000", "dra"),
			"decObs": catalog.Sum("decJ2000", "ddec"),
		},
	}
}

func cat3Def() catalog.Definition {
	base := cat1Def()
	return catalog.Definition{
		Name: "Cat3",
		Base: &base,
		Columns: map[string]catalog.Resolver{
			"final_mag": catalog.Alias("mag"),
		},
	}
}

// fixtureTables returns the 100-row compound catalog tables.
func fixtureTables() (*testutil.Table, *testutil.Table) {
	return testutil.StarTable("table1", 100, 42), testutil.OffsetTable("table2", 100, 43)
}

func mustSpec(t *testing.T, src catalog.Source, def catalog.Definition) *catalog.Spec {
	t.Helper()
	spec, err := catalog.NewSpec(src, def)
	require.NoError(t, err)
	return spec
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingOnID returns a final_mag resolver that fails for any chunk
// containing the given id.
func failingOnID(id int64, err error) catalog.Resolver {
	return catalog.Resolver{
		Deps: []string{"mag"},
		Func: func(rc *catalog.ResolveContext) (ir.Column, error) {
			mag, ferr := rc.Float64("mag")
			if ferr != nil {
				return nil, ferr
			}
			if slices.Contains(rc.IDs(), id) {
				return nil, err
			}
			return mag, nil
		},
	}
}
