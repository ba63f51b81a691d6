package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/roach88/catsim/internal/catalog"
	"github.com/roach88/catsim/internal/compiler"
	"github.com/roach88/catsim/internal/engine"
	"github.com/roach88/catsim/internal/sink"
	"github.com/roach88/catsim/internal/store"
	"github.com/roach88/catsim/internal/testutil"
)

// Result is the outcome of running one scenario.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool

	// Errors lists every expectation that did not hold.
	Errors []string

	// Report is the engine's per-class report.
	Report *engine.Report

	// Catalogs lists the catalogs that ran, in manifest order.
	Catalogs []string

	outputs map[string]*sink.MemorySink
	specs   map[string]*catalog.Spec
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		outputs: map[string]*sink.MemorySink{},
		specs:   map[string]*catalog.Spec{},
	}
}

// AddError records a failed expectation.
func (r *Result) AddError(err string) {
	r.Pass = false
	r.Errors = append(r.Errors, err)
}

// Output returns the sink that received the named catalog.
func (r *Result) Output(name string) (*sink.MemorySink, bool) {
	s, ok := r.outputs[name]
	return s, ok
}

// Run executes a scenario.
//
// Execution flow:
// 1. Create a fresh in-memory database
// 2. Load every fixture table
// 3. Compile the manifest and build one spec per catalog
// 4. Run the compound catalog into in-memory sinks
// 5. Check expectations
//
// Errors in steps 1-3 are returned; a run that fails at the class level is
// a Result, checked against the scenario's expectations.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	// SQLite ":memory:" is private to its connection; the store holds one.
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	for _, f := range scenario.Fixtures {
		if err := loadFixture(ctx, st, f); err != nil {
			return nil, err
		}
	}

	manifest, err := compiler.LoadDir(scenario.Manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to compile manifest: %w", err)
	}
	specs, err := manifest.Specs()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalogs: %w", err)
	}

	result := NewResult()
	var entries []engine.Entry
	for _, spec := range specs {
		if len(scenario.Catalogs) > 0 && !slices.Contains(scenario.Catalogs, spec.Name()) {
			continue
		}
		out := sink.NewMemorySink()
		entries = append(entries, engine.Entry{Spec: spec, Sink: out})
		result.Catalogs = append(result.Catalogs, spec.Name())
		result.outputs[spec.Name()] = out
		result.specs[spec.Name()] = spec
	}
	for _, name := range scenario.Catalogs {
		if _, ok := result.specs[name]; !ok {
			return nil, fmt.Errorf("scenario names unknown catalog %q", name)
		}
	}

	opts := []engine.Option{
		engine.WithWorkers(1),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	}
	if scenario.ChunkSize > 0 {
		opts = append(opts, engine.WithChunkSize(scenario.ChunkSize))
	}

	coord, err := engine.New(st, entries, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}

	report, err := coord.Run(ctx)
	if err != nil && report == nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}
	result.Report = report

	for _, msg := range CheckExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

// loadFixture ingests one fixture table into st.
func loadFixture(ctx context.Context, st *store.Store, f Fixture) error {
	var r io.Reader
	switch {
	case f.File != "":
		file, err := os.Open(f.File)
		if err != nil {
			return fmt.Errorf("fixture %s: %w", f.Table, err)
		}
		defer file.Close()
		r = file
	case f.Generate != nil:
		var t *testutil.Table
		switch f.Generate.Kind {
		case "star":
			t = testutil.StarTable(f.Table, f.Generate.Rows, f.Generate.Seed)
		case "offset":
			t = testutil.OffsetTable(f.Table, f.Generate.Rows, f.Generate.Seed)
		default:
			return fmt.Errorf("fixture %s: unknown generator kind %q", f.Table, f.Generate.Kind)
		}
		r = strings.NewReader(t.Text())
	default:
		return fmt.Errorf("fixture %s: no data", f.Table)
	}

	if _, err := st.IngestText(ctx, f.Table, r, store.IngestOptions{IDColumn: f.ID}); err != nil {
		return fmt.Errorf("fixture %s: %w", f.Table, err)
	}
	return nil
}
