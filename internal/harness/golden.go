package harness

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/catsim/internal/sink"
)

// Render writes a deterministic text snapshot of a result: the run id, then
// each catalog in manifest order with its class status and its rows in the
// catalog text format, ids first.
func Render(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "run: %s\n", result.Report.RunID)

	for _, name := range result.Catalogs {
		outcome, _ := result.Report.Outcome(name)
		out := result.outputs[name]
		fmt.Fprintf(&buf, "\n== %s [%s] chunks=%d rows=%d\n", name, outcome.Status, outcome.Chunks, out.Rows())
		if outcome.Err != nil {
			fmt.Fprintf(&buf, "error: %v\n", outcome.Err)
		}

		ts := sink.NewTextSink(&buf, sink.WithIDColumn("id"))
		if err := ts.WriteHeader(result.specs[name].Outputs()); err != nil {
			return nil, err
		}
		for _, chunk := range out.Chunks() {
			if err := ts.Append(context.Background(), chunk); err != nil {
				return nil, err
			}
		}
		if err := ts.Close(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Render(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)

	return nil
}
