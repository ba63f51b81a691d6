// Package harness runs catalog scenarios end to end.
//
// A scenario names a catalog manifest, the raw tables to load, and the
// outcome expected for each catalog. The harness loads the tables into a
// fresh in-memory SQLite store, compiles the manifest, runs the compound
// catalog with in-memory sinks and checks the expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: compound
//	description: "Three catalogs over two tables"
//	manifest: manifests/compound      # directory of .cue files
//	chunk_size: 2
//	fixtures:
//	  - table: table1
//	    file: fixtures/table1.txt     # '#'-headed text table
//	  - table: table2
//	    generate: {kind: offset, rows: 100, seed: 7}
//	expect:
//	  Cat1: {status: ok, rows: 5}
//	  Cat2: {status: ok, same_ids_as: Cat1}
//
// Paths are relative to the scenario file.
//
// # Deterministic Testing
//
// Every run uses a fixed run id (scenario.run_id, or "test-run-default")
// and a single worker, so the rendered snapshot is identical across runs
// and can be compared against a golden file.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/compound.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
