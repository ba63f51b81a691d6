package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testSources = `
package catalogs

source: table1DB1: {
	table: "table1"
	columns: {raJ2000: "ra", decJ2000: "dec"}
	passthrough: ["mag", "dmag"]
}

source: table1DB2: {
	table: "table1"
	columns: {raJ2000: "2.0*ra", decJ2000: "2.0*dec"}
	passthrough: ["mag", "dmag"]
}
`

const testCatalogs = `
package catalogs

catalog: Cat1: {
	source: "table1DB1"
	outputs: ["raObs", "final_mag"]
	columns: {
		raObs: "raJ2000"
		final_mag: {deps: ["mag", "dmag"], expr: "mag + dmag"}
	}
}

catalog: Cat2: {
	base:   "Cat1"
	source: "table1DB2"
}

catalog: Cat3: {
	base: "Cat1"
	columns: final_mag: "mag"
}
`

const testTable = `# id ra dec mag dmag
1 10.5 -20.25 18.5 0.25
2 45.75 30.5 20.5 -1.5
3 120.25 -60.5 16.25 2.0
`

// writeManifest writes a three-catalog manifest and returns its directory.
func writeManifest(t *testing.T, catalogs string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "manifest")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources.cue"), []byte(testSources), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalogs.cue"), []byte(catalogs), 0o644))
	return dir
}

// writeFile writes content to name under a fresh temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout, stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeCmd(t, NewRootCommand(), args...)
}

func executeCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	// Keep ambient CATSIM_* settings and ./catsim.yaml out of the test.
	t.Chdir(t.TempDir())
	for _, key := range []string{"CHUNK_SIZE", "WORKERS", "DATABASE", "DRIVER", "ALL_OR_NOTHING", "COMPRESS", "OUT_DIR", "WRITE_IDS"} {
		t.Setenv("CATSIM_"+key, "")
		os.Unsetenv("CATSIM_" + key)
	}

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
