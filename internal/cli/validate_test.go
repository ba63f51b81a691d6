package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReportsClasses(t *testing.T) {
	dir := writeManifest(t, testCatalogs)

	out, _, err := execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 3 catalog(s), 2 equivalence class(es)")
	assert.Contains(t, out, "Cat1, Cat3")
	assert.Contains(t, out, "Cat2")
}

func TestValidateJSON(t *testing.T) {
	dir := writeManifest(t, testCatalogs)

	out, _, err := execute(t, "--format", "json", "validate", dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Catalogs, 3)
	assert.Equal(t, "Cat2", resp.Data.Catalogs[1].Name)
	assert.Equal(t, "table1DB2", resp.Data.Catalogs[1].Source)
	assert.Equal(t, []string{"raObs", "final_mag"}, resp.Data.Catalogs[1].Outputs)
	assert.Equal(t, "Cat2.txt", resp.Data.Catalogs[1].Output)
	require.Len(t, resp.Data.Classes, 2)
	assert.Equal(t, []string{"Cat1", "Cat3"}, resp.Data.Classes[0].Catalogs)
	assert.Equal(t, []string{"Cat2"}, resp.Data.Classes[1].Catalogs)
}

func TestValidateCycle(t *testing.T) {
	dir := writeManifest(t, `
package catalogs

catalog: Loop: {
	source: "table1DB1"
	outputs: ["a"]
	columns: {
		a: {deps: ["b"], expr: "b"}
		b: {deps: ["a"], expr: "a"}
	}
}
`)

	out, _, err := execute(t, "--format", "json", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCyclicDependency, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "CYCLIC_DEPENDENCY")
}

func TestValidateUnknownColumn(t *testing.T) {
	dir := writeManifest(t, `
package catalogs

catalog: Cat1: {
	source: "table1DB1"
	outputs: ["raObs", "nope"]
	columns: raObs: "raJ2000"
}
`)

	out, _, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E103]")
}

func TestValidateMissingDirectory(t *testing.T) {
	out, _, err := execute(t, "validate", "/nonexistent/manifest")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
