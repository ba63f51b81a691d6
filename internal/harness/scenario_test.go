package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "manifest"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.txt"), []byte("# id ra\n1 2.5\n"), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_ResolvesRelativePaths(t *testing.T) {
	path := writeScenario(t, `
name: s
description: d
manifest: manifest
fixtures:
  - table: t
    file: t.txt
  - table: g
    generate: {kind: star, rows: 10, seed: 1}
expect:
  Cat1: {status: ok, rows: 1}
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "manifest"), s.Manifest)
	require.Len(t, s.Fixtures, 2)
	assert.Equal(t, filepath.Join(dir, "t.txt"), s.Fixtures[0].File)
	assert.Empty(t, s.Fixtures[1].File)
	require.NotNil(t, s.Fixtures[1].Generate)
	assert.Equal(t, 10, s.Fixtures[1].Generate.Rows)
	require.NotNil(t, s.Expect["Cat1"].Rows)
	assert.Equal(t, 1, *s.Expect["Cat1"].Rows)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: s
description: d
manifest: manifest
chunk_sz: 3
expect:
  Cat1: {status: ok}
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: "description: d\nmanifest: manifest\nexpect: {Cat1: {status: ok}}\n",
			want: "name is required",
		},
		{
			name: "missing manifest dir",
			body: "name: s\ndescription: d\nmanifest: nowhere\nexpect: {Cat1: {status: ok}}\n",
			want: "manifest directory not found",
		},
		{
			name: "no expectations",
			body: "name: s\ndescription: d\nmanifest: manifest\n",
			want: "expect is required",
		},
		{
			name: "unknown status",
			body: "name: s\ndescription: d\nmanifest: manifest\nexpect: {Cat1: {status: done}}\n",
			want: `unknown status "done"`,
		},
		{
			name: "fixture without data",
			body: "name: s\ndescription: d\nmanifest: manifest\nfixtures: [{table: t}]\nexpect: {Cat1: {status: ok}}\n",
			want: "one of file or generate is required",
		},
		{
			name: "fixture with both sources",
			body: "name: s\ndescription: d\nmanifest: manifest\nfixtures: [{table: t, file: t.txt, generate: {kind: star, rows: 1}}]\nexpect: {Cat1: {status: ok}}\n",
			want: "mutually exclusive",
		},
		{
			name: "duplicate table",
			body: "name: s\ndescription: d\nmanifest: manifest\nfixtures: [{table: t, file: t.txt}, {table: t, file: t.txt}]\nexpect: {Cat1: {status: ok}}\n",
			want: `duplicate table "t"`,
		},
		{
			name: "unknown generator",
			body: "name: s\ndescription: d\nmanifest: manifest\nfixtures: [{table: t, generate: {kind: galaxy, rows: 1}}]\nexpect: {Cat1: {status: ok}}\n",
			want: `unknown generator kind "galaxy"`,
		},
		{
			name: "negative chunk size",
			body: "name: s\ndescription: d\nmanifest: manifest\nchunk_size: -1\nexpect: {Cat1: {status: ok}}\n",
			want: "chunk_size must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
