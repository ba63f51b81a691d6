package sink

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catsim/internal/ir"
)

func catalogChunks() []*ir.ResolvedChunk {
	names := []string{"raObs", "decObs", "final_mag", "name"}
	return []*ir.ResolvedChunk{
		{
			Catalog: "Cat1", Seq: 1, IDs: ir.Int64Column{0, 1}, Names: names,
			Columns: []ir.Column{
				ir.Float64Column{123.456789012345, 0.1},
				ir.Float64Column{-45.5, 1e-12},
				ir.Float64Column{21.25, math.NaN()},
				ir.StringColumn{"a", "b"},
			},
		},
		{
			Catalog: "Cat1", Seq: 2, IDs: ir.Int64Column{7}, Names: names,
			Columns: []ir.Column{
				ir.Float64Column{359.99999999999},
				ir.Int64Column{-3},
				ir.Float64Column{18},
				ir.StringColumn{"c"},
			},
		},
	}
}

func TestTextSink_Golden(t *testing.T) {
	var buf bytes.Buffer
	s := NewTextSink(&buf)
	for _, c := range catalogChunks() {
		require.NoError(t, s.Append(context.Background(), c))
	}
	require.NoError(t, s.Close())

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "text_sink", buf.Bytes())
}

func TestTextSink_WithIDColumn(t *testing.T) {
	var buf bytes.Buffer
	s := NewTextSink(&buf, WithIDColumn("id"))
	require.NoError(t, s.Append(context.Background(), catalogChunks()[1]))
	require.NoError(t, s.Close())

	assert.Equal(t, "# id, raObs, decObs, final_mag, name\n7, 360, -3, 18, c\n", buf.String())
}

func TestTextSink_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	s := NewTextSink(&buf)
	require.NoError(t, s.WriteHeader([]string{"a", "b"}))
	require.NoError(t, s.WriteHeader([]string{"ignored"}))
	require.NoError(t, s.Close())

	assert.Equal(t, "# a, b\n", buf.String())
}

func TestTextSink_AppendAfterClose(t *testing.T) {
	s := NewTextSink(io.Discard)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Error(t, s.Append(context.Background(), catalogChunks()[0]))
}

func TestCreateTextFile_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat1.txt")
	s, err := CreateTextFile(path, false)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), catalogChunks()[1]))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# raObs, decObs, final_mag, name\n360, -3, 18, c\n", string(data))
}

func TestCreateTextFile_Compressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat1.txt.zst")
	s, err := CreateTextFile(path, true)
	require.NoError(t, err)
	for _, c := range catalogChunks() {
		require.NoError(t, s.Append(context.Background(), c))
	}
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()
	data, err := io.ReadAll(dec)
	require.NoError(t, err)

	var plain bytes.Buffer
	ps := NewTextSink(&plain)
	for _, c := range catalogChunks() {
		require.NoError(t, ps.Append(context.Background(), c))
	}
	require.NoError(t, ps.Close())
	assert.Equal(t, plain.String(), string(data))
}

func TestCreateTextFile_BadPath(t *testing.T) {
	_, err := CreateTextFile(filepath.Join(t.TempDir(), "missing", "x.txt"), false)
	assert.Error(t, err)
}
