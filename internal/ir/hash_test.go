package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainNullSeparator(t *testing.T) {
	sum := sha256.Sum256([]byte("catsim/rowsource/v1\x00{}"))
	assert.Equal(t, hex.EncodeToString(sum[:]), hashWithDomain(DomainRowSource, []byte("{}")))
}

func TestHashWithDomainSeparatesDomains(t *testing.T) {
	data := []byte(`{"table":"table1"}`)

	a := hashWithDomain(DomainRowSource, data)
	b := hashWithDomain("catsim/other/v1", data)

	assert.NotEqual(t, a, b)
}

func TestHashWithDomainBoundary(t *testing.T) {
	// Moving a byte across the domain boundary must change the hash.
	a := hashWithDomain("ab", []byte("c"))
	b := hashWithDomain("a", []byte("bc"))

	assert.NotEqual(t, a, b)
}

func TestRowSourceKeyHashFormat(t *testing.T) {
	key := NewRowSourceKey("table1", "id", []Projection{{Name: "ra", Expr: "ra"}}, "")

	h, err := key.Hash()
	require.NoError(t, err)
	assert.Len(t, h, 64, "SHA-256 hex is 64 characters")
	_, err = hex.DecodeString(h)
	assert.NoError(t, err)

	canonical, err := key.Canonical()
	require.NoError(t, err)
	assert.Equal(t, hashWithDomain(DomainRowSource, canonical), h)
}

func TestRowSourceKeyHashDeterminism(t *testing.T) {
	build := func() RowSourceKey {
		return NewRowSourceKey("table2", "objid", []Projection{
			{Name: "raJ2000", Expr: "2.0*ra"},
			{Name: "mag", Expr: "mag"},
		}, "mag < 24")
	}

	assert.Equal(t, build().MustHash(), build().MustHash())
}

func TestDomainConstants(t *testing.T) {
	assert.Equal(t, "catsim/rowsource/v1", DomainRowSource)
}
