package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.False(t, os.IsNotExist(err), "database file was not created")
	assert.Equal(t, DriverSQLite, s.Driver())
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestOpenDriver_UnknownDriver(t *testing.T) {
	_, err := OpenDriver("oracle", "x")
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestCountRows(t *testing.T) {
	s := createTestStore(t)
	ingestString(t, s, "t", "# id x\n1 1\n2 2\n3 3\n")

	n, err := s.CountRows(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = s.CountRows(context.Background(), "t; DROP TABLE t")
	assert.Error(t, err)
}
