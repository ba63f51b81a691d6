package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore creates a new SQLite store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ingestString loads a text table from a string literal.
func ingestString(t *testing.T, s *Store, table, text string) {
	t.Helper()
	_, err := s.IngestText(context.Background(), table, strings.NewReader(text), IngestOptions{})
	require.NoError(t, err)
}
