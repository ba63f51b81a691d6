package sink

import (
	"context"
	"sync"

	"github.com/roach88/catsim/internal/ir"
)

// MemorySink records every chunk it receives. Used by tests and the
// scenario harness.
//
// Thread-safety: all methods are safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	chunks []*ir.ResolvedChunk
	err    error
	failAt int
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailOn makes the n-th Append (1-based) return err without recording.
func (m *MemorySink) FailOn(n int, err error) *MemorySink {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt, m.err = n, err
	return m
}

// Append implements Sink.
func (m *MemorySink) Append(ctx context.Context, chunk *ir.ResolvedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil && len(m.chunks)+1 == m.failAt {
		return m.err
	}
	m.chunks = append(m.chunks, chunk)
	return nil
}

// Chunks returns the recorded chunks in arrival order.
func (m *MemorySink) Chunks() []*ir.ResolvedChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ir.ResolvedChunk(nil), m.chunks...)
}

// Rows returns the total number of rows received.
func (m *MemorySink) Rows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.chunks {
		n += c.Len()
	}
	return n
}

// IDs returns every received id in arrival order.
func (m *MemorySink) IDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, c := range m.chunks {
		ids = append(ids, c.IDs...)
	}
	return ids
}

// Column concatenates the named output column across chunks.
// Returns nil if no chunk carries it.
func (m *MemorySink) Column(name string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, c := range m.chunks {
		col, ok := c.Column(name)
		if !ok {
			continue
		}
		for i := range col.Len() {
			out = append(out, col.Value(i))
		}
	}
	return out
}

// Float64 concatenates a numeric output column across chunks.
func (m *MemorySink) Float64(name string) []float64 {
	var out []float64
	for _, v := range m.Column(name) {
		switch n := v.(type) {
		case float64:
			out = append(out, n)
		case int64:
			out = append(out, float64(n))
		}
	}
	return out
}
