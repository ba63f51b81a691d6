package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/queryir"
)

// DefaultChunkSize is used when a caller passes a non-positive chunk size.
const DefaultChunkSize = 10000

// ChunkIterator is a backend's raw chunk stream.
// Next returns io.EOF after the last chunk.
type ChunkIterator interface {
	Next(ctx context.Context) (*ir.Chunk, error)
	Close() error
}

// Backend is the backing store query interface.
//
// Execute must return rows ordered by q.IDColumn ascending, in chunks of at
// most chunkSize rows. Each call must be independent: two iterators from the
// same backend never share position.
type Backend interface {
	Execute(ctx context.Context, q queryir.Select, chunkSize int) (ChunkIterator, error)
}

// Adapter streams chunks for one row source.
//
// Thread-safety: an Adapter is driven by exactly one goroutine.
type Adapter struct {
	key       ir.RowSourceKey
	desc      string
	chunkSize int
	it        ChunkIterator

	seq    int64
	rows   int64
	lastID *int64
	done   error // terminal error; io.EOF on clean completion
}

// Open starts the backend query for q.
// Returns SourceUnavailableError if the backend cannot start it.
func Open(ctx context.Context, b Backend, q queryir.Select, chunkSize int) (*Adapter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	key := q.Key()
	desc := key.String()

	if b == nil {
		return nil, &SourceUnavailableError{Source: desc, Err: errors.New("no backend configured")}
	}

	it, err := b.Execute(ctx, q.Page(nil, 0), chunkSize)
	if err != nil {
		return nil, &SourceUnavailableError{Source: desc, Err: err}
	}

	return &Adapter{
		key:       key,
		desc:      desc,
		chunkSize: chunkSize,
		it:        it,
	}, nil
}

// Key returns the row source key this adapter reads.
func (a *Adapter) Key() ir.RowSourceKey {
	return a.key
}

// Rows returns the number of rows yielded so far.
func (a *Adapter) Rows() int64 {
	return a.rows
}

// Chunks returns the number of chunks yielded so far.
func (a *Adapter) Chunks() int64 {
	return a.seq
}

// Next returns the next chunk, or io.EOF when the stream is exhausted.
//
// The id column is asserted strictly ascending within and across chunks;
// a violation means the backend broke its ordering contract and is
// reported as a SourceError. Empty chunks are skipped.
func (a *Adapter) Next(ctx context.Context) (*ir.Chunk, error) {
	if a.done != nil {
		return nil, a.done
	}

	for {
		chunk, err := a.it.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil, a.finish(io.EOF)
		}
		if err != nil {
			return nil, a.finish(&SourceError{Source: a.desc, Chunk: a.seq + 1, Err: err})
		}
		if chunk == nil || chunk.Len() == 0 {
			continue
		}

		if err := a.check(chunk); err != nil {
			return nil, a.finish(&SourceError{Source: a.desc, Chunk: a.seq + 1, Err: err})
		}

		a.seq++
		a.rows += int64(chunk.Len())
		chunk.Seq = a.seq
		last := chunk.IDs[len(chunk.IDs)-1]
		a.lastID = &last
		return chunk, nil
	}
}

// check validates one chunk against the adapter's contract.
func (a *Adapter) check(chunk *ir.Chunk) error {
	if chunk.Len() > a.chunkSize {
		return fmt.Errorf("chunk has %d rows, limit is %d", chunk.Len(), a.chunkSize)
	}
	if err := chunk.Validate(); err != nil {
		return err
	}

	prev := a.lastID
	for i, id := range chunk.IDs {
		if prev != nil && id <= *prev {
			return fmt.Errorf("id order violated at row %d: %d after %d", i, id, *prev)
		}
		prev = &chunk.IDs[i]
	}

	for _, p := range a.key.Projection {
		if _, ok := chunk.Fields[p.Name]; !ok {
			return fmt.Errorf("backend omitted projected column %q", p.Name)
		}
	}
	return nil
}

// finish records the terminal state and releases the backend iterator.
func (a *Adapter) finish(err error) error {
	a.done = err
	if a.it != nil {
		if closeErr := a.it.Close(); closeErr != nil && errors.Is(err, io.EOF) {
			a.done = &SourceError{Source: a.desc, Chunk: a.seq, Err: fmt.Errorf("close: %w", closeErr)}
		}
		a.it = nil
	}
	return a.done
}

// Close releases the backend iterator. Safe to call more than once.
func (a *Adapter) Close() error {
	if a.done == nil {
		a.done = &SourceError{Source: a.desc, Chunk: a.seq, Err: errors.New("adapter closed")}
	}
	if a.it == nil {
		return nil
	}
	err := a.it.Close()
	a.it = nil
	return err
}
