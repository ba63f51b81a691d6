// Package sink provides destinations for resolved catalog output.
//
// A sink receives one catalog's chunks in order. The coordinator never
// calls Append concurrently for the same sink and never shares a sink
// between catalogs, so implementations need no locking for that path.
package sink

import (
	"context"

	"github.com/roach88/catsim/internal/ir"
)

// Sink is an append-only destination for one catalog's output.
type Sink interface {
	// Append writes one resolved chunk. Chunks arrive in row order.
	Append(ctx context.Context, chunk *ir.ResolvedChunk) error
}
