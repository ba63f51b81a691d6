package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/source"
)

// runClass drives one class's adapter to completion.
//
// The adapter is opened here, on first need, and closed before returning.
// Panics are converted into a failed outcome so one broken resolver or sink
// cannot take down sibling classes.
func (c *Coordinator) runClass(ctx context.Context, logger *slog.Logger, cl *class) (oc ClassOutcome) {
	logger = logger.With("class", cl.key.String())
	oc = cl.outcome(StatusOK, nil)

	defer func() {
		if r := recover(); r != nil {
			oc.Status = StatusFailed
			oc.Err = fmt.Errorf("class panicked: %v", r)
		}
		switch oc.Status {
		case StatusFailed:
			logger.Error("class failed", "chunks", oc.Chunks, "rows", oc.Rows, "outcome", oc.Status, "error", oc.Err)
		default:
			logger.Info("class finished", "chunks", oc.Chunks, "rows", oc.Rows, "outcome", oc.Status)
		}
	}()

	if err := ctx.Err(); err != nil {
		oc.Status, oc.Err = StatusCancelled, cancelled(err)
		return oc
	}

	logger.Debug("class starting", "catalogs", oc.Catalogs)
	adapter, err := source.Open(ctx, c.backend, cl.query, c.chunkSize)
	if err != nil {
		oc.Status, oc.Err = c.classifyFetch(ctx, err)
		return oc
	}
	c.metrics.opened()
	defer func() {
		if err := adapter.Close(); err != nil {
			logger.Warn("close row source", "error", err)
		}
	}()

	// A chunk that has been fetched is always finished, even if the run is
	// cancelled while its sinks are being written.
	chunkCtx := context.WithoutCancel(ctx)

	short := false
	for {
		if err := ctx.Err(); err != nil {
			// A short chunk is normally the last one. If the stream confirms
			// it, every row has been delivered and the class is complete.
			if short && exhausted(chunkCtx, adapter) {
				return oc
			}
			oc.Status, oc.Err = StatusCancelled, cancelled(err)
			return oc
		}

		chunk, err := adapter.Next(ctx)
		if errors.Is(err, io.EOF) {
			return oc
		}
		if err != nil {
			oc.Status, oc.Err = c.classifyFetch(ctx, err)
			return oc
		}

		if err := c.processChunk(chunkCtx, cl, chunk); err != nil {
			oc.Status, oc.Err = StatusFailed, err
			return oc
		}
		oc.Chunks++
		oc.Rows += int64(chunk.Len())
		short = chunk.Len() < c.chunkSize
	}
}

// exhausted reports whether the adapter has no chunk left. A chunk it
// returns instead is not processed.
func exhausted(ctx context.Context, adapter *source.Adapter) bool {
	_, err := adapter.Next(ctx)
	return errors.Is(err, io.EOF)
}

// processChunk evaluates every member, then appends each result to its sink
// in member order. Nothing is appended unless every member evaluated.
func (c *Coordinator) processChunk(ctx context.Context, cl *class, chunk *ir.Chunk) error {
	results := make([]*ir.ResolvedChunk, len(cl.members))
	for i, m := range cl.members {
		rc, err := m.eval.Evaluate(chunk)
		if err != nil {
			return err
		}
		results[i] = rc
	}

	for i, m := range cl.members {
		if err := m.sink.Append(ctx, results[i]); err != nil {
			return fmt.Errorf("sink %s (chunk %d): %w", results[i].Catalog, chunk.Seq, err)
		}
		c.metrics.appended(results[i].Catalog, results[i].Len())
	}
	return nil
}

// classifyFetch maps an adapter error to an outcome. A fetch interrupted
// by cancellation is reported as cancelled, not as a source failure.
func (c *Coordinator) classifyFetch(ctx context.Context, err error) (Status, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return StatusCancelled, cancelled(ctxErr)
	}
	return StatusFailed, err
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
