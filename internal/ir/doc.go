// Package ir provides the foundation types shared by every catsim package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the data model the
// bottom layer with no circular dependencies.
//
// Key types:
//   - Column: sealed typed value sequence (Float64Column, Int64Column, StringColumn)
//   - Chunk: one fixed-size batch of raw rows keyed by the unique id column
//   - ResolvedChunk: a chunk projected onto one catalog's output columns
//   - RowSourceKey: canonical, comparable descriptor of a row source
//
// Chunks are lent read-only to every evaluator sharing a row source.
// Nothing in this package copies column data defensively; callers must not
// mutate a column they did not allocate.
package ir
