// Package queryir provides the abstract query representation used to read
// raw catalog rows from a backing store.
//
// QueryIR is the boundary between catalog definitions and backend query
// engines. A row source is described once as a Select; backends (SQLite,
// Postgres) compile it to their own dialect.
//
//	[source definition] → [Select] → [querysql] → SQLite / Postgres
//
// SUPPORTED FRAGMENT:
//   - Select(from, id, projections, filter) with keyset pagination (StartAt, Limit)
//   - Predicates: Equals, Compare (<, <=, >, >=), And
//   - Explicit projections (no SELECT *)
//
// EXCLUDED:
//   - Joins, aggregations, subqueries (a catalog reads exactly one table)
//   - OR predicates
//   - NULL comparisons
//
// Predicate is a sealed interface using the marker method pattern, so
// backends can switch exhaustively over predicate types.
//
// Every predicate has a canonical text form (Canonical). Row source keys
// embed that text, so two filters that render identically are the same
// filter for query-equivalence purposes.
package queryir
