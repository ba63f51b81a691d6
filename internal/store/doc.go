// Package store provides the database/sql backing store that catalogs read
// raw rows from.
//
// Two drivers are supported:
//   - sqlite3 (github.com/mattn/go-sqlite3), the default, for local catalog databases
//   - pgx (github.com/jackc/pgx/v5/stdlib), for Postgres-hosted tables
//
// # Reading
//
// Execute implements source.Backend. Each chunk is fetched with one keyset
// query (WHERE id >= last ORDER BY id ASC LIMIT n+1) on a statement
// prepared once per iterator. The row equal to last, already delivered,
// is dropped; a second row with that id is reported as a duplicate id. No cursor stays open between chunks, so concurrent
// iterators never hold the single SQLite connection while another waits.
//
// # Ingest
//
// IngestText loads the whitespace-separated text format used for fixture
// tables:
//
//	# id ra dec mag
//	0 1.348e+02 -2.1e+01 1.8e+01
//	1 ...
//
// # SQLite Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package store
