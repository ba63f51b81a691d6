// Package source implements the row source adapter: a lazy, finite,
// non-restartable stream of raw row chunks drawn from a backing store.
//
// An Adapter wraps one backend query. It yields chunks in ascending id
// order, covering the full result set exactly once. The final chunk may be
// shorter than the configured size. After the stream ends (or fails) every
// further call to Next returns the same terminal error.
//
// The adapter does not deduplicate: opening the same query twice reads it
// twice. Sharing one adapter between query-equivalent catalogs is the
// coordinator's job (package engine).
//
// # Errors
//
//   - SourceUnavailableError: the backend query could not be started
//   - SourceError: a failure while iterating, including an id-order violation
//
// Neither is retried at this layer.
package source
