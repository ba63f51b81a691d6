// Package catalog turns catalog definitions into immutable, validated
// specs and evaluates them chunk by chunk.
//
// A Definition names the columns a catalog emits and the resolvers that
// compute its derived columns. Definitions may extend a base definition;
// NewSpec flattens the override chain once, so evaluation is a flat lookup.
//
// All static problems are reported by NewSpec before any row source is
// opened:
//
//   - CYCLIC_DEPENDENCY: a derived column depends on itself
//   - MISSING_FIELD: a resolver reads a raw field the source does not project
//   - UNKNOWN_COLUMN: an output is neither raw nor derived
//   - INVALID_DEFINITION: anything else structurally wrong
//
// At run time an Evaluator resolves every requested output for one chunk,
// computing each derived column at most once per chunk. A failing resolver
// fails the whole chunk with a ColumnComputationError.
package catalog
