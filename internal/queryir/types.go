package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/catsim/internal/ir"
)

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal
//   - Compare: field <op> literal
//   - And: all predicates must be true
type Predicate interface {
	predicateNode()

	// Canonical returns the deterministic text form used in row source keys.
	Canonical() string
}

// Select reads projected columns of one table, ordered by its id column.
//
// Semantics:
//
//	SELECT <id>, <expr> AS <name>, ... FROM <from>
//	WHERE <filter> AND <id> >= <start>
//	ORDER BY <id> ASC
//	LIMIT <limit>
//
// StartAt and Limit implement keyset pagination: each chunk is one query
// that resumes at the last id of the previous chunk, inclusive, so the
// backend can see a repeated id that straddles a page boundary. No cursor
// stays open between chunks.
type Select struct {
	From        string          // Table name
	IDColumn    string          // Unique identifier column, always selected first
	Projections []ir.Projection // name → backend expression
	Filter      Predicate       // nil = no filter
	StartAt     *int64          // resume at this id, inclusive (nil = from the start)
	Limit       int             // rows per page (0 = unbounded)
}

// Key returns the row source key this query reads.
// Pagination fields are not part of the key.
func (s Select) Key() ir.RowSourceKey {
	var filter string
	if s.Filter != nil {
		filter = s.Filter.Canonical()
	}
	return ir.NewRowSourceKey(s.From, s.IDColumn, s.Projections, filter)
}

// Page returns a copy of s starting at the given id with the given limit.
func (s Select) Page(start *int64, limit int) Select {
	s.StartAt = start
	s.Limit = limit
	return s
}

// Equals represents a field-equals-literal predicate.
//
// Value must be string, int64, float64 or bool.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// Canonical implements Predicate.
func (e Equals) Canonical() string {
	return e.Field + " = " + formatLiteral(e.Value)
}

// CompareOp is an ordering comparison operator.
type CompareOp string

const (
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
)

// Valid reports whether op is a supported operator.
func (op CompareOp) Valid() bool {
	switch op {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// Compare represents an ordering predicate such as "mag < 20".
// Value must be int64 or float64.
type Compare struct {
	Field string
	Op    CompareOp
	Value any
}

func (Compare) predicateNode() {}

// Canonical implements Predicate.
func (c Compare) Canonical() string {
	return c.Field + " " + string(c.Op) + " " + formatLiteral(c.Value)
}

// And represents a conjunction of predicates (empty = always true).
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Canonical implements Predicate.
// Conjuncts keep declaration order; reordering a filter yields a different
// key, which costs a duplicate query but never a wrong result.
func (a And) Canonical() string {
	if len(a.Predicates) == 0 {
		return "TRUE"
	}
	parts := make([]string, len(a.Predicates))
	for i, p := range a.Predicates {
		parts[i] = p.Canonical()
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

// formatLiteral renders a literal deterministically.
// Floats use the shortest representation that round-trips.
func formatLiteral(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("<%T>", v)
	}
}
