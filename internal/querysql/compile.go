package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/catsim/internal/queryir"
)

// Dialect selects the placeholder syntax of the target database.
type Dialect int

const (
	// DialectSQLite uses "?" placeholders.
	DialectSQLite Dialect = iota
	// DialectPostgres uses "$1, $2, ..." placeholders.
	DialectPostgres
)

// SQLCompiler compiles queryir.Select to parameterized SQL.
//
// CRITICAL: every query orders by the id column ascending; chunk iteration
// and keyset pagination both depend on it.
// CRITICAL: literal values are parameterized, never interpolated.
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a compiler for the given dialect.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

// Compile converts a Select to (sql, params).
// The query is validated first; identifiers are spliced, values are bound.
func (c *SQLCompiler) Compile(q queryir.Select) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	b := &builder{dialect: c.Dialect}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	sql.WriteString(c.compileProjections(q))
	sql.WriteString(" FROM ")
	sql.WriteString(q.From)

	var conds []string
	if q.Filter != nil {
		filterSQL, err := b.predicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		conds = append(conds, filterSQL)
	}
	if q.StartAt != nil {
		conds = append(conds, q.IDColumn+" >= "+b.bind(*q.StartAt))
	}
	if len(conds) > 0 {
		sql.WriteString(" WHERE ")
		sql.WriteString(strings.Join(conds, " AND "))
	}

	// MANDATORY: stable order by the unique id column
	sql.WriteString(" ORDER BY ")
	sql.WriteString(q.IDColumn)
	sql.WriteString(" ASC")

	if q.Limit > 0 {
		sql.WriteString(" LIMIT ")
		sql.WriteString(b.bind(int64(q.Limit)))
	}

	return sql.String(), b.params, nil
}

// compileProjections renders the SELECT list: id first, then projections
// in the order given. Identity projections are emitted without an alias.
func (c *SQLCompiler) compileProjections(q queryir.Select) string {
	parts := make([]string, 0, len(q.Projections)+1)
	parts = append(parts, q.IDColumn)
	for _, p := range q.Projections {
		expr := strings.TrimSpace(p.Expr)
		if expr == p.Name {
			parts = append(parts, p.Name)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s AS %s", expr, p.Name))
	}
	return strings.Join(parts, ", ")
}

// builder accumulates bound parameters in placeholder order.
type builder struct {
	dialect Dialect
	params  []any
}

func (b *builder) bind(v any) string {
	b.params = append(b.params, v)
	if b.dialect == DialectPostgres {
		return "$" + strconv.Itoa(len(b.params))
	}
	return "?"
}

func (b *builder) predicate(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return pred.Field + " = " + b.bind(normalizeParam(pred.Value)), nil
	case *queryir.Equals:
		return b.predicate(*pred)
	case queryir.Compare:
		return pred.Field + " " + string(pred.Op) + " " + b.bind(normalizeParam(pred.Value)), nil
	case *queryir.Compare:
		return b.predicate(*pred)
	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil // vacuous truth
		}
		parts := make([]string, 0, len(pred.Predicates))
		for _, sub := range pred.Predicates {
			s, err := b.predicate(sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case *queryir.And:
		return b.predicate(*pred)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// normalizeParam widens int to int64 so drivers see one integer type.
func normalizeParam(v any) any {
	if i, ok := v.(int); ok {
		return int64(i)
	}
	return v
}
