package queryir

import (
	"fmt"
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether name is safe to splice into SQL as an identifier.
func ValidIdent(name string) bool {
	return identPattern.MatchString(name)
}

// ValidationError lists every problem found in a query.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// Validate checks a Select before it is compiled.
//
// Identifiers are spliced into SQL, so they must match ValidIdent.
// Projection expressions are backend SQL written by catalog authors; they
// are checked only for statement separators and comment markers.
// Literal values are always parameterized by the compiler.
//
// Validate is a pure function with no side effects.
func Validate(q Select) error {
	v := &validator{}
	v.validateSelect(q)
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateSelect(q Select) {
	if !ValidIdent(q.From) {
		v.addProblem("table name %q is not a valid identifier", q.From)
	}
	if !ValidIdent(q.IDColumn) {
		v.addProblem("id column %q is not a valid identifier", q.IDColumn)
	}
	if q.Limit < 0 {
		v.addProblem("limit must not be negative, got %d", q.Limit)
	}

	seen := make(map[string]bool, len(q.Projections))
	for _, p := range q.Projections {
		if !ValidIdent(p.Name) {
			v.addProblem("projection name %q is not a valid identifier", p.Name)
		}
		if p.Name == q.IDColumn {
			v.addProblem("projection %q shadows the id column", p.Name)
		}
		if seen[p.Name] {
			v.addProblem("duplicate projection %q", p.Name)
		}
		seen[p.Name] = true

		expr := strings.TrimSpace(p.Expr)
		if expr == "" {
			v.addProblem("projection %q has an empty expression", p.Name)
		}
		if strings.ContainsAny(expr, ";") || strings.Contains(expr, "--") || strings.Contains(expr, "/*") {
			v.addProblem("projection %q expression contains a statement separator or comment", p.Name)
		}
	}

	if q.Filter != nil {
		v.validatePredicate(q.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateField(pred.Field)
		v.validateLiteral(pred.Field, pred.Value, true)
	case *Equals:
		v.validatePredicate(*pred)
	case Compare:
		v.validateField(pred.Field)
		if !pred.Op.Valid() {
			v.addProblem("field %q uses unsupported operator %q", pred.Field, pred.Op)
		}
		v.validateLiteral(pred.Field, pred.Value, false)
	case *Compare:
		v.validatePredicate(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		v.validatePredicate(*pred)
	case nil:
		v.addProblem("nil predicate")
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateField(field string) {
	if !ValidIdent(field) {
		v.addProblem("filter field %q is not a valid identifier", field)
	}
}

func (v *validator) validateLiteral(field string, value any, allowNonNumeric bool) {
	switch value.(type) {
	case int64, int, float64:
		return
	case string, bool:
		if allowNonNumeric {
			return
		}
		v.addProblem("field %q: ordering comparison needs a numeric value, got %T", field, value)
	case nil:
		v.addProblem("field %q compared to NULL", field)
	default:
		v.addProblem("field %q: unsupported literal type %T", field, value)
	}
}
