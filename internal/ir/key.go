package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Projection is one projected column: an output name and the backing-store
// expression that produces it (e.g. {Name: "raJ2000", Expr: "2.0*ra"}).
type Projection struct {
	Name string
	Expr string
}

// RowSourceKey is the canonical descriptor of a row source.
//
// Two catalogs whose keys are Equal are query-equivalent and must draw from
// one shared adapter. Equality is structural: projection order is ignored
// (NewRowSourceKey sorts it) and strings are compared after NFC
// normalization through the canonical encoding.
type RowSourceKey struct {
	Table      string
	IDColumn   string
	Projection []Projection // sorted by Name
	Filter     string       // canonical predicate text, "" = no filter
	OrderBy    string       // always "<id> ASC" today
}

// NewRowSourceKey builds a key with its projection sorted by name.
// The input slice is copied.
func NewRowSourceKey(table, idColumn string, projection []Projection, filter string) RowSourceKey {
	proj := slices.Clone(projection)
	slices.SortFunc(proj, func(a, b Projection) int {
		return strings.Compare(a.Name, b.Name)
	})
	return RowSourceKey{
		Table:      table,
		IDColumn:   idColumn,
		Projection: proj,
		Filter:     filter,
		OrderBy:    idColumn + " ASC",
	}
}

// Canonical returns the canonical JSON encoding of the key.
func (k RowSourceKey) Canonical() ([]byte, error) {
	proj := make([]any, len(k.Projection))
	for i, p := range k.Projection {
		proj[i] = map[string]any{"name": p.Name, "expr": p.Expr}
	}
	return MarshalCanonical(map[string]any{
		"table":      k.Table,
		"id":         k.IDColumn,
		"projection": proj,
		"filter":     k.Filter,
		"order_by":   k.OrderBy,
	})
}

// Hash returns the content-addressed identity of the key.
func (k RowSourceKey) Hash() (string, error) {
	data, err := k.Canonical()
	if err != nil {
		return "", fmt.Errorf("RowSourceKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRowSource, data), nil
}

// MustHash is like Hash but panics on error.
// Keys built from validated identifiers never fail to marshal.
func (k RowSourceKey) MustHash() string {
	h, err := k.Hash()
	if err != nil {
		panic(err)
	}
	return h
}

// Equal reports structural equality.
func (k RowSourceKey) Equal(other RowSourceKey) bool {
	a, errA := k.Canonical()
	b, errB := other.Canonical()
	return errA == nil && errB == nil && string(a) == string(b)
}

// FieldNames returns the projected column names in key order.
func (k RowSourceKey) FieldNames() []string {
	names := make([]string, len(k.Projection))
	for i, p := range k.Projection {
		names[i] = p.Name
	}
	return names
}

// String returns a short human-readable description for logs.
func (k RowSourceKey) String() string {
	var b strings.Builder
	b.WriteString(k.Table)
	b.WriteByte('(')
	for i, p := range k.Projection {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Name == p.Expr {
			b.WriteString(p.Name)
		} else {
			fmt.Fprintf(&b, "%s=%s", p.Name, p.Expr)
		}
	}
	b.WriteByte(')')
	if k.Filter != "" {
		b.WriteString(" WHERE ")
		b.WriteString(k.Filter)
	}
	return b.String()
}
