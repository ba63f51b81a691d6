package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/catsim/internal/engine"
)

// ExpectationError describes one expectation that did not hold.
type ExpectationError struct {
	Catalog  string
	Field    string
	Expected any
	Actual   any
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("%s: %s: expected %v, got %v", e.Catalog, e.Field, e.Expected, e.Actual)
}

// CheckExpectations evaluates every expectation against the result.
// Returns one message per failed expectation, ordered by catalog name.
func CheckExpectations(result *Result, expect map[string]Expectation) []string {
	names := make([]string, 0, len(expect))
	for name := range expect {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []string
	for _, name := range names {
		for _, err := range checkCatalog(result, name, expect[name]) {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func checkCatalog(result *Result, name string, e Expectation) []error {
	out, ok := result.outputs[name]
	if !ok {
		return []error{fmt.Errorf("%s: catalog did not run", name)}
	}

	var errs []error
	outcome, ok := result.Report.Outcome(name)
	if !ok {
		return []error{fmt.Errorf("%s: no outcome in report", name)}
	}

	if e.Status != "" && engine.Status(e.Status) != outcome.Status {
		errs = append(errs, &ExpectationError{Catalog: name, Field: "status", Expected: e.Status, Actual: outcome.Status})
	}

	if e.Rows != nil && *e.Rows != out.Rows() {
		errs = append(errs, &ExpectationError{Catalog: name, Field: "rows", Expected: *e.Rows, Actual: out.Rows()})
	}

	if e.SameIDsAs != "" {
		other, ok := result.outputs[e.SameIDsAs]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%s: same_ids_as names catalog %q that did not run", name, e.SameIDsAs))
		case !slices.Equal(out.IDs(), other.IDs()):
			errs = append(errs, &ExpectationError{
				Catalog:  name,
				Field:    "ids",
				Expected: fmt.Sprintf("%d ids of %s", other.Rows(), e.SameIDsAs),
				Actual:   fmt.Sprintf("%d ids", out.Rows()),
			})
		}
	}

	if e.ErrorContains != "" {
		msg := "<nil>"
		if outcome.Err != nil {
			msg = outcome.Err.Error()
		}
		if !strings.Contains(msg, e.ErrorContains) {
			errs = append(errs, &ExpectationError{Catalog: name, Field: "error", Expected: fmt.Sprintf("containing %q", e.ErrorContains), Actual: msg})
		}
	}

	return errs
}
