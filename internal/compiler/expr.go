package compiler

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/roach88/catsim/internal/catalog"
	"github.com/roach88/catsim/internal/ir"
)

// compileExpr builds a resolver from a CEL expression over deps.
//
// Every dependency is declared as a double variable and the expression
// must evaluate to a double, so "raJ2000 + dra" is valid while
// "raJ2000 * 2" is not (write 2.0). Evaluation is row by row in float64,
// which matches Go arithmetic on the same operands bit for bit.
func compileExpr(expr string, deps []string) (catalog.Resolver, error) {
	opts := make([]cel.EnvOption, len(deps))
	for i, dep := range deps {
		opts[i] = cel.Variable(dep, cel.DoubleType)
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return catalog.Resolver{}, fmt.Errorf("environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return catalog.Resolver{}, fmt.Errorf("compile error: %s", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.DoubleType) {
		return catalog.Resolver{}, fmt.Errorf("expression must return double, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return catalog.Resolver{}, fmt.Errorf("program construction error: %s", err)
	}

	names := append([]string(nil), deps...)
	return catalog.Resolver{
		Deps: names,
		Func: func(rc *catalog.ResolveContext) (ir.Column, error) {
			cols := make([]ir.Float64Column, len(names))
			for i, name := range names {
				col, err := rc.Float64(name)
				if err != nil {
					return nil, err
				}
				cols[i] = col
			}

			out := make(ir.Float64Column, rc.Len())
			vars := make(map[string]any, len(names))
			for row := range out {
				for i, name := range names {
					vars[name] = cols[i][row]
				}
				val, _, err := prg.Eval(vars)
				if err != nil {
					return nil, fmt.Errorf("row %d (id %d): %w", row, rc.IDs()[row], err)
				}
				f, ok := val.Value().(float64)
				if !ok {
					return nil, fmt.Errorf("row %d: expression returned %T", row, val.Value())
				}
				out[row] = f
			}
			return out, nil
		},
	}, nil
}
