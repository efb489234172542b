package query

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Filter is a compiled CEL expression over an element's properties. It
// is the query-object language accepted by the in-memory and Redis
// index backends: the expression sees one variable, `props`, holding
// the element's property map.
//
//	f, err := query.NewFilter(`props.name == "Ann" && props.age > 30`)
//	if err != nil { ... }
//	ok, err := f.Matches(entity.Properties())
//
// A Filter is immutable and safe for concurrent use.
type Filter struct {
	expr    string
	program cel.Program
}

// NewFilter compiles a CEL boolean expression into a Filter. The
// expression must evaluate to a bool.
func NewFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, fmt.Errorf("query: empty filter expression")
	}

	env, err := cel.NewEnv(
		cel.Variable("props", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("query: creating filter environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("query: compiling filter %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("query: filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("query: building filter program: %w", err)
	}

	return &Filter{expr: expr, program: program}, nil
}

// Expr returns the source expression the filter was compiled from.
func (f *Filter) Expr() string {
	return f.expr
}

// Matches evaluates the filter against one property map. Missing
// properties referenced by the expression surface as evaluation errors,
// so expressions should guard with `has()` or `in` where absence is
// expected.
func (f *Filter) Matches(props map[string]any) (bool, error) {
	if props == nil {
		props = map[string]any{}
	}
	out, _, err := f.program.Eval(map[string]any{"props": props})
	if err != nil {
		return false, fmt.Errorf("query: evaluating filter %q: %w", f.expr, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("query: filter %q produced %T, want bool", f.expr, out.Value())
	}
	return matched, nil
}
