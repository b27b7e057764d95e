package analysis

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// PathFilter is a compiled boolean CEL expression over a call path. The
// expression sees these variables:
//
//	length     int           number of edges on the path
//	names      list(string)  function names in call order
//	addresses  list(string)  function addresses in call order
//	call_sites list(string)  call-site offsets along the path
//
// For example `length >= 2 && names.exists(n, n.startsWith("Crypt"))`.
type PathFilter struct {
	expr string
	prg  cel.Program
}

var pathEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable("length", cel.IntType),
		cel.Variable("names", cel.ListType(cel.StringType)),
		cel.Variable("addresses", cel.ListType(cel.StringType)),
		cel.Variable("call_sites", cel.ListType(cel.StringType)),
	)
	if err != nil {
		panic(fmt.Sprintf("analysis: path filter environment: %v", err))
	}
	pathEnv = env
}

// CompileFilter compiles expr. It fails when expr does not type-check or
// does not yield a bool.
func CompileFilter(expr string) (*PathFilter, error) {
	ast, iss := pathEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q yields %s, want bool", ErrInvalidFilter, expr, ast.OutputType())
	}
	prg, err := pathEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return &PathFilter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *PathFilter) String() string {
	return f.expr
}

// Match evaluates the filter against p.
func (f *PathFilter) Match(p CallPath) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{
		"length":     int64(p.Length),
		"names":      p.Names(),
		"addresses":  p.Addresses(),
		"call_sites": p.CallSites(),
	})
	if err != nil {
		return false, fmt.Errorf("%w: evaluate %q: %v", ErrInvalidFilter, f.expr, err)
	}
	ok, _ := out.Value().(bool)
	return ok, nil
}

// Filter returns the paths matching f. A nil filter keeps every path.
func (f *PathFilter) Filter(paths []CallPath) ([]CallPath, error) {
	if f == nil {
		return paths, nil
	}
	out := make([]CallPath, 0, len(paths))
	for _, p := range paths {
		ok, err := f.Match(p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}
