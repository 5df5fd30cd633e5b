package calc

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
)

// globalConstants are registered by LoadGlobalDefinitions.
var globalConstants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"phi": math.Phi,
	"tau": 2 * math.Pi,
}

type mathFunc struct {
	name  string
	arity int
	fn    func(args []float64) (float64, error)
}

func unary(name string, f func(float64) float64) mathFunc {
	return mathFunc{name: name, arity: 1, fn: func(a []float64) (float64, error) { return f(a[0]), nil }}
}

func binary(name string, f func(float64, float64) float64) mathFunc {
	return mathFunc{name: name, arity: 2, fn: func(a []float64) (float64, error) { return f(a[0], a[1]), nil }}
}

// globalFunctions avoid the names of expr-lang builtins such as abs, ceil,
// floor, round, max and min, which remain available as they are.
var globalFunctions = []mathFunc{
	unary("sqrt", math.Sqrt),
	unary("cbrt", math.Cbrt),
	unary("sin", math.Sin),
	unary("cos", math.Cos),
	unary("tan", math.Tan),
	unary("asin", math.Asin),
	unary("acos", math.Acos),
	unary("atan", math.Atan),
	binary("atan2", math.Atan2),
	unary("sinh", math.Sinh),
	unary("cosh", math.Cosh),
	unary("tanh", math.Tanh),
	unary("ln", math.Log),
	unary("log2", math.Log2),
	unary("exp", math.Exp),
	binary("hypot", math.Hypot),
	{name: "log", arity: -1, fn: logN},
	{name: "fact", arity: 1, fn: factorial},
}

// logN is log10(x), or log(x, base) with two arguments.
func logN(a []float64) (float64, error) {
	switch len(a) {
	case 1:
		return math.Log10(a[0]), nil
	case 2:
		return math.Log(a[0]) / math.Log(a[1]), nil
	default:
		return 0, fmt.Errorf("log expects 1 or 2 arguments, got %d", len(a))
	}
}

func factorial(a []float64) (float64, error) {
	n := a[0]
	if n < 0 || n != math.Trunc(n) {
		return 0, fmt.Errorf("fact expects a non-negative integer, got %v", n)
	}
	if n > 170 {
		return math.Inf(1), nil
	}
	out := 1.0
	for i := 2.0; i <= n; i++ {
		out *= i
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

// option adapts f to an expr.Function option.
func (f mathFunc) option() expr.Option {
	return expr.Function(f.name, func(params ...any) (any, error) {
		if f.arity >= 0 && len(params) != f.arity {
			return nil, fmt.Errorf("%s expects %d argument(s), got %d", f.name, f.arity, len(params))
		}
		args := make([]float64, len(params))
		for i, p := range params {
			v, err := toFloat(p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.name, err)
			}
			args[i] = v
		}
		return f.fn(args)
	})
}

// keywords cannot be assigned: they are expr-lang operators, literals and
// commonly used builtins.
var keywords = []string{
	"true", "false", "nil", "not", "and", "or", "in", "matches", "contains",
	"startsWith", "endsWith", "let", "if", "else",
	"abs", "ceil", "floor", "round", "max", "min", "sum", "mean", "median",
	"int", "float", "len", "plot",
}
