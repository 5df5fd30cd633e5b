package calc

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Value is an engine-native result. The zero Value is undefined.
//
// A Value is exactly one of: a concrete scalar (int, float64, bool or
// string), a symbolic expression that still references undefined answer
// slots, or a sampled plot.
type Value struct {
	scalar   any
	symbolic string
	plot     *Plot
}

// Int returns a concrete integer value.
func Int(i int) Value { return Value{scalar: i} }

// Float returns a concrete floating point value.
func Float(f float64) Value { return Value{scalar: f} }

// Symbolic returns a value holding an unresolved expression.
func Symbolic(expression string) Value { return Value{symbolic: expression} }

// ScalarValue wraps a result produced by expr.Run.
func ScalarValue(v any) Value {
	switch n := v.(type) {
	case nil:
		return Value{}
	case int:
		return Int(n)
	case int64:
		return Int(int(n))
	case int32:
		return Int(int(n))
	case float32:
		return Float(float64(n))
	default:
		return Value{scalar: v}
	}
}

func (v Value) IsZero() bool     { return v.scalar == nil && v.symbolic == "" && v.plot == nil }
func (v Value) IsSymbolic() bool { return v.symbolic != "" }
func (v Value) IsPlot() bool     { return v.plot != nil }

// Scalar returns the concrete result, or nil.
func (v Value) Scalar() any { return v.scalar }

// Expression returns the symbolic source, or "".
func (v Value) Expression() string { return v.symbolic }

// Plot returns the sampled plot, or nil.
func (v Value) Plot() *Plot { return v.plot }

// Float64 converts a numeric scalar to float64.
func (v Value) Float64() (float64, bool) {
	switch n := v.scalar.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Equal compares two values by content.
func (v Value) Equal(o Value) bool {
	if v.plot != nil || o.plot != nil {
		return v.plot == o.plot
	}
	if v.symbolic != o.symbolic {
		return false
	}
	if a, ok := v.Float64(); ok {
		b, ok := o.Float64()
		return ok && (a == b || (math.IsNaN(a) && math.IsNaN(b)))
	}
	return reflect.DeepEqual(v.scalar, o.scalar)
}

// String renders the value with ASCII signs, suitable for re-parsing.
func (v Value) String() string {
	switch {
	case v.plot != nil:
		return v.plot.Expression
	case v.symbolic != "":
		return v.symbolic
	case v.scalar == nil:
		return ""
	}
	return formatScalar(v.scalar, "-")
}

// display renders the value for humans, with a unicode minus sign.
func (v Value) display() string {
	switch {
	case v.plot != nil:
		return v.plot.Render()
	case v.symbolic != "":
		return strings.ReplaceAll(v.symbolic, " - ", " − ")
	case v.scalar == nil:
		return ""
	}
	return formatScalar(v.scalar, "−")
}

// significantDigits bounds float output.
const significantDigits = 12

func formatScalar(s any, minus string) string {
	switch n := s.(type) {
	case int:
		if n < 0 {
			return minus + strconv.FormatUint(uint64(-(n+1))+1, 10)
		}
		return strconv.Itoa(n)
	case float64:
		return formatFloat(n, minus)
	case bool:
		return strconv.FormatBool(n)
	case string:
		return n
	default:
		return fmt.Sprint(n)
	}
}

func formatFloat(f float64, minus string) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "∞"
	case math.IsInf(f, -1):
		return minus + "∞"
	}
	neg := f < 0
	if neg {
		f = -f
	}
	out := strconv.FormatFloat(f, 'g', significantDigits, 64)
	if mant, exp, ok := strings.Cut(out, "e"); ok {
		// 1.50000000000e+20 -> 1.5e20, 1e-05 -> 1e-5
		sign := ""
		if strings.HasPrefix(exp, "-") {
			sign = "-"
		}
		exp = strings.TrimLeft(exp, "+-0")
		out = trimFraction(mant) + "e" + sign + exp
	} else {
		out = trimFraction(out)
	}
	if neg && out != "0" {
		return minus + out
	}
	return out
}

func trimFraction(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}
