package calc

import (
	"math"
	"strings"
)

const (
	plotDefaultMin     = -10.0
	plotDefaultMax     = 10.0
	plotDefaultSamples = 40
	// PlotVariable is the free variable of a plotted expression.
	PlotVariable = "x"
)

// IsPlotQuery reports whether an unlocalized expression requests a plot.
// The match is a case-insensitive "plot(" prefix after leading whitespace.
func IsPlotQuery(expression string) bool {
	s := strings.TrimLeft(expression, " \t\r\n")
	return len(s) >= len("plot(") && strings.EqualFold(s[:len("plot(")], "plot(")
}

// Plot is a sampled function of PlotVariable.
type Plot struct {
	Expression string
	Min, Max   float64
	Samples    []float64
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Render draws the samples as a one-line sparkline followed by the y range.
func (p *Plot) Render() string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, y := range p.Samples {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	var b strings.Builder
	for _, y := range p.Samples {
		switch {
		case math.IsNaN(y) || math.IsInf(y, 0):
			b.WriteRune(' ')
		case hi == lo:
			b.WriteRune(sparkLevels[len(sparkLevels)/2])
		default:
			idx := int((y - lo) / (hi - lo) * float64(len(sparkLevels)-1))
			b.WriteRune(sparkLevels[idx])
		}
	}
	if math.IsInf(lo, 1) {
		return b.String()
	}
	b.WriteString("  ")
	b.WriteString(formatFloat(lo, "−"))
	b.WriteString(" … ")
	b.WriteString(formatFloat(hi, "−"))
	return b.String()
}
