package calc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *ExprEngine {
	t.Helper()
	e := NewExprEngine(nil)
	require.NoError(t, e.LoadGlobalDefinitions())
	return e
}

func calcAndPrint(t *testing.T, e *ExprEngine, expression string) (string, []Message) {
	t.Helper()
	out, ok := e.CalculateAndPrint(expression, time.Second)
	require.True(t, ok, "evaluation of %q timed out", expression)
	return out, e.DrainMessages()
}

func TestExprEngine_Arithmetic(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		in   string
		want string
	}{
		{"2+2", "4"},
		{"1/3", "0.333333333333"},
		{"-5", "−5"},
		{"2^10", "1024"},
		{"sqrt(16)", "4"},
		{"pi", "3.14159265359"},
		{"3×4", "12"},
		{"10 ÷ 4", "2.5"},
		{"7 − 9", "−2"},
		{"3²", "9"},
		{"log(1000)", "3"},
		{"fact(5)", "120"},
		{"1 == 1", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			out, msgs := calcAndPrint(t, e, tt.in)
			assert.Empty(t, msgs)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestExprEngine_ErrorsBecomeMessages(t *testing.T) {
	e := newTestEngine(t)

	v, ok := e.Calculate("bogus_fn(1", time.Second)
	require.True(t, ok)
	assert.True(t, v.IsZero())
	msgs := e.DrainMessages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, SeverityError, msgs[0].Severity)
	assert.NotEmpty(t, msgs[0].Text)
	assert.Empty(t, e.DrainMessages(), "drain clears the queue")

	out, msgs := calcAndPrint(t, e, "1 + 1")
	assert.Equal(t, "2", out)
	assert.Empty(t, msgs)
}

func TestExprEngine_NonFiniteWarns(t *testing.T) {
	e := newTestEngine(t)
	out, msgs := calcAndPrint(t, e, "1/0")
	assert.Equal(t, "∞", out)
	require.Len(t, msgs, 1)
	assert.Equal(t, SeverityWarning, msgs[0].Severity)
}

func TestExprEngine_Assignment(t *testing.T) {
	e := newTestEngine(t)

	assert.True(t, e.IsAssignment("a = 20"))
	assert.True(t, e.IsAssignment("b := a * 2"))
	assert.False(t, e.IsAssignment("a == 20"))

	out, msgs := calcAndPrint(t, e, "a = 20")
	assert.Empty(t, msgs)
	assert.Equal(t, "20", out)

	out, _ = calcAndPrint(t, e, "a * 2")
	assert.Equal(t, "40", out)
	assert.Equal(t, map[string]string{"a": "20"}, e.LocalVariables())

	require.NoError(t, e.DeleteVariable("a"))
	_, msgs = calcAndPrint(t, e, "a * 2")
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0].Text, "unknown name a")

	assert.ErrorIs(t, e.DeleteVariable("a"), ErrUnknownVariable)
	assert.ErrorIs(t, e.DeleteVariable("pi"), ErrUnknownVariable)
}

func TestExprEngine_ReservedNamesAreNotAssignments(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.RegisterAnswer("ans1", "ans", "answer"))

	assert.False(t, e.IsAssignment("pi = 3.14159265359"))
	assert.False(t, e.IsAssignment("ans = 4"))
	assert.False(t, e.IsAssignment("answer = 4"))
	assert.False(t, e.IsAssignment("ans1 = 4"))
	assert.False(t, e.IsAssignment("sqrt = 2"))
	assert.True(t, e.IsAssignment("x = 4"))
}

func TestExprEngine_AssignmentRunsOnce(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.DefineVariable("c", "1"))

	v, ok := e.Calculate("c = c + 1", time.Second)
	require.True(t, ok)
	assert.Equal(t, Int(2), v)

	out, _ := calcAndPrint(t, e, "c = c + 1")
	assert.Equal(t, "2", out, "print pass reuses the calculated value")

	out, _ = calcAndPrint(t, e, "c")
	assert.Equal(t, "2", out)
}

func TestExprEngine_DeferredAssignment(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.DefineVariable("base", "2"))
	_, _ = calcAndPrint(t, e, "twice := base * 2")

	out, _ := calcAndPrint(t, e, "twice")
	assert.Equal(t, "4", out)

	require.NoError(t, e.DefineVariable("base", "5"))
	out, _ = calcAndPrint(t, e, "twice")
	assert.Equal(t, "10", out)
	assert.Equal(t, ":= base * 2", e.LocalVariables()["twice"])
}

func TestExprEngine_ReservedNames(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.RegisterAnswer("ans1", "ans", "answer"))

	for _, name := range []string{"pi", "sqrt", "ans", "ans1", "true", "max"} {
		err := e.DefineVariable(name, "3")
		assert.ErrorIs(t, err, ErrReservedName, name)
	}

	_, msgs := calcAndPrint(t, e, "pi = 3")
	require.Len(t, msgs, 1)
	assert.Equal(t, SeverityError, msgs[0].Severity)

	out, _ := calcAndPrint(t, e, "pi")
	assert.Equal(t, "3.14159265359", out)
}

func TestExprEngine_AnswerSlots(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.RegisterAnswer("ans1", "ans", "answer"))
	require.NoError(t, e.RegisterAnswer("ans2"))

	v, ok := e.Calculate("ans + 1", time.Second)
	require.True(t, ok)
	require.True(t, v.IsSymbolic())
	assert.Equal(t, "ans1 + 1", v.Expression())

	moved := e.Replace(v, "ans1", e.Reference("ans2"))
	assert.Equal(t, "ans2 + 1", moved.Expression())

	e.SetAnswer("answer", Int(5))
	assert.Equal(t, Int(5), e.Answer("ans1"))

	out, _ := calcAndPrint(t, e, "ans * 2")
	assert.Equal(t, "10", out)

	e.SetAnswer("ans2", Symbolic("ans1 + 1"))
	out, _ = calcAndPrint(t, e, "ans2")
	assert.Equal(t, "6", out)

	concrete := e.Replace(Symbolic("ans2 * 3"), "ans2", Int(4))
	assert.Equal(t, "4 * 3", concrete.Expression())
	assert.Equal(t, Int(7), e.Replace(Int(7), "ans1", Int(1)))

	assert.True(t, e.Replace(Symbolic("ans2 + 1"), "ans2", Value{}).IsZero())
	assert.Equal(t, "ans3 + 1", e.Replace(Symbolic("ans3 + 1"), "ans2", Value{}).Expression())
}

func TestExprEngine_Plot(t *testing.T) {
	e := newTestEngine(t)

	v, ok := e.Calculate("plot(x^2)", time.Second)
	require.True(t, ok)
	require.True(t, v.IsPlot())
	assert.True(t, e.PlotOpen())
	require.Len(t, v.Plot().Samples, plotDefaultSamples)
	assert.InDelta(t, 100, v.Plot().Samples[0], 1e-9)

	out, ok := e.Print(v, time.Second)
	require.True(t, ok)
	assert.NotEmpty(t, out)

	e.ClosePlot()
	assert.False(t, e.PlotOpen())

	v, ok = e.Calculate("plot(x, 0, 1)", time.Second)
	require.True(t, ok)
	assert.Equal(t, 0.0, v.Plot().Min)
	assert.Equal(t, 1.0, v.Plot().Max)

	_, ok = e.Calculate("plot(x, 1, 0)", time.Second)
	require.True(t, ok)
	msgs := e.DrainMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, SeverityError, msgs[0].Severity)
}

func TestExprEngine_Definitions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefinitionsFileName),
		[]byte("# local\nrate = 0.2\nfee := rate * 100\n\nbroken line\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ExchangeRatesFileName),
		[]byte("EUR 1\nUSD 1.08\n"), 0644))

	e := newTestEngine(t)
	err := e.LoadLocalDefinitions(dir)
	require.Error(t, err, "the malformed line is reported")
	assert.Contains(t, err.Error(), "definitions:5")

	out, _ := calcAndPrint(t, e, "rate * 10")
	assert.Equal(t, "2", out)

	require.NoError(t, e.LoadExchangeRates(dir))
	out, _ = calcAndPrint(t, e, "100 * USD")
	assert.Equal(t, "108", out)

	assert.NoError(t, e.LoadLocalDefinitions(t.TempDir()), "missing definitions are fine")
	assert.Error(t, e.LoadExchangeRates(t.TempDir()))
}

func TestExprEngine_WithoutGlobals(t *testing.T) {
	e := NewExprEngine(nil)
	_, msgs := calcAndPrint(t, e, "sqrt(4)")
	require.NotEmpty(t, msgs)
	assert.Equal(t, SeverityError, msgs[0].Severity)
}

func TestRunBounded(t *testing.T) {
	v, ok := runBounded(time.Second, func() int { return 7 })
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	release := make(chan struct{})
	defer close(release)
	_, ok = runBounded(10*time.Millisecond, func() int {
		<-release
		return 1
	})
	assert.False(t, ok)

	v, ok = runBounded(0, func() int { return 3 })
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "first", errorText(errors.New("first\nsecond")))
}
