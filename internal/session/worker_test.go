package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/rofi-calc/internal/calc"
	"github.com/joeycumines/rofi-calc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEvaluator answers from a table. Expressions in slow never finish in
// time; Calculate blocks on gate when it is set.
type fakeEvaluator struct {
	mu       sync.Mutex
	results  map[string]string
	slow     map[string]bool
	messages []calc.Message
	plotOpen bool
	closes   int
	gate     chan struct{}
	locals   map[string]string
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{results: map[string]string{}, slow: map[string]bool{}}
}

func (f *fakeEvaluator) Unlocalize(expression string) string {
	return strings.ReplaceAll(expression, "×", "*")
}

func (f *fakeEvaluator) Calculate(expression string, timeout time.Duration) (calc.Value, bool) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
	if f.slow[expression] {
		return calc.Value{}, false
	}
	if calc.IsPlotQuery(expression) {
		f.plotOpen = true
		return calc.Symbolic(expression), true
	}
	text, ok := f.results[expression]
	if !ok {
		f.messages = append(f.messages, calc.Messagef(calc.SeverityError, "unknown expression %s", expression))
		return calc.Value{}, true
	}
	return calc.Symbolic(text), true
}

func (f *fakeEvaluator) Print(v calc.Value, timeout time.Duration) (string, bool) {
	return "plotted " + v.Expression(), true
}

func (f *fakeEvaluator) CalculateAndPrint(expression string, timeout time.Duration) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[expression], true
}

func (f *fakeEvaluator) DrainMessages() []calc.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.messages
	f.messages = nil
	return out
}

func (f *fakeEvaluator) PlotOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plotOpen
}

func (f *fakeEvaluator) ClosePlot() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plotOpen = false
	f.closes++
}

func (f *fakeEvaluator) LocalVariables() map[string]string { return f.locals }

func startWorker(t *testing.T, f *fakeEvaluator, timeout time.Duration) (*Worker, *QueryChannel) {
	t.Helper()
	queries := NewQueryChannel()
	w := NewWorker(f, queries, WorkerOptions{Timeout: timeout})
	t.Cleanup(w.Close)
	return w, queries
}

func post(t *testing.T, queries *QueryChannel, expression string) <-chan Result {
	t.Helper()
	ch := make(chan Result, 1)
	posted, _ := queries.Post(Query{ID: uuid.New(), Expression: expression, Callback: func(r Result) { ch <- r }})
	require.True(t, posted)
	return ch
}

func TestWorker_Evaluates(t *testing.T) {
	f := newFakeEvaluator()
	f.results["2*3"] = "6"
	w, queries := startWorker(t, f, time.Second)

	r := testutil.Receive(t, post(t, queries, "2×3"), testutil.ResultTimeout)
	assert.Equal(t, "2×3", r.Expression, "result carries the submitted text")
	assert.Equal(t, "6", r.Text)
	assert.Empty(t, r.Messages)
	assert.False(t, r.TimedOut)
	assert.False(t, r.Plot)
	assert.Equal(t, calc.Symbolic("6"), r.Value)
	assert.Equal(t, calc.Symbolic("6"), w.LastResult())
	assert.False(t, w.IsEvaluating())
}

func TestWorker_TimeoutReportsHalfBudget(t *testing.T) {
	f := newFakeEvaluator()
	f.slow["loop"] = true
	f.results["1"] = "1"
	w, queries := startWorker(t, f, 100*time.Millisecond)

	r := testutil.Receive(t, post(t, queries, "loop"), testutil.ResultTimeout)
	assert.True(t, r.TimedOut)
	assert.Empty(t, r.Text)
	require.Len(t, r.Messages, 1)
	assert.Equal(t, calc.SeverityError, r.Messages[0].Severity)
	assert.Equal(t, "Evaluation timed out after 50 ms", r.Messages[0].Text)
	assert.True(t, r.Value.IsZero())
	assert.True(t, w.LastResult().IsZero(), "timeouts keep the previous result")

	r = testutil.Receive(t, post(t, queries, "1"), testutil.ResultTimeout)
	assert.Equal(t, "1", r.Text)
}

func TestWorker_TimeoutBelowOneMillisecond(t *testing.T) {
	f := newFakeEvaluator()
	f.slow["loop"] = true
	_, queries := startWorker(t, f, time.Millisecond)

	r := testutil.Receive(t, post(t, queries, "loop"), testutil.ResultTimeout)
	require.True(t, r.TimedOut)
	require.Len(t, r.Messages, 1)
	assert.Equal(t, "Evaluation timed out after 500 µs", r.Messages[0].Text)
}

func TestFormatTimeout(t *testing.T) {
	for _, tc := range []struct {
		in   time.Duration
		want string
	}{
		{time.Microsecond, "1 µs"},
		{500 * time.Microsecond, "500 µs"},
		{time.Millisecond, "1 ms"},
		{1500 * time.Microsecond, "2 ms"},
		{50 * time.Millisecond, "50 ms"},
	} {
		assert.Equal(t, tc.want, formatTimeout(tc.in), tc.in.String())
	}
}

func TestWorker_DiagnosticsAccompanyResult(t *testing.T) {
	f := newFakeEvaluator()
	_, queries := startWorker(t, f, time.Second)

	r := testutil.Receive(t, post(t, queries, "bogus_fn(1"), testutil.ResultTimeout)
	assert.True(t, r.HasError())
	assert.Contains(t, r.Messages[0].Text, "bogus_fn(1")
}

func TestWorker_PlotLifecycle(t *testing.T) {
	f := newFakeEvaluator()
	f.results["3"] = "3"
	w, queries := startWorker(t, f, time.Second)

	r := testutil.Receive(t, post(t, queries, "plot(x)"), testutil.ResultTimeout)
	assert.True(t, r.Plot)
	assert.Equal(t, "plotted plot(x)", r.Text)
	assert.True(t, w.IsPlotOpen())
	assert.Equal(t, 0, f.closes)

	r = testutil.Receive(t, post(t, queries, "3"), testutil.ResultTimeout)
	assert.False(t, r.Plot)
	assert.False(t, w.IsPlotOpen(), "a non-plot query closes the plot")
	assert.Equal(t, 1, f.closes)
}

func TestWorker_MissingCallbackKeepsRunning(t *testing.T) {
	f := newFakeEvaluator()
	f.results["1"] = "1"
	_, queries := startWorker(t, f, time.Second)

	posted, _ := queries.Post(Query{ID: uuid.New(), Expression: "nothing"})
	require.True(t, posted)

	r := testutil.Receive(t, post(t, queries, "1"), testutil.ResultTimeout)
	assert.Equal(t, "1", r.Text)
}

func TestWorker_InProgressFlag(t *testing.T) {
	f := newFakeEvaluator()
	f.results["1"] = "1"
	f.gate = make(chan struct{})
	w, queries := startWorker(t, f, 0)

	ch := post(t, queries, "1")
	_, err := testutil.WaitForState(t.Context(), w.IsEvaluating,
		func(b bool) bool { return b }, testutil.ResultTimeout, testutil.PollInterval)
	require.NoError(t, err)

	close(f.gate)
	testutil.Receive(t, ch, testutil.ResultTimeout)
	assert.False(t, w.IsEvaluating())
}

func TestWorker_LatestPendingQueryWins(t *testing.T) {
	f := newFakeEvaluator()
	f.results["1"] = "1"
	f.results["2"] = "2"
	f.results["3"] = "3"
	f.gate = make(chan struct{})
	w, queries := startWorker(t, f, 0)

	first := post(t, queries, "1")
	_, err := testutil.WaitForState(t.Context(), w.IsEvaluating,
		func(b bool) bool { return b }, testutil.ResultTimeout, testutil.PollInterval)
	require.NoError(t, err)

	second := post(t, queries, "2")
	third := post(t, queries, "3")
	close(f.gate)

	assert.Equal(t, "1", testutil.Receive(t, first, testutil.ResultTimeout).Text, "in-flight query is not interrupted")
	assert.Equal(t, "3", testutil.Receive(t, third, testutil.ResultTimeout).Text)
	testutil.NotReceived(t, second, testutil.QuietPeriod)
}

func TestWorker_CloseIsIdempotentAndDropsPending(t *testing.T) {
	f := newFakeEvaluator()
	f.results["1"] = "1"
	queries := NewQueryChannel()
	w := NewWorker(f, queries, WorkerOptions{})
	w.Close()
	w.Close()

	ch := make(chan Result, 1)
	queries.Post(Query{Expression: "1", Callback: func(r Result) { ch <- r }})
	testutil.NotReceived(t, ch, testutil.QuietPeriod)
}

func TestWorker_DumpLocalVariables(t *testing.T) {
	f := newFakeEvaluator()
	f.results["a = 1"] = "1"
	f.locals = map[string]string{"a": "1"}
	var logs strings.Builder
	queries := NewQueryChannel()
	w := NewWorker(f, queries, WorkerOptions{
		Timeout:            time.Second,
		DumpLocalVariables: true,
		Logger:             newTestLogger(&logs),
	})
	defer w.Close()

	testutil.Receive(t, post(t, queries, "a = 1"), testutil.ResultTimeout)
	w.Close()
	assert.Contains(t, logs.String(), `msg="local variable" name=a value=1`)
}
