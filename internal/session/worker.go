package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/rofi-calc/internal/calc"
)

// Callback receives the result of a query. It runs on the worker goroutine;
// implementations hand the result over to their own goroutine.
type Callback func(Result)

// Query is one expression handed to the worker.
type Query struct {
	ID         uuid.UUID
	Expression string
	Callback   Callback
}

// Result is what the worker reports for a query.
type Result struct {
	// ID and Expression identify the query that produced the result, which
	// is not necessarily the latest one posted.
	ID         uuid.UUID
	Expression string
	// Text is the rendered result, empty on timeout.
	Text string
	// Value is the raw value the answer chain advances with, zero on
	// timeout.
	Value    calc.Value
	Messages []calc.Message
	TimedOut bool
	Plot     bool
}

// HasError reports whether the result carries an ERROR diagnostic.
func (r Result) HasError() bool { return calc.HasError(r.Messages) }

type outcomeKind int

const (
	outcomeEvaluated outcomeKind = iota
	outcomeTimedOut
	outcomeRejected
)

// outcome is the result of one runOnce step.
type outcome struct {
	kind     outcomeKind
	text     string
	value    calc.Value
	plot     bool
	messages []calc.Message
}

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	// Timeout bounds each evaluation; each of the two phases gets half.
	// Zero disables the bound.
	Timeout time.Duration
	// DumpLocalVariables logs the engine's local variables after each query.
	DumpLocalVariables bool
	Logger             *slog.Logger
}

// localVariableDumper is implemented by engines that can list their
// user-defined variables.
type localVariableDumper interface {
	LocalVariables() map[string]string
}

// Worker owns an engine and evaluates queries from a QueryChannel on a
// single goroutine, one at a time.
type Worker struct {
	engine  calc.Evaluator
	queries <-chan Query
	opts    WorkerOptions
	logger  *slog.Logger

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	evaluating atomic.Bool
	plotOpen   atomic.Bool

	mu         sync.Mutex
	lastResult calc.Value
}

// NewWorker starts a worker reading from queries.
func NewWorker(engine calc.Evaluator, queries *QueryChannel, opts WorkerOptions) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		engine:  engine,
		queries: queries.C(),
		opts:    opts,
		logger:  logger,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case q := <-w.queries:
			// Shutdown wins over a query that arrived at the same time.
			select {
			case <-w.quit:
				return
			default:
			}
			w.handle(q)
		}
	}
}

func (w *Worker) handle(q Query) {
	w.logger.Debug("evaluating query", "query", q.Expression, "id", q.ID)
	w.evaluating.Store(true)
	out := w.runOnce(q)
	w.evaluating.Store(false)

	if out.kind == outcomeRejected && q.Callback == nil {
		for _, m := range out.messages {
			w.logger.Warn("query dropped", "id", q.ID, "reason", m.Text)
		}
		return
	}
	q.Callback(Result{
		ID:         q.ID,
		Expression: q.Expression,
		Text:       out.text,
		Value:      out.value,
		Messages:   out.messages,
		TimedOut:   out.kind == outcomeTimedOut,
		Plot:       out.plot,
	})
}

// runOnce evaluates q in two phases. Phase A computes the raw value kept for
// answer chaining; phase B renders it.
func (w *Worker) runOnce(q Query) outcome {
	if q.Callback == nil {
		return outcome{
			kind:     outcomeRejected,
			messages: []calc.Message{calc.Messagef(calc.SeverityError, "Missing callback")},
		}
	}

	expression := w.engine.Unlocalize(q.Expression)
	isPlot := calc.IsPlotQuery(expression)
	half := w.opts.Timeout / 2

	value, ok := w.engine.Calculate(expression, half)
	if !ok {
		return w.timedOut(half)
	}

	var text string
	if isPlot {
		text, ok = w.engine.Print(value, half)
	} else {
		text, ok = w.engine.CalculateAndPrint(expression, half)
	}
	messages := w.engine.DrainMessages()
	for _, m := range messages {
		w.logger.Info("engine message", "severity", m.Severity.String(), "message", m.Text, "id", q.ID)
	}
	if !ok {
		out := w.timedOut(half)
		out.messages = append(messages, out.messages...)
		return out
	}

	plotOpen := w.engine.PlotOpen()
	if plotOpen && !isPlot {
		w.engine.ClosePlot()
		plotOpen = false
	}
	w.plotOpen.Store(plotOpen)

	w.mu.Lock()
	w.lastResult = value
	w.mu.Unlock()

	if w.opts.DumpLocalVariables {
		w.dumpLocalVariables()
	}
	return outcome{kind: outcomeEvaluated, text: text, value: value, plot: isPlot, messages: messages}
}

func (w *Worker) timedOut(half time.Duration) outcome {
	w.logger.Info("evaluation timed out", "timeout", half)
	return outcome{
		kind:     outcomeTimedOut,
		messages: []calc.Message{calc.Messagef(calc.SeverityError, "Evaluation timed out after %s", formatTimeout(half))},
	}
}

// formatTimeout renders d in whole milliseconds, rounded up, or in
// microseconds below one millisecond.
func formatTimeout(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%d µs", (d+time.Microsecond-1)/time.Microsecond)
	}
	return fmt.Sprintf("%d ms", (d+time.Millisecond-1)/time.Millisecond)
}

func (w *Worker) dumpLocalVariables() {
	d, ok := w.engine.(localVariableDumper)
	if !ok {
		return
	}
	vars := d.LocalVariables()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w.logger.Info("local variable", "name", name, "value", vars[name])
	}
}

// LastResult is the raw value of the most recent completed evaluation.
func (w *Worker) LastResult() calc.Value {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastResult
}

func (w *Worker) IsEvaluating() bool { return w.evaluating.Load() }
func (w *Worker) IsPlotOpen() bool   { return w.plotOpen.Load() }

// Close stops the worker and waits for it to exit. An evaluation in progress
// finishes first; queries still pending get no callback.
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.quit) })
	<-w.done
}
