// Package session runs calculator evaluations on a dedicated worker and
// keeps the history and answer chain that front ends commit results into.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/joeycumines/rofi-calc/internal/calc"
	"github.com/joeycumines/rofi-calc/internal/config"
	"github.com/joeycumines/rofi-calc/internal/history"
)

var (
	// ErrClosed is returned by operations on a closed Session.
	ErrClosed = errors.New("session closed")
	// ErrDuplicateQuery is returned by Evaluate when the expression equals
	// the previously posted one.
	ErrDuplicateQuery = errors.New("duplicate query")
)

// Session is the surface front ends use. Evaluate and the status methods may
// be called from any goroutine; history and answer operations belong to the
// goroutine that owns the session.
type Session struct {
	engine    calc.Engine
	opts      config.Options
	logger    *slog.Logger
	threshold calc.Severity

	queries *QueryChannel
	worker  *Worker
	history *history.Store
	answers *AnswerChain

	warnings []error

	closeMu sync.RWMutex
	closed  bool
}

// New bootstraps engine, registers the answer chain and starts the worker.
// Definition loading failures are recorded as warnings and logged, and the
// session runs without them.
func New(engine calc.Engine, opts config.Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		engine:  engine,
		opts:    opts,
		logger:  logger,
		queries: NewQueryChannel(),
	}

	threshold, err := calc.ParseSeverity(opts.MessageSeverity)
	if err != nil {
		s.warn("invalid message severity, using warning", err)
	}
	s.threshold = threshold

	s.bootstrap()

	answers, err := NewAnswerChain(engine)
	if err != nil {
		return nil, fmt.Errorf("failed to set up answers: %w", err)
	}
	s.answers = answers

	s.history = history.NewStore(engine, history.Options{
		Capacity:      opts.HistoryLength,
		LoadVariables: !opts.NoLoadHistoryVariables,
		OnlyResults:   opts.HistoryOnlySaveResults,
		Logger:        logger.With("component", "history"),
	})

	s.worker = NewWorker(engine, s.queries, WorkerOptions{
		Timeout:            opts.EvalTimeout(),
		DumpLocalVariables: opts.DumpLocalVariables,
		Logger:             logger.With("component", "worker"),
	})
	return s, nil
}

func (s *Session) bootstrap() {
	dir, err := s.opts.DefinitionsPath()
	if err != nil {
		s.warn("failed to resolve definitions directory", err)
	}
	if dir != "" {
		if err := s.engine.LoadExchangeRates(dir); err != nil {
			s.warn("failed to load exchange rates", err)
		}
	}
	if err := s.engine.LoadGlobalDefinitions(); err != nil {
		s.warn("failed to load global definitions", err)
	}
	if dir != "" {
		if err := s.engine.LoadLocalDefinitions(dir); err != nil {
			s.warn("failed to load local definitions", err)
		}
	}
}

func (s *Session) warn(msg string, err error) {
	s.logger.Warn(msg, "error", err)
	s.warnings = append(s.warnings, fmt.Errorf("%s: %w", msg, err))
}

// Warnings returns the non-fatal problems met while starting up.
func (s *Session) Warnings() []error { return s.warnings }

func (s *Session) Options() config.Options { return s.opts }

// Threshold is the lowest diagnostic severity that should be shown.
func (s *Session) Threshold() calc.Severity { return s.threshold }

// Evaluate posts expression to the worker and returns immediately. cb is
// invoked on the worker goroutine. A repeat of the last posted expression
// is dropped with ErrDuplicateQuery.
func (s *Session) Evaluate(expression string, cb Callback) (uuid.UUID, error) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return uuid.Nil, ErrClosed
	}
	q := Query{ID: uuid.New(), Expression: expression, Callback: cb}
	posted, replaced := s.queries.Post(q)
	if !posted {
		s.logger.Debug("skipping duplicate query", "query", expression)
		return uuid.Nil, ErrDuplicateQuery
	}
	if replaced {
		s.logger.Debug("superseded pending query", "query", expression, "id", q.ID)
	}
	return q.ID, nil
}

// EvaluateSync evaluates expression and waits for its result. The duplicate
// guard is reset first, so the same expression may be evaluated repeatedly.
func (s *Session) EvaluateSync(ctx context.Context, expression string) (Result, error) {
	s.queries.Reset()
	ch := make(chan Result, 1)
	id, err := s.Evaluate(expression, func(r Result) { ch <- r })
	if err != nil {
		return Result{}, err
	}
	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		return Result{}, fmt.Errorf("waiting for query %s: %w", id, ctx.Err())
	}
}

// ClearLastExpression resets the duplicate guard, e.g. after the filter
// text was cleared.
func (s *Session) ClearLastExpression() { s.queries.Reset() }

// Commit records r as the latest answer and, unless history is disabled,
// appends it to the history. Results with errors, timeouts and plots, and
// any result while a plot is open, are not committed.
func (s *Session) Commit(r Result, persistent bool) bool {
	if r.HasError() || r.TimedOut || r.Plot || r.Text == "" || s.IsPlotOpen() {
		s.logger.Debug("not committing result", "query", r.Expression)
		return false
	}
	if !s.opts.NoHistory {
		s.AppendToHistory(r.Expression, r.Text, persistent)
	}
	s.UpdateAnswers(r.Value)
	return true
}

// AppendToHistory adds an entry to the history; see history.Store.Append.
func (s *Session) AppendToHistory(expression, result string, persistent bool) bool {
	return s.history.Append(expression, result, persistent)
}

func (s *Session) persistHistory() bool {
	return !s.opts.NoHistory && !s.opts.NoPersistHistory
}

// LoadHistory replaces the history with the contents of the history file.
// It does nothing when history persistence is disabled.
func (s *Session) LoadHistory() error {
	if !s.persistHistory() {
		return nil
	}
	path, err := s.opts.HistoryPath()
	if err != nil {
		return fmt.Errorf("failed to resolve history file: %w", err)
	}
	return s.history.Load(path)
}

// SaveHistory writes the persistent history entries to the history file.
// It does nothing when history persistence is disabled.
func (s *Session) SaveHistory() error {
	if !s.persistHistory() {
		return nil
	}
	path, err := s.opts.HistoryPath()
	if err != nil {
		return fmt.Errorf("failed to resolve history file: %w", err)
	}
	return s.history.Save(path)
}

// EraseHistory removes the history entry at index i, oldest first.
func (s *Session) EraseHistory(i int) error { return s.history.Erase(i) }

// History returns the history entries, oldest first.
func (s *Session) History() []history.Entry { return s.history.Entries() }

// UpdateAnswers advances the answer chain with v. Undefined values and plots
// leave the chain alone.
func (s *Session) UpdateAnswers(v calc.Value) {
	if v.IsZero() || v.IsPlot() {
		return
	}
	s.answers.Advance(v)
}

// LastResult is the raw value of the most recent evaluation.
func (s *Session) LastResult() calc.Value { return s.worker.LastResult() }

// Answers returns the answer chain.
func (s *Session) Answers() *AnswerChain { return s.answers }

func (s *Session) IsPlotOpen() bool             { return s.worker.IsPlotOpen() }
func (s *Session) IsEvaluationInProgress() bool { return s.worker.IsEvaluating() }

// Close stops the worker, waiting for an evaluation in progress. It does not
// save the history.
func (s *Session) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()
	s.worker.Close()
	return nil
}
