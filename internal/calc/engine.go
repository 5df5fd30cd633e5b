// Package calc defines the calculator engine abstraction used by the
// evaluation worker and session, together with an implementation backed by
// github.com/expr-lang/expr.
package calc

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrReservedName is returned when assigning to a constant, function,
	// answer slot or keyword.
	ErrReservedName = errors.New("reserved name")
	// ErrUnknownVariable is returned when deleting a variable that does not exist.
	ErrUnknownVariable = errors.New("unknown variable")
)

// Severity classifies an engine diagnostic.
type Severity int

const (
	SeverityInformation Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInformation:
		return "information"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity accepts the config spellings information/info, warning/warn
// and error, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "information", "info":
		return SeverityInformation, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityWarning, fmt.Errorf("invalid severity %q", s)
	}
}

// Message is a single diagnostic produced while evaluating.
type Message struct {
	Severity Severity
	Text     string
}

// Messagef builds a Message from a format string.
func Messagef(severity Severity, format string, args ...any) Message {
	return Message{Severity: severity, Text: fmt.Sprintf(format, args...)}
}

func (m Message) String() string { return m.Severity.String() + ": " + m.Text }

// HasError reports whether any message is an error.
func HasError(msgs []Message) bool {
	for _, m := range msgs {
		if m.Severity >= SeverityError {
			return true
		}
	}
	return false
}

// FilterMessages returns the messages at or above threshold.
func FilterMessages(msgs []Message, threshold Severity) []Message {
	var out []Message
	for _, m := range msgs {
		if m.Severity >= threshold {
			out = append(out, m)
		}
	}
	return out
}

// Evaluator is the part of the engine the evaluation worker drives.
type Evaluator interface {
	// Unlocalize normalises typed input (unicode operators, superscripts).
	Unlocalize(expression string) string
	// Calculate evaluates expression and returns its raw value. ok is false
	// when the timeout elapsed first; timeout <= 0 means no limit.
	Calculate(expression string, timeout time.Duration) (v Value, ok bool)
	// Print renders a value previously returned by Calculate.
	Print(v Value, timeout time.Duration) (string, bool)
	// CalculateAndPrint evaluates and renders in one step.
	CalculateAndPrint(expression string, timeout time.Duration) (string, bool)
	// DrainMessages returns and clears queued diagnostics.
	DrainMessages() []Message
	PlotOpen() bool
	ClosePlot()
}

// Variables is the engine's variable table as seen by the history store.
type Variables interface {
	// IsAssignment reports whether expression defines a variable. Reserved
	// names on the left never make an assignment.
	IsAssignment(expression string) bool
	// DefineVariable registers name with the given value expression.
	DefineVariable(name, value string) error
	// DeleteVariable removes a user-defined variable.
	DeleteVariable(name string) error
	// LocalVariables returns user-defined variables rendered as text.
	LocalVariables() map[string]string
}

// AnswerSlots exposes the named answer variables used for answer chaining.
type AnswerSlots interface {
	RegisterAnswer(name string, aliases ...string) error
	Answer(name string) Value
	SetAnswer(name string, v Value)
	// Reference returns a value that refers to the named slot symbolically.
	Reference(name string) Value
	// Replace substitutes every reference to name inside v with with.
	Replace(v Value, name string, with Value) Value
}

// Bootstrapper loads the engine's startup definitions.
type Bootstrapper interface {
	LoadGlobalDefinitions() error
	LoadLocalDefinitions(dir string) error
	LoadExchangeRates(dir string) error
}

// Engine is the full capability set the session needs.
type Engine interface {
	Evaluator
	Variables
	AnswerSlots
	Bootstrapper
}
