package calc

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/text/unicode/norm"
)

// maxInlineDepth bounds the expansion of symbolic and deferred variables.
const maxInlineDepth = 16

type variable struct {
	value Value
	// deferred holds the source of a ":=" definition, expanded on every use.
	deferred string
	local    bool
}

// ExprEngine implements Engine on top of expr-lang. All methods are safe for
// concurrent use; computations run outside the lock on a snapshot of the
// variable table.
type ExprEngine struct {
	logger *slog.Logger

	mu       sync.Mutex
	vars     map[string]*variable
	answers  map[string]Value
	aliases  map[string]string
	reserved map[string]struct{}
	funcs    []expr.Option
	cache    *ProgramCache
	messages []Message
	plotOpen bool
	// gen is bumped on every change to vars or answers.
	gen  uint64
	memo calculation
}

// calculation remembers the last Calculate so that CalculateAndPrint on the
// same input does not run it, or its assignment, a second time.
type calculation struct {
	valid  bool
	source string
	gen    uint64
	value  Value
}

var _ Engine = (*ExprEngine)(nil)

// NewExprEngine returns an engine with an empty variable table. Call the
// Bootstrapper methods to load constants, functions and definitions.
func NewExprEngine(logger *slog.Logger) *ExprEngine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &ExprEngine{
		logger:   logger,
		vars:     make(map[string]*variable),
		answers:  make(map[string]Value),
		aliases:  make(map[string]string),
		reserved: make(map[string]struct{}),
		cache:    NewProgramCache(DefaultProgramCacheSize),
	}
	for _, k := range keywords {
		e.reserved[k] = struct{}{}
	}
	return e
}

// LoadGlobalDefinitions registers the built-in constants and math functions.
func (e *ExprEngine) LoadGlobalDefinitions() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.funcs = e.funcs[:0]
	for _, f := range globalFunctions {
		e.funcs = append(e.funcs, f.option())
		e.reserved[f.name] = struct{}{}
	}
	for name, value := range globalConstants {
		e.defineConstantLocked(name, Float(value))
	}
	return nil
}

func (e *ExprEngine) defineConstantLocked(name string, v Value) {
	e.vars[name] = &variable{value: v}
	e.reserved[name] = struct{}{}
	e.changedLocked()
}

func (e *ExprEngine) changedLocked() {
	e.gen++
	e.cache.Clear()
}

var unlocalizer = strings.NewReplacer(
	"×", "*",
	"·", "*",
	"÷", "/",
	"−", "-",
	"–", "-",
)

var superscripts = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9', '⁻': '-',
}

// Unlocalize rewrites unicode operators and superscript exponents into
// expr-lang syntax, then applies NFKC normalisation.
func (e *ExprEngine) Unlocalize(expression string) string {
	s := unlocalizer.Replace(expression)
	var b strings.Builder
	inExponent := false
	for _, r := range s {
		if d, ok := superscripts[r]; ok {
			if !inExponent {
				b.WriteString("^")
				inExponent = true
			}
			b.WriteRune(d)
			continue
		}
		inExponent = false
		b.WriteRune(r)
	}
	return norm.NFKC.String(b.String())
}

// Calculate clears the message queue and evaluates expression, which may be
// an assignment, a plot request or a plain expression.
func (e *ExprEngine) Calculate(expression string, timeout time.Duration) (Value, bool) {
	source := e.Unlocalize(expression)

	e.mu.Lock()
	e.messages = e.messages[:0]
	e.memo = calculation{}
	e.mu.Unlock()

	v, ok := e.calculate(source, timeout)
	if !ok {
		return Value{}, false
	}

	e.mu.Lock()
	e.memo = calculation{valid: true, source: source, gen: e.gen, value: v}
	e.mu.Unlock()
	return v, true
}

func (e *ExprEngine) calculate(source string, timeout time.Duration) (Value, bool) {
	if strings.TrimSpace(source) == "" {
		return Value{}, true
	}
	if a, ok := MatchAssignment(source); ok {
		return e.assign(a, timeout)
	}
	if IsPlotQuery(source) {
		return e.plot(source, timeout)
	}
	v, ok, err := e.evaluate(source, "", timeout)
	if !ok {
		return Value{}, false
	}
	if err != nil {
		e.addMessage(SeverityError, errorText(err))
		return Value{}, true
	}
	if f, isNum := v.Float64(); isNum && (math.IsNaN(f) || math.IsInf(f, 0)) {
		e.addMessage(SeverityWarning, "result is not a finite number")
	}
	return v, true
}

func (e *ExprEngine) assign(a Assignment, timeout time.Duration) (Value, bool) {
	e.mu.Lock()
	err := e.checkAssignableLocked(a.Name)
	e.mu.Unlock()
	if err != nil {
		e.addMessage(SeverityError, err.Error())
		return Value{}, true
	}

	v, ok := e.calculate(a.Value, timeout)
	if !ok || v.IsZero() {
		return v, ok
	}
	if v.IsPlot() {
		e.addMessage(SeverityError, fmt.Sprintf("cannot assign a plot to %s", a.Name))
		return Value{}, true
	}

	e.mu.Lock()
	if a.Deferred {
		e.vars[a.Name] = &variable{deferred: a.Value, local: true}
	} else {
		e.vars[a.Name] = &variable{value: v, local: true}
	}
	e.changedLocked()
	e.mu.Unlock()
	e.logger.Debug("defined variable", "name", a.Name, "deferred", a.Deferred)
	return v, true
}

func (e *ExprEngine) checkAssignableLocked(name string) error {
	if _, ok := e.reserved[e.canonicalLocked(name)]; ok {
		return fmt.Errorf("cannot assign to %s: %w", name, ErrReservedName)
	}
	return nil
}

type runResult struct {
	value any
	err   error
}

// runBounded runs fn on its own goroutine and gives up after timeout. An
// abandoned fn keeps running to completion; it must only touch its own data.
func runBounded[T any](timeout time.Duration, fn func() T) (T, bool) {
	if timeout <= 0 {
		return fn(), true
	}
	done := make(chan T, 1)
	go func() { done <- fn() }()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case out := <-done:
		return out, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// evaluate computes a plain expression without touching the message queue.
// skip names an identifier left unresolved, used for the plot variable.
func (e *ExprEngine) evaluate(source, skip string, timeout time.Duration) (Value, bool, error) {
	e.mu.Lock()
	program, env, symbolic, err := e.prepareLocked(source, skip)
	e.mu.Unlock()
	if err != nil {
		return Value{}, true, err
	}
	if !symbolic.IsZero() {
		return symbolic, true, nil
	}
	out, ok := runBounded(timeout, func() runResult {
		v, err := expr.Run(program, env)
		return runResult{value: v, err: err}
	})
	if !ok {
		return Value{}, false, nil
	}
	if out.err != nil {
		return Value{}, true, out.err
	}
	return ScalarValue(out.value), true, nil
}

// prepareLocked parses source, expands symbolic variables and either returns
// a symbolic result or a compiled program with its environment snapshot.
func (e *ExprEngine) prepareLocked(source, skip string) (*vm.Program, map[string]any, Value, error) {
	tree, err := parser.Parse(source)
	if err != nil {
		return nil, nil, Value{}, err
	}
	symbolic, err := e.resolveLocked(&tree.Node, skip, 0)
	if err != nil {
		return nil, nil, Value{}, err
	}
	if symbolic {
		e.inlineLocked(&tree.Node, skip)
		return nil, nil, Symbolic(tree.Node.String()), nil
	}
	env := e.envLocked()
	key := tree.Node.String()
	if skip != "" {
		env[skip] = 0.0
		key = skip + "\x00" + key
	}
	program, err := e.compileLocked(key, tree.Node.String(), env)
	if err != nil {
		return nil, nil, Value{}, err
	}
	return program, env, Value{}, nil
}

func (e *ExprEngine) compileLocked(key, source string, env map[string]any) (*vm.Program, error) {
	if program, ok := e.cache.Get(key); ok {
		return program, nil
	}
	opts := append([]expr.Option{expr.Env(env)}, e.funcs...)
	program, err := expr.Compile(source, opts...)
	if err != nil {
		return nil, err
	}
	e.cache.Put(key, program)
	return program, nil
}

// envLocked snapshots every concrete variable and answer.
func (e *ExprEngine) envLocked() map[string]any {
	env := make(map[string]any, len(e.vars)+len(e.answers))
	for name, v := range e.vars {
		if v.deferred == "" && v.value.scalar != nil {
			env[name] = v.value.scalar
		}
	}
	for name, v := range e.answers {
		if v.scalar != nil {
			env[name] = v.scalar
		}
	}
	return env
}

func (e *ExprEngine) canonicalLocked(name string) string {
	if target, ok := e.aliases[name]; ok {
		return target
	}
	return name
}

// identifierVisitor calls fn for every identifier that is not a call target.
type identifierVisitor struct {
	callees map[ast.Node]struct{}
	fn      func(node *ast.Node, ident *ast.IdentifierNode)
}

func (v *identifierVisitor) Visit(node *ast.Node) {
	ident, ok := (*node).(*ast.IdentifierNode)
	if !ok {
		return
	}
	if _, callee := v.callees[ident]; callee {
		return
	}
	v.fn(node, ident)
}

type calleeCollector map[ast.Node]struct{}

func (c calleeCollector) Visit(node *ast.Node) {
	if call, ok := (*node).(*ast.CallNode); ok {
		c[call.Callee] = struct{}{}
	}
}

func walkIdentifiers(root *ast.Node, fn func(node *ast.Node, ident *ast.IdentifierNode)) {
	callees := calleeCollector{}
	ast.Walk(root, callees)
	ast.Walk(root, &identifierVisitor{callees: callees, fn: fn})
}

// resolveLocked canonicalises aliases and splices in the expression trees of
// symbolic and deferred variables. It reports whether the result still
// depends on an undefined answer slot.
func (e *ExprEngine) resolveLocked(root *ast.Node, skip string, depth int) (bool, error) {
	if depth > maxInlineDepth {
		return false, errors.New("variable definitions nest too deeply")
	}
	var symbolic bool
	var firstErr error
	splice := func(node *ast.Node, source string) {
		sub, err := parser.Parse(source)
		if err != nil {
			firstErr = cmpErr(firstErr, err)
			return
		}
		inner, err := e.resolveLocked(&sub.Node, skip, depth+1)
		if err != nil {
			firstErr = cmpErr(firstErr, err)
			return
		}
		symbolic = symbolic || inner
		*node = sub.Node
	}
	walkIdentifiers(root, func(node *ast.Node, ident *ast.IdentifierNode) {
		if ident.Value == skip {
			return
		}
		ident.Value = e.canonicalLocked(ident.Value)
		if ans, ok := e.answers[ident.Value]; ok {
			switch {
			case ans.IsZero():
				symbolic = true
			case ans.IsPlot():
				firstErr = cmpErr(firstErr, fmt.Errorf("%s holds a plot", ident.Value))
			case ans.IsSymbolic():
				splice(node, ans.symbolic)
			}
			return
		}
		if v, ok := e.vars[ident.Value]; ok {
			switch {
			case v.deferred != "":
				splice(node, v.deferred)
			case v.value.IsSymbolic():
				splice(node, v.value.symbolic)
			}
		}
	})
	return symbolic, firstErr
}

func cmpErr(first, next error) error {
	if first != nil {
		return first
	}
	return next
}

// inlineLocked replaces concrete variables with literals so a symbolic
// result stands on its own.
func (e *ExprEngine) inlineLocked(root *ast.Node, skip string) {
	walkIdentifiers(root, func(node *ast.Node, ident *ast.IdentifierNode) {
		if ident.Value == skip {
			return
		}
		var v Value
		if ans, ok := e.answers[ident.Value]; ok {
			v = ans
		} else if vr, ok := e.vars[ident.Value]; ok && vr.deferred == "" {
			v = vr.value
		}
		if lit, ok := literalNode(v); ok {
			*node = lit
		}
	})
}

func literalNode(v Value) (ast.Node, bool) {
	switch n := v.scalar.(type) {
	case int:
		if n < 0 {
			return &ast.UnaryNode{Operator: "-", Node: &ast.IntegerNode{Value: -n}}, true
		}
		return &ast.IntegerNode{Value: n}, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, false
		}
		if n < 0 {
			return &ast.UnaryNode{Operator: "-", Node: &ast.FloatNode{Value: -n}}, true
		}
		return &ast.FloatNode{Value: n}, true
	case bool:
		return &ast.BoolNode{Value: n}, true
	case string:
		return &ast.StringNode{Value: n}, true
	default:
		return nil, false
	}
}

func (e *ExprEngine) plot(source string, timeout time.Duration) (Value, bool) {
	tree, err := parser.Parse(source)
	if err != nil {
		e.addMessage(SeverityError, errorText(err))
		return Value{}, true
	}
	call, ok := tree.Node.(*ast.CallNode)
	if !ok || len(call.Arguments) == 0 || len(call.Arguments) == 2 || len(call.Arguments) > 3 {
		e.addMessage(SeverityError, "usage: plot(expression[, min, max])")
		return Value{}, true
	}

	lo, hi := plotDefaultMin, plotDefaultMax
	if len(call.Arguments) == 3 {
		var bounds [2]float64
		for i, arg := range call.Arguments[1:] {
			v, ok, err := e.evaluate(arg.String(), "", timeout)
			if !ok {
				return Value{}, false
			}
			f, isNum := v.Float64()
			if err != nil || !isNum {
				e.addMessage(SeverityError, "plot bounds must be numbers")
				return Value{}, true
			}
			bounds[i] = f
		}
		lo, hi = bounds[0], bounds[1]
	}
	if !(lo < hi) {
		e.addMessage(SeverityError, "plot bounds must satisfy min < max")
		return Value{}, true
	}

	body := call.Arguments[0].String()
	e.mu.Lock()
	program, env, symbolic, err := e.prepareLocked(body, PlotVariable)
	e.mu.Unlock()
	if err != nil {
		e.addMessage(SeverityError, errorText(err))
		return Value{}, true
	}
	if !symbolic.IsZero() {
		e.addMessage(SeverityError, "cannot plot an expression that references undefined answers")
		return Value{}, true
	}

	samples, ok := runBounded(timeout, func() []float64 {
		out := make([]float64, plotDefaultSamples)
		step := (hi - lo) / float64(plotDefaultSamples-1)
		for i := range out {
			env[PlotVariable] = lo + step*float64(i)
			r, err := expr.Run(program, env)
			if err != nil {
				out[i] = math.NaN()
				continue
			}
			if f, err := toFloat(r); err == nil {
				out[i] = f
			} else {
				out[i] = math.NaN()
			}
		}
		return out
	})
	if !ok {
		return Value{}, false
	}

	e.mu.Lock()
	e.plotOpen = true
	e.mu.Unlock()
	return Value{plot: &Plot{Expression: source, Min: lo, Max: hi, Samples: samples}}, true
}

// Print renders v for display.
func (e *ExprEngine) Print(v Value, timeout time.Duration) (string, bool) {
	return v.display(), true
}

// CalculateAndPrint evaluates and renders expression. When expression is the
// one just passed to Calculate and nothing changed since, the stored value
// and queued messages are reused.
func (e *ExprEngine) CalculateAndPrint(expression string, timeout time.Duration) (string, bool) {
	source := e.Unlocalize(expression)
	e.mu.Lock()
	memo := e.memo
	fresh := memo.valid && memo.source == source && memo.gen == e.gen
	e.mu.Unlock()
	if fresh {
		return memo.value.display(), true
	}
	v, ok := e.Calculate(source, timeout)
	if !ok {
		return "", false
	}
	return v.display(), true
}

func (e *ExprEngine) addMessage(severity Severity, text string) {
	e.mu.Lock()
	e.messages = append(e.messages, Message{Severity: severity, Text: text})
	e.mu.Unlock()
}

// DrainMessages returns and clears queued diagnostics.
func (e *ExprEngine) DrainMessages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.messages) == 0 {
		return nil
	}
	out := make([]Message, len(e.messages))
	copy(out, e.messages)
	e.messages = e.messages[:0]
	return out
}

func (e *ExprEngine) PlotOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plotOpen
}

func (e *ExprEngine) ClosePlot() {
	e.mu.Lock()
	e.plotOpen = false
	e.mu.Unlock()
}

// IsAssignment reports whether expression defines a variable. Text naming a
// constant, function or answer slot on the left is not an assignment, since
// those names cannot be assigned.
func (e *ExprEngine) IsAssignment(expression string) bool {
	a, ok := MatchAssignment(e.Unlocalize(expression))
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkAssignableLocked(a.Name) == nil
}

// DefineVariable evaluates value and stores it under name as a local variable.
func (e *ExprEngine) DefineVariable(name, value string) error {
	e.mu.Lock()
	err := e.checkAssignableLocked(name)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if a, ok := MatchAssignment(name + "=" + value); !ok || a.Name != name {
		return fmt.Errorf("invalid variable name %q", name)
	}
	v, _, err := e.evaluate(e.Unlocalize(value), "", 0)
	if err != nil {
		return fmt.Errorf("failed to evaluate %s: %s", name, errorText(err))
	}
	e.mu.Lock()
	e.vars[name] = &variable{value: v, local: true}
	e.changedLocked()
	e.mu.Unlock()
	return nil
}

// DeleteVariable removes a local variable.
func (e *ExprEngine) DeleteVariable(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[name]
	if !ok || !v.local {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	delete(e.vars, name)
	e.changedLocked()
	return nil
}

// LocalVariables renders every local variable.
func (e *ExprEngine) LocalVariables() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string)
	for name, v := range e.vars {
		if !v.local {
			continue
		}
		if v.deferred != "" {
			out[name] = ":= " + v.deferred
		} else {
			out[name] = v.value.display()
		}
	}
	return out
}

// VariableNames lists every defined variable and answer slot, sorted.
func (e *ExprEngine) VariableNames() []string {
	e.mu.Lock()
	names := make([]string, 0, len(e.vars)+len(e.answers)+len(e.aliases))
	for name := range e.vars {
		names = append(names, name)
	}
	for name := range e.answers {
		names = append(names, name)
	}
	for alias := range e.aliases {
		names = append(names, alias)
	}
	e.mu.Unlock()
	sort.Strings(names)
	return names
}

// RegisterAnswer creates an undefined answer slot reachable by name and aliases.
func (e *ExprEngine) RegisterAnswer(name string, aliases ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range append([]string{name}, aliases...) {
		if _, taken := e.vars[n]; taken {
			return fmt.Errorf("cannot register answer %s: %w", n, ErrReservedName)
		}
	}
	e.answers[name] = Value{}
	e.reserved[name] = struct{}{}
	for _, alias := range aliases {
		e.aliases[alias] = name
		e.reserved[alias] = struct{}{}
	}
	e.changedLocked()
	return nil
}

func (e *ExprEngine) Answer(name string) Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.answers[e.canonicalLocked(name)]
}

func (e *ExprEngine) SetAnswer(name string, v Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	name = e.canonicalLocked(name)
	if _, ok := e.answers[name]; !ok {
		e.logger.Warn("ignoring unregistered answer slot", "name", name)
		return
	}
	e.answers[name] = v
	e.changedLocked()
}

func (e *ExprEngine) Reference(name string) Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Symbolic(e.canonicalLocked(name))
}

// Replace substitutes with for every reference to name inside a symbolic v.
// Concrete values are returned as is. Replacing a reference by an undefined
// value leaves the whole value undefined, so a slot never refers to itself.
func (e *ExprEngine) Replace(v Value, name string, with Value) Value {
	if !v.IsSymbolic() || with.IsPlot() {
		return v
	}
	tree, err := parser.Parse(v.symbolic)
	if err != nil {
		return v
	}
	var repl ast.Node
	if with.IsZero() {
		if e.references(&tree.Node, name) {
			return Value{}
		}
		return v
	} else if with.IsSymbolic() {
		sub, err := parser.Parse(with.symbolic)
		if err != nil {
			return v
		}
		repl = sub.Node
	} else if lit, ok := literalNode(with); ok {
		repl = lit
	} else {
		return v
	}

	e.mu.Lock()
	target := e.canonicalLocked(name)
	aliases := maps.Clone(e.aliases)
	e.mu.Unlock()

	walkIdentifiers(&tree.Node, func(node *ast.Node, ident *ast.IdentifierNode) {
		id := ident.Value
		if t, ok := aliases[id]; ok {
			id = t
		}
		if id == target {
			*node = repl
		}
	})
	return Symbolic(tree.Node.String())
}

// references reports whether root mentions name or one of its aliases.
func (e *ExprEngine) references(root *ast.Node, name string) bool {
	e.mu.Lock()
	target := e.canonicalLocked(name)
	aliases := maps.Clone(e.aliases)
	e.mu.Unlock()

	var found bool
	walkIdentifiers(root, func(_ *ast.Node, ident *ast.IdentifierNode) {
		id := ident.Value
		if t, ok := aliases[id]; ok {
			id = t
		}
		found = found || id == target
	})
	return found
}

// errorText reduces an expr-lang error to its first line.
func errorText(err error) string {
	var fe *file.Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
