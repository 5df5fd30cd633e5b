// Package repl is a line-mode front end: each line is evaluated to
// completion and printed before the next prompt.
package repl

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joeycumines/go-prompt"
	"github.com/joeycumines/rofi-calc/internal/calc"
	"github.com/joeycumines/rofi-calc/internal/session"
)

// Shell evaluates lines against a session and writes the outcome to out.
type Shell struct {
	sess *session.Session
	out  io.Writer
}

func NewShell(sess *session.Session, out io.Writer) *Shell {
	return &Shell{sess: sess, out: out}
}

// isExit reports whether line asks to leave the shell.
func isExit(line string) bool {
	switch strings.TrimSpace(line) {
	case "exit", "quit":
		return true
	}
	return false
}

// Execute evaluates one line. Successful results are committed as temporary
// history entries, which also advances the answers.
func (s *Shell) Execute(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" || isExit(line) {
		return
	}
	r, err := s.sess.EvaluateSync(ctx, line)
	if err != nil {
		_, _ = fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	for _, m := range calc.FilterMessages(r.Messages, s.sess.Threshold()) {
		_, _ = fmt.Fprintln(s.out, m.String())
	}
	if r.HasError() || r.Text == "" {
		return
	}
	_, _ = fmt.Fprintln(s.out, r.Text)
	s.sess.Commit(r, false)
}

// currentWord returns the identifier being typed at the end of before and
// its start offset in runes.
func currentWord(before string) (string, int) {
	i := len(before)
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(before[:i])
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.') {
			break
		}
		i -= size
	}
	return before[i:], utf8.RuneCountInString(before[:i])
}

// Suggestions lists completions for word: answer names with their current
// values, then distinct history results.
func (s *Shell) Suggestions(word string) []prompt.Suggest {
	if word == "" {
		return nil
	}
	var out []prompt.Suggest
	answers := s.sess.Answers()
	values := answers.Values()
	for i, name := range answers.Names() {
		names := []string{name}
		if i == 0 {
			names = append(names, "ans", "answer")
		}
		for _, n := range names {
			if strings.HasPrefix(n, word) && n != word {
				out = append(out, prompt.Suggest{Text: n, Description: values[i].String()})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Text < out[j].Text })

	seen := make(map[string]struct{})
	entries := s.sess.History()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.IsAssignment || e.Result == word || !strings.HasPrefix(e.Result, word) {
			continue
		}
		if _, dup := seen[e.Result]; dup {
			continue
		}
		seen[e.Result] = struct{}{}
		out = append(out, prompt.Suggest{Text: e.Result, Description: e.Expression})
	}
	return out
}

// Expressions returns the stored history expressions, oldest first, to seed
// the prompt's own line history.
func (s *Shell) Expressions() []string {
	var out []string
	for _, e := range s.sess.History() {
		if e.Expression != "" {
			out = append(out, e.Expression)
		}
	}
	return out
}
