package repl

import (
	"context"
	"fmt"
	"io"

	"github.com/joeycumines/go-prompt"
	istrings "github.com/joeycumines/go-prompt/strings"
	"github.com/joeycumines/rofi-calc/internal/session"
)

// Options configures the REPL.
type Options struct {
	Prompt string
}

// Run reads lines from the terminal until exit, quit or end of input, then
// saves the history.
func Run(ctx context.Context, sess *session.Session, opts Options, out io.Writer) error {
	sh := NewShell(sess, out)

	completer := func(d prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
		before := d.TextBeforeCursor()
		word, start := currentWord(before)
		end := start + len([]rune(word))
		return sh.Suggestions(word), istrings.RuneNumber(start), istrings.RuneNumber(end)
	}

	p := prompt.New(
		func(line string) { sh.Execute(ctx, line) },
		prompt.WithPrefix(opts.Prompt),
		prompt.WithCompleter(completer),
		prompt.WithHistory(sh.Expressions()),
		prompt.WithExitChecker(func(in string, breakline bool) bool {
			return breakline && isExit(in)
		}),
		prompt.WithPrefixTextColor(prompt.Cyan),
		prompt.WithSuggestionBGColor(prompt.DarkGray),
		prompt.WithSuggestionTextColor(prompt.White),
		prompt.WithSelectedSuggestionBGColor(prompt.Cyan),
		prompt.WithSelectedSuggestionTextColor(prompt.Black),
		prompt.WithDescriptionBGColor(prompt.DarkGray),
		prompt.WithDescriptionTextColor(prompt.LightGray),
	)
	p.Run()

	if err := sess.SaveHistory(); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
