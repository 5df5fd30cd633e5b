package calc

import (
	"regexp"
	"strings"
	"unicode"
)

// assignmentPattern matches "name = value" and "name := value" but not
// comparisons such as "a == b" or "a <= b".
var assignmentPattern = regexp.MustCompile(`^\s*([\p{L}_][\p{L}\p{N}_]*)\s*(:=|=)\s*([^=\s].*)$`)

// Assignment is a parsed variable definition.
type Assignment struct {
	Name  string
	Value string
	// Deferred is true for ":=", which stores the expression rather than its value.
	Deferred bool
}

// MatchAssignment recognises an assignment in an expression as typed.
func MatchAssignment(expression string) (Assignment, bool) {
	m := assignmentPattern.FindStringSubmatch(expression)
	if m == nil {
		return Assignment{}, false
	}
	return Assignment{
		Name:     m[1],
		Value:    strings.TrimSpace(m[3]),
		Deferred: m[2] == ":=",
	}, true
}

// ParseAssignment splits a stored assignment line into name and value. All
// whitespace is removed first, then the line is split at the first ":=",
// falling back to the first "=".
func ParseAssignment(line string) (name, value string, ok bool) {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line)
	for _, sep := range [...]string{":=", "="} {
		if before, after, found := strings.Cut(stripped, sep); found {
			return before, after, true
		}
	}
	return "", "", false
}
