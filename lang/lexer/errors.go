package lexer

import (
	"fmt"
	"sort"
)

// ParseError is raised for malformed tokens (unterminated string,
// invalid escape, unrecognized character) — mirrors the teacher's
// engine/lexer/errors.go ParseError shape.
type ParseError struct {
	Message      string
	Pos          int
	Line, Column int
	Suggestion   string
}

func (e *ParseError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("line %d, column %d: %s (did you mean %q?)", e.Line, e.Column, e.Message, e.Suggestion)
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func newParseError(t *Tokenizer, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Pos: t.pos, Line: t.line, Column: t.column}
}

func newUnknownTokenError(t *Tokenizer, ch rune) *ParseError {
	err := newParseError(t, "unexpected character %q", ch)
	err.Suggestion = SuggestSimilar(string(ch))
	return err
}

// SuggestSimilar finds the closest known keyword to word by edit
// distance, for "did you mean" diagnostics — grounded on the teacher's
// errors.go SuggestSimilar, adapted to relq's own Keywords set instead
// of the teacher's mapping.OperationGroups/QueryClauses tables.
func SuggestSimilar(word string) string {
	if word == "" {
		return ""
	}
	candidates := make([]string, 0, len(Keywords))
	for kw := range Keywords {
		candidates = append(candidates, kw)
	}
	sort.Strings(candidates)

	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein(word, c)
		if bestDist == -1 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist >= 0 && bestDist <= 2 {
		return best
	}
	return ""
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
