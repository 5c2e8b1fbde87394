// Package lexer tokenizes relq source text into a flat token stream for
// lang/parser. Grounded on the teacher's engine/lexer/lexer.go
// Tokenizer state machine (position/line/column tracking, multi-word
// keyword lookahead, dollar-quoted strings, escape handling, operator
// scanning) and engine/lexer/errors.go's ParseError/SuggestSimilar
// diagnostics, adapted off the teacher's mapping-table-driven OQL
// keyword set onto relq's own preql-like vocabulary (table/func/if/
// for/while/try/catch/new and the bracket/brace relational operators
// of spec.md §3's AST node list), since relq's mapping package carried
// no relevant vocabulary and is not kept.
package lexer

import "fmt"

// Kind classifies a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Keyword
	Int
	Float
	String
	Operator
	Punct
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "identifier"
	case Keyword:
		return "keyword"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Operator:
		return "operator"
	case Punct:
		return "punctuation"
	}
	return "?"
}

// Token is one lexical unit, with its source position for diagnostics
// and for the ast.Node spans the parser attaches.
type Token struct {
	Kind                   Kind
	Text                   string
	Value                  any // parsed literal value for Int/Float/String
	Pos                    int
	Line, Column           int
	EndPos                 int
	EndLine, EndColumn     int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
}

// Keywords is relq's reserved-word set, matched case-sensitively —
// mirrors the teacher's classifyWord but against relq's own language
// (table/func defs, control flow, try/catch, new/order/desc).
var Keywords = map[string]bool{
	"table": true, "struct": true, "func": true, "new": true,
	"if": true, "else": true, "for": true, "in": true, "while": true,
	"try": true, "catch": true, "throw": true, "return": true,
	"print": true, "assert": true, "import": true, "as": true,
	"and": true, "or": true, "not": true, "null": true,
	"true": true, "false": true, "order": true, "desc": true,
	"one": true, "like": true, "update": true, "delete": true,
}

// MultiWordKeywords lists two-token keyword phrases scanned as a single
// Keyword token when both words appear back to back, mirroring the
// teacher's tryMultiWord lookahead (its "ORDER BY" case here becomes
// relq's "not in").
var MultiWordKeywords = map[[2]string]string{
	{"not", "in"}: "not in",
}
