// Package parser is relq's recursive-descent front end: it consumes
// the lang/lexer token stream and produces ast.Stmt/ast.Expr nodes
// (spec.md §6: "the core does not specify the grammar; it specifies
// only the AST node shapes"). Parser-struct shape (tokens/pos,
// current/advance/match/expect/error helpers, one parseX method per
// production) follows the teacher's engine/parser/parser.go and
// utils.go idiom, rewritten against relq's own lexer.Token and ast
// packages instead of the teacher's mapping-table-driven OQL grammar.
package parser

import (
	"fmt"

	"github.com/relq-lang/relq/ast"
	"github.com/relq-lang/relq/lang/lexer"
	"github.com/relq-lang/relq/rqerr"
)

// Parser holds the token stream and current read position.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes src and parses it as a sequence of top-level
// statements, the shape `lang/parser`'s external-interface contract in
// SPEC_FULL.md §2 requires.
func Parse(src string) ([]ast.Stmt, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		if pe, ok := err.(*lexer.ParseError); ok {
			span := rqerr.Span{StartLine: pe.Line, StartColumn: pe.Column, EndLine: pe.Line, EndColumn: pe.Column}
			return nil, rqerr.NewSyntaxError(span, "%s", pe.Message)
		}
		return nil, err
	}
	p := New(toks)
	return p.ParseProgram()
}

// ParseProgram parses every top-level statement until EOF.
func (p *Parser) ParseProgram() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for !p.isAtEnd() {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// ---- token stream helpers ----

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) lexer.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.tokens[idx]
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) isAtEnd() bool { return p.current().Kind == lexer.EOF }

// is reports whether the current token is kind with the given text.
func (p *Parser) is(kind lexer.Kind, text string) bool {
	t := p.current()
	return t.Kind == kind && t.Text == text
}

// match consumes and returns true if the current token is kind/text,
// otherwise leaves the position untouched.
func (p *Parser) match(kind lexer.Kind, text string) bool {
	if p.is(kind, text) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(kind lexer.Kind, text string) (lexer.Token, error) {
	if !p.is(kind, text) {
		return lexer.Token{}, p.errorf("expected %q, got %s", text, p.describe(p.current()))
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent() (string, error) {
	if p.current().Kind != lexer.Ident {
		return "", p.errorf("expected identifier, got %s", p.describe(p.current()))
	}
	return p.advance().Text, nil
}

func (p *Parser) describe(t lexer.Token) string {
	if t.Kind == lexer.EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Text)
}

func (p *Parser) span() rqerr.Span {
	t := p.current()
	return rqerr.Span{StartPos: t.Pos, StartLine: t.Line, StartColumn: t.Column, EndPos: t.EndPos, EndLine: t.EndLine, EndColumn: t.EndColumn}
}

func (p *Parser) errorf(format string, args ...any) error {
	return rqerr.NewSyntaxError(p.span(), format, args...)
}
