package parser

import (
	"github.com/relq-lang/relq/ast"
	"github.com/relq-lang/relq/lang/lexer"
	"github.com/relq-lang/relq/rqerr"
)

// parseExpr is the entry point for expression parsing, climbing
// precedence from "or" (loosest) down to postfix/primary (tightest),
// matching spec.md §9's tagged-union operator table.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	span := p.span()
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if !p.is(lexer.Keyword, "or") {
		return left, nil
	}
	args := []ast.Expr{left}
	for p.match(lexer.Keyword, "or") {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	return &ast.Or{Args: args, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	span := p.span()
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if !p.is(lexer.Keyword, "and") {
		return left, nil
	}
	args := []ast.Expr{left}
	for p.match(lexer.Keyword, "and") {
		next, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	return &ast.And{Args: args, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.match(lexer.Keyword, "not") {
		span := p.span()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Expr: inner, Base: ast.NewBase(span)}, nil
	}
	return p.parseComparison()
}

var compareOps = map[string]ast.BinOpKind{
	"==": ast.OpEq, "!=": ast.OpNe, "<": ast.OpLt, "<=": ast.OpLe,
	">": ast.OpGt, ">=": ast.OpGe,
}

// parseComparison handles `in`/`not in`/`like` (which bind like a
// comparison) plus chained relational operators collapsed into a
// single ast.Compare when more than one link is present, matching
// pql_ast.py's Compare(op, args).
func (p *Parser) parseComparison() (ast.Expr, error) {
	span := p.span()
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}

	if p.is(lexer.Keyword, "in") || p.is(lexer.Keyword, "not in") {
		negate := p.current().Text == "not in"
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		op := ast.OpIn
		if negate {
			op = ast.OpNIn
		}
		return &ast.BinOp{Op: op, Left: left, Right: right, Base: ast.NewBase(span)}, nil
	}
	if p.match(lexer.Keyword, "like") {
		pattern, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return &ast.Like{Expr: left, Pattern: pattern, Base: ast.NewBase(span)}, nil
	}

	if _, ok := compareOps[p.current().Text]; !ok || p.current().Kind != lexer.Operator {
		return left, nil
	}
	args := []ast.Expr{left}
	var firstOp ast.BinOpKind
	for {
		kind, ok := compareOps[p.current().Text]
		if !ok || p.current().Kind != lexer.Operator {
			break
		}
		if firstOp == "" {
			firstOp = kind
		}
		p.advance()
		next, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	if len(args) == 2 {
		return &ast.BinOp{Op: firstOp, Left: args[0], Right: args[1], Base: ast.NewBase(span)}, nil
	}
	return &ast.Compare{Op: firstOp, Args: args, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parseAdd() (ast.Expr, error) {
	span := p.span()
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == lexer.Operator && (p.current().Text == "+" || p.current().Text == "-") {
		op := ast.BinOpKind(p.advance().Text)
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right, Base: ast.NewBase(span)}
	}
	return left, nil
}

func (p *Parser) parseMul() (ast.Expr, error) {
	span := p.span()
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == lexer.Operator && (p.current().Text == "*" || p.current().Text == "/" || p.current().Text == "%") {
		op := ast.BinOpKind(p.advance().Text)
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right, Base: ast.NewBase(span)}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	span := p.span()
	if p.match(lexer.Operator, "-") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Neg{Expr: inner, Base: ast.NewBase(span)}, nil
	}
	if p.match(lexer.Keyword, "desc") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.DescOrder{Value: inner, Base: ast.NewBase(span)}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles the relational/call/attribute suffixes that
// chain onto a primary expression: `.attr`, `(args)`, `[conds]`/
// `[a..b]`, `{fields}`/`{fields => agg}`, and `order{fields}`.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		span := p.span()
		switch {
		case p.match(lexer.Punct, "."):
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			expr = &ast.Attr{Expr: expr, Name: name, Base: ast.NewBase(span)}
		case p.is(lexer.Punct, "("):
			args, kwargs, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			expr = &ast.FuncCall{Func: expr, Args: args, Kwargs: kwargs, Base: ast.NewBase(span)}
		case p.is(lexer.Punct, "["):
			node, err := p.parseBracketSuffix(expr, span)
			if err != nil {
				return nil, err
			}
			expr = node
		case p.is(lexer.Punct, "{"):
			node, err := p.parseBraceSuffix(expr, span)
			if err != nil {
				return nil, err
			}
			expr = node
		case p.match(lexer.Keyword, "order"):
			if _, err := p.expect(lexer.Punct, "{"); err != nil {
				return nil, err
			}
			fields, err := p.parseExprList("}")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.Punct, "}"); err != nil {
				return nil, err
			}
			expr = &ast.Order{Table: expr, Fields: fields, Base: ast.NewBase(span)}
		default:
			return expr, nil
		}
	}
}

// parseBracketSuffix parses `table[...]`: a lone ".." pair makes it a
// Slice (spec.md §4.3.3), otherwise the bracket holds a comma-joined
// selection condition list (each condition ANDed, spec.md §4.3.2).
func (p *Parser) parseBracketSuffix(table ast.Expr, span rqerr.Span) (ast.Expr, error) {
	p.advance() // consume "["
	if p.is(lexer.Punct, "]") {
		p.advance()
		return &ast.Selection{Table: table, Base: ast.NewBase(span)}, nil
	}

	first, err := p.parseRangeOrExpr()
	if err != nil {
		return nil, err
	}
	if rng, ok := first.(*ast.Range); ok {
		if _, err := p.expect(lexer.Punct, "]"); err != nil {
			return nil, err
		}
		return &ast.Slice{Table: table, Range: *rng, Base: ast.NewBase(span)}, nil
	}

	conds := []ast.Expr{first}
	for p.match(lexer.Punct, ",") {
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if _, err := p.expect(lexer.Punct, "]"); err != nil {
		return nil, err
	}
	return &ast.Selection{Table: table, Conds: conds, Base: ast.NewBase(span)}, nil
}

// parseRangeOrExpr parses either a bare expression or an `a..b` range
// (either bound may be omitted for an open side, e.g. `[2..]`).
func (p *Parser) parseRangeOrExpr() (ast.Expr, error) {
	span := p.span()
	if p.is(lexer.Operator, "..") {
		p.advance()
		stop, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Range{Stop: stop, Base: ast.NewBase(span)}, nil
	}
	start, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.match(lexer.Operator, "..") {
		return start, nil
	}
	if p.is(lexer.Punct, "]") || p.is(lexer.Punct, ",") {
		return &ast.Range{Start: start, Base: ast.NewBase(span)}, nil
	}
	stop, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Range{Start: start, Stop: stop, Base: ast.NewBase(span)}, nil
}

// parseBraceSuffix parses `table{fields}` or, when a top-level "=>" is
// present, `table{fields => agg_fields}` — the grouped-projection form
// of spec.md §4.3.1 (fields before "=>" become the GROUP BY keys,
// fields after become the projection's agg_fields).
func (p *Parser) parseBraceSuffix(table ast.Expr, span rqerr.Span) (ast.Expr, error) {
	p.advance() // consume "{"
	fields, err := p.parseNamedFieldList("}", "=>")
	if err != nil {
		return nil, err
	}
	proj := &ast.Projection{Table: table, Fields: fields, Base: ast.NewBase(span)}
	if p.match(lexer.Operator, "=>") {
		proj.GroupBy = true
		aggFields, err := p.parseNamedFieldList("}", "")
		if err != nil {
			return nil, err
		}
		proj.AggFields = aggFields
	}
	if _, err := p.expect(lexer.Punct, "}"); err != nil {
		return nil, err
	}
	return proj, nil
}

// parseNamedFieldList parses a comma-separated field list until close
// or stopOp is seen at the top level; each field is `...[exclude]`, a
// bare expression (auto-named), or `name: expr` (user-named).
func (p *Parser) parseNamedFieldList(close, stopOp string) ([]ast.NamedField, error) {
	var fields []ast.NamedField
	for !p.is(lexer.Punct, close) && !(stopOp != "" && p.is(lexer.Operator, stopOp)) {
		f, err := p.parseNamedField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		if !p.match(lexer.Punct, ",") {
			break
		}
	}
	return fields, nil
}

func (p *Parser) parseNamedField() (ast.NamedField, error) {
	span := p.span()
	if p.match(lexer.Operator, "..") {
		var exclude []string
		if p.match(lexer.Punct, "[") {
			for !p.is(lexer.Punct, "]") {
				name, err := p.expectIdent()
				if err != nil {
					return ast.NamedField{}, err
				}
				exclude = append(exclude, name)
				if !p.match(lexer.Punct, ",") {
					break
				}
			}
			if _, err := p.expect(lexer.Punct, "]"); err != nil {
				return ast.NamedField{}, err
			}
		}
		return ast.NamedField{Value: &ast.Ellipsis{Exclude: exclude, Base: ast.NewBase(span)}, Base: ast.NewBase(span)}, nil
	}

	if p.current().Kind == lexer.Ident && p.peekAt(1).Kind == lexer.Punct && p.peekAt(1).Text == ":" {
		name := p.advance().Text
		p.advance() // consume ":"
		value, err := p.parseExpr()
		if err != nil {
			return ast.NamedField{}, err
		}
		return ast.NamedField{Name: name, Value: value, UserDefined: true, Base: ast.NewBase(span)}, nil
	}

	value, err := p.parseExpr()
	if err != nil {
		return ast.NamedField{}, err
	}
	return ast.NamedField{Value: value, Base: ast.NewBase(span)}, nil
}

// parseExprList parses a comma-separated expression list until close
// is seen at the top level.
func (p *Parser) parseExprList(close string) ([]ast.Expr, error) {
	var exprs []ast.Expr
	for !p.is(lexer.Punct, close) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if !p.match(lexer.Punct, ",") {
			break
		}
	}
	return exprs, nil
}

// parseCallArgs parses `(args...)`, splitting positional from keyword
// (`name: value`) arguments exactly as match_params expects them
// ordered (spec.md §4.3.5).
func (p *Parser) parseCallArgs() ([]ast.Expr, []ast.NamedField, error) {
	if _, err := p.expect(lexer.Punct, "("); err != nil {
		return nil, nil, err
	}
	var args []ast.Expr
	var kwargs []ast.NamedField
	for !p.is(lexer.Punct, ")") {
		if p.current().Kind == lexer.Ident && p.peekAt(1).Kind == lexer.Punct && p.peekAt(1).Text == ":" {
			span := p.span()
			name := p.advance().Text
			p.advance()
			value, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			kwargs = append(kwargs, ast.NamedField{Name: name, Value: value, UserDefined: true, Base: ast.NewBase(span)})
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, e)
		}
		if !p.match(lexer.Punct, ",") {
			break
		}
	}
	if _, err := p.expect(lexer.Punct, ")"); err != nil {
		return nil, nil, err
	}
	return args, kwargs, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	span := p.span()
	tok := p.current()

	switch {
	case tok.Kind == lexer.Int:
		p.advance()
		return &ast.Const{Kind: "int", Value: tok.Value, Base: ast.NewBase(span)}, nil
	case tok.Kind == lexer.Float:
		p.advance()
		return &ast.Const{Kind: "float", Value: tok.Value, Base: ast.NewBase(span)}, nil
	case tok.Kind == lexer.String:
		p.advance()
		return &ast.Const{Kind: "string", Value: tok.Value, Base: ast.NewBase(span)}, nil
	case tok.Kind == lexer.Keyword && tok.Text == "true":
		p.advance()
		return &ast.Const{Kind: "bool", Value: true, Base: ast.NewBase(span)}, nil
	case tok.Kind == lexer.Keyword && tok.Text == "false":
		p.advance()
		return &ast.Const{Kind: "bool", Value: false, Base: ast.NewBase(span)}, nil
	case tok.Kind == lexer.Keyword && tok.Text == "null":
		p.advance()
		return &ast.Const{Kind: "null", Base: ast.NewBase(span)}, nil
	case tok.Kind == lexer.Keyword && tok.Text == "new":
		return p.parseNew()
	case tok.Kind == lexer.Punct && tok.Text == "(":
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Punct, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case tok.Kind == lexer.Punct && tok.Text == "[":
		p.advance()
		elems, err := p.parseExprList("]")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Punct, "]"); err != nil {
			return nil, err
		}
		return &ast.List_{Elems: elems, Base: ast.NewBase(span)}, nil
	case tok.Kind == lexer.Punct && tok.Text == "{":
		p.advance()
		fields, err := p.parseNamedFieldList("}", "")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Punct, "}"); err != nil {
			return nil, err
		}
		return &ast.Dict_{Fields: fields, Base: ast.NewBase(span)}, nil
	case tok.Kind == lexer.Ident:
		p.advance()
		return &ast.Name{Name: tok.Text, Base: ast.NewBase(span)}, nil
	default:
		return nil, p.errorf("unexpected token %s", p.describe(tok))
	}
}

// parseNew parses `new Table(args...)` or `new [Table](rows_expr)`
// (spec.md §6 supplement: TableConstructor row construction).
func (p *Parser) parseNew() (ast.Expr, error) {
	span := p.span()
	p.advance() // consume "new"
	if p.match(lexer.Punct, "[") {
		table, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Punct, "]"); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Punct, "("); err != nil {
			return nil, err
		}
		rows, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Punct, ")"); err != nil {
			return nil, err
		}
		return &ast.NewRows{Table: table, Rows: rows, Base: ast.NewBase(span)}, nil
	}
	table, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	args, kwargs, err := p.parseCallArgs()
	if err != nil {
		return nil, err
	}
	return &ast.New{Table: table, Args: args, Kwargs: kwargs, Base: ast.NewBase(span)}, nil
}
