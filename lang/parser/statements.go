package parser

import (
	"github.com/relq-lang/relq/ast"
	"github.com/relq-lang/relq/lang/lexer"
)

// parseStmt dispatches on the leading keyword, matching the statement
// vocabulary of spec.md §3: SetValue/InsertRows/CodeBlock/If/For/
// While/Try/Throw/Return/Print/Assert/TableDef/StructDef/FuncDef/
// Import/ExprStmt.
func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch {
	case p.is(lexer.Punct, "{"):
		return p.parseBlock()
	case p.is(lexer.Keyword, "table"):
		return p.parseTableDef()
	case p.is(lexer.Keyword, "struct"):
		return p.parseStructDef()
	case p.is(lexer.Keyword, "func"):
		return p.parseFuncDef()
	case p.is(lexer.Keyword, "if"):
		return p.parseIf()
	case p.is(lexer.Keyword, "for"):
		return p.parseFor()
	case p.is(lexer.Keyword, "while"):
		return p.parseWhile()
	case p.is(lexer.Keyword, "try"):
		return p.parseTry()
	case p.is(lexer.Keyword, "throw"):
		return p.parseThrow()
	case p.is(lexer.Keyword, "return"):
		return p.parseReturn()
	case p.is(lexer.Keyword, "print"):
		return p.parsePrint()
	case p.is(lexer.Keyword, "assert"):
		return p.parseAssert()
	case p.is(lexer.Keyword, "import"):
		return p.parseImport()
	case p.is(lexer.Keyword, "update"):
		return p.parseUpdate()
	case p.is(lexer.Keyword, "delete"):
		return p.parseDelete()
	default:
		return p.parseSetValueOrExprStmt()
	}
}

func (p *Parser) parseBlock() (ast.Stmt, error) {
	span := p.span()
	if _, err := p.expect(lexer.Punct, "{"); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.is(lexer.Punct, "}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(lexer.Punct, "}"); err != nil {
		return nil, err
	}
	return &ast.CodeBlock{Statements: stmts, Base: ast.NewBase(span)}, nil
}

// parseTableDef parses `table Name { col: Type [= default], ... }`
// (columns separated by "," or ";"), matching pql_ast.py's TableDef + implicit id primary key (added at
// executor time, spec.md §4.3.6).
func (p *Parser) parseTableDef() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "table"
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	cols, err := p.parseColumnDefList()
	if err != nil {
		return nil, err
	}
	return &ast.TableDef{Name: name, Columns: cols, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parseStructDef() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "struct"
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	members, err := p.parseColumnDefList()
	if err != nil {
		return nil, err
	}
	return &ast.StructDef{Name: name, Members: members, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parseColumnDefList() ([]ast.ColumnDef, error) {
	if _, err := p.expect(lexer.Punct, "{"); err != nil {
		return nil, err
	}
	var cols []ast.ColumnDef
	for !p.is(lexer.Punct, "}") {
		colSpan := p.span()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Punct, ":"); err != nil {
			return nil, err
		}
		typeExpr, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		col := ast.ColumnDef{Name: name, TypeExpr: typeExpr, Base: ast.NewBase(colSpan)}
		if p.match(lexer.Operator, "=") {
			dflt, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			col.Default = dflt
		}
		cols = append(cols, col)
		if !p.match(lexer.Punct, ",") && !p.match(lexer.Punct, ";") {
			break
		}
	}
	if _, err := p.expect(lexer.Punct, "}"); err != nil {
		return nil, err
	}
	return cols, nil
}

// parseFuncDef parses `func name(params) [-> ReturnType] = body`,
// matching evaluate.py's UserFunction construction (spec.md §4.3.5).
func (p *Parser) parseFuncDef() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "func"
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Punct, "("); err != nil {
		return nil, err
	}
	var params []ast.Param
	collector := ""
	for !p.is(lexer.Punct, ")") {
		variadic := p.match(lexer.Operator, "*")
		pname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if variadic {
			collector = pname
		} else {
			param := ast.Param{Name: pname}
			if p.match(lexer.Punct, ":") {
				typeExpr, err := p.parsePostfix()
				if err != nil {
					return nil, err
				}
				param.TypeExpr = typeExpr
			}
			if p.match(lexer.Operator, "=") {
				dflt, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				param.Default = dflt
			}
			params = append(params, param)
		}
		if !p.match(lexer.Punct, ",") {
			break
		}
	}
	if _, err := p.expect(lexer.Punct, ")"); err != nil {
		return nil, err
	}
	var returnType ast.Expr
	if p.match(lexer.Operator, "->") {
		rt, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		returnType = rt
	}
	if _, err := p.expect(lexer.Operator, "="); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDef{
		Name: name, Params: params, ParamCollector: collector,
		Body: body, ReturnType: returnType, Base: ast.NewBase(span),
	}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "if"
	if _, err := p.expect(lexer.Punct, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Punct, ")"); err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Stmt
	if p.match(lexer.Keyword, "else") {
		e, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		elseStmt = e
	}
	return &ast.If{Cond: cond, Then: then, Else: elseStmt, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "for"
	if _, err := p.expect(lexer.Punct, "("); err != nil {
		return nil, err
	}
	varName, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Keyword, "in"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Punct, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.For{Var: varName, Iter: iter, Body: body, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "while"
	if _, err := p.expect(lexer.Punct, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Punct, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body, Base: ast.NewBase(span)}, nil
}

// parseTry parses `try Block catch [name:]Kind { ... } [catch ...]`,
// matching pql_ast.py's Try(body, catches) handled at the PreqlError
// kind boundary (spec.md §4.3.6).
func (p *Parser) parseTry() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "try"
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	var catches []ast.CatchClause
	for p.match(lexer.Keyword, "catch") {
		varName, kindName := "", ""
		if p.current().Kind == lexer.Ident && p.peekAt(1).Kind == lexer.Punct && p.peekAt(1).Text == ":" {
			varName = p.advance().Text
			p.advance() // ":"
			kindName, err = p.expectIdent()
			if err != nil {
				return nil, err
			}
		} else if p.current().Kind == lexer.Ident {
			kindName = p.advance().Text
		}
		handler, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		catches = append(catches, ast.CatchClause{KindName: kindName, VarName: varName, Body: handler})
	}
	return &ast.Try{Body: body, Catches: catches, Base: ast.NewBase(span)}, nil
}

// parseThrow parses `throw new Kind(message)` or `throw Kind(message)`,
// both resolving to the same KindName + Message shape.
func (p *Parser) parseThrow() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "throw"
	p.match(lexer.Keyword, "new")
	kindName, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var message ast.Expr
	if p.is(lexer.Punct, "(") {
		args, _, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		if len(args) > 0 {
			message = args[0]
		}
	}
	return &ast.Throw{KindName: kindName, Message: message, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "return"
	var value ast.Expr
	if !p.is(lexer.Punct, ";") && !p.is(lexer.Punct, "}") && p.current().Kind != lexer.EOF {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		value = v
	}
	return &ast.Return{Value: value, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parsePrint() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "print"
	args, err := p.parseExprSeq()
	if err != nil {
		return nil, err
	}
	return &ast.Print{Args: args, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parseAssert() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "assert"
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Assert{Cond: cond, Base: ast.NewBase(span)}, nil
}

func (p *Parser) parseImport() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "import"
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	alias := ""
	if p.match(lexer.Keyword, "as") {
		a, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		alias = a
	}
	return &ast.Import{ModuleName: name, Alias: alias, Base: ast.NewBase(span)}, nil
}

// parseUpdate parses `update table[conds] { field: expr, ... }`
// (spec.md §4.3.6: "push columns into scope, evaluate RHS of each
// field, emit Update per row keyed by id").
func (p *Parser) parseUpdate() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "update"
	table, conds, err := p.parseTableWithConds()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Punct, "{"); err != nil {
		return nil, err
	}
	fields, err := p.parseNamedFieldList("}", "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Punct, "}"); err != nil {
		return nil, err
	}
	return &ast.Update{Table: table, Conds: conds, Fields: fields, Base: ast.NewBase(span)}, nil
}

// parseDelete parses `delete table[conds]` (spec.md §4.3.6).
func (p *Parser) parseDelete() (ast.Stmt, error) {
	span := p.span()
	p.advance() // "delete"
	table, conds, err := p.parseTableWithConds()
	if err != nil {
		return nil, err
	}
	return &ast.Delete{Table: table, Conds: conds, Base: ast.NewBase(span)}, nil
}

// parseTableWithConds parses `name[cond, cond, ...]`, the shared shape
// update/delete use to name their target and filter.
func (p *Parser) parseTableWithConds() (ast.Expr, []ast.Expr, error) {
	table, err := p.parsePrimary()
	if err != nil {
		return nil, nil, err
	}
	if !p.match(lexer.Punct, "[") {
		return table, nil, nil
	}
	var conds []ast.Expr
	for !p.is(lexer.Punct, "]") {
		c, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, c)
		if !p.match(lexer.Punct, ",") {
			break
		}
	}
	if _, err := p.expect(lexer.Punct, "]"); err != nil {
		return nil, nil, err
	}
	return table, conds, nil
}

// parseExprSeq parses a comma-separated expression sequence with no
// enclosing bracket, used by `print a, b, c`.
func (p *Parser) parseExprSeq() ([]ast.Expr, error) {
	var exprs []ast.Expr
	for {
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

// parseSetValueOrExprStmt disambiguates `name = expr` (SetValue),
// `table_expr += rows_expr` (InsertRows) from a bare expression
// statement, by speculatively parsing the leading expression and
// checking the following token.
func (p *Parser) parseSetValueOrExprStmt() (ast.Stmt, error) {
	span := p.span()

	if p.current().Kind == lexer.Ident && p.peekAt(1).Kind == lexer.Operator && p.peekAt(1).Text == "=" {
		name := p.advance().Text
		p.advance() // "="
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.SetValue{Name: name, Value: value, Base: ast.NewBase(span)}, nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.match(lexer.Operator, "+=") {
		rows, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.InsertRows{Table: expr, Rows: rows, Base: ast.NewBase(span)}, nil
	}
	return &ast.ExprStmt{Expr: expr, Base: ast.NewBase(span)}, nil
}
