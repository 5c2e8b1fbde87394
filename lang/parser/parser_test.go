package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relq-lang/relq/ast"
	"github.com/relq-lang/relq/rqerr"
)

func TestParseTableDef(t *testing.T) {
	stmts, err := Parse(`table P { name: str; age: int = 0 }`)
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	def, ok := stmts[0].(*ast.TableDef)
	require.True(t, ok)
	assert.Equal(t, "P", def.Name)
	require.Len(t, def.Columns, 2)
	assert.Equal(t, "name", def.Columns[0].Name)
	assert.Equal(t, "age", def.Columns[1].Name)
	require.NotNil(t, def.Columns[1].Default)
}

func TestParseFuncDefWithReturnType(t *testing.T) {
	stmts, err := Parse(`func f(x: int = 1) -> int = x+1`)
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	def, ok := stmts[0].(*ast.FuncDef)
	require.True(t, ok)
	assert.Equal(t, "f", def.Name)
	require.Len(t, def.Params, 1)
	assert.Equal(t, "x", def.Params[0].Name)
	require.NotNil(t, def.ReturnType)
	require.NotNil(t, def.Body)
}

func TestParseIfElse(t *testing.T) {
	stmts, err := Parse(`if (x > 1) { print "big" } else { print "small" }`)
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	ifStmt, ok := stmts[0].(*ast.If)
	require.True(t, ok)
	require.NotNil(t, ifStmt.Cond)
	require.NotNil(t, ifStmt.Then)
	require.NotNil(t, ifStmt.Else)
}

func TestParseForLoop(t *testing.T) {
	stmts, err := Parse(`for (row in P) { print row }`)
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	forStmt, ok := stmts[0].(*ast.For)
	require.True(t, ok)
	assert.Equal(t, "row", forStmt.Var)
}

func TestParseTryCatch(t *testing.T) {
	stmts, err := Parse(`try { throw new ValueError("bad") } catch e: ValueError { print "caught" }`)
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	tryStmt, ok := stmts[0].(*ast.Try)
	require.True(t, ok)
	require.Len(t, tryStmt.Catches, 1)
	assert.Equal(t, "ValueError", tryStmt.Catches[0].KindName)
}

func TestParseUpdateAndDelete(t *testing.T) {
	stmts, err := Parse(`update P[age > 18] { age: age+1 }
delete P[age > 100]`)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	upd, ok := stmts[0].(*ast.Update)
	require.True(t, ok)
	require.Len(t, upd.Conds, 1)
	require.Len(t, upd.Fields, 1)
	assert.Equal(t, "age", upd.Fields[0].Name)

	del, ok := stmts[1].(*ast.Delete)
	require.True(t, ok)
	require.Len(t, del.Conds, 1)
}

func TestParseInsertRowsOperator(t *testing.T) {
	stmts, err := Parse(`P += [{name: "Ada", age: 40}]`)
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	ins, ok := stmts[0].(*ast.InsertRows)
	require.True(t, ok)
	require.NotNil(t, ins.Table)
	require.NotNil(t, ins.Rows)
}

func TestParseNewConstructor(t *testing.T) {
	stmts, err := Parse(`new P("Ada", 40)`)
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	exprStmt, ok := stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	n, ok := exprStmt.Expr.(*ast.New)
	require.True(t, ok)
	require.Len(t, n.Args, 2)
}

func TestParseSyntaxErrorHasSpan(t *testing.T) {
	_, err := Parse(`table { }`)
	require.Error(t, err)
	e, ok := rqerr.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 1, e.Span.StartLine)
}
