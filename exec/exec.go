// Package exec is relq's statement executor: it drives every ast.Stmt
// to completion, issuing DDL/DML against a database.Interface-shaped
// QueryRunner and threading control flow (If/For/While/Try/Return)
// through Go's own call stack rather than a bytecode VM. Grounded on
// original_source/preql/evaluate.py's `_execute`/`execute` dispatch
// table, translated from Python's `@dy` multi-dispatch into an
// exhaustive Go type switch.
package exec

import (
	"github.com/relq-lang/relq/ast"
	"github.com/relq-lang/relq/eval"
	"github.com/relq-lang/relq/object"
	"github.com/relq-lang/relq/rqerr"
	"github.com/relq-lang/relq/sqlir"
	"github.com/relq-lang/relq/state"
)

// DB is the slice of db.Interface the executor needs: issuing a query
// and reading back the primary key minted by the most recent insert,
// narrowed here (as eval.QueryRunner is) to avoid an import cycle
// between exec and db.
type DB interface {
	eval.QueryRunner
	LastRowID() (int64, error)
}

// Executor threads a DB handle and rendering dialect through every
// statement, matching evaluate.py's State carrying `state.db` alongside
// the namespace.
type Executor struct {
	DB      DB
	Dialect sqlir.Dialect
}

func New(db DB, dialect sqlir.Dialect) *Executor {
	return &Executor{DB: db, Dialect: dialect}
}

// Execute runs one statement and returns whatever value it produces —
// object.Null for every statement that has no result, mirroring
// evaluate.py's `execute()` returning `objects.null` when `_execute`
// is void. Errors are annotated with stmt's span when they don't
// already carry one, matching `execute`'s meta-fallback.
func (ex *Executor) Execute(st *state.State, stmt ast.Stmt) (object.Instance, error) {
	inst, err := ex.execute(st, stmt)
	if err != nil {
		if e, ok := rqerr.AsError(err); ok {
			return nil, e.WithSpan(stmt.Span())
		}
		return nil, err
	}
	if inst == nil {
		return object.Null, nil
	}
	return inst, nil
}

func (ex *Executor) execute(st *state.State, stmt ast.Stmt) (object.Instance, error) {
	switch n := stmt.(type) {
	case *ast.TableDef:
		return nil, ex.execTableDef(st, n)
	case *ast.StructDef:
		return nil, ex.execStructDef(st, n)
	case *ast.FuncDef:
		return nil, ex.execFuncDef(st, n)
	case *ast.SetValue:
		return nil, ex.execSetValue(st, n)
	case *ast.InsertRows:
		return ex.execInsertRows(st, n)
	case *ast.Update:
		return ex.execUpdate(st, n)
	case *ast.Delete:
		return ex.execDelete(st, n)
	case *ast.Print:
		return nil, ex.execPrint(st, n)
	case *ast.Assert:
		return nil, ex.execAssert(st, n)
	case *ast.CodeBlock:
		return ex.execCodeBlock(st, n)
	case *ast.If:
		return ex.execIf(st, n)
	case *ast.For:
		return nil, ex.execFor(st, n)
	case *ast.While:
		return nil, ex.execWhile(st, n)
	case *ast.Try:
		return ex.execTry(st, n)
	case *ast.Return:
		return ex.execReturn(st, n)
	case *ast.Throw:
		return nil, ex.execThrow(st, n)
	case *ast.Import:
		return nil, ex.execImport(st, n)
	case *ast.ExprStmt:
		return ex.evalExpr(st, n.Expr)
	}
	return nil, rqerr.NewCompileError(stmt.Span(), "cannot execute statement")
}
