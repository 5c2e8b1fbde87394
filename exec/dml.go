package exec

import (
	"github.com/relq-lang/relq/ast"
	"github.com/relq-lang/relq/eval"
	"github.com/relq-lang/relq/object"
	"github.com/relq-lang/relq/rqerr"
	"github.com/relq-lang/relq/sqlir"
	"github.com/relq-lang/relq/state"
	"github.com/relq-lang/relq/types"
)

// execSetValue binds a name to an expression's value in the current
// scope, matching evaluate.py's `_set_value(state, ast.Name, value)`.
func (ex *Executor) execSetValue(st *state.State, n *ast.SetValue) error {
	v, err := eval.Eval(st, n.Value)
	if err != nil {
		return err
	}
	st.NS.SetVar(n.Name, v)
	return nil
}

// execInsertRows implements `table += rows_expr`: evaluates rows_expr,
// requires a table source to have every non-id column of target, strips
// the primary key, and issues one INSERT — evaluate.py's `_copy_rows`.
func (ex *Executor) execInsertRows(st *state.State, n *ast.InsertRows) (object.Instance, error) {
	targetName, ok := n.Table.(*ast.Name)
	if !ok {
		return nil, rqerr.NewSyntaxError(n.Span(), "insert target must be a table name")
	}
	target, err := eval.Eval(st, targetName)
	if err != nil {
		return nil, err
	}
	targetTable, ok := target.(*object.TableInstance)
	if !ok {
		return nil, rqerr.NewTypeError(n.Span(), "%q is not a table", targetName.Name)
	}

	source, err := eval.Eval(st, n.Rows)
	if err != nil {
		return nil, err
	}
	if !source.Type().LE(types.TColl) {
		return nil, rqerr.NewTypeError(n.Rows.Span(), "insert source must be a collection, got %s", source.Type())
	}

	var insertCols []string
	for _, name := range targetTable.ColumnNames {
		if name == "id" {
			continue
		}
		insertCols = append(insertCols, name)
	}
	if srcTable, ok := source.(*object.TableInstance); ok {
		for _, c := range insertCols {
			if _, ok := srcTable.Columns[c]; !ok {
				return nil, rqerr.NewTypeError(n.Rows.Span(), "insert source has no column %q", c)
			}
		}
	}

	rows, err := eval.Localize(st, source, ex.DB, ex.Dialect)
	if err != nil {
		return nil, err
	}
	rowMaps, ok := rows.([]map[string]any)
	if !ok {
		return object.Null, nil
	}

	if len(rowMaps) == 0 {
		return object.Null, nil
	}

	values := make([][]sqlir.Node, 0, len(rowMaps))
	for _, row := range rowMaps {
		vals := make([]sqlir.Node, len(insertCols))
		for i, c := range insertCols {
			vals[i] = sqlir.Literal{Value: row[c]}
		}
		values = append(values, vals)
	}

	ins := sqlir.Insert{Table: targetTable.Type().Name, Columns: insertCols, Values: values}
	text, args := sqlir.Render(ex.Dialect, nil, ins)
	if err := st.RequireAccess(state.WriteDB); err != nil {
		return nil, err
	}
	if _, err := ex.DB.Query(text, args); err != nil {
		return nil, rqerr.NewDatabaseQueryError(text, err)
	}
	return object.Null, nil
}

// execUpdate implements `update table[conds] { field: expr, ... }`:
// binds each column in scope, compiles each field's RHS, then issues a
// per-row UPDATE keyed by id — evaluate.py's `simplify(state, ast.Update)`.
func (ex *Executor) execUpdate(st *state.State, n *ast.Update) (object.Instance, error) {
	table, err := eval.Eval(st, withConds(n.Table, n.Conds))
	if err != nil {
		return nil, err
	}
	ti, ok := table.(*object.TableInstance)
	if !ok {
		return nil, rqerr.NewTypeError(n.Span(), "update target must be a table")
	}

	scoped := st.Clone()
	var sets []sqlir.SetClause
	err = scoped.NS.UseScope(func() error {
		for name, col := range ti.Columns {
			scoped.NS.SetVar(name, col)
		}
		for _, f := range n.Fields {
			if f.Name == "" {
				return rqerr.NewSyntaxError(f.Span(), "update field must be named")
			}
			v, err := eval.Eval(scoped, f.Value)
			if err != nil {
				return err
			}
			sets = append(sets, sqlir.SetClause{Column: f.Name, Value: v.Code()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err := eval.Localize(st, table, ex.DB, ex.Dialect)
	if err != nil {
		return nil, err
	}
	rowMaps, _ := rows.([]map[string]any)
	if err := st.RequireAccess(state.WriteDB); err != nil {
		return nil, err
	}
	for _, row := range rowMaps {
		id, ok := row["id"]
		if !ok {
			return nil, rqerr.NewValueError(n.Span(), "update error: table does not contain id")
		}
		where := sqlir.CompareExpr{Op: "=", Left: sqlir.ColumnRef{Column: "id"}, Right: sqlir.Literal{Value: id}}
		upd := sqlir.Update{Table: ti.Type().Name, Set: sets, Where: where}
		text, args := sqlir.Render(ex.Dialect, nil, upd)
		if _, err := ex.DB.Query(text, args); err != nil {
			return nil, rqerr.NewDatabaseQueryError(text, err)
		}
	}
	return table, nil
}

// execDelete implements `delete table[conds]`, issuing one DELETE per
// matching row keyed by id — evaluate.py's `simplify(state, ast.Delete)`.
func (ex *Executor) execDelete(st *state.State, n *ast.Delete) (object.Instance, error) {
	selected := withConds(n.Table, n.Conds)
	table, err := eval.Eval(st, selected)
	if err != nil {
		return nil, err
	}
	ti, ok := table.(*object.TableInstance)
	if !ok {
		return nil, rqerr.NewTypeError(n.Span(), "delete target must be a table")
	}

	rows, err := eval.Localize(st, table, ex.DB, ex.Dialect)
	if err != nil {
		return nil, err
	}
	rowMaps, _ := rows.([]map[string]any)
	if err := st.RequireAccess(state.WriteDB); err != nil {
		return nil, err
	}
	for _, row := range rowMaps {
		id, ok := row["id"]
		if !ok {
			return nil, rqerr.NewValueError(n.Span(), "delete error: table does not contain id")
		}
		where := sqlir.CompareExpr{Op: "=", Left: sqlir.ColumnRef{Column: "id"}, Right: sqlir.Literal{Value: id}}
		del := sqlir.Delete{Table: ti.Type().Name, Where: where}
		text, args := sqlir.Render(ex.Dialect, nil, del)
		if _, err := ex.DB.Query(text, args); err != nil {
			return nil, rqerr.NewDatabaseQueryError(text, err)
		}
	}
	return eval.Eval(st, n.Table)
}

// withConds wraps table in an ast.Selection over conds when any are
// present, so Update/Delete reuse evalSelection's own type-checking and
// subquery-hoisting instead of duplicating it.
func withConds(table ast.Expr, conds []ast.Expr) ast.Expr {
	if len(conds) == 0 {
		return table
	}
	return &ast.Selection{Table: table, Conds: conds, Base: ast.NewBase(table.Span())}
}
