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

// evalExpr is eval.Eval widened with the two row-construction forms
// that need real database access (spec.md §6 supplement: `new`/
// TableConstructor) — eval.Eval itself stays DB-free so it can compose
// purely from a *state.State, matching evaluate.py's note that `new`'s
// side effects arguably belong outside `simplify`.
func (ex *Executor) evalExpr(st *state.State, e ast.Expr) (object.Instance, error) {
	switch n := e.(type) {
	case *ast.New:
		return ex.execNew(st, n)
	case *ast.NewRows:
		return ex.execNewRows(st, n)
	default:
		return eval.Eval(st, e)
	}
}

// tableFor resolves a `new`/`new [...]` target expression to its
// TableInstance, matching evaluate.py's `state.get_var(new.type)`
// dispatch (a bare Name naming a previously defined table).
func tableFor(st *state.State, e ast.Expr) (*object.TableInstance, error) {
	inst, err := eval.Eval(st, e)
	if err != nil {
		return nil, err
	}
	ti, ok := inst.(*object.TableInstance)
	if !ok {
		return nil, rqerr.NewTypeError(e.Span(), "'new' expected a table, got %s", inst.Type())
	}
	return ti, nil
}

// execNew implements `new Table(args...)`: binds args against the
// table's non-id columns via object.MatchParams (relq's ad-hoc
// TableConstructor, evaluate.py's `TableConstructor.make`), inserts one
// row, and returns the freshly minted row as a RowInstance — its `id`
// field populated from the DB driver's last-insert-id.
func (ex *Executor) execNew(st *state.State, n *ast.New) (object.Instance, error) {
	table, err := tableFor(st, n.Table)
	if err != nil {
		return nil, err
	}
	values, err := ex.bindConstructorArgs(st, table, n.Args, n.Kwargs)
	if err != nil {
		return nil, err
	}
	return ex.insertRow(st, n.Span(), table, values)
}

// execNewRows implements `new [Table](rows_expr)`: localizes rows_expr
// and inserts one row per element, returning the list of newly minted
// rows — evaluate.py's `simplify(state, ast.NewRows)`.
func (ex *Executor) execNewRows(st *state.State, n *ast.NewRows) (object.Instance, error) {
	table, err := tableFor(st, n.Table)
	if err != nil {
		return nil, err
	}
	rowsInst, err := eval.Eval(st, n.Rows)
	if err != nil {
		return nil, err
	}
	localized, err := eval.Localize(st, rowsInst, ex.DB, ex.Dialect)
	if err != nil {
		return nil, err
	}
	rowMaps, ok := localized.([]map[string]any)
	if !ok {
		return nil, rqerr.NewTypeError(n.Rows.Span(), "'new [...]' requires a list of rows")
	}

	var results []object.Instance
	for _, row := range rowMaps {
		values := make(map[string]any, len(row))
		for k, v := range row {
			values[k] = v
		}
		inst, err := ex.insertRow(st, n.Span(), table, values)
		if err != nil {
			return nil, err
		}
		results = append(results, inst)
	}
	return object.NewList(types.TList(types.TRow(table.Type())), results, sqlir.Raw("")), nil
}

// bindConstructorArgs matches positional/keyword constructor args
// against table's declared columns (excluding id), localizing each to
// a concrete Go value suitable for an INSERT's literal values.
func (ex *Executor) bindConstructorArgs(st *state.State, table *object.TableInstance, args []ast.Expr, kwargs []ast.NamedField) (map[string]any, error) {
	fields := table.Type().Fields
	var params []object.Param
	for _, f := range fields {
		if f.Name == "id" {
			continue
		}
		params = append(params, object.Param{Name: f.Name, Type: f.Type})
	}
	fn := &object.InternalFunction{Name: "new", ParamList: params}

	posArgs := make([]object.Instance, len(args))
	for i, a := range args {
		inst, err := eval.Eval(st, a)
		if err != nil {
			return nil, err
		}
		posArgs[i] = inst
	}
	kwArgs := make(map[string]object.Instance, len(kwargs))
	for _, kw := range kwargs {
		inst, err := eval.Eval(st, kw.Value)
		if err != nil {
			return nil, err
		}
		kwArgs[kw.Name] = inst
	}
	bound, err := object.MatchParams(fn, posArgs, kwArgs)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(bound))
	for name, inst := range bound {
		v, err := eval.Localize(st, inst, ex.DB, ex.Dialect)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

// insertRow issues a single-row INSERT and returns the new row,
// looking its id up via the DB driver's last-insert-id query —
// evaluate.py's `_new_row`.
func (ex *Executor) insertRow(st *state.State, span rqerr.Span, table *object.TableInstance, values map[string]any) (object.Instance, error) {
	if err := st.RequireAccess(state.WriteDB); err != nil {
		return nil, err
	}
	var cols []string
	var vals []sqlir.Node
	for _, name := range table.ColumnNames {
		if name == "id" {
			continue
		}
		cols = append(cols, name)
		vals = append(vals, sqlir.Literal{Value: values[name]})
	}
	ins := sqlir.Insert{Table: table.Type().Name, Columns: cols, Values: [][]sqlir.Node{vals}}
	text, args := sqlir.Render(ex.Dialect, nil, ins)
	if _, err := ex.DB.Query(text, args); err != nil {
		return nil, rqerr.NewDatabaseQueryError(text, err)
	}
	id, err := ex.DB.LastRowID()
	if err != nil {
		return nil, rqerr.NewDatabaseQueryError("last_insert_id", err)
	}

	fields := map[string]object.Instance{"id": object.NewValue(types.TInt, sqlir.Literal{Value: id}, id)}
	order := []string{"id"}
	for _, name := range cols {
		v := values[name]
		fields[name] = object.NewValue(valueType(v), sqlir.Literal{Value: v}, v)
		order = append(order, name)
	}
	return object.NewRow(types.TRow(table.Type()), fields, order), nil
}
