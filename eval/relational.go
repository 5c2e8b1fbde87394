package eval

import (
	"fmt"

	"github.com/relq-lang/relq/ast"
	"github.com/relq-lang/relq/builtins"
	"github.com/relq-lang/relq/object"
	"github.com/relq-lang/relq/rqerr"
	"github.com/relq-lang/relq/sqlir"
	"github.com/relq-lang/relq/state"
	"github.com/relq-lang/relq/types"
)

// addAsSubquery hoists inst behind a freshly minted alias rather than
// nesting it inline, merging it into the returned subqueries map —
// evaluate.py's `add_as_subquery`. The caller builds its own Select
// against a sqlir.SubqueryRef{Name: alias} FROM clause.
func addAsSubquery(st *state.State, inst object.Instance, prefix string) (alias string, subqueries map[string]sqlir.Node) {
	alias = st.UniqueName(prefix)
	subqueries = object.WithSubquery(inst.Subqueries(), alias, inst.Code())
	return alias, subqueries
}

func tableColumns(inst object.Instance) map[string]*object.ColumnInstance {
	if ti, ok := inst.(*object.TableInstance); ok {
		return ti.Columns
	}
	return nil
}

func tableColumnOrder(inst object.Instance) []string {
	if ti, ok := inst.(*object.TableInstance); ok {
		return ti.ColumnNames
	}
	return nil
}

// evalSelection implements `table[conds...]` (spec.md §4.3.2): hoists
// the table as a subquery, binds each column as a name in a fresh
// scope, type-checks each condition as T.bool, and emits a new Select
// with the accumulated WHERE.
func evalSelection(st *state.State, n *ast.Selection) (object.Instance, error) {
	table, err := Eval(st, n.Table)
	if err != nil {
		return nil, err
	}
	if !table.Type().LE(types.TColl) {
		return nil, rqerr.NewTypeError(n.Span(), "selection requires a collection, got %s", table.Type())
	}

	alias, subqueries := addAsSubquery(st, table, "selection")
	cols := tableColumns(table)
	order := tableColumnOrder(table)

	newColumns := make(map[string]*object.ColumnInstance, len(cols))
	selectCols := make([]sqlir.SelectCol, 0, len(cols))
	for _, name := range order {
		c := cols[name]
		ref := sqlir.ColumnRef{Table: alias, Column: name}
		newColumns[name] = object.NewColumn(name, ref, c.Type())
		selectCols = append(selectCols, sqlir.SelectCol{Expr: ref, Alias: name})
	}

	var whereNode sqlir.Node
	err = st.NS.UseScope(func() error {
		for _, name := range order {
			st.NS.SetVar(name, newColumns[name])
		}
		var conds []sqlir.Node
		for _, c := range n.Conds {
			inst, err := Eval(st, c)
			if err != nil {
				return err
			}
			if !inst.Type().LE(types.TBool) {
				return rqerr.NewTypeError(c.Span(), "selection condition must be bool, got %s", inst.Type())
			}
			conds = append(conds, inst.Code())
		}
		if len(conds) == 1 {
			whereNode = conds[0]
		} else if len(conds) > 1 {
			whereNode = sqlir.AndExpr{Args: conds}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sel := sqlir.Select{Columns: selectCols, From: sqlir.SubqueryRef{Name: alias}, Where: whereNode}
	result := object.NewTable(sel, table.Type(), newColumns, order)
	result.Base = result.Base.WithSubqueries(subqueries)
	return result, nil
}

// evalProjection implements spec.md §4.3.1's algorithm:
//  1. evaluate the table
//  2. assert it is a collection or struct
//  3. expand `...` against the table's own fields
//  4. reject duplicate names
//  5. scope the table's columns
//  6. evaluate plain fields, then the agg_fields, both in that same
//     column scope (the columns are not wrapped as aggregate[T]); each
//     agg_field's result type is then wrapped as aggregate[T]
//  7. type-check every field as primitive/struct/null
//  8. resolve name collisions by suffixing the later of two fields that
//     share a name, whether that name was user-given or guessed
//  9. build the result type and a positional-GROUP-BY Select
func evalProjection(st *state.State, n *ast.Projection) (object.Instance, error) {
	table, err := Eval(st, n.Table)
	if err != nil {
		return nil, err
	}
	if !table.Type().LE(types.TUnion(types.TColl, types.TStruct())) {
		return nil, rqerr.NewTypeError(n.Span(), "projection requires a collection or struct, got %s", table.Type())
	}

	fields := expandEllipsis(n.Fields, table)
	if dup := findDuplicateName(fields); dup != "" {
		return nil, rqerr.NewValueError(n.Span(), "duplicate field name %q in projection", dup)
	}

	alias, subqueries := addAsSubquery(st, table, "project")
	cols := tableColumns(table)
	order := tableColumnOrder(table)

	processed := make([]processedField, 0, len(fields)+len(n.AggFields))
	err = st.NS.UseScope(func() error {
		for _, name := range order {
			c := cols[name]
			ref := sqlir.ColumnRef{Table: alias, Column: name}
			st.NS.SetVar(name, object.NewColumn(name, ref, c.Type()))
		}
		pf, err := processFields(st, fields, false)
		if err != nil {
			return err
		}
		processed = append(processed, pf...)
		if n.GroupBy && len(n.AggFields) > 0 {
			pfAgg, err := processFields(st, n.AggFields, true)
			if err != nil {
				return err
			}
			processed = append(processed, pfAgg...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resolveCollisions(processed)

	allowedFieldType := types.TUnion(types.TInt, types.TFloat, types.TBool, types.TString, types.TNull, types.TStruct())
	elemFields := make([]types.Field, len(processed))
	selectCols := make([]sqlir.SelectCol, len(processed))
	for i, pf := range processed {
		// processFields wraps each agg_field's type as aggregate[T]; once
		// grouped, the resulting column is a concrete T again.
		fieldType := pf.inst.Type()
		if fieldType.Kind == types.Aggregate {
			fieldType = fieldType.Elem
		}
		if !fieldType.LE(allowedFieldType) {
			return nil, rqerr.NewTypeError(n.Span(), "projected field %q has unsupported type %s", pf.name, fieldType)
		}
		elemFields[i] = types.Field{Name: pf.name, Type: fieldType}
		selectCols[i] = sqlir.SelectCol{Expr: pf.inst.Code(), Alias: pf.name}
	}

	var resultType *types.Type
	var sel sqlir.Node
	if table.Type().Kind == types.Struct && !n.GroupBy {
		resultType = types.TStruct(elemFields...).WithOption("temporary", true)
		sel = sqlir.Select{Columns: selectCols, From: sqlir.SubqueryRef{Name: alias}}
	} else {
		resultType = types.TTable(elemFields...).WithOption("temporary", true)
		s := sqlir.Select{Columns: selectCols, From: sqlir.SubqueryRef{Name: alias}}
		if n.GroupBy {
			if len(fields) > 0 {
				for i := range fields {
					s.GroupBy = append(s.GroupBy, sqlir.Raw(fmt.Sprintf("%d", i+1)))
				}
			} else {
				one := 1
				s.Limit = &one
			}
		}
		sel = s
	}

	newColumns := make(map[string]*object.ColumnInstance, len(processed))
	newOrder := make([]string, len(processed))
	for i, pf := range processed {
		newColumns[pf.name] = object.NewColumn(pf.name, sqlir.ColumnRef{Column: pf.name}, elemFields[i].Type)
		newOrder[i] = pf.name
	}
	result := object.NewTable(sel, resultType, newColumns, newOrder)
	result.Base = result.Base.WithSubqueries(subqueries)
	return result, nil
}

type processedField struct {
	name string
	inst object.Instance
}

// processFields evaluates each NamedField under the current scope,
// guessing a name when none was given (compiler.py's
// `guess_field_name`); when aggregate is true, each result's type is
// wrapped as aggregate[T].
func processFields(st *state.State, fields []ast.NamedField, aggregate bool) ([]processedField, error) {
	out := make([]processedField, 0, len(fields))
	for _, f := range fields {
		inst, err := Eval(st, f.Value)
		if err != nil {
			return nil, err
		}
		name := f.Name
		if name == "" {
			name = guessFieldName(f.Value)
		}
		if aggregate {
			inst = object.Make(inst.Code(), types.TAggregate(inst.Type()), inst)
		}
		out = append(out, processedField{name: name, inst: inst})
	}
	return out, nil
}

// expandEllipsis replaces an `...` field with one NamedField per
// table column not already explicitly named elsewhere in the list and
// not excluded — compiler.py's `_expand_ellipsis`.
func expandEllipsis(fields []ast.NamedField, table object.Instance) []ast.NamedField {
	hasEllipsis := false
	explicit := map[string]bool{}
	var excluded []string
	for _, f := range fields {
		if e, ok := f.Value.(*ast.Ellipsis); ok {
			hasEllipsis = true
			excluded = e.Exclude
			continue
		}
		if f.Name != "" {
			explicit[f.Name] = true
		}
	}
	if !hasEllipsis {
		return fields
	}
	excludeSet := map[string]bool{}
	for _, e := range excluded {
		excludeSet[e] = true
	}
	out := make([]ast.NamedField, 0, len(fields))
	for _, f := range fields {
		if _, ok := f.Value.(*ast.Ellipsis); ok {
			for _, name := range tableColumnOrder(table) {
				if explicit[name] || excludeSet[name] {
					continue
				}
				out = append(out, ast.NamedField{Name: name, Value: &ast.Name{Name: name}})
			}
			continue
		}
		out = append(out, f)
	}
	return out
}

func findDuplicateName(fields []ast.NamedField) string {
	seen := map[string]bool{}
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		if seen[f.Name] {
			return f.Name
		}
		seen[f.Name] = true
	}
	return ""
}

// resolveCollisions renames the later of any two fields sharing a name
// by appending an incrementing suffix ("age", "age_1", ...); the first
// occurrence keeps its name. A processedField carries no record of
// whether its name was user-given or guessed, so a user-given name that
// follows a guessed one with the same name is the one renamed.
func resolveCollisions(fields []processedField) {
	seen := map[string]int{}
	for i := range fields {
		name := fields[i].name
		if n, ok := seen[name]; ok {
			j := n + 1
			for {
				candidate := fmt.Sprintf("%s_%d", name, j)
				if _, taken := seen[candidate]; !taken {
					fields[i].name = candidate
					seen[candidate] = 0
					break
				}
				j++
			}
			seen[name] = j
		} else {
			seen[name] = 0
		}
	}
}

func evalOrder(st *state.State, n *ast.Order) (object.Instance, error) {
	table, err := Eval(st, n.Table)
	if err != nil {
		return nil, err
	}
	if !table.Type().LE(types.TColl) {
		return nil, rqerr.NewTypeError(n.Span(), "order requires a collection, got %s", table.Type())
	}
	alias, subqueries := addAsSubquery(st, table, "order")
	cols := tableColumns(table)
	order := tableColumnOrder(table)

	newColumns := make(map[string]*object.ColumnInstance, len(cols))
	selectCols := make([]sqlir.SelectCol, 0, len(cols))
	for _, name := range order {
		c := cols[name]
		ref := sqlir.ColumnRef{Table: alias, Column: name}
		newColumns[name] = object.NewColumn(name, ref, c.Type())
		selectCols = append(selectCols, sqlir.SelectCol{Expr: ref, Alias: name})
	}

	var orderItems []sqlir.OrderItem
	err = st.NS.UseScope(func() error {
		for _, name := range order {
			st.NS.SetVar(name, newColumns[name])
		}
		for _, f := range n.Fields {
			dir := sqlir.Asc
			expr := f
			if d, ok := f.(*ast.DescOrder); ok {
				dir = sqlir.Desc
				expr = d.Value
			}
			inst, err := Eval(st, expr)
			if err != nil {
				return err
			}
			orderItems = append(orderItems, sqlir.OrderItem{Expr: inst.Code(), Dir: dir})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sel := sqlir.Select{Columns: selectCols, From: sqlir.SubqueryRef{Name: alias}, OrderBy: orderItems}
	result := object.NewTable(sel, table.Type(), newColumns, order)
	result.Base = result.Base.WithSubqueries(subqueries)
	return result, nil
}

func evalSlice(st *state.State, n *ast.Slice) (object.Instance, error) {
	table, err := Eval(st, n.Table)
	if err != nil {
		return nil, err
	}
	start, stop := 0, -1
	if n.Range.Start != nil {
		v, err := Eval(st, n.Range.Start)
		if err != nil {
			return nil, err
		}
		if vi, ok := v.(*object.ValueInstance); ok {
			if iv, ok := vi.LocalValue.(int64); ok {
				start = int(iv)
			}
		}
	}
	if n.Range.Stop != nil {
		v, err := Eval(st, n.Range.Stop)
		if err != nil {
			return nil, err
		}
		if vi, ok := v.(*object.ValueInstance); ok {
			if iv, ok := vi.LocalValue.(int64); ok {
				stop = int(iv)
			}
		}
	}

	if table.Type().Kind == types.String {
		length := sqlir.Node(nil)
		if stop >= 0 {
			length = sqlir.Literal{Value: stop - start}
		}
		code := sqlir.StringSlice{Expr: table.Code(), Start: sqlir.Literal{Value: start + 1}, Len: length}
		return object.Make(code, types.TString, table), nil
	}

	if !table.Type().LE(types.TColl) {
		return nil, rqerr.NewTypeError(n.Span(), "slice requires a collection or string, got %s", table.Type())
	}
	alias, subqueries := addAsSubquery(st, table, "slice")
	cols := tableColumns(table)
	order := tableColumnOrder(table)
	selectCols := make([]sqlir.SelectCol, 0, len(cols))
	newColumns := make(map[string]*object.ColumnInstance, len(cols))
	for _, name := range order {
		c := cols[name]
		ref := sqlir.ColumnRef{Table: alias, Column: name}
		newColumns[name] = object.NewColumn(name, ref, c.Type())
		selectCols = append(selectCols, sqlir.SelectCol{Expr: ref, Alias: name})
	}
	sel := sqlir.Select{Columns: selectCols, From: sqlir.SubqueryRef{Name: alias}, Offset: &start}
	if stop >= 0 {
		limit := stop - start
		sel.Limit = &limit
	}
	result := object.NewTable(sel, table.Type(), newColumns, order)
	result.Base = result.Base.WithSubqueries(subqueries)
	return result, nil
}

// evalFuncCall binds arguments via object.MatchParams and either
// evaluates a UserFunction's body in a fresh scope (catching
// rqerr.ReturnSignal at the call boundary, per evaluate.py's FuncCall
// handling) or invokes an InternalFunction's Go closure directly.
func evalFuncCall(st *state.State, n *ast.FuncCall) (object.Instance, error) {
	name, ok := n.Func.(*ast.Name)
	if !ok {
		return nil, rqerr.NewTypeError(n.Span(), "expression is not callable")
	}
	v, found := st.NS.GetVar(name.Name)
	var fn object.Function
	if found {
		fn, ok = v.(object.Function)
		if !ok {
			return nil, rqerr.NewTypeError(n.Span(), "%q is not a function", name.Name)
		}
	} else if bfn, ok2 := builtins.Lookup(name.Name); ok2 {
		fn = bfn
	} else {
		return nil, rqerr.NewNameNotFound(n.Span(), name.Name)
	}

	posArgs := make([]object.Instance, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(st, a)
		if err != nil {
			return nil, err
		}
		posArgs[i] = v
	}
	kwArgs := make(map[string]object.Instance, len(n.Kwargs))
	for _, kw := range n.Kwargs {
		v, err := Eval(st, kw.Value)
		if err != nil {
			return nil, err
		}
		kwArgs[kw.Name] = v
	}
	bound, err := object.MatchParams(fn, posArgs, kwArgs)
	if err != nil {
		return nil, err
	}

	switch f := fn.(type) {
	case *object.InternalFunction:
		return f.Impl(bound)
	case *object.UserFunction:
		body, ok := f.Body.(ast.Expr)
		if !ok {
			return nil, rqerr.NewCompileError(n.Span(), "function %q has no body", f.Name)
		}
		var result object.Instance
		err := st.NS.UseScope(func() error {
			for pname, pval := range bound {
				st.NS.SetVar(pname, pval)
			}
			v, err := Eval(st, body)
			if rs, ok := err.(*rqerr.ReturnSignal); ok {
				result, _ = rs.Value.(object.Instance)
				return nil
			}
			if err != nil {
				return err
			}
			result = v
			return nil
		})
		return result, err
	}
	return nil, rqerr.NewCompileError(n.Span(), "unknown function kind")
}
