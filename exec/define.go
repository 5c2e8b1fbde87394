package exec

import (
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/relq-lang/relq/ast"
	"github.com/relq-lang/relq/object"
	"github.com/relq-lang/relq/rqerr"
	"github.com/relq-lang/relq/sqlir"
	"github.com/relq-lang/relq/state"
	"github.com/relq-lang/relq/types"
)

// resolveType evaluates a type-position expression (a bare primitive
// name, or the name of a previously defined table/struct) to a
// *types.Type, matching evaluate.py's `resolve(state, ast.Type)`
// dispatch to `state.get_var(type_.name)`.
func resolveType(st *state.State, e ast.Expr) (*types.Type, error) {
	name, ok := e.(*ast.Name)
	if !ok {
		return nil, rqerr.NewCompileError(e.Span(), "expected a type name")
	}
	switch name.Name {
	case "int":
		return types.TInt, nil
	case "float":
		return types.TFloat, nil
	case "bool":
		return types.TBool, nil
	case "string", "str":
		return types.TString, nil
	}
	v, ok := st.NS.GetVar(name.Name)
	if !ok {
		return nil, rqerr.NewNameNotFound(e.Span(), name.Name)
	}
	t, ok := v.(*types.Type)
	if !ok {
		return nil, rqerr.NewTypeError(e.Span(), "%q is not a type", name.Name)
	}
	return t, nil
}

// sqlTypeName renders a relq primitive type as a dialect-neutral SQL
// column type keyword. The same keywords are emitted for every dialect;
// neither db nor sqlir rewrites them.
func sqlTypeName(t *types.Type) string {
	switch t.Kind {
	case types.Int:
		return "INTEGER"
	case types.Float:
		return "REAL"
	case types.Bool:
		return "BOOLEAN"
	case types.String:
		return "TEXT"
	default:
		return "TEXT"
	}
}

// physicalTableName pluralizes a TableDef's declared name into the
// SQL-visible table identifier (`User` -> `users`), matching the
// teacher's engine/translator/postgres.go use of inflection.Plural for
// table naming (SPEC_FULL.md §5). The relq-level binding a script
// writes (`new User(...)`, `User[...]`) still resolves via n.Name in
// the namespace; only the rendered SQL identifier is pluralized.
func physicalTableName(name string) string {
	return inflection.Plural(strings.ToLower(name))
}

// execTableDef resolves the table's column types, binds its name to the
// *types.Type, emits the backing CREATE TABLE DDL, and then rebinds the
// name to a fresh *object.TableInstance, which replaces the type binding
// so later statements see the table as a queryable Instance (evaluate.py
// likewise calls `state.set_var` twice) — evaluate.py's
// `compile_type_def`.
func (ex *Executor) execTableDef(st *state.State, n *ast.TableDef) error {
	fields := make([]types.Field, 0, len(n.Columns)+1)
	fields = append(fields, types.Field{Name: "id", Type: types.TInt})

	cols := make([]sqlir.ColumnSpec, 0, len(n.Columns)+1)
	cols = append(cols, sqlir.ColumnSpec{Name: "id", TypeName: "INTEGER", PrimaryKey: true})

	for _, c := range n.Columns {
		ct, err := resolveType(st, c.TypeExpr)
		if err != nil {
			return err
		}
		fields = append(fields, types.Field{Name: c.Name, Type: ct})
		spec := sqlir.ColumnSpec{Name: c.Name, TypeName: sqlTypeName(ct), NotNull: true}
		if c.Default != nil {
			dflt, err := literalDefault(c.Default)
			if err != nil {
				return err
			}
			spec.Default = dflt
			spec.NotNull = false
		}
		cols = append(cols, spec)
	}

	physName := physicalTableName(n.Name)
	tableType := types.TTable(fields...).WithName(physName)
	st.NS.SetVar(n.Name, tableType)

	ddl := sqlir.CreateTable{Name: physName, Columns: cols, IfNoExist: true}
	text, args := sqlir.Render(ex.Dialect, nil, ddl)
	if _, err := ex.DB.Query(text, args); err != nil {
		return rqerr.NewDatabaseQueryError(text, err)
	}

	columns := make(map[string]*object.ColumnInstance, len(fields))
	order := make([]string, 0, len(fields))
	for _, f := range fields {
		columns[f.Name] = object.NewColumn(f.Name, sqlir.ColumnRef{Table: physName, Column: f.Name}, f.Type)
		order = append(order, f.Name)
	}
	// The table's code is a full SELECT so it can stand as a query on its
	// own or as the body of a hoisted CTE.
	inst := object.NewTable(sqlir.Select{From: sqlir.TableRef{Name: physName}}, tableType, columns, order)
	st.NS.SetVar(n.Name, inst)
	return nil
}

// literalDefault evaluates a column default, which spec.md restricts
// to a compile-time constant, to the Go value the DDL's DEFAULT clause
// renders.
func literalDefault(e ast.Expr) (sqlir.Node, error) {
	c, ok := e.(*ast.Const)
	if !ok {
		return nil, rqerr.NewCompileError(e.Span(), "column default must be a constant")
	}
	return sqlir.Literal{Value: c.Value}, nil
}

// execStructDef registers a struct type's shape with no backing table,
// matching evaluate.py's struct_def resolve branch.
func (ex *Executor) execStructDef(st *state.State, n *ast.StructDef) error {
	fields := make([]types.Field, 0, len(n.Members))
	for _, m := range n.Members {
		mt, err := resolveType(st, m.TypeExpr)
		if err != nil {
			return err
		}
		fields = append(fields, types.Field{Name: m.Name, Type: mt})
	}
	st.NS.SetVar(n.Name, types.TStruct(fields...).WithName(n.Name))
	return nil
}

// execFuncDef binds a UserFunction under its name, matching
// evaluate.py's `_execute(state, func_def)`.
func (ex *Executor) execFuncDef(st *state.State, n *ast.FuncDef) error {
	params := make([]object.Param, len(n.Params))
	for i, p := range n.Params {
		param := object.Param{Name: p.Name}
		if p.TypeExpr != nil {
			pt, err := resolveType(st, p.TypeExpr)
			if err != nil {
				return err
			}
			param.Type = pt
		}
		if p.Default != nil {
			c, ok := p.Default.(*ast.Const)
			if !ok {
				return rqerr.NewCompileError(p.Default.Span(), "parameter default must be a constant")
			}
			param.HasDflt = true
			param.Default = c.Value
		}
		params[i] = param
	}
	fn := &object.UserFunction{
		Name:           n.Name,
		ParamList:      params,
		ParamCollector: n.ParamCollector,
		Body:           n.Body,
	}
	st.NS.SetVar(n.Name, fn)
	return nil
}
