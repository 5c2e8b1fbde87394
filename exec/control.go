package exec

import (
	"fmt"

	"github.com/relq-lang/relq/ast"
	"github.com/relq-lang/relq/eval"
	"github.com/relq-lang/relq/object"
	"github.com/relq-lang/relq/rqerr"
	"github.com/relq-lang/relq/sqlir"
	"github.com/relq-lang/relq/state"
	"github.com/relq-lang/relq/types"
)

func (ex *Executor) execPrint(st *state.State, n *ast.Print) error {
	parts := make([]any, 0, len(n.Args))
	for _, a := range n.Args {
		inst, err := eval.Eval(st, a)
		if err != nil {
			return err
		}
		v, err := eval.Localize(st, inst, ex.DB, ex.Dialect)
		if err != nil {
			return err
		}
		parts = append(parts, v)
	}
	st.Logger.Info(fmt.Sprint(parts...))
	return nil
}

// execAssert raises a ValueError when cond localizes falsy, matching
// evaluate.py's `_execute(state, ast.Assert)` (test_nonzero on the
// localized value).
func (ex *Executor) execAssert(st *state.State, n *ast.Assert) error {
	inst, err := eval.Eval(st, n.Cond)
	if err != nil {
		return err
	}
	v, err := eval.Localize(st, inst, ex.DB, ex.Dialect)
	if err != nil {
		return err
	}
	if !truthy(v) {
		return rqerr.NewValueError(n.Span(), "assertion failed")
	}
	return nil
}

// truthy mirrors evaluate.py's `test_nonzero` for already-localized Go
// values: nil/zero/empty is false, everything else true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case []map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func (ex *Executor) execCodeBlock(st *state.State, n *ast.CodeBlock) (object.Instance, error) {
	var result object.Instance = object.Null
	err := st.NS.UseScope(func() error {
		for _, s := range n.Statements {
			v, err := ex.Execute(st, s)
			if err != nil {
				return err
			}
			result = v
		}
		return nil
	})
	return result, err
}

func (ex *Executor) execIf(st *state.State, n *ast.If) (object.Instance, error) {
	cond, err := eval.Eval(st, n.Cond)
	if err != nil {
		return nil, err
	}
	v, err := eval.Localize(st, cond, ex.DB, ex.Dialect)
	if err != nil {
		return nil, err
	}
	if truthy(v) {
		return ex.Execute(st, n.Then)
	}
	if n.Else != nil {
		return ex.Execute(st, n.Else)
	}
	return object.Null, nil
}

// execFor localizes the iterable once, then binds each element as a
// host value in a fresh scope per iteration — evaluate.py's
// `_execute(state, ast.For)`.
func (ex *Executor) execFor(st *state.State, n *ast.For) error {
	inst, err := eval.Eval(st, n.Iter)
	if err != nil {
		return err
	}
	v, err := eval.Localize(st, inst, ex.DB, ex.Dialect)
	if err != nil {
		return err
	}
	rows, ok := v.([]map[string]any)
	if !ok {
		return rqerr.NewTypeError(n.Span(), "for loop requires an iterable collection")
	}
	for _, row := range rows {
		err := st.NS.UseScope(func() error {
			st.NS.SetVar(n.Var, rowToInstance(row))
			_, err := ex.Execute(st, n.Body)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (ex *Executor) execWhile(st *state.State, n *ast.While) error {
	for {
		cond, err := eval.Eval(st, n.Cond)
		if err != nil {
			return err
		}
		v, err := eval.Localize(st, cond, ex.DB, ex.Dialect)
		if err != nil {
			return err
		}
		if !truthy(v) {
			return nil
		}
		if _, err := ex.Execute(st, n.Body); err != nil {
			return err
		}
	}
}

// rowToInstance lifts a materialized row's scalar columns back into
// Instances so loop-body expressions can reference them by name,
// matching evaluate.py's `objects.from_python` used in the For handler.
func rowToInstance(row map[string]any) object.Instance {
	fields := make(map[string]object.Instance, len(row))
	order := make([]string, 0, len(row))
	structFields := make([]types.Field, 0, len(row))
	for k, v := range row {
		t := valueType(v)
		fields[k] = object.NewValue(t, sqlir.Literal{Value: v}, v)
		order = append(order, k)
		structFields = append(structFields, types.Field{Name: k, Type: t})
	}
	return object.NewRow(types.TRow(types.TStruct(structFields...)), fields, order)
}

// valueType infers a relq primitive type from a localized Go value, the
// narrow reverse of Localize's row materialization.
func valueType(v any) *types.Type {
	switch v.(type) {
	case int64, int:
		return types.TInt
	case float64, float32:
		return types.TFloat
	case bool:
		return types.TBool
	case string:
		return types.TString
	default:
		return types.TNull
	}
}

// execTry runs Body, and on a *rqerr.Error whose Kind name matches a
// catch clause's KindName (or an empty KindName catch-all), runs that
// clause's handler instead — evaluate.py's `_execute(state, ast.Try)`.
// A clause's VarName is not bound: the handler runs in st's current
// scope with no name for the caught error.
func (ex *Executor) execTry(st *state.State, n *ast.Try) (object.Instance, error) {
	result, err := ex.Execute(st, n.Body)
	if err == nil {
		return result, nil
	}
	e, ok := rqerr.AsError(err)
	if !ok {
		return nil, err
	}
	for _, c := range n.Catches {
		if c.KindName == "" || c.KindName == e.Kind.String() {
			return ex.Execute(st, c.Body)
		}
	}
	return nil, err
}

// execThrow raises the named error kind, matching evaluate.py's
// `_execute(state, ast.Throw)` which re-raises `evaluate(state, t.value)`
// (here always one of relq's own typed kinds, since relq has no
// user-defined exception hierarchy — spec.md §6 supplement).
func (ex *Executor) execThrow(st *state.State, n *ast.Throw) error {
	message := n.KindName
	if n.Message != nil {
		inst, err := eval.Eval(st, n.Message)
		if err != nil {
			return err
		}
		v, err := eval.Localize(st, inst, ex.DB, ex.Dialect)
		if err != nil {
			return err
		}
		if s, ok := v.(string); ok {
			message = s
		}
	}
	kind := kindFromName(n.KindName)
	return rqerr.New(kind, n.Span(), "%s", message)
}

func kindFromName(name string) rqerr.Kind {
	switch name {
	case "TypeError":
		return rqerr.Type
	case "ValueError":
		return rqerr.Value
	case "NameNotFound":
		return rqerr.NameNotFound
	case "AttributeError":
		return rqerr.Attribute
	case "JoinError":
		return rqerr.Join
	case "NotImplementedError":
		return rqerr.NotImplemented
	default:
		return rqerr.Value
	}
}

// execReturn raises rqerr.ReturnSignal, unwound at the nearest
// enclosing evalFuncCall boundary (eval/relational.go) — evaluate.py's
// `_execute(state, ast.Return)`.
func (ex *Executor) execReturn(st *state.State, n *ast.Return) (object.Instance, error) {
	var v object.Instance = object.Null
	if n.Value != nil {
		inst, err := eval.Eval(st, n.Value)
		if err != nil {
			return nil, err
		}
		v = inst
	}
	return nil, &rqerr.ReturnSignal{Value: v}
}

// execImport always fails with NotImplementedError and binds no names:
// relq has no module system of its own beyond the core/base builtins
// (spec.md's Non-goals exclude a package manager), a deliberate
// narrowing from evaluate.py's file-based import.
func (ex *Executor) execImport(st *state.State, n *ast.Import) error {
	return rqerr.NewNotImplemented(n.Span(), "import %q: relq has no module system beyond its builtins", n.ModuleName)
}
