// Package builtins implements relq's built-in function library: casts,
// aggregates, collection set operations and string helpers invoked by
// name from user code or synthesized internally by the evaluator (e.g.
// an `ast.BinOp` `*` between a string and an int routes to "repeat",
// `in` on two strings routes to "str_contains"). Grounded on the built-in
// call sites scattered through original_source/preql/compiler.py
// (`repeat`, `str_contains`, `str_notcontains`, and the `+`/`&`/`|`/`-`
// routing for collection arithmetic to `concat`/`intersect`/`union`/
// `subtract`), and on the aggregate-function vocabulary in the
// teacher's `mapping/operations.go` DQL group (COUNT/SUM/AVG/MIN/MAX).
package builtins

import (
	"github.com/relq-lang/relq/object"
	"github.com/relq-lang/relq/rqerr"
	"github.com/relq-lang/relq/sqlir"
	"github.com/relq-lang/relq/types"
)

// Registry maps a built-in name to its implementation. The evaluator
// looks functions up here after failing to find them in the current
// Namespace, mirroring interp_common.py's State.get_var fallback to
// `__builtins__`.
var Registry = map[string]*object.InternalFunction{}

func register(fn *object.InternalFunction) { Registry[fn.Name] = fn }

func init() {
	registerAggregates()
	registerStringOps()
	registerCollectionOps()
}

// ---- Aggregates. Each compiles to the SQL aggregate of the same name
// over its one argument. count's result type is int and avg's is float;
// sum/min/max keep the argument's type as given (an aggregate[T]
// argument is not unwrapped). ----

func registerAggregates() {
	for _, name := range []string{"count", "sum", "avg", "min", "max"} {
		name := name
		register(&object.InternalFunction{
			Name:      name,
			ParamList: []object.Param{{Name: "value"}},
			Impl: func(args map[string]object.Instance) (object.Instance, error) {
				v := args["value"]
				if v == nil {
					return nil, rqerr.NewValueError(rqerr.Span{}, "%s() requires one argument", name)
				}
				resultType := v.Type()
				sqlName := name
				switch name {
				case "count":
					resultType = types.TInt
					sqlName = "COUNT"
				case "sum", "min", "max":
					sqlName = map[string]string{"sum": "SUM", "min": "MIN", "max": "MAX"}[name]
				case "avg":
					resultType = types.TFloat
					sqlName = "AVG"
				}
				code := sqlir.FuncCallExpr{Name: sqlName, Args: []sqlir.Node{v.Code()}}
				return object.Make(code, resultType, v), nil
			},
		})
	}
}

// ---- String built-ins ----

func registerStringOps() {
	register(&object.InternalFunction{
		Name:      "str_contains",
		ParamList: []object.Param{{Name: "haystack"}, {Name: "needle"}},
		Impl: func(args map[string]object.Instance) (object.Instance, error) {
			h, n := args["haystack"], args["needle"]
			like := sqlir.LikeExpr{Expr: h.Code(), Pattern: concatWildcards(n.Code())}
			return object.Make(like, types.TBool, h, n), nil
		},
	})
	register(&object.InternalFunction{
		Name:      "str_notcontains",
		ParamList: []object.Param{{Name: "haystack"}, {Name: "needle"}},
		Impl: func(args map[string]object.Instance) (object.Instance, error) {
			h, n := args["haystack"], args["needle"]
			like := sqlir.NotExpr{Expr: sqlir.LikeExpr{Expr: h.Code(), Pattern: concatWildcards(n.Code())}}
			return object.Make(like, types.TBool, h, n), nil
		},
	})
	// repeat(s, n): string * int, grounded on compiler.py's `_compile_arith`
	// routing `string/int -> *` to the "repeat" builtin.
	register(&object.InternalFunction{
		Name:      "repeat",
		ParamList: []object.Param{{Name: "s"}, {Name: "n"}},
		Impl: func(args map[string]object.Instance) (object.Instance, error) {
			s, n := args["s"], args["n"]
			code := sqlir.FuncCallExpr{Name: "REPEAT", Args: []sqlir.Node{s.Code(), n.Code()}}
			return object.Make(code, types.TString, s, n), nil
		},
	})
}

func concatWildcards(pattern sqlir.Node) sqlir.Node {
	return sqlir.FuncCallExpr{Name: "CONCAT", Args: []sqlir.Node{
		sqlir.Literal{Value: "%"}, pattern, sqlir.Literal{Value: "%"},
	}}
}

// ---- Collection set operations (compiler.py's `_compile_arith`
// collection/collection routing: + -> concat, & -> intersect,
// | -> union, - -> subtract). ----

func registerCollectionOps() {
	register(setOpFn("concat", sqlir.UnionAll))
	register(setOpFn("union", sqlir.Union))
	register(setOpFn("intersect", sqlir.Intersect))
	register(setOpFn("subtract", sqlir.Except))
}

func setOpFn(name string, kind sqlir.SetOpKind) *object.InternalFunction {
	return &object.InternalFunction{
		Name:      name,
		ParamList: []object.Param{{Name: "a"}, {Name: "b"}},
		Impl: func(args map[string]object.Instance) (object.Instance, error) {
			a, b := args["a"], args["b"]
			if !a.Type().LE(types.TColl) || !b.Type().LE(types.TColl) {
				return nil, rqerr.NewTypeError(rqerr.Span{}, "%s() requires two collections", name)
			}
			code := sqlir.SetOp{Kind: kind, Left: a.Code(), Right: b.Code()}
			return object.Make(code, a.Type(), a, b), nil
		},
	}
}

// Lookup retrieves a built-in by name, used by eval.FuncCall resolution
// after Namespace lookup misses.
func Lookup(name string) (*object.InternalFunction, bool) {
	fn, ok := Registry[name]
	return fn, ok
}
