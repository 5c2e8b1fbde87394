// Package object defines the runtime values the evaluator produces:
// Instance and its specializations, plus the callable Function shapes
// used for user-defined and built-in functions. Grounded on
// original_source/preql/pql_objects.py, translated from Python
// dataclasses into a Go interface plus concrete structs so the
// evaluator can type-switch on the dynamic specialization the way
// Python's isinstance checks do.
package object

import (
	"github.com/relq-lang/relq/rqerr"
	"github.com/relq-lang/relq/sqlir"
	"github.com/relq-lang/relq/types"
)

// Instance is the result of compiling any expression: a fragment of SQL
// IR, its relq type, and the named subquery fragments it depends on
// (spec.md §3: "Instance { code, type, subqueries }"). Every
// specialization below embeds Base and so satisfies this interface.
type Instance interface {
	Code() sqlir.Node
	Type() *types.Type
	Subqueries() map[string]sqlir.Node
}

// Base is the common representation embedded by every specialization.
type Base struct {
	code       sqlir.Node
	typ        *types.Type
	subqueries map[string]sqlir.Node
}

func (b *Base) Code() sqlir.Node                   { return b.code }
func (b *Base) Type() *types.Type                  { return b.typ }
func (b *Base) Subqueries() map[string]sqlir.Node  { return b.subqueries }

// NewBase constructs a Base, merging the subqueries of every
// contributing instance — mirrors pql_objects.py's
// `Instance.make(classname, code, type, insts)`.
func NewBase(code sqlir.Node, t *types.Type, contributing ...Instance) Base {
	return Base{code: code, typ: t, subqueries: MergeSubqueries(contributing...)}
}

// Make builds a plain Instance; used where an expression's result has
// no specialization beyond "some value of type t".
func Make(code sqlir.Node, t *types.Type, contributing ...Instance) Instance {
	b := NewBase(code, t, contributing...)
	return &b
}

// MergeSubqueries unions the subquery maps of each contributing
// instance, later instances' entries winning on name collision (matching
// pql_objects.py's dict union order).
func MergeSubqueries(insts ...Instance) map[string]sqlir.Node {
	out := map[string]sqlir.Node{}
	for _, inst := range insts {
		if inst == nil {
			continue
		}
		for k, v := range inst.Subqueries() {
			out[k] = v
		}
	}
	return out
}

// WithSubquery returns a copy of subqueries with name bound to defn
// added — used by eval's subquery-hoisting helper.
func WithSubquery(subqueries map[string]sqlir.Node, name string, defn sqlir.Node) map[string]sqlir.Node {
	out := make(map[string]sqlir.Node, len(subqueries)+1)
	for k, v := range subqueries {
		out[k] = v
	}
	out[name] = defn
	return out
}

// WithSubqueries returns a copy of b with extra's entries merged in on
// top of its own, extra winning on name collision — used when eval
// hoists an additional subquery after an instance's Base was already
// constructed (e.g. selection/projection/order/slice wrapping their
// source table as a CTE).
func (b Base) WithSubqueries(extra map[string]sqlir.Node) Base {
	merged := make(map[string]sqlir.Node, len(b.subqueries)+len(extra))
	for k, v := range b.subqueries {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return Base{code: b.code, typ: b.typ, subqueries: merged}
}

// ValueInstance is a constant-folded local value: Code is still present
// (so it composes into larger SQL the same way any Instance does) but
// LocalValue carries the concrete Go value for short-circuit evaluation
// and constant folding (spec.md §9 Design Note (a)).
type ValueInstance struct {
	Base
	LocalValue any
}

func NewValue(t *types.Type, code sqlir.Node, local any) *ValueInstance {
	return &ValueInstance{Base: NewBase(code, t), LocalValue: local}
}

// Null is the single shared instance of T.null.
var Null = NewValue(types.TNull, sqlir.Literal{Value: nil}, nil)

// ColumnInstance is one column of a TableInstance.
type ColumnInstance struct {
	Base
	Name string
}

func NewColumn(name string, code sqlir.Node, t *types.Type) *ColumnInstance {
	return &ColumnInstance{Base: NewBase(code, t), Name: name}
}

// TableInstance adds an ordered column map to Instance — spec.md §3:
// "TableInstance adds columns: ordered map name -> ColumnInstance".
type TableInstance struct {
	Base
	ColumnNames []string
	Columns     map[string]*ColumnInstance
}

func NewTable(code sqlir.Node, t *types.Type, columns map[string]*ColumnInstance, order []string, contributing ...Instance) *TableInstance {
	return &TableInstance{
		Base:        NewBase(code, t, contributing...),
		ColumnNames: order,
		Columns:     columns,
	}
}

// PrimaryKey returns the instance's identity column ("id" by
// convention, spec.md §4.3.3's implicit-id-PK note), used whenever a
// struct/row value needs collapsing to a single comparable/orderable
// scalar.
func (ti *TableInstance) PrimaryKey() *ColumnInstance {
	return ti.Columns["id"]
}

// StructInstance is a struct-typed value composed of named member
// instances, not bound to a concrete row set.
type StructInstance struct {
	Base
	FieldNames []string
	Fields     map[string]Instance
}

func NewStruct(t *types.Type, fields map[string]Instance, order []string) *StructInstance {
	all := make([]Instance, 0, len(fields))
	for _, f := range fields {
		all = append(all, f)
	}
	return &StructInstance{
		Base:       NewBase(sqlir.Raw(""), t, all...),
		FieldNames: order,
		Fields:     fields,
	}
}

// RowInstance is a single materialized row: like StructInstance, but
// typed `row[T]` rather than `struct` (spec.md §3, §4.1's row[T] <= struct).
type RowInstance struct {
	Base
	FieldNames []string
	Fields     map[string]Instance
}

func NewRow(t *types.Type, fields map[string]Instance, order []string) *RowInstance {
	all := make([]Instance, 0, len(fields))
	for _, f := range fields {
		all = append(all, f)
	}
	return &RowInstance{
		Base:       NewBase(sqlir.Raw(""), t, all...),
		FieldNames: order,
		Fields:     fields,
	}
}

// PrimaryKey collapses the row to its "id" member, if present, for use
// in comparisons against another row or a raw number.
func (r *RowInstance) PrimaryKey() Instance {
	return r.Fields["id"]
}

// ListInstance is a `list[T]` value built from literal elements (spec.md
// §4.3.4's `ast.List_`), not backed by a table.
type ListInstance struct {
	Base
	Elems []Instance
}

func NewList(t *types.Type, elems []Instance, code sqlir.Node) *ListInstance {
	return &ListInstance{Base: NewBase(code, t, elems...), Elems: elems}
}

// ---- Functions ----

// Param is one formal parameter of a Function.
type Param struct {
	Name    string
	Type    *types.Type
	HasDflt bool
	Default any
}

// Function is implemented by both UserFunction and InternalFunction —
// mirrors pql_objects.py's Function base class and its match_params
// algorithm (positional args up to the first keyword arg, then named
// binding, with an optional collector for the rest).
type Function interface {
	FuncName() string
	Params() []Param
	Collector() string // "" if the function takes no variadic/kwargs tail
}

// UserFunction is a relq-language function: a name, its formal
// parameters and a body expression evaluated in a fresh scope.
type UserFunction struct {
	Name           string
	ParamList      []Param
	ParamCollector string
	Body           any // the function's ast.Expr body, held untyped
}

func (f *UserFunction) FuncName() string  { return f.Name }
func (f *UserFunction) Params() []Param   { return f.ParamList }
func (f *UserFunction) Collector() string { return f.ParamCollector }

// InternalFunction wraps a Go closure implementing a relq built-in.
type InternalFunction struct {
	Name           string
	ParamList      []Param
	ParamCollector string
	Impl           func(args map[string]Instance) (Instance, error)
}

func (f *InternalFunction) FuncName() string  { return f.Name }
func (f *InternalFunction) Params() []Param   { return f.ParamList }
func (f *InternalFunction) Collector() string { return f.ParamCollector }

// MatchParams binds positional and keyword arguments to a Function's
// formal parameters, after pql_objects.py's `match_params`: positional
// args bind to params in order (more positional args than params is a
// TypeError unless the function has a collector), then keyword args
// bind by name (an unknown name is a TypeError unless the function has
// a collector), then params still unbound take their default if they
// have one. A param left unbound with no default is absent from the
// result rather than reported, and the collector name itself is never
// bound: surplus positional args and unknown keyword args are dropped.
func MatchParams(fn Function, posArgs []Instance, kwArgs map[string]Instance) (map[string]Instance, error) {
	params := fn.Params()
	bound := make(map[string]Instance, len(params))
	if len(posArgs) > len(params) && fn.Collector() == "" {
		return nil, errTooManyArgs(fn)
	}
	for i, p := range params {
		if i < len(posArgs) {
			bound[p.Name] = posArgs[i]
		}
	}
	for name, v := range kwArgs {
		found := false
		for _, p := range params {
			if p.Name == name {
				bound[name] = v
				found = true
				break
			}
		}
		if !found && fn.Collector() == "" {
			return nil, errUnknownArg(fn, name)
		}
	}
	for _, p := range params {
		if _, ok := bound[p.Name]; !ok && p.HasDflt {
			bound[p.Name] = Make(sqlir.Literal{Value: p.Default}, p.Type)
		}
	}
	return bound, nil
}

func errTooManyArgs(fn Function) error {
	return rqerr.NewTypeError(rqerr.Span{}, "%s() takes %d argument(s)", fn.FuncName(), len(fn.Params()))
}

func errUnknownArg(fn Function, name string) error {
	return rqerr.NewTypeError(rqerr.Span{}, "%s() got an unexpected keyword argument %q", fn.FuncName(), name)
}
