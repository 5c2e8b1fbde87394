// Package ast defines the syntax tree relq's parser produces and the
// evaluator consumes. Node shapes follow the teacher's
// engine/ast/nodes.go (a Node interface plus one struct per concrete
// form); the specific vocabulary of expressions and statements follows
// original_source/preql/core/pql_ast.py, translated into Go idiom
// (explicit struct fields rather than dataclasses, an interface instead
// of a tagged union).
package ast

import "github.com/relq-lang/relq/rqerr"

// Node is implemented by every AST expression and statement.
type Node interface {
	node()
	Span() rqerr.Span
}

// Expr is a relational or scalar expression.
type Expr interface {
	Node
	expr()
}

// Stmt is a top-level or block-level statement.
type Stmt interface {
	Node
	stmt()
}

type Base struct {
	span rqerr.Span
}

func (b Base) Span() rqerr.Span { return b.span }

func NewBase(span rqerr.Span) Base { return Base{span: span} }

// ---- Expressions ----

type Name struct {
	Base
	Name string
}

func (*Name) node() {}
func (*Name) expr() {}

type Const struct {
	Base
	// Kind is one of "int", "float", "bool", "string", "null".
	Kind  string
	Value any
}

func (*Const) node() {}
func (*Const) expr() {}

// Parameter is a named, typed placeholder bound at query-build time
// (spec.md §4.3.7: left as sql.Parameter at COMPILE, resolved to its
// bound value at EVALUATE and above).
type Parameter struct {
	Base
	Name     string
	TypeExpr Expr
}

func (*Parameter) node() {}
func (*Parameter) expr() {}

type Attr struct {
	Base
	Expr Expr
	Name string
}

func (*Attr) node() {}
func (*Attr) expr() {}

type FuncCall struct {
	Base
	Func   Expr
	Args   []Expr
	Kwargs []NamedField
}

func (*FuncCall) node() {}
func (*FuncCall) expr() {}

// NamedField is `name: value` wherever it occurs: struct literals,
// keyword args, Projection/Dict_ fields.
type NamedField struct {
	Base
	Name        string // "" if positional / unnamed
	Value       Expr
	UserDefined bool // explicit name given by the user, vs. inferred
}

func (*NamedField) node() {}

// BinOpKind enumerates arithmetic, comparison and logical operators.
type BinOpKind string

const (
	OpAdd BinOpKind = "+"
	OpSub BinOpKind = "-"
	OpMul BinOpKind = "*"
	OpDiv BinOpKind = "/"
	OpMod BinOpKind = "%"

	OpEq  BinOpKind = "=="
	OpNe  BinOpKind = "!="
	OpLt  BinOpKind = "<"
	OpLe  BinOpKind = "<="
	OpGt  BinOpKind = ">"
	OpGe  BinOpKind = ">="
	OpIn  BinOpKind = "in"
	OpNIn BinOpKind = "!in"

	OpAnd BinOpKind = "and"
	OpOr  BinOpKind = "or"
)

type BinOp struct {
	Base
	Op          BinOpKind
	Left, Right Expr
}

func (*BinOp) node() {}
func (*BinOp) expr() {}

// Compare models a chained comparison `a op b op c...`, matching
// pql_ast.py's Compare(op, args).
type Compare struct {
	Base
	Op   BinOpKind
	Args []Expr
}

func (*Compare) node() {}
func (*Compare) expr() {}

type Like struct {
	Base
	Expr    Expr
	Pattern Expr
}

func (*Like) node() {}
func (*Like) expr() {}

type Not struct {
	Base
	Expr Expr
}

func (*Not) node() {}
func (*Not) expr() {}

type Neg struct {
	Base
	Expr Expr
}

func (*Neg) node() {}
func (*Neg) expr() {}

// Or models short-circuit logical-or over N operands. Its evaluation
// semantics (spec.md §9 Design Note (b): returns the last inspected
// instance, not a synthesized bool, when every operand tests falsy) live
// in package eval, grounded on evaluate.py's test_nonzero dispatch.
type Or struct {
	Base
	Args []Expr
}

func (*Or) node() {}
func (*Or) expr() {}

type And struct {
	Base
	Args []Expr
}

func (*And) node() {}
func (*And) expr() {}

type List_ struct {
	Base
	Elems []Expr
}

func (*List_) node() {}
func (*List_) expr() {}

type Dict_ struct {
	Base
	Fields []NamedField
}

func (*Dict_) node() {}
func (*Dict_) expr() {}

// Ellipsis is `...` inside a Projection field list, with an optional
// `exclude=[...]` list, matching pql_ast.py's Ellipsis(from_struct, exclude).
type Ellipsis struct {
	Base
	Exclude []string
}

func (*Ellipsis) node() {}
func (*Ellipsis) expr() {}

type DescOrder struct {
	Base
	Value Expr
}

func (*DescOrder) node() {}
func (*DescOrder) expr() {}

// Range is the `a..b` slice bound pair; either side may be nil for an
// open bound.
type Range struct {
	Base
	Start, Stop Expr
}

func (*Range) node() {}
func (*Range) expr() {}

// ---- Relational (table) operations ----

type Selection struct {
	Base
	Table Expr
	Conds []Expr
}

func (*Selection) node() {}
func (*Selection) expr() {}

// Projection carries both plain projected fields and, when grouping,
// the aggregate fields (those after "=>") — matching
// pql_ast.py's Projection(table, fields, groupby, agg_fields).
type Projection struct {
	Base
	Table     Expr
	Fields    []NamedField
	GroupBy   bool
	AggFields []NamedField
}

func (*Projection) node() {}
func (*Projection) expr() {}

type Order struct {
	Base
	Table  Expr
	Fields []Expr
}

func (*Order) node() {}
func (*Order) expr() {}

type Slice struct {
	Base
	Table Expr
	Range Range
}

func (*Slice) node() {}
func (*Slice) expr() {}

// ---- Statements ----

type SetValue struct {
	Base
	Name  string
	Value Expr
}

func (*SetValue) node() {}
func (*SetValue) stmt() {}

// InsertRows is `table += rows_expr`.
type InsertRows struct {
	Base
	Table Expr
	Rows  Expr
}

func (*InsertRows) node() {}
func (*InsertRows) stmt() {}

type Update struct {
	Base
	Table  Expr
	Conds  []Expr
	Fields []NamedField
}

func (*Update) node() {}
func (*Update) stmt() {}

type Delete struct {
	Base
	Table Expr
	Conds []Expr
}

func (*Delete) node() {}
func (*Delete) stmt() {}

// New is `new Table(args...)`, row construction via the table's
// TableConstructor ad-hoc function (spec.md §6 supplement, evaluate.py).
type New struct {
	Base
	Table  Expr
	Args   []Expr
	Kwargs []NamedField
}

func (*New) node() {}
func (*New) expr() {}

// NewRows is `new [Table](list_of_rows_expr)`, bulk row construction.
type NewRows struct {
	Base
	Table Expr
	Rows  Expr
}

func (*NewRows) node() {}
func (*NewRows) expr() {}

type CodeBlock struct {
	Base
	Statements []Stmt
}

func (*CodeBlock) node() {}
func (*CodeBlock) stmt() {}

type If struct {
	Base
	Cond       Expr
	Then, Else Stmt
}

func (*If) node() {}
func (*If) stmt() {}

type For struct {
	Base
	Var  string
	Iter Expr
	Body Stmt
}

func (*For) node() {}
func (*For) stmt() {}

type While struct {
	Base
	Cond Expr
	Body Stmt
}

func (*While) node() {}
func (*While) stmt() {}

// CatchClause pairs an optional exception name (VarName) with a handler
// body for one of the typed error kinds named by KindName (e.g.
// "TypeError", "" for catch-all).
type CatchClause struct {
	KindName string
	VarName  string
	Body     Stmt
}

type Try struct {
	Base
	Body    Stmt
	Catches []CatchClause
}

func (*Try) node() {}
func (*Try) stmt() {}

type Throw struct {
	Base
	KindName string
	Message  Expr
}

func (*Throw) node() {}
func (*Throw) stmt() {}

type Return struct {
	Base
	Value Expr
}

func (*Return) node() {}
func (*Return) stmt() {}

type Print struct {
	Base
	Args []Expr
}

func (*Print) node() {}
func (*Print) stmt() {}

type Assert struct {
	Base
	Cond Expr
}

func (*Assert) node() {}
func (*Assert) stmt() {}

// ColumnDef is one column of a TableDef: Name: TypeExpr [= Default].
type ColumnDef struct {
	Base
	Name     string
	TypeExpr Expr
	Default  Expr
}

type TableDef struct {
	Base
	Name    string
	Columns []ColumnDef
	Methods []*FuncDef
}

func (*TableDef) node() {}
func (*TableDef) stmt() {}

type StructDef struct {
	Base
	Name    string
	Members []ColumnDef
}

func (*StructDef) node() {}
func (*StructDef) stmt() {}

type Param struct {
	Name     string
	TypeExpr Expr
	Default  Expr
}

type FuncDef struct {
	Base
	Name           string
	Params         []Param
	ParamCollector string // variadic/kwargs collector name, "" if none
	Body           Expr
	ReturnType     Expr
}

func (*FuncDef) node() {}
func (*FuncDef) stmt() {}

type Import struct {
	Base
	ModuleName string
	Alias      string
}

func (*Import) node() {}
func (*Import) stmt() {}

// ExprStmt lifts a bare expression (e.g. a table literal evaluated for
// its side effects, or interactively for its value) to statement
// position.
type ExprStmt struct {
	Base
	Expr Expr
}

func (*ExprStmt) node() {}
func (*ExprStmt) stmt() {}
