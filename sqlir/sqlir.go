// Package sqlir is the provider-neutral SQL intermediate representation
// (spec.md §4.2): the evaluator lowers relational Instances into this
// tree, and a per-dialect renderer turns it into query text plus bound
// arguments. Node shapes are adapted from the teacher's protobuf-backed
// engine/builders/postgres/builders.go onto plain Go structs (the
// teacher's wire IR package, utilities/proto, is not present in the
// retrieval pack — see DESIGN.md), keeping its parameterized-WHERE-clause
// idiom (positional args accumulated alongside the SQL text) rather than
// builders.go's literal-substitution style, since relq binds real
// parameters rather than string-splicing them.
package sqlir

import (
	"fmt"
	"strings"
)

// Dialect selects the rendering rules for identifiers, placeholders and
// column types.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
	MySQL
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// Quote renders a quoted identifier for this dialect.
func (d Dialect) Quote(ident string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Ctx accumulates rendering state across one Render call: the dialect,
// bound argument values (in emission order) and the named subquery
// fragments available for hoisting (spec.md §4.3: "subquery hoisting via
// a named map of CTE-like fragments merged across composed instances").
type Ctx struct {
	Dialect    Dialect
	Args       []any
	Subqueries map[string]Node
}

func NewCtx(d Dialect, subqueries map[string]Node) *Ctx {
	return &Ctx{Dialect: d, Subqueries: subqueries}
}

func (c *Ctx) bind(v any) string {
	c.Args = append(c.Args, v)
	if c.Dialect == Postgres {
		return fmt.Sprintf("$%d", len(c.Args))
	}
	return "?"
}

// Node is implemented by every SQL IR fragment.
type Node interface {
	SQL(ctx *Ctx) string
}

// Render renders a top-level node to query text and its bound args.
func Render(dialect Dialect, subqueries map[string]Node, n Node) (string, []any) {
	ctx := NewCtx(dialect, subqueries)
	return n.SQL(ctx), ctx.Args
}

// ---- Leaves ----

// Literal is a bound scalar value (int64, float64, bool, string, nil).
type Literal struct{ Value any }

func (l Literal) SQL(ctx *Ctx) string { return ctx.bind(l.Value) }

// Raw is an escape hatch for text the builder already knows is safe
// (e.g. a column type keyword); never user data.
type Raw string

func (r Raw) SQL(*Ctx) string { return string(r) }

// ColumnRef is `table.column`, or a bare `column` when Table == "".
type ColumnRef struct{ Table, Column string }

func (c ColumnRef) SQL(ctx *Ctx) string {
	if c.Table == "" {
		return ctx.Dialect.Quote(c.Column)
	}
	return ctx.Dialect.Quote(c.Table) + "." + ctx.Dialect.Quote(c.Column)
}

// TableRef names a physical table, with an optional alias.
type TableRef struct{ Name, Alias string }

func (t TableRef) SQL(ctx *Ctx) string {
	s := ctx.Dialect.Quote(t.Name)
	if t.Alias != "" {
		s += " AS " + ctx.Dialect.Quote(t.Alias)
	}
	return s
}

// SubqueryRef points at a hoisted fragment by name, rendered as a CTE
// reference rather than inlined — the evaluator never nests subqueries.
type SubqueryRef struct{ Name string }

func (s SubqueryRef) SQL(ctx *Ctx) string { return ctx.Dialect.Quote(s.Name) }

// Parameter is an as-yet-unbound placeholder (spec.md §4.3.7: a
// Parameter compiled at COMPILE access stays abstract until a concrete
// value is supplied).
type Parameter struct{ Name string }

func (p Parameter) SQL(ctx *Ctx) string {
	// A Parameter reaching render time with no bound value is a defect in
	// the caller (every Parameter must be resolved to a Literal by
	// EVALUATE access); render it as NULL rather than panic so a stray
	// COMPILE-only pipeline still produces inspectable SQL.
	return ctx.bind(nil)
}

// ---- Operators ----

type BinExpr struct {
	Op          string
	Left, Right Node
}

func (b BinExpr) SQL(ctx *Ctx) string {
	return "(" + b.Left.SQL(ctx) + " " + b.Op + " " + b.Right.SQL(ctx) + ")"
}

type CompareExpr struct {
	Op          string
	Left, Right Node
}

func (c CompareExpr) SQL(ctx *Ctx) string {
	return c.Left.SQL(ctx) + " " + c.Op + " " + c.Right.SQL(ctx)
}

type LikeExpr struct {
	Expr, Pattern Node
	CaseSensitive bool
}

func (l LikeExpr) SQL(ctx *Ctx) string {
	op := "LIKE"
	if !l.CaseSensitive && ctx.Dialect == Postgres {
		op = "ILIKE"
	}
	return l.Expr.SQL(ctx) + " " + op + " " + l.Pattern.SQL(ctx)
}

type NotExpr struct{ Expr Node }

func (n NotExpr) SQL(ctx *Ctx) string { return "NOT (" + n.Expr.SQL(ctx) + ")" }

type NegExpr struct{ Expr Node }

func (n NegExpr) SQL(ctx *Ctx) string { return "(-" + n.Expr.SQL(ctx) + ")" }

type AndExpr struct{ Args []Node }

func (a AndExpr) SQL(ctx *Ctx) string { return joinBool(ctx, a.Args, "AND") }

type OrExpr struct{ Args []Node }

func (o OrExpr) SQL(ctx *Ctx) string { return joinBool(ctx, o.Args, "OR") }

func joinBool(ctx *Ctx, args []Node, op string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.SQL(ctx)
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")"
}

type InExpr struct {
	Expr Node
	List []Node
	Not  bool
}

func (in InExpr) SQL(ctx *Ctx) string {
	parts := make([]string, len(in.List))
	for i, e := range in.List {
		parts[i] = e.SQL(ctx)
	}
	op := "IN"
	if in.Not {
		op = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", in.Expr.SQL(ctx), op, strings.Join(parts, ", "))
}

type InSubquery struct {
	Expr     Node
	Subquery Node
	Not      bool
}

func (in InSubquery) SQL(ctx *Ctx) string {
	op := "IN"
	if in.Not {
		op = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", in.Expr.SQL(ctx), op, in.Subquery.SQL(ctx))
}

type BetweenExpr struct {
	Expr, Lo, Hi Node
	Not          bool
}

func (b BetweenExpr) SQL(ctx *Ctx) string {
	op := "BETWEEN"
	if b.Not {
		op = "NOT BETWEEN"
	}
	return fmt.Sprintf("%s %s %s AND %s", b.Expr.SQL(ctx), op, b.Lo.SQL(ctx), b.Hi.SQL(ctx))
}

type IsNull struct {
	Expr Node
	Not  bool
}

func (n IsNull) SQL(ctx *Ctx) string {
	if n.Not {
		return n.Expr.SQL(ctx) + " IS NOT NULL"
	}
	return n.Expr.SQL(ctx) + " IS NULL"
}

// FuncCallExpr is a scalar/aggregate SQL function invocation:
// COUNT(x), UPPER(x), SUBSTR(x, a, b)...
type FuncCallExpr struct {
	Name     string
	Args     []Node
	Distinct bool
}

func (f FuncCallExpr) SQL(ctx *Ctx) string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.SQL(ctx)
	}
	prefix := ""
	if f.Distinct {
		prefix = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", f.Name, prefix, strings.Join(parts, ", "))
}

// CaseExpr renders CASE WHEN ... THEN ... ELSE ... END.
type CaseExpr struct {
	Whens []CaseWhen
	Else  Node
}

type CaseWhen struct{ Cond, Then Node }

func (c CaseExpr) SQL(ctx *Ctx) string {
	var sb strings.Builder
	sb.WriteString("CASE")
	for _, w := range c.Whens {
		sb.WriteString(" WHEN ")
		sb.WriteString(w.Cond.SQL(ctx))
		sb.WriteString(" THEN ")
		sb.WriteString(w.Then.SQL(ctx))
	}
	if c.Else != nil {
		sb.WriteString(" ELSE ")
		sb.WriteString(c.Else.SQL(ctx))
	}
	sb.WriteString(" END")
	return sb.String()
}

// ---- DQL ----

type OrderDir int

const (
	Asc OrderDir = iota
	Desc
)

type OrderItem struct {
	Expr Node
	Dir  OrderDir
}

type SelectCol struct {
	Expr  Node
	Alias string
}

type JoinKind string

const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
	RightJoin JoinKind = "RIGHT JOIN"
	FullJoin  JoinKind = "FULL OUTER JOIN"
	CrossJoin JoinKind = "CROSS JOIN"
)

type JoinClause struct {
	Kind  JoinKind
	Table Node
	On    Node
}

// Select is the workhorse DQL node, covering plain projection,
// selection, grouping, ordering and windowing — spec.md §4.2's single
// renderer entry point for lazy relational expressions.
type Select struct {
	Columns  []SelectCol
	From     Node
	Joins    []JoinClause
	Where    Node
	GroupBy  []Node // positional (1-based ordinal) or expression
	Having   Node
	OrderBy  []OrderItem
	Limit    *int
	Offset   *int
	Distinct bool
}

func (s Select) SQL(ctx *Ctx) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}
	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		col := c.Expr.SQL(ctx)
		if c.Alias != "" {
			col += " AS " + ctx.Dialect.Quote(c.Alias)
		}
		cols[i] = col
	}
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	sb.WriteString(strings.Join(cols, ", "))
	if s.From != nil {
		sb.WriteString(" FROM ")
		sb.WriteString(s.From.SQL(ctx))
	}
	for _, j := range s.Joins {
		sb.WriteString(" ")
		sb.WriteString(string(j.Kind))
		sb.WriteString(" ")
		sb.WriteString(j.Table.SQL(ctx))
		if j.On != nil {
			sb.WriteString(" ON ")
			sb.WriteString(j.On.SQL(ctx))
		}
	}
	if s.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(s.Where.SQL(ctx))
	}
	if len(s.GroupBy) > 0 {
		parts := make([]string, len(s.GroupBy))
		for i, g := range s.GroupBy {
			parts[i] = g.SQL(ctx)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	if s.Having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(s.Having.SQL(ctx))
	}
	if len(s.OrderBy) > 0 {
		parts := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			d := "ASC"
			if o.Dir == Desc {
				d = "DESC"
			}
			parts[i] = o.Expr.SQL(ctx) + " " + d
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	if s.Limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", *s.Limit))
	}
	if s.Offset != nil {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", *s.Offset))
	}
	return sb.String()
}

// With renders one or more hoisted subqueries as leading CTEs ahead of
// Body — the concrete form of the evaluator's named-subquery map.
type With struct {
	Names []string // in dependency order
	Defs  map[string]Node
	Body  Node
}

func (w With) SQL(ctx *Ctx) string {
	if len(w.Names) == 0 {
		return w.Body.SQL(ctx)
	}
	var sb strings.Builder
	sb.WriteString("WITH ")
	parts := make([]string, len(w.Names))
	for i, name := range w.Names {
		parts[i] = fmt.Sprintf("%s AS (%s)", ctx.Dialect.Quote(name), w.Defs[name].SQL(ctx))
	}
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString(" ")
	sb.WriteString(w.Body.SQL(ctx))
	return sb.String()
}

type SetOpKind string

const (
	Union     SetOpKind = "UNION"
	UnionAll  SetOpKind = "UNION ALL"
	Intersect SetOpKind = "INTERSECT"
	Except    SetOpKind = "EXCEPT"
)

type SetOp struct {
	Kind        SetOpKind
	Left, Right Node
}

func (s SetOp) SQL(ctx *Ctx) string {
	return s.Left.SQL(ctx) + " " + string(s.Kind) + " " + s.Right.SQL(ctx)
}

// MakeArray constructs a literal in-memory list, used for `T.list`
// values that never round-trip through a table — rendered as a VALUES
// row set so it composes with IN/subquery positions uniformly across
// dialects.
type MakeArray struct{ Elems []Node }

func (m MakeArray) SQL(ctx *Ctx) string {
	parts := make([]string, len(m.Elems))
	for i, e := range m.Elems {
		parts[i] = "(" + e.SQL(ctx) + ")"
	}
	return "VALUES " + strings.Join(parts, ", ")
}

type StringSlice struct {
	Expr       Node
	Start, Len Node // Len may be nil for "to the end"
}

func (s StringSlice) SQL(ctx *Ctx) string {
	if s.Len == nil {
		return fmt.Sprintf("SUBSTR(%s, %s)", s.Expr.SQL(ctx), s.Start.SQL(ctx))
	}
	return fmt.Sprintf("SUBSTR(%s, %s, %s)", s.Expr.SQL(ctx), s.Start.SQL(ctx), s.Len.SQL(ctx))
}

// ---- DML ----

type Insert struct {
	Table   string
	Columns []string
	Values  [][]Node
}

func (ins Insert) SQL(ctx *Ctx) string {
	cols := make([]string, len(ins.Columns))
	for i, c := range ins.Columns {
		cols[i] = ctx.Dialect.Quote(c)
	}
	rows := make([]string, len(ins.Values))
	for i, row := range ins.Values {
		vals := make([]string, len(row))
		for j, v := range row {
			vals[j] = v.SQL(ctx)
		}
		rows[i] = "(" + strings.Join(vals, ", ") + ")"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		ctx.Dialect.Quote(ins.Table), strings.Join(cols, ", "), strings.Join(rows, ", "))
}

type SetClause struct {
	Column string
	Value  Node
}

type Update struct {
	Table string
	Set   []SetClause
	Where Node
}

func (u Update) SQL(ctx *Ctx) string {
	parts := make([]string, len(u.Set))
	for i, s := range u.Set {
		parts[i] = ctx.Dialect.Quote(s.Column) + " = " + s.Value.SQL(ctx)
	}
	q := fmt.Sprintf("UPDATE %s SET %s", ctx.Dialect.Quote(u.Table), strings.Join(parts, ", "))
	if u.Where != nil {
		q += " WHERE " + u.Where.SQL(ctx)
	}
	return q
}

type Delete struct {
	Table string
	Where Node
}

func (d Delete) SQL(ctx *Ctx) string {
	q := "DELETE FROM " + ctx.Dialect.Quote(d.Table)
	if d.Where != nil {
		q += " WHERE " + d.Where.SQL(ctx)
	}
	return q
}

// ---- DDL ----

type ColumnSpec struct {
	Name       string
	TypeName   string // already translated to the target dialect's SQL type
	PrimaryKey bool
	NotNull    bool
	Unique     bool
	Default    Node
}

type CreateTable struct {
	Name      string
	Columns   []ColumnSpec
	Temporary bool
	IfNoExist bool
}

func (c CreateTable) SQL(ctx *Ctx) string {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if c.Temporary {
		sb.WriteString("TEMPORARY ")
	}
	sb.WriteString("TABLE ")
	if c.IfNoExist {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(ctx.Dialect.Quote(c.Name))
	sb.WriteString(" (")
	parts := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		s := ctx.Dialect.Quote(col.Name) + " " + col.TypeName
		if col.PrimaryKey {
			s += " PRIMARY KEY"
		}
		if col.NotNull && !col.PrimaryKey {
			s += " NOT NULL"
		}
		if col.Unique {
			s += " UNIQUE"
		}
		if col.Default != nil {
			s += " DEFAULT " + col.Default.SQL(ctx)
		}
		parts[i] = s
	}
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString(")")
	return sb.String()
}

type DropTable struct {
	Name     string
	IfExists bool
}

func (d DropTable) SQL(ctx *Ctx) string {
	q := "DROP TABLE "
	if d.IfExists {
		q += "IF EXISTS "
	}
	return q + ctx.Dialect.Quote(d.Name)
}

type CreateIndex struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

func (c CreateIndex) SQL(ctx *Ctx) string {
	q := "CREATE "
	if c.Unique {
		q += "UNIQUE "
	}
	cols := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		cols[i] = ctx.Dialect.Quote(col)
	}
	return q + fmt.Sprintf("INDEX %s ON %s (%s)", ctx.Dialect.Quote(c.Name), ctx.Dialect.Quote(c.Table), strings.Join(cols, ", "))
}

// LastRowId renders the dialect-specific "row id of the last insert"
// expression. db.DB.LastRowID does not use it: it reports the id the
// driver returned for the last INSERT.
func LastRowId(d Dialect) string {
	switch d {
	case Postgres:
		return "LASTVAL()"
	case MySQL:
		return "LAST_INSERT_ID()"
	default:
		return "last_insert_rowid()"
	}
}
