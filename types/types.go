// Package types implements the relq type lattice described in spec.md
// §3 and §4.1: primitive, container, struct/row, aggregate and union
// types, with a reflexive-transitive subtype relation `<=` used at every
// evaluator dispatch site. Grounded on the dispatch-table idiom of the
// teacher's mapping package (type-name tables keyed per dialect) and on
// the `T.int <= T.number <= T.object` lattice sketched throughout
// original_source/preql's compiler.go and evaluate.py.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags a Type's shape. A handful of kinds (Number, Collection) exist
// only as abstract supertypes used on the right-hand side of a subtype
// check — no value ever carries them directly.
type Kind int

const (
	Null Kind = iota
	Int
	Float
	Bool
	String
	TypeKind // the type of types themselves ("type" primitive)
	Object   // top of the whole lattice
	Number   // abstract: int, float
	List
	Set
	Table
	Row
	Struct
	Collection // abstract: list, set, table
	Aggregate
	Union
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case String:
		return "string"
	case TypeKind:
		return "type"
	case Object:
		return "object"
	case Number:
		return "number"
	case List:
		return "list"
	case Set:
		return "set"
	case Table:
		return "table"
	case Row:
		return "row"
	case Struct:
		return "struct"
	case Collection:
		return "collection"
	case Aggregate:
		return "aggregate"
	case Union:
		return "union"
	}
	return "?"
}

// Field is one named, ordered member of a Struct or Table type.
type Field struct {
	Name string
	Type *Type
}

// Type is a first-class, immutable value in relq. Construct with the
// factory functions below rather than composite literals, so invariants
// (ordered fields, canonical kind) stay centralized.
type Type struct {
	Kind Kind

	// Name gives named types (tables, structs) a stable identity (spec.md
	// §3 invariant: "every named type has a stable identity"). Empty for
	// anonymous types (e.g. a projection's result, or abstract kinds).
	Name string

	// Elem is the parameter of a unary parametric type: List[Elem],
	// Set[Elem], Aggregate[Elem], Row[Elem].
	Elem *Type

	// Fields holds Struct/Table members in declaration order.
	Fields []Field

	// Members holds a Union's alternatives.
	Members []*Type

	// Options carries annotations: "temporary" (bool), "nullable" (bool),
	// "name" (string) — spec.md §4.1: "t.options (annotations like
	// temporary, name, nullable)".
	Options map[string]any
}

func prim(k Kind) *Type { return &Type{Kind: k} }

var (
	TNull   = prim(Null)
	TInt    = prim(Int)
	TFloat  = prim(Float)
	TBool   = prim(Bool)
	TString = prim(String)
	TType   = prim(TypeKind)
	TObject = prim(Object)
	TNumber = prim(Number)
	TColl   = prim(Collection)
)

func TList(elem *Type) *Type { return &Type{Kind: List, Elem: elem} }
func TSet(elem *Type) *Type  { return &Type{Kind: Set, Elem: elem} }

// TTable constructs an anonymous table type with the given ordered
// columns. Use WithName to give it a stable identity.
func TTable(fields ...Field) *Type {
	return &Type{Kind: Table, Fields: fields}
}

// TStruct constructs an anonymous struct type with the given ordered
// fields.
func TStruct(fields ...Field) *Type {
	return &Type{Kind: Struct, Fields: fields}
}

// TRow wraps a materialized single row of a table/struct type.
func TRow(inner *Type) *Type { return &Type{Kind: Row, Elem: inner} }

// TAggregate wraps a value as a vector inside a GROUP BY scope (spec.md
// §4.3, §9: "aggregate[T] is sibling to T, not a subtype").
func TAggregate(elem *Type) *Type { return &Type{Kind: Aggregate, Elem: elem} }

// TUnion builds the meta-type used for type-checking assertions:
// `x <= union[A,B]` iff `x <= A || x <= B`.
func TUnion(members ...*Type) *Type { return &Type{Kind: Union, Members: members} }

// WithName returns a copy of t carrying a stable name identity.
func (t *Type) WithName(name string) *Type {
	cp := *t
	cp.Name = name
	return &cp
}

// WithOption returns a copy of t with option key set to value.
func (t *Type) WithOption(key string, value any) *Type {
	cp := *t
	cp.Options = make(map[string]any, len(t.Options)+1)
	for k, v := range t.Options {
		cp.Options[k] = v
	}
	cp.Options[key] = value
	return &cp
}

func (t *Type) Option(key string) (any, bool) {
	v, ok := t.Options[key]
	return v, ok
}

func (t *Type) IsTemporary() bool {
	v, _ := t.Option("temporary")
	b, _ := v.(bool)
	return b
}

func (t *Type) IsNullable() bool {
	v, _ := t.Option("nullable")
	b, _ := v.(bool)
	return b
}

// Field looks up a struct/table member by name.
func (t *Type) Field(name string) (*Type, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Elems enumerates the member names of a struct/table/row type, in
// declaration order — spec.md §4.1: "Enumeration of structural members
// (elems)".
func (t *Type) Elems() []string {
	switch t.Kind {
	case Struct, Table:
		names := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			names[i] = f.Name
		}
		return names
	case Row:
		return t.Elem.Elems()
	}
	return nil
}

// FlatField is one leaf of a flattened struct/table type, used for
// column aliasing and row destructuring (spec.md §4.1).
type FlatField struct {
	Path []string
	Leaf *Type
}

// Flatten walks a struct/table/row type down to its primitive leaves.
// Nested structs contribute a dotted path; everything else is a single
// leaf under its own name.
func Flatten(t *Type) []FlatField {
	switch t.Kind {
	case Row:
		return Flatten(t.Elem)
	case Struct, Table:
		var out []FlatField
		for _, f := range t.Fields {
			if f.Type.Kind == Struct {
				for _, sub := range Flatten(f.Type) {
					out = append(out, FlatField{Path: append([]string{f.Name}, sub.Path...), Leaf: sub.Leaf})
				}
			} else {
				out = append(out, FlatField{Path: []string{f.Name}, Leaf: f.Type})
			}
		}
		return out
	default:
		return []FlatField{{Leaf: t}}
	}
}

// LE implements the subtype relation `t <= u` of spec.md §4.1.
func (t *Type) LE(u *Type) bool {
	if t == nil || u == nil {
		return false
	}
	if u.Kind == Object {
		return true // object is the top of the lattice
	}
	if u.Kind == Union {
		for _, m := range u.Members {
			if t.LE(m) {
				return true
			}
		}
		return false
	}

	switch t.Kind {
	case Aggregate:
		// aggregate[T] is sibling to T, never its subtype, except
		// covariantly to another aggregate and to the top type (handled
		// above).
		if u.Kind == Aggregate {
			return t.Elem.LE(u.Elem)
		}
		return false
	case Row:
		if u.Kind == Struct {
			return rowLEStruct(t, u)
		}
		if u.Kind == Row {
			return t.Elem.LE(u.Elem)
		}
		return identical(t, u)
	}

	switch u.Kind {
	case Number:
		return t.Kind == Int || t.Kind == Float || t.Kind == Number
	case Collection:
		return t.Kind == List || t.Kind == Set || t.Kind == Table || t.Kind == Collection
	case List, Set:
		return t.Kind == u.Kind && t.Elem.LE(u.Elem)
	case Struct:
		return structLEStruct(t, u)
	case Table:
		return tableLETable(t, u)
	}

	return identical(t, u)
}

// rowLEStruct holds per spec.md §4.1: "row[T] ≤ struct".
func rowLEStruct(row, strct *Type) bool {
	return structLEStruct(row.Elem, strct)
}

func structLEStruct(t, u *Type) bool {
	if t.Kind != Struct && t.Kind != Table {
		return false
	}
	if u.Name != "" && t.Name == u.Name {
		return true
	}
	if len(u.Fields) == 0 {
		return true // bare `struct`/`table` generic used as a kind check
	}
	for _, uf := range u.Fields {
		tf, ok := t.Field(uf.Name)
		if !ok || !tf.LE(uf.Type) {
			return false
		}
	}
	return true
}

func tableLETable(t, u *Type) bool {
	if t.Kind != Table {
		return false
	}
	if u.Name != "" {
		return t.Name == u.Name
	}
	if len(u.Fields) == 0 {
		return true
	}
	for _, uf := range u.Fields {
		tf, ok := t.Field(uf.Name)
		if !ok || !tf.LE(uf.Type) {
			return false
		}
	}
	return true
}

func identical(t, u *Type) bool {
	if t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case List, Set, Aggregate:
		return t.Elem.LE(u.Elem) && u.Elem.LE(t.Elem)
	case Row:
		return t.Elem.LE(u.Elem) && u.Elem.LE(t.Elem)
	case Struct, Table:
		if t.Name != "" || u.Name != "" {
			return t.Name == u.Name
		}
		return structLEStruct(t, u) && structLEStruct(u, t)
	default:
		return true
	}
}

// Apply implements generic application T[X]: List[X], Set[X], etc. —
// spec.md §4.1: "a type error if T takes no arg", surfaced here as
// (nil, false).
func Apply(generic *Type, arg *Type) (*Type, bool) {
	switch generic.Kind {
	case List:
		return TList(arg), true
	case Set:
		return TSet(arg), true
	case Aggregate:
		return TAggregate(arg), true
	}
	return nil, false
}

// String renders a canonical representation, used in diagnostics.
func (t *Type) String() string {
	switch t.Kind {
	case List, Set, Aggregate:
		return fmt.Sprintf("%s[%s]", t.Kind, t.Elem)
	case Row:
		return fmt.Sprintf("row[%s]", t.Elem)
	case Union:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}
		return fmt.Sprintf("union[%s]", strings.Join(parts, ", "))
	case Struct, Table:
		if t.Name != "" {
			return t.Name
		}
		names := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			names[i] = f.Name + ": " + f.Type.String()
		}
		sort.Strings(names)
		return fmt.Sprintf("%s{%s}", t.Kind, strings.Join(names, ", "))
	default:
		return t.Kind.String()
	}
}

// Equal is exact equality (both directions of LE), convenient for tests
// and for the `type == type` comparison of spec.md §4.3.4.
func Equal(a, b *Type) bool { return a.LE(b) && b.LE(a) }
