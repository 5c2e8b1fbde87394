// Package state holds the interpreter's run-time context: the lexical
// scope stack (Namespace), the access-level ceiling that gates database
// I/O during compilation, and the structured logger threaded through
// evaluation and execution. Grounded on
// original_source/preql/interp_common.py's State/Namespace/AccessLevels,
// translated into an explicit Go struct with value-semantics cloning in
// place of Python's shallow copy-on-write.
package state

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/relq-lang/relq/object"
	"github.com/relq-lang/relq/rqerr"
)

// AccessLevel mirrors spec.md §4.3.7's ladder: COMPILE < EVALUATE <
// READ_DB < WRITE_DB.
type AccessLevel int

const (
	Compile AccessLevel = iota + 1
	Evaluate
	ReadDB
	WriteDB
)

func (a AccessLevel) String() string {
	switch a {
	case Compile:
		return "COMPILE"
	case Evaluate:
		return "EVALUATE"
	case ReadDB:
		return "READ_DB"
	case WriteDB:
		return "WRITE_DB"
	default:
		return "UNKNOWN"
	}
}

// Namespace is a stack of lexical scopes. Each scope maps a bound name
// to either a *object.Instance (a value) or a *object.Function /
// *types.Type (evaluate.go's "variables are one of these three kinds").
// Namespace.Copy performs the deep-scope-copy interp_common.py's
// `Namespace.__copy__` does, so a cloned State can diverge without
// mutating its parent's bindings.
type Namespace struct {
	scopes []map[string]any
}

func NewNamespace() *Namespace {
	return &Namespace{scopes: []map[string]any{{}}}
}

func (n *Namespace) Copy() *Namespace {
	cp := make([]map[string]any, len(n.scopes))
	for i, s := range n.scopes {
		m := make(map[string]any, len(s))
		for k, v := range s {
			m[k] = v
		}
		cp[i] = m
	}
	return &Namespace{scopes: cp}
}

// PushScope opens a new innermost scope.
func (n *Namespace) PushScope() {
	n.scopes = append(n.scopes, map[string]any{})
}

// PopScope closes the innermost scope. Callers must guarantee this runs
// on every exit path (including error and ReturnSignal unwinds) via
// defer, per spec.md §3's Namespace invariant.
func (n *Namespace) PopScope() {
	if len(n.scopes) == 0 {
		panic("state: PopScope on empty namespace")
	}
	n.scopes = n.scopes[:len(n.scopes)-1]
}

// Depth reports the current scope-stack depth, for the
// push/pop-balance assertion analogous to interp_common.py's
// `use_scope` contextmanager.
func (n *Namespace) Depth() int { return len(n.scopes) }

// UseScope pushes a new scope, runs fn, and pops it even if fn panics or
// returns an error — the Go equivalent of interp_common.py's
// `@contextmanager def use_scope`.
func (n *Namespace) UseScope(fn func() error) error {
	depth := n.Depth()
	n.PushScope()
	defer func() {
		if n.Depth() != depth+1 {
			panic("state: namespace scope imbalance")
		}
		n.PopScope()
	}()
	return fn()
}

// GetVar looks up name from the innermost scope outward.
func (n *Namespace) GetVar(name string) (any, bool) {
	for i := len(n.scopes) - 1; i >= 0; i-- {
		if v, ok := n.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// SetVar binds name in the innermost scope.
func (n *Namespace) SetVar(name string, value any) {
	n.scopes[len(n.scopes)-1][name] = value
}

// GetAllVars merges every scope bottom-to-top, innermost winning —
// used to seed a table's `all_attrs()` scope in the evaluator.
func (n *Namespace) GetAllVars() map[string]any {
	out := map[string]any{}
	for _, s := range n.scopes {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// State is the single piece of mutable-by-convention context threaded
// through the evaluator and executor. Its methods that "reduce" state
// (ReduceAccess) return a shallow clone rather than mutating in place,
// matching interp_common.py's State.clone/`reduce_access`.
type State struct {
	Logger      *zap.SugaredLogger
	NS          *Namespace
	AccessLevel AccessLevel
	tick        *int
	PrintSQL    bool
}

func New(logger *zap.SugaredLogger) *State {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	tick := 0
	return &State{Logger: logger, NS: NewNamespace(), AccessLevel: WriteDB, tick: &tick}
}

// Clone returns a shallow copy sharing the tick counter (so aliases
// minted from either branch never collide) but an independently
// mutable Namespace.
func (s *State) Clone() *State {
	cp := *s
	cp.NS = s.NS.Copy()
	return &cp
}

// ReduceAccess returns a clone whose access level is lowered to level.
// Raising access is a programmer error (spec.md §6 supplement,
// interp_common.py: `assert new_level <= self.access_level`).
func (s *State) ReduceAccess(level AccessLevel) *State {
	if level > s.AccessLevel {
		panic(fmt.Sprintf("state: cannot raise access level %s -> %s", s.AccessLevel, level))
	}
	cp := s.Clone()
	cp.AccessLevel = level
	return cp
}

// RequireAccess raises InsufficientAccessLevel if the current level is
// below the one requested.
func (s *State) RequireAccess(level AccessLevel) error {
	if s.AccessLevel < level {
		return &rqerr.InsufficientAccessLevel{Required: int(level), Have: int(s.AccessLevel)}
	}
	return nil
}

// UniqueName mints a fresh alias for subquery hoisting (spec.md §4.3:
// "mints alias via get_alias"), e.g. for anonymous projections.
func (s *State) UniqueName(base string) string {
	*s.tick++
	return fmt.Sprintf("%s%d", base, *s.tick)
}

// Catch evaluates fn at the reduced access level, restoring nothing
// (States are immutable-by-convention; callers hold onto whichever
// State they intend to keep using).
func (s *State) Catch(level AccessLevel, fn func(*State) (object.Instance, error)) (object.Instance, error) {
	return fn(s.ReduceAccess(level))
}
