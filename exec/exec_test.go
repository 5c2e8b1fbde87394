package exec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relq-lang/relq/db"
	"github.com/relq-lang/relq/eval"
	"github.com/relq-lang/relq/exec"
	"github.com/relq-lang/relq/lang/parser"
	"github.com/relq-lang/relq/state"
)

// newExecutor opens a throwaway in-memory SQLite database, matching
// spec.md §8's "end-to-end scenarios (with literal inputs/outputs on
// an empty SQLite)".
func newExecutor(t *testing.T) (*exec.Executor, *state.State) {
	t.Helper()
	database, err := db.Open("sqlite://:memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return exec.New(database, database.Dialect()), state.New(nil)
}

func run(t *testing.T, ex *exec.Executor, st *state.State, src string) {
	t.Helper()
	stmts, err := parser.Parse(src)
	require.NoError(t, err)
	for _, s := range stmts {
		_, err := ex.Execute(st, s)
		require.NoError(t, err)
	}
}

func TestTableDefCreatesQueryableTable(t *testing.T) {
	ex, st := newExecutor(t)
	run(t, ex, st, `table P { name: str; age: int }`)

	v, ok := st.NS.GetVar("P")
	require.True(t, ok)
	require.NotNil(t, v)

	tables, err := ex.DB.(interface{ ListTables() ([]string, error) }).ListTables()
	require.NoError(t, err)
	assert.Contains(t, tables, "ps")
}

func TestNewInsertsAndSelectionFilters(t *testing.T) {
	ex, st := newExecutor(t)
	run(t, ex, st, `table P { name: str; age: int }
new P("Ada", 40)
new P("Al", 12)`)

	rows, err := parser.Parse(`P[age > 18]`)
	require.NoError(t, err)
	inst, err := ex.Execute(st, rows[0])
	require.NoError(t, err)

	v, err := eval.Localize(st, inst, ex.DB, ex.Dialect)
	require.NoError(t, err)
	result, ok := v.([]map[string]any)
	require.True(t, ok)
	require.Len(t, result, 1)
	assert.Equal(t, "Ada", result[0]["name"])
}

func TestUpdateAndDelete(t *testing.T) {
	ex, st := newExecutor(t)
	run(t, ex, st, `table P { name: str; age: int }
new P("Ada", 40)
update P[name == "Ada"] { age: 41 }`)

	stmts, err := parser.Parse(`P[age == 41]`)
	require.NoError(t, err)
	inst, err := ex.Execute(st, stmts[0])
	require.NoError(t, err)
	v, err := eval.Localize(st, inst, ex.DB, ex.Dialect)
	require.NoError(t, err)
	require.Len(t, v.([]map[string]any), 1)

	run(t, ex, st, `delete P[name == "Ada"]`)
	stmts, err = parser.Parse(`P`)
	require.NoError(t, err)
	inst, err = ex.Execute(st, stmts[0])
	require.NoError(t, err)
	v, err = eval.Localize(st, inst, ex.DB, ex.Dialect)
	require.NoError(t, err)
	assert.Empty(t, v.([]map[string]any))
}

func TestTryCatchRecoversFromThrow(t *testing.T) {
	ex, st := newExecutor(t)
	stmts, err := parser.Parse(`try { throw new ValueError("bad") } catch e: ValueError { print "caught" }`)
	require.NoError(t, err)
	_, err = ex.Execute(st, stmts[0])
	require.NoError(t, err)
}

func TestFuncDefAndCall(t *testing.T) {
	ex, st := newExecutor(t)
	run(t, ex, st, `func f(x: int) = x+1`)

	stmts, err := parser.Parse(`f(41)`)
	require.NoError(t, err)
	inst, err := ex.Execute(st, stmts[0])
	require.NoError(t, err)
	v, err := eval.Localize(st, inst, ex.DB, ex.Dialect)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}
