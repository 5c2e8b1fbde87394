package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relq-lang/relq/db"
	"github.com/relq-lang/relq/exec"
	"github.com/relq-lang/relq/rqerr"
	"github.com/relq-lang/relq/state"
)

func newTestExecutor(t *testing.T) (*exec.Executor, *state.State) {
	t.Helper()
	conn, err := db.Open("sqlite://:memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return exec.New(conn, conn.Dialect()), state.New(nil)
}

func TestRunSourceExecutesEachStatement(t *testing.T) {
	ex, st := newTestExecutor(t)
	f := &cliFlags{}
	err := runSource(st, ex, f, "<test>", `table P { name: str; age: int }`, false)
	require.NoError(t, err)

	_, ok := st.NS.GetVar("P")
	assert.True(t, ok)
}

func TestRunSourcePropagatesParseError(t *testing.T) {
	ex, st := newTestExecutor(t)
	f := &cliFlags{}
	err := runSource(st, ex, f, "<test>", `table { }`, false)
	assert.Error(t, err)
}

func TestErrorsUnwrapReturnsWrappedCause(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := rqerr.Wrap(rqerr.Value, rqerr.Span{}, cause, "bad value")
	assert.Equal(t, cause, errorsUnwrap(wrapped))
}

func TestErrorsUnwrapReturnsNilWithoutUnwrap(t *testing.T) {
	assert.Nil(t, errorsUnwrap(errors.New("plain")))
}

func TestFindAncestorPreqlFileFindsNearestFile(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "setup.preql"), []byte(`print "hi"`), 0o644))

	path, ok := findAncestorPreqlFile(sub)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "a", "setup.preql"), path)
}

func TestFindAncestorPreqlFileReturnsFalseWhenAbsent(t *testing.T) {
	root := t.TempDir()
	_, ok := findAncestorPreqlFile(root)
	assert.False(t, ok)
}
