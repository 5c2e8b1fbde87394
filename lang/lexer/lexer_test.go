package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeKeywordsAndIdents(t *testing.T) {
	toks, err := Tokenize(`table P { name: str }`)
	require.NoError(t, err)

	var kinds []Kind
	for _, tok := range toks {
		if tok.Kind == EOF {
			continue
		}
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []Kind{Keyword, Ident, Punct, Ident, Punct, Ident, Punct}, kinds)
	assert.Equal(t, "table", toks[0].Text)
	assert.True(t, Keywords["table"])
}

func TestTokenizeMultiCharOperators(t *testing.T) {
	for _, op := range []string{"==", "!=", "<=", ">=", "=>", "->", "+=", ".."} {
		toks, err := Tokenize("a " + op + " b")
		require.NoError(t, err, op)
		require.Len(t, toks, 4, op) // a, op, b, EOF
		assert.Equal(t, op, toks[1].Text)
	}
}

func TestTokenizeNumbers(t *testing.T) {
	toks, err := Tokenize("41 + 1.5")
	require.NoError(t, err)
	assert.Equal(t, Int, toks[0].Kind)
	assert.Equal(t, int64(41), toks[0].Value)
	assert.Equal(t, Float, toks[2].Kind)
	assert.Equal(t, 1.5, toks[2].Value)
}

func TestTokenizeString(t *testing.T) {
	toks, err := Tokenize(`"hello world"`)
	require.NoError(t, err)
	require.Equal(t, String, toks[0].Kind)
	assert.Equal(t, "hello world", toks[0].Value)
}

func TestTokenizeNotInMultiWordKeyword(t *testing.T) {
	toks, err := Tokenize("x not in y")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 3)
	assert.Equal(t, Keyword, toks[1].Kind)
	assert.Equal(t, "not in", toks[1].Text)
}

func TestTokenizeInvalidCharacterReportsPosition(t *testing.T) {
	_, err := Tokenize("a = @")
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, 1, pe.Line)
}
