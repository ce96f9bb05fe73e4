package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ravyn-Coding-Language/Rayvn/token"
)

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenizeKeywordsAndIdents(t *testing.T) {
	toks, err := New("let x = 5").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []token.Type{token.LET, token.IDENT, token.EQUAL, token.NUMBER, token.EOF}, types(toks))
	assert.Equal(t, "x", toks[1].Literal)
	assert.Equal(t, int64(5), toks[3].Int)
}

func TestTokenizeTwoCharOperators(t *testing.T) {
	toks, err := New("a == b != c >= d <= e && f || g").Tokenize()
	require.NoError(t, err)
	got := types(toks)
	assert.Contains(t, got, token.EQEQ)
	assert.Contains(t, got, token.NOTEQ)
	assert.Contains(t, got, token.GTE)
	assert.Contains(t, got, token.LTE)
	assert.Contains(t, got, token.ANDAND)
	assert.Contains(t, got, token.OROR)
}

func TestTokenizeStringLiteral(t *testing.T) {
	toks, err := New(`"hello world"`).Tokenize()
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Type)
	assert.Equal(t, "hello world", toks[0].Literal)
}

func TestTokenizeUnterminatedStringFails(t *testing.T) {
	_, err := New(`"hello`).Tokenize()
	assert.Error(t, err)
}

func TestTokenizeBlockCommentWinsOverLineComment(t *testing.T) {
	toks, err := New("*** this is\na block comment *** let x = 1").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []token.Type{token.LET, token.IDENT, token.EQUAL, token.NUMBER, token.EOF}, types(toks))
}

func TestTokenizeLineComment(t *testing.T) {
	toks, err := New("let x = 1 ** trailing comment\nlet y = 2").Tokenize()
	require.NoError(t, err)
	got := types(toks)
	assert.Equal(t, 9, len(got)) // let x = 1 let y = 2 EOF
}

func TestTokenizeUnterminatedBlockCommentFails(t *testing.T) {
	_, err := New("*** never closes").Tokenize()
	assert.Error(t, err)
}

func TestTokenizeUnexpectedCharacterFails(t *testing.T) {
	_, err := New("@").Tokenize()
	assert.Error(t, err)
}

func TestTokenizeNotOperator(t *testing.T) {
	toks, err := New("!true").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, token.NOT, toks[0].Type)
	assert.Equal(t, token.TRUE, toks[1].Type)
}
