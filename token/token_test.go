package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "LET", LET.String())
	assert.Equal(t, "EOF", EOF.String())
	assert.Equal(t, "UNKNOWN", Type(9999).String())
}

func TestKeywordsMapCoversAllDeclaredKeywords(t *testing.T) {
	want := []string{"let", "fn", "if", "elseif", "else", "while", "for", "in", "log",
		"true", "false", "return", "break", "continue", "and", "or", "not"}
	for _, w := range want {
		tt, ok := Keywords[w]
		assert.True(t, ok, "missing keyword %q", w)
		assert.NotEqual(t, IDENT, tt)
	}
}

func TestKeywordsMapHasNoStrayEntries(t *testing.T) {
	assert.Len(t, Keywords, 17)
}
