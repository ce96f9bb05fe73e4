package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocateFirstLine(t *testing.T) {
	src := "let x = 1\nlog x"
	err := Locate("syntax", "unexpected token", 4, src)
	assert.Equal(t, 1, err.Line)
	assert.Equal(t, 5, err.Col)
	assert.Equal(t, "let x = 1", err.SourceLine)
}

func TestLocateSecondLine(t *testing.T) {
	src := "let x = 1\nlog y"
	err := Locate("runtime", "undefined variable", 11, src)
	assert.Equal(t, 2, err.Line)
	assert.Equal(t, "log y", err.SourceLine)
}

func TestLocateClampsOutOfRangeOffset(t *testing.T) {
	src := "abc"
	err := Locate("syntax", "oops", 100, src)
	assert.Equal(t, 1, err.Line)
	assert.Equal(t, 4, err.Col)
}

func TestWithSuggestionAndFileName(t *testing.T) {
	err := Locate("compile", "bad call", 0, "f()")
	err.WithSuggestion("did you mean g()?").WithFileName("main.rvn")
	assert.Equal(t, "did you mean g()?", err.Suggestion)
	assert.Equal(t, "main.rvn", err.FileName)
}

func TestErrorMessageFormat(t *testing.T) {
	err := Locate("syntax", "bad token", 0, "x")
	assert.Equal(t, "syntax error at 1:1: bad token", err.Error())
}

func TestRenderWithNoColorIsPlainText(t *testing.T) {
	err := Locate("syntax", "bad token", 4, "let x = 1")
	out := err.Render(NoColor)
	assert.Contains(t, out, "Syntax error")
	assert.Contains(t, out, "let x = 1")
	assert.Contains(t, out, "bad token")
	assert.Contains(t, out, "^")
}

func TestRenderIncludesSuggestionWhenPresent(t *testing.T) {
	err := Locate("compile", "unknown function", 0, "f()")
	err.WithSuggestion("define f first")
	out := err.Render(NoColor)
	assert.Contains(t, out, "Suggestion:")
	assert.Contains(t, out, "define f first")
}

func TestRenderIncludesFileNameWhenPresent(t *testing.T) {
	err := Locate("runtime", "boom", 0, "x")
	err.WithFileName("script.rvn")
	out := err.Render(NoColor)
	assert.Contains(t, out, "in script.rvn")
}
