// Package diagnostics formats compiler and VM failures the way a
// human reads them at a terminal: colored, with the offending line
// and a caret, and an optional suggestion. The CLI uses it to wrap the
// plain errors returned by the lexer, parser, and compiler with source
// context; VM runtime errors are not wrapped.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// SourceError is a failure anchored to a byte offset in one source
// file, with enough context to render a caret under the bad token.
type SourceError struct {
	Stage      string // "syntax", "compile", "runtime"
	Message    string
	Offset     int
	Line, Col  int
	SourceLine string
	Suggestion string
	FileName   string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s error at %d:%d: %s", e.Stage, e.Line, e.Col, e.Message)
}

// Locate turns a byte offset into a 1-based line/column pair and
// extracts that line's text from source, populating a SourceError.
func Locate(stage, message string, offset int, source string) *SourceError {
	line, col, text := lineCol(source, offset)
	return &SourceError{Stage: stage, Message: message, Offset: offset, Line: line, Col: col, SourceLine: text}
}

func lineCol(source string, offset int) (line, col int, text string) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(source) {
		offset = len(source)
	}
	line = 1
	lineStart := 0
	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	col = offset - lineStart + 1

	end := strings.IndexByte(source[lineStart:], '\n')
	if end == -1 {
		text = source[lineStart:]
	} else {
		text = source[lineStart : lineStart+end]
	}
	return
}

// WithSuggestion attaches a one-line hint, the way a reviewer might
// scribble a fix in the margin.
func (e *SourceError) WithSuggestion(s string) *SourceError {
	e.Suggestion = s
	return e
}

// WithFileName attaches the originating file's name for multi-file
// error reports.
func (e *SourceError) WithFileName(name string) *SourceError {
	e.FileName = name
	return e
}

// Colors is the set of styling functions Render applies to each part
// of the rendered diagnostic. Each function wraps its argument in the
// escapes for one role (header, gutter, caret, message, suggestion
// label) and resets afterward, so Render never has to reason about
// interleaving raw escape codes itself.
type Colors struct {
	Header, Gutter, Caret, Message, Suggestion func(string) string
}

func identity(s string) string { return s }

// NoColor renders Render output with no escapes at all. Tests and
// non-terminal output should use this.
var NoColor = Colors{
	Header:     identity,
	Gutter:     identity,
	Caret:      identity,
	Message:    identity,
	Suggestion: identity,
}

// Colored is the terminal-facing palette, built on fatih/color the
// way the rest of the CLI colors its output (cmd/rayvn's printInfo/
// printSuccess/printWarning/printError helpers).
var Colored = Colors{
	Header:     color.New(color.Bold, color.FgRed).SprintFunc(),
	Gutter:     color.New(color.FgHiBlack).SprintFunc(),
	Caret:      color.New(color.FgRed, color.Bold).SprintFunc(),
	Message:    color.New(color.FgRed).SprintFunc(),
	Suggestion: color.New(color.Bold, color.FgYellow).SprintFunc(),
}

func (e *SourceError) Render(c Colors) string {
	var b strings.Builder

	header := strings.ToUpper(e.Stage[:1]) + e.Stage[1:] + " error"
	if e.FileName != "" {
		header += " in " + e.FileName
	}
	fmt.Fprintf(&b, "%s at line %d, column %d\n", c.Header(header), e.Line, e.Col)

	if e.SourceLine != "" {
		fmt.Fprintf(&b, "  %s %s\n", c.Gutter(fmt.Sprintf("%4d |", e.Line)), e.SourceLine)
		if e.Col > 0 {
			fmt.Fprintf(&b, "       %s %s\n", c.Gutter("|"), c.Caret(strings.Repeat(" ", e.Col-1)+"^"))
		}
	}

	fmt.Fprintf(&b, "%s\n", c.Message(e.Message))

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "%s %s\n", c.Suggestion("Suggestion:"), e.Suggestion)
	}

	return b.String()
}
