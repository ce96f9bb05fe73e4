package lexer

import "fmt"

// LexError reports a malformed construct encountered while scanning:
// an unterminated string or block comment, an unexpected character,
// or an invalid integer literal. The offset is a byte offset into the
// source, matching parser.SyntaxError's convention so callers can
// locate either kind of front-end failure the same way.
type LexError struct {
	Offset  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Offset, e.Message)
}
