package parser

import "fmt"

// SyntaxError reports a malformed construct encountered while
// parsing. The offset is a byte offset into the source, not a
// line/column — the front end does not track source positions beyond
// that.
type SyntaxError struct {
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Message)
}
