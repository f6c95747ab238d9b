package parser

import (
	"fmt"

	"github.com/jobdeck/jobdeck/internal/card"
	"github.com/jobdeck/jobdeck/internal/fault"
)

// ParseError reports a malformed statement. It is recoverable: the caller
// records it, skips the statement, and continues with the rest of the
// stream.
type ParseError struct {
	Member    string // originating member
	StartLine int    // physical-line span for diagnostics
	EndLine   int
	Text      string // offending statement text
	Message   string
}

// Error formats the parse error with its source span and statement text.
func (e *ParseError) Error() string {
	span := fmt.Sprintf("%d", e.StartLine)
	if e.EndLine > e.StartLine {
		span = fmt.Sprintf("%d-%d", e.StartLine, e.EndLine)
	}
	return fmt.Sprintf("%s line %s: %s\n    %s", e.Member, span, e.Message, e.Text)
}

// Code ties ParseError into the fault taxonomy.
func (e *ParseError) Code() string { return fault.CodeParseError }

func newParseError(stmt card.Statement, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Member:    stmt.Member,
		StartLine: stmt.StartLine,
		EndLine:   stmt.EndLine,
		Text:      stmt.Text,
		Message:   fmt.Sprintf(format, args...),
	}
}
