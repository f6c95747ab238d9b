// Package card normalizes 80-column card-image source lines and joins
// physical lines into logical statements.
//
// Columns 1-72 are significant; columns 73-80 are the sequence area and are
// discarded. Full-line comments (//*), delimiter cards (/*) and bare //
// end-of-stream markers never reach the statement stream.
package card

import (
	"strings"

	"github.com/jobdeck/jobdeck/internal/fault"
)

// Statement is a logical statement assembled from one or more physical
// lines. Immutable once produced.
type Statement struct {
	Text      string // joined, comment-stripped statement text
	Member    string // originating member name
	StartLine int    // first physical line (1-based)
	EndLine   int    // last physical line (1-based)
}

// NormalizeLine truncates a raw line at column 72, strips trailing
// whitespace, and reports whether the line carries statement content.
// Comment lines, delimiter cards, bare // markers and lines that become
// empty after truncation are dropped.
func NormalizeLine(raw string) (string, bool) {
	line := strings.TrimRight(raw, "\r\n")
	if len(line) > 72 {
		line = line[:72]
	}
	line = strings.TrimRight(line, " \t")
	if line == "" || line == "//" {
		return "", false
	}
	if strings.HasPrefix(line, "//*") || strings.HasPrefix(line, "/*") {
		return "", false
	}
	return line, true
}

// stripComment removes the trailing comment field from a statement line.
// On the first line of a statement the operand field starts after the
// second blank-delimited word; on a continuation line it starts after the
// leading // marker. Everything past the first unquoted blank in the
// operand field is a comment.
func stripComment(line string, continuation bool) string {
	var prefix, operands string
	if continuation {
		operands = strings.TrimLeft(strings.TrimLeft(line, "/"), " \t")
	} else {
		// Walk past the identifier field and the operation field; the
		// operand field starts at the next non-blank column.
		rest := line
		var fields [2]string
		for i := range fields {
			cut := strings.IndexAny(rest, " \t")
			if cut < 0 {
				return strings.TrimRight(line, " \t")
			}
			fields[i] = rest[:cut]
			rest = strings.TrimLeft(rest[cut:], " \t")
		}
		if rest == "" {
			return strings.TrimRight(line, " \t")
		}
		prefix = fields[0] + " " + fields[1]
		operands = rest

		// IF conditions are free-form relational text with embedded
		// blanks; their operand field runs to the THEN keyword, not to
		// the first blank.
		if fields[1] == "IF" || strings.TrimPrefix(fields[0], "//") == "IF" {
			return strings.TrimSpace(prefix + " " + beforeThen(operands))
		}
	}

	// The operand field ends at the first blank outside quotes and outside
	// parentheses; relational expressions like IF (RC > 4) keep their
	// embedded blanks.
	inQuotes := false
	depth := 0
	end := len(operands)
	for i := 0; i < len(operands); i++ {
		switch ch := operands[i]; {
		case ch == '\'':
			inQuotes = !inQuotes
		case inQuotes:
		case ch == '(':
			depth++
		case ch == ')' && depth > 0:
			depth--
		case ch == ' ' && depth == 0:
			end = i
		}
		if end != len(operands) {
			break
		}
	}
	operands = operands[:end]

	if prefix == "" {
		return strings.TrimSpace(operands)
	}
	return strings.TrimSpace(prefix + " " + operands)
}

// beforeThen cuts a condition field ahead of its terminating THEN
// keyword; text after THEN is commentary. Without a THEN the whole field
// is condition text.
func beforeThen(s string) string {
	for i := 0; i+4 <= len(s); i++ {
		if s[i:i+4] != "THEN" {
			continue
		}
		startOK := i == 0 || s[i-1] == ' ' || s[i-1] == ')'
		endOK := i+4 == len(s) || s[i+4] == ' '
		if startOK && endOK {
			return strings.TrimRight(s[:i], " \t")
		}
	}
	return s
}

// Assembler joins normalized physical lines into logical statements using
// the trailing-comma continuation rule. One Assembler handles one member.
type Assembler struct {
	member  string
	buf     strings.Builder
	start   int
	pending bool
}

// NewAssembler creates an Assembler for the named member.
func NewAssembler(member string) *Assembler {
	return &Assembler{member: member}
}

// Pending reports whether a continuation is still accumulating.
func (a *Assembler) Pending() bool {
	return a.pending
}

// Add appends one normalized line. When the line completes a logical
// statement the assembled Statement is returned with ok=true; while a
// continuation is still open ok is false.
func (a *Assembler) Add(text string, lineNo int) (Statement, bool) {
	cleaned := stripComment(text, a.pending)
	if !a.pending {
		a.start = lineNo
	}
	a.buf.WriteString(cleaned)

	if strings.HasSuffix(cleaned, ",") {
		a.pending = true
		return Statement{}, false
	}

	stmt := Statement{
		Text:      a.buf.String(),
		Member:    a.member,
		StartLine: a.start,
		EndLine:   lineNo,
	}
	a.buf.Reset()
	a.pending = false
	return stmt, true
}

// Flush fails with UnterminatedContinuation if input ended while a
// continuation was still accumulating.
func (a *Assembler) Flush() error {
	if !a.pending {
		return nil
	}
	return fault.New(fault.CodeUnterminatedContinuation,
		"member %s: input ended inside a continuation started at line %d",
		a.member, a.start).
		WithContext("member", a.member).
		WithContext("line", a.start)
}

// JoinStatements normalizes raw lines and joins them into logical
// statements. Comment lines encountered mid-continuation are dropped
// without breaking the continuation.
func JoinStatements(member string, lines []string) ([]Statement, error) {
	asm := NewAssembler(member)
	var out []Statement
	for i, raw := range lines {
		text, ok := NormalizeLine(raw)
		if !ok {
			continue
		}
		if stmt, done := asm.Add(text, i+1); done {
			out = append(out, stmt)
		}
	}
	if err := asm.Flush(); err != nil {
		return nil, err
	}
	return out, nil
}
