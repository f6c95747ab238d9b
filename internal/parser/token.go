// Package parser tokenizes resolved job-control statements and classifies
// them into typed nodes.
//
// A statement is three fields: an optional name (label), an operation
// from a reserved keyword set, and a comma-delimited parameter list.
// Field recognition runs through an ordered matcher table in which opcode
// recognition has strict precedence over label recognition, so a token
// like EXEC is never mistaken for a name no matter where it appears.
package parser

// Opcode identifies a reserved operation keyword.
type Opcode int

const (
	OpNone Opcode = iota
	OpJob
	OpExec
	OpDD
	OpProc
	OpPend
	OpSet
	OpInclude
	OpJcllib
	OpOutput
	OpIf
	OpElse
	OpEndif
	OpCntl
	OpEndcntl
	OpExport
	OpNotify
	OpSchedule
)

var opcodeNames = map[string]Opcode{
	"JOB":      OpJob,
	"EXEC":     OpExec,
	"DD":       OpDD,
	"PROC":     OpProc,
	"PEND":     OpPend,
	"SET":      OpSet,
	"INCLUDE":  OpInclude,
	"JCLLIB":   OpJcllib,
	"OUTPUT":   OpOutput,
	"IF":       OpIf,
	"ELSE":     OpElse,
	"ENDIF":    OpEndif,
	"CNTL":     OpCntl,
	"ENDCNTL":  OpEndcntl,
	"EXPORT":   OpExport,
	"NOTIFY":   OpNotify,
	"SCHEDULE": OpSchedule,
}

func (o Opcode) String() string {
	for name, op := range opcodeNames {
		if op == o {
			return name
		}
	}
	return "NONE"
}

// LookupOpcode resolves a token against the reserved keyword set.
func LookupOpcode(tok string) (Opcode, bool) {
	op, ok := opcodeNames[tok]
	return op, ok
}

// FieldKind is the classification of a statement's leading token.
type FieldKind int

const (
	FieldOpcode FieldKind = iota
	FieldLabel
	FieldIllegal
)

// fieldMatchers is the ordered matcher table for the leading field.
// Evaluation order is fixed: reserved opcodes always win over labels.
var fieldMatchers = []struct {
	name  string
	match func(tok string) bool
	kind  FieldKind
}{
	{"opcode", func(tok string) bool { _, ok := opcodeNames[tok]; return ok }, FieldOpcode},
	{"label", isName, FieldLabel},
}

// classifyField runs the leading token through the matcher table.
func classifyField(tok string) FieldKind {
	for _, m := range fieldMatchers {
		if m.match(tok) {
			return m.kind
		}
	}
	return FieldIllegal
}

// isName reports whether tok is a valid member/step/dd name: one national
// or alphabetic character followed by up to seven alphanumerics.
func isName(tok string) bool {
	if len(tok) == 0 || len(tok) > 8 {
		return false
	}
	if !isNameStart(tok[0]) {
		return false
	}
	for i := 1; i < len(tok); i++ {
		if !isNamePart(tok[i]) {
			return false
		}
	}
	return true
}

func isNameStart(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || ch == '$' || ch == '#' || ch == '@'
}

func isNamePart(ch byte) bool {
	return isNameStart(ch) || ch >= '0' && ch <= '9'
}
