package parser

import "github.com/jobdeck/jobdeck/internal/card"

// Node is a classified statement. The concrete variants form a closed set
// consumed exactly once by the model builder.
type Node interface {
	Source() card.Statement
	node()
}

// Assignment is a NAME=value binding from a SET statement, a PROC default
// list, or EXEC call-site overrides.
type Assignment struct {
	Name  string
	Value string
}

// ExecNode declares a job step running a program or invoking a procedure.
type ExecNode struct {
	Stmt       card.Statement
	Label      string
	Positional string // positional procedure reference: EXEC MYPROC
	Params     []Param
}

func (n *ExecNode) Source() card.Statement { return n.Stmt }
func (n *ExecNode) node()                  {}

// Program returns the PGM= operand, empty for procedure calls.
func (n *ExecNode) Program() string {
	if v, ok := FindParam(n.Params, "PGM"); ok {
		return v.Raw
	}
	return ""
}

// ProcRef returns the referenced procedure name from either the PROC=
// keyword or the positional form, empty for PGM= steps.
func (n *ExecNode) ProcRef() string {
	if n.Program() != "" {
		return ""
	}
	if v, ok := FindParam(n.Params, "PROC"); ok {
		return v.Raw
	}
	return n.Positional
}

// Overrides returns the call-site keyword=value pairs that seed the
// call-override symbol frame on procedure expansion.
func (n *ExecNode) Overrides() []Assignment {
	var out []Assignment
	for _, p := range n.Params {
		if p.Key == "" || p.Key == "PGM" || p.Key == "PROC" {
			continue
		}
		if p.Value.IsList() {
			continue
		}
		out = append(out, Assignment{Name: p.Key, Value: p.Value.Raw})
	}
	return out
}

// DdNode declares a data allocation for the active step.
type DdNode struct {
	Stmt    card.Statement
	Label   string
	Params  []Param
	Payload []string // captured in-stream card images, if any
}

func (n *DdNode) Source() card.Statement { return n.Stmt }
func (n *DdNode) node()                  {}

// Instream reports whether the allocation reads in-stream data (* or
// DATA positional form).
func (n *DdNode) Instream() bool {
	return HasPositional(n.Params, "*") || HasPositional(n.Params, "DATA")
}

// Delimiter returns the in-stream terminator, honoring DLM= overrides.
func (n *DdNode) Delimiter() string {
	if v, ok := FindParam(n.Params, "DLM"); ok && v.Raw != "" {
		return v.Raw
	}
	return "/*"
}

// SetNode binds symbolic parameters in the global scope.
type SetNode struct {
	Stmt        card.Statement
	Assignments []Assignment
}

func (n *SetNode) Source() card.Statement { return n.Stmt }
func (n *SetNode) node()                  {}

// ProcNode opens an in-stream procedure definition with default bindings.
type ProcNode struct {
	Stmt     card.Statement
	Name     string
	Defaults []Assignment
}

func (n *ProcNode) Source() card.Statement { return n.Stmt }
func (n *ProcNode) node()                  {}

// PendNode closes an in-stream procedure definition.
type PendNode struct {
	Stmt card.Statement
}

func (n *PendNode) Source() card.Statement { return n.Stmt }
func (n *PendNode) node()                  {}

// IncludeNode splices a library member into the statement stream.
type IncludeNode struct {
	Stmt   card.Statement
	Member string
}

func (n *IncludeNode) Source() card.Statement { return n.Stmt }
func (n *IncludeNode) node()                  {}

// JcllibNode prepends library search locations for later lookups.
type JcllibNode struct {
	Stmt  card.Statement
	Order []string
}

func (n *JcllibNode) Source() card.Statement { return n.Stmt }
func (n *JcllibNode) node()                  {}

// IfNode carries a conditional-execution expression as opaque text; the
// expression is never evaluated.
type IfNode struct {
	Stmt  card.Statement
	Label string
	Cond  string
}

func (n *IfNode) Source() card.Statement { return n.Stmt }
func (n *IfNode) node()                  {}

// ElseNode flips the active conditional branch.
type ElseNode struct {
	Stmt card.Statement
}

func (n *ElseNode) Source() card.Statement { return n.Stmt }
func (n *ElseNode) node()                  {}

// EndifNode closes the innermost conditional range.
type EndifNode struct {
	Stmt card.Statement
}

func (n *EndifNode) Source() card.Statement { return n.Stmt }
func (n *EndifNode) node()                  {}

// JobNode is the job card. Classified for completeness, ignored by the
// model builder.
type JobNode struct {
	Stmt   card.Statement
	Name   string
	Params []Param
}

func (n *JobNode) Source() card.Statement { return n.Stmt }
func (n *JobNode) node()                  {}

// OutputNode is an OUTPUT statement. Classified, not modeled.
type OutputNode struct {
	Stmt   card.Statement
	Label  string
	Params []Param
}

func (n *OutputNode) Source() card.Statement { return n.Stmt }
func (n *OutputNode) node()                  {}

// ControlNode covers the remaining administrative opcodes (CNTL, EXPORT,
// NOTIFY, SCHEDULE, ...). Classified, not modeled.
type ControlNode struct {
	Stmt   card.Statement
	Opcode Opcode
	Label  string
}

func (n *ControlNode) Source() card.Statement { return n.Stmt }
func (n *ControlNode) node()                  {}

// ProcEnterNode marks the start of an expanded procedure invocation in
// the flattened stream. Emitted by the expander, never parsed from text.
type ProcEnterNode struct {
	Stmt      card.Statement // the calling EXEC statement
	CallLabel string         // label on the calling EXEC
	ProcName  string
}

func (n *ProcEnterNode) Source() card.Statement { return n.Stmt }
func (n *ProcEnterNode) node()                  {}

// ProcExitNode marks the end of an expanded procedure invocation.
type ProcExitNode struct {
	Stmt card.Statement
}

func (n *ProcExitNode) Source() card.Statement { return n.Stmt }
func (n *ProcExitNode) node()                  {}
