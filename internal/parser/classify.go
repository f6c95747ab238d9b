package parser

import (
	"strings"

	"github.com/jobdeck/jobdeck/internal/card"
)

// Classify parses one resolved statement into its typed node. A malformed
// statement produces a ParseError carrying the statement text and source
// span; the caller records it and continues with the next statement.
func Classify(stmt card.Statement) (Node, *ParseError) {
	ts, perr := Tokenize(stmt)
	if perr != nil {
		return nil, perr
	}
	return classify(ts)
}

func classify(ts *TokenStream) (Node, *ParseError) {
	switch ts.Opcode {
	case OpExec:
		return classifyExec(ts)
	case OpDD:
		return &DdNode{Stmt: ts.Stmt, Label: ts.Label, Params: ts.Params}, nil
	case OpSet:
		return classifySet(ts)
	case OpProc:
		return classifyProc(ts)
	case OpPend:
		return &PendNode{Stmt: ts.Stmt}, nil
	case OpInclude:
		return classifyInclude(ts)
	case OpJcllib:
		return classifyJcllib(ts)
	case OpIf:
		cond := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(ts.ParamText), "THEN"))
		return &IfNode{Stmt: ts.Stmt, Label: ts.Label, Cond: cond}, nil
	case OpElse:
		return &ElseNode{Stmt: ts.Stmt}, nil
	case OpEndif:
		return &EndifNode{Stmt: ts.Stmt}, nil
	case OpJob:
		return &JobNode{Stmt: ts.Stmt, Name: ts.Label, Params: ts.Params}, nil
	case OpOutput:
		return &OutputNode{Stmt: ts.Stmt, Label: ts.Label, Params: ts.Params}, nil
	default:
		return &ControlNode{Stmt: ts.Stmt, Opcode: ts.Opcode, Label: ts.Label}, nil
	}
}

func classifyExec(ts *TokenStream) (Node, *ParseError) {
	node := &ExecNode{Stmt: ts.Stmt, Label: ts.Label, Params: ts.Params}

	// A leading positional value names the procedure: //S1 EXEC MYPROC
	if len(ts.Params) > 0 && ts.Params[0].Key == "" && !ts.Params[0].Value.IsList() {
		node.Positional = ts.Params[0].Value.Raw
	}

	hasPgm := node.Program() != ""
	if hasPgm && node.Positional != "" {
		return nil, newParseError(ts.Stmt, "EXEC names both PGM=%s and positional procedure %s",
			node.Program(), node.Positional)
	}
	if !hasPgm && node.ProcRef() == "" {
		return nil, newParseError(ts.Stmt, "EXEC names neither a program nor a procedure")
	}
	return node, nil
}

func classifySet(ts *TokenStream) (Node, *ParseError) {
	if len(ts.Params) == 0 {
		return nil, newParseError(ts.Stmt, "SET without assignments")
	}
	node := &SetNode{Stmt: ts.Stmt}
	for _, p := range ts.Params {
		if p.Key == "" || p.Value.IsList() {
			return nil, newParseError(ts.Stmt, "SET expects NAME=value assignments")
		}
		node.Assignments = append(node.Assignments, Assignment{Name: p.Key, Value: p.Value.Raw})
	}
	return node, nil
}

func classifyProc(ts *TokenStream) (Node, *ParseError) {
	if ts.Label == "" {
		return nil, newParseError(ts.Stmt, "PROC statement requires a name")
	}
	node := &ProcNode{Stmt: ts.Stmt, Name: ts.Label}
	for _, p := range ts.Params {
		if p.Key == "" || p.Value.IsList() {
			continue // positional PROC operands carry no default bindings
		}
		node.Defaults = append(node.Defaults, Assignment{Name: p.Key, Value: p.Value.Raw})
	}
	return node, nil
}

func classifyInclude(ts *TokenStream) (Node, *ParseError) {
	v, ok := FindParam(ts.Params, "MEMBER")
	if !ok || v.Raw == "" {
		return nil, newParseError(ts.Stmt, "INCLUDE requires MEMBER=name")
	}
	if !isName(v.Raw) {
		return nil, newParseError(ts.Stmt, "INCLUDE member name %q is not a valid member name", v.Raw)
	}
	return &IncludeNode{Stmt: ts.Stmt, Member: v.Raw}, nil
}

func classifyJcllib(ts *TokenStream) (Node, *ParseError) {
	v, ok := FindParam(ts.Params, "ORDER")
	if !ok {
		return nil, newParseError(ts.Stmt, "JCLLIB requires ORDER=")
	}
	var order []string
	for _, slot := range v.Slots() {
		slot = strings.Trim(slot, "'\"")
		if slot != "" {
			order = append(order, slot)
		}
	}
	if len(order) == 0 {
		return nil, newParseError(ts.Stmt, "JCLLIB ORDER names no libraries")
	}
	return &JcllibNode{Stmt: ts.Stmt, Order: order}, nil
}
