package model

import (
	"fmt"
	"strings"

	"github.com/jobdeck/jobdeck/internal/parser"
)

// DefaultTier is the tier letter prefixed to relative step identifiers.
const DefaultTier = 'X'

// Builder walks the classified-node stream in order and assembles the
// step/allocation model. One Builder serves one run; relative step
// identifiers increase strictly within it.
type Builder struct {
	tier    byte
	steps   []Step
	offsets map[string]int // last offset per dd_name within the current step
	lastDD  string
	procs   []procContext
	conds   []string
	open    bool
}

type procContext struct {
	callLabel string
	procName  string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithTier overrides the tier letter of relative step identifiers.
func WithTier(tier byte) BuilderOption {
	return func(b *Builder) { b.tier = tier }
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{tier: DefaultTier}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Feed consumes one classified node. Nodes that carry no model content
// (job card, OUTPUT, admin opcodes) are ignored.
func (b *Builder) Feed(node parser.Node) {
	switch n := node.(type) {
	case *parser.ExecNode:
		b.openStep(n)
	case *parser.DdNode:
		b.addAllocation(n)
	case *parser.ProcEnterNode:
		b.procs = append(b.procs, procContext{callLabel: n.CallLabel, procName: n.ProcName})
	case *parser.ProcExitNode:
		if len(b.procs) > 0 {
			b.procs = b.procs[:len(b.procs)-1]
		}
	case *parser.IfNode:
		b.conds = append(b.conds, n.Cond)
	case *parser.EndifNode:
		if len(b.conds) > 0 {
			b.conds = b.conds[:len(b.conds)-1]
		}
	}
}

// Build returns the completed ordered step sequence.
func (b *Builder) Build() []Step {
	out := make([]Step, len(b.steps))
	copy(out, b.steps)
	return out
}

func (b *Builder) openStep(n *parser.ExecNode) {
	id := len(b.steps) + 1
	step := Step{
		StepID:       id,
		RelativeStep: fmt.Sprintf("%c%07d", b.tier, id),
		ProgramName:  n.Program(),
		ProcName:     n.ProcRef(),
		Parameters:   paramText(n, "PARM"),
		CondLogic:    b.condLogic(n),
	}

	if len(b.procs) > 0 {
		// Step originated inside an expanded procedure: the caller's
		// label names the step, the inner label names the proc step.
		ctx := b.procs[len(b.procs)-1]
		step.StepName = ctx.callLabel
		step.ProcStepName = n.Label
		step.ProcName = ctx.procName
	} else {
		step.StepName = n.Label
	}

	b.steps = append(b.steps, step)
	b.offsets = make(map[string]int)
	b.lastDD = ""
	b.open = true
}

func (b *Builder) condLogic(n *parser.ExecNode) string {
	if v, ok := parser.FindParam(n.Params, "COND"); ok {
		return v.Render()
	}
	if len(b.conds) > 0 {
		return b.conds[len(b.conds)-1]
	}
	return ""
}

// addAllocation appends a DD entry to the open step. An unlabeled DD with
// no labeled predecessor in its step is recorded with an empty dd_name at
// offset 1: the allocation is kept, its name is simply unknown.
func (b *Builder) addAllocation(n *parser.DdNode) {
	if !b.open {
		// DD before any EXEC (JOBLIB and friends) has no owning step.
		return
	}

	alloc := DataAllocation{}
	if n.Label != "" {
		// Explicit label opens a new concatenation group at offset 1.
		alloc.DDName = n.Label
		b.offsets[n.Label] = 1
		b.lastDD = n.Label
	} else {
		// Unlabeled DD concatenates onto the most recent dd_name.
		alloc.DDName = b.lastDD
		b.offsets[b.lastDD]++
	}
	alloc.AllocationOffset = b.offsets[alloc.DDName]

	b.fillAllocation(&alloc, n)

	step := &b.steps[len(b.steps)-1]
	step.Allocations = append(step.Allocations, alloc)
}

// fillAllocation populates the allocation fields from the DD parameters.
func (b *Builder) fillAllocation(alloc *DataAllocation, n *parser.DdNode) {
	params := n.Params

	alloc.IsDummy = parser.HasPositional(params, "DUMMY")
	alloc.InstreamRef = strings.Join(n.Payload, "\n")

	// DSN classification precedence when several indicators appear:
	// DUMMY > in-stream > SYSOUT > literal DSN > unnamed temporary.
	dsn, hasDSN := parser.FindParam(params, "DSN")
	if !hasDSN {
		dsn, hasDSN = parser.FindParam(params, "DSNAME")
	}
	_, hasSysout := parser.FindParam(params, "SYSOUT")
	switch {
	case alloc.IsDummy:
		alloc.DSN = DSNDummy
	case n.Instream():
		alloc.DSN = DSNInstream
	case hasSysout:
		alloc.DSN = DSNSysout
	case hasDSN && dsn.Raw != "":
		alloc.DSN = dsn.Raw
	default:
		alloc.DSN = DSNWork
	}

	alloc.DispStatus, alloc.DispNormal, alloc.DispAbnormal = dispositions(params)

	if v, ok := parser.FindParam(params, "UNIT"); ok {
		alloc.Unit = v.Raw
	}
	alloc.VolSer = volumeSerial(params)

	alloc.LRECL = scalarParam(params, "LRECL")
	alloc.BLKSIZE = scalarParam(params, "BLKSIZE")
	alloc.RECFM = scalarParam(params, "RECFM")
	b.applyDCB(alloc, params)
}

// dispositions splits DISP into its three slots, applying the documented
// defaults for omitted or empty trailing slots.
func dispositions(params []parser.Param) (status, normal, abnormal string) {
	status, normal, abnormal = DefaultDispStatus, DefaultDispNormal, DefaultDispAbnormal
	v, ok := parser.FindParam(params, "DISP")
	if !ok {
		return
	}
	slots := v.Slots()
	if len(slots) > 0 && slots[0] != "" {
		status = slots[0]
	}
	if len(slots) > 1 && slots[1] != "" {
		normal = slots[1]
	}
	if len(slots) > 2 && slots[2] != "" {
		abnormal = slots[2]
	}
	return
}

// volumeSerial extracts VOL=SER=... in both its flat and sublist forms.
func volumeSerial(params []parser.Param) string {
	v, ok := parser.FindParam(params, "VOL")
	if !ok {
		v, ok = parser.FindParam(params, "VOLUME")
	}
	if !ok {
		return ""
	}
	if v.IsList() {
		if ser, ok := parser.FindParam(v.List, "SER"); ok {
			return ser.Slots()[0]
		}
		return ""
	}
	return strings.TrimPrefix(v.Raw, "SER=")
}

func scalarParam(params []parser.Param, key string) string {
	if v, ok := parser.FindParam(params, key); ok {
		return v.Raw
	}
	return ""
}

// applyDCB promotes LRECL/BLKSIZE/RECFM out of a DCB sublist and retains
// the remaining subparameters in the open attribute map.
func (b *Builder) applyDCB(alloc *DataAllocation, params []parser.Param) {
	v, ok := parser.FindParam(params, "DCB")
	if !ok || !v.IsList() {
		return
	}
	for _, sub := range v.List {
		switch sub.Key {
		case "LRECL":
			if alloc.LRECL == "" {
				alloc.LRECL = sub.Value.Raw
			}
		case "BLKSIZE":
			if alloc.BLKSIZE == "" {
				alloc.BLKSIZE = sub.Value.Raw
			}
		case "RECFM":
			if alloc.RECFM == "" {
				alloc.RECFM = sub.Value.Raw
			}
		case "":
			// Positional model dataset reference carries no attribute.
		default:
			if alloc.DCBAttributes == nil {
				alloc.DCBAttributes = make(map[string]string)
			}
			alloc.DCBAttributes[sub.Key] = sub.Value.Raw
		}
	}
}

// paramText returns the resolved text of an EXEC keyword. Parenthesized
// lists like PARM=(XREF,LET) keep their source form.
func paramText(n *parser.ExecNode, key string) string {
	if v, ok := parser.FindParam(n.Params, key); ok {
		if v.IsList() {
			return v.Render()
		}
		return v.Raw
	}
	return ""
}
