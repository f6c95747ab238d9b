// Package model assembles ordered Step and DataAllocation records from
// the classified statement stream.
package model

// Virtual dataset markers used when an allocation has no literal DSN.
const (
	DSNDummy    = "(dummy)"
	DSNInstream = "(input stream)"
	DSNSysout   = "(output stream)"
	DSNWork     = "(work_ds)"
)

// Documented disposition defaults applied when DISP slots are omitted.
// They describe the default policy; nothing here evaluates dispositions.
const (
	DefaultDispStatus   = "NEW"
	DefaultDispNormal   = "DELETE"
	DefaultDispAbnormal = "DELETE"
)

// DataAllocation is one DD entry of a step. Concatenated entries share a
// dd_name and are ordered by AllocationOffset.
type DataAllocation struct {
	DDName           string
	AllocationOffset int // 1-based within the (step, dd_name) group
	DSN              string
	DispStatus       string
	DispNormal       string
	DispAbnormal     string
	Unit             string
	VolSer           string
	IsDummy          bool
	InstreamRef      string // captured in-stream payload
	LRECL            string
	BLKSIZE          string
	RECFM            string
	DCBAttributes    map[string]string // DCB subparameters beyond the promoted three
}

// Step is one job step with its ordered allocations.
type Step struct {
	StepID       int    // sequence within the run, 1-based
	RelativeStep string // tier letter + 7 zero-padded digits, e.g. X0000001
	StepName     string
	ProcStepName string // set when the step originated inside an expanded PROC
	ProgramName  string // PGM= form; mutually exclusive with ProcName
	ProcName     string
	Parameters   string // resolved PARM text
	CondLogic    string // opaque conditional text, never evaluated
	Allocations  []DataAllocation
}
