// Package symbol implements scoped symbolic-parameter binding and &NAME
// substitution for job-control statements.
//
// Bindings live in frames stacked per PROC invocation: a global frame for
// SET statements at the bottom, then a proc-default frame and a
// call-override frame pushed for each active invocation. Lookup walks the
// stack from the top, so a call-site override always wins over the proc's
// default, which wins over a global SET.
package symbol

// ScopeKind tags the origin of a frame's bindings.
type ScopeKind int

const (
	Global       ScopeKind = iota // // SET statements
	ProcDefault                   // defaults on the PROC statement
	CallOverride                  // keyword overrides on the EXEC call
)

func (k ScopeKind) String() string {
	switch k {
	case Global:
		return "global"
	case ProcDefault:
		return "proc-default"
	case CallOverride:
		return "call-override"
	default:
		return "unknown"
	}
}

// Binding is a single name=value pair.
type Binding struct {
	Name  string
	Value string
}

// Frame is an ordered set of bindings with one scope kind. Frames pushed
// for a PROC invocation are snapshots; only the global frame is extended
// in place (by SET statements).
type Frame struct {
	kind  ScopeKind
	order []string
	vals  map[string]string
}

// NewFrame builds a frame from ordered bindings.
func NewFrame(kind ScopeKind, bindings []Binding) *Frame {
	f := &Frame{kind: kind, vals: make(map[string]string, len(bindings))}
	for _, b := range bindings {
		f.set(b.Name, b.Value)
	}
	return f
}

func (f *Frame) set(name, value string) {
	if _, exists := f.vals[name]; !exists {
		f.order = append(f.order, name)
	}
	f.vals[name] = value
}

// Kind returns the frame's scope kind.
func (f *Frame) Kind() ScopeKind { return f.kind }

// Lookup returns the value bound to name in this frame.
func (f *Frame) Lookup(name string) (string, bool) {
	v, ok := f.vals[name]
	return v, ok
}

// Names returns the binding names in definition order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Table is a stack of frames. Each pipeline instance owns its own Table;
// nothing is shared across runs.
type Table struct {
	frames []*Frame
}

// NewTable creates a table holding an empty global frame.
func NewTable() *Table {
	return &Table{frames: []*Frame{NewFrame(Global, nil)}}
}

// Define inserts or overwrites a binding in the topmost frame of the given
// scope kind. SET statements target the global frame, which always exists.
func (t *Table) Define(name, value string, kind ScopeKind) {
	for i := len(t.frames) - 1; i >= 0; i-- {
		if t.frames[i].kind == kind {
			t.frames[i].set(name, value)
			return
		}
	}
	t.frames = append(t.frames, NewFrame(kind, []Binding{{name, value}}))
}

// Lookup searches frames from the top of the stack down. First binding
// found wins; absence leaves the reference unresolved.
func (t *Table) Lookup(name string) (string, bool) {
	for i := len(t.frames) - 1; i >= 0; i-- {
		if v, ok := t.frames[i].Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

// Push adds a frame for a PROC invocation.
func (t *Table) Push(f *Frame) {
	t.frames = append(t.frames, f)
}

// Pop removes the topmost frame when the owning invocation completes. The
// global frame is never popped.
func (t *Table) Pop() {
	if len(t.frames) > 1 {
		t.frames = t.frames[:len(t.frames)-1]
	}
}

// Depth returns the number of frames on the stack.
func (t *Table) Depth() int {
	return len(t.frames)
}
