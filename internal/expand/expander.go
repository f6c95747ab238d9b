// Package expand drives recursive member resolution: INCLUDE splicing,
// PROC registration and call-site expansion, symbolic substitution, and
// in-stream data capture.
//
// Each member runs through the same front end (normalize, join, expand
// symbols, classify) depth-first. An explicit visited-name stack per
// resolution branch detects cycles deterministically, and a configurable
// depth bound stops runaway nesting; neither relies on the native call
// stack alone.
package expand

import (
	"io"
	"log/slog"
	"strings"

	"github.com/jobdeck/jobdeck/internal/card"
	"github.com/jobdeck/jobdeck/internal/fault"
	"github.com/jobdeck/jobdeck/internal/member"
	"github.com/jobdeck/jobdeck/internal/parser"
	"github.com/jobdeck/jobdeck/internal/symbol"
)

// DefaultMaxDepth bounds include/proc nesting.
const DefaultMaxDepth = 16

// UnresolvedSymbol is a non-fatal diagnostic: a &NAME reference left
// verbatim because no binding was in scope.
type UnresolvedSymbol struct {
	Name   string
	Member string
	Line   int
}

// Options configures an Expander.
type Options struct {
	MaxDepth        int // include/proc recursion bound; DefaultMaxDepth when zero
	MaxSymbolPasses int // symbol rewrite bound; symbol.DefaultMaxPasses when zero
	Logger          *slog.Logger
}

// Expander resolves one member tree into a flat classified-node stream.
// It owns a private symbol table and diagnostic buffers, so independent
// trees can be expanded concurrently with one Expander each.
type Expander struct {
	lib      member.Library
	symbols  *symbol.Table
	procs    map[string]*procDef
	visiting []string
	opts     Options
	logger   *slog.Logger

	parseErrors []*parser.ParseError
	unresolved  []UnresolvedSymbol
}

type procDef struct {
	name     string
	defaults []parser.Assignment
	body     []string // raw body lines, expanded at call time
}

// prepender is satisfied by libraries whose search order JCLLIB can
// extend at resolution time.
type prepender interface {
	Prepend(roots ...string)
}

// New creates an Expander over the given member library.
func New(lib member.Library, opts Options) *Expander {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxSymbolPasses <= 0 {
		opts.MaxSymbolPasses = symbol.DefaultMaxPasses
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Expander{
		lib:     lib,
		symbols: symbol.NewTable(),
		procs:   make(map[string]*procDef),
		opts:    opts,
		logger:  logger,
	}
}

// ParseErrors returns the recoverable classification failures recorded so
// far, in stream order.
func (e *Expander) ParseErrors() []*parser.ParseError {
	return e.parseErrors
}

// Unresolved returns the unresolved-symbol warnings recorded so far.
func (e *Expander) Unresolved() []UnresolvedSymbol {
	return e.unresolved
}

// Expand resolves the named member and returns the flattened classified
// stream. Resolution failures, cycles, depth/pass bound violations and
// unterminated continuations are fatal; parse errors are recorded and
// skipped.
func (e *Expander) Expand(target string) ([]parser.Node, error) {
	text, err := e.lib.Lookup(target)
	if err != nil {
		return nil, err
	}
	return e.processMember(target, splitLines(text), false)
}

// processMember runs the per-member front end over raw lines and emits
// classified nodes, recursing into includes and proc calls.
func (e *Expander) processMember(name string, lines []string, stopAtPend bool) ([]parser.Node, error) {
	if err := e.enter(name); err != nil {
		return nil, err
	}
	defer e.leave()

	e.logger.Debug("expanding member", "member", name, "lines", len(lines), "depth", len(e.visiting))

	var nodes []parser.Node
	asm := card.NewAssembler(name)

	for idx := 0; idx < len(lines); idx++ {
		text, ok := card.NormalizeLine(lines[idx])
		if !ok {
			continue
		}
		stmt, done := asm.Add(text, idx+1)
		if !done {
			continue
		}

		resolved, unresolved, err := symbol.Expand(stmt.Text, e.symbols, e.opts.MaxSymbolPasses)
		if err != nil {
			return nil, err
		}
		for _, sym := range unresolved {
			e.unresolved = append(e.unresolved, UnresolvedSymbol{
				Name: sym, Member: name, Line: stmt.StartLine,
			})
		}
		stmt.Text = resolved

		node, perr := parser.Classify(stmt)
		if perr != nil {
			e.logger.Debug("statement skipped", "member", name, "line", stmt.StartLine, "error", perr.Message)
			e.parseErrors = append(e.parseErrors, perr)
			continue
		}

		switch n := node.(type) {
		case *parser.ProcNode:
			idx = e.registerProc(n, lines, idx)

		case *parser.PendNode:
			if stopAtPend {
				if err := asm.Flush(); err != nil {
					return nil, err
				}
				return nodes, nil
			}
			// Stray PEND outside a proc body carries nothing.

		case *parser.SetNode:
			for _, a := range n.Assignments {
				e.symbols.Define(a.Name, a.Value, symbol.Global)
			}

		case *parser.JcllibNode:
			if p, ok := e.lib.(prepender); ok {
				p.Prepend(n.Order...)
				e.logger.Debug("search order extended", "order", n.Order)
			}

		case *parser.IncludeNode:
			included, err := e.expandInclude(n)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, included...)

		case *parser.ExecNode:
			if ref := n.ProcRef(); ref != "" && e.procAvailable(ref) {
				expanded, err := e.expandProcCall(n, ref)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, expanded...)
				continue
			}
			nodes = append(nodes, n)

		case *parser.DdNode:
			if n.Instream() {
				idx = capturePayload(n, lines, idx)
			}
			nodes = append(nodes, n)

		default:
			nodes = append(nodes, node)
		}
	}

	if err := asm.Flush(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// enter pushes a member onto the visited-name stack, enforcing the cycle
// and depth guards.
func (e *Expander) enter(name string) error {
	for _, active := range e.visiting {
		if active == name {
			return fault.New(fault.CodeCyclicInclude,
				"member %s is already being expanded (chain: %s)",
				name, strings.Join(append(e.visiting, name), " -> ")).
				WithContext("member", name).
				WithContext("chain", append([]string(nil), e.visiting...))
		}
	}
	if len(e.visiting) >= e.opts.MaxDepth {
		return fault.New(fault.CodeRecursionLimitExceeded,
			"expansion depth %d exceeds limit %d at member %s",
			len(e.visiting)+1, e.opts.MaxDepth, name).
			WithContext("member", name)
	}
	e.visiting = append(e.visiting, name)
	return nil
}

func (e *Expander) leave() {
	e.visiting = e.visiting[:len(e.visiting)-1]
}

// registerProc captures an in-stream procedure body up to its PEND and
// records it in the proc registry. Returns the index of the last consumed
// line.
func (e *Expander) registerProc(n *parser.ProcNode, lines []string, idx int) int {
	def := &procDef{name: n.Name, defaults: n.Defaults}
	for idx++; idx < len(lines); idx++ {
		if text, ok := card.NormalizeLine(lines[idx]); ok && isPendLine(text) {
			break
		}
		def.body = append(def.body, lines[idx])
	}
	e.procs[n.Name] = def
	e.logger.Debug("proc registered", "proc", n.Name, "defaults", len(def.defaults), "lines", len(def.body))
	return idx
}

// isPendLine reports whether a normalized line is a PEND statement.
func isPendLine(text string) bool {
	ts, perr := parser.Tokenize(card.Statement{Text: text})
	return perr == nil && ts.Opcode == parser.OpPend
}

// expandInclude splices the resolved member's statements in place of the
// INCLUDE node, recursively re-applying the whole front end.
func (e *Expander) expandInclude(n *parser.IncludeNode) ([]parser.Node, error) {
	text, err := e.lib.Lookup(n.Member)
	if err != nil {
		return nil, err
	}
	return e.processMember(n.Member, splitLines(text), false)
}

// procAvailable reports whether an EXEC target resolves to a procedure:
// either already registered in-stream or present in the library.
func (e *Expander) procAvailable(name string) bool {
	if _, ok := e.procs[name]; ok {
		return true
	}
	return e.lib.Exists(name)
}

// expandProcCall flattens a procedure invocation into the caller's
// stream. The proc's default bindings and the EXEC's keyword overrides
// are pushed as scope frames for the duration of the body and popped on
// return.
func (e *Expander) expandProcCall(call *parser.ExecNode, name string) ([]parser.Node, error) {
	def, ok := e.procs[name]
	if !ok {
		loaded, err := e.loadLibraryProc(name)
		if err != nil {
			return nil, err
		}
		def = loaded
		e.procs[name] = def
	}

	e.symbols.Push(symbol.NewFrame(symbol.ProcDefault, toBindings(def.defaults)))
	e.symbols.Push(symbol.NewFrame(symbol.CallOverride, toBindings(call.Overrides())))
	defer func() {
		e.symbols.Pop()
		e.symbols.Pop()
	}()

	body, err := e.processMember(name, def.body, true)
	if err != nil {
		return nil, err
	}

	nodes := make([]parser.Node, 0, len(body)+2)
	nodes = append(nodes, &parser.ProcEnterNode{
		Stmt:      call.Stmt,
		CallLabel: call.Label,
		ProcName:  name,
	})
	nodes = append(nodes, body...)
	nodes = append(nodes, &parser.ProcExitNode{Stmt: call.Stmt})
	return nodes, nil
}

// loadLibraryProc reads a cataloged procedure member. A leading PROC
// statement supplies default bindings; without one the whole member is
// the body.
func (e *Expander) loadLibraryProc(name string) (*procDef, error) {
	text, err := e.lib.Lookup(name)
	if err != nil {
		return nil, err
	}
	lines := splitLines(text)
	def := &procDef{name: name, body: lines}

	asm := card.NewAssembler(name)
	for idx := 0; idx < len(lines); idx++ {
		normalized, ok := card.NormalizeLine(lines[idx])
		if !ok {
			continue
		}
		stmt, done := asm.Add(normalized, idx+1)
		if !done {
			continue
		}
		if ts, perr := parser.Tokenize(stmt); perr == nil && ts.Opcode == parser.OpProc {
			if node, perr := parser.Classify(stmt); perr == nil {
				def.defaults = node.(*parser.ProcNode).Defaults
			}
			def.body = lines[idx+1:]
		}
		break
	}
	return def, nil
}

// capturePayload collects raw in-stream card images following a DD * or
// DD DATA statement until the delimiter. Returns the index of the last
// consumed line.
func capturePayload(n *parser.DdNode, lines []string, idx int) int {
	dlm := n.Delimiter()
	for idx+1 < len(lines) {
		raw := strings.TrimRight(lines[idx+1], " \t\r\n")
		if dlm == "/*" {
			if strings.HasPrefix(raw, "//") {
				return idx // next statement, not ours to consume
			}
			if strings.HasPrefix(raw, "/*") {
				return idx + 1
			}
		} else if strings.HasPrefix(raw, dlm) {
			return idx + 1
		}
		if len(raw) > 72 {
			raw = raw[:72]
		}
		n.Payload = append(n.Payload, raw)
		idx++
	}
	return idx
}

func toBindings(assignments []parser.Assignment) []symbol.Binding {
	out := make([]symbol.Binding, len(assignments))
	for i, a := range assignments {
		out[i] = symbol.Binding{Name: a.Name, Value: a.Value}
	}
	return out
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
