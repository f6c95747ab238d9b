package parser

import (
	"strings"

	"github.com/jobdeck/jobdeck/internal/card"
)

// Value is a parameter value: a literal, a quoted string, or an ordered
// parenthesized sublist.
type Value struct {
	Raw    string  // literal text, quotes removed and '' unescaped
	Quoted bool    // value was written as a quoted string
	List   []Param // non-nil for parenthesized sublists
}

// IsList reports whether the value is a parenthesized sublist.
func (v Value) IsList() bool { return v.List != nil }

// Slots returns the positional slots of a sublist, or the single raw
// value when the parameter was written without parentheses. Omitted
// slots come back as empty strings.
func (v Value) Slots() []string {
	if v.List == nil {
		return []string{v.Raw}
	}
	out := make([]string, len(v.List))
	for i, p := range v.List {
		out[i] = p.Value.Raw
	}
	return out
}

// Render reconstructs the value's source form: sublists regain their
// parentheses, quoted strings their quotes.
func (v Value) Render() string {
	if v.List != nil {
		parts := make([]string, len(v.List))
		for i, p := range v.List {
			if p.Key != "" {
				parts[i] = p.Key + "=" + p.Value.Render()
			} else {
				parts[i] = p.Value.Render()
			}
		}
		return "(" + strings.Join(parts, ",") + ")"
	}
	if v.Quoted {
		return "'" + strings.ReplaceAll(v.Raw, "'", "''") + "'"
	}
	return v.Raw
}

// Param is one element of a parameter list: a keyword=value pair or a
// bare positional value.
type Param struct {
	Key   string // empty for positional values
	Value Value
}

// FindParam returns the first parameter with the given keyword.
func FindParam(params []Param, key string) (Value, bool) {
	for _, p := range params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// HasPositional reports whether the parameter list contains the given
// bare value, such as DUMMY or the in-stream * indicator.
func HasPositional(params []Param, raw string) bool {
	for _, p := range params {
		if p.Key == "" && !p.Value.IsList() && p.Value.Raw == raw {
			return true
		}
	}
	return false
}

// splitTop splits s on commas outside quotes and parentheses.
func splitTop(s string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	inQuotes := false
	depth := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\'':
			inQuotes = !inQuotes
			cur.WriteByte(ch)
		case inQuotes:
			cur.WriteByte(ch)
		case ch == '(':
			depth++
			cur.WriteByte(ch)
		case ch == ')':
			depth--
			if depth < 0 {
				return nil, errUnbalanced
			}
			cur.WriteByte(ch)
		case ch == ',' && depth == 0:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuotes {
		return nil, errUnclosedQuote
	}
	if depth != 0 {
		return nil, errUnbalanced
	}
	parts = append(parts, cur.String())
	return parts, nil
}

type scanError string

func (e scanError) Error() string { return string(e) }

const (
	errUnclosedQuote scanError = "unclosed quoted string"
	errUnbalanced    scanError = "unbalanced parentheses"
)

// parseValue parses one value expression.
func parseValue(s string) (Value, error) {
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		inner := s[1 : len(s)-1]
		items, err := parseParams(inner)
		if err != nil {
			return Value{}, err
		}
		if items == nil {
			items = []Param{}
		}
		return Value{List: items}, nil
	case strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") && len(s) >= 2:
		body := s[1 : len(s)-1]
		return Value{Raw: strings.ReplaceAll(body, "''", "'"), Quoted: true}, nil
	default:
		return Value{Raw: s}, nil
	}
}

// parseParams parses a comma-delimited parameter list. Elements are
// keyword=value pairs or bare positional values; quoted strings keep
// embedded commas and parentheses.
func parseParams(s string) ([]Param, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	pieces, err := splitTop(s)
	if err != nil {
		return nil, err
	}
	params := make([]Param, 0, len(pieces))
	for _, piece := range pieces {
		eq := indexTopEquals(piece)
		if eq <= 0 {
			v, err := parseValue(piece)
			if err != nil {
				return nil, err
			}
			params = append(params, Param{Value: v})
			continue
		}
		key := piece[:eq]
		if !isKeyword(key) {
			v, err := parseValue(piece)
			if err != nil {
				return nil, err
			}
			params = append(params, Param{Value: v})
			continue
		}
		v, err := parseValue(piece[eq+1:])
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Key: key, Value: v})
	}
	return params, nil
}

// indexTopEquals finds the first = outside quotes; -1 if none.
func indexTopEquals(s string) int {
	inQuotes := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'':
			inQuotes = !inQuotes
		case s[i] == '=' && !inQuotes:
			return i
		}
	}
	return -1
}

// isKeyword reports whether s can be a parameter keyword. Keywords share
// the name character set but may run longer than eight characters
// (DYNAMNBR, STORCLAS).
func isKeyword(s string) bool {
	if s == "" {
		return false
	}
	if !isNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNamePart(s[i]) {
			return false
		}
	}
	return true
}

// TokenStream is the tokenized form of one statement.
type TokenStream struct {
	Stmt      card.Statement
	Label     string
	Opcode    Opcode
	ParamText string // raw parameter field text
	Params    []Param
}

// Tokenize splits a resolved statement into label, opcode and parameter
// tokens. The leading field runs through the priority matcher table, so a
// reserved opcode in label position is taken as the operation.
func Tokenize(stmt card.Statement) (*TokenStream, *ParseError) {
	text := stmt.Text
	if !strings.HasPrefix(text, "//") {
		return nil, newParseError(stmt, "statement does not begin with //")
	}
	rest := text[2:]
	if strings.TrimSpace(rest) == "" {
		return nil, newParseError(stmt, "empty statement")
	}

	ts := &TokenStream{Stmt: stmt}

	// Name field: present only when column 3 is non-blank.
	if rest[0] != ' ' && rest[0] != '\t' {
		tok := rest
		if cut := strings.IndexAny(rest, " \t"); cut >= 0 {
			tok = rest[:cut]
			rest = rest[cut:]
		} else {
			rest = ""
		}
		switch classifyField(tok) {
		case FieldOpcode:
			ts.Opcode, _ = LookupOpcode(tok)
		case FieldLabel:
			ts.Label = tok
		default:
			return nil, newParseError(stmt, "invalid name field %q", tok)
		}
	}

	// Operation field, unless the priority rule already consumed it.
	rest = strings.TrimLeft(rest, " \t")
	if ts.Opcode == OpNone {
		tok := rest
		if cut := strings.IndexAny(rest, " \t"); cut >= 0 {
			tok = rest[:cut]
			rest = rest[cut:]
		} else {
			rest = ""
		}
		op, ok := LookupOpcode(tok)
		if !ok {
			return nil, newParseError(stmt, "unrecognized operation %q", tok)
		}
		ts.Opcode = op
		rest = strings.TrimLeft(rest, " \t")
	}

	ts.ParamText = strings.TrimSpace(rest)

	// IF conditions are opaque relational text, not a parameter list.
	if ts.Opcode == OpIf {
		return ts, nil
	}

	params, err := parseParams(ts.ParamText)
	if err != nil {
		return nil, newParseError(stmt, "%v in parameter list", err)
	}
	ts.Params = params
	return ts, nil
}
