// Package member abstracts the lookup of job-control source members.
//
// The core pipeline only needs "give me the raw text for this logical
// name"; whether the backing storage is a directory tree of flat files or
// a z/OS partitioned dataset is a property of the Library implementation.
package member

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jobdeck/jobdeck/internal/fault"
)

// Library resolves a logical member name to its raw source text.
type Library interface {
	// Lookup returns the member's raw text, or a MemberNotFound fault.
	Lookup(name string) (string, error)
	// Exists reports whether the member can be resolved without reading it.
	Exists(name string) bool
}

// SearchPath is a Library over an ordered list of library locations.
// The first location holding the member wins. JCLLIB ORDER statements
// prepend locations at resolution time.
type SearchPath struct {
	roots []string
	ext   string // optional filename extension for directory libraries
	pds   bool   // partitioned-dataset naming convention
}

// Option configures a SearchPath.
type Option func(*SearchPath)

// WithExtension appends .ext to member filenames in directory libraries.
func WithExtension(ext string) Option {
	return func(p *SearchPath) { p.ext = strings.TrimPrefix(ext, ".") }
}

// WithPDSConvention switches lookups to the //'DATASET(MEMBER)' path form
// used when members live inside partitioned datasets.
func WithPDSConvention() Option {
	return func(p *SearchPath) { p.pds = true }
}

// NewSearchPath creates a SearchPath over the given ordered locations.
func NewSearchPath(roots []string, opts ...Option) *SearchPath {
	p := &SearchPath{roots: append([]string(nil), roots...)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepend inserts locations ahead of the existing search order.
func (p *SearchPath) Prepend(roots ...string) {
	p.roots = append(append([]string(nil), roots...), p.roots...)
}

// Roots returns the current search order.
func (p *SearchPath) Roots() []string {
	out := make([]string, len(p.roots))
	copy(out, p.roots)
	return out
}

// memberPath shapes the physical path for a member within one location.
func (p *SearchPath) memberPath(root, name string) string {
	if p.pds {
		// z/OS exposes PDS members to POSIX I/O as //'DATASET(MEMBER)'.
		return "//'" + root + "(" + name + ")'"
	}
	filename := name
	if p.ext != "" {
		filename = name + "." + p.ext
	}
	return filepath.Join(root, filename)
}

// Exists reports whether any location holds the member. PDS paths cannot
// be probed portably, so under that convention presence is assumed and
// the open itself decides.
func (p *SearchPath) Exists(name string) bool {
	for _, root := range p.roots {
		if root == "" {
			continue
		}
		if p.pds {
			return true
		}
		if _, err := os.Stat(p.memberPath(root, name)); err == nil {
			return true
		}
	}
	return false
}

// Lookup searches the locations in order and returns the first match.
func (p *SearchPath) Lookup(name string) (string, error) {
	for _, root := range p.roots {
		if root == "" {
			continue
		}
		data, err := os.ReadFile(p.memberPath(root, name))
		if err == nil {
			return string(data), nil
		}
	}

	f := fault.New(fault.CodeMemberNotFound,
		"member %s not found in %d library location(s)", name, len(p.roots)).
		WithContext("member", name).
		WithContext("locations", p.Roots())
	if suggestion := p.suggest(name); suggestion != "" {
		f = f.WithContext("suggestion", suggestion)
	}
	return "", f
}

// suggest fuzzy-ranks sibling members for a "did you mean" hint.
func (p *SearchPath) suggest(name string) string {
	if p.pds {
		return ""
	}
	var candidates []string
	for _, root := range p.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			base := e.Name()
			if p.ext != "" {
				base = strings.TrimSuffix(base, "."+p.ext)
			}
			candidates = append(candidates, base)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	return ranks[0].Target
}

// Memory is an in-memory Library keyed by member name, used by tests and
// by callers that already hold source text.
type Memory map[string]string

// Lookup implements Library.
func (m Memory) Lookup(name string) (string, error) {
	if text, ok := m[name]; ok {
		return text, nil
	}
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	f := fault.New(fault.CodeMemberNotFound, "member %s not found", name).
		WithContext("member", name)
	if ranks := fuzzy.RankFindFold(name, names); len(ranks) > 0 {
		f = f.WithContext("suggestion", ranks[0].Target)
	}
	return "", f
}

// Exists implements Library.
func (m Memory) Exists(name string) bool {
	_, ok := m[name]
	return ok
}
