// Package fieldpath parses dotted field names and reads or writes the nested
// value tree they address.
//
// A name such as "root.test.selected" or "items[0].name" parses into a Path of
// key and index segments. The canonical string form is always dotted, so
// "items[0].name" and "items.0.name" are the same path.
//
// Trees are built from map[string]any and []any containers. Set and Unset never
// modify their input: they copy the containers on the way from the root to the
// changed leaf and share everything else with the original tree.
package fieldpath

import (
	"strconv"
	"strings"

	formerrors "github.com/go-drift/form/pkg/errors"
)

// Segment is one step of a Path: either a map key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeySegment returns a map-key segment.
func KeySegment(key string) Segment {
	return Segment{Key: key}
}

// IndexSegment returns an array-index segment.
func IndexSegment(i int) Segment {
	return Segment{Index: i, IsIndex: true}
}

func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path is an immutable sequence of segments.
// The zero Path addresses the root of the tree.
type Path struct {
	segs []Segment
}

// New builds a Path from segments.
func New(segs ...Segment) Path {
	return Path{segs: append([]Segment(nil), segs...)}
}

// Parse converts a field name into a Path.
//
// Segments are separated by dots. A segment made of ASCII digits is an array
// index. Bracket notation ("a[2]") is accepted as an alternative index syntax.
// An empty name, an empty segment or a malformed bracket is an InvalidPath error.
func Parse(name string) (Path, error) {
	if name == "" {
		return Path{}, formerrors.Newf("fieldpath.Parse", formerrors.KindInvalidPath, name, "empty name")
	}
	var segs []Segment
	for i, part := range strings.Split(name, ".") {
		if part == "" {
			return Path{}, formerrors.Newf("fieldpath.Parse", formerrors.KindInvalidPath, name, "empty segment at %d", i)
		}
		parsed, err := parsePart(part)
		if err != nil {
			return Path{}, formerrors.New("fieldpath.Parse", formerrors.KindInvalidPath, name, err)
		}
		segs = append(segs, parsed...)
	}
	return Path{segs: segs}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(name string) Path {
	p, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return p
}

// parsePart handles one dot-separated part, which may carry bracket indices
// ("items[0][1]").
func parsePart(part string) ([]Segment, error) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if strings.IndexByte(part, ']') >= 0 {
			return nil, errUnbalanced(part)
		}
		return []Segment{segmentFor(part)}, nil
	}
	var segs []Segment
	if open > 0 {
		segs = append(segs, segmentFor(part[:open]))
	}
	rest := part[open:]
	for rest != "" {
		if rest[0] != '[' {
			return nil, errUnbalanced(part)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, errUnbalanced(part)
		}
		inner := rest[1:end]
		n, ok := parseIndex(inner)
		if !ok {
			return nil, &indexError{part: part, inner: inner}
		}
		segs = append(segs, IndexSegment(n))
		rest = rest[end+1:]
	}
	return segs, nil
}

func segmentFor(part string) Segment {
	if n, ok := parseIndex(part); ok {
		return IndexSegment(n)
	}
	return KeySegment(part)
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

type bracketError struct{ part string }

func (e *bracketError) Error() string { return "unbalanced bracket in " + strconv.Quote(e.part) }

func errUnbalanced(part string) error { return &bracketError{part: part} }

type indexError struct{ part, inner string }

func (e *indexError) Error() string {
	return "bad index " + strconv.Quote(e.inner) + " in " + strconv.Quote(e.part)
}

// String returns the canonical dotted form.
func (p Path) String() string {
	var sb strings.Builder
	for i, s := range p.segs {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segs) }

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool { return len(p.segs) == 0 }

// Segment returns the i-th segment.
func (p Path) Segment(i int) Segment { return p.segs[i] }

// Segments returns a copy of the segments.
func (p Path) Segments() []Segment { return append([]Segment(nil), p.segs...) }

// Last returns the final segment. It panics on the root path.
func (p Path) Last() Segment { return p.segs[len(p.segs)-1] }

// Parent returns p without its final segment. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p.segs) == 0 {
		return p
	}
	return Path{segs: p.segs[:len(p.segs)-1:len(p.segs)-1]}
}

// Append returns a new path with segs added.
func (p Path) Append(segs ...Segment) Path {
	out := make([]Segment, 0, len(p.segs)+len(segs))
	out = append(out, p.segs...)
	out = append(out, segs...)
	return Path{segs: out}
}

// Equal reports whether both paths have the same segment sequence.
func (p Path) Equal(o Path) bool {
	if len(p.segs) != len(o.segs) {
		return false
	}
	for i := range p.segs {
		if p.segs[i] != o.segs[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix equals p or is one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.segs) > len(p.segs) {
		return false
	}
	for i := range prefix.segs {
		if p.segs[i] != prefix.segs[i] {
			return false
		}
	}
	return true
}

// Ancestors returns the proper ancestors of p from the nearest outwards,
// excluding the root.
func (p Path) Ancestors() []Path {
	if len(p.segs) < 2 {
		return nil
	}
	out := make([]Path, 0, len(p.segs)-1)
	for n := len(p.segs) - 1; n > 0; n-- {
		out = append(out, Path{segs: p.segs[:n:n]})
	}
	return out
}
