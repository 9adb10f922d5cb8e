// Package state holds the authoritative data of one form as immutable
// snapshots.
//
// Every function in this package takes a snapshot and returns a new one; the
// input is never modified. Value trees inside snapshots share unchanged
// containers with their predecessors, so a reader holding an older snapshot
// keeps seeing a consistent tree while newer ones are produced.
package state

import (
	"reflect"
	"sort"

	"github.com/go-drift/form/pkg/fieldpath"
)

// Status is the submission state of a form.
type Status int

const (
	// StatusIdle means no submission is running.
	StatusIdle Status = iota
	// StatusValidating means the validator is running for a submission.
	StatusValidating
	// StatusSubmitting means the submit handler has been invoked and has not returned.
	StatusSubmitting
)

func (s Status) String() string {
	switch s {
	case StatusValidating:
		return "validating"
	case StatusSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}

// Snapshot is one immutable state of a form.
type Snapshot struct {
	values      map[string]any
	baseline    map[string]any
	errors      map[string]string
	touched     map[string]struct{}
	dirty       map[string]struct{}
	status      Status
	submitCount int
	version     uint64
}

// New returns the first snapshot of a form. initial is deep-copied and becomes
// both the current values and the baseline used for dirty tracking.
func New(initial map[string]any) *Snapshot {
	tree := fieldpath.Clone(initial)
	return &Snapshot{
		values:   tree,
		baseline: tree,
		errors:   map[string]string{},
		touched:  map[string]struct{}{},
		dirty:    map[string]struct{}{},
	}
}

// derive returns a shallow copy with the version bumped. Callers replace the
// fields they change with fresh maps; nothing shared is mutated.
func (s *Snapshot) derive() *Snapshot {
	next := *s
	next.version++
	return &next
}

// Values returns the value tree. The tree is shared with later snapshots and
// must not be modified; use fieldpath.Clone for a private copy.
func (s *Snapshot) Values() map[string]any { return s.values }

// Baseline returns the tree that Reset restores and dirty tracking compares against.
func (s *Snapshot) Baseline() map[string]any { return s.baseline }

// Value returns the value at p.
func (s *Snapshot) Value(p fieldpath.Path) (any, bool) { return fieldpath.Get(s.values, p) }

// Error returns the error message at p, or "".
func (s *Snapshot) Error(p fieldpath.Path) string { return s.errors[p.String()] }

// Errors returns a copy of all error messages keyed by canonical path.
func (s *Snapshot) Errors() map[string]string {
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// HasErrors reports whether any path carries an error.
func (s *Snapshot) HasErrors() bool { return len(s.errors) > 0 }

// Touched reports whether the user has interacted with the field at p.
func (s *Snapshot) Touched(p fieldpath.Path) bool {
	_, ok := s.touched[p.String()]
	return ok
}

// TouchedPaths returns the touched paths, sorted.
func (s *Snapshot) TouchedPaths() []string { return sortedKeys(s.touched) }

// Dirty reports whether the value at p differs from the baseline.
func (s *Snapshot) Dirty(p fieldpath.Path) bool {
	_, ok := s.dirty[p.String()]
	return ok
}

// DirtyPaths returns the dirty paths, sorted.
func (s *Snapshot) DirtyPaths() []string { return sortedKeys(s.dirty) }

// IsDirty reports whether any value differs from the baseline.
func (s *Snapshot) IsDirty() bool { return len(s.dirty) > 0 }

// Status returns the submission status.
func (s *Snapshot) Status() Status { return s.status }

// SubmitCount returns how many submissions have started since the last reset.
func (s *Snapshot) SubmitCount() int { return s.submitCount }

// Version increases by one with every derived snapshot.
func (s *Snapshot) Version() uint64 { return s.version }

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// valuesEqual compares two leaves or subtrees, treating typed slices and maps
// (such as []string) as equal to their generic counterparts.
func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(canonical(a), canonical(b))
}

func canonical(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = canonical(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = canonical(iter.Value().Interface())
		}
		return out
	}
	return v
}
