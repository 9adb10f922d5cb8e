package state

import (
	"github.com/go-drift/form/pkg/fieldpath"
)

// ValueChange sets Value at Path.
type ValueChange struct {
	Path  fieldpath.Path
	Value any
}

// ErrorChange sets Message at Path. An empty Message clears the error.
type ErrorChange struct {
	Path    fieldpath.Path
	Message string
}

// Mode selects how ApplyErrors treats errors already present.
type Mode int

const (
	// ModeMerge overwrites the paths named by the entries and keeps the rest.
	ModeMerge Mode = iota
	// ModeReplace discards every prior error before applying the entries.
	ModeReplace
)

// ApplyValueChange returns s with value stored at p.
func ApplyValueChange(s *Snapshot, p fieldpath.Path, value any) (*Snapshot, error) {
	return ApplyBulkValues(s, []ValueChange{{Path: p, Value: value}})
}

// ApplyBulkValues folds changes into s in order; a later change to the same
// path wins. Leaf values are stored as given. If any change fails, s is
// returned unchanged together with the error.
func ApplyBulkValues(s *Snapshot, changes []ValueChange) (*Snapshot, error) {
	if len(changes) == 0 {
		return s, nil
	}
	tree := s.values
	for _, c := range changes {
		var err error
		tree, err = fieldpath.Set(tree, c.Path, c.Value)
		if err != nil {
			return s, err
		}
	}

	next := s.derive()
	next.values = tree
	next.dirty = recomputeDirty(s.dirty, tree, s.baseline, changes)
	return next, nil
}

// recomputeDirty re-evaluates the changed paths plus any previously dirty path
// that overlaps them, since writing a container can also change its children.
func recomputeDirty(prev map[string]struct{}, tree, baseline map[string]any, changes []ValueChange) map[string]struct{} {
	out := make(map[string]struct{}, len(prev)+len(changes))
	for k := range prev {
		out[k] = struct{}{}
	}
	check := func(p fieldpath.Path) {
		cur, _ := fieldpath.Get(tree, p)
		base, _ := fieldpath.Get(baseline, p)
		if valuesEqual(cur, base) {
			delete(out, p.String())
		} else {
			out[p.String()] = struct{}{}
		}
	}
	for _, c := range changes {
		check(c.Path)
		for k := range prev {
			p, err := fieldpath.Parse(k)
			if err != nil {
				continue
			}
			if p.HasPrefix(c.Path) || c.Path.HasPrefix(p) {
				check(p)
			}
		}
	}
	return out
}

// ApplyErrors returns s with the error entries applied according to mode.
// Within one call a later entry for the same path wins.
func ApplyErrors(s *Snapshot, changes []ErrorChange, mode Mode) *Snapshot {
	if len(changes) == 0 && (mode == ModeMerge || len(s.errors) == 0) {
		return s
	}
	next := s.derive()
	if mode == ModeReplace {
		next.errors = make(map[string]string, len(changes))
	} else {
		next.errors = make(map[string]string, len(s.errors)+len(changes))
		for k, v := range s.errors {
			next.errors[k] = v
		}
	}
	for _, c := range changes {
		if c.Message == "" {
			delete(next.errors, c.Path.String())
			continue
		}
		next.errors[c.Path.String()] = c.Message
	}
	return next
}

// Reset returns a snapshot holding baseline as both the values and the new
// dirty-tracking baseline, with errors, touched and dirty flags cleared, the
// submit count zeroed and the status idle. baseline is not copied and must not
// be modified afterwards.
func Reset(s *Snapshot, baseline map[string]any) *Snapshot {
	if baseline == nil {
		baseline = map[string]any{}
	}
	next := s.derive()
	next.values = baseline
	next.baseline = baseline
	next.errors = map[string]string{}
	next.touched = map[string]struct{}{}
	next.dirty = map[string]struct{}{}
	next.status = StatusIdle
	next.submitCount = 0
	return next
}

// Rebase makes the current values the new baseline and clears dirty flags.
func Rebase(s *Snapshot) *Snapshot {
	next := s.derive()
	next.baseline = s.values
	next.dirty = map[string]struct{}{}
	return next
}

// MarkTouched returns s with p flagged as touched.
func MarkTouched(s *Snapshot, p fieldpath.Path) *Snapshot {
	if s.Touched(p) {
		return s
	}
	next := s.derive()
	next.touched = make(map[string]struct{}, len(s.touched)+1)
	for k := range s.touched {
		next.touched[k] = struct{}{}
	}
	next.touched[p.String()] = struct{}{}
	return next
}

// WithStatus returns s with the given status.
func WithStatus(s *Snapshot, status Status) *Snapshot {
	if s.status == status {
		return s
	}
	next := s.derive()
	next.status = status
	return next
}

// BeginSubmit moves s to StatusValidating and counts the submission.
func BeginSubmit(s *Snapshot) *Snapshot {
	next := s.derive()
	next.status = StatusValidating
	next.submitCount++
	return next
}

// Unset removes the value at p together with its error, touched and dirty
// flags. With prune set, containers emptied by the removal are dropped too.
func Unset(s *Snapshot, p fieldpath.Path, prune bool) (*Snapshot, error) {
	tree, err := fieldpath.Unset(s.values, p, prune)
	if err != nil {
		return s, err
	}
	key := p.String()
	next := s.derive()
	next.values = tree
	next.errors = without(s.errors, key)
	next.touched = withoutSet(s.touched, key)
	next.dirty = withoutSet(s.dirty, key)
	return next, nil
}

func without(m map[string]string, key string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func withoutSet(m map[string]struct{}, key string) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		if k != key {
			out[k] = struct{}{}
		}
	}
	return out
}
