package fieldpath

import (
	"fmt"
	"reflect"

	formerrors "github.com/go-drift/form/pkg/errors"
)

// Get returns the value stored at p. The second result is false when any
// segment along the way is missing or addresses the wrong container shape;
// Get never fails.
func Get(tree map[string]any, p Path) (any, bool) {
	var cur any = tree
	if tree == nil {
		return nil, false
	}
	for _, seg := range p.segs {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// child reads one step down from a container. Typed slices and string-keyed
// maps supplied by callers (e.g. []string initial values) are read through
// reflection.
func child(container any, seg Segment) (any, bool) {
	switch c := container.(type) {
	case map[string]any:
		if seg.IsIndex {
			return nil, false
		}
		v, ok := c[seg.Key]
		return v, ok
	case []any:
		if !seg.IsIndex || seg.Index >= len(c) {
			return nil, false
		}
		return c[seg.Index], true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if !seg.IsIndex || seg.Index >= rv.Len() {
			return nil, false
		}
		return rv.Index(seg.Index).Interface(), true
	case reflect.Map:
		if seg.IsIndex || rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(seg.Key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	}
	return nil, false
}

// MaxIndexGap is how far past the end of an array Set may write. Larger
// gaps are rejected as a TypeShapeConflict instead of allocating the padding.
const MaxIndexGap = 1024

// Set returns a tree equal to tree with value stored at p.
//
// Missing intermediate containers are created: an array when the next segment
// is an index, a map otherwise. Arrays grow with nil padding. Only the
// containers on the path from the root to the leaf are copied.
//
// An index segment applied to a map, a key segment applied to an array, or a
// path that descends through a non-container leaf is a TypeShapeConflict.
func Set(tree map[string]any, p Path, value any) (map[string]any, error) {
	if p.IsRoot() {
		m, ok := value.(map[string]any)
		if !ok {
			return nil, formerrors.Newf("fieldpath.Set", formerrors.KindTypeShapeConflict, "", "root must be a map, got %T", value)
		}
		return m, nil
	}
	out, err := setIn(tree, p, 0, value)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func setIn(container any, p Path, depth int, value any) (any, error) {
	if depth == len(p.segs) {
		return value, nil
	}
	seg := p.segs[depth]
	container = normalize(container)

	switch c := container.(type) {
	case nil:
		// A nil tree at the root is an empty map.
		if depth == 0 && seg.IsIndex {
			return nil, conflict("fieldpath.Set", p, depth, "index segment at root")
		}
		if seg.IsIndex && seg.Index > MaxIndexGap {
			return nil, conflict("fieldpath.Set", p, depth, "index %d is more than %d past the end", seg.Index, MaxIndexGap)
		}
		next, err := setIn(nil, p, depth+1, value)
		if err != nil {
			return nil, err
		}
		if seg.IsIndex {
			arr := make([]any, seg.Index+1)
			arr[seg.Index] = next
			return arr, nil
		}
		return map[string]any{seg.Key: next}, nil

	case map[string]any:
		if seg.IsIndex {
			return nil, conflict("fieldpath.Set", p, depth, "index segment on map")
		}
		next, err := setIn(c[seg.Key], p, depth+1, value)
		if err != nil {
			return nil, err
		}
		cp := make(map[string]any, len(c)+1)
		for k, v := range c {
			cp[k] = v
		}
		cp[seg.Key] = next
		return cp, nil

	case []any:
		if !seg.IsIndex {
			return nil, conflict("fieldpath.Set", p, depth, "key segment on array")
		}
		if seg.Index-len(c) > MaxIndexGap {
			return nil, conflict("fieldpath.Set", p, depth, "index %d is more than %d past the end", seg.Index, MaxIndexGap)
		}
		var existing any
		if seg.Index < len(c) {
			existing = c[seg.Index]
		}
		next, err := setIn(existing, p, depth+1, value)
		if err != nil {
			return nil, err
		}
		n := len(c)
		if seg.Index >= n {
			n = seg.Index + 1
		}
		cp := make([]any, n)
		copy(cp, c)
		cp[seg.Index] = next
		return cp, nil
	}
	return nil, conflict("fieldpath.Set", p, depth, "cannot descend into %T", container)
}

// Unset returns a tree without the value at p. Removing a map key deletes the
// key; removing an array slot sets it to nil so sibling indices stay stable.
// When prune is true, containers left empty by the removal are removed from
// their parents as well. A path that does not exist is not an error.
func Unset(tree map[string]any, p Path, prune bool) (map[string]any, error) {
	if p.IsRoot() {
		return map[string]any{}, nil
	}
	if tree == nil {
		return map[string]any{}, nil
	}
	out, _, err := unsetIn(tree, p, 0, prune)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return map[string]any{}, nil
	}
	return out.(map[string]any), nil
}

func unsetIn(container any, p Path, depth int, prune bool) (any, bool, error) {
	seg := p.segs[depth]
	last := depth == len(p.segs)-1
	container = normalize(container)

	switch c := container.(type) {
	case nil:
		return nil, false, nil

	case map[string]any:
		if seg.IsIndex {
			return nil, false, conflict("fieldpath.Unset", p, depth, "index segment on map")
		}
		existing, ok := c[seg.Key]
		if !ok {
			return c, false, nil
		}
		cp := make(map[string]any, len(c))
		for k, v := range c {
			cp[k] = v
		}
		if last {
			delete(cp, seg.Key)
			return cp, true, nil
		}
		next, changed, err := unsetIn(existing, p, depth+1, prune)
		if err != nil || !changed {
			return c, false, err
		}
		if prune && isEmpty(next) {
			delete(cp, seg.Key)
		} else {
			cp[seg.Key] = next
		}
		return cp, true, nil

	case []any:
		if !seg.IsIndex {
			return nil, false, conflict("fieldpath.Unset", p, depth, "key segment on array")
		}
		if seg.Index >= len(c) {
			return c, false, nil
		}
		cp := make([]any, len(c))
		copy(cp, c)
		if last {
			cp[seg.Index] = nil
			return cp, true, nil
		}
		next, changed, err := unsetIn(c[seg.Index], p, depth+1, prune)
		if err != nil || !changed {
			return c, false, err
		}
		if prune && isEmpty(next) {
			cp[seg.Index] = nil
		} else {
			cp[seg.Index] = next
		}
		return cp, true, nil
	}
	if last {
		return nil, false, conflict("fieldpath.Unset", p, depth, "cannot remove from %T", container)
	}
	return nil, false, conflict("fieldpath.Unset", p, depth, "cannot descend into %T", container)
}

// isEmpty reports whether v is a container with nothing left in it.
// Arrays holding only nil slots count as empty.
func isEmpty(v any) bool {
	switch c := v.(type) {
	case map[string]any:
		return len(c) == 0
	case []any:
		for _, e := range c {
			if e != nil {
				return false
			}
		}
		return true
	}
	return false
}

// normalize converts typed slices and string-keyed maps into the generic
// container types so they can be copied and extended.
func normalize(v any) any {
	switch v.(type) {
	case nil, map[string]any, []any:
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	}
	return v
}

// Clone returns a deep copy of tree. Leaves are copied by value; slices and
// maps of any element type are duplicated.
func Clone(tree map[string]any) map[string]any {
	if tree == nil {
		return map[string]any{}
	}
	return cloneValue(tree).(map[string]any)
}

func cloneValue(v any) any {
	switch c := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, e := range c {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = cloneValue(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface()
	}
	return v
}

func conflict(op string, p Path, depth int, format string, args ...any) error {
	at := Path{segs: p.segs[:depth+1]}
	return formerrors.New(op, formerrors.KindTypeShapeConflict, p.String(),
		fmt.Errorf("at %q: "+format, append([]any{at.String()}, args...)...))
}
