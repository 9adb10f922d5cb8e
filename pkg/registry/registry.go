// Package registry tracks the fields currently mounted on a form.
//
// Each mounted field is represented by a Subscriber keyed by its canonical
// path. The registry only borrows subscribers: the widget that created one owns
// it and is expected to unregister on teardown. Because a widget can go away
// between a state change and its delivery, every dispatch checks Mounted first
// and skips stale entries instead of failing.
package registry

import (
	"sort"
	"sync"

	formerrors "github.com/go-drift/form/pkg/errors"
	"github.com/go-drift/form/pkg/fieldpath"
)

// Subscriber is the engine's view of a mounted field.
type Subscriber interface {
	// Read returns the value the field currently displays.
	Read() any
	// Write pushes a new value into the field.
	Write(value any)
	// SetError shows message, or clears the error when message is empty.
	SetError(message string)
	// Focus asks the field to take input focus.
	Focus()
	// Mounted reports whether the field is still live.
	Mounted() bool
}

// Handle identifies one registration. The zero Handle is never issued.
type Handle struct {
	id   uint64
	path string
}

// Path returns the canonical path the handle was registered under.
func (h Handle) Path() string { return h.path }

// Valid reports whether h was issued by a registry.
func (h Handle) Valid() bool { return h.id != 0 }

type entry struct {
	id   uint64
	path fieldpath.Path
	sub  Subscriber
}

// Registry maps canonical paths to mounted subscribers.
// A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	nextID  uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register binds sub to path.
//
// Only one live subscriber may hold a path. Registering while the current
// holder still reports Mounted fails with DuplicateFieldBinding; a holder that
// has unmounted without unregistering is replaced.
func (r *Registry) Register(path fieldpath.Path, sub Subscriber) (Handle, error) {
	key := path.String()
	if path.IsRoot() {
		return Handle{}, formerrors.Newf("registry.Register", formerrors.KindInvalidPath, key, "cannot bind the root")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[key]; ok && cur.sub.Mounted() {
		return Handle{}, formerrors.New("registry.Register", formerrors.KindDuplicateFieldBinding, key, nil)
	}
	r.nextID++
	r.entries[key] = entry{id: r.nextID, path: path, sub: sub}
	return Handle{id: r.nextID, path: key}, nil
}

// Unregister removes the registration identified by h. Unknown handles, and
// handles whose path has since been taken over by another subscriber, are
// ignored. It reports whether an entry was removed.
func (r *Registry) Unregister(h Handle) bool {
	if !h.Valid() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.entries[h.path]
	if !ok || cur.id != h.id {
		return false
	}
	delete(r.entries, h.path)
	return true
}

// Lookup returns the mounted subscriber at exactly path.
func (r *Registry) Lookup(path fieldpath.Path) (Subscriber, bool) {
	r.mu.RLock()
	e, ok := r.entries[path.String()]
	r.mu.RUnlock()
	if !ok || !e.sub.Mounted() {
		return nil, false
	}
	return e.sub, true
}

// ForEach calls fn for every mounted subscriber whose path equals prefix or is
// nested under it, in canonical path order. The root path visits everything.
// fn runs without the registry lock held, so it may register or unregister.
func (r *Registry) ForEach(prefix fieldpath.Path, fn func(path fieldpath.Path, sub Subscriber)) {
	for _, e := range r.collect(func(e entry) bool { return e.path.HasPrefix(prefix) }) {
		if !e.sub.Mounted() {
			continue
		}
		fn(e.path, e.sub)
	}
}

// Paths returns the canonical paths of all mounted subscribers, sorted.
func (r *Registry) Paths() []string {
	var out []string
	for _, e := range r.collect(nil) {
		if e.sub.Mounted() {
			out = append(out, e.path.String())
		}
	}
	return out
}

// Len returns the number of registrations, mounted or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) collect(keep func(entry) bool) []entry {
	r.mu.RLock()
	out := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].path.String() < out[j].path.String() })
	return out
}
