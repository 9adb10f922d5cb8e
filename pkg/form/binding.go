package form

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-drift/form/pkg/fieldpath"
	"github.com/go-drift/form/pkg/registry"
	"github.com/go-drift/form/pkg/state"
)

// Binding connects one widget to a controller under a field name.
//
// The widget reads Value and Error, reports edits with SetValue, and polls
// FocusRequested (or listens for changes) to learn when the engine wants it
// focused. Dispose must be called when the widget goes away; it is safe to
// call more than once.
type Binding struct {
	ctrl   *Controller
	path   fieldpath.Path
	handle registry.Handle

	mounted      atomic.Bool
	focusPending atomic.Bool

	mu        sync.Mutex
	value     any
	errorText string
	listeners map[int]func()
	nextID    int
}

// Register mounts a binding for name. It fails with
// errors.ErrInvalidPath for a malformed name and
// errors.ErrDuplicateFieldBinding when another mounted binding holds the path.
func (c *Controller) Register(name string) (*Binding, error) {
	p, err := fieldpath.Parse(name)
	if err != nil {
		return nil, err
	}
	b := &Binding{ctrl: c, path: p}
	b.mounted.Store(true)

	// The initial state is read once the binding is reachable, so a change
	// committed while registering is either read here or pushed afterwards.
	b.mu.Lock()
	h, err := c.fields.Register(p, b)
	if err != nil {
		b.mu.Unlock()
		b.mounted.Store(false)
		return nil, err
	}
	snap := c.Snapshot()
	b.value, _ = snap.Value(p)
	b.errorText = snap.Error(p)
	b.handle = h
	b.mu.Unlock()
	c.logger.Debug("field registered", slog.String("path", p.String()))
	return b, nil
}

// Name returns the canonical field name.
func (b *Binding) Name() string { return b.path.String() }

// Path returns the parsed field path.
func (b *Binding) Path() fieldpath.Path { return b.path }

// Value returns the value last pushed to this field.
func (b *Binding) Value() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Error returns the field's current error message, or "".
func (b *Binding) Error() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorText
}

// Touched reports whether the field has been edited or blurred since the last reset.
func (b *Binding) Touched() bool { return b.ctrl.Snapshot().Touched(b.path) }

// Dirty reports whether the field's value differs from the baseline.
func (b *Binding) Dirty() bool { return b.ctrl.Snapshot().Dirty(b.path) }

// SetValue records a user edit: the value is stored, the field is marked
// touched, subscribers are notified and OnChange fires. Edits from a disposed
// binding are dropped.
func (b *Binding) SetValue(v any) error {
	if !b.mounted.Load() {
		return nil
	}
	return b.ctrl.applyValues([]state.ValueChange{{Path: b.path, Value: v}}, &b.path)
}

// Focused reports whether this field holds the form's focus.
func (b *Binding) Focused() bool {
	return b.mounted.Load() && b.ctrl.FocusedField() == b.path.String()
}

// Blur gives up focus and marks the field as touched without changing its
// value.
func (b *Binding) Blur() {
	if !b.mounted.Load() {
		return
	}
	b.ctrl.releaseFocus(b.path)
	b.ctrl.commit(func(s *state.Snapshot) (*state.Snapshot, error) {
		return state.MarkTouched(s, b.path), nil
	})
}

// FocusRequested reports whether the engine asked this field to take focus
// since the last call. The request is consumed.
func (b *Binding) FocusRequested() bool {
	return b.focusPending.Swap(false)
}

// Listen registers fn to run whenever the engine pushes a value, an error or
// a focus request to this field. The returned function removes it.
func (b *Binding) Listen(fn func()) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[int]func())
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Dispose unmounts the binding. With Config.ShouldUnregister the field's
// value is removed from the tree as well.
func (b *Binding) Dispose() {
	if !b.mounted.Swap(false) {
		return
	}
	b.ctrl.fields.Unregister(b.handle)
	b.ctrl.releaseFocus(b.path)
	b.ctrl.logger.Debug("field unregistered", slog.String("path", b.path.String()))
	if b.ctrl.cfg.ShouldUnregister {
		_, _, err := b.ctrl.commit(func(s *state.Snapshot) (*state.Snapshot, error) {
			return state.Unset(s, b.path, b.ctrl.cfg.PruneEmpty)
		})
		if err != nil {
			b.ctrl.logger.Debug("value not removed", slog.String("path", b.path.String()), slog.Any("err", err))
		}
	}
}

// Read implements registry.Subscriber.
func (b *Binding) Read() any { return b.Value() }

// Write implements registry.Subscriber.
func (b *Binding) Write(v any) {
	b.mu.Lock()
	b.value = v
	b.mu.Unlock()
	b.notify()
}

// SetError implements registry.Subscriber.
func (b *Binding) SetError(message string) {
	b.mu.Lock()
	changed := b.errorText != message
	b.errorText = message
	b.mu.Unlock()
	if changed {
		b.notify()
	}
}

// Focus implements registry.Subscriber. The field takes the form's focus
// from whichever field held it.
func (b *Binding) Focus() {
	b.ctrl.takeFocus(b.path)
	b.focusPending.Store(true)
	b.notify()
}

// Mounted implements registry.Subscriber.
func (b *Binding) Mounted() bool { return b.mounted.Load() }

func (b *Binding) notify() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
