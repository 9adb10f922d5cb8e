package fields

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-drift/form/pkg/form"
)

// Checkbox is either a boolean field of its own or a member of a
// CheckboxGroup. A boolean checkbox stores true or false at its name; a
// member stores nothing itself and reports whether its value is in the
// group's list.
type Checkbox struct {
	Label string

	own   *field
	group *CheckboxGroup
	value string
}

// NewCheckbox mounts a boolean checkbox for name.
func NewCheckbox(c *form.Controller, name string) (*Checkbox, error) {
	f := &field{}
	if err := f.mount(c, name); err != nil {
		return nil, err
	}
	return &Checkbox{own: f}, nil
}

// Name returns the bound name, or group:value for a group member.
func (cb *Checkbox) Name() string {
	if cb.group != nil {
		return cb.group.Name() + ":" + cb.value
	}
	return cb.own.Name()
}

// Value returns the member value; boolean checkboxes return "".
func (cb *Checkbox) Value() string { return cb.value }

// Checked reports whether the box is ticked.
func (cb *Checkbox) Checked() bool {
	if cb.group != nil {
		return cb.group.Contains(cb.value)
	}
	b, _ := cb.own.binding.Value().(bool)
	return b
}

// SetChecked ticks or clears the box.
func (cb *Checkbox) SetChecked(checked bool) error {
	if cb.group != nil {
		return cb.group.Set(cb.value, checked)
	}
	return cb.own.binding.SetValue(checked)
}

// Focused reports whether a boolean checkbox holds focus. Group members
// never do; focus goes to the group.
func (cb *Checkbox) Focused() bool {
	if cb.group != nil {
		return false
	}
	return cb.own.Focused()
}

// Toggle flips the box.
func (cb *Checkbox) Toggle() error { return cb.SetChecked(!cb.Checked()) }

// Input accepts a bool or its text form.
func (cb *Checkbox) Input(v any) error {
	switch t := v.(type) {
	case bool:
		return cb.SetChecked(t)
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return fmt.Errorf("fields: %s: %q is not a boolean", cb.Name(), t)
		}
		return cb.SetChecked(b)
	}
	return fmt.Errorf("fields: %s: cannot enter %T as a checkbox state", cb.Name(), v)
}

func (cb *Checkbox) Render() string {
	state := box(cb.Checked())
	if cb.Label != "" {
		state += " " + cb.Label
	}
	if cb.group != nil {
		return renderLine(false, cb.Name(), state, "")
	}
	return renderLine(cb.Focused(), cb.Name(), state, cb.own.Error())
}

// Dispose unmounts a boolean checkbox or leaves the group.
func (cb *Checkbox) Dispose() {
	if cb.group != nil {
		cb.group.remove(cb)
		return
	}
	cb.own.Dispose()
}

func box(checked bool) string {
	if checked {
		return "[x]"
	}
	return "[ ]"
}

// CheckboxGroup owns a list-valued field whose members are the values of
// the ticked checkboxes.
type CheckboxGroup struct {
	field

	mu      sync.Mutex
	members []*Checkbox
}

// NewCheckboxGroup mounts a checkbox group for name.
func NewCheckboxGroup(c *form.Controller, name string) (*CheckboxGroup, error) {
	g := &CheckboxGroup{}
	if err := g.mount(c, name); err != nil {
		return nil, err
	}
	return g, nil
}

// Member adds a checkbox for value to the group.
func (g *CheckboxGroup) Member(value, label string) *Checkbox {
	cb := &Checkbox{Label: label, group: g, value: value}
	g.mu.Lock()
	g.members = append(g.members, cb)
	g.mu.Unlock()
	return cb
}

// Members returns the group's checkboxes in the order they were added.
func (g *CheckboxGroup) Members() []*Checkbox {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Checkbox(nil), g.members...)
}

func (g *CheckboxGroup) remove(cb *Checkbox) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, m := range g.members {
		if m == cb {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return
		}
	}
}

// Selected returns the ticked values in stored order.
func (g *CheckboxGroup) Selected() []string { return asStrings(g.binding.Value()) }

// Contains reports whether value is ticked.
func (g *CheckboxGroup) Contains(value string) bool {
	return containsValue(asList(g.binding.Value()), value)
}

// Set ticks or clears value. Ticking appends to the list; clearing removes
// every occurrence. Setting the current state again changes nothing.
func (g *CheckboxGroup) Set(value string, checked bool) error {
	list := asList(g.binding.Value())
	if containsValue(list, value) == checked {
		return nil
	}
	var next []any
	if checked {
		next = append(append(make([]any, 0, len(list)+1), list...), value)
	} else {
		next = without(list, value)
	}
	return g.binding.SetValue(next)
}

// Toggle flips value.
func (g *CheckboxGroup) Toggle(value string) error { return g.Set(value, !g.Contains(value)) }

// Input replaces the whole selection with a list of values.
func (g *CheckboxGroup) Input(v any) error {
	if s, ok := v.(string); ok {
		return g.Toggle(s)
	}
	list := asList(v)
	if list == nil && v != nil {
		return fmt.Errorf("fields: %s: cannot enter %T as a selection", g.Name(), v)
	}
	next := make([]any, 0, len(list))
	for _, e := range list {
		next = append(next, fmt.Sprint(e))
	}
	return g.binding.SetValue(next)
}

func (g *CheckboxGroup) Render() string {
	members := g.Members()
	if len(members) == 0 {
		return g.render(FormatValue(g.binding.Value()))
	}
	parts := make([]string, 0, len(members))
	for _, m := range members {
		parts = append(parts, box(m.Checked())+" "+m.value)
	}
	return g.render(strings.Join(parts, "  "))
}

// Dispose unmounts the group and drops its members.
func (g *CheckboxGroup) Dispose() {
	g.mu.Lock()
	g.members = nil
	g.mu.Unlock()
	g.field.Dispose()
}
