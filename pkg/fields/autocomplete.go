package fields

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-drift/form/pkg/form"
)

// Item is one suggestion offered by an autocomplete input.
type Item struct {
	Value string `json:"value" yaml:"value"`
	Text  string `json:"text" yaml:"text"`
}

// Loader fetches suggestions for a query.
type Loader func(ctx context.Context, query string) ([]Item, error)

// StaticLoader serves suggestions from a fixed list, matching the query
// case-insensitively against value and text.
func StaticLoader(items []Item) Loader {
	return func(_ context.Context, query string) ([]Item, error) {
		q := strings.ToLower(strings.TrimSpace(query))
		var out []Item
		for _, it := range items {
			if q == "" || strings.Contains(strings.ToLower(it.Value), q) || strings.Contains(strings.ToLower(it.Text), q) {
				out = append(out, it)
			}
		}
		return out, nil
	}
}

// suggestions holds the latest loader results.
type suggestions struct {
	load Loader

	mu    sync.Mutex
	items []Item
}

func (s *suggestions) search(ctx context.Context, query string) ([]Item, error) {
	if s.load == nil {
		return s.list(), nil
	}
	items, err := s.load(ctx, query)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return items, nil
}

func (s *suggestions) list() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

func (s *suggestions) text(value string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.Value == value {
			return it.Text
		}
	}
	return ""
}

// AutoComplete picks a single value from loaded suggestions.
type AutoComplete struct {
	field
	suggestions
}

// NewAutoComplete mounts an autocomplete input for name. initial seeds the
// suggestion list shown before the first search.
func NewAutoComplete(c *form.Controller, name string, load Loader, initial []Item) (*AutoComplete, error) {
	a := &AutoComplete{suggestions: suggestions{load: load, items: initial}}
	if err := a.mount(c, name); err != nil {
		return nil, err
	}
	return a, nil
}

// Search runs the loader and keeps the results as the current suggestions.
func (a *AutoComplete) Search(ctx context.Context, query string) ([]Item, error) {
	return a.search(ctx, query)
}

// Suggestions returns the current suggestions.
func (a *AutoComplete) Suggestions() []Item { return a.list() }

// Value returns the selected value, or "".
func (a *AutoComplete) Value() string {
	v := a.binding.Value()
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Select stores value.
func (a *AutoComplete) Select(value string) error { return a.binding.SetValue(value) }

// Input selects v.
func (a *AutoComplete) Input(v any) error {
	s, err := stringInput(a.Name(), v)
	if err != nil {
		return err
	}
	return a.Select(s)
}

func (a *AutoComplete) Render() string {
	state := FormatValue(a.binding.Value())
	if t := a.text(a.Value()); t != "" {
		state += " (" + t + ")"
	}
	return a.render(state)
}

// MultiAutoComplete collects several values from loaded suggestions.
type MultiAutoComplete struct {
	field
	suggestions
}

// NewMultiAutoComplete mounts a multi-value autocomplete input for name.
func NewMultiAutoComplete(c *form.Controller, name string, load Loader, initial []Item) (*MultiAutoComplete, error) {
	m := &MultiAutoComplete{suggestions: suggestions{load: load, items: initial}}
	if err := m.mount(c, name); err != nil {
		return nil, err
	}
	return m, nil
}

// Search runs the loader and keeps the results as the current suggestions.
func (m *MultiAutoComplete) Search(ctx context.Context, query string) ([]Item, error) {
	return m.search(ctx, query)
}

// Suggestions returns the current suggestions.
func (m *MultiAutoComplete) Suggestions() []Item { return m.list() }

// Values returns the selected values in order.
func (m *MultiAutoComplete) Values() []string { return asStrings(m.binding.Value()) }

// Add appends value unless it is already selected.
func (m *MultiAutoComplete) Add(value string) error {
	list := asList(m.binding.Value())
	if containsValue(list, value) {
		return nil
	}
	return m.binding.SetValue(append(append(make([]any, 0, len(list)+1), list...), value))
}

// Remove drops value from the selection.
func (m *MultiAutoComplete) Remove(value string) error {
	list := asList(m.binding.Value())
	if !containsValue(list, value) {
		return nil
	}
	return m.binding.SetValue(without(list, value))
}

// Input adds a single value or replaces the selection with a list.
func (m *MultiAutoComplete) Input(v any) error {
	if s, ok := v.(string); ok {
		return m.Add(s)
	}
	list := asList(v)
	if list == nil && v != nil {
		return fmt.Errorf("fields: %s: cannot enter %T as a selection", m.Name(), v)
	}
	next := make([]any, 0, len(list))
	for _, e := range list {
		next = append(next, fmt.Sprint(e))
	}
	return m.binding.SetValue(next)
}

func (m *MultiAutoComplete) Render() string {
	values := m.Values()
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if t := m.text(v); t != "" {
			v += " (" + t + ")"
		}
		parts = append(parts, v)
	}
	return m.render("[" + strings.Join(parts, ", ") + "]")
}
