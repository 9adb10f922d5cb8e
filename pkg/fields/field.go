// Package fields provides headless reference inputs built on form bindings.
//
// Each input mounts one binding on a controller, converts user input into
// field values and renders its state as a single line of text. They carry no
// visual styling and exist to drive forms from tests, scenarios and terminals.
package fields

import (
	"fmt"
	"reflect"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/go-drift/form/pkg/form"
)

// Field is a headless input mounted on a controller.
type Field interface {
	// Name returns the field name the input is bound to.
	Name() string
	// Input simulates the user entering v.
	Input(v any) error
	// Render returns a one-line description of the input's state.
	Render() string
	// Dispose unmounts the input.
	Dispose()
}

// field is the binding plumbing shared by the inputs.
type field struct {
	binding *form.Binding
}

func (f *field) mount(c *form.Controller, name string) error {
	b, err := c.Register(name)
	if err != nil {
		return err
	}
	f.binding = b
	return nil
}

// Name returns the bound field name.
func (f *field) Name() string { return f.binding.Name() }

// Binding exposes the underlying binding.
func (f *field) Binding() *form.Binding { return f.binding }

// Error returns the field's error message.
func (f *field) Error() string { return f.binding.Error() }

// Focused reports whether the input holds the form's focus. It keeps it
// until Blur or until the form focuses another field.
func (f *field) Focused() bool { return f.binding.Focused() }

// Blur drops focus and marks the field touched.
func (f *field) Blur() { f.binding.Blur() }

// Dispose unmounts the binding.
func (f *field) Dispose() { f.binding.Dispose() }

func (f *field) render(state string) string {
	return renderLine(f.Focused(), f.Name(), state, f.Error())
}

func renderLine(focused bool, name, state, errText string) string {
	var sb strings.Builder
	if focused {
		sb.WriteString("> ")
	} else {
		sb.WriteString("  ")
	}
	sb.WriteString(name)
	sb.WriteString(" = ")
	sb.WriteString(state)
	if errText != "" {
		sb.WriteString("  ! ")
		sb.WriteString(errText)
	}
	return sb.String()
}

// FormatValue renders a field value as compact JSON.
func FormatValue(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// asList returns the members of a slice value. Non-slices yield nil.
func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func asStrings(v any) []string {
	list := asList(v)
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, fmt.Sprint(e))
	}
	return out
}

func containsValue(list []any, value string) bool {
	for _, e := range list {
		if fmt.Sprint(e) == value {
			return true
		}
	}
	return false
}

func without(list []any, value string) []any {
	out := make([]any, 0, len(list))
	for _, e := range list {
		if fmt.Sprint(e) != value {
			out = append(out, e)
		}
	}
	return out
}

func stringInput(name string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	case bool, int, int64, float64:
		return fmt.Sprint(t), nil
	}
	return "", fmt.Errorf("fields: %s: cannot enter %T as text", name, v)
}

var (
	_ Field = (*Text)(nil)
	_ Field = (*TextArea)(nil)
	_ Field = (*Hidden)(nil)
	_ Field = (*Number)(nil)
	_ Field = (*Date)(nil)
	_ Field = (*Checkbox)(nil)
	_ Field = (*CheckboxGroup)(nil)
	_ Field = (*AutoComplete)(nil)
	_ Field = (*MultiAutoComplete)(nil)
)
