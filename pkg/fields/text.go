package fields

import (
	"fmt"

	"github.com/go-drift/form/pkg/form"
)

// Text is a single-line text input.
type Text struct {
	field
}

// NewText mounts a text input for name.
func NewText(c *form.Controller, name string) (*Text, error) {
	t := &Text{}
	if err := t.mount(c, name); err != nil {
		return nil, err
	}
	return t, nil
}

// Text returns the current text. Non-string values are formatted.
func (t *Text) Text() string {
	switch v := t.binding.Value().(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// SetText stores s as the field value.
func (t *Text) SetText(s string) error { return t.binding.SetValue(s) }

// Input enters v as text.
func (t *Text) Input(v any) error {
	s, err := stringInput(t.Name(), v)
	if err != nil {
		return err
	}
	return t.SetText(s)
}

func (t *Text) Render() string { return t.render(FormatValue(t.binding.Value())) }

// TextArea is a multi-line text input. It stores the same plain string as Text.
type TextArea struct {
	Text
}

// NewTextArea mounts a text area for name.
func NewTextArea(c *form.Controller, name string) (*TextArea, error) {
	t := &TextArea{}
	if err := t.mount(c, name); err != nil {
		return nil, err
	}
	return t, nil
}

// Hidden carries a value the user cannot edit, such as a record id.
type Hidden struct {
	field
}

// NewHidden mounts a hidden field for name.
func NewHidden(c *form.Controller, name string) (*Hidden, error) {
	h := &Hidden{}
	if err := h.mount(c, name); err != nil {
		return nil, err
	}
	return h, nil
}

// Value returns the carried value.
func (h *Hidden) Value() any { return h.binding.Value() }

// Input always fails; hidden values change only through the controller.
func (h *Hidden) Input(any) error {
	return fmt.Errorf("fields: %s: hidden field does not accept input", h.Name())
}

func (h *Hidden) Render() string { return h.render(FormatValue(h.binding.Value()) + " (hidden)") }
