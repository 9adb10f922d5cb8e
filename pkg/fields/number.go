package fields

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-drift/form/pkg/form"
)

// Number is a numeric input. Whole numbers are stored as int, others as float64.
type Number struct {
	field
}

// NewNumber mounts a number input for name.
func NewNumber(c *form.Controller, name string) (*Number, error) {
	n := &Number{}
	if err := n.mount(c, name); err != nil {
		return nil, err
	}
	return n, nil
}

// Number returns the value as float64. The second result is false when the
// field is empty or holds something that is not a number.
func (n *Number) Number() (float64, bool) {
	switch v := n.binding.Value().(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	return 0, false
}

// SetNumber stores f.
func (n *Number) SetNumber(f float64) error { return n.binding.SetValue(numberValue(f)) }

// Clear empties the field.
func (n *Number) Clear() error { return n.binding.SetValue(nil) }

// Input accepts numbers or their decimal text. Empty text clears the field.
func (n *Number) Input(v any) error {
	switch t := v.(type) {
	case nil:
		return n.Clear()
	case int:
		return n.binding.SetValue(t)
	case int64:
		return n.binding.SetValue(int(t))
	case float64:
		return n.SetNumber(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return n.Clear()
		}
		if i, err := strconv.Atoi(s); err == nil {
			return n.binding.SetValue(i)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("fields: %s: %q is not a number", n.Name(), t)
		}
		return n.SetNumber(f)
	}
	return fmt.Errorf("fields: %s: cannot enter %T as a number", n.Name(), v)
}

func (n *Number) Render() string { return n.render(FormatValue(n.binding.Value())) }

func numberValue(f float64) any {
	if f == float64(int(f)) {
		return int(f)
	}
	return f
}
