package fields

import (
	"fmt"
	"time"

	"github.com/go-drift/form/pkg/form"
)

// DateLayout is the calendar-date layout dates are stored in.
const DateLayout = "2006-01-02"

// ToISO8601DateString formats the calendar date of t, in t's location, as YYYY-MM-DD.
func ToISO8601DateString(t time.Time) string { return t.Format(DateLayout) }

// Date is a date picker storing ISO 8601 calendar dates as strings.
type Date struct {
	field
}

// NewDate mounts a date picker for name.
func NewDate(c *form.Controller, name string) (*Date, error) {
	d := &Date{}
	if err := d.mount(c, name); err != nil {
		return nil, err
	}
	return d, nil
}

// Text returns the stored date string, or "".
func (d *Date) Text() string {
	s, _ := d.binding.Value().(string)
	return s
}

// Time parses the stored date. The second result is false for an empty or
// malformed value.
func (d *Date) Time() (time.Time, bool) {
	t, err := time.Parse(DateLayout, d.Text())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SetDate stores the calendar date of t.
func (d *Date) SetDate(t time.Time) error { return d.binding.SetValue(ToISO8601DateString(t)) }

// Input accepts a time.Time or a YYYY-MM-DD string. Empty text clears the date.
func (d *Date) Input(v any) error {
	switch t := v.(type) {
	case nil:
		return d.binding.SetValue("")
	case time.Time:
		return d.SetDate(t)
	case string:
		if t == "" {
			return d.binding.SetValue("")
		}
		if _, err := time.Parse(DateLayout, t); err != nil {
			return fmt.Errorf("fields: %s: %q is not a %s date", d.Name(), t, DateLayout)
		}
		return d.binding.SetValue(t)
	}
	return fmt.Errorf("fields: %s: cannot enter %T as a date", d.Name(), v)
}

func (d *Date) Render() string { return d.render(FormatValue(d.binding.Value())) }
