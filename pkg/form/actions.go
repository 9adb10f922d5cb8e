package form

import (
	"context"
)

// ValueEntry sets Value at the field named Path.
type ValueEntry struct {
	Path  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// ErrorEntry sets Message on the field named Path. An empty Message clears it.
type ErrorEntry struct {
	Path    string `json:"name" yaml:"name"`
	Message string `json:"message" yaml:"message"`
}

// Actions is the capability handed to OnSubmit and OnChange. It is bound to
// the controller that invoked the callback.
type Actions interface {
	SetValues(entries []ValueEntry) error
	SetErrors(entries []ErrorEntry, opts ...ErrorsOption) error
	Reset()
	Focus(path string) bool
	Values() map[string]any
}

// SubmitFunc handles a submission that passed validation. The returned error
// is passed through to the caller of Submit unchanged.
type SubmitFunc func(ctx context.Context, values map[string]any, actions Actions) error

// ChangeFunc observes every value change with the full current tree.
type ChangeFunc func(values map[string]any, actions Actions)

// Validator checks a value tree before submission. Returned entries are
// validation messages, not failures; a non-nil error aborts the submission.
type Validator interface {
	Validate(ctx context.Context, values map[string]any) ([]ErrorEntry, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, values map[string]any) ([]ErrorEntry, error)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, values map[string]any) ([]ErrorEntry, error) {
	return f(ctx, values)
}

// ErrorsOption configures SetErrors.
type ErrorsOption func(*errorsOptions)

type errorsOptions struct {
	shouldFocus bool
}

// ShouldFocus makes SetErrors focus the first entry, in call order, whose
// field is mounted.
func ShouldFocus() ErrorsOption {
	return func(o *errorsOptions) { o.shouldFocus = true }
}

// WithFocus is ShouldFocus with an explicit switch.
func WithFocus(enabled bool) ErrorsOption {
	return func(o *errorsOptions) { o.shouldFocus = enabled }
}

// boundActions narrows a controller to the Actions surface.
type boundActions struct {
	c *Controller
}

func (a boundActions) SetValues(entries []ValueEntry) error { return a.c.SetValues(entries) }

func (a boundActions) SetErrors(entries []ErrorEntry, opts ...ErrorsOption) error {
	return a.c.SetErrors(entries, opts...)
}

func (a boundActions) Reset() { a.c.Reset() }
func (a boundActions) Focus(path string) bool { return a.c.Focus(path) }
func (a boundActions) Values() map[string]any { return a.c.Values() }
