package validate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/go-drift/form/pkg/fieldpath"
	"github.com/go-drift/form/pkg/form"
)

// MessageFunc renders the message for one failed validation tag.
type MessageFunc func(fe validator.FieldError) string

// StructOption configures a struct validator.
type StructOption func(*structConfig)

type structConfig struct {
	validate *validator.Validate
	message  MessageFunc
}

// WithValidate uses v instead of a fresh validator instance, e.g. one with
// custom validations registered. The json tag-name function is still installed.
func WithValidate(v *validator.Validate) StructOption {
	return func(c *structConfig) { c.validate = v }
}

// WithMessages overrides how failed tags are rendered.
func WithMessages(fn MessageFunc) StructOption {
	return func(c *structConfig) { c.message = fn }
}

// Struct validates the value tree by decoding it into a T and running
// go-playground/validator over the result.
//
// Field names in the returned entries follow the json tags of T, so a struct
// mirroring the form's field names produces entries that land on the right
// fields. A value that cannot be decoded into its field's type is reported on
// that field instead of failing the submission.
//
//	type signup struct {
//	    Email string `json:"email" validate:"required,email"`
//	    Age   int    `json:"age" validate:"gte=18"`
//	}
//	ctrl, _ := form.New(form.Config{Validator: validate.Struct[signup]()})
func Struct[T any](opts ...StructOption) form.Validator {
	cfg := structConfig{message: DefaultMessage}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.validate == nil {
		cfg.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	cfg.validate.RegisterTagNameFunc(jsonName)

	return form.ValidatorFunc(func(ctx context.Context, values map[string]any) ([]form.ErrorEntry, error) {
		raw, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("validate: encode values: %w", err)
		}
		var target T
		if err := json.Unmarshal(raw, &target); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				return []form.ErrorEntry{{
					Path:    canonical(typeErr.Field),
					Message: fmt.Sprintf("must be a %s", typeErr.Type),
				}}, nil
			}
			return nil, fmt.Errorf("validate: decode values: %w", err)
		}

		err = cfg.validate.StructCtx(ctx, &target)
		if err == nil {
			return nil, nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		out := make([]form.ErrorEntry, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, form.ErrorEntry{
				Path:    canonical(stripRoot(fe.Namespace())),
				Message: cfg.message(fe),
			})
		}
		return out, nil
	})
}

// DefaultMessage renders the common tags in plain English.
func DefaultMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless", "required_with", "required_without":
		return RequiredMessage
	case "email":
		return "Must be a valid email address"
	case "min", "gte":
		if isLength(fe.Kind()) {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max", "lte":
		if isLength(fe.Kind()) {
			return fmt.Sprintf("Must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("Must be a date in the format %s", fe.Param())
	}
	return fmt.Sprintf("Failed the %q check", fe.Tag())
}

func isLength(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Slice || k == reflect.Map
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// stripRoot drops the struct type name validator puts in front of every namespace.
func stripRoot(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

// canonical rewrites bracket indices into dotted form when the name parses.
func canonical(name string) string {
	p, err := fieldpath.Parse(name)
	if err != nil {
		return name
	}
	return p.String()
}
