// Package validate provides form.Validator implementations.
//
// Validators return validation messages as form.ErrorEntry values. A
// returned error means validation itself could not run and aborts the
// submission.
package validate

import (
	"context"
	"reflect"

	"golang.org/x/sync/errgroup"

	"github.com/go-drift/form/pkg/fieldpath"
	"github.com/go-drift/form/pkg/form"
)

// RequiredMessage is the message Required reports for a missing value.
const RequiredMessage = "This field is required"

// Func adapts a context-free check to form.Validator.
func Func(fn func(values map[string]any) []form.ErrorEntry) form.Validator {
	return form.ValidatorFunc(func(_ context.Context, values map[string]any) ([]form.ErrorEntry, error) {
		return fn(values), nil
	})
}

// Chain runs validators concurrently against the same tree and concatenates
// their entries in argument order. The first failure cancels the rest and is
// returned.
func Chain(validators ...form.Validator) form.Validator {
	return form.ValidatorFunc(func(ctx context.Context, values map[string]any) ([]form.ErrorEntry, error) {
		results := make([][]form.ErrorEntry, len(validators))
		g, ctx := errgroup.WithContext(ctx)
		for i, v := range validators {
			if v == nil {
				continue
			}
			g.Go(func() error {
				entries, err := v.Validate(ctx, values)
				if err != nil {
					return err
				}
				results[i] = entries
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		var out []form.ErrorEntry
		for _, r := range results {
			out = append(out, r...)
		}
		return out, nil
	})
}

// Required reports RequiredMessage for every path whose value is missing,
// nil, an empty string, an empty collection or false, and an empty message
// for every other path so that an error left by an earlier submission is
// cleared. Paths are checked in argument order. A malformed path is returned
// as an error.
func Required(paths ...string) form.Validator {
	parsed := make([]fieldpath.Path, 0, len(paths))
	var parseErr error
	for _, name := range paths {
		p, err := fieldpath.Parse(name)
		if err != nil {
			parseErr = err
			break
		}
		parsed = append(parsed, p)
	}
	return form.ValidatorFunc(func(_ context.Context, values map[string]any) ([]form.ErrorEntry, error) {
		if parseErr != nil {
			return nil, parseErr
		}
		var out []form.ErrorEntry
		for _, p := range parsed {
			v, ok := fieldpath.Get(values, p)
			entry := form.ErrorEntry{Path: p.String()}
			if !ok || isBlank(v) {
				entry.Message = RequiredMessage
			}
			out = append(out, entry)
		}
		return out, nil
	})
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
