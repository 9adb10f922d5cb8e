// Package form provides the form controller and the bindings widgets use to
// attach to it.
//
// A Controller owns one form: its value tree, its error messages and its
// submission status. Widgets do not touch the tree directly. They register a
// Binding under a dotted field name and then read and write through it:
//
//	ctrl, err := form.New(form.Config{
//	    ID:            "my-form",
//	    InitialValues: map[string]any{"input1": "Text 1", "dish": []string{"burger"}},
//	    OnSubmit: func(ctx context.Context, values map[string]any, actions form.Actions) error {
//	        return actions.SetErrors([]form.ErrorEntry{
//	            {Path: "input1", Message: "taken"},
//	        }, form.ShouldFocus())
//	    },
//	})
//
//	input, err := ctrl.Register("input1")
//	defer input.Dispose()
//
//	input.SetValue("New Value")
//	outcome, err := ctrl.Submit(ctx)
//
// Bulk mutation:
//   - SetValues applies an ordered list of entries; the last entry for a path
//     wins, and OnChange fires once per call.
//   - SetErrors overwrites the errors of the named paths and keeps the others.
//     With ShouldFocus, the first entry whose field is mounted receives focus.
//
// Lifecycle:
//   - Submit runs the Validator, then OnSubmit. A second Submit while one is
//     running fails with errors.ErrSubmitAlreadyInProgress.
//   - Reset restores the baseline values and clears errors and touched flags.
//     It does not stop a running OnSubmit; it only resets local state.
//
// Callbacks receive an Actions value bound to their own controller, so
// several forms can run side by side without sharing state. A Directory lets
// code outside a form (an external submit button, for instance) reach a
// controller by its ID.
package form
