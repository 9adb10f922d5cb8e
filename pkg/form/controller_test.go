package form

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	formerrors "github.com/go-drift/form/pkg/errors"
	"github.com/go-drift/form/pkg/state"
)

func prefilled() map[string]any {
	return map[string]any{
		"id":          "my-id",
		"input1":      "Text 1",
		"input2":      "Text 2",
		"textarea":    "Text",
		"numberinput": 10,
		"date":        "2024-05-01",
		"dish":        []string{"burger"},
		"country":     "BG",
		"countries":   []string{"FI", "GB"},
	}
}

func newController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return c
}

func register(t *testing.T, c *Controller, name string) *Binding {
	t.Helper()
	b, err := c.Register(name)
	require.NoError(t, err)
	t.Cleanup(b.Dispose)
	return b
}

func TestNewAssignsID(t *testing.T) {
	c := newController(t, Config{})
	assert.NotEmpty(t, c.ID())

	named := newController(t, Config{ID: "my-form"})
	assert.Equal(t, "my-form", named.ID())
}

func TestSetValuesDistinctPathsOrderIndependent(t *testing.T) {
	for _, entries := range [][]ValueEntry{
		{{Path: "input1", Value: "a"}, {Path: "numberinput", Value: 25}},
		{{Path: "numberinput", Value: 25}, {Path: "input1", Value: "a"}},
	} {
		c := newController(t, Config{InitialValues: prefilled()})
		require.NoError(t, c.SetValues(entries))

		v1, _ := c.Value("input1")
		v2, _ := c.Value("numberinput")
		assert.Equal(t, "a", v1)
		assert.Equal(t, 25, v2)
	}
}

func TestSetValuesLastWriteWins(t *testing.T) {
	c := newController(t, Config{})
	require.NoError(t, c.SetValues([]ValueEntry{
		{Path: "input1", Value: "first"},
		{Path: "input1", Value: "second"},
	}))
	v, _ := c.Value("input1")
	assert.Equal(t, "second", v)
}

func TestSetValuesPushesAndFiresOnChangeOnce(t *testing.T) {
	var calls int
	var last map[string]any
	c := newController(t, Config{
		InitialValues: prefilled(),
		OnChange: func(values map[string]any, _ Actions) {
			calls++
			last = values
		},
	})
	date := register(t, c, "date")
	input1 := register(t, c, "input1")

	require.NoError(t, c.SetValues([]ValueEntry{
		{Path: "date", Value: "1990-01-10"},
		{Path: "input1", Value: "New Value"},
		{Path: "textarea", Value: "New Value"},
		{Path: "numberinput", Value: 25},
	}))

	assert.Equal(t, 1, calls, "OnChange should fire once per SetValues call")
	assert.Equal(t, "1990-01-10", date.Value())
	assert.Equal(t, "New Value", input1.Value())
	assert.Equal(t, 25, last["numberinput"])
}

func TestSetValuesInvalidPathLeavesFormUntouched(t *testing.T) {
	var calls int
	c := newController(t, Config{
		InitialValues: prefilled(),
		OnChange:      func(map[string]any, Actions) { calls++ },
	})
	before := c.Snapshot()

	err := c.SetValues([]ValueEntry{
		{Path: "input1", Value: "x"},
		{Path: "bad..path", Value: "y"},
	})
	require.ErrorIs(t, err, formerrors.ErrInvalidPath)

	err = c.SetValues([]ValueEntry{
		{Path: "input1", Value: "x"},
		{Path: "input1.child", Value: "y"},
	})
	require.ErrorIs(t, err, formerrors.ErrTypeShapeConflict)

	assert.Same(t, before, c.Snapshot())
	assert.Zero(t, calls)
}

func TestHierarchicalCheckboxesAreIndependent(t *testing.T) {
	c := newController(t, Config{})
	nested := register(t, c, "root.test.selected")
	top := register(t, c, "root.selected")

	require.NoError(t, nested.SetValue(true))
	require.NoError(t, c.SetValues([]ValueEntry{{Path: "root.selected", Value: false}}))

	v, ok := c.Value("root.test.selected")
	assert.True(t, ok)
	assert.Equal(t, true, v)
	assert.Equal(t, true, nested.Value())
	assert.Equal(t, false, top.Value())
	assert.Equal(t, map[string]any{
		"root": map[string]any{
			"selected": false,
			"test":     map[string]any{"selected": true},
		},
	}, c.Values())
}

func TestSetValuesOnContainerNotifiesNestedFields(t *testing.T) {
	c := newController(t, Config{})
	nested := register(t, c, "root.test.selected")
	top := register(t, c, "root.selected")

	require.NoError(t, c.SetValues([]ValueEntry{{
		Path:  "root",
		Value: map[string]any{"selected": true, "test": map[string]any{"selected": true}},
	}}))
	assert.Equal(t, true, nested.Value())
	assert.Equal(t, true, top.Value())
}

func TestCheckboxGroupMembership(t *testing.T) {
	c := newController(t, Config{InitialValues: map[string]any{"dish": []string{"burger"}}})
	group := register(t, c, "dish")

	require.NoError(t, c.SetValues([]ValueEntry{{Path: "dish", Value: []string{"burger", "cake"}}}))

	members := group.Value().([]string)
	assert.Contains(t, members, "cake")
	assert.Contains(t, members, "burger")
	assert.NotContains(t, members, "waffles")
}

func TestSetErrorsMergesAndPushes(t *testing.T) {
	c := newController(t, Config{InitialValues: prefilled()})
	input1 := register(t, c, "input1")
	date := register(t, c, "date")

	require.NoError(t, c.SetErrors([]ErrorEntry{
		{Path: "input1", Message: "Custom error from submit: input1"},
		{Path: "date", Message: "Custom error from submit: date"},
	}))
	require.NoError(t, c.SetErrors([]ErrorEntry{{Path: "textarea", Message: "bad"}}))

	assert.Equal(t, "Custom error from submit: input1", input1.Error())
	assert.Equal(t, "Custom error from submit: date", date.Error())
	assert.Equal(t, map[string]string{
		"input1":   "Custom error from submit: input1",
		"date":     "Custom error from submit: date",
		"textarea": "bad",
	}, c.Errors())
	assert.False(t, input1.FocusRequested(), "focus only with ShouldFocus")

	require.NoError(t, c.SetErrors([]ErrorEntry{{Path: "input1"}}))
	assert.Empty(t, input1.Error())
	assert.Equal(t, "Custom error from submit: date", date.Error())
}

func TestSetErrorsFocusFirstMounted(t *testing.T) {
	c := newController(t, Config{InitialValues: prefilled()})
	date := register(t, c, "date")
	textarea := register(t, c, "textarea")

	// input1 has no mounted field, so date is the first focusable entry.
	require.NoError(t, c.SetErrors([]ErrorEntry{
		{Path: "input1", Message: "e1"},
		{Path: "date", Message: "e2"},
		{Path: "textarea", Message: "e3"},
	}, ShouldFocus()))

	assert.True(t, date.FocusRequested())
	assert.False(t, date.FocusRequested(), "focus request is one-shot")
	assert.False(t, textarea.FocusRequested())
}

func TestSetErrorsFocusNoneMounted(t *testing.T) {
	c := newController(t, Config{})
	gone := register(t, c, "input1")
	gone.Dispose()

	err := c.SetErrors([]ErrorEntry{{Path: "input1", Message: "e"}}, WithFocus(true))
	require.NoError(t, err)
	assert.False(t, gone.FocusRequested())
	assert.Equal(t, "e", c.Errors()["input1"])
}

func TestSetErrorsFocusSkipsClearingEntries(t *testing.T) {
	c := newController(t, Config{})
	a := register(t, c, "a")
	b := register(t, c, "b")

	require.NoError(t, c.SetErrors([]ErrorEntry{
		{Path: "a"},
		{Path: "b", Message: "bad"},
	}, ShouldFocus()))
	assert.False(t, a.FocusRequested(), "a cleared entry is not a focus target")
	assert.True(t, b.FocusRequested())
	assert.Equal(t, "b", c.FocusedField())
}

func TestFocusIsExclusive(t *testing.T) {
	c := newController(t, Config{})
	a := register(t, c, "a")
	b := register(t, c, "b")

	require.NoError(t, c.SetErrors([]ErrorEntry{{Path: "a", Message: "x"}}, ShouldFocus()))
	assert.True(t, a.Focused())
	require.NoError(t, c.SetErrors([]ErrorEntry{{Path: "b", Message: "y"}}, ShouldFocus()))
	assert.False(t, a.Focused())
	assert.True(t, b.Focused())

	b.Blur()
	assert.False(t, b.Focused())
	assert.Empty(t, c.FocusedField())

	assert.True(t, c.Focus("a"))
	a.Dispose()
	assert.Empty(t, c.FocusedField(), "unmounting releases focus")
}

func TestSetValuesFarIndexFails(t *testing.T) {
	c := newController(t, Config{InitialValues: map[string]any{"items": []any{"x"}}})
	before := c.Snapshot()

	for _, name := range []string{"items.9223372036854775807", "items.100000000"} {
		err := c.SetValues([]ValueEntry{{Path: name, Value: 1}})
		assert.ErrorIs(t, err, formerrors.ErrTypeShapeConflict, name)
	}
	assert.Same(t, before, c.Snapshot())
}

func TestRegisterSeesConcurrentChanges(t *testing.T) {
	c := newController(t, Config{})
	const rounds = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= rounds; i++ {
			assert.NoError(t, c.SetValues([]ValueEntry{{Path: "group", Value: map[string]any{"n": i}}}))
		}
	}()

	// Remount the field while values keep arriving; the last mount must end
	// up with the last value whether it read it or had it pushed.
	var last *Binding
	for i := 0; i < rounds; i++ {
		if last != nil {
			last.Dispose()
		}
		last = register(t, c, "group.n")
	}
	wg.Wait()

	assert.Equal(t, rounds, last.Value())
}

func TestDuplicateBinding(t *testing.T) {
	c := newController(t, Config{})
	first, err := c.Register("a.b")
	require.NoError(t, err)

	_, err = c.Register("a.b")
	require.ErrorIs(t, err, formerrors.ErrDuplicateFieldBinding)

	first.Dispose()
	first.Dispose()
	second, err := c.Register("a.b")
	require.NoError(t, err)
	second.Dispose()
}

func TestStaleBindingUpdatesAreDropped(t *testing.T) {
	c := newController(t, Config{})
	b := register(t, c, "input1")
	b.Dispose()

	require.NoError(t, b.SetValue("late"))
	_, ok := c.Value("input1")
	assert.False(t, ok, "edit from a disposed binding must be dropped")

	require.NoError(t, c.SetValues([]ValueEntry{{Path: "input1", Value: "x"}}))
	assert.Nil(t, b.Value(), "disposed binding must not receive pushes")
}

func TestBindingMarksTouchedAndDirty(t *testing.T) {
	c := newController(t, Config{InitialValues: prefilled()})
	input := register(t, c, "input1")
	other := register(t, c, "input2")

	assert.Equal(t, "Text 1", input.Value())
	require.NoError(t, input.SetValue("changed"))
	other.Blur()

	assert.True(t, input.Touched())
	assert.True(t, input.Dirty())
	assert.True(t, other.Touched())
	assert.False(t, other.Dirty())
	assert.Equal(t, []string{"input1", "input2"}, c.Snapshot().TouchedPaths())
}

func TestBindingListen(t *testing.T) {
	c := newController(t, Config{})
	b := register(t, c, "input1")

	var events int
	cancel := b.Listen(func() { events++ })
	require.NoError(t, c.SetValues([]ValueEntry{{Path: "input1", Value: "x"}}))
	require.NoError(t, c.SetErrors([]ErrorEntry{{Path: "input1", Message: "e"}}, ShouldFocus()))
	assert.Equal(t, 3, events, "value, error and focus each notify")

	cancel()
	require.NoError(t, c.SetValues([]ValueEntry{{Path: "input1", Value: "y"}}))
	assert.Equal(t, 3, events)
}

func TestResetRestoresInitialValues(t *testing.T) {
	initial := prefilled()
	c := newController(t, Config{InitialValues: initial})
	input := register(t, c, "input1")

	require.NoError(t, c.SetValues([]ValueEntry{{Path: "input1", Value: "x"}, {Path: "extra.deep", Value: 1}}))
	require.NoError(t, c.SetErrors([]ErrorEntry{{Path: "input1", Message: "bad"}}))
	require.NoError(t, input.SetValue("typed"))

	c.Reset()

	assert.Equal(t, prefilled(), c.Values())
	assert.Empty(t, c.Errors())
	assert.Empty(t, c.Snapshot().TouchedPaths())
	assert.False(t, c.Snapshot().IsDirty())
	assert.Equal(t, "Text 1", input.Value())
	assert.Empty(t, input.Error())
	assert.True(t, input.Mounted(), "reset must not unmount fields")
}

func TestResetIgnoresCallerMutationOfInitialValues(t *testing.T) {
	initial := prefilled()
	c := newController(t, Config{InitialValues: initial})
	initial["input1"] = "mutated"
	c.Reset()
	v, _ := c.Value("input1")
	assert.Equal(t, "Text 1", v)
}

func TestSubmitCallsOnSubmit(t *testing.T) {
	var got map[string]any
	c := newController(t, Config{
		InitialValues: prefilled(),
		OnSubmit: func(_ context.Context, values map[string]any, _ Actions) error {
			got = values
			return nil
		},
	})
	outcome, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.Equal(t, "Text 1", got["input1"])
	assert.Equal(t, state.StatusIdle, c.Status())
	assert.Equal(t, 1, c.Snapshot().SubmitCount())
}

func TestSubmitValidationErrorsSkipOnSubmit(t *testing.T) {
	var called bool
	c := newController(t, Config{
		InitialValues: map[string]any{"input1": ""},
		Validator: ValidatorFunc(func(_ context.Context, values map[string]any) ([]ErrorEntry, error) {
			return []ErrorEntry{
				{Path: "missing", Message: "not mounted"},
				{Path: "input1", Message: "required"},
			}, nil
		}),
		OnSubmit: func(context.Context, map[string]any, Actions) error {
			called = true
			return nil
		},
	})
	input := register(t, c, "input1")

	outcome, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome)
	assert.False(t, called)
	assert.Equal(t, "required", input.Error())
	assert.True(t, input.FocusRequested(), "first mounted invalid field is focused")
	assert.Equal(t, state.StatusIdle, c.Status())
}

func TestSubmitMergesValidationErrors(t *testing.T) {
	fail := true
	c := newController(t, Config{
		Validator: ValidatorFunc(func(context.Context, map[string]any) ([]ErrorEntry, error) {
			if fail {
				return []ErrorEntry{{Path: "a", Message: "required"}}, nil
			}
			return []ErrorEntry{{Path: "a"}}, nil
		}),
	})
	a := register(t, c, "a")
	b := register(t, c, "b")
	require.NoError(t, c.SetErrors([]ErrorEntry{{Path: "b", Message: "server says taken"}}))

	outcome, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome)
	assert.Equal(t, map[string]string{"a": "required", "b": "server says taken"}, c.Errors())
	assert.Equal(t, "server says taken", b.Error())

	fail = false
	outcome, err = c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome, "entries that only clear errors do not block")
	assert.Empty(t, a.Error())
	assert.Equal(t, map[string]string{"b": "server says taken"}, c.Errors())
}

func TestSubmitWithoutValidatorKeepsErrors(t *testing.T) {
	c := newController(t, Config{})
	require.NoError(t, c.SetErrors([]ErrorEntry{{Path: "b", Message: "taken"}}))

	outcome, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.Equal(t, map[string]string{"b": "taken"}, c.Errors())
}

func TestSubmitReplaceValidationErrors(t *testing.T) {
	fail := true
	c := newController(t, Config{
		ReplaceValidationErrors: true,
		Validator: ValidatorFunc(func(context.Context, map[string]any) ([]ErrorEntry, error) {
			if fail {
				return []ErrorEntry{{Path: "input1", Message: "required"}}, nil
			}
			return nil, nil
		}),
	})
	input := register(t, c, "input1")
	other := register(t, c, "other")
	require.NoError(t, c.SetErrors([]ErrorEntry{{Path: "other", Message: "stale"}}))

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "required", input.Error())
	assert.Empty(t, other.Error())

	fail = false
	outcome, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.Empty(t, input.Error())
	assert.Empty(t, c.Errors())
}

func TestSubmitValidatorPanicRestoresStatus(t *testing.T) {
	calls := 0
	c := newController(t, Config{
		Validator: ValidatorFunc(func(context.Context, map[string]any) ([]ErrorEntry, error) {
			calls++
			if calls == 1 {
				panic("validator bug")
			}
			return nil, nil
		}),
	})
	assert.PanicsWithValue(t, "validator bug", func() {
		_, _ = c.Submit(context.Background())
	})
	assert.Equal(t, state.StatusIdle, c.Status())

	outcome, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
}

func TestSubmitValidatorFailure(t *testing.T) {
	boom := errors.New("validator down")
	c := newController(t, Config{
		Validator: ValidatorFunc(func(context.Context, map[string]any) ([]ErrorEntry, error) {
			return nil, boom
		}),
	})
	outcome, err := c.Submit(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, OutcomeAborted, outcome)
	assert.Equal(t, state.StatusIdle, c.Status())
}

func TestSubmitPropagatesOnSubmitError(t *testing.T) {
	boom := errors.New("server said no")
	c := newController(t, Config{
		OnSubmit: func(context.Context, map[string]any, Actions) error { return boom },
	})
	outcome, err := c.Submit(context.Background())
	assert.Same(t, boom, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.Equal(t, state.StatusIdle, c.Status())
}

func TestSubmitPanicPropagatesAndRestoresStatus(t *testing.T) {
	c := newController(t, Config{
		OnSubmit: func(context.Context, map[string]any, Actions) error { panic("handler bug") },
	})
	assert.PanicsWithValue(t, "handler bug", func() {
		_, _ = c.Submit(context.Background())
	})
	assert.Equal(t, state.StatusIdle, c.Status())
}

func TestSubmitAlreadyInProgress(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	c := newController(t, Config{
		OnSubmit: func(context.Context, map[string]any, Actions) error {
			close(entered)
			<-release
			return nil
		},
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-entered
	assert.Equal(t, state.StatusSubmitting, c.Status())

	_, err := c.Submit(context.Background())
	require.ErrorIs(t, err, formerrors.ErrSubmitAlreadyInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, state.StatusIdle, c.Status())
}

func TestSubmitAlreadyInProgressWhileValidating(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	c := newController(t, Config{
		Validator: ValidatorFunc(func(context.Context, map[string]any) ([]ErrorEntry, error) {
			close(entered)
			<-release
			return nil, nil
		}),
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Submit(context.Background())
	}()
	<-entered
	assert.Equal(t, state.StatusValidating, c.Status())
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, formerrors.ErrSubmitAlreadyInProgress)
	close(release)
	<-done
}

func TestResetDuringValidationAbortsSubmission(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var called atomic.Bool
	c := newController(t, Config{
		Validator: ValidatorFunc(func(context.Context, map[string]any) ([]ErrorEntry, error) {
			close(entered)
			<-release
			return []ErrorEntry{{Path: "input1", Message: "stale"}}, nil
		}),
		OnSubmit: func(context.Context, map[string]any, Actions) error {
			called.Store(true)
			return nil
		},
	})

	result := make(chan Outcome, 1)
	go func() {
		o, _ := c.Submit(context.Background())
		result <- o
	}()
	<-entered
	c.Reset()
	close(release)

	assert.Equal(t, OutcomeAborted, <-result)
	assert.False(t, called.Load())
	assert.Empty(t, c.Errors(), "stale validator result must be discarded")
}

func TestResetDuringSubmitDoesNotDisturbLaterSubmission(t *testing.T) {
	var mu sync.Mutex
	gates := []chan struct{}{make(chan struct{}), make(chan struct{})}
	entered := make(chan int, 2)
	var n int
	c := newController(t, Config{
		OnSubmit: func(context.Context, map[string]any, Actions) error {
			mu.Lock()
			i := n
			n++
			mu.Unlock()
			entered <- i
			<-gates[i]
			return nil
		},
	})

	first := make(chan struct{})
	go func() { defer close(first); _, _ = c.Submit(context.Background()) }()
	require.Equal(t, 0, <-entered)

	c.Reset()
	assert.Equal(t, state.StatusIdle, c.Status())

	second := make(chan struct{})
	go func() { defer close(second); _, _ = c.Submit(context.Background()) }()
	require.Equal(t, 1, <-entered)

	close(gates[0])
	<-first
	assert.Equal(t, state.StatusSubmitting, c.Status(), "finished superseded submission must not end the current one")

	close(gates[1])
	<-second
	assert.Equal(t, state.StatusIdle, c.Status())
}

func TestActionsFromOnSubmit(t *testing.T) {
	tests := []struct {
		name   string
		submit SubmitFunc
		check  func(t *testing.T, c *Controller, input1 *Binding)
	}{
		{
			name: "set errors with focus",
			submit: func(_ context.Context, _ map[string]any, a Actions) error {
				return a.SetErrors([]ErrorEntry{
					{Path: "input1", Message: "Custom error from submit: input1"},
					{Path: "date", Message: "Custom error from submit: date"},
				}, ShouldFocus())
			},
			check: func(t *testing.T, c *Controller, input1 *Binding) {
				assert.Equal(t, "Custom error from submit: input1", input1.Error())
				assert.True(t, input1.FocusRequested())
				assert.Len(t, c.Errors(), 2)
			},
		},
		{
			name: "reset",
			submit: func(_ context.Context, _ map[string]any, a Actions) error {
				if err := a.SetValues([]ValueEntry{{Path: "input1", Value: "temp"}}); err != nil {
					return err
				}
				a.Reset()
				return nil
			},
			check: func(t *testing.T, c *Controller, input1 *Binding) {
				assert.Equal(t, "Text 1", input1.Value())
				assert.Equal(t, prefilled(), c.Values())
			},
		},
		{
			name: "set values",
			submit: func(_ context.Context, _ map[string]any, a Actions) error {
				return a.SetValues([]ValueEntry{
					{Path: "date", Value: "1990-01-10"},
					{Path: "input1", Value: "New Value"},
					{Path: "numberinput", Value: 25},
				})
			},
			check: func(t *testing.T, c *Controller, input1 *Binding) {
				assert.Equal(t, "New Value", input1.Value())
				v, _ := c.Value("numberinput")
				assert.Equal(t, 25, v)
			},
		},
		{
			name: "focus and values",
			submit: func(_ context.Context, values map[string]any, a Actions) error {
				if values["input1"] != a.Values()["input1"] {
					return errors.New("actions see a different tree")
				}
				if !a.Focus("input1") {
					return errors.New("input1 should be focusable")
				}
				return nil
			},
			check: func(t *testing.T, c *Controller, input1 *Binding) {
				assert.True(t, input1.FocusRequested())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t, Config{InitialValues: prefilled(), OnSubmit: tt.submit})
			input1 := register(t, c, "input1")
			outcome, err := c.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, OutcomeSubmitted, outcome)
			assert.Equal(t, state.StatusIdle, c.Status())
			tt.check(t, c, input1)
		})
	}
}

func TestSetValueOnChangeMirrors(t *testing.T) {
	var calls int
	c := newController(t, Config{
		InitialValues: prefilled(),
		OnChange: func(values map[string]any, a Actions) {
			calls++
			if values["input1"] != values["input2"] {
				require.NoError(t, a.SetValues([]ValueEntry{{Path: "input2", Value: values["input1"]}}))
			}
		},
	})
	input1 := register(t, c, "input1")
	input2 := register(t, c, "input2")

	require.NoError(t, input1.SetValue("hello"))
	assert.Equal(t, "hello", input2.Value())
	assert.Equal(t, 2, calls, "mirror write fires one more change and then settles")
}

func TestResetBaselineLastSubmit(t *testing.T) {
	c := newController(t, Config{
		InitialValues: prefilled(),
		ResetBaseline: BaselineLastSubmit,
		OnSubmit: func(_ context.Context, _ map[string]any, a Actions) error {
			return a.SetValues([]ValueEntry{{Path: "input1", Value: "saved"}})
		},
	})
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, c.Snapshot().IsDirty())

	require.NoError(t, c.SetValues([]ValueEntry{{Path: "input1", Value: "draft"}}))
	c.Reset()
	v, _ := c.Value("input1")
	assert.Equal(t, "saved", v)
}

func TestResetBaselineInitialIgnoresSubmit(t *testing.T) {
	c := newController(t, Config{
		InitialValues: prefilled(),
		OnSubmit: func(_ context.Context, _ map[string]any, a Actions) error {
			return a.SetValues([]ValueEntry{{Path: "input1", Value: "saved"}})
		},
	})
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	c.Reset()
	v, _ := c.Value("input1")
	assert.Equal(t, "Text 1", v)
}

func TestShouldUnregisterRemovesValue(t *testing.T) {
	c := newController(t, Config{ShouldUnregister: true, PruneEmpty: true})
	b := register(t, c, "root.test.selected")
	require.NoError(t, b.SetValue(true))

	b.Dispose()
	_, ok := c.Value("root")
	assert.False(t, ok, "emptied branch should be pruned")

	kept := newController(t, Config{ShouldUnregister: true})
	kb := register(t, kept, "root.test.selected")
	require.NoError(t, kb.SetValue(true))
	kb.Dispose()
	v, ok := kept.Value("root.test")
	assert.True(t, ok)
	assert.Equal(t, map[string]any{}, v)
}

func TestDisposedControllerIgnoresMutations(t *testing.T) {
	c, err := New(Config{InitialValues: prefilled()})
	require.NoError(t, err)
	c.Dispose()
	c.Dispose()

	require.NoError(t, c.SetValues([]ValueEntry{{Path: "input1", Value: "x"}}))
	v, _ := c.Value("input1")
	assert.Equal(t, "Text 1", v)

	outcome, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeAborted, outcome)
}

type recordingObserver struct {
	mu       sync.Mutex
	values   int
	errors   int
	outcomes []Outcome
	resets   int
}

func (o *recordingObserver) ValuesChanged(string, int) { o.mu.Lock(); o.values++; o.mu.Unlock() }
func (o *recordingObserver) ErrorsSet(string, int)     { o.mu.Lock(); o.errors++; o.mu.Unlock() }
func (o *recordingObserver) Reset(string)              { o.mu.Lock(); o.resets++; o.mu.Unlock() }
func (o *recordingObserver) Submitted(_ string, out Outcome, _ time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, out)
	o.mu.Unlock()
}

func TestObserverEvents(t *testing.T) {
	obs := &recordingObserver{}
	c := newController(t, Config{Observer: obs})
	require.NoError(t, c.SetValues([]ValueEntry{{Path: "a", Value: 1}}))
	require.NoError(t, c.SetErrors([]ErrorEntry{{Path: "a", Message: "x"}}))
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	c.Reset()

	assert.Equal(t, 1, obs.values)
	assert.Equal(t, 1, obs.errors)
	assert.Equal(t, []Outcome{OutcomeSubmitted}, obs.outcomes)
	assert.Equal(t, 1, obs.resets)
}
