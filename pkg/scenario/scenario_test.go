package scenario

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltInStoriesPass(t *testing.T) {
	stories, err := Stories()
	require.NoError(t, err)

	var names []string
	for _, sc := range stories {
		names = append(names, sc.Name)
	}
	for _, want := range []string{
		"Standard", "Prefilled", "SubmitErrors", "SubmitErrorsFocus",
		"ResetFormOnSubmit", "SetValuesOnSubmit", "SetValueOnChange",
	} {
		assert.Contains(t, names, want)
	}

	r := &Runner{}
	for _, sc := range stories {
		t.Run(sc.Name, func(t *testing.T) {
			res, err := r.Run(context.Background(), sc)
			require.NoError(t, err)
			assert.True(t, res.Passed(), "failures:\n%s\ntranscript:\n%s",
				strings.Join(res.Failures, "\n"), strings.Join(res.Transcript, "\n"))
		})
	}
}

func TestExtendsInheritsFormAndFields(t *testing.T) {
	sc, err := Story("SubmitErrorsFocus")
	require.NoError(t, err)
	assert.Equal(t, "my-form", sc.Form.ID)
	assert.Equal(t, "Text 1", sc.Form.InitialValues["input1"])
	assert.Len(t, sc.Fields, 11)
	require.NotNil(t, sc.OnSubmit)
	assert.True(t, sc.OnSubmit.SetErrors.ShouldFocus)
	assert.Len(t, sc.Steps, 2, "steps are not inherited")

	_, err = Story("Missing")
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown base", "name: a\nextends: b\n", "unknown scenario"},
		{"cycle", "name: a\nextends: b\n---\nname: b\nextends: a\n", "extends itself"},
		{"duplicate", "name: a\n---\nname: a\n", "duplicate"},
		{"unnamed", "steps: []\n", "without a name"},
		{"bad yaml", "name: [\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheck(t *testing.T) {
	set, err := Load(strings.NewReader(`
schema: v2.0.0
name: broken
form:
  resetBaseline: sometimes
fields:
  - {kind: slider, name: a}
  - {kind: text, name: "b..c"}
  - {kind: text, name: d, options: [{value: x}]}
steps:
  - {}
  - {reset: {}, press: submit}
  - press: cancel
  - mount: nowhere
  - submit: {outcome: great}
`))
	require.NoError(t, err)
	err = set[0].Check()
	require.Error(t, err)
	for _, want := range []string{
		"schema v2.0.0 is not supported",
		"unknown resetBaseline",
		`unknown kind "slider"`,
		"field 2",
		"options only apply",
		"step 1: no action",
		"step 2: several actions",
		`press "cancel"`,
		`undeclared field "nowhere"`,
		`unknown outcome "great"`,
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestCheckSchemaVersions(t *testing.T) {
	for schema, ok := range map[string]bool{
		"":       true,
		"v1.0.0": true,
		"v1.1.0": true,
		"v1.9.0": false,
		"1.0":    false,
	} {
		sc := &Scenario{Name: "s", Schema: schema}
		if ok {
			assert.NoError(t, sc.Check(), schema)
		} else {
			assert.Error(t, sc.Check(), schema)
		}
	}
}

const custom = `
name: custom
form:
  id: custom
  resetBaseline: lastSubmit
  shouldUnregister: true
  pruneEmpty: true
fields:
  - {kind: text, name: "profile.name"}
  - {kind: number, name: age}
onSubmit:
  fail: backend unavailable
steps:
  - input: {field: profile.name, value: Ada}
  - submit: {outcome: submitted, error: backend unavailable}
  - input: {field: age, value: old}
  - input: {field: missing, value: 1}
  - unmount: profile.name
  - expect:
      values:
        profile: null
      mounted: [age]
      status: idle
  - expect:
      values:
        age: 99
`

func TestRunRecordsFailures(t *testing.T) {
	set, err := Load(strings.NewReader(custom))
	require.NoError(t, err)

	res, err := (&Runner{}).Run(context.Background(), set[0])
	require.NoError(t, err)
	assert.False(t, res.Passed())
	require.Len(t, res.Failures, 3)
	assert.Contains(t, res.Failures[0], `step 3: input age: fields: age: "old" is not a number`)
	assert.Contains(t, res.Failures[1], `no mounted input "missing"`)
	assert.Contains(t, res.Failures[2], "step 7: value age = null, want 99")

	transcript := strings.Join(res.Transcript, "\n")
	assert.Contains(t, transcript, "# custom")
	assert.Contains(t, transcript, `   onSubmit {"profile":{"name":"Ada"}}`)
	assert.Contains(t, transcript, "   outcome submitted")
	assert.Contains(t, transcript, "  profile.name (unmounted)")
	assert.Empty(t, res.Values)
}

func TestRunRejectsInvalidScenario(t *testing.T) {
	sc := &Scenario{Name: "bad", Steps: []Step{{}}}
	_, err := (&Runner{}).Run(context.Background(), sc)
	assert.Error(t, err)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	sc, err := Story("Standard")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&Runner{}).Run(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionStepByStep(t *testing.T) {
	sc, err := Story("Standard")
	require.NoError(t, err)

	x, err := Open(sc, nil, nil)
	require.NoError(t, err)
	assert.Len(t, x.Fields(), 11)
	_, ok := x.Input("dish:burger")
	assert.True(t, ok, "group members are addressable")

	in, ok := x.Input("input1")
	require.True(t, ok)
	require.NoError(t, in.Input("hi"))

	x.Step(context.Background(), 1, Step{Submit: &SubmitStep{Outcome: "submitted"}})
	assert.Empty(t, x.Failures())
	assert.Contains(t, x.Transcript(), `   onSubmit {"input1":"hi"}`)
	assert.Contains(t, x.Transcript(), "   outcome submitted")

	x.Step(context.Background(), 2, Step{Submit: &SubmitStep{Outcome: "invalid"}})
	require.Len(t, x.Failures(), 1)
	assert.Equal(t, "step 2: outcome submitted, want invalid", x.Failures()[0])

	x.Dispose()
	assert.Empty(t, x.Controller().Fields())
}
