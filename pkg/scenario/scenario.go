// Package scenario drives forms from YAML scripts.
//
// A scenario describes a form (initial values, mounted fields, submit and
// change handlers, validation) and a list of steps that simulate a user and
// the application working with it. Running a scenario produces a transcript
// of the rendered form after every step and checks the expectations written
// into the script.
//
// Several scenarios can share one file as separate YAML documents. A
// scenario may name another one in the same set with extends to inherit its
// form, fields and handlers.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/form/pkg/fieldpath"
	"github.com/go-drift/form/pkg/fields"
	"github.com/go-drift/form/pkg/form"
)

// SchemaVersion is the newest scenario schema this package understands.
// Files declaring another major version are rejected.
const SchemaVersion = "v1.1.0"

// Field kinds.
const (
	KindText              = "text"
	KindTextArea          = "textarea"
	KindNumber            = "number"
	KindDate              = "date"
	KindHidden            = "hidden"
	KindCheckbox          = "checkbox"
	KindCheckboxGroup     = "checkboxGroup"
	KindAutoComplete      = "autocomplete"
	KindMultiAutoComplete = "multiAutocomplete"
)

var knownKinds = map[string]bool{
	KindText: true, KindTextArea: true, KindNumber: true, KindDate: true, KindHidden: true,
	KindCheckbox: true, KindCheckboxGroup: true, KindAutoComplete: true, KindMultiAutoComplete: true,
}

// Scenario is one scripted form session.
type Scenario struct {
	Schema      string    `yaml:"schema,omitempty"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Extends     string    `yaml:"extends,omitempty"`
	Form        FormSpec  `yaml:"form"`
	Fields      []Field   `yaml:"fields,omitempty"`
	OnSubmit    *Submit   `yaml:"onSubmit,omitempty"`
	OnChange    *Change   `yaml:"onChange,omitempty"`
	Validate    *Validate `yaml:"validate,omitempty"`
	Steps       []Step    `yaml:"steps"`
}

// FormSpec configures the controller.
type FormSpec struct {
	ID               string         `yaml:"id,omitempty"`
	InitialValues    map[string]any `yaml:"initialValues,omitempty"`
	ResetBaseline    string         `yaml:"resetBaseline,omitempty"` // initial | lastSubmit
	ShouldUnregister bool           `yaml:"shouldUnregister,omitempty"`
	PruneEmpty       bool           `yaml:"pruneEmpty,omitempty"`
}

// Field mounts one input. Options are the members of a checkbox group;
// Items feed an autocomplete loader and InitialItems its first suggestions.
type Field struct {
	Kind         string        `yaml:"kind"`
	Name         string        `yaml:"name"`
	Label        string        `yaml:"label,omitempty"`
	Options      []fields.Item `yaml:"options,omitempty"`
	Items        []fields.Item `yaml:"items,omitempty"`
	InitialItems []fields.Item `yaml:"initialItems,omitempty"`
}

// Submit is the submit handler preset. Its actions run in field order:
// setValues, setErrors, reset, then fail.
type Submit struct {
	SetValues []form.ValueEntry `yaml:"setValues,omitempty"`
	SetErrors *Errors           `yaml:"setErrors,omitempty"`
	Reset     bool              `yaml:"reset,omitempty"`
	Fail      string            `yaml:"fail,omitempty"`
}

// Errors is a SetErrors call.
type Errors struct {
	Entries     []form.ErrorEntry `yaml:"entries"`
	ShouldFocus bool              `yaml:"shouldFocus,omitempty"`
}

// Change is the change handler preset.
type Change struct {
	Mirror *Mirror `yaml:"mirror,omitempty"`
}

// Mirror copies the value at From to To whenever they differ.
type Mirror struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Validate lists the checks run before every submission.
type Validate struct {
	Required []string `yaml:"required,omitempty"`
}

// Step is one action. Exactly one member must be set.
type Step struct {
	Input     *Input            `yaml:"input,omitempty"`
	SetValues []form.ValueEntry `yaml:"setValues,omitempty"`
	SetErrors *Errors           `yaml:"setErrors,omitempty"`
	Submit    *SubmitStep       `yaml:"submit,omitempty"`
	Reset     *struct{}         `yaml:"reset,omitempty"`
	Press     string            `yaml:"press,omitempty"` // submit | reset, through the form directory
	Unmount   string            `yaml:"unmount,omitempty"`
	Mount     string            `yaml:"mount,omitempty"`
	Expect    *Expect           `yaml:"expect,omitempty"`
}

// Input enters Value into the input named Field. Group members are named
// group:value.
type Input struct {
	Field string `yaml:"field"`
	Value any    `yaml:"value"`
}

// SubmitStep submits the form and optionally checks the result.
type SubmitStep struct {
	Outcome string `yaml:"outcome,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

// Expect checks the form state. Unset members are not checked. An expected
// value of null matches a missing value; an expected error of "" means the
// path has no error.
type Expect struct {
	Values  map[string]any    `yaml:"values,omitempty"`
	Errors  map[string]string `yaml:"errors,omitempty"`
	Focused string            `yaml:"focused,omitempty"`
	NoFocus bool              `yaml:"noFocus,omitempty"`
	Status  string            `yaml:"status,omitempty"`
	Dirty   *bool             `yaml:"dirty,omitempty"`
	Mounted []string          `yaml:"mounted,omitempty"`
}

// Kind names the action a step performs.
func (s Step) Kind() string {
	kinds := s.kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

func (s Step) kinds() []string {
	var out []string
	if s.Input != nil {
		out = append(out, "input")
	}
	if s.SetValues != nil {
		out = append(out, "setValues")
	}
	if s.SetErrors != nil {
		out = append(out, "setErrors")
	}
	if s.Submit != nil {
		out = append(out, "submit")
	}
	if s.Reset != nil {
		out = append(out, "reset")
	}
	if s.Press != "" {
		out = append(out, "press")
	}
	if s.Unmount != "" {
		out = append(out, "unmount")
	}
	if s.Mount != "" {
		out = append(out, "mount")
	}
	if s.Expect != nil {
		out = append(out, "expect")
	}
	return out
}

// Load reads every scenario document from r and resolves extends within
// the set.
func Load(r io.Reader) ([]*Scenario, error) {
	dec := yaml.NewDecoder(r)
	var out []*Scenario
	for {
		sc := &Scenario{}
		err := dec.Decode(sc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse scenario %d: %w", len(out)+1, err)
		}
		out = append(out, sc)
	}
	if err := resolve(out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadFile reads the scenarios in the file at path.
func LoadFile(path string) ([]*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	set, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

func resolve(set []*Scenario) error {
	byName := make(map[string]*Scenario, len(set))
	for _, sc := range set {
		if sc.Name == "" {
			return fmt.Errorf("scenario without a name")
		}
		if _, dup := byName[sc.Name]; dup {
			return fmt.Errorf("duplicate scenario %q", sc.Name)
		}
		byName[sc.Name] = sc
	}
	done := make(map[string]bool, len(set))
	var visit func(sc *Scenario, chain map[string]bool) error
	visit = func(sc *Scenario, chain map[string]bool) error {
		if done[sc.Name] || sc.Extends == "" {
			done[sc.Name] = true
			return nil
		}
		if chain[sc.Name] {
			return fmt.Errorf("scenario %q extends itself", sc.Name)
		}
		chain[sc.Name] = true
		base, ok := byName[sc.Extends]
		if !ok {
			return fmt.Errorf("scenario %q extends unknown scenario %q", sc.Name, sc.Extends)
		}
		if err := visit(base, chain); err != nil {
			return err
		}
		inherit(sc, base)
		done[sc.Name] = true
		return nil
	}
	for _, sc := range set {
		if err := visit(sc, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

// inherit copies what sc leaves unset from base. Steps are never inherited.
func inherit(sc, base *Scenario) {
	if sc.Schema == "" {
		sc.Schema = base.Schema
	}
	if sc.Form.ID == "" {
		sc.Form.ID = base.Form.ID
	}
	if sc.Form.InitialValues == nil {
		sc.Form.InitialValues = base.Form.InitialValues
	}
	if sc.Form.ResetBaseline == "" {
		sc.Form.ResetBaseline = base.Form.ResetBaseline
	}
	if sc.Fields == nil {
		sc.Fields = base.Fields
	}
	if sc.OnSubmit == nil {
		sc.OnSubmit = base.OnSubmit
	}
	if sc.OnChange == nil {
		sc.OnChange = base.OnChange
	}
	if sc.Validate == nil {
		sc.Validate = base.Validate
	}
}

// Check reports every problem in sc that would stop it from running.
func (sc *Scenario) Check() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: "+format, append([]any{sc.Name}, args...)...))
	}
	name := func(what, n string) {
		if _, err := fieldpath.Parse(n); err != nil {
			add("%s: %v", what, err)
		}
	}

	if sc.Schema != "" {
		if !semver.IsValid(sc.Schema) {
			add("schema %q is not a semantic version", sc.Schema)
		} else if semver.Major(sc.Schema) != semver.Major(SchemaVersion) {
			add("schema %s is not supported (want %s.x)", sc.Schema, semver.Major(SchemaVersion))
		} else if semver.Compare(sc.Schema, SchemaVersion) > 0 {
			add("schema %s is newer than %s", sc.Schema, SchemaVersion)
		}
	}
	switch sc.Form.ResetBaseline {
	case "", "initial", "lastSubmit":
	default:
		add("unknown resetBaseline %q", sc.Form.ResetBaseline)
	}

	declared := map[string]bool{}
	for i, f := range sc.Fields {
		if !knownKinds[f.Kind] {
			add("field %d: unknown kind %q", i+1, f.Kind)
		}
		name(fmt.Sprintf("field %d", i+1), f.Name)
		if declared[f.Name] {
			add("field %q declared twice", f.Name)
		}
		declared[f.Name] = true
		if len(f.Options) > 0 && f.Kind != KindCheckboxGroup {
			add("field %q: options only apply to %s", f.Name, KindCheckboxGroup)
		}
	}
	if sc.OnSubmit != nil {
		for _, e := range sc.OnSubmit.SetValues {
			name("onSubmit.setValues", e.Path)
		}
		if sc.OnSubmit.SetErrors != nil {
			for _, e := range sc.OnSubmit.SetErrors.Entries {
				name("onSubmit.setErrors", e.Path)
			}
		}
	}
	if sc.OnChange != nil && sc.OnChange.Mirror != nil {
		name("onChange.mirror.from", sc.OnChange.Mirror.From)
		name("onChange.mirror.to", sc.OnChange.Mirror.To)
	}
	if sc.Validate != nil {
		for _, r := range sc.Validate.Required {
			name("validate.required", r)
		}
	}
	for i, st := range sc.Steps {
		switch kinds := st.kinds(); len(kinds) {
		case 0:
			add("step %d: no action", i+1)
		case 1:
		default:
			add("step %d: several actions %v", i+1, kinds)
		}
		if st.Press != "" && st.Press != "submit" && st.Press != "reset" {
			add("step %d: press %q, want submit or reset", i+1, st.Press)
		}
		if st.Mount != "" && !declared[st.Mount] {
			add("step %d: mount of undeclared field %q", i+1, st.Mount)
		}
		if st.Submit != nil && st.Submit.Outcome != "" {
			switch st.Submit.Outcome {
			case "aborted", "invalid", "submitted":
			default:
				add("step %d: unknown outcome %q", i+1, st.Submit.Outcome)
			}
		}
	}
	return errors.Join(errs...)
}
