package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	formerrors "github.com/go-drift/form/pkg/errors"
	"github.com/go-drift/form/pkg/fieldpath"
	"github.com/go-drift/form/pkg/fields"
	"github.com/go-drift/form/pkg/form"
	"github.com/go-drift/form/pkg/validate"
)

// Runner executes scenarios.
type Runner struct {
	// Logger receives debug records from the runner and its controllers.
	Logger *slog.Logger
	// Observer is attached to every controller, e.g. a metrics recorder.
	Observer form.Observer
}

// Result is the outcome of one scenario run.
type Result struct {
	Name       string            `json:"name"`
	Transcript []string          `json:"transcript"`
	Failures   []string          `json:"failures,omitempty"`
	Values     map[string]any    `json:"values"`
	Errors     map[string]string `json:"errors"`
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool { return len(r.Failures) == 0 }

// Run executes sc. The returned error covers problems that stop the script,
// such as an invalid scenario or a field that cannot be mounted; failed
// expectations are recorded in the result.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	var res *Result
	err := form.WithScope(func(s *form.Scope) error {
		x, err := Open(sc, r.Logger, r.Observer)
		if err != nil {
			return err
		}
		form.Use(s, x)
		x.printf("# %s", sc.Name)
		if sc.Description != "" {
			x.printf("# %s", sc.Description)
		}
		x.Render()
		for i, st := range sc.Steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			x.printf("-> %d %s", i+1, st.Kind())
			x.Step(ctx, i+1, st)
		}
		res = &Result{
			Name:       sc.Name,
			Transcript: x.transcript,
			Failures:   x.failures,
			Values:     fieldpath.Clone(x.ctrl.Values()),
			Errors:     x.ctrl.Errors(),
		}
		x.logger.Debug("scenario finished", slog.Int("steps", len(sc.Steps)), slog.Int("failures", len(x.failures)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Session is the form of a scenario with its inputs mounted. Steps can be
// applied one at a time; every action and failure is written to the
// transcript.
type Session struct {
	sc     *Scenario
	logger *slog.Logger
	ctrl   *form.Controller
	dir    *form.Directory
	specs  map[string]Field
	order  []string
	inputs map[string]fields.Field

	transcript []string
	failures   []string
}

// Open checks sc, creates its controller and mounts its fields.
func Open(sc *Scenario, logger *slog.Logger, observer form.Observer) (*Session, error) {
	if err := sc.Check(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	x := &Session{
		sc:     sc,
		logger: logger.With(slog.String("scenario", sc.Name)),
		dir:    form.NewDirectory(),
		specs:  make(map[string]Field, len(sc.Fields)),
		inputs: make(map[string]fields.Field),
	}
	cfg := form.Config{
		ID:               sc.Form.ID,
		InitialValues:    sc.Form.InitialValues,
		ShouldUnregister: sc.Form.ShouldUnregister,
		PruneEmpty:       sc.Form.PruneEmpty,
		Logger:           x.logger,
		Observer:         observer,
		Directory:        x.dir,
		OnSubmit:         x.onSubmit,
		OnChange:         x.onChange,
	}
	if sc.Form.ResetBaseline == "lastSubmit" {
		cfg.ResetBaseline = form.BaselineLastSubmit
	}
	if sc.Validate != nil && len(sc.Validate.Required) > 0 {
		cfg.Validator = validate.Required(sc.Validate.Required...)
	}
	ctrl, err := form.New(cfg)
	if err != nil {
		return nil, err
	}
	x.ctrl = ctrl
	for _, f := range sc.Fields {
		x.specs[f.Name] = f
		x.order = append(x.order, f.Name)
		if err := x.mount(f); err != nil {
			x.Dispose()
			return nil, err
		}
	}
	return x, nil
}

// Controller returns the session's controller.
func (x *Session) Controller() *form.Controller { return x.ctrl }

// Fields returns the declared fields in order.
func (x *Session) Fields() []Field {
	out := make([]Field, 0, len(x.order))
	for _, name := range x.order {
		out = append(out, x.specs[name])
	}
	return out
}

// Input returns the mounted input called name. Checkbox group members are
// named group:value.
func (x *Session) Input(name string) (fields.Field, bool) {
	in, ok := x.inputs[name]
	return in, ok
}

// Transcript returns the lines written so far.
func (x *Session) Transcript() []string { return x.transcript }

// Failures returns the failed steps so far.
func (x *Session) Failures() []string { return x.failures }

// Dispose unmounts every input and disposes the controller.
func (x *Session) Dispose() {
	for i := len(x.order) - 1; i >= 0; i-- {
		x.unmount(x.order[i])
	}
	x.ctrl.Dispose()
}

func (x *Session) printf(format string, args ...any) {
	x.transcript = append(x.transcript, fmt.Sprintf(format, args...))
}

func (x *Session) failf(step int, format string, args ...any) {
	msg := fmt.Sprintf("step %d: %s", step, fmt.Sprintf(format, args...))
	x.failures = append(x.failures, msg)
	x.printf("   FAIL %s", msg)
}

// Render writes the current state of every declared field to the transcript.
func (x *Session) Render() {
	for _, name := range x.order {
		spec := x.specs[name]
		in, ok := x.inputs[name]
		if !ok {
			x.printf("  %s (unmounted)", name)
			continue
		}
		x.printf("%s", in.Render())
		if spec.Kind != KindCheckboxGroup {
			continue
		}
		if g, ok := in.(*fields.CheckboxGroup); ok {
			for _, m := range g.Members() {
				x.printf("    %s", m.Render())
			}
		}
	}
}

func (x *Session) mount(f Field) error {
	var (
		in  fields.Field
		err error
	)
	switch f.Kind {
	case KindText:
		in, err = fields.NewText(x.ctrl, f.Name)
	case KindTextArea:
		in, err = fields.NewTextArea(x.ctrl, f.Name)
	case KindNumber:
		in, err = fields.NewNumber(x.ctrl, f.Name)
	case KindDate:
		in, err = fields.NewDate(x.ctrl, f.Name)
	case KindHidden:
		in, err = fields.NewHidden(x.ctrl, f.Name)
	case KindCheckbox:
		in, err = fields.NewCheckbox(x.ctrl, f.Name)
	case KindCheckboxGroup:
		var g *fields.CheckboxGroup
		g, err = fields.NewCheckboxGroup(x.ctrl, f.Name)
		if err == nil {
			for _, o := range f.Options {
				m := g.Member(o.Value, o.Text)
				x.inputs[m.Name()] = m
			}
			in = g
		}
	case KindAutoComplete:
		in, err = fields.NewAutoComplete(x.ctrl, f.Name, loader(f.Items), f.InitialItems)
	case KindMultiAutoComplete:
		in, err = fields.NewMultiAutoComplete(x.ctrl, f.Name, loader(f.Items), f.InitialItems)
	default:
		err = fmt.Errorf("unknown field kind %q", f.Kind)
	}
	if err != nil {
		return fmt.Errorf("mount %s: %w", f.Name, err)
	}
	x.inputs[f.Name] = in
	return nil
}

func loader(items []fields.Item) fields.Loader {
	if len(items) == 0 {
		return nil
	}
	return fields.StaticLoader(items)
}

func (x *Session) unmount(name string) bool {
	in, ok := x.inputs[name]
	if !ok {
		return false
	}
	if g, ok := in.(*fields.CheckboxGroup); ok {
		for _, m := range g.Members() {
			delete(x.inputs, m.Name())
		}
	}
	in.Dispose()
	delete(x.inputs, name)
	return true
}

func (x *Session) onSubmit(_ context.Context, values map[string]any, a form.Actions) error {
	x.printf("   onSubmit %s", fields.FormatValue(values))
	h := x.sc.OnSubmit
	if h == nil {
		return nil
	}
	if len(h.SetValues) > 0 {
		if err := a.SetValues(h.SetValues); err != nil {
			return err
		}
	}
	if h.SetErrors != nil {
		if err := a.SetErrors(h.SetErrors.Entries, form.WithFocus(h.SetErrors.ShouldFocus)); err != nil {
			return err
		}
	}
	if h.Reset {
		a.Reset()
	}
	if h.Fail != "" {
		return errors.New(h.Fail)
	}
	return nil
}

func (x *Session) onChange(values map[string]any, a form.Actions) {
	x.printf("   onChange %s", fields.FormatValue(values))
	if x.sc.OnChange == nil || x.sc.OnChange.Mirror == nil {
		return
	}
	m := x.sc.OnChange.Mirror
	from, _ := fieldpath.Get(values, fieldpath.MustParse(m.From))
	to, _ := fieldpath.Get(values, fieldpath.MustParse(m.To))
	if sameValue(from, to) {
		return
	}
	if err := a.SetValues([]form.ValueEntry{{Path: m.To, Value: from}}); err != nil {
		x.logger.Debug("mirror failed", slog.Any("err", err))
	}
}

// Step applies st, numbered n in messages, and renders the form afterwards.
// Expectation steps only check.
func (x *Session) Step(ctx context.Context, n int, st Step) {
	switch {
	case st.Input != nil:
		in, ok := x.inputs[st.Input.Field]
		if !ok {
			x.failf(n, "no mounted input %q", st.Input.Field)
			return
		}
		if err := in.Input(st.Input.Value); err != nil {
			x.failf(n, "input %s: %v", st.Input.Field, err)
			return
		}
	case st.SetValues != nil:
		if err := x.ctrl.SetValues(st.SetValues); err != nil {
			x.failf(n, "setValues: %v", err)
			return
		}
	case st.SetErrors != nil:
		if err := x.ctrl.SetErrors(st.SetErrors.Entries, form.WithFocus(st.SetErrors.ShouldFocus)); err != nil {
			x.failf(n, "setErrors: %v", err)
			return
		}
	case st.Submit != nil:
		outcome, err := x.ctrl.Submit(ctx)
		x.printf("   outcome %s", outcome)
		x.checkSubmit(n, st.Submit, outcome, err)
	case st.Reset != nil:
		x.ctrl.Reset()
	case st.Press != "":
		button := form.ButtonSubmit
		if st.Press == "reset" {
			button = form.ButtonReset
		}
		x.dir.Press(ctx, x.ctrl.ID(), button)
	case st.Unmount != "":
		if !x.unmount(st.Unmount) {
			x.failf(n, "unmount: %q is not mounted", st.Unmount)
			return
		}
	case st.Mount != "":
		if _, ok := x.inputs[st.Mount]; ok {
			x.failf(n, "mount: %q is already mounted", st.Mount)
			return
		}
		if err := x.mount(x.specs[st.Mount]); err != nil {
			x.failf(n, "%v", err)
			return
		}
	case st.Expect != nil:
		x.expect(n, st.Expect)
		return
	}
	x.Render()
}

func (x *Session) checkSubmit(n int, want *SubmitStep, outcome form.Outcome, err error) {
	switch {
	case want.Error != "":
		if err == nil {
			x.failf(n, "submit succeeded, want error %q", want.Error)
		} else if !errorMatches(err, want.Error) {
			x.failf(n, "submit error %q, want %q", err, want.Error)
		}
	case err != nil:
		x.failf(n, "submit: %v", err)
	}
	if want.Outcome != "" && outcome.String() != want.Outcome {
		x.failf(n, "outcome %s, want %s", outcome, want.Outcome)
	}
}

// errorMatches accepts either the error kind name or the error text.
func errorMatches(err error, want string) bool {
	if k := formerrors.KindOf(err); k != formerrors.KindUnknown && k.String() == want {
		return true
	}
	return err.Error() == want
}

func (x *Session) expect(n int, e *Expect) {
	failures := len(x.failures)
	snap := x.ctrl.Snapshot()
	for _, name := range sortedKeys(e.Values) {
		want := e.Values[name]
		p, err := fieldpath.Parse(name)
		if err != nil {
			x.failf(n, "expect value %q: %v", name, err)
			continue
		}
		got, _ := snap.Value(p)
		if !sameValue(got, want) {
			x.failf(n, "value %s = %s, want %s", name, fields.FormatValue(got), fields.FormatValue(want))
		}
	}
	errs := snap.Errors()
	for _, name := range sortedKeys(e.Errors) {
		want := e.Errors[name]
		p, err := fieldpath.Parse(name)
		if err != nil {
			x.failf(n, "expect error %q: %v", name, err)
			continue
		}
		if got := errs[p.String()]; got != want {
			x.failf(n, "error %s = %q, want %q", name, got, want)
		}
	}
	if e.Focused != "" || e.NoFocus {
		focused := x.focused()
		switch {
		case e.NoFocus && len(focused) > 0:
			x.failf(n, "focused %v, want none", focused)
		case e.Focused != "" && (len(focused) != 1 || focused[0] != e.Focused):
			x.failf(n, "focused %v, want %s", focused, e.Focused)
		}
	}
	if e.Status != "" && snap.Status().String() != e.Status {
		x.failf(n, "status %s, want %s", snap.Status(), e.Status)
	}
	if e.Dirty != nil && snap.IsDirty() != *e.Dirty {
		x.failf(n, "dirty %t, want %t", snap.IsDirty(), *e.Dirty)
	}
	if e.Mounted != nil {
		got := x.ctrl.Fields()
		want := make([]string, 0, len(e.Mounted))
		for _, m := range e.Mounted {
			if p, err := fieldpath.Parse(m); err == nil {
				want = append(want, p.String())
			}
		}
		sort.Strings(want)
		if strings.Join(got, ",") != strings.Join(want, ",") {
			x.failf(n, "mounted %v, want %v", got, want)
		}
	}
	if len(x.failures) == failures {
		x.printf("   ok")
	}
}

type focuser interface {
	Focused() bool
}

func (x *Session) focused() []string {
	var out []string
	for _, name := range x.order {
		if f, ok := x.inputs[name].(focuser); ok && f.Focused() {
			out = append(out, name)
		}
	}
	return out
}

// sameValue compares two field values by their JSON encoding, so that
// []string and []any or int and float64 holding the same data are equal.
func sameValue(a, b any) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ra) == string(rb)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
