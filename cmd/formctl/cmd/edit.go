package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/go-drift/form/pkg/fields"
	"github.com/go-drift/form/pkg/scenario"
)

func newEditCommand(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "edit <story|file>",
		Short: "Fill in a scenario's form interactively and submit it",
		Long: `Edit mounts the form of a built-in story or scenario file, lets you fill
in its fields in the terminal and then submits it with the scenario's
handlers. The scenario's steps are not run.

When a file holds several scenarios, pick one with --name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd.Context(), args[0], name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "scenario to edit when the file holds several")
	return cmd
}

func (a *app) edit(ctx context.Context, target, name string) error {
	sc, err := pickScenario(target, name)
	if err != nil {
		return err
	}
	sess, err := scenario.Open(sc, a.logger, nil)
	if err != nil {
		return err
	}
	defer sess.Dispose()

	var apply []func() error
	var huhFields []huh.Field
	for _, f := range sess.Fields() {
		hf, fn := a.editField(sess, f)
		if hf == nil {
			continue
		}
		huhFields = append(huhFields, hf)
		if fn != nil {
			apply = append(apply, fn)
		}
	}
	title := sc.Name
	if sc.Description != "" {
		title += " - " + sc.Description
	}
	if err := huh.NewForm(huh.NewGroup(huhFields...).Title(title)).Run(); err != nil {
		return err
	}

	for _, fn := range apply {
		if err := fn(); err != nil {
			return err
		}
	}
	outcome, err := sess.Controller().Submit(ctx)
	sess.Render()
	for _, line := range sess.Transcript() {
		fmt.Fprintln(a.out, line)
	}
	fmt.Fprintf(a.out, "outcome: %s\n", outcome)
	return err
}

func pickScenario(target, name string) (*scenario.Scenario, error) {
	if !strings.HasSuffix(target, ".yaml") && !strings.HasSuffix(target, ".yml") {
		return scenario.Story(target)
	}
	set, err := scenario.LoadFile(target)
	if err != nil {
		return nil, err
	}
	if name == "" {
		if len(set) != 1 {
			return nil, fmt.Errorf("%s holds %d scenarios; pick one with --name", target, len(set))
		}
		return set[0], nil
	}
	for _, sc := range set {
		if sc.Name == name {
			return sc, nil
		}
	}
	return nil, fmt.Errorf("%s has no scenario %q", target, name)
}

// editField builds the terminal widget for f and the function that enters
// the edited value into the form.
func (a *app) editField(sess *scenario.Session, f scenario.Field) (huh.Field, func() error) {
	in, ok := sess.Input(f.Name)
	if !ok {
		return nil, nil
	}
	title := f.Label
	if title == "" {
		title = f.Name
	}
	current, _ := sess.Controller().Value(f.Name)

	switch f.Kind {
	case scenario.KindHidden:
		return huh.NewNote().Title(title).Description(fields.FormatValue(current)), nil

	case scenario.KindTextArea:
		text := textOf(current)
		return huh.NewText().Title(title).Value(&text), func() error { return in.Input(text) }

	case scenario.KindNumber:
		text := textOf(current)
		return huh.NewInput().Title(title).Value(&text).Validate(validNumber),
			func() error { return in.Input(text) }

	case scenario.KindDate:
		text := textOf(current)
		return huh.NewInput().Title(title).Placeholder(fields.DateLayout).Value(&text).Validate(validDate),
			func() error { return in.Input(text) }

	case scenario.KindCheckbox:
		checked, _ := current.(bool)
		return huh.NewConfirm().Title(title).Value(&checked), func() error { return in.Input(checked) }

	case scenario.KindCheckboxGroup, scenario.KindMultiAutoComplete:
		options := f.Options
		if f.Kind == scenario.KindMultiAutoComplete {
			options = f.Items
		}
		selected := stringsOf(current)
		return huh.NewMultiSelect[string]().Title(title).Options(huhOptions(options)...).Value(&selected),
			func() error { return in.Input(selected) }

	case scenario.KindAutoComplete:
		choice := textOf(current)
		return huh.NewSelect[string]().Title(title).Options(huhOptions(f.Items)...).Value(&choice),
			func() error { return in.Input(choice) }
	}

	text := textOf(current)
	return huh.NewInput().Title(title).Value(&text), func() error { return in.Input(text) }
}

func validNumber(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	_, err := strconv.ParseFloat(s, 64)
	return err
}

func validDate(s string) error {
	if s == "" {
		return nil
	}
	_, err := time.Parse(fields.DateLayout, s)
	return err
}

func huhOptions(items []fields.Item) []huh.Option[string] {
	out := make([]huh.Option[string], 0, len(items))
	for _, it := range items {
		label := it.Text
		if label == "" {
			label = it.Value
		}
		out = append(out, huh.NewOption(label, it.Value))
	}
	return out
}

func textOf(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func stringsOf(v any) []string {
	var out []string
	switch t := v.(type) {
	case []string:
		out = append(out, t...)
	case []any:
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}
	}
	return out
}
