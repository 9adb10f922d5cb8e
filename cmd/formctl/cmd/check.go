package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/go-drift/form/pkg/scenario"
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [file...]",
		Short: "Validate scenario files without running them",
		Long: `Check parses scenario files and reports every problem that would stop
them from running: unknown field kinds, malformed field names, steps with no
or several actions, unsupported schema versions and broken extends chains.

Without arguments it checks the *.yaml files in the scenario directory.`,
		RunE: func(_ *cobra.Command, args []string) error {
			return a.check(args)
		},
	}
}

func (a *app) check(files []string) error {
	if len(files) == 0 {
		if !isDir(a.cfg.ScenarioDir) {
			return fmt.Errorf("scenario directory %s does not exist", a.cfg.ScenarioDir)
		}
		found, err := filepath.Glob(filepath.Join(a.cfg.ScenarioDir, "*.yaml"))
		if err != nil {
			return err
		}
		sort.Strings(found)
		files = found
	}

	var problems []error
	for _, path := range files {
		set, err := scenario.LoadFile(path)
		if err != nil {
			problems = append(problems, err)
			fmt.Fprintf(a.out, "FAIL %s\n", path)
			continue
		}
		var errs []error
		for _, sc := range set {
			if err := sc.Check(); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			problems = append(problems, fmt.Errorf("%s: %w", path, errors.Join(errs...)))
			fmt.Fprintf(a.out, "FAIL %s\n", path)
			continue
		}
		fmt.Fprintf(a.out, "ok   %s (%d scenarios)\n", path, len(set))
	}
	return errors.Join(problems...)
}
