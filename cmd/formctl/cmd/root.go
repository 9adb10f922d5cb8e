// Package cmd implements the formctl commands.
//
// The root command resolves configuration once (formctl.yaml, FORMCTL_*
// variables, then flags) and hands it to the subcommands: run, stories,
// check and edit.
package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-drift/form/cmd/formctl/internal/config"
	formerrors "github.com/go-drift/form/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// app carries what every subcommand needs.
type app struct {
	cfg    *config.Resolved
	logger *slog.Logger
	out    io.Writer
}

type rootFlags struct {
	logLevel string
	verbose  bool
	format   string
	parallel int
}

// NewRootCommand builds the command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}
	var flags rootFlags

	root := &cobra.Command{
		Use:   "formctl",
		Short: "Run and inspect form scenarios",
		Long: `formctl drives form controllers from YAML scenarios.

A scenario declares a form, the fields mounted on it and a list of steps
that simulate a user. formctl prints the rendered form after each step and
checks the expectations in the script.

Settings come from formctl.yaml in the project root, FORMCTL_* environment
variables and flags, in increasing priority.`,
		Version:       Version + " (built " + BuildTime + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, flags)
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.verbose, "verbose", false, "include causes and stack traces in error logs")
	pf.StringVar(&flags.format, "format", "", "output format (text or json)")
	pf.IntVar(&flags.parallel, "parallel", 0, "scenarios to run at the same time")

	root.AddCommand(
		newRunCommand(a),
		newStoriesCommand(a),
		newCheckCommand(a),
		newEditCommand(a),
	)
	return root
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	return NewRootCommand(os.Stdout).Execute()
}

func (a *app) setup(cmd *cobra.Command, flags rootFlags) error {
	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return err
	}
	if flags.logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(flags.logLevel)); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = flags.verbose
	}
	if flags.format != "" {
		cfg.Format = flags.format
	}
	if flags.parallel > 0 {
		cfg.Parallel = flags.parallel
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(a.logger)
	formerrors.SetHandler(&formerrors.LogHandler{Logger: a.logger, Verbose: cfg.Verbose})
	a.logger.Debug("configuration resolved",
		slog.String("root", cfg.Root),
		slog.String("module", cfg.ModulePath),
		slog.String("scenarios", cfg.ScenarioDir))
	return nil
}
