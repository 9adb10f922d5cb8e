package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/form/pkg/metrics"
	"github.com/go-drift/form/pkg/scenario"
)

type runOptions struct {
	stories []string
	metrics bool
}

func newRunCommand(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [file...]",
		Short: "Run scenario files or built-in stories",
		Long: `Run executes scenarios and prints a transcript of each.

Without arguments it runs every *.yaml file in the scenario directory, or the
built-in stories when that directory does not exist. Use --story to pick
built-in stories by name.

The command fails when any expectation fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.stories, "story", nil, "built-in story to run (repeatable)")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print form metrics after the run")
	return cmd
}

func (a *app) run(ctx context.Context, files []string, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	set, err := a.collect(ctx, files, opts.stories)
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return fmt.Errorf("no scenarios to run")
	}

	reg := prometheus.NewRegistry()
	runner := &scenario.Runner{Logger: a.logger, Observer: metrics.NewRecorder(reg)}

	results := make([]*scenario.Result, len(set))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Parallel)
	for i, sc := range set {
		g.Go(func() error {
			res, err := runner.Run(ctx, sc)
			if err != nil {
				return fmt.Errorf("%s: %w", sc.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := a.report(results); err != nil {
		return err
	}
	if opts.metrics {
		if err := writeMetrics(a.out, reg); err != nil {
			return err
		}
	}

	failed := 0
	for _, r := range results {
		if !r.Passed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

// collect loads the scenarios named on the command line. Files are read
// concurrently and returned in argument order.
func (a *app) collect(ctx context.Context, files, stories []string) ([]*scenario.Scenario, error) {
	if len(files) == 0 && len(stories) == 0 {
		found, err := filepath.Glob(filepath.Join(a.cfg.ScenarioDir, "*.yaml"))
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			a.logger.Debug("no scenario files, using built-in stories", "dir", a.cfg.ScenarioDir)
			return scenario.Stories()
		}
		sort.Strings(found)
		files = found
	}

	sets := make([][]*scenario.Scenario, len(files))
	g, _ := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			set, err := scenario.LoadFile(path)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*scenario.Scenario
	for _, s := range sets {
		out = append(out, s...)
	}
	for _, name := range stories {
		sc, err := scenario.Story(name)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func (a *app) report(results []*scenario.Result) error {
	if a.cfg.Format == "json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		for _, line := range r.Transcript {
			fmt.Fprintln(a.out, line)
		}
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(a.out, "%s %s\n", status, r.Name)
		for _, f := range r.Failures {
			fmt.Fprintf(a.out, "    %s\n", f)
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

// writeMetrics prints counters, gauges and histogram totals one series per line.
func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s_count%s %d\n", mf.GetName(), labels, h.GetSampleCount())
				fmt.Fprintf(w, "%s_sum%s %g\n", mf.GetName(), labels, h.GetSampleSum())
			}
		}
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
