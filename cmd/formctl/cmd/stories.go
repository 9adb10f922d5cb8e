package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/form/pkg/scenario"
)

func newStoriesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stories [name]",
		Short: "List built-in stories or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 1 {
				return a.showStory(args[0])
			}
			return a.listStories()
		},
	}
}

func (a *app) listStories() error {
	stories, err := scenario.Stories()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, sc := range stories {
		fmt.Fprintf(tw, "%s\t%d steps\t%s\n", sc.Name, len(sc.Steps), sc.Description)
	}
	return tw.Flush()
}

// showStory prints the story with inherited parts already merged in.
func (a *app) showStory(name string) error {
	sc, err := scenario.Story(name)
	if err != nil {
		return err
	}
	resolved := *sc
	resolved.Extends = ""
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(&resolved); err != nil {
		return err
	}
	return enc.Close()
}
