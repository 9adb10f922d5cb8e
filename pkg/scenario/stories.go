package scenario

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed stories/*.yaml
var storiesFS embed.FS

// Stories returns the built-in scenarios, in file order.
func Stories() ([]*Scenario, error) {
	paths, err := fs.Glob(storiesFS, "stories/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	var out []*Scenario
	for _, p := range paths {
		f, err := storiesFS.Open(p)
		if err != nil {
			return nil, err
		}
		set, err := Load(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, set...)
	}
	return out, nil
}

// Story returns the built-in scenario called name.
func Story(name string) (*Scenario, error) {
	all, err := Stories()
	if err != nil {
		return nil, err
	}
	for _, sc := range all {
		if sc.Name == name {
			return sc, nil
		}
	}
	return nil, fmt.Errorf("no story named %q", name)
}
