// Package config resolves formctl settings from formctl.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// FileName is the optional configuration file looked up in the project root.
const FileName = "formctl.yaml"

// Config represents the optional formctl.yaml configuration.
type Config struct {
	Log       LogConfig      `yaml:"log"`
	Scenarios ScenarioConfig `yaml:"scenarios"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level   string `yaml:"level,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// ScenarioConfig controls how scenario files are found and run.
type ScenarioConfig struct {
	Dir      string `yaml:"dir,omitempty"`
	Format   string `yaml:"format,omitempty"`
	Parallel int    `yaml:"parallel,omitempty"`
}

// Env holds the environment overrides. Unset variables leave the file
// settings alone.
type Env struct {
	LogLevel string `env:"FORMCTL_LOG_LEVEL"`
	Verbose  *bool  `env:"FORMCTL_VERBOSE"`
	Format   string `env:"FORMCTL_FORMAT"`
	Parallel int    `env:"FORMCTL_PARALLEL"`
	Dir      string `env:"FORMCTL_SCENARIO_DIR"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root        string
	ModulePath  string
	Project     string
	ScenarioDir string
	LogLevel    slog.Level
	Verbose     bool
	Format      string
	Parallel    int
}

// LoadOptional reads formctl.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &cfg, nil
}

// LoadEnv reads the FORMCTL_* environment variables.
func LoadEnv() (*Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &e, nil
}

// Resolve loads formctl.yaml from dir (if present), applies the environment
// and fills in defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	e, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	res := &Resolved{
		Root:        dir,
		ScenarioDir: pick(e.Dir, cfg.Scenarios.Dir, "scenarios"),
		Verbose:     cfg.Log.Verbose,
		Format:      strings.ToLower(pick(e.Format, cfg.Scenarios.Format, "text")),
		Parallel:    cfg.Scenarios.Parallel,
	}
	if e.Verbose != nil {
		res.Verbose = *e.Verbose
	}
	if e.Parallel > 0 {
		res.Parallel = e.Parallel
	}
	if res.Parallel <= 0 {
		res.Parallel = 4
	}
	if !filepath.IsAbs(res.ScenarioDir) {
		res.ScenarioDir = filepath.Join(dir, res.ScenarioDir)
	}
	switch res.Format {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown output format %q (use text or json)", res.Format)
	}

	level := pick(e.LogLevel, cfg.Log.Level, "warn")
	if err := res.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if modulePath, err := modulePath(dir); err == nil {
		res.ModulePath = modulePath
	}
	res.Project = projectName(res.ModulePath, dir)
	return res, nil
}

// FindProjectRoot walks up from the current directory to find go.mod. Outside
// a Go module the current directory is returned.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func projectName(modulePath, dir string) string {
	base := filepath.Base(dir)
	if modName, _, ok := module.SplitPathVersion(modulePath); ok && modName != "" {
		parts := strings.Split(modName, "/")
		base = parts[len(parts)-1]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "formctl"
	}
	return base
}

func pick(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
