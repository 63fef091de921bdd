package config

import (
	"fmt"
	"slices"
	"sort"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/filter"
	"github.com/kbukum/melos/runner"
)

// Script is one entry of the scripts section. A plain string entry is a
// Script with only Run set.
type Script struct {
	Name        string            `yaml:"-"`
	Run         string            `yaml:"run"`
	Exec        *Exec             `yaml:"exec"`
	Steps       []string          `yaml:"steps"`
	Private     bool              `yaml:"private"`
	Description string            `yaml:"description"`
	Filters     *filter.Spec      `yaml:"packageFilters"`
	Env         map[string]string `yaml:"env"`
	Groups      []string          `yaml:"groups"`
}

// Exec is the exec key of a script: either the command to run in every
// package, or options paired with Run.
type Exec struct {
	Command string
	Options ExecOptions
}

// ExecOptions overlays run configuration for one script.
type ExecOptions struct {
	Concurrency     *int `yaml:"concurrency"`
	FailFast        bool `yaml:"failFast"`
	OrderDependents bool `yaml:"orderDependents"`
}

// UnmarshalYAML accepts a command string or an options mapping.
func (e *Exec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.Command = node.Value
		return nil
	case yaml.MappingNode:
		return node.Decode(&e.Options)
	default:
		return fmt.Errorf("line %d: exec must be a command string or an options mapping", node.Line)
	}
}

// UnmarshalYAML accepts a command string or a script mapping.
func (s *Script) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Run = node.Value
		return nil
	}
	type plain Script
	return node.Decode((*plain)(s))
}

// Command returns the command the script runs.
func (s *Script) Command() string {
	if s.Exec != nil && s.Exec.Command != "" {
		return s.Exec.Command
	}
	return s.Run
}

// PerPackage reports whether the command runs in every selected package
// rather than once at the workspace root.
func (s *Script) PerPackage() bool {
	return s.Exec != nil
}

// FilterSpec merges the script's package filters (base) with filters given
// on the command line (overlay).
func (s *Script) FilterSpec(cli filter.Spec) filter.Spec {
	var base filter.Spec
	if s.Filters != nil {
		base = *s.Filters
	}
	return filter.Merge(base, cli)
}

// ExecConfig overlays the script's exec options on base.
func (s *Script) ExecConfig(base runner.Config) runner.Config {
	if s.Exec == nil {
		return base
	}
	opts := s.Exec.Options
	if opts.Concurrency != nil {
		base.Concurrency = *opts.Concurrency
	}
	base.FailFast = base.FailFast || opts.FailFast
	base.OrderDependents = base.OrderDependents || opts.OrderDependents
	return base
}

func (s *Script) validate() error {
	switch {
	case len(s.Steps) > 0 && (s.Exec != nil || s.Filters != nil):
		return errors.Config(fmt.Sprintf("script %q: steps cannot be combined with exec or packageFilters", s.Name), nil)
	case len(s.Steps) == 0 && s.Command() == "":
		return errors.Config(fmt.Sprintf("script %q: one of run, exec or steps is required", s.Name), nil)
	case s.Filters != nil:
		if err := filter.Validate(*s.Filters); err != nil {
			return errors.Config(fmt.Sprintf("script %q: invalid packageFilters", s.Name), err)
		}
	}
	return nil
}

// Scripts maps script names to scripts.
type Scripts map[string]*Script

// ParseScripts decodes the scripts section of a melos.yaml document.
func ParseScripts(data []byte) (Scripts, error) {
	var doc struct {
		Scripts map[string]*Script `yaml:"scripts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Config("failed to parse scripts", err)
	}

	scripts := make(Scripts, len(doc.Scripts))
	for name, s := range doc.Scripts {
		if s == nil {
			return nil, errors.Config(fmt.Sprintf("script %q is empty", name), nil)
		}
		s.Name = name
		if err := s.validate(); err != nil {
			return nil, err
		}
		scripts[name] = s
	}
	return scripts, nil
}

// LoadScripts reads and decodes the scripts of the melos.yaml at path.
func LoadScripts(path string) (Scripts, error) {
	return loadScripts(afero.NewOsFs(), path)
}

func loadScripts(fs afero.Fs, path string) (Scripts, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Config("failed to read "+path, err)
	}
	return ParseScripts(data)
}

// Names returns the script names in ascending order. Private scripts are
// left out unless includePrivate is set.
func (ss Scripts) Names(includePrivate bool) []string {
	names := make([]string, 0, len(ss))
	for name, s := range ss {
		if includePrivate || !s.Private {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// InGroup returns the names of scripts belonging to group, sorted.
func (ss Scripts) InGroup(group string) []string {
	var names []string
	for name, s := range ss {
		if slices.Contains(s.Groups, group) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Step is one resolved unit of a steps workflow: a script to run, or a
// shell command run at the workspace root.
type Step struct {
	Script  *Script
	Command string
}

// Steps flattens the workflow of the named script. A step naming another
// script expands to that script's own steps, or to the script itself when
// it has none. Anything else is a shell command. Self-referencing
// workflows fail with CONFIG_ERROR.
func (ss Scripts) Steps(name string) ([]Step, error) {
	s, ok := ss[name]
	if !ok {
		return nil, errors.Config(fmt.Sprintf("script %q is not defined", name), nil)
	}
	var out []Step
	if err := ss.expand(s, []string{name}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (ss Scripts) expand(s *Script, path []string, out *[]Step) error {
	if len(s.Steps) == 0 {
		*out = append(*out, Step{Script: s})
		return nil
	}
	for _, step := range s.Steps {
		ref, ok := ss[step]
		if !ok {
			*out = append(*out, Step{Command: step})
			continue
		}
		next := append(slices.Clone(path), step)
		if slices.Contains(path, step) {
			return errors.Config(fmt.Sprintf("script steps form a cycle: %v", next), nil).
				WithDetail("scripts", next)
		}
		if err := ss.expand(ref, next, out); err != nil {
			return err
		}
	}
	return nil
}
