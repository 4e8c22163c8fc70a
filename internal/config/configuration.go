// Package config loads antenna's settings and its declarative query
// configuration (YAML or TOML).
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/QTest-hq/antenna/internal/errs"
)

// Configuration is the root of an antenna configuration file
type Configuration struct {
	// Worker pool size (0 = default)
	Workers int `yaml:"workers,omitempty" toml:"workers"`

	// Globs excluded from every query's include set
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude"`

	// Skip files ignored by the repository's .gitignore
	RespectGitignore bool `yaml:"respect_gitignore,omitempty" toml:"respect_gitignore"`

	Queries []Query `yaml:"queries" toml:"queries"`
}

// Query is one named query: an include glob, a tree-sitter pattern and the
// outputs its results are written to.
type Query struct {
	Name    string   `yaml:"name" toml:"name"`
	Include string   `yaml:"include" toml:"include"`
	Query   string   `yaml:"query" toml:"query"`
	Output  []Output `yaml:"output,omitempty" toml:"output"`
}

// OutputKind names an output mode
type OutputKind string

const (
	OutputOccurrences OutputKind = "occurrences"
	OutputCSV         OutputKind = "csv"
	OutputJSON        OutputKind = "json"
)

// Output is one requested output mode of a query
type Output struct {
	Kind           OutputKind
	Path           string
	RequireMatches bool
}

type outputOptions struct {
	Path           string `yaml:"path"`
	RequireMatches bool   `yaml:"require_matches"`
}

// UnmarshalYAML accepts either a bare mode name (`occurrences`) or a
// single-key mapping (`csv: {path: out.csv}`).
func (o *Output) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		return o.setKind(name)

	case yaml.MappingNode:
		var raw map[string]outputOptions
		if err := node.Decode(&raw); err != nil {
			return err
		}
		if len(raw) != 1 {
			return fmt.Errorf("line %d: output mapping must have exactly one key, got %d", node.Line, len(raw))
		}
		for name, opts := range raw {
			if err := o.setKind(name); err != nil {
				return fmt.Errorf("line %d: %w", node.Line, err)
			}
			o.Path = opts.Path
			o.RequireMatches = opts.RequireMatches
		}
		return nil

	default:
		return fmt.Errorf("line %d: output must be a mode name or a mapping", node.Line)
	}
}

// UnmarshalTOML accepts either a bare mode name or an inline table
// (`{ csv = { path = "out.csv" } }`).
func (o *Output) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		return o.setKind(v)

	case map[string]any:
		if len(v) != 1 {
			return fmt.Errorf("output table must have exactly one key, got %d", len(v))
		}
		for name, rawOpts := range v {
			if err := o.setKind(name); err != nil {
				return err
			}
			opts, ok := rawOpts.(map[string]any)
			if !ok {
				return fmt.Errorf("output %q options must be a table", name)
			}
			if path, ok := opts["path"].(string); ok {
				o.Path = path
			}
			if req, ok := opts["require_matches"].(bool); ok {
				o.RequireMatches = req
			}
		}
		return nil

	default:
		return fmt.Errorf("output must be a mode name or a table, got %T", data)
	}
}

func (o *Output) setKind(name string) error {
	switch kind := OutputKind(strings.ToLower(strings.TrimSpace(name))); kind {
	case OutputOccurrences, OutputCSV, OutputJSON:
		o.Kind = kind
		return nil
	default:
		return fmt.Errorf("unknown output mode %q", name)
	}
}

func (o Output) String() string {
	if o.Path == "" {
		return string(o.Kind)
	}
	return fmt.Sprintf("%s(%s)", o.Kind, o.Path)
}

// Load reads and validates the configuration file at path. TOML is used for
// files ending in .toml, YAML otherwise.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.KindConfig, fmt.Errorf("failed to read configuration: %w", err)).WithPath(path)
	}

	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// Format is a configuration file syntax
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes and validates configuration data
func Parse(data []byte, format Format) (*Configuration, error) {
	cfg := &Configuration{}

	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
			return nil, errs.New(errs.KindConfig, fmt.Errorf("failed to parse TOML: %w", err))
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errs.New(errs.KindConfig, fmt.Errorf("failed to parse YAML: %w", err))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the structure of the configuration. Include glob syntax is
// not checked here: a bad include is reported per query during indexing so
// sibling queries still run.
func (c *Configuration) Validate() error {
	var problems []error
	invalid := func(query, format string, args ...any) {
		problems = append(problems, errs.Newf(errs.KindConfig, format, args...).WithQuery(query))
	}

	if c.Workers < 0 {
		invalid("", "workers must not be negative, got %d", c.Workers)
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			invalid("", "invalid exclude pattern %q", pattern)
		}
	}

	seen := make(map[string]bool, len(c.Queries))
	for i, q := range c.Queries {
		if strings.TrimSpace(q.Name) == "" {
			invalid("", "query #%d has no name", i+1)
			continue
		}
		if seen[q.Name] {
			invalid(q.Name, "duplicate query name")
		}
		seen[q.Name] = true

		if strings.TrimSpace(q.Include) == "" {
			invalid(q.Name, "include pattern is empty")
		}
		if strings.TrimSpace(q.Query) == "" {
			invalid(q.Name, "query pattern is empty")
		}

		outputs := make(map[string]bool, len(q.Output))
		for _, out := range q.Output {
			if out.Kind != OutputOccurrences && out.Path == "" {
				invalid(q.Name, "%s output requires a path", out.Kind)
			}
			if outputs[out.String()] {
				invalid(q.Name, "output %s listed twice", out)
			}
			outputs[out.String()] = true
		}
	}

	return errs.Collect(problems)
}

// QueryNames returns the configured query names sorted alphabetically
func (c *Configuration) QueryNames() []string {
	names := make([]string, 0, len(c.Queries))
	for _, q := range c.Queries {
		names = append(names, q.Name)
	}
	sort.Strings(names)
	return names
}
