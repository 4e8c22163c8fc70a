// Package emitter writes query results in the output modes a query requests
package emitter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/QTest-hq/antenna/internal/config"
	"github.com/QTest-hq/antenna/pkg/model"
)

// Emitter writes the results of one query
type Emitter interface {
	// Name returns the output mode (e.g., "occurrences", "csv", "json")
	Name() string

	// Emit writes the results of a single query
	Emit(results []model.QueryResult) error
}

// Factory builds an emitter for a configured output. stdout receives
// console output.
type Factory func(out config.Output, stdout io.Writer) Emitter

// Registry holds the available output modes
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a new registry with all built-in output modes
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
	}

	r.Register(string(config.OutputOccurrences), func(_ config.Output, stdout io.Writer) Emitter {
		return &Occurrences{Out: stdout}
	})
	r.Register(string(config.OutputCSV), func(out config.Output, _ io.Writer) Emitter {
		return &CSV{Path: out.Path}
	})
	r.Register(string(config.OutputJSON), func(out config.Output, _ io.Writer) Emitter {
		return &JSON{Path: out.Path, RequireMatches: out.RequireMatches}
	})

	return r
}

// Register adds an output mode to the registry
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Get returns an emitter for the configured output
func (r *Registry) Get(out config.Output, stdout io.Writer) (Emitter, error) {
	f, ok := r.factories[string(out.Kind)]
	if !ok {
		return nil, fmt.Errorf("emitter not found: %s", out.Kind)
	}
	return f(out, stdout), nil
}

// List returns all registered output mode names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// ForMode returns the built-in emitter for a configured output
func ForMode(out config.Output, stdout io.Writer) (Emitter, error) {
	return defaultRegistry.Get(out, stdout)
}

// createFile opens path for writing, creating parent directories and
// truncating any previous content.
func createFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
