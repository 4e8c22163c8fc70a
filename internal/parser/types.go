package parser

import (
	"context"
	"errors"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrNoTree is returned when the engine produced no syntax tree for a source.
var ErrNoTree = errors.New("parser returned no syntax tree")

// Language is one member of the closed set of languages antenna can parse
// and query. Implementations are immutable and safe for concurrent use.
type Language interface {
	// Name returns the language identifier (e.g. "rust", "python")
	Name() string

	// Extensions returns lower-case file extensions without the leading dot
	Extensions() []string

	// Grammar returns the tree-sitter grammar handle
	Grammar() *sitter.Language

	// Parse parses src into a syntax tree
	Parse(ctx context.Context, src []byte) (*sitter.Tree, error)

	// Compile compiles a query pattern against the grammar
	Compile(pattern string) (*sitter.Query, error)
}
