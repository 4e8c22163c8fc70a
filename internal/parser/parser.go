package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/toml"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

var (
	byName      = make(map[string]Language)
	byExtension = make(map[string]Language)
)

func init() {
	Register(newGrammar("rust", rust.GetLanguage, "rs"))
	Register(newGrammar("python", python.GetLanguage, "py"))
	Register(newGrammar("typescript", typescript.GetLanguage, "ts"))
	Register(newGrammar("tsx", tsx.GetLanguage, "tsx"))
	Register(newGrammar("javascript", javascript.GetLanguage, "js", "jsx", "mjs"))
	Register(newGrammar("go", golang.GetLanguage, "go"))
	Register(newGrammar("cpp", cpp.GetLanguage, "cpp", "cxx", "cc", "hpp"))
	Register(newGrammar("java", java.GetLanguage, "java"))
	Register(newGrammar("c", c.GetLanguage, "c", "h"))
	Register(newGrammar("ruby", ruby.GetLanguage, "rb"))
	Register(newGrammar("html", html.GetLanguage, "html", "htm"))
	Register(newGrammar("css", css.GetLanguage, "css"))
	Register(newGrammar("swift", swift.GetLanguage, "swift"))
	Register(newGrammar("csharp", csharp.GetLanguage, "cs"))
	Register(newGrammar("toml", toml.GetLanguage, "toml"))
	Register(newGrammar("yaml", yaml.GetLanguage, "yaml", "yml"))
}

// Register adds a language to the registry. It panics when the name or one of
// the extensions is already taken; registration happens at init time only.
func Register(lang Language) {
	name := lang.Name()
	if _, exists := byName[name]; exists {
		panic(fmt.Sprintf("parser: language %q registered twice", name))
	}
	for _, ext := range lang.Extensions() {
		ext = normalizeExtension(ext)
		if other, exists := byExtension[ext]; exists {
			panic(fmt.Sprintf("parser: extension %q of %q already registered by %q", ext, name, other.Name()))
		}
	}

	byName[name] = lang
	for _, ext := range lang.Extensions() {
		byExtension[normalizeExtension(ext)] = lang
	}
}

// Resolve maps a file extension to a language. The lookup is case-insensitive
// and accepts a leading dot. Unknown extensions return false.
func Resolve(ext string) (Language, bool) {
	lang, ok := byExtension[normalizeExtension(ext)]
	return lang, ok
}

// ResolvePath resolves the language of a file from its extension
func ResolvePath(path string) (Language, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, false
	}
	return Resolve(ext)
}

// Get returns a language by name
func Get(name string) (Language, bool) {
	lang, ok := byName[name]
	return lang, ok
}

// Languages returns all registered languages sorted by name
func Languages() []Language {
	langs := make([]Language, 0, len(byName))
	for _, lang := range byName {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		return langs[i].Name() < langs[j].Name()
	})
	return langs
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// grammar is the tree-sitter backed Language used by every built-in entry.
type grammar struct {
	name       string
	extensions []string
	load       func() *sitter.Language
}

func newGrammar(name string, load func() *sitter.Language, extensions ...string) *grammar {
	return &grammar{
		name:       name,
		extensions: extensions,
		load:       sync.OnceValue(load),
	}
}

func (g *grammar) Name() string {
	return g.name
}

func (g *grammar) Extensions() []string {
	out := make([]string, len(g.extensions))
	copy(out, g.extensions)
	return out
}

func (g *grammar) Grammar() *sitter.Language {
	return g.load()
}

// Parse uses a fresh parser per call; tree-sitter parsers are not safe for
// concurrent use while grammars are.
func (g *grammar) Parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(g.Grammar())

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s source: %w", g.name, err)
	}
	if tree == nil {
		return nil, ErrNoTree
	}
	return tree, nil
}

func (g *grammar) Compile(pattern string) (*sitter.Query, error) {
	q, err := sitter.NewQuery([]byte(pattern), g.Grammar())
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (g *grammar) String() string {
	return g.name
}
