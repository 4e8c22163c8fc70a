// Package index discovers the files selected by each query's include glob,
// parses every distinct file once and keeps the per-query file sets.
package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"github.com/QTest-hq/antenna/internal/config"
	"github.com/QTest-hq/antenna/internal/errs"
	"github.com/QTest-hq/antenna/internal/ignore"
	"github.com/QTest-hq/antenna/internal/parser"
	"github.com/QTest-hq/antenna/internal/worker"
)

// Options configures an Indexer
type Options struct {
	// Root include globs are resolved against; defaults to "." and is made
	// absolute so every file has a single path key
	Root string

	// Pool runs glob expansion and parsing; defaults to worker.NewPool(0)
	Pool *worker.Pool

	// Exclude globs, matched against paths relative to Root
	Exclude []string

	// Ignore, when set, drops files ignored by the repository
	Ignore *ignore.Matcher
}

// Indexer builds an Index from a set of queries
type Indexer struct {
	opts Options
}

// NewIndexer creates an indexer
func NewIndexer(opts Options) *Indexer {
	if opts.Root == "" {
		opts.Root = "."
	}
	if abs, err := filepath.Abs(opts.Root); err == nil {
		opts.Root = abs
	}
	if opts.Pool == nil {
		opts.Pool = worker.NewPool(0)
	}
	return &Indexer{opts: opts}
}

type globResult struct {
	query string
	paths []string
	err   error
}

type fileResult struct {
	file *IndexedFile
	err  error
}

// Index expands every query's include glob, parses each distinct candidate
// exactly once and records which files each query matched. The returned index
// is always usable; the error, when non-nil, is an *errs.Collection of every
// glob and per-file failure. Failed files appear in no query's file set.
func (ix *Indexer) Index(ctx context.Context, queries []config.Query) (*Index, error) {
	var problems []error

	globs := worker.Map(ctx, ix.opts.Pool, queries, func(_ context.Context, q config.Query) globResult {
		paths, err := ix.expand(q.Include)
		return globResult{query: q.Name, paths: paths, err: err}
	})

	// union of candidates in first-seen order, so each path is parsed once
	var candidates []string
	seen := make(map[string]bool)
	queryPaths := make(map[string][]string, len(queries))
	for _, g := range globs {
		if g.err != nil {
			problems = append(problems, errs.New(errs.KindGlob, g.err).WithQuery(g.query))
		}
		queryPaths[g.query] = g.paths
		for _, p := range g.paths {
			if !seen[p] {
				seen[p] = true
				candidates = append(candidates, p)
			}
		}
		log.Debug().Str("query", g.query).Int("candidates", len(g.paths)).Msg("expanded include pattern")
	}

	var parsed atomic.Int64
	results := worker.Map(ctx, ix.opts.Pool, candidates, func(ctx context.Context, path string) fileResult {
		f, err := indexFile(ctx, path)
		if err == nil {
			parsed.Add(1)
		}
		return fileResult{file: f, err: err}
	})

	idx := newIndex()
	for _, r := range results {
		if r.err != nil {
			problems = append(problems, r.err)
			continue
		}
		idx.add(r.file)
	}

	for _, q := range queries {
		idx.associate(q.Name, queryPaths[q.Name])
	}

	idx.stats.Candidates = len(candidates)
	idx.stats.Parsed = int(parsed.Load())

	return idx, errs.Collect(problems)
}

// expand resolves an include glob into cleaned file paths joined with the
// root. The static prefix of the pattern becomes the walk base so includes
// such as "../lib/*.rs" or absolute paths work.
func (ix *Indexer) expand(include string) ([]string, error) {
	base, pattern := doublestar.SplitPattern(filepath.ToSlash(include))
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid include pattern %q: %w", include, doublestar.ErrBadPattern)
	}

	baseDir := filepath.FromSlash(base)
	if !filepath.IsAbs(baseDir) {
		baseDir = filepath.Join(ix.opts.Root, baseDir)
	}

	matches, err := doublestar.Glob(os.DirFS(baseDir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to expand include pattern %q: %w", include, err)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		path := filepath.Join(baseDir, filepath.FromSlash(m))
		if ix.excluded(path) {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

func (ix *Indexer) excluded(path string) bool {
	rel, err := filepath.Rel(ix.opts.Root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range ix.opts.Exclude {
		if ok, _ := doublestar.Match(filepath.ToSlash(pattern), rel); ok {
			return true
		}
	}

	if ix.opts.Ignore != nil && !strings.HasPrefix(rel, "../") {
		return ix.opts.Ignore.ShouldIgnore(rel, false)
	}
	return false
}

// indexFile reads and parses one file
func indexFile(ctx context.Context, path string) (*IndexedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.New(errs.KindIO, err).WithPath(path)
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, errs.Newf(errs.KindUnsupported, "file has no extension").WithPath(path)
	}

	lang, ok := parser.Resolve(ext)
	if !ok {
		return nil, errs.Newf(errs.KindUnsupported, "extension %q is not a recognized language", ext).WithPath(path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.KindIO, fmt.Errorf("failed to read file: %w", err)).WithPath(path)
	}

	tree, err := lang.Parse(ctx, content)
	if err != nil {
		return nil, errs.New(errs.KindParse, err).WithPath(path).WithLanguage(lang.Name())
	}

	return &IndexedFile{
		Path:      path,
		Name:      filepath.Base(path),
		Language:  lang,
		Extension: strings.ToLower(ext),
		Content:   content,
		Tree:      tree,
	}, nil
}
