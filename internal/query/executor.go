package query

import (
	"context"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/QTest-hq/antenna/internal/config"
	"github.com/QTest-hq/antenna/internal/errs"
	"github.com/QTest-hq/antenna/internal/index"
	"github.com/QTest-hq/antenna/internal/worker"
	"github.com/QTest-hq/antenna/pkg/model"
)

// Executor runs a query over the files an Index associates with it
type Executor struct {
	cache *Cache
	pool  *worker.Pool
}

// NewExecutor creates an executor sharing cache across queries
func NewExecutor(cache *Cache, pool *worker.Pool) *Executor {
	if cache == nil {
		cache = NewCache()
	}
	if pool == nil {
		pool = worker.NewPool(0)
	}
	return &Executor{cache: cache, pool: pool}
}

// Cache returns the compiled pattern cache
func (e *Executor) Cache() *Cache {
	return e.cache
}

type fileOutcome struct {
	result   model.QueryResult
	ok       bool
	problems []error
}

// Execute runs q over its indexed files. The pattern is compiled once per
// language present; files whose language failed to compile are skipped and
// the failure is reported once. Results are sorted by path. The error, when
// non-nil, is an *errs.Collection; the returned results are still valid.
func (e *Executor) Execute(ctx context.Context, q config.Query, idx *index.Index) ([]model.QueryResult, error) {
	if !idx.HasQuery(q.Name) {
		return nil, errs.Newf(errs.KindConfig, "query was not indexed").WithQuery(q.Name)
	}

	var problems []error
	if err := e.cache.Warm(q, idx.Languages(q.Name)); err != nil {
		problems = append(problems, err)
	}

	outcomes := worker.Map(ctx, e.pool, idx.FilesFor(q.Name), func(ctx context.Context, f *index.IndexedFile) fileOutcome {
		if err := ctx.Err(); err != nil {
			return fileOutcome{problems: []error{errs.New(errs.KindIO, err).WithQuery(q.Name).WithPath(f.Path)}}
		}

		compiled, err := e.cache.CompileFor(f.Language, q.Query)
		if err != nil {
			// already reported by Warm
			return fileOutcome{}
		}

		matches, decodeErrs := extractMatches(compiled, f)
		for i, err := range decodeErrs {
			decodeErrs[i] = attribute(err, q.Name)
		}
		return fileOutcome{
			result:   model.QueryResult{Name: q.Name, Path: f.Path, Matches: matches},
			ok:       true,
			problems: decodeErrs,
		}
	})

	results := make([]model.QueryResult, 0, len(outcomes))
	for _, o := range outcomes {
		problems = append(problems, o.problems...)
		if o.ok {
			results = append(results, o.result)
		}
	}
	model.SortByPath(results)

	return results, errs.Collect(problems)
}

// extractMatches runs the compiled pattern over one file. Matches keep the
// engine's traversal order and captures keep their order within a match.
// A capture that is not valid UTF-8 is dropped from its match and reported.
func extractMatches(compiled *sitter.Query, f *index.IndexedFile) ([]model.Match, []error) {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(compiled, f.Tree.RootNode())

	matches := make([]model.Match, 0)
	var problems []error
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}

		hadCaptures := len(m.Captures) > 0
		m = qc.FilterPredicates(m, f.Content)
		if hadCaptures && len(m.Captures) == 0 {
			continue
		}

		match := model.Match{Captures: make([]model.Capture, 0, len(m.Captures))}
		for _, c := range m.Captures {
			name := compiled.CaptureNameForId(c.Index)
			if anonymousCapture(name) {
				continue
			}

			start, end := c.Node.StartByte(), c.Node.EndByte()
			startPoint, endPoint := c.Node.StartPoint(), c.Node.EndPoint()
			raw := f.Content[start:end]
			if !utf8.Valid(raw) {
				problems = append(problems, errs.Newf(errs.KindDecode,
					"capture @%s at %d:%d is not valid UTF-8", name, startPoint.Row, startPoint.Column,
				).WithPath(f.Path).WithLanguage(f.LanguageName()))
				continue
			}

			match.Captures = append(match.Captures, model.Capture{
				Name:        name,
				Text:        string(raw),
				StartColumn: int(startPoint.Column),
				StartLine:   int(startPoint.Row),
				EndColumn:   int(endPoint.Column),
				EndLine:     int(endPoint.Row),
			})
		}
		matches = append(matches, match)
	}

	return matches, problems
}

// anonymousCapture reports captures that only exist to feed predicates or
// group nodes: names starting with an underscore.
func anonymousCapture(name string) bool {
	return name == "" || strings.HasPrefix(name, "_")
}
