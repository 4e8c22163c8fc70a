// Package query compiles tree-sitter patterns once per language and runs
// them over indexed files, normalizing matches into model.QueryResult.
package query

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/QTest-hq/antenna/internal/config"
	"github.com/QTest-hq/antenna/internal/errs"
	"github.com/QTest-hq/antenna/internal/parser"
)

type cacheKey struct {
	language string
	pattern  string
}

type cacheEntry struct {
	once  sync.Once
	query *sitter.Query
	err   error
}

// Cache holds compiled patterns keyed by (language, pattern). Each key is
// compiled exactly once, including under concurrent callers; failures are
// cached too.
type Cache struct {
	mu           sync.Mutex
	entries      map[cacheKey]*cacheEntry
	compilations atomic.Int64
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*cacheEntry)}
}

// CompileFor returns the pattern compiled for lang, compiling it on first use.
// Errors are *errs.Error of kind KindPattern attributed to the language.
func (c *Cache) CompileFor(lang parser.Language, pattern string) (*sitter.Query, error) {
	key := cacheKey{language: lang.Name(), pattern: pattern}

	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		c.compilations.Add(1)
		q, err := lang.Compile(pattern)
		if err != nil {
			entry.err = errs.New(errs.KindPattern, err).WithLanguage(lang.Name())
			return
		}
		entry.query = q
		log.Debug().Str("language", lang.Name()).Uint32("captures", q.CaptureCount()).Msg("compiled pattern")
	})

	return entry.query, entry.err
}

// Warm compiles the query's pattern for every language in langs and returns
// the failures, one per language, attributed to the query.
func (c *Cache) Warm(q config.Query, langs []parser.Language) error {
	var problems []error
	for _, lang := range langs {
		if _, err := c.CompileFor(lang, q.Query); err != nil {
			problems = append(problems, attribute(err, q.Name))
		}
	}
	return errs.Collect(problems)
}

// Compilations returns how many compile operations actually ran
func (c *Cache) Compilations() int {
	return int(c.compilations.Load())
}

// Len returns the number of cached keys
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func attribute(err error, query string) error {
	var typed *errs.Error
	if errors.As(err, &typed) {
		return typed.WithQuery(query)
	}
	return errs.New(errs.KindPattern, err).WithQuery(query)
}
