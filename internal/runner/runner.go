// Package runner ties a configuration to a workspace: it indexes every
// query's files, executes the queries and writes their outputs.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/QTest-hq/antenna/internal/config"
	"github.com/QTest-hq/antenna/internal/emitter"
	"github.com/QTest-hq/antenna/internal/errs"
	"github.com/QTest-hq/antenna/internal/ignore"
	"github.com/QTest-hq/antenna/internal/index"
	"github.com/QTest-hq/antenna/internal/query"
	"github.com/QTest-hq/antenna/internal/repo"
	"github.com/QTest-hq/antenna/internal/worker"
	"github.com/QTest-hq/antenna/pkg/model"
)

// Options configures a Runner
type Options struct {
	// Path to the configuration file
	ConfigurationFile string

	// Directory include globs are resolved against
	Repository string

	// Worker pool size; overrides the configuration file when positive
	Workers int

	// Destination of occurrences output; defaults to os.Stdout
	Stdout io.Writer
}

// Summary describes a finished run
type Summary struct {
	RunID    string
	Queries  int
	Files    int
	Bytes    int64
	Results  int
	Matches  int
	Errors   int
	Duration time.Duration
}

// Runner executes the configured queries against a workspace
type Runner struct {
	opts Options
	cfg  *config.Configuration
	ws   *repo.Workspace
}

// New loads the configuration and opens the workspace. Failures here are
// fatal for the run.
func New(opts Options) (*Runner, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Repository == "" {
		opts.Repository = "."
	}

	cfg, err := config.Load(opts.ConfigurationFile)
	if err != nil {
		return nil, err
	}

	ws, err := repo.Open(opts.Repository)
	if err != nil {
		return nil, err
	}

	return &Runner{opts: opts, cfg: cfg, ws: ws}, nil
}

// Configuration returns the loaded configuration
func (r *Runner) Configuration() *config.Configuration {
	return r.cfg
}

// Workspace returns the opened workspace
func (r *Runner) Workspace() *repo.Workspace {
	return r.ws
}

// Reload re-reads the configuration file. The previous configuration is
// kept when the new one is invalid.
func (r *Runner) Reload() error {
	cfg, err := config.Load(r.opts.ConfigurationFile)
	if err != nil {
		return err
	}
	r.cfg = cfg
	return nil
}

// poolSize applies flag > configuration file > environment/default
func (r *Runner) poolSize() int {
	if r.opts.Workers > 0 {
		return r.opts.Workers
	}
	return r.cfg.Workers
}

// Run indexes and executes every query, then writes each query's outputs
// in configuration order. Partial failures do not stop the run; the error,
// when non-nil, is an *errs.Collection reported after all outputs are
// written.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()

	pool := worker.NewPool(r.poolSize())
	var matcher *ignore.Matcher
	if r.cfg.RespectGitignore {
		matcher = ignore.NewMatcher(r.ws.Root)
	}

	event := logger.Info().
		Str("repository", r.ws.Root).
		Int("queries", len(r.cfg.Queries)).
		Int("workers", pool.Size())
	if r.ws.IsGit {
		event = event.Str("commit", r.ws.ShortSHA()).Str("branch", r.ws.Branch)
	}
	event.Msg("starting run")

	var problems []error

	idx, err := index.NewIndexer(index.Options{
		Root:    r.ws.Root,
		Pool:    pool,
		Exclude: r.cfg.Exclude,
		Ignore:  matcher,
	}).Index(ctx, r.cfg.Queries)
	if err != nil {
		problems = append(problems, err)
	}

	stats := idx.Stats()
	logger.Info().
		Int("candidates", stats.Candidates).
		Int("files", stats.Files).
		Str("size", humanize.Bytes(uint64(stats.Bytes))).
		Msg("indexed files")

	summary := &Summary{
		RunID:   runID,
		Queries: len(r.cfg.Queries),
		Files:   stats.Files,
		Bytes:   stats.Bytes,
	}

	exec := query.NewExecutor(query.NewCache(), pool)
	for _, q := range r.cfg.Queries {
		if err := ctx.Err(); err != nil {
			problems = append(problems, fmt.Errorf("run interrupted before query %q: %w", q.Name, err))
			break
		}

		results, err := exec.Execute(ctx, q, idx)
		if err != nil {
			problems = append(problems, err)
		}

		problems = append(problems, r.emit(q, results)...)

		summary.Results += len(results)
		summary.Matches += model.TotalMatches(results)
		logger.Info().
			Str("query", q.Name).
			Int("files", len(results)).
			Int("matches", model.TotalMatches(results)).
			Msg("query finished")
	}

	err = errs.Collect(problems)
	flat := errs.Flatten(err)
	for _, e := range flat {
		logger.Error().Err(e).Msg("run error")
	}

	summary.Errors = len(flat)
	summary.Duration = time.Since(start)
	logger.Info().
		Int("results", summary.Results).
		Int("matches", summary.Matches).
		Int("errors", summary.Errors).
		Dur("elapsed", summary.Duration).
		Msg("run finished")

	return summary, err
}

// emit writes results to every output of q. A query without outputs prints
// occurrences.
func (r *Runner) emit(q config.Query, results []model.QueryResult) []error {
	outputs := q.Output
	if len(outputs) == 0 {
		outputs = []config.Output{{Kind: config.OutputOccurrences}}
	}

	var problems []error
	for _, out := range outputs {
		e, err := emitter.ForMode(out, r.opts.Stdout)
		if err != nil {
			problems = append(problems, errs.New(errs.KindConfig, err).WithQuery(q.Name))
			continue
		}
		if err := e.Emit(results); err != nil {
			problems = append(problems, errs.New(errs.KindIO, err).WithQuery(q.Name).WithPath(out.Path))
			continue
		}
		log.Debug().Str("query", q.Name).Stringer("output", out).Msg("wrote output")
	}
	return problems
}

// OutputPaths returns every file the configured outputs write to
func (r *Runner) OutputPaths() []string {
	var paths []string
	for _, q := range r.cfg.Queries {
		for _, out := range q.Output {
			if out.Path != "" {
				paths = append(paths, out.Path)
			}
		}
	}
	return paths
}

// SetLogLevel parses a zerolog level name and applies it globally
func SetLogLevel(name string) error {
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
