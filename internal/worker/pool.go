// Package worker provides the bounded pool that runs independent units of work
// (one file read+parse, one query glob expansion, one file match) in parallel.
package worker

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultSize is the pool size used when none is configured
const DefaultSize = 4

// Pool bounds the number of units of work running at once
type Pool struct {
	size int
}

// NewPool creates a pool running at most size units concurrently.
// A non-positive size falls back to ANTENNA_WORKERS, then DefaultSize.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = sizeFromEnv()
	}
	return &Pool{size: size}
}

// Size returns the maximum number of concurrent units
func (p *Pool) Size() int {
	if p == nil || p.size <= 0 {
		return DefaultSize
	}
	return p.size
}

// Map runs fn once per item with at most p.Size() calls in flight and returns
// the results in input order. Units report failures through their result
// value; a failing unit never cancels its siblings.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(p.Size(), len(items)))

	for i, item := range items {
		g.Go(func() error {
			results[i] = fn(gctx, item)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("worker pool finished with error")
	}
	return results
}

func sizeFromEnv() int {
	if raw := strings.TrimSpace(os.Getenv("ANTENNA_WORKERS")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSize
}
