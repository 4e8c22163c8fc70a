package runner

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/QTest-hq/antenna/internal/ignore"
	"github.com/QTest-hq/antenna/internal/watch"
)

// Watch runs once, then re-runs after every debounced batch of source or
// configuration changes until ctx is done. Run errors are logged and do not
// stop watching.
func (r *Runner) Watch(ctx context.Context) error {
	if _, err := r.Run(ctx); err != nil {
		log.Warn().Msg("initial run finished with errors")
	}

	var matcher *ignore.Matcher
	if r.cfg.RespectGitignore {
		matcher = ignore.NewMatcher(r.ws.Root)
	}

	w, err := watch.New(watch.Options{
		Root:   r.ws.Root,
		Ignore: matcher,
		Files:  []string{r.opts.ConfigurationFile},
		Skip:   r.OutputPaths(),
	})
	if err != nil {
		return err
	}
	defer w.Close()
	go w.Start(ctx)

	log.Info().Str("repository", r.ws.Root).Msg("watching for changes")
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case batch := <-w.Events():
			log.Info().Int("changes", len(batch)).Str("first", batch[0].Path).Msg("re-running")
			if r.touchesConfiguration(batch) {
				if err := r.Reload(); err != nil {
					log.Error().Err(err).Msg("keeping previous configuration")
				} else {
					w.SetSkip(r.OutputPaths())
				}
			}
			if _, err := r.Run(ctx); err != nil {
				log.Warn().Msg("run finished with errors")
			}
		}
	}
}

func (r *Runner) touchesConfiguration(batch []watch.Event) bool {
	for _, e := range batch {
		if samePath(e.Path, r.opts.ConfigurationFile) {
			return true
		}
	}
	return false
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
