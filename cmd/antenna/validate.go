package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/QTest-hq/antenna/internal/config"
	"github.com/QTest-hq/antenna/internal/errs"
	"github.com/QTest-hq/antenna/internal/ignore"
	"github.com/QTest-hq/antenna/internal/index"
	"github.com/QTest-hq/antenna/internal/parser"
	"github.com/QTest-hq/antenna/internal/query"
	"github.com/QTest-hq/antenna/internal/repo"
	"github.com/QTest-hq/antenna/internal/worker"
)

func validateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and compile every query without running it",
		Long: `Loads the configuration, expands each query's include pattern and compiles
its pattern for every language among the included files. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configurationFile)
			if err != nil {
				return err
			}
			ws, err := repo.Open(flags.repository)
			if err != nil {
				return err
			}

			workers := flags.workers
			if workers <= 0 {
				workers = cfg.Workers
			}
			pool := worker.NewPool(workers)

			opts := index.Options{Root: ws.Root, Pool: pool, Exclude: cfg.Exclude}
			if cfg.RespectGitignore {
				opts.Ignore = ignore.NewMatcher(ws.Root)
			}
			idx, indexErr := index.NewIndexer(opts).Index(cmd.Context(), cfg.Queries)

			cache := query.NewCache()
			problems := []error{indexErr}
			out := cmd.OutOrStdout()
			for _, q := range cfg.Queries {
				langs := idx.Languages(q.Name)
				if err := cache.Warm(q, langs); err != nil {
					problems = append(problems, err)
				}
				fmt.Fprintf(out, "%s: %d file(s) [%s]\n", q.Name, len(idx.FilesFor(q.Name)), languageNames(langs))
			}

			if err := errs.Collect(problems); err != nil {
				return err
			}
			fmt.Fprintf(out, "configuration %s is valid\n", flags.configurationFile)
			return nil
		},
	}
}

func languageNames(langs []parser.Language) string {
	names := make([]string, 0, len(langs))
	for _, l := range langs {
		names = append(names, l.Name())
	}
	return strings.Join(names, ", ")
}
