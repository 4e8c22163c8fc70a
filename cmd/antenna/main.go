package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/QTest-hq/antenna/internal/config"
	"github.com/QTest-hq/antenna/internal/runner"
)

var version = "dev"

// flags shared by every command; defaults come from the environment
type globalFlags struct {
	configurationFile string
	repository        string
	workers           int
	logLevel          string
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.LoadSettings()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(settings *config.Settings) *cobra.Command {
	flags := &globalFlags{}
	var watch bool

	rootCmd := &cobra.Command{
		Use:   "antenna",
		Short: "antenna - structural code search with tree-sitter queries",
		Long: `antenna runs the tree-sitter queries declared in a configuration file over
the files each query includes, and reports the matches as occurrence counts,
CSV rows or JSON documents.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return runner.SetLogLevel(flags.logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueries(cmd, flags, watch)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configurationFile, "config", "c", settings.ConfigurationFile, "Configuration file (YAML or TOML)")
	pf.StringVarP(&flags.repository, "repository", "r", settings.Repository, "Repository or directory to search")
	pf.IntVarP(&flags.workers, "workers", "w", settings.Workers, "Worker pool size (0 = configuration file or default)")
	pf.StringVar(&flags.logLevel, "log-level", settings.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "Re-run whenever source or configuration files change")

	rootCmd.AddCommand(runCmd(flags))
	rootCmd.AddCommand(languagesCmd())
	rootCmd.AddCommand(validateCmd(flags))

	return rootCmd
}
