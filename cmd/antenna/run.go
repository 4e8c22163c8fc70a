package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/QTest-hq/antenna/internal/runner"
)

func runCmd(flags *globalFlags) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every configured query and write its outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueries(cmd, flags, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Re-run whenever source or configuration files change")

	return cmd
}

func runQueries(cmd *cobra.Command, flags *globalFlags, watch bool) error {
	r, err := runner.New(runner.Options{
		ConfigurationFile: flags.configurationFile,
		Repository:        flags.repository,
		Workers:           flags.workers,
		Stdout:            cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	if watch {
		return r.Watch(cmd.Context())
	}

	summary, err := r.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run finished with %d error(s)", summary.Errors)
	}
	return nil
}
