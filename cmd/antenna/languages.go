package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/QTest-hq/antenna/internal/parser"
)

func languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and their file extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, lang := range parser.Languages() {
				fmt.Fprintf(out, "%-12s %s\n", lang.Name(), strings.Join(lang.Extensions(), ", "))
			}
			return nil
		},
	}
}
