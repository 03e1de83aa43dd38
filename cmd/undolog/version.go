package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/undolog"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of undolog",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "undolog version %s\n", strings.TrimSpace(undolog.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
