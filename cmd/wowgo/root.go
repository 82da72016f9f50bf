package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:           "wowgo",
	Short:         "wowgo - windowed attribute-aware ANN index tooling",
	Long:          `Build, query and generate ground truth for wowgo indexes over fvecs datasets.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(buildCmd, searchCmd, groundTruthCmd)
}
