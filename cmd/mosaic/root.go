package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagStrategy string
	flagTimeout  string
)

var rootCmd = &cobra.Command{
	Use:   "mosaic",
	Short: "Multi-agent prompt orchestration engine",
	Long: `Mosaic refines a raw prompt, distributes it across data sources,
aggregates the answers and synthesizes a single response.

The pipeline runs four supervised stages:
- refine: analyze and rewrite the prompt
- distribute: fan out across the selected sources
- collect: validate and aggregate the source results
- synthesize: assemble the final response`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config file (overrides discovery)")
	rootCmd.PersistentFlags().StringVar(&flagStrategy, "strategy", "", "Aggregation strategy (weighted, consensus, chronological, simple)")
	rootCmd.PersistentFlags().StringVar(&flagTimeout, "timeout", "", "Per-step timeout (e.g. 90s)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
