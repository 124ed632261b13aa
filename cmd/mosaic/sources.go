package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured data sources",
	Long: `List the sources the distribution stage can query, either from the
configured catalog file or from the built-in defaults.`,
	RunE: runSources,
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()

	sources := reg.List()
	if len(sources) == 0 {
		printStatus("⚠", "No sources configured", color.FgYellow)
		return nil
	}

	if cfg.Sources.CatalogPath != "" {
		printStatus("•", fmt.Sprintf("Catalog: %s", cfg.Sources.CatalogPath), color.FgCyan)
	} else {
		printStatus("•", "Using built-in source defaults", color.FgCyan)
	}
	for _, s := range sources {
		fmt.Printf("  %-20s role=%s\n", s.ID(), s.Role())
	}
	return nil
}
