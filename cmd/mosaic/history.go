package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [request-id]",
	Short: "Show recent orchestration runs",
	Long: `Show recent runs recorded in the audit store. Pass a request ID to
see the step-by-step events for a single run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openAuditStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		events, err := store.Events(args[0])
		if err != nil {
			return fmt.Errorf("loading events: %w", err)
		}
		if len(events) == 0 {
			printStatus("⚠", fmt.Sprintf("No events recorded for %s", args[0]), color.FgYellow)
			return nil
		}
		for _, ev := range events {
			fmt.Printf("  %s  %-9s %-12s %s\n", ev.At.Format(time.RFC3339), ev.Level, ev.Step, ev.Message)
		}
		return nil
	}

	runs, err := store.Runs(historyLimit)
	if err != nil {
		return fmt.Errorf("loading runs: %w", err)
	}
	if len(runs) == 0 {
		printStatus("⚠", "No runs recorded yet", color.FgYellow)
		return nil
	}

	for _, r := range runs {
		symbol, attr := "✓", color.FgGreen
		if r.Status != "completed" {
			symbol, attr = "✗", color.FgRed
		}
		fmt.Printf("%s %s  %-9s %6dms  conf=%.2f  %s\n",
			color.New(attr).Sprint(symbol), r.RequestID, r.Status,
			r.DurationMillis, r.Confidence, r.PromptExcerpt)
	}
	return nil
}
