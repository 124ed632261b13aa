package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

var runShowSteps bool

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Process a prompt through the full pipeline",
	Long: `Run the four-stage pipeline on a prompt and print the synthesized
response.

Examples:
  mosaic run "Créer une fonction JavaScript simple"
  mosaic run --strategy consensus "Compare the main sorting algorithms"
  mosaic run --timeout 90s "Explain how DNS resolution works"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runShowSteps, "steps", false, "Show per-step results")
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cfg); err != nil {
		return err
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()

	o, store, err := buildOrchestrator(cfg, reg)
	if err != nil {
		return err
	}
	defer o.Shutdown()
	if store != nil {
		defer store.Close()
	}

	printStatus("→", fmt.Sprintf("Processing request (%d sources registered)", len(reg.List())), color.FgCyan)

	res, err := o.ProcessRequest(cmd.Context(), prompt, nil)
	if err != nil {
		return err
	}

	wf := res.Orchestration.Workflow
	switch wf.Status {
	case models.WorkflowStatusCompleted:
		printStatus("✓", fmt.Sprintf("Request %s completed", res.RequestID), color.FgGreen)
	default:
		printStatus("✗", fmt.Sprintf("Request %s ended with status %s", res.RequestID, wf.Status), color.FgRed)
	}

	for _, entry := range wf.Log {
		attr := color.FgYellow
		symbol := "⚠"
		switch entry.Level {
		case models.LogLevelError:
			attr = color.FgRed
			symbol = "✗"
		case models.LogLevelInfo:
			attr = color.FgCyan
			symbol = "•"
		}
		printStatus(symbol, fmt.Sprintf("%s: %s", entry.Step, entry.Message), attr)
	}

	if runShowSteps {
		for _, name := range wf.Steps {
			sr, ok := wf.StepResults[name]
			switch {
			case !ok:
				printStatus("-", name+": skipped", color.FgYellow)
			case sr.Success:
				printStatus("✓", fmt.Sprintf("%s: ok (%s)", name, sr.CompletedAt.Sub(sr.StartedAt)), color.FgGreen)
			default:
				printStatus("✗", fmt.Sprintf("%s: %s", name, sr.Error), color.FgRed)
			}
		}
	}

	if res.Result != nil {
		fmt.Println()
		fmt.Println(res.Result.Content)
		fmt.Println()
		printStatus("•", fmt.Sprintf("Confidence: %s, quality: %.2f", res.Result.ConfidenceLevel, res.Result.QualityScore), color.FgCyan)
		for _, rec := range res.Result.Recommendations {
			printStatus("•", rec, color.FgYellow)
		}
	}

	return nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
