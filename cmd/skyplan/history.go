package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skyplan-dev/skyplan/internal/config"
	"github.com/skyplan-dev/skyplan/internal/state"
	"github.com/skyplan-dev/skyplan/pkg/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past runs",
	Long: `List recent runs, or show the full report of one run.

Without arguments, lists the most recent runs. With a run ID,
prints that run's goal, verdict, chain, and steps.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := cfg.History.Path
	if path == "" {
		path = config.DefaultHistoryPath()
	}

	db, err := state.Open(path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}

	if len(args) == 1 {
		return showRun(db, args[0])
	}
	return listRuns(db)
}

func listRuns(db *state.DB) error {
	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	for _, run := range runs {
		goal := run.Goal
		if len(goal) > 50 {
			goal = goal[:50] + "..."
		}
		fmt.Printf("%s  %s  %-8s  %-14s  %s\n",
			run.RunID[:8],
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			achievementString(run.Achievement),
			run.StopReason,
			goal,
		)
	}
	return nil
}

func showRun(db *state.DB, runID string) error {
	report, err := db.GetRun(runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}

	fmt.Printf("Run:        %s\n", report.RunID)
	fmt.Printf("Goal:       %s\n", report.Goal.Text)
	fmt.Printf("Verdict:    %s (%s)\n", achievementString(report.Verdict.Achievement), report.Verdict.Rationale)
	if len(report.Verdict.Unmet) > 0 {
		fmt.Printf("Unmet:      %s\n", strings.Join(report.Verdict.Unmet, ", "))
	}
	fmt.Printf("Chain:      %s\n", strings.Join(report.Chain, " → "))
	fmt.Printf("Iterations: %d\n", report.Iterations)
	fmt.Printf("Elapsed:    %s\n", report.Elapsed.Round(time.Millisecond))
	fmt.Printf("Stopped:    %s\n", report.StopReason)

	if len(report.Steps) > 0 {
		fmt.Println("\nSteps:")
		for _, step := range report.Steps {
			switch step.Status {
			case models.StepSuccess:
				fmt.Printf("  %s iter %d  %-10s %s\n", color.GreenString("✓"), step.Iteration, step.Capability, step.Duration.Round(time.Millisecond))
			case models.StepFailed:
				fmt.Printf("  %s iter %d  %-10s %s\n", color.RedString("✗"), step.Iteration, step.Capability, step.Error)
			case models.StepSkipped:
				fmt.Printf("  %s iter %d  %-10s skipped (%s)\n", color.YellowString("-"), step.Iteration, step.Capability, step.Reason)
			}
		}
	}
	return nil
}

func achievementString(a models.Achievement) string {
	switch a {
	case models.GoalAchieved:
		return color.GreenString(string(a))
	case models.GoalPartial:
		return color.YellowString(string(a))
	default:
		return color.RedString(string(a))
	}
}
