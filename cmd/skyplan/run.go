package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skyplan-dev/skyplan/internal/config"
	"github.com/skyplan-dev/skyplan/internal/controller"
	"github.com/skyplan-dev/skyplan/internal/orchestrator"
	"github.com/skyplan-dev/skyplan/internal/planner"
	"github.com/skyplan-dev/skyplan/internal/registry"
	"github.com/skyplan-dev/skyplan/internal/state"
	"github.com/skyplan-dev/skyplan/pkg/models"
)

var (
	runMaxIterations int
	runConcurrency   int
	runStepTimeout   time.Duration
	runBudget        time.Duration
	runFreshContext  bool
	runNoModel       bool
	runJSON          bool
	runNoSave        bool
	runDebug         bool
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run a goal through the planning engine",
	Long: `Run a free-form goal through the plan-execute-validate loop.

The goal is analyzed into required outcomes, a minimal capability
plan is built over the dependency graph, independent capabilities
run in parallel, and the results are validated against the goal.
When outcomes are missing the engine replans and retries, bounded
by --max-iterations.

Examples:
  skyplan run "when is the next SpaceX launch?"
  skyplan run "will weather delay the next launch?"
  skyplan run "how is the media covering the upcoming mission?"

Goal analysis uses the Anthropic API when ANTHROPIC_API_KEY is set;
otherwise keyword matching is used. Pass --no-model to force keyword
matching.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGoal,
}

func init() {
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "Maximum plan-execute-validate iterations (default from config)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Maximum parallel capability invocations (default from config)")
	runCmd.Flags().DurationVar(&runStepTimeout, "step-timeout", 0, "Per-capability timeout (default from config)")
	runCmd.Flags().DurationVar(&runBudget, "budget", 0, "Total wall-clock budget for the run (0 for no limit)")
	runCmd.Flags().BoolVar(&runFreshContext, "fresh-context", false, "Discard accumulated outputs between iterations")
	runCmd.Flags().BoolVar(&runNoModel, "no-model", false, "Use keyword goal analysis even when an API key is set")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the full report as JSON")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not record the run in history")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Write execution debug logs to .skyplan/logs")
}

func runGoal(cmd *cobra.Command, args []string) error {
	goalText := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cfg)

	reg, err := registry.Builtin(registry.BuiltinConfig{
		WeatherAPIKey: cfg.Providers.WeatherAPIKey,
		NewsAPIKey:    cfg.Providers.NewsAPIKey,
	})
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	var analyzer planner.Analyzer
	if cfg.Engine.UseModel && cfg.Anthropic.APIKey != "" {
		analyzer = planner.NewModelAnalyzer(cfg.Anthropic.APIKey)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, color.YellowString("interrupted, stopping run..."))
		cancel()
	}()

	var progress controller.ProgressCallback
	if !runJSON {
		progress = printProgress
	}

	logger := orchestrator.NopLogger()
	if runDebug {
		logger = orchestrator.NewDebugLoggerForDir(".")
		defer logger.Close()
	}

	ctl := controller.New(reg, controller.Config{
		MaxIterations:  cfg.Engine.MaxIterations,
		MaxConcurrency: cfg.Engine.MaxConcurrency,
		StepTimeout:    cfg.Engine.StepTimeout,
		Budget:         cfg.Engine.Budget,
		FreshContext:   cfg.Engine.FreshContext,
		Analyzer:       analyzer,
		Logger:         logger,
		OnProgress:     progress,
	})

	report, err := ctl.Run(ctx, goalText)
	if err != nil {
		return err
	}

	if !runNoSave && cfg.History.Enabled {
		if err := saveReport(cfg, report); err != nil {
			fmt.Fprintf(os.Stderr, "%s saving run history: %v\n", color.YellowString("warning:"), err)
		}
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(report)
	return nil
}

// applyRunFlags overlays command-line flags onto the loaded config.
func applyRunFlags(cfg *config.Config) {
	if runMaxIterations > 0 {
		cfg.Engine.MaxIterations = runMaxIterations
	}
	if runConcurrency > 0 {
		cfg.Engine.MaxConcurrency = runConcurrency
	}
	if runStepTimeout > 0 {
		cfg.Engine.StepTimeout = runStepTimeout
	}
	if runBudget > 0 {
		cfg.Engine.Budget = runBudget
	}
	if runFreshContext {
		cfg.Engine.FreshContext = true
	}
	if runNoModel {
		cfg.Engine.UseModel = false
	}
}

func saveReport(cfg *config.Config, report *models.Report) error {
	path := cfg.History.Path
	if path == "" {
		path = config.DefaultHistoryPath()
	}
	db, err := state.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}
	return db.SaveReport(report)
}

func printProgress(e controller.ProgressEvent) {
	switch e.Phase {
	case controller.PhasePlanning:
		fmt.Printf("%s analyzing goal\n", color.CyanString("▸"))
	case controller.PhaseExecuting:
		fmt.Printf("%s iteration %d/%d: %s\n", color.CyanString("▸"), e.Iteration, e.MaxIterations, e.Message)
	case controller.PhaseValidating:
		if e.Verdict != nil && !e.Verdict.Achieved() {
			fmt.Printf("%s iteration %d: %s\n", color.YellowString("▸"), e.Iteration, e.Verdict.Rationale)
		}
	case controller.PhaseReplanning:
		fmt.Printf("%s replanning\n", color.CyanString("▸"))
	}
}

func printReport(report *models.Report) {
	fmt.Println()
	switch report.Verdict.Achievement {
	case models.GoalAchieved:
		fmt.Printf("%s %s\n", color.GreenString("✓"), report.Verdict.Rationale)
	case models.GoalPartial:
		fmt.Printf("%s %s\n", color.YellowString("⚠"), report.Verdict.Rationale)
	default:
		fmt.Printf("%s %s\n", color.RedString("✗"), report.Verdict.Rationale)
	}

	fmt.Printf("\nRun:        %s\n", report.RunID)
	fmt.Printf("Chain:      %s\n", strings.Join(report.Chain, " → "))
	fmt.Printf("Iterations: %d\n", report.Iterations)
	fmt.Printf("Elapsed:    %s\n", report.Elapsed.Round(time.Millisecond))
	fmt.Printf("Stopped:    %s\n", report.StopReason)

	if len(report.Steps) > 0 {
		fmt.Println("\nSteps:")
		for _, step := range report.Steps {
			switch step.Status {
			case models.StepSuccess:
				fmt.Printf("  %s %-10s %s\n", color.GreenString("✓"), step.Capability, step.Duration.Round(time.Millisecond))
			case models.StepFailed:
				fmt.Printf("  %s %-10s %s\n", color.RedString("✗"), step.Capability, step.Error)
			case models.StepSkipped:
				fmt.Printf("  %s %-10s skipped (%s)\n", color.YellowString("-"), step.Capability, step.Reason)
			}
		}
	}

	printFindings(report.Context)
}

// printFindings summarizes the interesting context entries.
func printFindings(ctx map[string]any) {
	if len(ctx) == 0 {
		return
	}
	fmt.Println("\nFindings:")
	if v, ok := ctx["launch_data"]; ok {
		fmt.Printf("  launch:    %s\n", compactJSON(v))
	}
	if v, ok := ctx["delay_assessment"]; ok {
		fmt.Printf("  delay:     %s\n", compactJSON(v))
	} else if v, ok := ctx["weather_conditions"]; ok {
		fmt.Printf("  weather:   %s\n", compactJSON(v))
	}
	if v, ok := ctx["news_sentiment"]; ok {
		fmt.Printf("  sentiment: %s\n", compactJSON(v))
	}
	if v, ok := ctx["market_data"]; ok {
		fmt.Printf("  market:    %s\n", compactJSON(v))
	}
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	const max = 120
	s := string(data)
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
