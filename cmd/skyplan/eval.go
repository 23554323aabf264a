package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skyplan-dev/skyplan/internal/config"
	"github.com/skyplan-dev/skyplan/internal/controller"
	"github.com/skyplan-dev/skyplan/internal/eval"
	"github.com/skyplan-dev/skyplan/internal/orchestrator"
	"github.com/skyplan-dev/skyplan/internal/planner"
	"github.com/skyplan-dev/skyplan/internal/registry"
)

var (
	evalNoModel bool
	evalDebug   bool
)

var evalCmd = &cobra.Command{
	Use:   "eval <suite.yaml>",
	Short: "Run a scenario suite against the engine",
	Long: `Run a YAML suite of goal scenarios and score each run against
its expectations.

A suite file looks like:

  name: smoke
  scenarios:
    - name: launch lookup
      goal: when is the next SpaceX launch?
      expect_capabilities: [launch]
      expect_achievement: achieved
    - name: delay check
      goal: will weather delay the launch?
      expect_capabilities: [launch, weather]

The command exits non-zero when any scenario fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().BoolVar(&evalNoModel, "no-model", false, "Use keyword goal analysis even when an API key is set")
	evalCmd.Flags().BoolVar(&evalDebug, "debug", false, "Write execution debug logs to .skyplan/logs")
}

func runEval(cmd *cobra.Command, args []string) error {
	suite, err := eval.LoadSuite(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg, err := registry.Builtin(registry.BuiltinConfig{
		WeatherAPIKey: cfg.Providers.WeatherAPIKey,
		NewsAPIKey:    cfg.Providers.NewsAPIKey,
	})
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	var analyzer planner.Analyzer
	if cfg.Engine.UseModel && !evalNoModel && cfg.Anthropic.APIKey != "" {
		analyzer = planner.NewModelAnalyzer(cfg.Anthropic.APIKey)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	logger := orchestrator.NopLogger()
	if evalDebug {
		logger = orchestrator.NewDebugLoggerForDir(".")
		defer logger.Close()
	}

	ctl := controller.New(reg, controller.Config{
		MaxIterations:  cfg.Engine.MaxIterations,
		MaxConcurrency: cfg.Engine.MaxConcurrency,
		StepTimeout:    cfg.Engine.StepTimeout,
		Analyzer:       analyzer,
		Logger:         logger,
	})

	runner := eval.NewRunner(ctl)
	if suite.Name != "" {
		fmt.Printf("suite: %s (%d scenarios)\n\n", suite.Name, len(suite.Scenarios))
	}
	results, err := runner.Run(ctx, suite)
	if err != nil {
		return err
	}

	if cfg.History.Enabled {
		for _, result := range results {
			if result.Report == nil {
				continue
			}
			if err := saveReport(cfg, result.Report); err != nil {
				fmt.Fprintf(os.Stderr, "%s saving run history: %v\n", color.YellowString("warning:"), err)
				break
			}
		}
	}

	for _, result := range results {
		if result.Passed() {
			fmt.Printf("%s %s\n", color.GreenString("PASS"), result.Scenario.Name)
			continue
		}
		fmt.Printf("%s %s\n", color.RedString("FAIL"), result.Scenario.Name)
		if result.Err != nil {
			fmt.Printf("     error: %v\n", result.Err)
		}
		for _, failure := range result.Failures {
			fmt.Printf("     %s\n", failure)
		}
	}

	passed, failed := eval.Summary(results)
	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return fmt.Errorf("%d scenarios failed", failed)
	}
	return nil
}
