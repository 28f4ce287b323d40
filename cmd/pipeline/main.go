package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/pipeline"
)

// withPipeline loads the configuration, opens the store, and hands a wired
// pipeline to the action, closing everything afterwards.
func withPipeline(cmd *cli.Command, action func(p *pipeline.Pipeline, log *logger.Logger) error) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	config, err := pipeline.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(config, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = p.Close()
	}()

	return action(p, log)
}

// reportStage prints one stage's outcome and returns an error when any
// artifact failed, so the process exit code reflects partial failures.
func reportStage(result *pipeline.StageResult) error {
	fmt.Printf("%s: %d completed, %d skipped, %d failed\n",
		result.Stage, len(result.Completed), result.Skipped, len(result.Failures))

	for _, failure := range result.Failures {
		fmt.Printf("  %s: %v\n", failure.ID, failure.Err)
	}

	if result.Failed() {
		return fmt.Errorf("stage %s had %d failing artifacts", result.Stage, len(result.Failures))
	}

	return nil
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	return withPipeline(cmd, func(p *pipeline.Pipeline, _ *logger.Logger) error {
		result, err := p.Fetch(ctx)
		if err != nil {
			return err
		}

		return reportStage(result)
	})
}

func stageAction(run func(p *pipeline.Pipeline, ctx context.Context) (*pipeline.StageResult, error)) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return withPipeline(cmd, func(p *pipeline.Pipeline, _ *logger.Logger) error {
			result, err := run(p, ctx)
			if err != nil {
				return err
			}

			return reportStage(result)
		})
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	return withPipeline(cmd, func(p *pipeline.Pipeline, _ *logger.Logger) error {
		results, err := p.Run(ctx)
		if err != nil {
			return err
		}

		var failed error

		for _, result := range results {
			if err := reportStage(result); err != nil {
				failed = err
			}
		}

		return failed
	})
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	config := &pipeline.Config{}

	schema, err := config.GenerateSchema()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))

	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the pipeline YAML configuration",
		Value:   "config.yaml",
	}

	cmd := &cli.Command{
		Name:  "pipeline",
		Usage: "Incremental market forecasting pipeline",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "fetch",
				Usage:  "Download market charts for the configured assets",
				Action: fetchAction,
			},
			{
				Name:  "process",
				Usage: "Convert raw payloads into tabular artifacts",
				Action: stageAction(func(p *pipeline.Pipeline, ctx context.Context) (*pipeline.StageResult, error) {
					return p.Process(ctx)
				}),
			},
			{
				Name:  "engineer",
				Usage: "Derive indicator columns for processed artifacts",
				Action: stageAction(func(p *pipeline.Pipeline, ctx context.Context) (*pipeline.StageResult, error) {
					return p.Engineer(ctx)
				}),
			},
			{
				Name:  "forecast",
				Usage: "Fit and forecast every configured asset and cadence",
				Action: stageAction(func(p *pipeline.Pipeline, ctx context.Context) (*pipeline.StageResult, error) {
					return p.Forecast(ctx)
				}),
			},
			{
				Name:  "analyze",
				Usage: "Summarize forecasts into trend reports",
				Action: stageAction(func(p *pipeline.Pipeline, ctx context.Context) (*pipeline.StageResult, error) {
					return p.Analyze(ctx)
				}),
			},
			{
				Name:   "run",
				Usage:  "Run process, engineer, forecast, and analyze in order",
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the configuration file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
