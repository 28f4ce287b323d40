// Package pipeline orchestrates the staged flow raw → processed → engineered
// → forecast → analysis. Every stage is guarded by the stage gate, so
// re-running the pipeline only touches artifacts that have not been
// transformed yet.
package pipeline

import (
	"context"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/analysis"
	"github.com/rxtech-lab/argo-forecast/internal/fetcher"
	"github.com/rxtech-lab/argo-forecast/internal/forecast"
	"github.com/rxtech-lab/argo-forecast/internal/indicator"
	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/store"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// StageFailure records one artifact the stage could not transform.
type StageFailure struct {
	ID  string
	Err error
}

// StageResult summarizes one stage invocation. Failures are per-artifact and
// never halt the rest of the batch.
type StageResult struct {
	Stage     string
	Completed []string
	Skipped   int
	Failures  []StageFailure
}

// Failed reports whether any artifact failed.
func (r *StageResult) Failed() bool {
	return len(r.Failures) > 0
}

// Pipeline wires the stage collaborators over one artifact store.
type Pipeline struct {
	config    *Config
	store     store.ArtifactStore
	logger    *logger.Logger
	gate      *store.StageGate
	processor *Processor
	deriver   *indicator.Deriver
	reporter  *analysis.Reporter
	ownsStore bool
}

// NewPipeline opens the configured store and wires the stages.
func NewPipeline(config *Config, log *logger.Logger) (*Pipeline, error) {
	s, err := config.OpenStore(log)
	if err != nil {
		return nil, err
	}

	p := NewPipelineWithStore(config, s, log)
	p.ownsStore = true

	return p, nil
}

// NewPipelineWithStore wires the stages over an existing store. The caller
// keeps ownership of the store.
func NewPipelineWithStore(config *Config, s store.ArtifactStore, log *logger.Logger) *Pipeline {
	return &Pipeline{
		config:    config,
		store:     s,
		logger:    log,
		gate:      store.NewStageGate(s, log),
		processor: NewProcessor(s, log),
		deriver:   indicator.NewDeriver(log),
		reporter:  analysis.NewReporter(s, log),
	}
}

// Close releases the store if the pipeline opened it.
func (p *Pipeline) Close() error {
	if !p.ownsStore {
		return nil
	}

	return p.store.Close()
}

// Fetch downloads market charts for the configured assets and stages them as
// raw artifacts. Per-asset failures are carried in the result like in every
// other stage; only cancellation aborts the run.
func (p *Pipeline) Fetch(ctx context.Context) (*StageResult, error) {
	client := fetcher.NewClient(p.config.API.BaseURL, p.config.API.Key, p.logger)
	f := fetcher.NewFetcher(client, p.store, p.logger, p.config.FetchDelay())

	written, failures, err := f.FetchAssets(ctx, p.config.Assets)
	if err != nil {
		return nil, err
	}

	result := &StageResult{Stage: "fetch", Completed: written}
	for _, failure := range failures {
		result.Failures = append(result.Failures, StageFailure{
			ID:  failure.Asset + "/" + string(failure.Cadence),
			Err: failure.Err,
		})
	}

	return result, nil
}

// Process converts pending raw artifacts into processed tabular artifacts.
func (p *Pipeline) Process(ctx context.Context) (*StageResult, error) {
	pending, err := p.gate.Pending(store.CategoryRaw, store.CategoryProcessed, store.ExtensionKey("csv"))
	if err != nil {
		return nil, err
	}

	result := &StageResult{Stage: "process"}
	bar := stageBar(len(pending), "processing raw artifacts")

	for _, id := range pending {
		processedID, err := p.processor.Process(ctx, id)
		p.record(result, processedID, id, err)
		_ = bar.Add(1)
	}

	return result, nil
}

// Engineer derives indicator columns for pending processed artifacts.
func (p *Pipeline) Engineer(ctx context.Context) (*StageResult, error) {
	pending, err := p.gate.Pending(store.CategoryProcessed, store.CategoryEngineered, store.ExactKey)
	if err != nil {
		return nil, err
	}

	result := &StageResult{Stage: "engineer"}
	bar := stageBar(len(pending), "deriving indicators")

	for _, id := range pending {
		engineeredID, err := p.engineer(ctx, id)
		p.record(result, engineeredID, id, err)
		_ = bar.Add(1)
	}

	return result, nil
}

func (p *Pipeline) engineer(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(errors.ErrCodeStoreReadFailed, "engineering cancelled", err)
	}

	parsed, err := types.ParseArtifactID(id)
	if err != nil {
		return "", err
	}

	cadence, err := parsed.Cadence()
	if err != nil {
		return "", err
	}

	source, err := p.store.Read(store.CategoryProcessed, id)
	if err != nil {
		return "", err
	}

	engineered, err := p.deriver.Derive(cadence, source)
	if err != nil {
		return "", err
	}

	if err := p.store.Write(store.CategoryEngineered, id, engineered); err != nil {
		return "", err
	}

	return id, nil
}

// Forecast runs one fresh engine per configured asset and cadence. NoNewData
// counts as a skip, not a failure.
func (p *Pipeline) Forecast(ctx context.Context) (*StageResult, error) {
	result := &StageResult{Stage: "forecast"}

	for _, asset := range p.config.Assets {
		for _, cadence := range types.AllCadences {
			engine, err := forecast.NewEngine(p.store, p.logger, asset, cadence, p.config.HorizonSteps)
			if err != nil {
				return nil, err
			}

			id, err := engine.Run(ctx)
			if errors.IsNoNewData(err) {
				result.Skipped++
				p.logger.Info("No new data to forecast",
					zap.String("asset", asset),
					zap.String("cadence", string(cadence)),
				)

				continue
			}

			p.record(result, id, asset+"/"+string(cadence), err)
		}
	}

	return result, nil
}

// Analyze summarizes pending forecast artifacts.
func (p *Pipeline) Analyze(ctx context.Context) (*StageResult, error) {
	pending, err := p.gate.Pending(store.CategoryForecast, store.CategoryAnalysis, store.ExactKey)
	if err != nil {
		return nil, err
	}

	result := &StageResult{Stage: "analyze"}
	bar := stageBar(len(pending), "summarizing forecasts")

	for _, id := range pending {
		_, err := p.reporter.Report(ctx, id)
		p.record(result, id, id, err)
		_ = bar.Add(1)
	}

	return result, nil
}

// Run executes process → engineer → forecast → analyze. Per-artifact
// failures are carried in the stage results; only stage-level errors (a
// store that cannot list, invalid configuration) abort the run.
func (p *Pipeline) Run(ctx context.Context) ([]*StageResult, error) {
	stages := []func(context.Context) (*StageResult, error){
		p.Process,
		p.Engineer,
		p.Forecast,
		p.Analyze,
	}

	var results []*StageResult

	for _, stage := range stages {
		result, err := stage(ctx)
		if err != nil {
			return results, err
		}

		results = append(results, result)

		p.logger.Info("Stage finished",
			zap.String("stage", result.Stage),
			zap.Int("completed", len(result.Completed)),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", len(result.Failures)),
		)
	}

	return results, nil
}

// record books one per-artifact outcome into the stage result.
func (p *Pipeline) record(result *StageResult, completedID, failureID string, err error) {
	if err != nil {
		result.Failures = append(result.Failures, StageFailure{ID: failureID, Err: err})
		p.logger.Error("Stage artifact failed",
			zap.String("stage", result.Stage),
			zap.String("id", failureID),
			zap.Error(err),
		)

		return
	}

	result.Completed = append(result.Completed, completedID)
}

func stageBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.Default(int64(total), description)
}
