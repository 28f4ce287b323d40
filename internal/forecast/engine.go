// Package forecast fits an ARIMA model with exogenous regressors to an
// engineered artifact and persists a fixed-horizon price forecast.
package forecast

import (
	"context"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/store"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Engine drives one forecasting run for one asset and cadence:
// load the newest unconsumed engineered artifact, fit, project the exogenous
// regressors over the horizon, predict, persist. An Engine is single-use;
// construct a fresh one per invocation so no model or artifact state leaks
// between runs.
type Engine struct {
	store   store.ArtifactStore
	logger  *logger.Logger
	asset   string
	cadence types.Cadence
	steps   int
	config  ModelConfig

	used bool
}

// NewEngine creates an engine for one run. steps is the forecast horizon in
// cadence units and must be at least 2; the single-step case is rejected
// because the exogenous trend projection is undefined there.
func NewEngine(s store.ArtifactStore, log *logger.Logger, asset string, cadence types.Cadence, steps int) (*Engine, error) {
	if steps < 2 {
		return nil, errors.Newf(errors.ErrCodeInvalidHorizon, "forecast horizon must be at least 2 steps, got %d", steps)
	}

	if cadence.Suffix() == "" {
		return nil, errors.Newf(errors.ErrCodeInvalidCadence, "unsupported cadence %q", cadence)
	}

	return &Engine{
		store:   s,
		logger:  log,
		asset:   asset,
		cadence: cadence,
		steps:   steps,
		config:  DefaultModelConfig(),
	}, nil
}

// Run executes the forecasting stages and returns the identifier of the
// persisted forecast artifact. A NoNewData error means every engineered
// artifact already has a forecast; callers treat it as a skip, not a failure.
func (e *Engine) Run(ctx context.Context) (string, error) {
	if e.used {
		return "", errors.New(errors.ErrCodeInvalidParameter, "engine has already run; construct a new one per invocation")
	}

	e.used = true

	sourceID, artifact, err := e.load(ctx)
	if err != nil {
		return "", err
	}

	fitted, err := artifact.DropUndefinedRows()
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeMalformedArtifact, err, "artifact %s has no fully defined rows", sourceID)
	}

	model, err := e.fit(fitted)
	if err != nil {
		return "", err
	}

	projection, err := ProjectExogenous(e.cadence, fitted, e.steps)
	if err != nil {
		return "", err
	}

	predicted, err := model.Forecast(e.steps, projection.Matrix())
	if err != nil {
		return "", err
	}

	return e.persist(sourceID, fitted, projection, predicted)
}

// load selects the most recent engineered artifact for the asset and cadence
// whose generation timestamp is strictly newer than the newest existing
// forecast, and reads it.
func (e *Engine) load(ctx context.Context) (string, *types.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "run cancelled", err)
	}

	ids, err := e.store.List(store.CategoryEngineered)
	if err != nil {
		return "", nil, err
	}

	candidates := store.MatchSuffix(ids, e.asset, e.cadence.Suffix())
	if len(candidates) == 0 {
		return "", nil, errors.Newf(errors.ErrCodeNoNewData,
			"no engineered artifacts for asset %q cadence %q", e.asset, e.cadence)
	}

	latest, err := store.LatestTimestamp(e.store, store.CategoryForecast, e.asset, e.cadence.Suffix())
	if err != nil {
		return "", nil, err
	}

	var sourceID string

	// Candidates are timestamp-ascending, so the last qualifying one wins.
	for _, id := range candidates {
		parsed, err := types.ParseArtifactID(id)
		if err != nil {
			continue
		}

		if latest.IsSome() && parsed.Timestamp <= latest.TakeOr(0) {
			continue
		}

		sourceID = id
	}

	if sourceID == "" {
		return "", nil, errors.Newf(errors.ErrCodeNoNewData,
			"every engineered artifact for asset %q cadence %q is already forecast", e.asset, e.cadence)
	}

	artifact, err := e.store.Read(store.CategoryEngineered, sourceID)
	if err != nil {
		return "", nil, err
	}

	e.logger.Info("Loaded engineered artifact",
		zap.String("id", sourceID),
		zap.String("asset", e.asset),
		zap.String("cadence", string(e.cadence)),
		zap.Int("rows", artifact.Len()),
	)

	return sourceID, artifact, nil
}

// fit estimates the model on the price series with the cadence's exogenous
// matrix.
func (e *Engine) fit(fitted *types.Artifact) (*Model, error) {
	price, err := fitted.Column(types.ColumnPrice)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedArtifact, "engineered artifact is missing the price column", err)
	}

	columns := e.cadence.ExogenousColumns()
	exog := make([][]float64, len(price))

	for i := range exog {
		exog[i] = make([]float64, len(columns))
	}

	for j, name := range columns {
		series, err := fitted.Column(name)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedArtifact, err, "engineered artifact is missing %q", name)
		}

		for i, value := range series {
			exog[i][j] = value
		}
	}

	model, err := FitModel(price, exog, e.config)
	if err != nil {
		return nil, err
	}

	p, d, q := model.Order()
	e.logger.Info("Model fitted",
		zap.String("asset", e.asset),
		zap.Int("p", p),
		zap.Int("d", d),
		zap.Int("q", q),
		zap.Float64("aic", model.AIC()),
	)

	return model, nil
}

// persist writes the forecast artifact: the predicted price alongside the
// complete exogenous projection, one row per horizon step, with timestamps
// extended past the fitted history at its mean sampling interval. The
// identifier reuses the source identifier so incremental selection can match
// forecasts to the engineered artifacts they consumed.
func (e *Engine) persist(sourceID string, fitted *types.Artifact, projection *Projection, predicted []float64) (string, error) {
	interval, err := fitted.MeanInterval()
	if err != nil {
		return "", err
	}

	observed := fitted.Timestamps()
	last := observed[len(observed)-1]

	timestamps := make([]int64, e.steps)
	for k := range timestamps {
		timestamps[k] = last + interval*int64(k+1)
	}

	out, err := types.NewArtifact(timestamps)
	if err != nil {
		return "", err
	}

	if err := out.AddColumn(types.ColumnPrice, predicted); err != nil {
		return "", err
	}

	for _, name := range projection.Columns {
		values, err := projection.Column(name)
		if err != nil {
			return "", err
		}

		if err := out.AddColumn(name, values); err != nil {
			return "", err
		}
	}

	if err := e.store.Write(store.CategoryForecast, sourceID, out); err != nil {
		return "", err
	}

	e.logger.Info("Forecast persisted",
		zap.String("id", sourceID),
		zap.Int("steps", e.steps),
	)

	return sourceID, nil
}
