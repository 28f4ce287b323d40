// Package analysis merges an engineered history with its forecast and
// distills the merged series into a trend summary.
package analysis

import (
	"context"
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/store"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Reporter merges an engineered artifact with the forecast derived from it
// and persists both the merged table and a structured summary under the
// analysis category.
type Reporter struct {
	store  store.ArtifactStore
	logger *logger.Logger
}

// NewReporter creates a reporter.
func NewReporter(s store.ArtifactStore, log *logger.Logger) *Reporter {
	return &Reporter{
		store:  s,
		logger: log,
	}
}

// Report analyzes one forecast identified by the shared engineered/forecast
// identifier. It persists the merged history+forecast table as CSV and the
// AnalysisResult as JSON, both under the analysis category, and never
// overwrites existing output.
func (r *Reporter) Report(ctx context.Context, id string) (*types.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "analysis cancelled", err)
	}

	parsed, err := types.ParseArtifactID(id)
	if err != nil {
		return nil, err
	}

	cadence, err := parsed.Cadence()
	if err != nil {
		return nil, err
	}

	history, err := r.store.Read(store.CategoryEngineered, id)
	if err != nil {
		return nil, err
	}

	forecast, err := r.store.Read(store.CategoryForecast, id)
	if err != nil {
		return nil, err
	}

	merged, err := Merge(history, forecast)
	if err != nil {
		return nil, err
	}

	result, err := Summarize(merged, cadence)
	if err != nil {
		return nil, err
	}

	summary, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnknown, "failed to encode analysis summary", err)
	}

	// The merged CSV is what marks the forecast as analyzed, so it is
	// published last. The summary goes first; one left behind by a failed
	// earlier invocation is kept as-is on retry.
	summaryID := parsed.WithExt("json").String()
	if err := r.store.WriteRaw(store.CategoryAnalysis, summaryID, summary); err != nil && !errors.HasCode(err, errors.ErrCodeArtifactExists) {
		return nil, err
	}

	if err := r.store.Write(store.CategoryAnalysis, id, merged); err != nil {
		return nil, err
	}

	r.logger.Info("Analysis persisted",
		zap.String("id", id),
		zap.String("trend", string(result.Trend)),
		zap.String("recommendation", string(result.Recommendation)),
	)

	return result, nil
}

// Merge concatenates the forecast rows after the history rows. The forecast
// must cover every history column and its timestamps must continue past the
// history, which holds for artifacts the engine produced from that history.
func Merge(history, forecast *types.Artifact) (*types.Artifact, error) {
	historyTS := history.Timestamps()
	forecastTS := forecast.Timestamps()

	timestamps := make([]int64, 0, len(historyTS)+len(forecastTS))
	timestamps = append(timestamps, historyTS...)
	timestamps = append(timestamps, forecastTS...)

	merged, err := types.NewArtifact(timestamps)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedArtifact, "forecast does not extend the history", err)
	}

	for _, name := range history.Columns() {
		head, err := history.Column(name)
		if err != nil {
			return nil, err
		}

		tail, err := forecast.Column(name)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedArtifact, err, "forecast is missing column %q", name)
		}

		values := make([]float64, 0, len(head)+len(tail))
		values = append(values, head...)
		values = append(values, tail...)

		if err := merged.AddColumn(name, values); err != nil {
			return nil, err
		}
	}

	return merged, nil
}

// Summarize derives the analysis summary from a merged series. The trend
// compares the final short and long moving averages of the cadence; support
// and resistance are the price extrema over the whole series, forecast
// included.
func Summarize(merged *types.Artifact, cadence types.Cadence) (*types.AnalysisResult, error) {
	price, err := merged.Column(types.ColumnPrice)
	if err != nil {
		return nil, err
	}

	support := math.Inf(1)
	resistance := math.Inf(-1)

	for _, value := range price {
		if math.IsNaN(value) {
			continue
		}

		support = math.Min(support, value)
		resistance = math.Max(resistance, value)
	}

	if math.IsInf(support, 1) {
		return nil, errors.New(errors.ErrCodeEmptyArtifact, "no defined price values to summarize")
	}

	trend, err := classifyTrend(merged, cadence)
	if err != nil {
		return nil, err
	}

	return &types.AnalysisResult{
		Trend:          trend,
		Support:        support,
		Resistance:     resistance,
		Recommendation: trend.Recommendation(),
	}, nil
}

// classifyTrend compares the last values of the cadence's shortest and next
// moving average. Decimal comparison avoids calling two prices equal when a
// float subtraction leaves residue and avoids ordering on that residue.
func classifyTrend(merged *types.Artifact, cadence types.Cadence) (types.Trend, error) {
	maColumns := cadence.MovingAverageColumns()
	if len(maColumns) < 2 {
		return types.TrendUnknown, nil
	}

	short, err := merged.Column(maColumns[0])
	if err != nil {
		return "", err
	}

	long, err := merged.Column(maColumns[1])
	if err != nil {
		return "", err
	}

	lastShort := short[len(short)-1]
	lastLong := long[len(long)-1]

	if math.IsNaN(lastShort) || math.IsNaN(lastLong) {
		return types.TrendUnknown, nil
	}

	shortD := decimal.NewFromFloat(lastShort)
	longD := decimal.NewFromFloat(lastLong)

	switch {
	case shortD.GreaterThan(longD):
		return types.TrendUp, nil
	case shortD.LessThan(longD):
		return types.TrendDown, nil
	default:
		return types.TrendUnknown, nil
	}
}
