package forecast

import (
	"math"

	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Projection is the synthesized future exogenous matrix: one value per
// horizon step per regressor, in the cadence's fixed column order.
type Projection struct {
	Columns []string
	Steps   int
	values  map[string][]float64
}

// Column returns the projected series for a regressor.
func (p *Projection) Column(name string) ([]float64, error) {
	values, ok := p.values[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeColumnNotFound, "no projection for column %q", name)
	}

	out := make([]float64, len(values))
	copy(out, values)

	return out, nil
}

// Matrix returns the projection as rows of regressor values in column order.
func (p *Projection) Matrix() [][]float64 {
	rows := make([][]float64, p.Steps)

	for i := range rows {
		row := make([]float64, len(p.Columns))
		for j, name := range p.Columns {
			row[j] = p.values[name][i]
		}

		rows[i] = row
	}

	return rows
}

// ProjectExogenous synthesizes steps future values for every exogenous
// regressor of the cadence, using only observed history.
//
// Regressors are projected by role: trend regressors (market cap, volume,
// and the hourly RSI) extrapolate linearly from the most recent lookback;
// moving-average regressors are advanced in coupled pairs that model momentum
// persistence with decaying influence. Both treatments are heuristics, not
// estimates of ground truth.
//
// steps must be at least 2: the trend slope denominator is steps-1, and the
// original system leaves the single-step case undefined.
func ProjectExogenous(cadence types.Cadence, observed *types.Artifact, steps int) (*Projection, error) {
	if steps < 2 {
		return nil, errors.Newf(errors.ErrCodeInvalidHorizon, "horizon must be at least 2 steps, got %d", steps)
	}

	projection := &Projection{
		Columns: cadence.ExogenousColumns(),
		Steps:   steps,
		values:  make(map[string][]float64),
	}

	for _, name := range cadence.TrendColumns() {
		series, err := observed.Column(name)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProjectionFailed, err, "missing trend regressor %q", name)
		}

		projected, err := projectTrend(series, steps)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProjectionFailed, err, "failed to project %q", name)
		}

		projection.values[name] = projected
	}

	maColumns := cadence.MovingAverageColumns()

	// Moving averages couple in disjoint consecutive pairs by increasing
	// window. An unpaired trailing column falls back to trend treatment.
	for i := 0; i+1 < len(maColumns); i += 2 {
		shortSeries, err := observed.Column(maColumns[i])
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProjectionFailed, err, "missing regressor %q", maColumns[i])
		}

		longSeries, err := observed.Column(maColumns[i+1])
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProjectionFailed, err, "missing regressor %q", maColumns[i+1])
		}

		if len(shortSeries) == 0 || len(longSeries) == 0 {
			return nil, errors.Newf(errors.ErrCodeProjectionFailed, "empty moving-average series for pair (%s, %s)",
				maColumns[i], maColumns[i+1])
		}

		short, long := projectPair(shortSeries[len(shortSeries)-1], longSeries[len(longSeries)-1], steps)
		projection.values[maColumns[i]] = short
		projection.values[maColumns[i+1]] = long
	}

	if len(maColumns)%2 == 1 {
		trailing := maColumns[len(maColumns)-1]

		series, err := observed.Column(trailing)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProjectionFailed, err, "missing regressor %q", trailing)
		}

		projected, err := projectTrend(series, steps)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProjectionFailed, err, "failed to project %q", trailing)
		}

		projection.values[trailing] = projected
	}

	return projection, nil
}

// projectTrend extrapolates a series linearly. The lookback is the most
// recent steps observations; the slope divides by steps-1 regardless of how
// many observations the lookback actually found, matching the original
// system. Step 0 repeats the last observation.
func projectTrend(series []float64, steps int) ([]float64, error) {
	if len(series) < 2 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"trend projection requires at least 2 observations, got %d", len(series))
	}

	lookback := series
	if len(series) > steps {
		lookback = series[len(series)-steps:]
	}

	first := lookback[0]
	last := lookback[len(lookback)-1]
	slope := (last - first) / float64(steps-1)

	out := make([]float64, steps)
	for k := range out {
		out[k] = last + slope*float64(k)
	}

	return out, nil
}

// projectPair advances a (short, long) moving-average pair. Each step the
// short average drifts in the momentum direction by 10% of the current gap,
// while the long average moves by 5% of its displacement from its own step-0
// anchor, which pins it to the starting value. Heuristic momentum
// persistence, not an estimate of ground truth.
func projectPair(short0, long0 float64, steps int) (short, long []float64) {
	short = make([]float64, steps)
	long = make([]float64, steps)

	short[0] = short0
	long[0] = long0

	for k := 1; k < steps; k++ {
		direction := -1.0
		if short[k-1] > long[k-1] {
			direction = 1.0
		}

		short[k] = short[k-1] + direction*math.Abs(long[k-1]-short[k-1])*0.1
		long[k] = long[k-1] + direction*math.Abs(long[k-1]-long[0])*0.05
	}

	return short, long
}
