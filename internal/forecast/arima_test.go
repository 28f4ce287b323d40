package forecast

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

func TestFitLinearTrend(t *testing.T) {
	// A deterministic trend should be captured by one difference and
	// extrapolated exactly.
	series := make([]float64, 100)
	for i := range series {
		series[i] = float64(i + 1)
	}

	model, err := FitModel(series, nil, DefaultModelConfig())
	require.NoError(t, err)

	_, d, _ := model.Order()
	assert.Equal(t, 1, d)

	forecast, err := model.Forecast(5, nil)
	require.NoError(t, err)
	require.Len(t, forecast, 5)

	for k, value := range forecast {
		assert.InDelta(t, 100+float64(k+1), value, 1e-6, "step %d", k)
	}
}

func TestFitWithExogenousTrend(t *testing.T) {
	// Target is an exact affine function of the regressor, so forecasts must
	// track the supplied future regressor values.
	n := 100
	series := make([]float64, n)
	exog := make([][]float64, n)

	for i := range series {
		x := float64(i + 1)
		series[i] = 3 + 2*x
		exog[i] = []float64{x}
	}

	model, err := FitModel(series, exog, DefaultModelConfig())
	require.NoError(t, err)

	future := make([][]float64, 4)
	for k := range future {
		future[k] = []float64{float64(n + k + 1)}
	}

	forecast, err := model.Forecast(4, future)
	require.NoError(t, err)

	for k, value := range forecast {
		assert.InDelta(t, 3+2*float64(n+k+1), value, 1e-6, "step %d", k)
	}
}

func TestFitAutoregressiveSeries(t *testing.T) {
	// AR(1) with coefficient 0.7 and seeded noise: the one-step forecast
	// should approximate the conditional mean 0.7 * last.
	rng := rand.New(rand.NewSource(42))

	series := make([]float64, 400)
	for i := 1; i < len(series); i++ {
		series[i] = 0.7*series[i-1] + rng.NormFloat64()
	}

	model, err := FitModel(series, nil, DefaultModelConfig())
	require.NoError(t, err)

	_, d, _ := model.Order()
	assert.Equal(t, 0, d)
	assert.False(t, math.IsInf(model.AIC(), 0))

	forecast, err := model.Forecast(3, nil)
	require.NoError(t, err)

	last := series[len(series)-1]
	assert.InDelta(t, 0.7*last, forecast[0], 1.0)

	for _, value := range forecast {
		assert.False(t, math.IsNaN(value))
		assert.False(t, math.IsInf(value, 0))
	}
}

func TestFitRejectsShortSeries(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}

	_, err := FitModel(series, nil, DefaultModelConfig())
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelFitFailed))
}

func TestFitRejectsUndefinedTarget(t *testing.T) {
	series := make([]float64, 50)
	series[10] = math.NaN()

	_, err := FitModel(series, nil, DefaultModelConfig())
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelFitFailed))
}

func TestFitRejectsMismatchedExogenous(t *testing.T) {
	series := make([]float64, 50)
	exog := make([][]float64, 10)

	_, err := FitModel(series, exog, DefaultModelConfig())
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelFitFailed))
}

func TestForecastValidatesExogenousShape(t *testing.T) {
	n := 100
	series := make([]float64, n)
	exog := make([][]float64, n)

	for i := range series {
		series[i] = float64(i)
		exog[i] = []float64{float64(i), float64(2 * i)}
	}

	model, err := FitModel(series, exog, DefaultModelConfig())
	require.NoError(t, err)

	_, err = model.Forecast(3, [][]float64{{1, 2}})
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePredictionFailed))

	_, err = model.Forecast(2, [][]float64{{1}, {2}})
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePredictionFailed))
}

func TestForecastConstantSeries(t *testing.T) {
	series := make([]float64, 60)
	for i := range series {
		series[i] = 250
	}

	model, err := FitModel(series, nil, DefaultModelConfig())
	require.NoError(t, err)

	forecast, err := model.Forecast(5, nil)
	require.NoError(t, err)

	for _, value := range forecast {
		assert.InDelta(t, 250, value, 1e-6)
	}
}
