package forecast

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// ModelConfig bounds the ARIMA order search.
type ModelConfig struct {
	MaxP int
	MaxD int
	MaxQ int
}

// DefaultModelConfig mirrors the stepwise defaults of the original search:
// autoregressive and moving-average orders up to 3, at most two differences.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		MaxP: 3,
		MaxD: 2,
		MaxQ: 3,
	}
}

// minObservations is the fewest differenced observations the estimator will
// accept. Below this the long autoregression underpinning Hannan-Rissanen
// has no room to fit.
const minObservations = 25

// stationarityThreshold is the lag-1 autocorrelation above which a series is
// differenced once more.
const stationarityThreshold = 0.95

// Model is a fitted ARIMA(p,d,q) regression with exogenous terms. The target
// is differenced d times, regressed on the equally differenced exogenous
// matrix, and the regression residuals carry an ARMA(p,q) process. A model is
// produced by FitModel and is immutable afterwards.
type Model struct {
	p, d, q int
	beta    []float64 // intercept followed by one coefficient per regressor
	phi     []float64
	theta   []float64
	aic     float64

	residuals   []float64 // regression residuals on the differenced scale
	innovations []float64 // model innovations aligned with residuals

	levelTails []float64   // last value of the target at each differencing level 0..d-1
	exogTails  [][]float64 // last row of the exogenous matrix at each differencing level
}

// Order returns the selected (p, d, q).
func (m *Model) Order() (p, d, q int) {
	return m.p, m.d, m.q
}

// AIC returns the information criterion of the selected order.
func (m *Model) AIC() float64 {
	return m.aic
}

// FitModel estimates an ARIMA model of target with exogenous regressors.
// exog has one row per observation of target and may be nil for a univariate
// fit. The differencing order d is chosen by repeated lag-1 autocorrelation
// checks; (p, q) are chosen by AIC over a grid after a Hannan-Rissanen
// two-stage estimate at each candidate order.
func FitModel(target []float64, exog [][]float64, cfg ModelConfig) (*Model, error) {
	if len(exog) > 0 && len(exog) != len(target) {
		return nil, errors.Newf(errors.ErrCodeModelFitFailed,
			"exogenous matrix has %d rows for %d observations", len(exog), len(target))
	}

	for _, value := range target {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, errors.New(errors.ErrCodeModelFitFailed, "target contains undefined values")
		}
	}

	y := append([]float64(nil), target...)
	x := copyMatrix(exog)

	model := &Model{}

	// Difference until the series looks stationary or MaxD is reached.
	// Exogenous rows are differenced in lockstep so the regression stays on
	// one scale.
	for model.d < cfg.MaxD && len(y) > 2 && math.Abs(lag1Autocorrelation(y)) > stationarityThreshold {
		model.levelTails = append(model.levelTails, y[len(y)-1])
		if len(x) > 0 {
			model.exogTails = append(model.exogTails, append([]float64(nil), x[len(x)-1]...))
		}

		y = difference(y)
		x = differenceMatrix(x)
		model.d++
	}

	n := len(y)
	if n < minObservations {
		return nil, errors.Newf(errors.ErrCodeModelFitFailed,
			"need at least %d observations after differencing, got %d", minObservations, n)
	}

	beta, residuals, err := regress(y, x)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeModelFitFailed, "exogenous regression failed", err)
	}

	model.beta = beta
	model.residuals = residuals

	if err := model.selectARMA(cfg); err != nil {
		return nil, err
	}

	model.innovations = model.computeInnovations(model.residuals)

	return model, nil
}

// Forecast produces steps future values of the target on its original scale.
// exogFuture must supply one row per step with the same regressor count the
// model was fitted with; pass nil for a univariate model.
func (m *Model) Forecast(steps int, exogFuture [][]float64) ([]float64, error) {
	if steps <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidHorizon, "forecast horizon must be positive, got %d", steps)
	}

	width := len(m.beta) - 1
	if width > 0 {
		if len(exogFuture) != steps {
			return nil, errors.Newf(errors.ErrCodePredictionFailed,
				"expected %d exogenous rows, got %d", steps, len(exogFuture))
		}

		for i, row := range exogFuture {
			if len(row) != width {
				return nil, errors.Newf(errors.ErrCodePredictionFailed,
					"exogenous row %d has %d values, expected %d", i, len(row), width)
			}
		}
	}

	exogD := copyMatrix(exogFuture)
	if width > 0 {
		for level := 0; level < m.d; level++ {
			exogD = differenceFuture(exogD, m.exogTails[level])
		}
	}

	residuals := append([]float64(nil), m.residuals...)
	innovations := append([]float64(nil), m.innovations...)

	forecastD := make([]float64, steps)

	for h := 0; h < steps; h++ {
		value := m.beta[0]
		if width > 0 {
			for j, coefficient := range m.beta[1:] {
				value += coefficient * exogD[h][j]
			}
		}

		var arma float64

		for i, coefficient := range m.phi {
			arma += coefficient * residuals[len(residuals)-1-i]
		}

		for j, coefficient := range m.theta {
			arma += coefficient * innovations[len(innovations)-1-j]
		}

		forecastD[h] = value + arma

		residuals = append(residuals, arma)
		innovations = append(innovations, 0)
	}

	// Undo the differencing, innermost level first.
	forecast := forecastD
	for level := m.d - 1; level >= 0; level-- {
		previous := m.levelTails[level]
		for h := range forecast {
			forecast[h] += previous
			previous = forecast[h]
		}
	}

	for _, value := range forecast {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, errors.New(errors.ErrCodePredictionFailed, "forecast diverged to an undefined value")
		}
	}

	return forecast, nil
}

// selectARMA runs the order grid over the regression residuals and keeps the
// candidate with the lowest AIC. The pure-noise candidate (0, 0) always
// participates, so selection cannot come up empty.
func (m *Model) selectARMA(cfg ModelConfig) error {
	e := m.residuals
	n := len(e)

	longOrder := n / 4
	if longOrder > 12 {
		longOrder = 12
	}

	if longOrder <= cfg.MaxP {
		longOrder = cfg.MaxP + 1
	}

	innovations, err := longARInnovations(e, longOrder)
	if err != nil {
		return errors.Wrap(errors.ErrCodeModelFitFailed, "long autoregression failed", err)
	}

	bestAIC := math.Inf(1)

	var bestPhi, bestTheta []float64
	bestP, bestQ := -1, -1

	for p := 0; p <= cfg.MaxP; p++ {
		for q := 0; q <= cfg.MaxQ; q++ {
			phi, theta, aic, ok := estimateARMA(e, innovations, longOrder, p, q)
			if !ok {
				continue
			}

			if aic < bestAIC {
				bestAIC = aic
				bestP, bestQ = p, q
				bestPhi, bestTheta = phi, theta
			}
		}
	}

	if bestP < 0 {
		return errors.New(errors.ErrCodeModelFitFailed, "no ARMA order could be estimated")
	}

	m.p, m.q = bestP, bestQ
	m.phi, m.theta = bestPhi, bestTheta
	m.aic = bestAIC

	return nil
}

// computeInnovations replays the selected ARMA recursion over the residual
// history so forecasting starts from model-consistent innovations. Positions
// before the lags are available are treated as zero.
func (m *Model) computeInnovations(residuals []float64) []float64 {
	innovations := make([]float64, len(residuals))

	for t := range residuals {
		predicted := 0.0

		for i, coefficient := range m.phi {
			if t-1-i >= 0 {
				predicted += coefficient * residuals[t-1-i]
			}
		}

		for j, coefficient := range m.theta {
			if t-1-j >= 0 {
				predicted += coefficient * innovations[t-1-j]
			}
		}

		innovations[t] = residuals[t] - predicted
	}

	return innovations
}

// estimateARMA fits ARMA(p,q) to e by regressing e_t on its own lags and on
// lagged first-stage innovations, and scores the fit with AIC. ok is false
// when the candidate has too few usable rows or a degenerate regression.
func estimateARMA(e, innovations []float64, longOrder, p, q int) (phi, theta []float64, aic float64, ok bool) {
	start := longOrder + q
	rows := len(e) - start

	if rows < 3*(p+q)+10 {
		return nil, nil, 0, false
	}

	if p == 0 && q == 0 {
		var rss float64
		for t := start; t < len(e); t++ {
			rss += e[t] * e[t]
		}

		return nil, nil, aicScore(rss, rows, 1), true
	}

	design := make([][]float64, rows)
	response := make([]float64, rows)

	for t := start; t < len(e); t++ {
		row := make([]float64, p+q)
		for i := 0; i < p; i++ {
			row[i] = e[t-1-i]
		}

		for j := 0; j < q; j++ {
			row[p+j] = innovations[t-1-j]
		}

		design[t-start] = row
		response[t-start] = e[t]
	}

	coefficients, residuals, err := leastSquares(design, response, false)
	if err != nil {
		return nil, nil, 0, false
	}

	var rss float64
	for _, r := range residuals {
		rss += r * r
	}

	phi = coefficients[:p]
	theta = coefficients[p : p+q]

	return phi, theta, aicScore(rss, rows, p+q+1), true
}

// longARInnovations fits a long AR(m) to e by least squares and returns the
// one-step prediction errors, zero where lags are unavailable.
func longARInnovations(e []float64, order int) ([]float64, error) {
	rows := len(e) - order
	if rows < order+1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"series of %d too short for AR(%d)", len(e), order)
	}

	design := make([][]float64, rows)
	response := make([]float64, rows)

	for t := order; t < len(e); t++ {
		row := make([]float64, order)
		for i := 0; i < order; i++ {
			row[i] = e[t-1-i]
		}

		design[t-order] = row
		response[t-order] = e[t]
	}

	coefficients, _, err := leastSquares(design, response, false)
	if err != nil {
		return nil, err
	}

	innovations := make([]float64, len(e))

	for t := order; t < len(e); t++ {
		predicted := 0.0
		for i, coefficient := range coefficients {
			predicted += coefficient * e[t-1-i]
		}

		innovations[t] = e[t] - predicted
	}

	return innovations, nil
}

// regress fits y = beta0 + X*beta by least squares and returns the
// coefficients and residuals. With no regressors beta is just the mean.
func regress(y []float64, x [][]float64) (beta, residuals []float64, err error) {
	if len(x) == 0 {
		var mean float64
		for _, value := range y {
			mean += value
		}

		mean /= float64(len(y))

		residuals = make([]float64, len(y))
		for i, value := range y {
			residuals[i] = value - mean
		}

		return []float64{mean}, residuals, nil
	}

	return leastSquares(x, y, true)
}

// leastSquares solves min ||X*b - y|| through a thin SVD, which tolerates the
// rank deficiency that differencing near-constant regressors produces. When
// intercept is set a leading column of ones is prepended.
func leastSquares(x [][]float64, y []float64, intercept bool) (beta, residuals []float64, err error) {
	rows := len(x)
	if rows == 0 || rows != len(y) {
		return nil, nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"design has %d rows for %d responses", rows, len(y))
	}

	width := len(x[0])
	columns := width
	if intercept {
		columns++
	}

	design := mat.NewDense(rows, columns, nil)

	for i, row := range x {
		offset := 0
		if intercept {
			design.Set(i, 0, 1)

			offset = 1
		}

		for j, value := range row {
			design.Set(i, offset+j, value)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(design, mat.SVDThin) {
		return nil, nil, errors.New(errors.ErrCodeModelFitFailed, "SVD factorization did not converge")
	}

	values := svd.Values(nil)
	tolerance := 1e-10 * float64(rows) * values[0]

	// Minimum-norm solution beta = V * diag(1/s) * U^T * y over the
	// significant singular values. Directions below the tolerance get zero
	// coefficients, which is what makes rank-deficient designs safe.
	var u, v mat.Dense

	svd.UTo(&u)
	svd.VTo(&v)

	beta = make([]float64, columns)

	for i, sigma := range values {
		if sigma <= tolerance {
			continue
		}

		var projection float64
		for r := 0; r < rows; r++ {
			projection += u.At(r, i) * y[r]
		}

		scale := projection / sigma
		for j := 0; j < columns; j++ {
			beta[j] += scale * v.At(j, i)
		}
	}

	residuals = make([]float64, rows)

	for i := range residuals {
		predicted := 0.0
		for j := 0; j < columns; j++ {
			predicted += beta[j] * design.At(i, j)
		}

		residuals[i] = y[i] - predicted
	}

	return beta, residuals, nil
}

// aicScore computes the small-sample corrected criterion
// n*ln(RSS/n) + 2k + 2k(k+1)/(n-k-1), with a floor on the variance so a
// perfect fit scores finitely instead of producing -Inf.
func aicScore(rss float64, n, parameters int) float64 {
	sigma2 := rss / float64(n)
	if sigma2 < 1e-300 {
		sigma2 = 1e-300
	}

	score := float64(n)*math.Log(sigma2) + 2*float64(parameters)

	if n-parameters-1 > 0 {
		score += 2 * float64(parameters) * float64(parameters+1) / float64(n-parameters-1)
	}

	return score
}

// lag1Autocorrelation returns the lag-1 autocorrelation, or 0 for a series
// with no variance.
func lag1Autocorrelation(series []float64) float64 {
	n := len(series)
	if n < 2 {
		return 0
	}

	var mean float64
	for _, value := range series {
		mean += value
	}

	mean /= float64(n)

	var numerator, denominator float64

	for i := 0; i < n; i++ {
		deviation := series[i] - mean
		denominator += deviation * deviation

		if i > 0 {
			numerator += deviation * (series[i-1] - mean)
		}
	}

	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}

func difference(series []float64) []float64 {
	out := make([]float64, len(series)-1)
	for i := range out {
		out[i] = series[i+1] - series[i]
	}

	return out
}

func differenceMatrix(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}

	out := make([][]float64, len(rows)-1)

	for i := range out {
		row := make([]float64, len(rows[i+1]))
		for j := range row {
			row[j] = rows[i+1][j] - rows[i][j]
		}

		out[i] = row
	}

	return out
}

// differenceFuture differences forecast-horizon rows against the last
// observed row at the same level, so the first future difference is anchored
// to history.
func differenceFuture(rows [][]float64, tail []float64) [][]float64 {
	out := make([][]float64, len(rows))
	previous := tail

	for i, row := range rows {
		diff := make([]float64, len(row))
		for j := range row {
			diff[j] = row[j] - previous[j]
		}

		out[i] = diff
		previous = row
	}

	return out
}

func copyMatrix(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}

	return out
}
