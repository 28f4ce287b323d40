// Package indicator computes technical indicator series over price columns.
// All functions operate index-aligned with their input: positions inside a
// rolling warm-up window are NaN, never silently dropped, so downstream
// stages can line columns up by timestamp.
package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// SMA computes the simple moving average with the given window.
// SMA[i] = mean(values[i-window+1 .. i]); positions i < window-1 are NaN.
func SMA(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "window must be a positive integer, got %d", window)
	}

	out := make([]float64, len(values))

	var sum float64

	for i := range values {
		sum += values[i]

		if i >= window {
			sum -= values[i-window]
		}

		if i < window-1 {
			out[i] = math.NaN()

			continue
		}

		out[i] = sum / float64(window)
	}

	return out, nil
}

// EMA computes the exponential moving average with the given span.
// Seeded from the first value with alpha = 2/(span+1); defined at every index.
func EMA(values []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "span must be a positive integer, got %d", span)
	}

	out := make([]float64, len(values))
	if len(values) == 0 {
		return out, nil
	}

	alpha := 2.0 / float64(span+1)
	out[0] = values[0]

	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}

	return out, nil
}

// RSI computes the relative strength index over the given period using simple
// moving averages of gains and losses. The first period positions are NaN.
// When the average loss is zero the index saturates to 100 instead of
// propagating a division fault; an all-loss window yields 0.
func RSI(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	out := make([]float64, len(values))

	var gainSum, lossSum float64

	for i := range values {
		if i < period {
			out[i] = math.NaN()
		}

		if i == 0 {
			continue
		}

		change := values[i] - values[i-1]

		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		gainSum += gain
		lossSum += loss

		if i > period {
			prev := values[i-period] - values[i-period-1]
			if prev > 0 {
				gainSum -= prev
			} else {
				lossSum -= -prev
			}
		}

		if i < period {
			continue
		}

		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)

		if avgLoss == 0 {
			out[i] = 100

			continue
		}

		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}

	return out, nil
}
