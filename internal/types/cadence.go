package types

import (
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Cadence represents the sampling frequency of a market chart series.
type Cadence string

const (
	// CadenceDaily is one observation per day, fetched as a 365-day chart.
	CadenceDaily Cadence = "daily"
	// CadenceHourly is one observation per hour, fetched as a 90-day chart.
	CadenceHourly Cadence = "hourly"
)

// AllCadences lists every supported cadence in processing order.
var AllCadences = []Cadence{CadenceDaily, CadenceHourly}

// Column names shared across pipeline stages. Downstream access is by column
// name, never by position; the indicator names are preserved verbatim from the
// original datasets for compatibility.
const (
	ColumnTimestamp = "timestamp"
	ColumnPrice     = "price"
	ColumnMarketCap = "market_cap"
	ColumnVolume    = "volume"

	ColumnSMA5   = "5_day_MA"
	ColumnSMA25  = "25_day_MA"
	ColumnSMA100 = "100_day_MA"
	ColumnEMA9   = "9_hr_EMA"
	ColumnEMA50  = "50_hr_EMA"
	ColumnRSI12  = "12_hr_RSI"
)

// Suffix returns the identifier suffix that encodes this cadence. Callers
// must compare the full suffix; substring matching would let the 90-day and
// 365-day charts collide.
func (c Cadence) Suffix() string {
	switch c {
	case CadenceDaily:
		return "market_chart_365days"
	case CadenceHourly:
		return "market_chart_90days"
	default:
		return ""
	}
}

// Days returns the chart range in days requested from the upstream API.
func (c Cadence) Days() int {
	switch c {
	case CadenceDaily:
		return 365
	case CadenceHourly:
		return 90
	default:
		return 0
	}
}

// CadenceFromSuffix resolves a cadence from an identifier suffix.
func CadenceFromSuffix(suffix string) (Cadence, error) {
	for _, c := range AllCadences {
		if c.Suffix() == suffix {
			return c, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidCadence, "no cadence matches suffix %q", suffix)
}

// ExogenousColumns returns the fixed exogenous regressor set for this cadence,
// in persistence order.
func (c Cadence) ExogenousColumns() []string {
	switch c {
	case CadenceDaily:
		return []string{ColumnMarketCap, ColumnVolume, ColumnSMA5, ColumnSMA25, ColumnSMA100}
	case CadenceHourly:
		return []string{ColumnMarketCap, ColumnVolume, ColumnEMA9, ColumnEMA50, ColumnRSI12}
	default:
		return nil
	}
}

// TrendColumns returns the regressors projected by linear extrapolation.
func (c Cadence) TrendColumns() []string {
	switch c {
	case CadenceDaily:
		return []string{ColumnMarketCap, ColumnVolume}
	case CadenceHourly:
		return []string{ColumnMarketCap, ColumnVolume, ColumnRSI12}
	default:
		return nil
	}
}

// MovingAverageColumns returns the moving-average regressors in increasing
// window order. These are projected with the mean-reverting pair coupling.
func (c Cadence) MovingAverageColumns() []string {
	switch c {
	case CadenceDaily:
		return []string{ColumnSMA5, ColumnSMA25, ColumnSMA100}
	case CadenceHourly:
		return []string{ColumnEMA9, ColumnEMA50}
	default:
		return nil
	}
}
