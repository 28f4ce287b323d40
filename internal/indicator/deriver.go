package indicator

import (
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Fixed indicator windows per cadence. The column names these produce are part
// of the downstream access contract and must match types.Cadence.
const (
	dailySMAShort = 5
	dailySMAMid   = 25
	dailySMALong  = 100

	hourlyEMAShort = 9
	hourlyEMALong  = 50
	hourlyRSIP     = 12
)

// Deriver adds the cadence-specific indicator columns to a processed
// artifact, producing the engineered artifact.
type Deriver struct {
	logger *logger.Logger
}

// NewDeriver creates a deriver.
func NewDeriver(logger *logger.Logger) *Deriver {
	return &Deriver{
		logger: logger,
	}
}

// Derive returns a new artifact with the source columns plus the indicator
// set of the given cadence. The source artifact is not modified.
func (d *Deriver) Derive(cadence types.Cadence, source *types.Artifact) (*types.Artifact, error) {
	price, err := source.Column(types.ColumnPrice)
	if err != nil {
		return nil, err
	}

	out, err := types.NewArtifact(source.Timestamps())
	if err != nil {
		return nil, err
	}

	for _, name := range source.Columns() {
		values, err := source.Column(name)
		if err != nil {
			return nil, err
		}

		if err := out.AddColumn(name, values); err != nil {
			return nil, err
		}
	}

	switch cadence {
	case types.CadenceDaily:
		err = d.deriveDaily(out, price)
	case types.CadenceHourly:
		err = d.deriveHourly(out, price)
	default:
		err = errors.Newf(errors.ErrCodeInvalidCadence, "unsupported cadence %q", cadence)
	}

	if err != nil {
		return nil, err
	}

	d.logger.Debug("Indicators derived",
		zap.String("cadence", string(cadence)),
		zap.Int("rows", out.Len()),
		zap.Strings("columns", out.Columns()),
	)

	return out, nil
}

// deriveDaily adds the 5-, 25- and 100-day simple moving averages.
func (d *Deriver) deriveDaily(out *types.Artifact, price []float64) error {
	windows := []struct {
		name   string
		window int
	}{
		{types.ColumnSMA5, dailySMAShort},
		{types.ColumnSMA25, dailySMAMid},
		{types.ColumnSMA100, dailySMALong},
	}

	for _, w := range windows {
		values, err := SMA(price, w.window)
		if err != nil {
			return err
		}

		if err := out.AddColumn(w.name, values); err != nil {
			return err
		}
	}

	return nil
}

// deriveHourly adds the 9- and 50-hour exponential moving averages and the
// 12-hour relative strength index.
func (d *Deriver) deriveHourly(out *types.Artifact, price []float64) error {
	spans := []struct {
		name string
		span int
	}{
		{types.ColumnEMA9, hourlyEMAShort},
		{types.ColumnEMA50, hourlyEMALong},
	}

	for _, s := range spans {
		values, err := EMA(price, s.span)
		if err != nil {
			return err
		}

		if err := out.AddColumn(s.name, values); err != nil {
			return err
		}
	}

	rsi, err := RSI(price, hourlyRSIP)
	if err != nil {
		return err
	}

	return out.AddColumn(types.ColumnRSI12, rsi)
}
