package types

import (
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// MarketChart is the upstream market-chart payload: parallel
// [timestamp, value] pairs for price, market capitalization and trading
// volume. Timestamps are integer milliseconds; all three sequences must have
// equal length.
type MarketChart struct {
	Prices       [][]float64 `json:"prices"`
	MarketCaps   [][]float64 `json:"market_caps"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

// ToArtifact converts the chart to a tabular artifact with columns
// [price, market_cap, volume]. Length disagreement between the three
// sequences is a malformed artifact; so is a pair that is not exactly
// [timestamp, value].
func (m MarketChart) ToArtifact() (*Artifact, error) {
	n := len(m.Prices)

	if len(m.MarketCaps) != n {
		return nil, errors.Wrap(errors.ErrCodeMalformedArtifact,
			"market chart series lengths disagree",
			errors.NewLengthMismatchErrorf(ColumnMarketCap, n, len(m.MarketCaps),
				"market_caps has %d pairs, prices has %d", len(m.MarketCaps), n))
	}

	if len(m.TotalVolumes) != n {
		return nil, errors.Wrap(errors.ErrCodeMalformedArtifact,
			"market chart series lengths disagree",
			errors.NewLengthMismatchErrorf(ColumnVolume, n, len(m.TotalVolumes),
				"total_volumes has %d pairs, prices has %d", len(m.TotalVolumes), n))
	}

	timestamps := make([]int64, n)
	prices := make([]float64, n)
	caps := make([]float64, n)
	volumes := make([]float64, n)

	for i := 0; i < n; i++ {
		if len(m.Prices[i]) != 2 || len(m.MarketCaps[i]) != 2 || len(m.TotalVolumes[i]) != 2 {
			return nil, errors.Newf(errors.ErrCodeMalformedArtifact,
				"market chart row %d is not a [timestamp, value] pair", i)
		}

		timestamps[i] = int64(m.Prices[i][0])
		prices[i] = m.Prices[i][1]
		caps[i] = m.MarketCaps[i][1]
		volumes[i] = m.TotalVolumes[i][1]
	}

	artifact, err := NewArtifact(timestamps)
	if err != nil {
		return nil, err
	}

	if err := artifact.AddColumn(ColumnPrice, prices); err != nil {
		return nil, err
	}

	if err := artifact.AddColumn(ColumnMarketCap, caps); err != nil {
		return nil, err
	}

	if err := artifact.AddColumn(ColumnVolume, volumes); err != nil {
		return nil, err
	}

	return artifact, nil
}
