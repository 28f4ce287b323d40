package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

func TestMarketChartToArtifact(t *testing.T) {
	chart := MarketChart{
		Prices:       [][]float64{{1000, 10}, {2000, 11}, {3000, 12}},
		MarketCaps:   [][]float64{{1000, 100}, {2000, 110}, {3000, 120}},
		TotalVolumes: [][]float64{{1000, 5}, {2000, 6}, {3000, 7}},
	}

	artifact, err := chart.ToArtifact()
	assert.NoError(t, err)
	assert.Equal(t, 3, artifact.Len())
	assert.Equal(t, []string{ColumnPrice, ColumnMarketCap, ColumnVolume}, artifact.Columns())
	assert.Equal(t, []int64{1000, 2000, 3000}, artifact.Timestamps())

	price, err := artifact.Column(ColumnPrice)
	assert.NoError(t, err)
	assert.Equal(t, []float64{10, 11, 12}, price)
}

func TestMarketChartLengthMismatch(t *testing.T) {
	chart := MarketChart{
		Prices:       [][]float64{{1000, 10}, {2000, 11}},
		MarketCaps:   [][]float64{{1000, 100}},
		TotalVolumes: [][]float64{{1000, 5}, {2000, 6}},
	}

	_, err := chart.ToArtifact()
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedArtifact))
	assert.True(t, errors.IsLengthMismatchError(err))
}

func TestMarketChartMalformedPair(t *testing.T) {
	chart := MarketChart{
		Prices:       [][]float64{{1000, 10}, {2000}},
		MarketCaps:   [][]float64{{1000, 100}, {2000, 110}},
		TotalVolumes: [][]float64{{1000, 5}, {2000, 6}},
	}

	_, err := chart.ToArtifact()
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedArtifact))
}

func TestTrendRecommendation(t *testing.T) {
	assert.Equal(t, RecommendationBuy, TrendUp.Recommendation())
	assert.Equal(t, RecommendationSell, TrendDown.Recommendation())
	assert.Equal(t, RecommendationHold, TrendUnknown.Recommendation())
}
