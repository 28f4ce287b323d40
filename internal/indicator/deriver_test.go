package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
)

type DeriverTestSuite struct {
	suite.Suite
	deriver *Deriver
}

func TestDeriverSuite(t *testing.T) {
	suite.Run(t, new(DeriverTestSuite))
}

func (suite *DeriverTestSuite) SetupTest() {
	suite.deriver = NewDeriver(logger.NewNopLogger())
}

// processedArtifact builds a processed-stage artifact with n rows of linearly
// increasing price and constant market cap and volume.
func (suite *DeriverTestSuite) processedArtifact(n int) *types.Artifact {
	timestamps := make([]int64, n)
	price := make([]float64, n)
	caps := make([]float64, n)
	volumes := make([]float64, n)

	for i := 0; i < n; i++ {
		timestamps[i] = int64(i+1) * 1000
		price[i] = float64(i + 1)
		caps[i] = 1e9
		volumes[i] = 1e6
	}

	artifact, err := types.NewArtifact(timestamps)
	suite.Require().NoError(err)
	suite.Require().NoError(artifact.AddColumn(types.ColumnPrice, price))
	suite.Require().NoError(artifact.AddColumn(types.ColumnMarketCap, caps))
	suite.Require().NoError(artifact.AddColumn(types.ColumnVolume, volumes))

	return artifact
}

func (suite *DeriverTestSuite) TestDeriveDailyAddsExactlyThreeColumns() {
	source := suite.processedArtifact(400)

	engineered, err := suite.deriver.Derive(types.CadenceDaily, source)
	suite.NoError(err)
	suite.Equal(400, engineered.Len())
	suite.Equal([]string{
		types.ColumnPrice, types.ColumnMarketCap, types.ColumnVolume,
		types.ColumnSMA5, types.ColumnSMA25, types.ColumnSMA100,
	}, engineered.Columns())

	// Source is untouched.
	suite.Equal([]string{types.ColumnPrice, types.ColumnMarketCap, types.ColumnVolume}, source.Columns())

	// Past the 100-period warm-up every indicator is defined.
	sma100, err := engineered.Column(types.ColumnSMA100)
	suite.NoError(err)

	for i := 0; i < 99; i++ {
		suite.True(math.IsNaN(sma100[i]), "index %d should be NaN", i)
	}

	for i := 99; i < 400; i++ {
		suite.False(math.IsNaN(sma100[i]), "index %d should be defined", i)
	}

	// Linear price: SMA lags by (window-1)/2.
	suite.InDelta(float64(400)-99.0/2, sma100[399], 1e-9)
}

func (suite *DeriverTestSuite) TestDeriveHourlyAddsEMAAndRSI() {
	source := suite.processedArtifact(120)

	engineered, err := suite.deriver.Derive(types.CadenceHourly, source)
	suite.NoError(err)
	suite.Equal([]string{
		types.ColumnPrice, types.ColumnMarketCap, types.ColumnVolume,
		types.ColumnEMA9, types.ColumnEMA50, types.ColumnRSI12,
	}, engineered.Columns())

	ema9, err := engineered.Column(types.ColumnEMA9)
	suite.NoError(err)
	// EMA has no warm-up gap and is seeded from the first price.
	suite.Equal(1.0, ema9[0])
	suite.False(math.IsNaN(ema9[1]))

	rsi, err := engineered.Column(types.ColumnRSI12)
	suite.NoError(err)
	suite.True(math.IsNaN(rsi[11]))
	// Strictly increasing price saturates the RSI.
	suite.InDelta(100, rsi[12], 1e-12)
}

func (suite *DeriverTestSuite) TestDeriveRequiresPriceColumn() {
	artifact, err := types.NewArtifact([]int64{1000, 2000})
	suite.Require().NoError(err)
	suite.Require().NoError(artifact.AddColumn(types.ColumnVolume, []float64{1, 2}))

	_, err = suite.deriver.Derive(types.CadenceDaily, artifact)
	suite.Error(err)
}

func (suite *DeriverTestSuite) TestDeriveUnknownCadence() {
	source := suite.processedArtifact(10)

	_, err := suite.deriver.Derive(types.Cadence("weekly"), source)
	suite.Error(err)
}
