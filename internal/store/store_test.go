package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// StoreContractTestSuite exercises the ArtifactStore contract. It runs once
// per backing.
type StoreContractTestSuite struct {
	suite.Suite
	newStore func(t *testing.T) ArtifactStore
	store    ArtifactStore
}

func TestFileSystemStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractTestSuite{
		newStore: func(t *testing.T) ArtifactStore {
			s, err := NewFileSystemStore(t.TempDir(), logger.NewNopLogger())
			if err != nil {
				t.Fatalf("failed to create filesystem store: %v", err)
			}

			return s
		},
	})
}

func TestDuckDBStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractTestSuite{
		newStore: func(t *testing.T) ArtifactStore {
			s, err := NewDuckDBStore(":memory:", logger.NewNopLogger())
			if err != nil {
				t.Fatalf("failed to create DuckDB store: %v", err)
			}

			return s
		},
	})
}

func (suite *StoreContractTestSuite) SetupTest() {
	suite.store = suite.newStore(suite.T())
}

func (suite *StoreContractTestSuite) TearDownTest() {
	suite.NoError(suite.store.Close())
}

func (suite *StoreContractTestSuite) testArtifact() *types.Artifact {
	artifact, err := types.NewArtifact([]int64{1000, 2000, 3000})
	suite.Require().NoError(err)
	suite.Require().NoError(artifact.AddColumn(types.ColumnPrice, []float64{10, 11, 12}))
	suite.Require().NoError(artifact.AddColumn(types.ColumnMarketCap, []float64{100, 110, 120}))

	return artifact
}

func (suite *StoreContractTestSuite) TestWriteReadRoundTrip() {
	id := "gecko_100_bitcoin_market_chart_365days.csv"

	suite.NoError(suite.store.Write(CategoryProcessed, id, suite.testArtifact()))

	got, err := suite.store.Read(CategoryProcessed, id)
	suite.NoError(err)
	suite.Equal(3, got.Len())
	suite.Equal([]int64{1000, 2000, 3000}, got.Timestamps())
	suite.Equal([]string{types.ColumnPrice, types.ColumnMarketCap}, got.Columns())

	price, err := got.Column(types.ColumnPrice)
	suite.NoError(err)
	suite.Equal([]float64{10, 11, 12}, price)
}

func (suite *StoreContractTestSuite) TestReadNotFound() {
	_, err := suite.store.Read(CategoryProcessed, "gecko_1_bitcoin_market_chart_365days.csv")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeArtifactNotFound))
}

func (suite *StoreContractTestSuite) TestWriteNeverOverwrites() {
	id := "gecko_100_bitcoin_market_chart_365days.csv"

	suite.NoError(suite.store.Write(CategoryForecast, id, suite.testArtifact()))

	err := suite.store.Write(CategoryForecast, id, suite.testArtifact())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeArtifactExists))
}

func (suite *StoreContractTestSuite) TestWriteRejectsMalformedIdentifier() {
	err := suite.store.Write(CategoryProcessed, "gecko_nodigits_bitcoin_chart.csv", suite.testArtifact())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedIdentifier))
}

func (suite *StoreContractTestSuite) TestListOrdersByTimestamp() {
	ids := []string{
		"gecko_300_bitcoin_market_chart_365days.csv",
		"gecko_100_bitcoin_market_chart_365days.csv",
		"gecko_200_ethereum_market_chart_90days.csv",
	}

	for _, id := range ids {
		suite.NoError(suite.store.Write(CategoryEngineered, id, suite.testArtifact()))
	}

	listed, err := suite.store.List(CategoryEngineered)
	suite.NoError(err)
	suite.Equal([]string{
		"gecko_100_bitcoin_market_chart_365days.csv",
		"gecko_200_ethereum_market_chart_90days.csv",
		"gecko_300_bitcoin_market_chart_365days.csv",
	}, listed)
}

func (suite *StoreContractTestSuite) TestHas() {
	id := "gecko_100_bitcoin_market_chart_365days.csv"

	exists, err := suite.store.Has(CategoryRaw, id)
	suite.NoError(err)
	suite.False(exists)

	suite.NoError(suite.store.WriteRaw(CategoryRaw, "gecko_100_bitcoin_market_chart_365days.json", []byte(`{}`)))

	exists, err = suite.store.Has(CategoryRaw, "gecko_100_bitcoin_market_chart_365days.json")
	suite.NoError(err)
	suite.True(exists)
}

func (suite *StoreContractTestSuite) TestRawRoundTrip() {
	id := "gecko_100_bitcoin_market_chart_365days.json"
	payload := []byte(`{"prices":[[1000,10]]}`)

	suite.NoError(suite.store.WriteRaw(CategoryRaw, id, payload))

	got, err := suite.store.ReadRaw(CategoryRaw, id)
	suite.NoError(err)
	suite.Equal(payload, got)

	err = suite.store.WriteRaw(CategoryRaw, id, payload)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeArtifactExists))
}

func (suite *StoreContractTestSuite) TestLatestTimestamp() {
	latest, err := LatestTimestamp(suite.store, CategoryForecast, "bitcoin", "market_chart_365days")
	suite.NoError(err)
	suite.True(latest.IsNone())

	suite.NoError(suite.store.Write(CategoryForecast, "gecko_100_bitcoin_market_chart_365days.csv", suite.testArtifact()))
	suite.NoError(suite.store.Write(CategoryForecast, "gecko_300_bitcoin_market_chart_365days.csv", suite.testArtifact()))
	// Different asset and different suffix must not count.
	suite.NoError(suite.store.Write(CategoryForecast, "gecko_900_ethereum_market_chart_365days.csv", suite.testArtifact()))
	suite.NoError(suite.store.Write(CategoryForecast, "gecko_900_bitcoin_market_chart_90days.csv", suite.testArtifact()))

	latest, err = LatestTimestamp(suite.store, CategoryForecast, "bitcoin", "market_chart_365days")
	suite.NoError(err)
	suite.Equal(int64(300), latest.TakeOr(0))
}

func (suite *StoreContractTestSuite) TestUndefinedValuesSurvivePersistence() {
	artifact, err := types.NewArtifact([]int64{1000, 2000, 3000})
	suite.Require().NoError(err)
	suite.Require().NoError(artifact.AddColumn(types.ColumnPrice, []float64{10, 11, 12}))

	nan := math.NaN()
	suite.Require().NoError(artifact.AddColumn(types.ColumnSMA5, []float64{nan, nan, 11}))

	id := "gecko_100_bitcoin_market_chart_365days.csv"
	suite.NoError(suite.store.Write(CategoryEngineered, id, artifact))

	got, err := suite.store.Read(CategoryEngineered, id)
	suite.NoError(err)

	sma, err := got.Column(types.ColumnSMA5)
	suite.NoError(err)
	suite.True(math.IsNaN(sma[0]))
	suite.True(math.IsNaN(sma[1]))
	suite.Equal(11.0, sma[2])
}
