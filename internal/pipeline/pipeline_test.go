package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/store"
	"github.com/rxtech-lab/argo-forecast/internal/types"
)

type PipelineTestSuite struct {
	suite.Suite
	store    store.ArtifactStore
	pipeline *Pipeline
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (suite *PipelineTestSuite) SetupTest() {
	s, err := store.NewFileSystemStore(suite.T().TempDir(), logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.store = s

	config := &Config{
		Storage:      StorageConfig{Backend: BackendFilesystem, Root: "unused"},
		Assets:       []string{"bitcoin"},
		HorizonSteps: 30,
	}

	suite.pipeline = NewPipelineWithStore(config, s, logger.NewNopLogger())
}

func (suite *PipelineTestSuite) TearDownTest() {
	suite.NoError(suite.pipeline.Close())
	suite.NoError(suite.store.Close())
}

// rawChartJSON renders a market-chart payload with n daily points of linear
// price and constant market cap and volume.
func rawChartJSON(n int) []byte {
	var prices, caps, volumes []string

	for i := 0; i < n; i++ {
		ts := int64(i+1) * 86400000
		prices = append(prices, fmt.Sprintf("[%d, %d]", ts, i+1))
		caps = append(caps, fmt.Sprintf("[%d, 5000000000]", ts))
		volumes = append(volumes, fmt.Sprintf("[%d, 20000000]", ts))
	}

	return []byte(fmt.Sprintf(`{"prices": [%s], "market_caps": [%s], "total_volumes": [%s]}`,
		strings.Join(prices, ","), strings.Join(caps, ","), strings.Join(volumes, ",")))
}

func (suite *PipelineTestSuite) seedRaw(id string, payload []byte) {
	suite.Require().NoError(suite.store.WriteRaw(store.CategoryRaw, id, payload))
}

func (suite *PipelineTestSuite) TestRunEndToEnd() {
	rawID := "gecko_1700000000_bitcoin_market_chart_365days.json"
	suite.seedRaw(rawID, rawChartJSON(400))

	results, err := suite.pipeline.Run(context.Background())
	suite.Require().NoError(err)
	suite.Require().Len(results, 4)

	process, engineer, forecastStage, analyze := results[0], results[1], results[2], results[3]

	csvID := "gecko_1700000000_bitcoin_market_chart_365days.csv"
	suite.Equal([]string{csvID}, process.Completed)
	suite.Equal([]string{csvID}, engineer.Completed)

	// The daily cadence forecasts; hourly has no artifacts and skips.
	suite.Equal([]string{csvID}, forecastStage.Completed)
	suite.Equal(1, forecastStage.Skipped)
	suite.Equal([]string{csvID}, analyze.Completed)

	// Engineering added exactly the three daily indicator columns.
	engineered, err := suite.store.Read(store.CategoryEngineered, csvID)
	suite.Require().NoError(err)
	suite.Equal([]string{
		types.ColumnPrice, types.ColumnMarketCap, types.ColumnVolume,
		types.ColumnSMA5, types.ColumnSMA25, types.ColumnSMA100,
	}, engineered.Columns())

	// The forecast artifact carries the full horizon.
	forecastArtifact, err := suite.store.Read(store.CategoryForecast, csvID)
	suite.Require().NoError(err)
	suite.Equal(30, forecastArtifact.Len())

	// The analysis summary exists alongside the merged table.
	parsed, err := types.ParseArtifactID(csvID)
	suite.Require().NoError(err)

	summary, err := suite.store.ReadRaw(store.CategoryAnalysis, parsed.WithExt("json").String())
	suite.Require().NoError(err)
	suite.Contains(string(summary), `"trend"`)
	suite.Contains(string(summary), `"recommendation"`)
}

func (suite *PipelineTestSuite) TestRunIsIdempotent() {
	suite.seedRaw("gecko_1700000000_bitcoin_market_chart_365days.json", rawChartJSON(400))

	_, err := suite.pipeline.Run(context.Background())
	suite.Require().NoError(err)

	results, err := suite.pipeline.Run(context.Background())
	suite.Require().NoError(err)

	for _, result := range results {
		suite.Empty(result.Completed, "stage %s should have nothing to do", result.Stage)
		suite.Empty(result.Failures, "stage %s should not fail", result.Stage)
	}

	// Both cadences report no new data on the second pass.
	suite.Equal(2, results[2].Skipped)
}

func (suite *PipelineTestSuite) TestRunIsolatesArtifactFailures() {
	suite.seedRaw("gecko_1700000000_bitcoin_market_chart_365days.json", rawChartJSON(400))
	suite.seedRaw("gecko_1700000001_dogecoin_market_chart_365days.json", []byte(`{"prices": "broken"}`))

	results, err := suite.pipeline.Run(context.Background())
	suite.Require().NoError(err)

	process := results[0]
	suite.Len(process.Completed, 1)
	suite.Require().Len(process.Failures, 1)
	suite.Equal("gecko_1700000001_dogecoin_market_chart_365days.json", process.Failures[0].ID)

	// The healthy artifact still flowed to the end.
	analyze := results[3]
	suite.Len(analyze.Completed, 1)
}

func (suite *PipelineTestSuite) TestProcessPendingOnly() {
	suite.seedRaw("gecko_1700000000_bitcoin_market_chart_365days.json", rawChartJSON(40))

	result, err := suite.pipeline.Process(context.Background())
	suite.Require().NoError(err)
	suite.Len(result.Completed, 1)

	// A second invocation finds the gate closed.
	result, err = suite.pipeline.Process(context.Background())
	suite.Require().NoError(err)
	suite.Empty(result.Completed)
	suite.Empty(result.Failures)
}
