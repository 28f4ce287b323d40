package fetcher

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/store"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// identifierTag prefixes every artifact this fetcher writes.
const identifierTag = "gecko"

// Fetcher pulls market charts for a set of assets at every cadence and
// stages them as raw JSON artifacts. Each run stamps its artifacts with one
// generation timestamp, so a run is a consistent snapshot.
type Fetcher struct {
	client *Client
	store  store.ArtifactStore
	logger *logger.Logger
	delay  time.Duration
	clock  func() time.Time
}

// NewFetcher creates a fetcher. delay is the pause between assets, the only
// rate limiting applied.
func NewFetcher(client *Client, s store.ArtifactStore, log *logger.Logger, delay time.Duration) *Fetcher {
	return &Fetcher{
		client: client,
		store:  s,
		logger: log,
		delay:  delay,
		clock:  time.Now,
	}
}

// FetchFailure records one asset and cadence that could not be fetched.
type FetchFailure struct {
	Asset   string
	Cadence types.Cadence
	Err     error
}

// FetchAssets downloads the market chart of every asset at every cadence and
// persists each payload as a raw artifact. It returns the written identifiers
// and the per-asset failures; a failed asset is logged and skipped without
// halting the rest of the batch. A payload that does not decode as a market
// chart is rejected before anything is written for it. Only cancellation
// aborts the run.
func (f *Fetcher) FetchAssets(ctx context.Context, assets []string) ([]string, []FetchFailure, error) {
	generatedAt := f.clock().Unix()

	var (
		written  []string
		failures []FetchFailure
	)

	for i, asset := range assets {
		if i > 0 && f.delay > 0 {
			select {
			case <-ctx.Done():
				return written, failures, errors.Wrap(errors.ErrCodeFetchFailed, "fetch cancelled", ctx.Err())
			case <-time.After(f.delay):
			}
		}

		for _, cadence := range types.AllCadences {
			id, err := f.fetchChart(ctx, generatedAt, asset, cadence)
			if err != nil {
				if ctx.Err() != nil {
					return written, failures, errors.Wrap(errors.ErrCodeFetchFailed, "fetch cancelled", ctx.Err())
				}

				failures = append(failures, FetchFailure{Asset: asset, Cadence: cadence, Err: err})
				f.logger.Error("Asset fetch failed",
					zap.String("asset", asset),
					zap.String("cadence", string(cadence)),
					zap.Error(err),
				)

				continue
			}

			written = append(written, id)
		}
	}

	return written, failures, nil
}

func (f *Fetcher) fetchChart(ctx context.Context, generatedAt int64, asset string, cadence types.Cadence) (string, error) {
	body, err := f.client.MarketChart(ctx, asset, cadence.Days())
	if err != nil {
		return "", err
	}

	var chart types.MarketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return "", errors.Wrapf(errors.ErrCodeDecodeFailed, err, "market chart for %s is not valid JSON", asset)
	}

	if len(chart.Prices) == 0 {
		return "", errors.Newf(errors.ErrCodeDecodeFailed, "market chart for %s has no price points", asset)
	}

	id := types.ArtifactID{
		Tag:       identifierTag,
		Timestamp: generatedAt,
		Asset:     asset,
		Suffix:    cadence.Suffix(),
		Ext:       "json",
	}.String()

	if err := f.store.WriteRaw(store.CategoryRaw, id, body); err != nil {
		return "", err
	}

	f.logger.Info("Raw chart staged",
		zap.String("id", id),
		zap.String("asset", asset),
		zap.String("cadence", string(cadence)),
		zap.Int("points", len(chart.Prices)),
	)

	return id, nil
}
