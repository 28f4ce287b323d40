package pipeline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/store"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Processor turns a raw market-chart payload into a processed tabular
// artifact under the same identifier with a csv extension.
type Processor struct {
	store  store.ArtifactStore
	logger *logger.Logger
}

// NewProcessor creates a processor.
func NewProcessor(s store.ArtifactStore, log *logger.Logger) *Processor {
	return &Processor{
		store:  s,
		logger: log,
	}
}

// Process converts one raw artifact and returns the processed identifier.
func (p *Processor) Process(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(errors.ErrCodeStoreReadFailed, "processing cancelled", err)
	}

	parsed, err := types.ParseArtifactID(id)
	if err != nil {
		return "", err
	}

	data, err := p.store.ReadRaw(store.CategoryRaw, id)
	if err != nil {
		return "", err
	}

	var chart types.MarketChart
	if err := json.Unmarshal(data, &chart); err != nil {
		return "", errors.Wrapf(errors.ErrCodeMalformedArtifact, err, "raw artifact %s is not a market chart", id)
	}

	artifact, err := chart.ToArtifact()
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeMalformedArtifact, err, "raw artifact %s has inconsistent series", id)
	}

	processedID := parsed.WithExt("csv").String()
	if err := p.store.Write(store.CategoryProcessed, processedID, artifact); err != nil {
		return "", err
	}

	p.logger.Debug("Raw artifact processed",
		zap.String("raw", id),
		zap.String("processed", processedID),
		zap.Int("rows", artifact.Len()),
	)

	return processedID, nil
}
