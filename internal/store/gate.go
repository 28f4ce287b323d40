package store

import (
	"strings"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
)

// KeyFunc maps an upstream identifier to the downstream identifier that marks
// it as already transformed.
type KeyFunc func(upstreamID string) string

// ExactKey is the identity policy: the downstream artifact keeps the upstream
// identifier unchanged.
func ExactKey(upstreamID string) string {
	return upstreamID
}

// ExtensionKey substitutes the identifier extension, e.g. the raw-to-processed
// stage writes gecko_<ts>_<asset>_chart.json as gecko_<ts>_<asset>_chart.csv.
func ExtensionKey(ext string) KeyFunc {
	return func(upstreamID string) string {
		return stripExt(upstreamID) + "." + strings.TrimPrefix(ext, ".")
	}
}

// StageGate decides which upstream artifacts still lack a downstream
// counterpart. It is the pipeline's idempotence guard: a stage transforms each
// upstream artifact at most once, no matter how often it is re-triggered.
type StageGate struct {
	store  ArtifactStore
	logger *logger.Logger
}

// NewStageGate creates a gate over the given store.
func NewStageGate(store ArtifactStore, logger *logger.Logger) *StageGate {
	return &StageGate{
		store:  store,
		logger: logger,
	}
}

// Pending returns the upstream identifiers whose keyFn image does not exist
// downstream, in upstream listing order.
func (g *StageGate) Pending(upstream, downstream Category, keyFn KeyFunc) ([]string, error) {
	upstreamIDs, err := g.store.List(upstream)
	if err != nil {
		return nil, err
	}

	downstreamIDs, err := g.store.List(downstream)
	if err != nil {
		return nil, err
	}

	done := make(map[string]struct{}, len(downstreamIDs))
	for _, id := range downstreamIDs {
		done[id] = struct{}{}
	}

	var pending []string

	for _, id := range upstreamIDs {
		if _, ok := done[keyFn(id)]; ok {
			continue
		}

		pending = append(pending, id)
	}

	g.logger.Debug("Stage gate evaluated",
		zap.String("upstream", string(upstream)),
		zap.String("downstream", string(downstream)),
		zap.Int("upstream_total", len(upstreamIDs)),
		zap.Int("pending", len(pending)),
	)

	return pending, nil
}
