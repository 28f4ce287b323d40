// Package store provides timestamp-ordered artifact persistence for the
// pipeline stages. Two backings are available: a flat-file layout compatible
// with the original datasets, and a DuckDB database. Both maintain an explicit
// identifier index so that incremental state never depends on re-scanning the
// backing medium per query.
package store

import (
	"strings"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-forecast/internal/types"
)

// Category names one pipeline stage's output collection.
type Category string

const (
	CategoryRaw        Category = "raw"
	CategoryProcessed  Category = "processed"
	CategoryEngineered Category = "engineered"
	CategoryForecast   Category = "forecast"
	CategoryAnalysis   Category = "analysis"
)

// AllCategories lists every stage collection in pipeline order.
var AllCategories = []Category{
	CategoryRaw,
	CategoryProcessed,
	CategoryEngineered,
	CategoryForecast,
	CategoryAnalysis,
}

// ArtifactStore is the access contract every stage shares. Artifacts are
// write-once: Write and WriteRaw fail with ErrCodeArtifactExists rather than
// overwrite. Implementations must allow concurrent readers and at most one
// writer per identifier.
type ArtifactStore interface {
	// List returns the identifiers of a category ordered by embedded
	// generation timestamp ascending, ties broken lexically. Identifiers with
	// unparsable timestamps sort first as 0 (legacy compatibility).
	List(category Category) ([]string, error)

	// Has reports whether an identifier exists in a category.
	Has(category Category, id string) (bool, error)

	// Read loads a tabular artifact. Fails with ErrCodeArtifactNotFound if
	// the identifier is absent.
	Read(category Category, id string) (*types.Artifact, error)

	// Write persists a tabular artifact all-or-nothing. Fails with
	// ErrCodeMalformedIdentifier if the identifier's timestamp cannot be
	// parsed, and with ErrCodeArtifactExists if the identifier is taken.
	Write(category Category, id string, artifact *types.Artifact) error

	// ReadRaw loads an opaque artifact (raw JSON payloads, analysis
	// summaries).
	ReadRaw(category Category, id string) ([]byte, error)

	// WriteRaw persists an opaque artifact under the same identifier rules
	// as Write.
	WriteRaw(category Category, id string, data []byte) error

	// Close releases the backing resources.
	Close() error
}

// LatestTimestamp returns the newest generation timestamp among a category's
// identifiers matching the given asset and exact suffix, or None if there is
// no match.
func LatestTimestamp(s ArtifactStore, category Category, asset, suffix string) (optional.Option[int64], error) {
	ids, err := s.List(category)
	if err != nil {
		return optional.None[int64](), err
	}

	latest := optional.None[int64]()

	for _, id := range ids {
		parsed, err := types.ParseArtifactID(id)
		if err != nil {
			continue
		}

		if parsed.Asset != asset || parsed.Suffix != suffix {
			continue
		}

		if latest.IsNone() || parsed.Timestamp > latest.TakeOr(0) {
			latest = optional.Some(parsed.Timestamp)
		}
	}

	return latest, nil
}

// MatchSuffix filters identifiers by asset and exact cadence suffix. Exact
// comparison matters: a prefix match would let 90-day and 365-day charts
// collide.
func MatchSuffix(ids []string, asset, suffix string) []string {
	var matched []string

	for _, id := range ids {
		parsed, err := types.ParseArtifactID(id)
		if err != nil {
			continue
		}

		if parsed.Asset == asset && parsed.Suffix == suffix {
			matched = append(matched, id)
		}
	}

	return matched
}

// stripExt removes a trailing extension from an identifier.
func stripExt(id string) string {
	if idx := strings.LastIndex(id, "."); idx >= 0 {
		return id[:idx]
	}

	return id
}
