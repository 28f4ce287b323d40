package types

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// ArtifactID identifies a stored artifact. Rendered form:
//
//	<tag>_<generationTimestamp>_<asset>_<suffix>.<ext>
//
// The generation timestamp is decimal and integer-sortable; the suffix encodes
// the cadence and may itself contain underscores (e.g. market_chart_365days).
type ArtifactID struct {
	Tag       string
	Timestamp int64
	Asset     string
	Suffix    string
	Ext       string
}

// legacySortKey matches the first underscore-delimited digit run, the sort key
// the original datasets were ordered by.
var legacySortKey = regexp.MustCompile(`_(\d+)_`)

// ParseArtifactID parses an identifier string. The timestamp component must be
// a decimal integer; anything else fails with ErrCodeMalformedIdentifier.
func ParseArtifactID(name string) (ArtifactID, error) {
	base := name

	ext := ""
	if idx := strings.LastIndex(base, "."); idx >= 0 {
		ext = base[idx+1:]
		base = base[:idx]
	}

	parts := strings.SplitN(base, "_", 4)
	if len(parts) < 4 {
		return ArtifactID{}, errors.Newf(errors.ErrCodeMalformedIdentifier,
			"identifier %q does not match <tag>_<timestamp>_<asset>_<suffix>.<ext>", name)
	}

	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ArtifactID{}, errors.Wrapf(errors.ErrCodeMalformedIdentifier, err,
			"identifier %q has unparsable timestamp %q", name, parts[1])
	}

	return ArtifactID{
		Tag:       parts[0],
		Timestamp: ts,
		Asset:     parts[2],
		Suffix:    parts[3],
		Ext:       ext,
	}, nil
}

// String renders the identifier.
func (id ArtifactID) String() string {
	return fmt.Sprintf("%s_%d_%s_%s.%s", id.Tag, id.Timestamp, id.Asset, id.Suffix, id.Ext)
}

// WithExt returns a copy of the identifier with a different extension.
// Used by stages that transform an artifact without renaming it, e.g.
// raw JSON to processed CSV.
func (id ArtifactID) WithExt(ext string) ArtifactID {
	id.Ext = ext

	return id
}

// Cadence resolves the cadence encoded in the identifier suffix.
func (id ArtifactID) Cadence() (Cadence, error) {
	return CadenceFromSuffix(id.Suffix)
}

// SortTimestamp extracts the embedded generation timestamp for ordering.
// Identifiers without a parsable timestamp sort first as 0; the original
// datasets relied on this fallback, so it is preserved for listing even though
// writes of such identifiers are rejected.
func SortTimestamp(name string) int64 {
	match := legacySortKey.FindStringSubmatch(name)
	if match == nil {
		return 0
	}

	ts, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0
	}

	return ts
}

// SortIdentifiers orders identifiers by embedded timestamp ascending, breaking
// ties lexically. The input slice is sorted in place and returned.
func SortIdentifiers(names []string) []string {
	slices.SortFunc(names, func(a, b string) int {
		ta, tb := SortTimestamp(a), SortTimestamp(b)
		if ta != tb {
			if ta < tb {
				return -1
			}

			return 1
		}

		return strings.Compare(a, b)
	})

	return names
}
