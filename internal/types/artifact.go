package types

import (
	"math"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Artifact is a single versioned tabular dataset produced by one pipeline
// stage: an int64 millisecond timestamp column plus named float64 columns of
// equal length. Artifacts are immutable once written to a store; a stage re-run
// produces a new artifact under a new generation timestamp.
//
// Indicator columns carry NaN for their warm-up prefix. NaN is the only
// representation of an undefined value.
type Artifact struct {
	timestamps []int64
	order      []string
	columns    map[string][]float64
}

// NewArtifact creates an artifact over the given timestamp column.
// Timestamps must be strictly increasing.
func NewArtifact(timestamps []int64) (*Artifact, error) {
	if len(timestamps) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyArtifact, "artifact requires at least one timestamp")
	}

	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] <= timestamps[i-1] {
			return nil, errors.Newf(errors.ErrCodeMalformedArtifact,
				"timestamps must be strictly increasing: ts[%d]=%d, ts[%d]=%d",
				i-1, timestamps[i-1], i, timestamps[i])
		}
	}

	ts := make([]int64, len(timestamps))
	copy(ts, timestamps)

	return &Artifact{
		timestamps: ts,
		columns:    make(map[string][]float64),
	}, nil
}

// Len returns the number of rows.
func (a *Artifact) Len() int {
	return len(a.timestamps)
}

// Timestamps returns a copy of the timestamp column.
func (a *Artifact) Timestamps() []int64 {
	ts := make([]int64, len(a.timestamps))
	copy(ts, a.timestamps)

	return ts
}

// Columns returns the value column names in insertion order, excluding the
// timestamp column.
func (a *Artifact) Columns() []string {
	cols := make([]string, len(a.order))
	copy(cols, a.order)

	return cols
}

// HasColumn reports whether a value column with the given name exists.
func (a *Artifact) HasColumn(name string) bool {
	_, ok := a.columns[name]

	return ok
}

// AddColumn appends a named value column. The column must match the timestamp
// column in length, and the name must be unused.
func (a *Artifact) AddColumn(name string, values []float64) error {
	if name == "" || name == ColumnTimestamp {
		return errors.Newf(errors.ErrCodeInvalidParameter, "invalid column name %q", name)
	}

	if a.HasColumn(name) {
		return errors.Newf(errors.ErrCodeInvalidParameter, "column %q already exists", name)
	}

	if len(values) != len(a.timestamps) {
		return errors.Wrapf(errors.ErrCodeLengthMismatch,
			errors.NewLengthMismatchErrorf(name, len(a.timestamps), len(values),
				"column %q has %d rows, expected %d", name, len(values), len(a.timestamps)),
			"cannot add column %q", name)
	}

	vals := make([]float64, len(values))
	copy(vals, values)

	a.order = append(a.order, name)
	a.columns[name] = vals

	return nil
}

// Column returns a copy of a value column by name.
func (a *Artifact) Column(name string) ([]float64, error) {
	values, ok := a.columns[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeColumnNotFound, "column %q not found", name)
	}

	out := make([]float64, len(values))
	copy(out, values)

	return out, nil
}

// DropUndefinedRows returns a new artifact containing only the rows where
// every value column is defined (non-NaN). Used to strip indicator warm-up
// prefixes before model fitting.
func (a *Artifact) DropUndefinedRows() (*Artifact, error) {
	keep := make([]int, 0, len(a.timestamps))

	for i := range a.timestamps {
		defined := true

		for _, name := range a.order {
			if math.IsNaN(a.columns[name][i]) {
				defined = false

				break
			}
		}

		if defined {
			keep = append(keep, i)
		}
	}

	if len(keep) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyArtifact, "no fully defined rows remain")
	}

	ts := make([]int64, len(keep))
	for j, i := range keep {
		ts[j] = a.timestamps[i]
	}

	out, err := NewArtifact(ts)
	if err != nil {
		return nil, err
	}

	for _, name := range a.order {
		src := a.columns[name]

		vals := make([]float64, len(keep))
		for j, i := range keep {
			vals[j] = src[i]
		}

		if err := out.AddColumn(name, vals); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// MeanInterval returns the mean spacing between consecutive timestamps in
// milliseconds. Requires at least two rows.
func (a *Artifact) MeanInterval() (int64, error) {
	if len(a.timestamps) < 2 {
		return 0, errors.New(errors.ErrCodeMalformedArtifact, "at least two timestamps required to derive an interval")
	}

	span := a.timestamps[len(a.timestamps)-1] - a.timestamps[0]

	return span / int64(len(a.timestamps)-1), nil
}
