package store

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// encodeCSV renders an artifact as CSV: a header of [timestamp, columns...]
// followed by one record per row. Undefined values (NaN) are written as empty
// fields, matching the original datasets.
func encodeCSV(w io.Writer, artifact *types.Artifact) error {
	writer := csv.NewWriter(w)

	columns := artifact.Columns()
	header := append([]string{types.ColumnTimestamp}, columns...)

	if err := writer.Write(header); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to write CSV header", err)
	}

	values := make(map[string][]float64, len(columns))

	for _, name := range columns {
		col, err := artifact.Column(name)
		if err != nil {
			return err
		}

		values[name] = col
	}

	timestamps := artifact.Timestamps()
	record := make([]string, len(header))

	for i := range timestamps {
		record[0] = strconv.FormatInt(timestamps[i], 10)

		for j, name := range columns {
			v := values[name][i]
			if math.IsNaN(v) {
				record[j+1] = ""
			} else {
				record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}

		if err := writer.Write(record); err != nil {
			return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to write CSV record", err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to flush CSV", err)
	}

	return nil
}

// decodeCSV parses an artifact from CSV produced by encodeCSV (or by the
// original datasets: same layout). Empty fields decode as NaN.
func decodeCSV(data []byte) (*types.Artifact, error) {
	reader := csv.NewReader(bytes.NewReader(data))

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedArtifact, "failed to parse CSV", err)
	}

	if len(records) < 2 {
		return nil, errors.New(errors.ErrCodeEmptyArtifact, "CSV artifact has no data rows")
	}

	header := records[0]
	if len(header) == 0 || header[0] != types.ColumnTimestamp {
		return nil, errors.Newf(errors.ErrCodeMalformedArtifact,
			"first CSV column must be %q", types.ColumnTimestamp)
	}

	rows := records[1:]
	timestamps := make([]int64, len(rows))
	columns := make([][]float64, len(header)-1)

	for j := range columns {
		columns[j] = make([]float64, len(rows))
	}

	for i, record := range rows {
		if len(record) != len(header) {
			return nil, errors.Newf(errors.ErrCodeMalformedArtifact,
				"CSV row %d has %d fields, header has %d", i, len(record), len(header))
		}

		ts, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedArtifact, err,
				"CSV row %d has unparsable timestamp %q", i, record[0])
		}

		timestamps[i] = ts

		for j := 1; j < len(record); j++ {
			field := record[j]
			if field == "" {
				columns[j-1][i] = math.NaN()

				continue
			}

			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMalformedArtifact, err,
					"CSV row %d column %q has unparsable value %q", i, header[j], field)
			}

			columns[j-1][i] = v
		}
	}

	artifact, err := types.NewArtifact(timestamps)
	if err != nil {
		return nil, err
	}

	for j := 1; j < len(header); j++ {
		if err := artifact.AddColumn(header[j], columns[j-1]); err != nil {
			return nil, err
		}
	}

	return artifact, nil
}
