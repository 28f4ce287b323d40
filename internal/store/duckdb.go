package store

import (
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// DuckDBStore keeps the artifact index and rows in a DuckDB database. The
// index lives in the artifacts table; tabular data is stored row-per-cell so
// artifacts with different column sets share one schema.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBStore opens a store backed by the DuckDB database at path.
// Use ":memory:" for an ephemeral store.
func NewDuckDBStore(path string, logger *logger.Logger) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to open DuckDB database", err)
	}

	s := &DuckDBStore{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

// initialize creates the index and data tables.
func (s *DuckDBStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			category TEXT,
			id TEXT,
			sort_ts BIGINT,
			created_at TIMESTAMP DEFAULT current_timestamp,
			PRIMARY KEY (category, id)
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create artifacts table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS artifact_columns (
			category TEXT,
			artifact_id TEXT,
			position INTEGER,
			name TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create artifact_columns table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS artifact_cells (
			cell_id TEXT,
			category TEXT,
			artifact_id TEXT,
			row_idx INTEGER,
			ts BIGINT,
			column_name TEXT,
			value DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create artifact_cells table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS artifact_blobs (
			category TEXT,
			artifact_id TEXT,
			data BLOB
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create artifact_blobs table", err)
	}

	return nil
}

// List implements ArtifactStore.
func (s *DuckDBStore) List(category Category) ([]string, error) {
	query, args, err := s.sq.Select("id").
		From("artifacts").
		Where(squirrel.Eq{"category": string(category)}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to build list query", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to list artifacts", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to scan artifact id", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to list artifacts", err)
	}

	return types.SortIdentifiers(ids), nil
}

// Has implements ArtifactStore.
func (s *DuckDBStore) Has(category Category, id string) (bool, error) {
	query, args, err := s.sq.Select("COUNT(*)").
		From("artifacts").
		Where(squirrel.Eq{"category": string(category), "id": id}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to build existence query", err)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return false, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to check artifact existence", err)
	}

	return count > 0, nil
}

// Read implements ArtifactStore.
func (s *DuckDBStore) Read(category Category, id string) (*types.Artifact, error) {
	exists, err := s.Has(category, id)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, errors.Newf(errors.ErrCodeArtifactNotFound, "artifact %s not found in %s", id, category)
	}

	columns, err := s.readColumnOrder(category, id)
	if err != nil {
		return nil, err
	}

	query, args, err := s.sq.Select("row_idx", "ts", "column_name", "value").
		From("artifact_cells").
		Where(squirrel.Eq{"category": string(category), "artifact_id": id}).
		OrderBy("row_idx ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to build read query", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreReadFailed, err, "failed to read artifact %s", id)
	}
	defer rows.Close()

	var timestamps []int64

	seen := make(map[int64]struct{})
	values := make(map[string][]float64, len(columns))

	for rows.Next() {
		var (
			rowIdx int
			ts     int64
			name   string
			value  float64
		)

		if err := rows.Scan(&rowIdx, &ts, &name, &value); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStoreReadFailed, err, "failed to scan artifact %s", id)
		}

		if _, ok := seen[ts]; !ok {
			seen[ts] = struct{}{}

			timestamps = append(timestamps, ts)
		}

		values[name] = append(values[name], value)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreReadFailed, err, "failed to read artifact %s", id)
	}

	artifact, err := types.NewArtifact(timestamps)
	if err != nil {
		return nil, err
	}

	for _, name := range columns {
		if err := artifact.AddColumn(name, values[name]); err != nil {
			return nil, err
		}
	}

	return artifact, nil
}

func (s *DuckDBStore) readColumnOrder(category Category, id string) ([]string, error) {
	query, args, err := s.sq.Select("name").
		From("artifact_columns").
		Where(squirrel.Eq{"category": string(category), "artifact_id": id}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to build column query", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreReadFailed, err, "failed to read columns of %s", id)
	}
	defer rows.Close()

	var columns []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStoreReadFailed, err, "failed to scan column of %s", id)
		}

		columns = append(columns, name)
	}

	return columns, rows.Err()
}

// Write implements ArtifactStore. The insert runs in one transaction; a
// failure leaves no trace of the artifact.
func (s *DuckDBStore) Write(category Category, id string, artifact *types.Artifact) error {
	parsed, err := types.ParseArtifactID(id)
	if err != nil {
		return err
	}

	exists, err := s.Has(category, id)
	if err != nil {
		return err
	}

	if exists {
		return errors.Newf(errors.ErrCodeArtifactExists, "artifact %s already exists in %s", id, category)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to begin transaction", err)
	}

	if err := s.writeTx(tx, category, id, parsed.Timestamp, artifact); err != nil {
		tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()

		return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to commit artifact %s", id)
	}

	s.logger.Debug("Artifact written",
		zap.String("category", string(category)),
		zap.String("id", id),
		zap.Int("rows", artifact.Len()),
	)

	return nil
}

func (s *DuckDBStore) writeTx(tx *sql.Tx, category Category, id string, sortTs int64, artifact *types.Artifact) error {
	if _, err := tx.Exec(
		`INSERT INTO artifacts (category, id, sort_ts) VALUES (?, ?, ?)`,
		string(category), id, sortTs,
	); err != nil {
		return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to index artifact %s", id)
	}

	columns := artifact.Columns()

	for position, name := range columns {
		if _, err := tx.Exec(
			`INSERT INTO artifact_columns (category, artifact_id, position, name) VALUES (?, ?, ?, ?)`,
			string(category), id, position, name,
		); err != nil {
			return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to record column order of %s", id)
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO artifact_cells (cell_id, category, artifact_id, row_idx, ts, column_name, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to prepare insert statement", err)
	}
	defer stmt.Close()

	timestamps := artifact.Timestamps()

	for _, name := range columns {
		values, err := artifact.Column(name)
		if err != nil {
			return err
		}

		for i, v := range values {
			if _, err := stmt.Exec(
				uuid.New().String(), string(category), id, i, timestamps[i], name, v,
			); err != nil {
				return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to insert cells of %s", id)
			}
		}
	}

	return nil
}

// ReadRaw implements ArtifactStore.
func (s *DuckDBStore) ReadRaw(category Category, id string) ([]byte, error) {
	query, args, err := s.sq.Select("data").
		From("artifact_blobs").
		Where(squirrel.Eq{"category": string(category), "artifact_id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to build blob query", err)
	}

	var data []byte

	if err := s.db.QueryRow(query, args...).Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Newf(errors.ErrCodeArtifactNotFound, "artifact %s not found in %s", id, category)
		}

		return nil, errors.Wrapf(errors.ErrCodeStoreReadFailed, err, "failed to read artifact %s", id)
	}

	return data, nil
}

// WriteRaw implements ArtifactStore.
func (s *DuckDBStore) WriteRaw(category Category, id string, data []byte) error {
	parsed, err := types.ParseArtifactID(id)
	if err != nil {
		return err
	}

	exists, err := s.Has(category, id)
	if err != nil {
		return err
	}

	if exists {
		return errors.Newf(errors.ErrCodeArtifactExists, "artifact %s already exists in %s", id, category)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to begin transaction", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO artifacts (category, id, sort_ts) VALUES (?, ?, ?)`,
		string(category), id, parsed.Timestamp,
	); err != nil {
		tx.Rollback()

		return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to index artifact %s", id)
	}

	if _, err := tx.Exec(
		`INSERT INTO artifact_blobs (category, artifact_id, data) VALUES (?, ?, ?)`,
		string(category), id, data,
	); err != nil {
		tx.Rollback()

		return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to write artifact %s", id)
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()

		return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err, "failed to commit artifact %s", id)
	}

	return nil
}

// Close implements ArtifactStore.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}
