// Package repositories contains the PostgreSQL-backed data access for the
// historical case store.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlands/caselens/internal/domain/casefile"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/pkg/errors"
)

// selectCases loads the scored and display fields of every case in the
// requested datasets.  Ordering is stable so repeated loads produce
// identical snapshots.
const selectCases = `
SELECT case_no, source_dataset, date_received, location, slope_or_tree_no,
       subject_matter, case_type, caller_name, contact_no, nature_of_request
FROM historical_cases
WHERE source_dataset = ANY($1)
ORDER BY source_dataset, case_no`

const selectDatasets = `
SELECT source_dataset, COUNT(*) AS cases
FROM historical_cases
GROUP BY source_dataset
ORDER BY source_dataset`

// HistoryRepository reads historical cases for corpus snapshots.  It
// implements casefile.CorpusSource.
type HistoryRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewHistoryRepository creates the repository over an established pool.
func NewHistoryRepository(pool *pgxpool.Pool, logger logging.Logger) *HistoryRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &HistoryRepository{pool: pool, logger: logger.Named("history_repo")}
}

// rowScanner is the subset of pgx.Rows needed to map one record.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCase maps one row into a CaseRecord.  Nullable columns degrade to
// empty values; a NULL date stays zero so the record still participates in
// ranking on its remaining fields.
func scanCase(row rowScanner) (casefile.CaseRecord, error) {
	var (
		rec      casefile.CaseRecord
		received sql.NullTime
		location sql.NullString
		slopeNo  sql.NullString
		subject  sql.NullString
		caseType sql.NullString
		caller   sql.NullString
		contact  sql.NullString
		nature   sql.NullString
	)
	if err := row.Scan(&rec.Identifier, &rec.SourceDataset, &received, &location,
		&slopeNo, &subject, &caseType, &caller, &contact, &nature); err != nil {
		return casefile.CaseRecord{}, err
	}
	if received.Valid {
		rec.DateReceived = received.Time.UTC()
	}
	rec.Location = location.String
	rec.SlopeOrTreeNo = slopeNo.String
	rec.SubjectMatter = subject.String
	rec.CaseType = caseType.String
	rec.CallerName = caller.String
	rec.ContactNo = contact.String
	rec.NatureOfRequest = nature.String
	return rec, nil
}

// LoadCases reads every case in the given datasets.
func (r *HistoryRepository) LoadCases(ctx context.Context, datasets []string) ([]casefile.CaseRecord, error) {
	if len(datasets) == 0 {
		return nil, errors.New(errors.ErrCodeCaseDatasetUnknown, "no datasets requested")
	}

	start := time.Now()
	rows, err := r.pool.Query(ctx, selectCases, datasets)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query historical cases")
	}
	defer rows.Close()

	var records []casefile.CaseRecord
	for rows.Next() {
		rec, err := scanCase(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan historical case")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read historical cases")
	}

	r.logger.Debug("historical cases loaded",
		logging.Int("records", len(records)),
		logging.Any("datasets", datasets),
		logging.Duration("elapsed", time.Since(start)))
	return records, nil
}

// DatasetInfo describes one provenance tag in the store.
type DatasetInfo struct {
	Name  string `json:"name"`
	Cases int    `json:"cases"`
}

// ListDatasets returns every dataset tag and its case count.
func (r *HistoryRepository) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := r.pool.Query(ctx, selectDatasets)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list datasets")
	}
	defer rows.Close()

	var infos []DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		if err := rows.Scan(&info.Name, &info.Cases); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan dataset row")
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read datasets")
	}
	return infos, nil
}

// InsertCases bulk-inserts imported records, used by the dataset importer.
func (r *HistoryRepository) InsertCases(ctx context.Context, records []casefile.CaseRecord) error {
	if len(records) == 0 {
		return nil
	}

	const insert = `
INSERT INTO historical_cases
  (case_no, source_dataset, date_received, location, slope_or_tree_no,
   subject_matter, case_type, caller_name, contact_no, nature_of_request)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (source_dataset, case_no) DO NOTHING`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	for i := range records {
		rec := &records[i]
		var received interface{}
		if !rec.DateReceived.IsZero() {
			received = rec.DateReceived
		}
		if _, err := tx.Exec(ctx, insert,
			rec.Identifier, rec.SourceDataset, received, rec.Location,
			rec.SlopeOrTreeNo, rec.SubjectMatter, rec.CaseType,
			rec.CallerName, rec.ContactNo, rec.NatureOfRequest); err != nil {
			return errors.Wrap(err, errors.ErrCodeCaseImportFailed, "failed to insert historical case")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit import")
	}
	r.logger.Info("historical cases imported", logging.Int("records", len(records)))
	return nil
}
