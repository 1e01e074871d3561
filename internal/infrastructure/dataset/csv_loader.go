// Package dataset loads historical case datasets from CSV exports, either
// from local files or from object storage.
package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/openlands/caselens/internal/domain/casefile"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/pkg/errors"
)

// dateLayouts are tried in order when parsing date_received.  Exports from
// different years use different formats.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2/1/2006",
	time.RFC3339,
}

// column aliases map export header variants onto record fields.
var columnAliases = map[string]string{
	"case_no":           "case_no",
	"case_number":       "case_no",
	"caseno":            "case_no",
	"date_received":     "date_received",
	"received_date":     "date_received",
	"location":          "location",
	"venue":             "location",
	"slope_or_tree_no":  "slope_or_tree_no",
	"slope_no":          "slope_or_tree_no",
	"tree_no":           "slope_or_tree_no",
	"subject_matter":    "subject_matter",
	"subject":           "subject_matter",
	"case_type":         "case_type",
	"caller_name":       "caller_name",
	"complainant":       "caller_name",
	"contact_no":        "contact_no",
	"contact_number":    "contact_no",
	"phone":             "contact_no",
	"nature_of_request": "nature_of_request",
	"nature":            "nature_of_request",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

// parseDate tries each known layout; a value no layout accepts yields a
// zero time, never an error, so the record still participates in ranking.
func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// ParseCSV reads one dataset export.  Rows without a case number are
// skipped; every other data problem degrades to an empty or zero field.
func ParseCSV(r io.Reader, dataset string, logger logging.Logger) ([]casefile.CaseRecord, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCaseImportFailed, "failed to read csv header")
	}

	fieldIdx := make(map[string]int, len(header))
	for i, h := range header {
		if field, ok := columnAliases[normalizeHeader(h)]; ok {
			fieldIdx[field] = i
		}
	}
	if _, ok := fieldIdx["case_no"]; !ok {
		return nil, errors.New(errors.ErrCodeCaseImportFailed, "csv has no case number column")
	}

	cell := func(row []string, field string) string {
		idx, ok := fieldIdx[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var (
		records []casefile.CaseRecord
		skipped int
		undated int
		line    = 1
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			skipped++
			logger.Warn("skipping malformed csv row",
				logging.String("dataset", dataset),
				logging.Int("line", line),
				logging.Err(err))
			continue
		}

		caseNo := cell(row, "case_no")
		if caseNo == "" {
			skipped++
			continue
		}

		received := parseDate(cell(row, "date_received"))
		if received.IsZero() {
			undated++
		}

		records = append(records, casefile.CaseRecord{
			Identifier:      caseNo,
			SourceDataset:   dataset,
			DateReceived:    received,
			Location:        cell(row, "location"),
			SlopeOrTreeNo:   cell(row, "slope_or_tree_no"),
			SubjectMatter:   cell(row, "subject_matter"),
			CaseType:        cell(row, "case_type"),
			CallerName:      cell(row, "caller_name"),
			ContactNo:       cell(row, "contact_no"),
			NatureOfRequest: cell(row, "nature_of_request"),
		})
	}

	logger.Info("csv dataset parsed",
		logging.String("dataset", dataset),
		logging.Int("records", len(records)),
		logging.Int("skipped", skipped),
		logging.Int("undated", undated))
	return records, nil
}

// FileSource loads dataset CSV files from a local directory, used in
// development and by the import command.
type FileSource struct {
	dir    string
	logger logging.Logger
}

// NewFileSource creates a source over a directory of "<dataset>.csv" files.
func NewFileSource(dir string, logger logging.Logger) *FileSource {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FileSource{dir: dir, logger: logger.Named("dataset.file")}
}

// Load parses one dataset file.
func (s *FileSource) Load(dataset string) ([]casefile.CaseRecord, error) {
	path := s.dir + string(os.PathSeparator) + dataset + ".csv"
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCaseDatasetUnknown, "failed to open dataset file")
	}
	defer f.Close()
	return ParseCSV(f, dataset, s.logger)
}

// LoadCases implements casefile.CorpusSource over the directory.  As with
// the object-store source, any missing dataset fails the whole load.
func (s *FileSource) LoadCases(_ context.Context, datasets []string) ([]casefile.CaseRecord, error) {
	if len(datasets) == 0 {
		return nil, errors.New(errors.ErrCodeCaseDatasetUnknown, "no datasets requested")
	}
	var records []casefile.CaseRecord
	for _, dataset := range datasets {
		parsed, err := s.Load(dataset)
		if err != nil {
			return nil, err
		}
		records = append(records, parsed...)
	}
	return records, nil
}
