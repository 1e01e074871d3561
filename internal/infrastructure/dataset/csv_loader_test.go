package dataset

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/pkg/errors"
)

const sampleCSV = `Case No,Date Received,Location,Slope No,Subject Matter,Case Type,Caller Name,Contact No,Nature of Request
C-2021-0001,2021-06-01,Broadwood Road Mini Park,11SW-D/805,Fallen Tree,Emergency,Chan Tai Man,28904087,Tree blocking footpath
C-2021-0002,01/07/2021,Queensway Plaza,,Water Seepage,Routine,Wong Siu Ming,,
C-2021-0003,not a date,Statue Square,,,,,
,2021-08-01,ignored row without case number,,,,,
`

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV), "complaints-2021", logging.NewNopLogger())
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "C-2021-0001", first.Identifier)
	assert.Equal(t, "complaints-2021", first.SourceDataset)
	assert.Equal(t, time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), first.DateReceived)
	assert.Equal(t, "Broadwood Road Mini Park", first.Location)
	assert.Equal(t, "11SW-D/805", first.SlopeOrTreeNo)
	assert.Equal(t, "Tree blocking footpath", first.NatureOfRequest)

	// Day-first export format.
	assert.Equal(t, time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), records[1].DateReceived)

	// Unparseable date degrades to zero, the record is kept.
	assert.Equal(t, "C-2021-0003", records[2].Identifier)
	assert.True(t, records[2].DateReceived.IsZero())
}

func TestParseCSVHeaderAliases(t *testing.T) {
	csv := "case_number,received_date,venue,tree_no,subject,complainant,phone\n" +
		"T-55,2020-01-15,Victoria Park,LCSD/T/123,Dead Tree,Lee Ka Yan,91234567\n"

	records, err := ParseCSV(strings.NewReader(csv), "trees-2020", logging.NewNopLogger())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "T-55", records[0].Identifier)
	assert.Equal(t, "Victoria Park", records[0].Location)
	assert.Equal(t, "LCSD/T/123", records[0].SlopeOrTreeNo)
	assert.Equal(t, "Dead Tree", records[0].SubjectMatter)
	assert.Equal(t, "Lee Ka Yan", records[0].CallerName)
	assert.Equal(t, "91234567", records[0].ContactNo)
}

func TestParseCSVMissingCaseColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("location,subject\nsomewhere,tree\n"), "bad", logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCaseImportFailed))
}

func TestParseDate(t *testing.T) {
	assert.Equal(t, time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), parseDate("2021-06-01"))
	assert.Equal(t, time.Date(2021, 6, 1, 9, 15, 0, 0, time.UTC), parseDate("2021-06-01 09:15:00"))
	assert.Equal(t, time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), parseDate("2/1/2021"))
	assert.True(t, parseDate("").IsZero())
	assert.True(t, parseDate("June first").IsZero())
}

type fakeStore struct {
	objects map[string]string
	err     error
}

type nopReadCloser struct{ io.Reader }

func (nopReadCloser) Close() error { return nil }

func (s *fakeStore) GetObject(_ context.Context, _, object string, _ minio.GetObjectOptions) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.objects[object]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "object not found")
	}
	return nopReadCloser{strings.NewReader(body)}, nil
}

func TestMinioSourceLoadCases(t *testing.T) {
	source := &MinioSource{
		store: &fakeStore{objects: map[string]string{
			"complaints-2021.csv": sampleCSV,
			"trees-2020.csv": "case_no,location\n" +
				"T-1,Victoria Park\n",
		}},
		bucket: "caselens-datasets",
		logger: logging.NewNopLogger(),
	}

	records, err := source.LoadCases(context.Background(), []string{"complaints-2021", "trees-2020"})
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, "complaints-2021", records[0].SourceDataset)
	assert.Equal(t, "trees-2020", records[3].SourceDataset)
}

func TestMinioSourceMissingDatasetFailsLoad(t *testing.T) {
	source := &MinioSource{
		store:  &fakeStore{objects: map[string]string{}},
		bucket: "caselens-datasets",
		logger: logging.NewNopLogger(),
	}

	_, err := source.LoadCases(context.Background(), []string{"unknown"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusSourceFailed))

	_, err = source.LoadCases(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCaseDatasetUnknown))
}
