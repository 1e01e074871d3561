package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlands/caselens/internal/domain/casefile"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
)

// integrationPool connects to the database named by CASELENS_TEST_DATABASE_URL,
// or skips the test when the variable is unset.  The schema must be migrated
// already.
func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("CASELENS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CASELENS_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	t.Cleanup(pool.Close)
	return pool
}

func TestHistoryRepositoryRoundTrip(t *testing.T) {
	pool := integrationPool(t)
	repo := NewHistoryRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	dataset := fmt.Sprintf("it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(),
			"DELETE FROM historical_cases WHERE source_dataset = $1", dataset)
	})

	records := []casefile.CaseRecord{
		{
			Identifier:    "C-2021-0001",
			SourceDataset: dataset,
			DateReceived:  time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
			Location:      "Broadwood Road Mini Park",
			SlopeOrTreeNo: "11SW-D/805",
			SubjectMatter: "Fallen Tree",
			CaseType:      "Emergency",
			CallerName:    "Chan Tai Man",
			ContactNo:     "28904087",
		},
		{
			// Undated record: date_received stored as NULL, read back zero.
			Identifier:    "C-2021-0002",
			SourceDataset: dataset,
			Location:      "Queensway Plaza",
		},
	}
	require.NoError(t, repo.InsertCases(ctx, records))

	// Re-importing the same export is a no-op.
	require.NoError(t, repo.InsertCases(ctx, records))

	loaded, err := repo.LoadCases(ctx, []string{dataset})
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "C-2021-0001", loaded[0].Identifier)
	assert.Equal(t, records[0].DateReceived, loaded[0].DateReceived)
	assert.Equal(t, "11SW-D/805", loaded[0].SlopeOrTreeNo)

	assert.Equal(t, "C-2021-0002", loaded[1].Identifier)
	assert.True(t, loaded[1].DateReceived.IsZero())
	assert.Empty(t, loaded[1].SlopeOrTreeNo)

	infos, err := repo.ListDatasets(ctx)
	require.NoError(t, err)
	var found bool
	for _, info := range infos {
		if info.Name == dataset {
			found = true
			assert.Equal(t, 2, info.Cases)
		}
	}
	assert.True(t, found, "imported dataset should be listed")
}
