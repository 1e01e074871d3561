package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlands/caselens/internal/application/match"
	"github.com/openlands/caselens/internal/application/statistics"
	"github.com/openlands/caselens/internal/domain/casefile"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeMatchService struct {
	rankOut   *match.RankOutput
	dupOut    *match.DuplicateCheckOutput
	refresh   *match.RefreshOutput
	snapshot  *casefile.SnapshotInfo
	err       error
	lastInput *match.RankInput
	lastRef   *match.RefreshInput
}

func (f *fakeMatchService) Rank(_ context.Context, input *match.RankInput) (*match.RankOutput, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.rankOut, nil
}

func (f *fakeMatchService) DuplicateCheck(_ context.Context, input *match.RankInput) (*match.DuplicateCheckOutput, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.dupOut, nil
}

func (f *fakeMatchService) Refresh(_ context.Context, input *match.RefreshInput) (*match.RefreshOutput, error) {
	f.lastRef = input
	if f.err != nil {
		return nil, f.err
	}
	return f.refresh, nil
}

func (f *fakeMatchService) Snapshot(context.Context) (*casefile.SnapshotInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

type fakeStatsService struct {
	out       *statistics.StatsOutput
	err       error
	lastInput *statistics.StatsInput
}

func (f *fakeStatsService) LocationStats(_ context.Context, input *statistics.StatsInput) (*statistics.StatsOutput, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Match handler
// ─────────────────────────────────────────────────────────────────────────────

func TestMatchHandlerRank(t *testing.T) {
	svc := &fakeMatchService{rankOut: &match.RankOutput{
		QueryID:    "q-1",
		Results:    []casefile.MatchResult{},
		Generation: 3,
	}}
	handler := NewMatchHandler(svc, logging.NewNopLogger())

	body := `{"location":"Broadwood Road","slope_or_tree_no":"11SW-D/805","limit":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match/rank", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Rank(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out match.RankOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "q-1", out.QueryID)
	assert.Equal(t, uint64(3), out.Generation)

	require.NotNil(t, svc.lastInput)
	assert.Equal(t, "Broadwood Road", svc.lastInput.Location)
	assert.Equal(t, 5, svc.lastInput.Limit)
}

func TestMatchHandlerRankRejectsBadBody(t *testing.T) {
	handler := NewMatchHandler(&fakeMatchService{}, logging.NewNopLogger())

	for _, body := range []string{"not json", `{"unknown_field":1}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/match/rank", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Rank(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestMatchHandlerRankServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"corpus not ready", errors.New(errors.ErrCodeCorpusNotReady, "no snapshot"), http.StatusServiceUnavailable},
		{"validation", errors.New(errors.ErrCodeValidation, "min_similarity out of range"), http.StatusBadRequest},
		{"timeout", errors.New(errors.ErrCodeTimeout, "deadline exceeded"), http.StatusGatewayTimeout},
		{"internal masked", errors.New(errors.ErrCodeInternal, "pool exhausted"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewMatchHandler(&fakeMatchService{err: tt.err}, logging.NewNopLogger())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/match/rank", strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			handler.Rank(rec, req)
			assert.Equal(t, tt.want, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", resp.Message, "internal detail must not leak")
			} else {
				assert.Equal(t, errors.GetCode(tt.err).String(), resp.Code)
			}
		})
	}
}

func TestMatchHandlerDuplicateCheck(t *testing.T) {
	svc := &fakeMatchService{dupOut: &match.DuplicateCheckOutput{
		QueryID:     "q-2",
		IsDuplicate: true,
		Generation:  1,
	}}
	handler := NewMatchHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/match/duplicate-check", strings.NewReader(`{"location":"Broadwood Road"}`))
	rec := httptest.NewRecorder()
	handler.DuplicateCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var out match.DuplicateCheckOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.IsDuplicate)
}

// ─────────────────────────────────────────────────────────────────────────────
// Statistics handler
// ─────────────────────────────────────────────────────────────────────────────

func TestStatisticsHandlerQueryParams(t *testing.T) {
	svc := &fakeStatsService{out: &statistics.StatsOutput{
		QueryID:    "q-3",
		Statistics: &casefile.LocationStatistics{Key: "Broadwood Road", TotalCases: 3, IsFrequent: true},
	}}
	handler := NewStatisticsHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/statistics/location?key=Broadwood+Road&caller_name=Chan+Tai+Man", nil)
	rec := httptest.NewRecorder()
	handler.LocationStats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastInput)
	assert.Equal(t, "Broadwood Road", svc.lastInput.Key)
	assert.Equal(t, "Chan Tai Man", svc.lastInput.CallerName)

	var out statistics.StatsOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 3, out.Statistics.TotalCases)
	assert.True(t, out.Statistics.IsFrequent)
}

func TestStatisticsHandlerJSONBody(t *testing.T) {
	svc := &fakeStatsService{out: &statistics.StatsOutput{
		Statistics: &casefile.LocationStatistics{Key: "11SW-D/805", TotalCases: 1},
	}}
	handler := NewStatisticsHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/statistics/location", strings.NewReader(`{"key":"11SW-D/805"}`))
	rec := httptest.NewRecorder()
	handler.LocationStatsQuery(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "11SW-D/805", svc.lastInput.Key)
}

func TestStatisticsHandlerEmptyKey(t *testing.T) {
	svc := &fakeStatsService{err: errors.New(errors.ErrCodeValidation, "key is required")}
	handler := NewStatisticsHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/statistics/location", nil)
	rec := httptest.NewRecorder()
	handler.LocationStats(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Corpus handler
// ─────────────────────────────────────────────────────────────────────────────

func TestCorpusHandlerSnapshot(t *testing.T) {
	svc := &fakeMatchService{snapshot: &casefile.SnapshotInfo{Generation: 4, Records: 120}}
	handler := NewCorpusHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/corpus", nil)
	rec := httptest.NewRecorder()
	handler.Snapshot(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var info casefile.SnapshotInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, uint64(4), info.Generation)
	assert.Equal(t, 120, info.Records)
}

func TestCorpusHandlerSnapshotNotReady(t *testing.T) {
	svc := &fakeMatchService{err: errors.New(errors.ErrCodeCorpusNotReady, "corpus snapshot not loaded yet")}
	handler := NewCorpusHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/corpus", nil)
	rec := httptest.NewRecorder()
	handler.Snapshot(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCorpusHandlerRefresh(t *testing.T) {
	svc := &fakeMatchService{refresh: &match.RefreshOutput{
		Snapshot: casefile.SnapshotInfo{Generation: 5},
	}}
	handler := NewCorpusHandler(svc, logging.NewNopLogger())

	// Empty body refreshes the default datasets.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpus/refresh", nil)
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastRef)
	assert.Empty(t, svc.lastRef.Datasets)
	assert.Equal(t, "api", svc.lastRef.Trigger)

	// Explicit datasets pass through; the trigger stays server-assigned.
	body := `{"datasets":["trees-2020"],"trigger":"spoofed"}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/corpus/refresh", strings.NewReader(body))
	rec = httptest.NewRecorder()
	handler.Refresh(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"trees-2020"}, svc.lastRef.Datasets)
	assert.Equal(t, "api", svc.lastRef.Trigger)
}

// ─────────────────────────────────────────────────────────────────────────────
// Health handler
// ─────────────────────────────────────────────────────────────────────────────

func TestHealthHandlerLiveness(t *testing.T) {
	handler := NewHealthHandler("1.2.3")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.Liveness(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHealthHandlerReadiness(t *testing.T) {
	up := CheckFunc{ComponentName: "postgres", Fn: func(context.Context) error { return nil }}
	down := CheckFunc{ComponentName: "redis", Fn: func(context.Context) error {
		return errors.New(errors.ErrCodeCacheError, "connection refused")
	}}

	handler := NewHealthHandler("1.2.3", up)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.Readiness(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	handler = NewHealthHandler("1.2.3", up, down)
	rec = httptest.NewRecorder()
	handler.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not ready", resp.Status)
	assert.Equal(t, "up", resp.Components["postgres"].Status)
	assert.Equal(t, "down", resp.Components["redis"].Status)
}
