package handlers

import (
	"net/http"

	"github.com/openlands/caselens/internal/application/statistics"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
)

// StatisticsHandler handles complaint-frequency queries.
type StatisticsHandler struct {
	svc    statistics.Service
	logger logging.Logger
}

// NewStatisticsHandler creates a StatisticsHandler.
func NewStatisticsHandler(svc statistics.Service, logger logging.Logger) *StatisticsHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &StatisticsHandler{svc: svc, logger: logger.Named("http.statistics")}
}

// LocationStats handles GET /api/v1/statistics/location.  The key comes
// from query parameters so operators can hit it from a browser.
func (h *StatisticsHandler) LocationStats(w http.ResponseWriter, r *http.Request) {
	input := statistics.StatsInput{
		Key:        r.URL.Query().Get("key"),
		CallerName: r.URL.Query().Get("caller_name"),
	}

	out, err := h.svc.LocationStats(r.Context(), &input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// LocationStatsQuery handles POST /api/v1/statistics/location for clients
// that prefer a JSON body.
func (h *StatisticsHandler) LocationStatsQuery(w http.ResponseWriter, r *http.Request) {
	var input statistics.StatsInput
	if err := decodeJSON(r, &input); err != nil {
		writeAppError(w, err)
		return
	}

	out, err := h.svc.LocationStats(r.Context(), &input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
