package handlers

import (
	"net/http"

	"github.com/openlands/caselens/internal/application/match"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
)

// MatchHandler handles similarity ranking and duplicate checking requests.
type MatchHandler struct {
	svc    match.Service
	logger logging.Logger
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(svc match.Service, logger logging.Logger) *MatchHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MatchHandler{svc: svc, logger: logger.Named("http.match")}
}

// Rank handles POST /api/v1/match/rank.
func (h *MatchHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var input match.RankInput
	if err := decodeJSON(r, &input); err != nil {
		writeAppError(w, err)
		return
	}

	out, err := h.svc.Rank(r.Context(), &input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// DuplicateCheck handles POST /api/v1/match/duplicate-check.
func (h *MatchHandler) DuplicateCheck(w http.ResponseWriter, r *http.Request) {
	var input match.RankInput
	if err := decodeJSON(r, &input); err != nil {
		writeAppError(w, err)
		return
	}

	out, err := h.svc.DuplicateCheck(r.Context(), &input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
