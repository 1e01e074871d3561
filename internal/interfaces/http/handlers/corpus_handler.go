package handlers

import (
	"net/http"

	"github.com/openlands/caselens/internal/application/match"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
)

// CorpusHandler exposes snapshot inspection and manual refresh.
type CorpusHandler struct {
	svc    match.Service
	logger logging.Logger
}

// NewCorpusHandler creates a CorpusHandler.
func NewCorpusHandler(svc match.Service, logger logging.Logger) *CorpusHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CorpusHandler{svc: svc, logger: logger.Named("http.corpus")}
}

// Snapshot handles GET /api/v1/corpus.
func (h *CorpusHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Snapshot(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Refresh handles POST /api/v1/corpus/refresh.  An empty body refreshes the
// configured default datasets.
func (h *CorpusHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	input := match.RefreshInput{Trigger: "api"}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &input); err != nil {
			writeAppError(w, err)
			return
		}
		input.Trigger = "api"
	}

	out, err := h.svc.Refresh(r.Context(), &input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
