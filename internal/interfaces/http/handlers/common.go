// Common helpers shared by the HTTP handlers.

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/openlands/caselens/pkg/errors"
)

// maxBodySize bounds request bodies; similarity queries are small.
const maxBodySize = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, statusCode int, code errors.ErrorCode, message string) {
	writeJSON(w, statusCode, ErrorResponse{Code: code.String(), Message: message})
}

// writeAppError maps application-level errors to HTTP status codes.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsValidation(err):
		writeError(w, http.StatusBadRequest, errors.GetCode(err), err.Error())
	case errors.IsNotFound(err):
		writeError(w, http.StatusNotFound, errors.GetCode(err), err.Error())
	case errors.IsCode(err, errors.ErrCodeCorpusNotReady):
		writeError(w, http.StatusServiceUnavailable, errors.GetCode(err), err.Error())
	case errors.IsCode(err, errors.ErrCodeTimeout):
		writeError(w, http.StatusGatewayTimeout, errors.GetCode(err), err.Error())
	default:
		// Mask internal errors.
		writeError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "internal server error")
	}
}

// decodeJSON decodes a request body into dest, rejecting unknown fields so
// typos in query payloads fail loudly instead of matching nothing.
func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body")
	}
	return nil
}
