// Package response provides the JSON response helpers shared by all handlers.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// StatusBody is the envelope used by the ingestion endpoints and by every
// error response: a "success"/"error" marker plus an optional detail.
type StatusBody struct {
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Partial bool   `json:"partial,omitempty"`
}

// RespondJSON writes a JSON response directly without wrapping.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// RespondSuccess writes a 200 success envelope.
func RespondSuccess(w http.ResponseWriter) {
	RespondJSON(w, http.StatusOK, StatusBody{Status: "success"})
}

// RespondError writes an error envelope with the given status code and detail.
func RespondError(w http.ResponseWriter, statusCode int, detail string) {
	RespondJSON(w, statusCode, StatusBody{Status: "error", Detail: detail})
}

// RespondBadRequest writes a 400 Bad Request error response.
func RespondBadRequest(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusBadRequest, detail)
}

// RespondBadGateway writes a 502 Bad Gateway error response, used when an
// upstream dependency (the embedding server) fails.
func RespondBadGateway(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusBadGateway, detail)
}

// RespondInternalServerError writes a 500 Internal Server Error response.
func RespondInternalServerError(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusInternalServerError, detail)
}
