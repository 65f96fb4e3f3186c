// Package handlers contains the HTTP handlers for the profile ingestion and
// search endpoints.
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/talenthub/hub/internal/api/response"
	"github.com/talenthub/hub/internal/huberrors"
	"github.com/talenthub/hub/internal/service"
)

// maxUploadMemory caps the multipart form parts held in memory; larger file
// parts spill to temp files.
const maxUploadMemory = 10 << 20

// Ingester defines the interface for profile ingestion.
type Ingester interface {
	Ingest(ctx context.Context, payload []byte) (service.IngestResult, error)
}

// IngestHandler handles HTTP requests for profile uploads.
type IngestHandler struct {
	service Ingester
	logger  *slog.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(svc Ingester, logger *slog.Logger) *IngestHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &IngestHandler{service: svc, logger: logger}
}

// Upload handles POST /insert_data and its alias POST /regist_data. The
// payload is read from the multipart "file" field when present, otherwise
// from the raw request body.
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	payload, err := readUploadPayload(r)
	if err != nil {
		response.RespondBadRequest(w, "could not read upload payload: "+err.Error())

		return
	}

	result, err := h.service.Ingest(r.Context(), payload)
	if err != nil {
		h.respondIngestError(w, r, result, err)

		return
	}

	response.RespondSuccess(w)
}

// respondIngestError maps ingestion failures to status codes: malformed
// payloads are the client's fault, a failing embedding server is an upstream
// problem, and everything else is a server error. Batches committed before the
// failure are reported so the caller knows a retry would duplicate them.
func (h *IngestHandler) respondIngestError(w http.ResponseWriter, r *http.Request, result service.IngestResult, err error) {
	h.logger.ErrorContext(r.Context(), "upload failed",
		"error", err, "committed_rows", result.Rows, "committed_batches", result.Batches)

	var pw *huberrors.PartialWriteError
	if errors.As(err, &pw) {
		response.RespondJSON(w, http.StatusInternalServerError, response.StatusBody{
			Status:  "error",
			Detail:  err.Error(),
			Partial: true,
		})

		return
	}

	switch {
	case errors.Is(err, huberrors.ErrNormalization):
		response.RespondBadRequest(w, err.Error())
	case errors.Is(err, huberrors.ErrEmbedding):
		response.RespondBadGateway(w, err.Error())
	default:
		response.RespondInternalServerError(w, err.Error())
	}
}

// readUploadPayload extracts the payload bytes from the request: the "file"
// multipart field when the request is a multipart form, the raw body otherwise.
func readUploadPayload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return nil, err
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()

		return io.ReadAll(file)
	}

	return io.ReadAll(r.Body)
}
