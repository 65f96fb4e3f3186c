package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/talenthub/hub/internal/api/response"
	"github.com/talenthub/hub/internal/schema"
)

const (
	serviceName    = "talenthub-api"
	serviceVersion = "1.0.0"
)

// InfoRepository provides the relational introspection needed by /info.
type InfoRepository interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// VectorStatus reports which vector collections are available.
type VectorStatus interface {
	Has(collection string) bool
}

// InfoHandler reports service metadata and store connectivity.
type InfoHandler struct {
	repo    InfoRepository
	vectors VectorStatus
	schema  *schema.Schema
	table   string
	logger  *slog.Logger
}

// NewInfoHandler creates a new info handler.
func NewInfoHandler(repo InfoRepository, vectors VectorStatus, s *schema.Schema, table string, logger *slog.Logger) *InfoHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &InfoHandler{repo: repo, vectors: vectors, schema: s, table: table, logger: logger}
}

// InfoResponse is the body for GET /info.
type InfoResponse struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	CurrentTime       string   `json:"current_time"`
	DatabaseConnected bool     `json:"database_connected"`
	VectorIndexReady  bool     `json:"vector_index_ready"`
	Rows              *int64   `json:"rows,omitempty"`
	Table             string   `json:"table"`
	Columns           []string `json:"columns"`
	Collections       []string `json:"collections"`
}

// Info handles GET /info.
func (h *InfoHandler) Info(w http.ResponseWriter, r *http.Request) {
	out := InfoResponse{
		Name:        serviceName,
		Version:     serviceVersion,
		CurrentTime: time.Now().UTC().Format(time.RFC3339),
		Table:       h.table,
		Columns:     h.schema.ColumnNames(),
		Collections: h.schema.Collections,
	}

	ready := true

	for _, name := range h.schema.Collections {
		if !h.vectors.Has(name) {
			ready = false

			break
		}
	}

	out.VectorIndexReady = ready

	if err := h.repo.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "info: database unreachable", "error", err)
	} else {
		out.DatabaseConnected = true

		if count, err := h.repo.Count(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "info: count failed", "error", err)
		} else {
			out.Rows = &count
		}
	}

	response.RespondJSON(w, http.StatusOK, out)
}
