package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/talenthub/hub/internal/api/response"
	"github.com/talenthub/hub/internal/huberrors"
	"github.com/talenthub/hub/internal/models"
	"github.com/talenthub/hub/internal/service"
)

// maxTopK caps the per-collection result count of one search request.
const maxTopK = 100

// Searcher defines the interface for similarity search.
type Searcher interface {
	Search(ctx context.Context, query string, collections []string, topK int) ([]models.SearchResult, error)
}

// SearchHandler handles HTTP requests for similarity search.
type SearchHandler struct {
	service Searcher
	logger  *slog.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(svc Searcher, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SearchHandler{service: svc, logger: logger}
}

// StringList accepts either a single JSON string or a list of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}

		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("collection_names must be a string or a list of strings")
	}

	*s = StringList(list)

	return nil
}

// SearchRequest is the body for POST /search. collection_names accepts a
// single name or a list; top_k defaults to 1.
type SearchRequest struct {
	Query           string     `json:"query"`
	CollectionNames StringList `json:"collection_names"`
	TopK            *int       `json:"top_k"`
}

// SearchResultItem is one entry of the search response: a scored hit with its
// relational record, or a per-collection error.
type SearchResultItem struct {
	Collection string            `json:"collection"`
	ID         int64             `json:"id,omitempty"`
	Score      float64           `json:"score,omitempty"`
	Text       string            `json:"text,omitempty"`
	Record     map[string]string `json:"record,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Search handles POST /search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		response.RespondBadRequest(w, "invalid request body: "+err.Error())

		return
	}

	topK := 1
	if req.TopK != nil {
		topK = *req.TopK
	}

	if topK > maxTopK {
		topK = maxTopK
	}

	results, err := h.service.Search(r.Context(), req.Query, req.CollectionNames, topK)
	if err != nil {
		h.respondSearchError(w, r, err)

		return
	}

	items := make([]SearchResultItem, len(results))

	for i, res := range results {
		if res.Err != nil {
			items[i] = SearchResultItem{Collection: res.Collection, Error: res.Err.Error()}

			continue
		}

		items[i] = SearchResultItem{
			Collection: res.Collection,
			ID:         res.ID,
			Score:      res.Score,
			Text:       res.Text,
			Record:     res.Record,
		}
	}

	response.RespondJSON(w, http.StatusOK, items)
}

func (h *SearchHandler) respondSearchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyQuery), errors.Is(err, service.ErrNoCollections):
		response.RespondBadRequest(w, err.Error())
	case errors.Is(err, huberrors.ErrEmbedding):
		h.logger.ErrorContext(r.Context(), "search failed: embedding upstream", "error", err)
		response.RespondBadGateway(w, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "search failed", "error", err)
		response.RespondInternalServerError(w, err.Error())
	}
}
