package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talenthub/hub/internal/huberrors"
	"github.com/talenthub/hub/internal/models"
	"github.com/talenthub/hub/internal/service"
)

type mockSearcher struct {
	gotQuery       string
	gotCollections []string
	gotTopK        int
	results        []models.SearchResult
	err            error
}

func (m *mockSearcher) Search(_ context.Context, query string, collections []string, topK int) ([]models.SearchResult, error) {
	m.gotQuery = query
	m.gotCollections = collections
	m.gotTopK = topK

	return m.results, m.err
}

func doSearch(t *testing.T, handler *SearchHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "http://test/search", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.Search(rec, req)

	return rec
}

func TestSearchHandler_Search_Success(t *testing.T) {
	mock := &mockSearcher{
		results: []models.SearchResult{
			{
				Collection: "detailed_summary",
				ID:         101,
				Score:      0.9877,
				Text:       "backend engineer",
				Record:     map[string]string{"file_name": "a.pdf"},
			},
		},
	}
	handler := NewSearchHandler(mock, nil)

	rec := doSearch(t, handler, `{"query":"engineer","collection_names":["detailed_summary"],"top_k":5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "engineer", mock.gotQuery)
	assert.Equal(t, []string{"detailed_summary"}, mock.gotCollections)
	assert.Equal(t, 5, mock.gotTopK)

	var items []SearchResultItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, int64(101), items[0].ID)
	assert.Equal(t, 0.9877, items[0].Score)
	assert.Equal(t, "a.pdf", items[0].Record["file_name"])
	assert.Empty(t, items[0].Error)
}

func TestSearchHandler_Search_SingleCollectionString(t *testing.T) {
	mock := &mockSearcher{}
	handler := NewSearchHandler(mock, nil)

	rec := doSearch(t, handler, `{"query":"engineer","collection_names":"detailed_summary"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"detailed_summary"}, mock.gotCollections)
}

func TestSearchHandler_Search_TopKDefaultsToOne(t *testing.T) {
	mock := &mockSearcher{}
	handler := NewSearchHandler(mock, nil)

	rec := doSearch(t, handler, `{"query":"engineer","collection_names":["detailed_summary"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, mock.gotTopK)
}

func TestSearchHandler_Search_TopKCapped(t *testing.T) {
	mock := &mockSearcher{}
	handler := NewSearchHandler(mock, nil)

	rec := doSearch(t, handler, `{"query":"engineer","collection_names":["detailed_summary"],"top_k":100000}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxTopK, mock.gotTopK)
}

func TestSearchHandler_Search_PerCollectionError(t *testing.T) {
	mock := &mockSearcher{
		results: []models.SearchResult{
			{Collection: "experience", Err: huberrors.NewSearchError("experience", errors.New("index corrupted"))},
			{Collection: "detailed_summary", ID: 1, Score: 0.9},
		},
	}
	handler := NewSearchHandler(mock, nil)

	rec := doSearch(t, handler, `{"query":"engineer","collection_names":["experience","detailed_summary"]}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var items []SearchResultItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Contains(t, items[0].Error, "index corrupted")
	assert.Empty(t, items[1].Error)
}

func TestSearchHandler_Search_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{name: "invalid json", body: `{"query":`},
		{name: "unknown field", body: `{"query":"q","collections":["a"]}`},
		{name: "bad collection_names type", body: `{"query":"q","collection_names":42}`},
		{name: "empty query", body: `{"query":"  ","collection_names":["a"]}`, err: service.ErrEmptyQuery},
		{name: "no collections", body: `{"query":"q"}`, err: service.ErrNoCollections},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSearchHandler(&mockSearcher{err: tt.err}, nil)

			rec := doSearch(t, handler, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "error", body["status"])
		})
	}
}

func TestSearchHandler_Search_EmbeddingFailureReturns502(t *testing.T) {
	mock := &mockSearcher{err: huberrors.NewEmbeddingError("embed", errors.New("unreachable"))}
	handler := NewSearchHandler(mock, nil)

	rec := doSearch(t, handler, `{"query":"engineer","collection_names":["detailed_summary"]}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
