// Package models holds the data types shared between the ingestion and search
// layers.
package models

// Row is one normalized profile row: the generated id plus one stringified cell
// per configured schema column. Cells are always strings, whatever the declared
// column type; downstream consumers must tolerate that.
type Row struct {
	ID     int64
	Fields map[string]string
}

// Field returns the cell for the given column, or "" when absent.
func (r Row) Field(column string) string {
	return r.Fields[column]
}

// VectorEntry is one embedding record inside a named vector collection. Its ID
// is the owning Row's id, not a separate allocation; Text is the raw content
// that was embedded, denormalized so the vector store can return it without a
// relational join.
type VectorEntry struct {
	ID        int64
	Text      string
	Embedding []float32
}

// VectorHit is one nearest-neighbor hit from a vector collection, in the
// index's ranking order (highest similarity first).
type VectorHit struct {
	ID    int64
	Score float64
	Text  string
}

// SearchResult is one merged entry of a similarity search response: either a
// vector hit joined with its relational record, or a per-collection error.
// Record is nil when the id was returned by the vector index but is absent
// from the relational table (a surfaced consistency gap, not a dropped hit).
type SearchResult struct {
	Collection string
	ID         int64
	Score      float64
	Text       string
	Record     map[string]string
	Err        error
}
