// Package vectorindex queries the nearest-neighbour index holding the records
// the chat answers from. Two backends exist: Pinecone's REST data plane and a
// Postgres table using pgvector.
package vectorindex

import "context"

// Match is one nearest-neighbour result with its stored metadata.
type Match struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Query asks for the TopK records closest to Vector.
type Query struct {
	Vector          []float32
	TopK            int
	IncludeMetadata bool
}

// Index is implemented by every backend. Matches are returned in the
// backend's own ranking, most similar first.
type Index interface {
	Query(ctx context.Context, q Query) ([]Match, error)
}
