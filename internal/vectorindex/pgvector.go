package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// PGVector serves queries from the match_records table using cosine distance.
type PGVector struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewPGVector returns an index over the records stored under namespace.
func NewPGVector(pool *pgxpool.Pool, namespace string) *PGVector {
	return &PGVector{pool: pool, namespace: namespace}
}

func (s *PGVector) Query(ctx context.Context, q Query) ([]Match, error) {
	vec := pgvector.NewVector(q.Vector)
	rows, err := s.pool.Query(ctx,
		`SELECT id, metadata, 1 - (embedding <=> $1) AS score
		 FROM match_records
		 WHERE namespace = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, s.namespace, q.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("querying match records: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m        Match
			metadata []byte
			score    float64
		)
		if err := rows.Scan(&m.ID, &metadata, &score); err != nil {
			return nil, fmt.Errorf("scanning match record: %w", err)
		}
		m.Score = float32(score)
		if q.IncludeMetadata && len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
				return nil, fmt.Errorf("decoding metadata for %s: %w", m.ID, err)
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Upsert stores a record in the namespace, replacing any record with the same id.
// It is the seeding API for the pgvector backend; the chat path only reads.
func (s *PGVector) Upsert(ctx context.Context, id string, embedding []float32, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataBytes, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", id, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO match_records (id, namespace, embedding, metadata)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (namespace, id) DO UPDATE
		 SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`,
		id, s.namespace, pgvector.NewVector(embedding), metadataBytes,
	)
	if err != nil {
		return fmt.Errorf("upserting match record %s: %w", id, err)
	}
	return nil
}
