package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// PassageStore is the retrieval index: document passages with embeddings,
// searched by cosine similarity.
type PassageStore struct {
	db       *pgxpool.Pool
	embedder domain.EmbeddingClient
}

var errNoEmbedder = errors.New("no embedding client configured")

func NewPassageStore(db *pgxpool.Pool, embedder domain.EmbeddingClient) *PassageStore {
	return &PassageStore{db: db, embedder: embedder}
}

func (s *PassageStore) Insert(ctx context.Context, sourceID, content string) error {
	if s.embedder == nil {
		return errNoEmbedder
	}
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed passage: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO passages (source_id, content, embedding)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (source_id, content) DO UPDATE SET embedding = EXCLUDED.embedding`,
		sourceID, content, pgvector.NewVector(embedding),
	)
	return err
}

func (s *PassageStore) Search(ctx context.Context, query string, topK int) ([]domain.RetrievedPassage, error) {
	if topK <= 0 {
		topK = 4
	}
	if s.embedder == nil {
		return nil, errNoEmbedder
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT source_id, content, 1 - (embedding <=> $1) AS score
		 FROM passages
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("passage search: %w", err)
	}
	defer rows.Close()

	var results []domain.RetrievedPassage
	for rows.Next() {
		var p domain.RetrievedPassage
		if err := rows.Scan(&p.SourceID, &p.Text, &p.Score); err != nil {
			return nil, fmt.Errorf("scan passage row: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("passage rows: %w", err)
	}
	return results, nil
}

func (s *PassageStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM passages`).Scan(&count)
	return count, err
}
