package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fingerprint is the dedup key of a chunk: a hash of its whitespace- and
// case-normalized text.
func Fingerprint(text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ChunkSet accumulates unique chunks for one request in first-seen order.
// It is not safe for concurrent use; merges happen on the request goroutine.
type ChunkSet struct {
	chunks []*domain.Chunk
	index  map[string]int
}

func NewChunkSet() *ChunkSet {
	return &ChunkSet{index: make(map[string]int)}
}

// Merge adds passages retrieved for query. A passage whose fingerprint was
// already seen only gains query in its provenance. Returns the number of
// new chunks.
func (s *ChunkSet) Merge(query string, passages []domain.RetrievedPassage) int {
	added := 0
	for _, p := range passages {
		fp := Fingerprint(p.Text)
		if i, ok := s.index[fp]; ok {
			existing := s.chunks[i]
			if !containsString(existing.Provenance, query) {
				existing.Provenance = append(existing.Provenance, query)
			}
			continue
		}
		s.index[fp] = len(s.chunks)
		s.chunks = append(s.chunks, &domain.Chunk{
			Fingerprint: fp,
			SourceID:    p.SourceID,
			Score:       p.Score,
			Text:        p.Text,
			Provenance:  []string{query},
		})
		added++
	}
	return added
}

func (s *ChunkSet) Len() int {
	return len(s.chunks)
}

// Chunks returns copies of the accumulated chunks in first-seen order.
func (s *ChunkSet) Chunks() []domain.Chunk {
	out := make([]domain.Chunk, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = *c
		out[i].Provenance = append([]string(nil), c.Provenance...)
	}
	return out
}

// IterativeRetriever executes sub-queries against the retrieval collaborator.
type IterativeRetriever struct {
	retriever   domain.Retriever
	parallelism int
	logger      *zap.Logger
}

func NewIterativeRetriever(retriever domain.Retriever, parallelism int, logger *zap.Logger) *IterativeRetriever {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &IterativeRetriever{retriever: retriever, parallelism: parallelism, logger: logger}
}

// RetrieveOne runs a single sub-query. Failures wrap ErrRetrievalUnavailable.
func (r *IterativeRetriever) RetrieveOne(ctx context.Context, query string, topK int) ([]domain.RetrievedPassage, error) {
	if r.retriever == nil {
		return nil, domain.ErrRetrievalUnavailable
	}
	passages, err := r.retriever.Search(ctx, query, topK)
	if err != nil {
		r.logger.Warn("retrieval failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalUnavailable, err)
	}
	return passages, nil
}

// RetrieveAll runs queries concurrently and merges the results into set in
// submission order, so provenance does not depend on completion order.
// Successful results are merged even when another query failed; the first
// failure is returned.
func (r *IterativeRetriever) RetrieveAll(ctx context.Context, queries []string, topK int, set *ChunkSet) error {
	results := make([][]domain.RetrievedPassage, len(queries))
	errs := make([]error, len(queries))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			results[i], errs[i] = r.RetrieveOne(gCtx, q, topK)
			return nil
		})
	}
	_ = g.Wait()

	var firstErr error
	for i, q := range queries {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		set.Merge(q, results[i])
	}
	return firstErr
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
