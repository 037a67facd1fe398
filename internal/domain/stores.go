package domain

import (
	"context"
)

// Retriever is the read-only retrieval collaborator.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]RetrievedPassage, error)
}

// CriteriaStore returns the criteria declared for a topic tag.
type CriteriaStore interface {
	GetByTopic(ctx context.Context, topic string) (*CriteriaSet, error)
	ListTopics(ctx context.Context) ([]string, error)
}

// GraphStore persists knowledge graph snapshots.
type GraphStore interface {
	Load(ctx context.Context) (*GraphSnapshot, error)
	Save(ctx context.Context, snapshot *GraphSnapshot) error
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLMClient is the language-model completion collaborator. Implementations
// return errors wrapping ErrModelUnparsable when output fails structural parsing.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	ClassifyComplexity(ctx context.Context, question string) (*ComplexityAssessment, error)
	Synthesize(ctx context.Context, question string, chunks []Chunk) (*SynthesisOutput, error)
	ExtractRuleGraph(ctx context.Context, documentID, text string) (*GraphExtraction, error)
}
