package llm

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
)

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what each method returns.
type MockClient struct {
	mu sync.Mutex

	CompleteResponse           string
	CompleteError              error
	ClassifyComplexityResponse *domain.ComplexityAssessment
	ClassifyComplexityError    error
	SynthesizeResponse         *domain.SynthesisOutput
	SynthesizeError            error
	ExtractRuleGraphResponse   *domain.GraphExtraction
	ExtractRuleGraphError      error

	// Block, when set, makes every call wait until the context is done.
	Block bool

	// Call tracking for assertions
	CompleteCalls           []string
	ClassifyComplexityCalls []string
	SynthesizeCalls         [][]domain.Chunk
	ExtractRuleGraphCalls   []string
}

func NewMockClient() *MockClient {
	c := &MockClient{}
	c.Reset()
	return c
}

func (c *MockClient) wait(ctx context.Context) error {
	if !c.Block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.CompleteCalls = append(c.CompleteCalls, prompt)
	c.mu.Unlock()
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	if c.CompleteError != nil {
		return "", c.CompleteError
	}
	return c.CompleteResponse, nil
}

func (c *MockClient) ClassifyComplexity(ctx context.Context, question string) (*domain.ComplexityAssessment, error) {
	c.mu.Lock()
	c.ClassifyComplexityCalls = append(c.ClassifyComplexityCalls, question)
	c.mu.Unlock()
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.ClassifyComplexityError != nil {
		return nil, c.ClassifyComplexityError
	}
	return c.ClassifyComplexityResponse, nil
}

func (c *MockClient) Synthesize(ctx context.Context, question string, chunks []domain.Chunk) (*domain.SynthesisOutput, error) {
	c.mu.Lock()
	c.SynthesizeCalls = append(c.SynthesizeCalls, chunks)
	c.mu.Unlock()
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.SynthesizeError != nil {
		return c.SynthesizeResponse, c.SynthesizeError
	}
	return c.SynthesizeResponse, nil
}

func (c *MockClient) ExtractRuleGraph(ctx context.Context, documentID, text string) (*domain.GraphExtraction, error) {
	c.mu.Lock()
	c.ExtractRuleGraphCalls = append(c.ExtractRuleGraphCalls, text)
	c.mu.Unlock()
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.ExtractRuleGraphError != nil {
		return nil, c.ExtractRuleGraphError
	}
	if c.ExtractRuleGraphResponse != nil {
		c.ExtractRuleGraphResponse.SourceDocumentID = documentID
	}
	return c.ExtractRuleGraphResponse, nil
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CompleteResponse = "Mock completion"
	c.CompleteError = nil
	c.ClassifyComplexityResponse = &domain.ComplexityAssessment{
		Complexity:        domain.ComplexityModerate,
		SubQueries:        []string{"mock sub-query"},
		RequiresSynthesis: true,
	}
	c.ClassifyComplexityError = nil
	c.SynthesizeResponse = &domain.SynthesisOutput{
		Answer: "Mock answer",
	}
	c.SynthesizeError = nil
	c.ExtractRuleGraphResponse = &domain.GraphExtraction{}
	c.ExtractRuleGraphError = nil
	c.Block = false

	c.CompleteCalls = nil
	c.ClassifyComplexityCalls = nil
	c.SynthesizeCalls = nil
	c.ExtractRuleGraphCalls = nil
}
