package domain

import "time"

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

func ValidComplexity(c string) bool {
	switch Complexity(c) {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex:
		return true
	}
	return false
}

// IterationBudget maps a complexity label to the number of retrieval
// iterations it is allowed, capped by maxIterations when maxIterations > 0.
func (c Complexity) IterationBudget(maxIterations int) int {
	budget := 2
	switch c {
	case ComplexitySimple:
		budget = 1
	case ComplexityComplex:
		budget = 3
	}
	if maxIterations > 0 && budget > maxIterations {
		budget = maxIterations
	}
	return budget
}

type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "HIGH"
	ConfidenceMedium ConfidenceLabel = "MEDIUM"
	ConfidenceLow    ConfidenceLabel = "LOW"
)

// Question is immutable once submitted.
type Question struct {
	Text  string `json:"text"`
	Topic string `json:"topic,omitempty"`
}

type ComplexityAssessment struct {
	Complexity        Complexity `json:"complexity"`
	SubQueries        []string   `json:"sub_queries"`
	RequiresSynthesis bool       `json:"requires_synthesis"`
	Fallback          bool       `json:"fallback,omitempty"`
	FallbackReason    string     `json:"fallback_reason,omitempty"`
}

type SearchPlan struct {
	SubQueries      []string   `json:"sub_queries"`
	IterationBudget int        `json:"iteration_budget"`
	TopK            int        `json:"top_k"`
	Complexity      Complexity `json:"complexity"`
}

// RetrievedPassage is one ranked hit returned by the retrieval collaborator.
type RetrievedPassage struct {
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// Chunk is never mutated after creation except for provenance appends made
// by the ChunkSet that owns it.
type Chunk struct {
	Fingerprint string   `json:"fingerprint"`
	SourceID    string   `json:"source_id"`
	Score       float64  `json:"score"`
	Text        string   `json:"text"`
	Provenance  []string `json:"provenance"`
}

type ReasoningStep struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Result      any       `json:"result,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// SourceAgreement is a claim the model reports as asserted by several sources.
type SourceAgreement struct {
	Claim   string   `json:"claim"`
	Sources []string `json:"sources"`
}

// SynthesisOutput is the structured response of the language model for a
// synthesis prompt, before confidence is derived.
type SynthesisOutput struct {
	Answer      string            `json:"answer"`
	SourcesUsed []string          `json:"sources_used"`
	Agreements  []SourceAgreement `json:"agreements"`
	Uncertain   bool              `json:"uncertain"`
}

type SynthesizedAnswer struct {
	Text           string          `json:"text"`
	Sources        []string        `json:"sources"`
	Confidence     ConfidenceLabel `json:"confidence"`
	Degraded       bool            `json:"degraded,omitempty"`
	DegradedReason string          `json:"degraded_reason,omitempty"`
}

type QueryRequest struct {
	Question      string `json:"question"`
	Topic         string `json:"topic,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
	TopK          int    `json:"top_k,omitempty"`
	ShowReasoning bool   `json:"show_reasoning,omitempty"`
}

type QueryResult struct {
	Answer            string          `json:"answer"`
	Sources           []string        `json:"sources"`
	ReasoningSteps    []ReasoningStep `json:"reasoning_steps,omitempty"`
	IterationsUsed    int             `json:"iterations_used"`
	IterationsPlanned int             `json:"iterations_planned"`
	Complexity        Complexity      `json:"complexity"`
	Confidence        ConfidenceLabel `json:"confidence"`
}
