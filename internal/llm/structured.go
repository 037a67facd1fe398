package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
)

const maxSubQueries = 3

// completeFunc sends one prompt to a provider and returns the raw text.
type completeFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

func stripFences(result string) string {
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "```json")
	result = strings.TrimPrefix(result, "```")
	result = strings.TrimSuffix(result, "```")
	return strings.TrimSpace(result)
}

func classifyComplexity(ctx context.Context, complete completeFunc, question string) (*domain.ComplexityAssessment, error) {
	result, err := complete(ctx, fmt.Sprintf(complexityPrompt, question), 512)
	if err != nil {
		return nil, fmt.Errorf("classify complexity: %w", err)
	}
	return ParseComplexity(result)
}

// ParseComplexity validates a classifier response.
func ParseComplexity(raw string) (*domain.ComplexityAssessment, error) {
	raw = stripFences(raw)

	var assessment domain.ComplexityAssessment
	if err := json.Unmarshal([]byte(raw), &assessment); err != nil {
		return nil, fmt.Errorf("%w: complexity: %v (raw: %s)", domain.ErrModelUnparsable, err, raw)
	}

	if !domain.ValidComplexity(string(assessment.Complexity)) {
		return nil, fmt.Errorf("%w: unknown complexity %q", domain.ErrModelUnparsable, assessment.Complexity)
	}

	queries := make([]string, 0, len(assessment.SubQueries))
	for _, q := range assessment.SubQueries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no sub-queries", domain.ErrModelUnparsable)
	}
	if len(queries) > maxSubQueries {
		queries = queries[:maxSubQueries]
	}
	assessment.SubQueries = queries

	return &assessment, nil
}

func synthesize(ctx context.Context, complete completeFunc, question string, chunks []domain.Chunk) (*domain.SynthesisOutput, error) {
	var sb strings.Builder
	for i, c := range chunks {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, c.SourceID, c.Text))
	}

	result, err := complete(ctx, fmt.Sprintf(synthesisPrompt, sb.String(), question), 2048)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	return ParseSynthesis(result)
}

// ParseSynthesis validates a synthesis response. On failure the returned
// error wraps ErrModelUnparsable and the output carries the raw text as answer.
func ParseSynthesis(raw string) (*domain.SynthesisOutput, error) {
	cleaned := stripFences(raw)

	var out domain.SynthesisOutput
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return &domain.SynthesisOutput{Answer: strings.TrimSpace(raw)},
			fmt.Errorf("%w: synthesis: %v", domain.ErrModelUnparsable, err)
	}
	if strings.TrimSpace(out.Answer) == "" {
		return &domain.SynthesisOutput{Answer: strings.TrimSpace(raw)},
			fmt.Errorf("%w: synthesis answer empty", domain.ErrModelUnparsable)
	}
	return &out, nil
}

func extractRuleGraph(ctx context.Context, complete completeFunc, documentID, text string) (*domain.GraphExtraction, error) {
	result, err := complete(ctx, fmt.Sprintf(ruleGraphPrompt, documentID, text), 4096)
	if err != nil {
		return nil, fmt.Errorf("extract rule graph: %w", err)
	}
	return ParseGraphExtraction(result, documentID)
}

// ParseGraphExtraction decodes an extraction response and drops tuples
// with unknown entity or relation types.
func ParseGraphExtraction(raw, documentID string) (*domain.GraphExtraction, error) {
	raw = stripFences(raw)

	var extraction domain.GraphExtraction
	if err := json.Unmarshal([]byte(raw), &extraction); err != nil {
		return nil, fmt.Errorf("%w: rule graph: %v (raw: %s)", domain.ErrModelUnparsable, err, raw)
	}
	extraction.SourceDocumentID = documentID

	entities := extraction.Entities[:0]
	for _, e := range extraction.Entities {
		if domain.ValidEntityType(string(e.Type)) && e.Key != "" && e.Label != "" {
			entities = append(entities, e)
		}
	}
	extraction.Entities = entities

	relations := extraction.Relations[:0]
	for _, r := range extraction.Relations {
		if domain.ValidRelationType(string(r.Type)) {
			relations = append(relations, r)
		}
	}
	extraction.Relations = relations

	return &extraction, nil
}
