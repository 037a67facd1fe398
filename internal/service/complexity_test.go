package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/Harshitk-cp/reliefpath/internal/llm"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRuleBasedComplexity(t *testing.T) {
	s := NewRuleBasedComplexityStrategy()

	tests := []struct {
		name       string
		question   string
		want       domain.Complexity
		subQueries int
	}{
		{"single short clause", "Is my debt under the limit?", domain.ComplexitySimple, 1},
		{"two clauses", "What is the income limit and what assets are exempt?", domain.ComplexityModerate, 2},
		{"long single clause", "How is the monthly surplus income figure calculated for someone who is paid weekly with overtime?", domain.ComplexityModerate, 1},
		{"comparison keyword", "Should I compare bankruptcy versus an IVA?", domain.ComplexityComplex, 1},
		{"three clauses", "What is the debt limit? What is the income limit? What assets are exempt?", domain.ComplexityComplex, 3},
		{"more than three clauses capped", "What is the fee; who decides; how long does it last; can I appeal?", domain.ComplexityComplex, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := s.Assess(context.Background(), tt.question)
			assert.Equal(t, tt.want, a.Complexity)
			assert.Len(t, a.SubQueries, tt.subQueries)
			assert.False(t, a.Fallback)
		})
	}
}

func TestRuleBasedComplexity_DoesNotSplitInsideWords(t *testing.T) {
	s := NewRuleBasedComplexityStrategy()

	a := s.Assess(context.Background(), "Do I understand the debt limit correctly?")

	assert.Equal(t, domain.ComplexitySimple, a.Complexity)
	assert.Equal(t, []string{"Do I understand the debt limit correctly"}, a.SubQueries)
}

func TestLLMComplexityStrategy_UsesModelAssessment(t *testing.T) {
	mock := llm.NewMockClient()
	mock.ClassifyComplexityResponse = &domain.ComplexityAssessment{
		Complexity: domain.ComplexityComplex,
		SubQueries: []string{"a", "b", "c"},
	}
	s := NewLLMComplexityStrategy(mock, time.Second, zap.NewNop())

	a := s.Assess(context.Background(), "question")

	assert.Equal(t, domain.ComplexityComplex, a.Complexity)
	assert.Equal(t, []string{"a", "b", "c"}, a.SubQueries)
	assert.Equal(t, []string{"question"}, mock.ClassifyComplexityCalls)
}

func TestLLMComplexityStrategy_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(m *llm.MockClient)
		reason string
	}{
		{
			name: "unparsable output",
			setup: func(m *llm.MockClient) {
				m.ClassifyComplexityError = fmt.Errorf("%w: bad json", domain.ErrModelUnparsable)
			},
			reason: FallbackReasonUnparsable,
		},
		{
			name: "provider error",
			setup: func(m *llm.MockClient) {
				m.ClassifyComplexityError = errors.New("503 from provider")
			},
			reason: FallbackReasonModelError,
		},
		{
			name: "nil response",
			setup: func(m *llm.MockClient) {
				m.ClassifyComplexityResponse = nil
			},
			reason: FallbackReasonUnparsable,
		},
		{
			name: "timeout",
			setup: func(m *llm.MockClient) {
				m.Block = true
			},
			reason: FallbackReasonTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockClient()
			tt.setup(mock)
			s := NewLLMComplexityStrategy(mock, 20*time.Millisecond, zap.NewNop())

			a := s.Assess(context.Background(), "Can I get a DRO?")

			assert.Equal(t, domain.ComplexityModerate, a.Complexity)
			assert.Equal(t, []string{"Can I get a DRO?"}, a.SubQueries)
			assert.True(t, a.Fallback)
			assert.Equal(t, tt.reason, a.FallbackReason)
		})
	}
}

func TestIterationBudgetMonotonic(t *testing.T) {
	for limit := 1; limit <= 3; limit++ {
		simple := domain.ComplexitySimple.IterationBudget(limit)
		moderate := domain.ComplexityModerate.IterationBudget(limit)
		complexBudget := domain.ComplexityComplex.IterationBudget(limit)

		assert.LessOrEqual(t, simple, moderate, "limit %d", limit)
		assert.LessOrEqual(t, moderate, complexBudget, "limit %d", limit)
		assert.LessOrEqual(t, complexBudget, limit, "limit %d", limit)
	}

	assert.Equal(t, 1, domain.ComplexitySimple.IterationBudget(3))
	assert.Equal(t, 2, domain.ComplexityModerate.IterationBudget(3))
	assert.Equal(t, 3, domain.ComplexityComplex.IterationBudget(3))
}

func TestBuildSearchPlan(t *testing.T) {
	a := domain.ComplexityAssessment{
		Complexity: domain.ComplexityComplex,
		SubQueries: []string{"one", "two", "three"},
	}

	plan := BuildSearchPlan(a, 2, 5)

	assert.Equal(t, 2, plan.IterationBudget)
	assert.Equal(t, []string{"one", "two"}, plan.SubQueries)
	assert.Equal(t, 5, plan.TopK)
	assert.Equal(t, domain.ComplexityComplex, plan.Complexity)
}
