package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"go.uber.org/zap"
)

const (
	FallbackReasonTimeout    = "timeout"
	FallbackReasonUnparsable = "unparsable"
	FallbackReasonModelError = "model_error"
)

// ComplexityStrategy labels a question and proposes sub-queries. It never
// fails: implementations fall back to a moderate assessment.
type ComplexityStrategy interface {
	Assess(ctx context.Context, question string) domain.ComplexityAssessment
}

// FallbackAssessment is used whenever classification is unavailable.
func FallbackAssessment(question, reason string) domain.ComplexityAssessment {
	return domain.ComplexityAssessment{
		Complexity:        domain.ComplexityModerate,
		SubQueries:        []string{question},
		RequiresSynthesis: true,
		Fallback:          true,
		FallbackReason:    reason,
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FallbackReasonTimeout
	case errors.Is(err, domain.ErrModelUnparsable):
		return FallbackReasonUnparsable
	}
	return FallbackReasonModelError
}

// LLMComplexityStrategy asks the language model for the assessment, bounded
// by a per-call timeout.
type LLMComplexityStrategy struct {
	llm     domain.LLMClient
	timeout time.Duration
	logger  *zap.Logger
}

func NewLLMComplexityStrategy(llm domain.LLMClient, timeout time.Duration, logger *zap.Logger) *LLMComplexityStrategy {
	return &LLMComplexityStrategy{llm: llm, timeout: timeout, logger: logger}
}

func (s *LLMComplexityStrategy) Assess(ctx context.Context, question string) domain.ComplexityAssessment {
	if s.llm == nil {
		return FallbackAssessment(question, FallbackReasonModelError)
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	assessment, err := s.llm.ClassifyComplexity(callCtx, question)
	if err == nil && assessment == nil {
		err = domain.ErrModelUnparsable
	}
	if err != nil {
		reason := fallbackReason(err)
		s.logger.Warn("complexity classification fell back to moderate",
			zap.String("reason", reason),
			zap.Error(err))
		return FallbackAssessment(question, reason)
	}
	return *assessment
}

var (
	clauseSplitter     = regexp.MustCompile(`(?i)\?|;|\band also\b|\band\b`)
	comparisonKeywords = []string{"compare", "versus", " vs ", "difference", "better", "alternative", "instead", "which route"}
)

// RuleBasedComplexityStrategy is a deterministic classifier driven by
// clause count and comparison keywords.
type RuleBasedComplexityStrategy struct {
	SimpleMaxWords int
}

func NewRuleBasedComplexityStrategy() *RuleBasedComplexityStrategy {
	return &RuleBasedComplexityStrategy{SimpleMaxWords: 12}
}

func (s *RuleBasedComplexityStrategy) Assess(_ context.Context, question string) domain.ComplexityAssessment {
	var clauses []string
	for _, part := range clauseSplitter.Split(question, -1) {
		if part = strings.TrimSpace(part); len(strings.Fields(part)) >= 2 {
			clauses = append(clauses, part)
		}
	}
	if len(clauses) == 0 {
		clauses = []string{strings.TrimSpace(question)}
	}

	lower := " " + strings.ToLower(question) + " "
	comparative := false
	for _, kw := range comparisonKeywords {
		if strings.Contains(lower, kw) {
			comparative = true
			break
		}
	}

	complexity := domain.ComplexityModerate
	switch {
	case comparative || len(clauses) >= 3:
		complexity = domain.ComplexityComplex
	case len(clauses) == 1 && len(strings.Fields(question)) <= s.SimpleMaxWords:
		complexity = domain.ComplexitySimple
	}

	if len(clauses) > 3 {
		clauses = clauses[:3]
	}

	return domain.ComplexityAssessment{
		Complexity:        complexity,
		SubQueries:        clauses,
		RequiresSynthesis: complexity != domain.ComplexitySimple,
	}
}

// BuildSearchPlan derives the plan once per request. Sub-queries beyond the
// iteration budget are dropped.
func BuildSearchPlan(a domain.ComplexityAssessment, maxIterations, topK int) domain.SearchPlan {
	budget := a.Complexity.IterationBudget(maxIterations)
	queries := a.SubQueries
	if len(queries) > budget {
		queries = queries[:budget]
	}
	return domain.SearchPlan{
		SubQueries:      append([]string(nil), queries...),
		IterationBudget: budget,
		TopK:            topK,
		Complexity:      a.Complexity,
	}
}
