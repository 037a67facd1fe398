package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"go.uber.org/zap"
)

const DefaultTopic = "debt_relief_order"

// EligibilityService answers an eligibility request: symbolic evaluation of
// the topic's criteria, one retrieval and synthesis pass for narrative
// context, and a graph trail per criterion.
type EligibilityService struct {
	criteria    domain.CriteriaStore
	evaluator   *EligibilityEvaluator
	retriever   *IterativeRetriever
	synthesizer *AnswerSynthesizer
	graph       *KnowledgeGraph
	topK        int
	maxDepth    int
	logger      *zap.Logger
}

func NewEligibilityService(
	criteria domain.CriteriaStore,
	evaluator *EligibilityEvaluator,
	retriever *IterativeRetriever,
	synthesizer *AnswerSynthesizer,
	graph *KnowledgeGraph,
	topK, maxDepth int,
	logger *zap.Logger,
) *EligibilityService {
	if topK <= 0 {
		topK = 4
	}
	return &EligibilityService{
		criteria:    criteria,
		evaluator:   evaluator,
		retriever:   retriever,
		synthesizer: synthesizer,
		graph:       graph,
		topK:        topK,
		maxDepth:    maxDepth,
		logger:      logger,
	}
}

func (s *EligibilityService) Check(ctx context.Context, req domain.EligibilityRequest) (*domain.EligibilityResponse, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = DefaultTopic
	}

	set, err := s.criteria.GetByTopic(ctx, topic)
	if err != nil {
		return nil, err
	}

	result, err := s.evaluator.Evaluate(set, req.ClientValues)
	if err != nil {
		s.logger.Error("invalid criteria definition", zap.String("topic", topic), zap.Error(err))
		return nil, err
	}

	narrative := s.narrative(ctx, topic, req.Question)
	result.Sources = narrative.Sources

	resp := &domain.EligibilityResponse{
		Answer:            composeEligibilityAnswer(result, narrative),
		EligibilityResult: *result,
		AnswerConfidence:  narrative.Confidence,
	}
	if s.graph != nil {
		resp.ReasoningTrail = NewPathReasoner(s.graph.Snapshot(), s.maxDepth).TrailForCriteria(result.Criteria)
	}

	s.logger.Info("eligibility evaluated",
		zap.String("topic", topic),
		zap.String("overall_result", string(result.OverallResult)),
		zap.Int("near_misses", len(result.NearMisses)),
		zap.Float64("confidence", result.Confidence))

	return resp, nil
}

func (s *EligibilityService) narrative(ctx context.Context, topic, question string) domain.SynthesizedAnswer {
	query := strings.TrimSpace(question)
	if query == "" {
		query = fmt.Sprintf("eligibility criteria for %s", strings.ReplaceAll(topic, "_", " "))
	}

	chunks := NewChunkSet()
	retrievalFailed := false
	if s.retriever != nil {
		passages, err := s.retriever.RetrieveOne(ctx, query, s.topK)
		if err != nil {
			retrievalFailed = errors.Is(err, domain.ErrRetrievalUnavailable)
		} else {
			chunks.Merge(query, passages)
		}
	}

	if s.synthesizer == nil {
		return extractiveAnswer(chunks.Chunks(), FallbackReasonModelError)
	}
	answer := s.synthesizer.Synthesize(ctx, query, chunks.Chunks())
	if retrievalFailed {
		answer.Confidence = domain.ConfidenceLow
		answer.Degraded = true
		answer.DegradedReason = "retrieval_unavailable"
	}
	return answer
}

// composeEligibilityAnswer puts the deterministic outcome first so the
// narrative never overrides the numeric evaluation.
func composeEligibilityAnswer(result *domain.EligibilityResult, narrative domain.SynthesizedAnswer) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall result: %s.\n", result.OverallResult))
	for _, c := range result.Criteria {
		sb.WriteString(fmt.Sprintf("- %s: %s. %s\n", c.Tag, c.Status, c.Explanation))
	}
	for _, r := range result.Recommendations {
		sb.WriteString(fmt.Sprintf("Recommendation (%s): %s\n", r.Priority, r.Action))
	}
	if text := strings.TrimSpace(narrative.Text); text != "" {
		sb.WriteString("\n")
		sb.WriteString(text)
	}
	return strings.TrimSpace(sb.String())
}
