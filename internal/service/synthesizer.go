package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"go.uber.org/zap"
)

const NoEvidenceAnswer = "No supporting passages were found for this question, so it cannot be answered from the available sources."

var uncertaintyMarkers = []string{
	"i don't know",
	"i do not know",
	"insufficient information",
	"not enough information",
	"unclear",
	"cannot be determined",
	"cannot determine",
}

// AnswerSynthesizer turns accumulated chunks into one cited answer with a
// confidence label. It never fails: model problems degrade the answer.
type AnswerSynthesizer struct {
	llm       domain.LLMClient
	timeout   time.Duration
	maxChunks int
	logger    *zap.Logger
}

func NewAnswerSynthesizer(llm domain.LLMClient, timeout time.Duration, maxChunks int, logger *zap.Logger) *AnswerSynthesizer {
	return &AnswerSynthesizer{llm: llm, timeout: timeout, maxChunks: maxChunks, logger: logger}
}

func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, chunks []domain.Chunk) domain.SynthesizedAnswer {
	if len(chunks) == 0 {
		return domain.SynthesizedAnswer{
			Text:       NoEvidenceAnswer,
			Sources:    []string{},
			Confidence: domain.ConfidenceLow,
		}
	}
	if s.maxChunks > 0 && len(chunks) > s.maxChunks {
		chunks = chunks[:s.maxChunks]
	}

	if s.llm == nil {
		return extractiveAnswer(chunks, FallbackReasonModelError)
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.llm.Synthesize(callCtx, question, chunks)
	switch {
	case err == nil && out != nil:
		return s.fromOutput(out, chunks, "")
	case errors.Is(err, domain.ErrModelUnparsable) && out != nil && strings.TrimSpace(out.Answer) != "":
		s.logger.Warn("synthesis output unparsable, using raw text", zap.Error(err))
		raw := &domain.SynthesisOutput{Answer: out.Answer}
		return s.fromOutput(raw, chunks, FallbackReasonUnparsable)
	}

	if err == nil {
		err = domain.ErrModelUnparsable
	}
	reason := fallbackReason(err)
	s.logger.Warn("synthesis fell back to extractive answer",
		zap.String("reason", reason),
		zap.Error(err))
	return extractiveAnswer(chunks, reason)
}

func (s *AnswerSynthesizer) fromOutput(out *domain.SynthesisOutput, chunks []domain.Chunk, degradedReason string) domain.SynthesizedAnswer {
	known := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		known[c.SourceID] = true
	}

	sources := filterSources(out.SourcesUsed, known)
	if len(sources) == 0 {
		sources = chunkSources(chunks)
	}

	return domain.SynthesizedAnswer{
		Text:           strings.TrimSpace(out.Answer),
		Sources:        sources,
		Confidence:     answerConfidence(out, known),
		Degraded:       degradedReason != "",
		DegradedReason: degradedReason,
	}
}

// answerConfidence is HIGH when two distinct known sources agree on a claim,
// LOW when the model flags uncertainty, MEDIUM otherwise.
func answerConfidence(out *domain.SynthesisOutput, known map[string]bool) domain.ConfidenceLabel {
	if out.Uncertain || containsUncertainty(out.Answer) {
		return domain.ConfidenceLow
	}
	for _, a := range out.Agreements {
		if len(filterSources(a.Sources, known)) >= 2 {
			return domain.ConfidenceHigh
		}
	}
	return domain.ConfidenceMedium
}

func containsUncertainty(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range uncertaintyMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// extractiveAnswer concatenates chunk texts when no model answer is usable.
func extractiveAnswer(chunks []domain.Chunk, reason string) domain.SynthesizedAnswer {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, "["+c.SourceID+"] "+strings.TrimSpace(c.Text))
	}
	return domain.SynthesizedAnswer{
		Text:           strings.Join(parts, "\n\n"),
		Sources:        chunkSources(chunks),
		Confidence:     domain.ConfidenceLow,
		Degraded:       true,
		DegradedReason: reason,
	}
}

func filterSources(ids []string, known map[string]bool) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, id := range ids {
		if known[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func chunkSources(chunks []domain.Chunk) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, c := range chunks {
		if !seen[c.SourceID] {
			seen[c.SourceID] = true
			out = append(out, c.SourceID)
		}
	}
	return out
}
