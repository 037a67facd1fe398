package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/Harshitk-cp/reliefpath/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestOrchestrator(r domain.Retriever, model *llm.MockClient, cfg OrchestratorConfig) *Orchestrator {
	logger := zap.NewNop()
	return NewOrchestrator(
		NewRuleBasedComplexityStrategy(),
		NewIterativeRetriever(r, 3, logger),
		NewAnswerSynthesizer(model, time.Second, 8, logger),
		cfg,
		logger,
	)
}

func stepNames(steps []domain.ReasoningStep) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

func TestOrchestrator_LinearRun(t *testing.T) {
	r := newFakeRetriever()
	r.passages["What is the income limit"] = []domain.RetrievedPassage{passage("dro-guide", "Surplus income must be under 75.")}
	r.passages["what assets are exempt"] = []domain.RetrievedPassage{passage("dro-assets", "A vehicle under 4000 is exempt.")}
	model := llm.NewMockClient()

	o := newTestOrchestrator(r, model, OrchestratorConfig{})
	result, err := o.Run(context.Background(), domain.QueryRequest{
		Question:      "What is the income limit and what assets are exempt?",
		ShowReasoning: true,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ComplexityModerate, result.Complexity)
	assert.Equal(t, 2, result.IterationsPlanned)
	assert.Equal(t, 2, result.IterationsUsed)
	assert.Equal(t, "Mock answer", result.Answer)
	assert.Equal(t, []string{"dro-guide", "dro-assets"}, result.Sources)
	assert.Equal(t, domain.ConfidenceMedium, result.Confidence)
	assert.Equal(t, []string{"ANALYZE", "PLAN", "RETRIEVE", "SYNTHESIZE"}, stepNames(result.ReasoningSteps))
	assert.Equal(t, []string{"What is the income limit", "what assets are exempt"}, r.Calls())
}

func TestOrchestrator_HidesStepsUnlessRequested(t *testing.T) {
	r := newFakeRetriever()
	o := newTestOrchestrator(r, llm.NewMockClient(), OrchestratorConfig{})

	result, err := o.Run(context.Background(), domain.QueryRequest{Question: "Is my debt under the limit?"})

	require.NoError(t, err)
	assert.Nil(t, result.ReasoningSteps)
}

func TestOrchestrator_RejectsEmptyQuestion(t *testing.T) {
	o := newTestOrchestrator(newFakeRetriever(), llm.NewMockClient(), OrchestratorConfig{})

	result, err := o.Run(context.Background(), domain.QueryRequest{Question: "   "})

	assert.ErrorIs(t, err, domain.ErrInvalidQuestion)
	assert.Nil(t, result)
}

func TestOrchestrator_CallerCapsIterations(t *testing.T) {
	r := newFakeRetriever()
	o := newTestOrchestrator(r, llm.NewMockClient(), OrchestratorConfig{})

	result, err := o.Run(context.Background(), domain.QueryRequest{
		Question:      "What is the debt limit? What is the income limit? What assets are exempt?",
		MaxIterations: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ComplexityComplex, result.Complexity)
	assert.Equal(t, 1, result.IterationsPlanned)
	assert.Equal(t, 1, result.IterationsUsed)
}

func TestOrchestrator_WidensToRawQuestion(t *testing.T) {
	question := "What is the debt limit and what income is allowed?"
	r := newFakeRetriever()
	r.passages[question] = []domain.RetrievedPassage{passage("dro-guide", "Debts up to 50000 qualify.")}
	model := llm.NewMockClient()

	o := newTestOrchestrator(r, model, OrchestratorConfig{})
	result, err := o.Run(context.Background(), domain.QueryRequest{Question: question, ShowReasoning: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"What is the debt limit", question}, r.Calls())
	assert.Equal(t, 2, result.IterationsUsed)
	assert.Contains(t, stepNames(result.ReasoningSteps), StepWiden)
	assert.Equal(t, []string{"dro-guide"}, result.Sources)
	require.Len(t, model.SynthesizeCalls, 1)
	assert.Equal(t, []string{question}, model.SynthesizeCalls[0][0].Provenance)
}

func TestOrchestrator_DeadlineStopsRetrievalEarly(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	r := newFakeRetriever()
	r.passages["What is the debt limit"] = []domain.RetrievedPassage{passage("a", "Debts up to 50000.")}
	r.passages["What is the income limit"] = []domain.RetrievedPassage{passage("b", "Income under 75.")}
	r.onSearch = func(string) { clock.Advance(time.Minute) }
	model := llm.NewMockClient()

	o := newTestOrchestrator(r, model, OrchestratorConfig{RequestDeadline: 90 * time.Second}).WithClock(clock.Now)
	result, err := o.Run(context.Background(), domain.QueryRequest{
		Question:      "What is the debt limit? What is the income limit? What assets are exempt?",
		ShowReasoning: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.IterationsPlanned)
	assert.Equal(t, 2, result.IterationsUsed)
	assert.Less(t, result.IterationsUsed, result.IterationsPlanned)
	assert.Equal(t, []string{"ANALYZE", "PLAN", StepDeadlineExceeded, "RETRIEVE", "SYNTHESIZE"}, stepNames(result.ReasoningSteps))
	assert.Equal(t, "Mock answer", result.Answer)
	require.Len(t, model.SynthesizeCalls, 1)
	assert.Len(t, model.SynthesizeCalls[0], 2)
}

func TestOrchestrator_RetrievalFailureForcesLowConfidence(t *testing.T) {
	r := newFakeRetriever()
	r.passages["What is the income limit"] = []domain.RetrievedPassage{passage("a", "Income under 75.")}
	r.errs["what assets are exempt"] = errors.New("index offline")
	model := llm.NewMockClient()
	model.SynthesizeResponse = &domain.SynthesisOutput{
		Answer:     "Income must be under 75.",
		Agreements: []domain.SourceAgreement{{Claim: "x", Sources: []string{"a", "b"}}},
	}

	o := newTestOrchestrator(r, model, OrchestratorConfig{})
	result, err := o.Run(context.Background(), domain.QueryRequest{
		Question:      "What is the income limit and what assets are exempt?",
		ShowReasoning: true,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ConfidenceLow, result.Confidence)
	assert.Equal(t, "Income must be under 75.", result.Answer)
	assert.Contains(t, stepNames(result.ReasoningSteps), StepRetrievalFailed)
}

func TestOrchestrator_ParallelRetrieval(t *testing.T) {
	r := newFakeRetriever()
	r.passages["What is the debt limit"] = []domain.RetrievedPassage{passage("a", "Debts up to 50000.")}
	r.passages["What is the income limit"] = []domain.RetrievedPassage{passage("b", "Income under 75.")}
	r.passages["What assets are exempt"] = []domain.RetrievedPassage{passage("c", "Vehicles under 4000.")}
	r.onSearch = func(q string) {
		if q == "What is the debt limit" {
			time.Sleep(20 * time.Millisecond)
		}
	}

	o := newTestOrchestrator(r, llm.NewMockClient(), OrchestratorConfig{ParallelRetrieval: true})
	result, err := o.Run(context.Background(), domain.QueryRequest{
		Question: "What is the debt limit? What is the income limit? What assets are exempt?",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.IterationsUsed)
	assert.Equal(t, []string{"a", "b", "c"}, result.Sources)
}

func TestOrchestrator_ClassifierFallbackIsRecorded(t *testing.T) {
	model := llm.NewMockClient()
	model.ClassifyComplexityError = errors.New("provider down")
	logger := zap.NewNop()
	r := newFakeRetriever()

	o := NewOrchestrator(
		NewLLMComplexityStrategy(model, time.Second, logger),
		NewIterativeRetriever(r, 1, logger),
		NewAnswerSynthesizer(model, time.Second, 8, logger),
		OrchestratorConfig{},
		logger,
	)
	result, err := o.Run(context.Background(), domain.QueryRequest{Question: "Can I get a DRO?", ShowReasoning: true})

	require.NoError(t, err)
	assert.Equal(t, domain.ComplexityModerate, result.Complexity)
	assert.Equal(t, []string{"Can I get a DRO?"}, r.Calls())
	analyze := result.ReasoningSteps[0]
	assert.Contains(t, analyze.Description, "fallback")
	assert.Equal(t, domain.ConfidenceLow, result.Confidence)
}
