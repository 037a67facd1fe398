package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"go.uber.org/zap"
)

type OrchestratorState string

const (
	StateAnalyze    OrchestratorState = "ANALYZE"
	StatePlan       OrchestratorState = "PLAN"
	StateRetrieve   OrchestratorState = "RETRIEVE"
	StateSynthesize OrchestratorState = "SYNTHESIZE"
	StateDone       OrchestratorState = "DONE"
)

// Step names recorded for degraded paths inside RETRIEVE.
const (
	StepWiden            = "WIDEN"
	StepRetrievalFailed  = "RETRIEVAL_FAILED"
	StepDeadlineExceeded = "DEADLINE_EXCEEDED"
)

type OrchestratorConfig struct {
	MaxIterations     int
	TopK              int
	RequestDeadline   time.Duration
	ParallelRetrieval bool
}

// Orchestrator sequences one agentic query through its states. Each state
// is a transition over an explicit run record; nothing is shared between
// requests except the collaborators.
type Orchestrator struct {
	classifier  ComplexityStrategy
	retriever   *IterativeRetriever
	synthesizer *AnswerSynthesizer
	cfg         OrchestratorConfig
	logger      *zap.Logger
	now         func() time.Time
}

func NewOrchestrator(
	classifier ComplexityStrategy,
	retriever *IterativeRetriever,
	synthesizer *AnswerSynthesizer,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.MaxIterations <= 0 || cfg.MaxIterations > 3 {
		cfg.MaxIterations = 3
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	return &Orchestrator{
		classifier:  classifier,
		retriever:   retriever,
		synthesizer: synthesizer,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the time source used for step timestamps and the
// request deadline.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

type queryRun struct {
	question      string
	maxIterations int
	topK          int
	deadline      time.Time

	state      OrchestratorState
	assessment domain.ComplexityAssessment
	plan       domain.SearchPlan
	chunks     *ChunkSet
	steps      []domain.ReasoningStep

	iterationsUsed  int
	retrievalFailed bool
	deadlineHit     bool
	answer          domain.SynthesizedAnswer
}

func (o *Orchestrator) Run(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.ErrInvalidQuestion
	}

	run := &queryRun{
		question:      question,
		maxIterations: o.cfg.MaxIterations,
		topK:          o.cfg.TopK,
		state:         StateAnalyze,
		chunks:        NewChunkSet(),
	}
	if req.MaxIterations > 0 && req.MaxIterations < run.maxIterations {
		run.maxIterations = req.MaxIterations
	}
	if req.TopK > 0 {
		run.topK = req.TopK
	}
	if o.cfg.RequestDeadline > 0 {
		run.deadline = o.now().Add(o.cfg.RequestDeadline)
	}

	for run.state != StateDone {
		run.state = o.transition(ctx, run)
	}

	result := &domain.QueryResult{
		Answer:            run.answer.Text,
		Sources:           run.answer.Sources,
		IterationsUsed:    run.iterationsUsed,
		IterationsPlanned: run.plan.IterationBudget,
		Complexity:        run.plan.Complexity,
		Confidence:        run.answer.Confidence,
	}
	if req.ShowReasoning {
		result.ReasoningSteps = run.steps
	}

	o.logger.Info("query answered",
		zap.String("complexity", string(result.Complexity)),
		zap.Int("iterations_used", result.IterationsUsed),
		zap.Int("iterations_planned", result.IterationsPlanned),
		zap.String("confidence", string(result.Confidence)))

	return result, nil
}

// transition executes the work of the current state and returns the next.
func (o *Orchestrator) transition(ctx context.Context, run *queryRun) OrchestratorState {
	switch run.state {
	case StateAnalyze:
		run.assessment = o.classifier.Assess(ctx, run.question)
		desc := fmt.Sprintf("classified question as %s", run.assessment.Complexity)
		if run.assessment.Fallback {
			desc += fmt.Sprintf(" (fallback: %s)", run.assessment.FallbackReason)
		}
		o.record(run, string(StateAnalyze), desc, run.assessment)
		return StatePlan

	case StatePlan:
		run.plan = BuildSearchPlan(run.assessment, run.maxIterations, run.topK)
		o.record(run, string(StatePlan),
			fmt.Sprintf("planned %d sub-queries within %d iterations", len(run.plan.SubQueries), run.plan.IterationBudget),
			run.plan)
		return StateRetrieve

	case StateRetrieve:
		if o.cfg.ParallelRetrieval && len(run.plan.SubQueries) > 1 {
			o.retrieveParallel(ctx, run)
		} else {
			o.retrieveSequential(ctx, run)
		}
		o.record(run, string(StateRetrieve),
			fmt.Sprintf("retrieved %d unique chunks in %d of %d iterations", run.chunks.Len(), run.iterationsUsed, run.plan.IterationBudget),
			map[string]any{
				"chunks":             run.chunks.Len(),
				"iterations_used":    run.iterationsUsed,
				"iterations_planned": run.plan.IterationBudget,
			})
		return StateSynthesize

	case StateSynthesize:
		run.answer = o.synthesizer.Synthesize(ctx, run.question, run.chunks.Chunks())
		if run.retrievalFailed {
			run.answer.Confidence = domain.ConfidenceLow
		}
		desc := fmt.Sprintf("synthesized answer with %s confidence from %d sources", run.answer.Confidence, len(run.answer.Sources))
		if run.answer.Degraded {
			desc += fmt.Sprintf(" (degraded: %s)", run.answer.DegradedReason)
		}
		o.record(run, string(StateSynthesize), desc, map[string]any{
			"confidence": run.answer.Confidence,
			"sources":    run.answer.Sources,
			"degraded":   run.answer.Degraded,
		})
		return StateDone
	}
	return StateDone
}

func (o *Orchestrator) retrieveSequential(ctx context.Context, run *queryRun) {
	widened := false
	for i := 0; i < run.plan.IterationBudget; i++ {
		if o.pastDeadline(ctx, run) {
			return
		}

		var query string
		switch {
		case widened:
			query = run.question
		case i < len(run.plan.SubQueries):
			query = run.plan.SubQueries[i]
		default:
			return
		}

		passages, err := o.retriever.RetrieveOne(ctx, query, run.topK)
		run.iterationsUsed++
		if err != nil {
			run.retrievalFailed = true
			o.record(run, StepRetrievalFailed, fmt.Sprintf("retrieval failed for %q; continuing with accumulated context", query),
				map[string]any{"query": query, "error": err.Error()})
			return
		}
		added := run.chunks.Merge(query, passages)

		switch {
		case widened && added == 0:
			return
		case i == 0 && run.chunks.Len() == 0 && query != run.question && run.plan.IterationBudget > 1:
			widened = true
			o.record(run, StepWiden, "first sub-query returned no chunks; reusing the raw question",
				map[string]any{"query": query})
		case run.plan.Complexity == domain.ComplexitySimple && run.chunks.Len() > 0:
			return
		}
	}
}

func (o *Orchestrator) retrieveParallel(ctx context.Context, run *queryRun) {
	if o.pastDeadline(ctx, run) {
		return
	}
	err := o.retriever.RetrieveAll(ctx, run.plan.SubQueries, run.topK, run.chunks)
	run.iterationsUsed = len(run.plan.SubQueries)
	if err != nil {
		run.retrievalFailed = true
		o.record(run, StepRetrievalFailed, "one or more parallel sub-queries failed; continuing with accumulated context",
			map[string]any{"error": err.Error()})
		return
	}
	if run.chunks.Len() > 0 || run.iterationsUsed >= run.plan.IterationBudget || o.pastDeadline(ctx, run) {
		return
	}

	o.record(run, StepWiden, "sub-queries returned no chunks; reusing the raw question", nil)
	passages, err := o.retriever.RetrieveOne(ctx, run.question, run.topK)
	run.iterationsUsed++
	if err != nil {
		run.retrievalFailed = true
		o.record(run, StepRetrievalFailed, "retrieval failed for the raw question",
			map[string]any{"error": err.Error()})
		return
	}
	run.chunks.Merge(run.question, passages)
}

func (o *Orchestrator) pastDeadline(ctx context.Context, run *queryRun) bool {
	exceeded := ctx.Err() != nil || (!run.deadline.IsZero() && !o.now().Before(run.deadline))
	if exceeded && !run.deadlineHit {
		run.deadlineHit = true
		o.record(run, StepDeadlineExceeded, "request deadline reached; synthesizing from accumulated context",
			map[string]any{"iterations_used": run.iterationsUsed})
		o.logger.Warn("request deadline reached during retrieval",
			zap.Int("iterations_used", run.iterationsUsed),
			zap.Int("iterations_planned", run.plan.IterationBudget))
	}
	return exceeded
}

func (o *Orchestrator) record(run *queryRun, name, description string, result any) {
	run.steps = append(run.steps, domain.ReasoningStep{
		Name:        name,
		Description: description,
		Result:      result,
		Timestamp:   o.now(),
	})
}
