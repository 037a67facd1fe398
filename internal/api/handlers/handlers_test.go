package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/Harshitk-cp/reliefpath/internal/llm"
	"github.com/Harshitk-cp/reliefpath/internal/service"
	"github.com/Harshitk-cp/reliefpath/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCriteria = `
topics:
  - topic: debt_relief_order
    criteria:
      - tag: debt
        operator: "<="
        threshold: 50000
        tolerance: 2000
      - tag: assets
        operator: "<"
        threshold: 2000
`

type staticRetriever struct {
	passages []domain.RetrievedPassage
}

func (s staticRetriever) Search(ctx context.Context, query string, topK int) ([]domain.RetrievedPassage, error) {
	return s.passages, nil
}

type testServer struct {
	router *chi.Mux
	graph  *service.KnowledgeGraph
	model  *llm.MockClient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	model := llm.NewMockClient()

	criteria, err := store.ParseCriteria([]byte(testCriteria))
	require.NoError(t, err)

	retriever := service.NewIterativeRetriever(staticRetriever{passages: []domain.RetrievedPassage{
		{SourceID: "dro-guide", Score: 0.9, Text: "Debts must not exceed 50000."},
	}}, 1, logger)
	synthesizer := service.NewAnswerSynthesizer(model, time.Second, 8, logger)
	graph := service.NewKnowledgeGraph(0.8, nil, model, logger)
	orchestrator := service.NewOrchestrator(service.NewRuleBasedComplexityStrategy(), retriever, synthesizer, service.OrchestratorConfig{}, logger)
	evaluator := service.NewEligibilityEvaluator(service.DefaultEvaluatorConfig(), service.NewRecommendationEngine())
	eligibility := service.NewEligibilityService(criteria, evaluator, retriever, synthesizer, graph, 4, 4, logger)

	r := chi.NewRouter()
	r.Post("/v1/query", NewQueryHandler(orchestrator).Ask)
	r.Post("/v1/eligibility", NewEligibilityHandler(eligibility, logger).Check)
	ch := NewCriteriaHandler(criteria)
	r.Get("/v1/criteria", ch.List)
	r.Get("/v1/criteria/{topic}", ch.Get)
	gh := NewGraphHandler(graph, 4, logger)
	r.Post("/v1/graph/ingest", gh.Ingest)
	r.Post("/v1/graph/extract", gh.Extract)
	r.Get("/v1/graph/export", gh.Export)
	r.Get("/v1/graph/paths", gh.Paths)

	return &testServer{router: r, graph: graph, model: model}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestQuery(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/v1/query", map[string]any{
		"question":       "What is the debt limit for a DRO?",
		"show_reasoning": true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Mock answer", result.Answer)
	assert.Equal(t, []string{"dro-guide"}, result.Sources)
	assert.Equal(t, 1, result.IterationsUsed)
	assert.NotEmpty(t, result.ReasoningSteps)
}

func TestQuery_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing question", map[string]any{"question": ""}},
		{"too many iterations", map[string]any{"question": "q", "max_iterations": 5}},
		{"negative top_k", map[string]any{"question": "q", "top_k": -1}},
		{"not json", "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/v1/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestEligibility(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/v1/eligibility", map[string]any{
		"question":      "Am I eligible?",
		"topic":         "debt_relief_order",
		"client_values": map[string]any{"debt": 51000, "assets": nil},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.EligibilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.OverallIncomplete, resp.OverallResult)
	require.Len(t, resp.Criteria, 2)
	assert.Equal(t, domain.StatusNearMiss, resp.Criteria[0].Status)
	assert.Equal(t, domain.StatusUnknown, resp.Criteria[1].Status)
	assert.Len(t, resp.Recommendations, 1)
}

func TestEligibility_UnknownTopic(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/v1/eligibility", map[string]any{"topic": "payday"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCriteria(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/v1/criteria/debt_relief_order", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var set domain.CriteriaSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	assert.Len(t, set.Criteria, 2)

	rec = s.do(http.MethodGet, "/v1/criteria/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGraphIngestExportAndPaths(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/v1/graph/ingest", domain.GraphExtraction{
		SourceDocumentID: "dro-guide",
		Entities: []domain.ExtractedEntity{
			{Key: "c", Type: domain.EntityCriterion, Label: "debt within limit", Confidence: 0.9},
			{Key: "o", Type: domain.EntityOutcome, Label: "DRO granted", Confidence: 0.8},
		},
		Relations: []domain.ExtractedRelation{{Source: "c", Target: "o", Type: domain.RelationLeadsTo, Confidence: 0.7}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var ingest domain.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ingest))
	assert.Equal(t, 2, ingest.EntitiesCreated)
	assert.Equal(t, 1, ingest.RelationsCreated)

	rec = s.do(http.MethodGet, "/v1/graph/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.GraphSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.Stats.EntityCount)
	assert.Len(t, snap.Entities, 2)

	rec = s.do(http.MethodGet, "/v1/graph/paths?start_id="+ingest.EntityIDs[0].String()+"&target_type=outcome", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var paths pathsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paths))
	assert.Equal(t, 1, paths.Count)

	rec = s.do(http.MethodGet, "/v1/graph/paths?start_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphExtract(t *testing.T) {
	s := newTestServer(t)
	s.model.ExtractRuleGraphResponse = &domain.GraphExtraction{
		Entities: []domain.ExtractedEntity{{Key: "a", Type: domain.EntityRule, Label: "assets under 2000", Confidence: 0.9}},
	}

	rec := s.do(http.MethodPost, "/v1/graph/extract", map[string]any{
		"source_document_id": "guide",
		"text":               "Assets must be under 2000.",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.graph.Stats().EntityCount)

	rec = s.do(http.MethodPost, "/v1/graph/extract", map[string]any{"source_document_id": "guide"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
