package service

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockRetriever mocks the Retriever interface.
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Search(ctx context.Context, query string, topK int) ([]domain.RetrievedPassage, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedPassage), args.Error(1)
}

// fakeRetriever serves canned passages per query and records every call.
type fakeRetriever struct {
	mu       sync.Mutex
	passages map[string][]domain.RetrievedPassage
	errs     map[string]error
	onSearch func(query string)
	calls    []string
}

func newFakeRetriever() *fakeRetriever {
	return &fakeRetriever{
		passages: map[string][]domain.RetrievedPassage{},
		errs:     map[string]error{},
	}
}

func (f *fakeRetriever) Search(ctx context.Context, query string, topK int) ([]domain.RetrievedPassage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	hook := f.onSearch
	f.mu.Unlock()

	if hook != nil {
		hook(query)
	}
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	p := f.passages[query]
	if len(p) > topK {
		p = p[:topK]
	}
	return p, nil
}

func (f *fakeRetriever) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type memCriteriaStore struct {
	sets map[string]*domain.CriteriaSet
}

func (m *memCriteriaStore) GetByTopic(ctx context.Context, topic string) (*domain.CriteriaSet, error) {
	if s, ok := m.sets[topic]; ok {
		return s, nil
	}
	return nil, domain.ErrCriteriaNotFound
}

func (m *memCriteriaStore) ListTopics(ctx context.Context) ([]string, error) {
	topics := make([]string, 0, len(m.sets))
	for t := range m.sets {
		topics = append(topics, t)
	}
	return topics, nil
}

type memGraphStore struct {
	saved *domain.GraphSnapshot
}

func (m *memGraphStore) Load(ctx context.Context) (*domain.GraphSnapshot, error) {
	if m.saved == nil {
		return &domain.GraphSnapshot{}, nil
	}
	return m.saved, nil
}

func (m *memGraphStore) Save(ctx context.Context, snapshot *domain.GraphSnapshot) error {
	m.saved = snapshot
	return nil
}

func ptr(v float64) *float64 {
	return &v
}

func passage(source, text string) domain.RetrievedPassage {
	return domain.RetrievedPassage{SourceID: source, Score: 0.9, Text: text}
}

// debtReliefCriteria mirrors the debt relief order thresholds.
func debtReliefCriteria() *domain.CriteriaSet {
	return &domain.CriteriaSet{
		Topic: "debt_relief_order",
		Criteria: []domain.CriterionNode{
			{Tag: "debt", Operator: domain.OpLessOrEqual, Threshold: 50000, ThresholdName: "dro_debt_limit", Tolerance: ptr(2000)},
			{Tag: "income", Operator: domain.OpLess, Threshold: 75, ThresholdName: "dro_surplus_income_limit"},
			{Tag: "assets", Operator: domain.OpLess, Threshold: 2000, ThresholdName: "dro_asset_limit"},
		},
	}
}
