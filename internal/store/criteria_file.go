package store

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"gopkg.in/yaml.v3"
)

// CriteriaFile is the on-disk layout of config/criteria.yaml.
type CriteriaFile struct {
	Topics []domain.CriteriaSet `yaml:"topics"`
}

// FileCriteriaStore serves criteria definitions read once from YAML.
type FileCriteriaStore struct {
	sets map[string]*domain.CriteriaSet
}

func LoadCriteriaFile(path string) (*FileCriteriaStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read criteria file: %w", err)
	}
	return ParseCriteria(raw)
}

func ParseCriteria(raw []byte) (*FileCriteriaStore, error) {
	var file CriteriaFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCriteriaDefinition, err)
	}

	s := &FileCriteriaStore{sets: make(map[string]*domain.CriteriaSet, len(file.Topics))}
	for i := range file.Topics {
		set := file.Topics[i]
		if set.Topic == "" {
			return nil, fmt.Errorf("%w: topic %d has no name", domain.ErrInvalidCriteriaDefinition, i)
		}
		if _, dup := s.sets[set.Topic]; dup {
			return nil, fmt.Errorf("%w: duplicate topic %q", domain.ErrInvalidCriteriaDefinition, set.Topic)
		}
		s.sets[set.Topic] = &set
	}
	return s, nil
}

func (s *FileCriteriaStore) GetByTopic(_ context.Context, topic string) (*domain.CriteriaSet, error) {
	set, ok := s.sets[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCriteriaNotFound, topic)
	}
	out := *set
	out.Criteria = append([]domain.CriterionNode(nil), set.Criteria...)
	return &out, nil
}

func (s *FileCriteriaStore) ListTopics(_ context.Context) ([]string, error) {
	topics := make([]string, 0, len(s.sets))
	for t := range s.sets {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics, nil
}

// All returns every topic's criteria in topic order.
func (s *FileCriteriaStore) All() []domain.CriteriaSet {
	topics, _ := s.ListTopics(context.Background())
	out := make([]domain.CriteriaSet, 0, len(topics))
	for _, t := range topics {
		out = append(out, *s.sets[t])
	}
	return out
}
