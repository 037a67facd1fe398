package domain

import (
	"github.com/google/uuid"
)

type EntityType string

const (
	EntityCondition EntityType = "condition"
	EntityRule      EntityType = "rule"
	EntityOutcome   EntityType = "outcome"
	EntityThreshold EntityType = "threshold"
	EntityProcess   EntityType = "process"
	EntityCriterion EntityType = "criterion"
	EntityException EntityType = "exception"
	EntityAction    EntityType = "action"
)

func ValidEntityType(e string) bool {
	switch EntityType(e) {
	case EntityCondition, EntityRule, EntityOutcome, EntityThreshold,
		EntityProcess, EntityCriterion, EntityException, EntityAction:
		return true
	}
	return false
}

type RelationType string

const (
	RelationImplies     RelationType = "implies"
	RelationLeadsTo     RelationType = "leads_to"
	RelationRequires    RelationType = "requires"
	RelationPrevents    RelationType = "prevents"
	RelationContradicts RelationType = "contradicts"
	RelationAlternative RelationType = "alternative"
)

func ValidRelationType(r string) bool {
	switch RelationType(r) {
	case RelationImplies, RelationLeadsTo, RelationRequires,
		RelationPrevents, RelationContradicts, RelationAlternative:
		return true
	}
	return false
}

type GraphEntity struct {
	ID         uuid.UUID      `json:"id"`
	Type       EntityType     `json:"type"`
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Sources    []string       `json:"sources"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphRelation must reference entities present in the graph on both ends.
type GraphRelation struct {
	ID         uuid.UUID    `json:"id"`
	Type       RelationType `json:"type"`
	SourceID   uuid.UUID    `json:"source_id"`
	TargetID   uuid.UUID    `json:"target_id"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning,omitempty"`
}

// ExtractedEntity is one raw entity tuple supplied by the extraction
// collaborator. Key is only meaningful within a single extraction batch.
type ExtractedEntity struct {
	Key        string         `json:"key"`
	Type       EntityType     `json:"type"`
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ExtractedRelation references entities by their batch keys.
type ExtractedRelation struct {
	Source     string       `json:"source"`
	Target     string       `json:"target"`
	Type       RelationType `json:"type"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning,omitempty"`
}

type GraphExtraction struct {
	SourceDocumentID string              `json:"source_document_id"`
	Entities         []ExtractedEntity   `json:"entities"`
	Relations        []ExtractedRelation `json:"relations"`
}

type IngestResult struct {
	EntitiesCreated   int         `json:"entities_created"`
	EntitiesMerged    int         `json:"entities_merged"`
	EntitiesRejected  int         `json:"entities_rejected"`
	RelationsCreated  int         `json:"relations_created"`
	RelationsRejected int         `json:"relations_rejected"`
	EntityIDs         []uuid.UUID `json:"entity_ids"`
}

type PathStep struct {
	Entity GraphEntity `json:"entity"`
	// Via is the relation used to reach Entity; nil for the start entity.
	Via *GraphRelation `json:"via,omitempty"`
}

type ReasoningPath struct {
	Steps []PathStep `json:"steps"`
}

// Len is the number of relations traversed.
func (p ReasoningPath) Len() int {
	if len(p.Steps) == 0 {
		return 0
	}
	return len(p.Steps) - 1
}

type GraphStats struct {
	EntityCount     int                  `json:"entity_count"`
	RelationCount   int                  `json:"relation_count"`
	EntitiesByType  map[EntityType]int   `json:"entities_by_type"`
	RelationsByType map[RelationType]int `json:"relations_by_type"`
}

// GraphSnapshot is the exportable form of the knowledge graph.
type GraphSnapshot struct {
	Entities  map[uuid.UUID]GraphEntity   `json:"entities"`
	Relations map[uuid.UUID]GraphRelation `json:"relations"`
	Stats     GraphStats                  `json:"stats"`
}

// ComputeStats counts the snapshot's entities and relations by type.
func (s *GraphSnapshot) ComputeStats() GraphStats {
	stats := GraphStats{
		EntityCount:     len(s.Entities),
		RelationCount:   len(s.Relations),
		EntitiesByType:  map[EntityType]int{},
		RelationsByType: map[RelationType]int{},
	}
	for _, e := range s.Entities {
		stats.EntitiesByType[e.Type]++
	}
	for _, r := range s.Relations {
		stats.RelationsByType[r.Type]++
	}
	return stats
}
