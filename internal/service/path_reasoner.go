package service

import (
	"sort"
	"strings"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/google/uuid"
)

const DefaultMaxPathDepth = 4

// PathReasoner answers path queries over an immutable graph snapshot.
type PathReasoner struct {
	snap     *domain.GraphSnapshot
	maxDepth int
	out      map[uuid.UUID][]domain.GraphRelation
}

func NewPathReasoner(snap *domain.GraphSnapshot, maxDepth int) *PathReasoner {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxPathDepth
	}
	out := make(map[uuid.UUID][]domain.GraphRelation)
	for _, r := range snap.Relations {
		out[r.SourceID] = append(out[r.SourceID], r)
	}
	for id := range out {
		rels := out[id]
		sort.Slice(rels, func(i, j int) bool {
			li, lj := snap.Entities[rels[i].TargetID].Label, snap.Entities[rels[j].TargetID].Label
			if li != lj {
				return li < lj
			}
			return rels[i].ID.String() < rels[j].ID.String()
		})
	}
	return &PathReasoner{snap: snap, maxDepth: maxDepth, out: out}
}

// FindPaths returns every simple path from start to an entity of targetType
// with at most maxDepth relations, shortest first. A path ends at the first
// target-typed entity it reaches. maxDepth <= 0 uses the reasoner default.
func (p *PathReasoner) FindPaths(start uuid.UUID, targetType domain.EntityType, maxDepth int) ([]domain.ReasoningPath, error) {
	startEntity, ok := p.snap.Entities[start]
	if !ok {
		return nil, domain.ErrEntityNotFound
	}
	if maxDepth <= 0 || maxDepth > p.maxDepth {
		maxDepth = p.maxDepth
	}

	type partial struct {
		steps   []domain.PathStep
		visited map[uuid.UUID]bool
	}

	paths := []domain.ReasoningPath{}
	queue := []partial{{
		steps:   []domain.PathStep{{Entity: startEntity}},
		visited: map[uuid.UUID]bool{start: true},
	}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if len(cur.steps)-1 >= maxDepth {
			continue
		}
		last := cur.steps[len(cur.steps)-1].Entity.ID

		for _, rel := range p.out[last] {
			if cur.visited[rel.TargetID] {
				continue
			}
			target, ok := p.snap.Entities[rel.TargetID]
			if !ok {
				continue
			}
			via := rel
			steps := make([]domain.PathStep, len(cur.steps), len(cur.steps)+1)
			copy(steps, cur.steps)
			steps = append(steps, domain.PathStep{Entity: target, Via: &via})

			if target.Type == targetType {
				paths = append(paths, domain.ReasoningPath{Steps: steps})
				continue
			}

			visited := make(map[uuid.UUID]bool, len(cur.visited)+1)
			for id := range cur.visited {
				visited[id] = true
			}
			visited[rel.TargetID] = true
			queue = append(queue, partial{steps: steps, visited: visited})
		}
	}
	return paths, nil
}

// FindCriterionEntity locates the criterion node for a semantic tag, either
// through its "tag" property or a label containing the tag as a token.
func (p *PathReasoner) FindCriterionEntity(tag string) (domain.GraphEntity, bool) {
	tag = strings.ToLower(tag)
	var byLabel *domain.GraphEntity
	for _, id := range sortedEntityIDs(p.snap.Entities) {
		e := p.snap.Entities[id]
		if e.Type != domain.EntityCriterion {
			continue
		}
		if v, ok := e.Properties["tag"].(string); ok && strings.ToLower(v) == tag {
			return e, true
		}
		if byLabel == nil && labelTokens(e.Label)[tag] {
			match := e
			byLabel = &match
		}
	}
	if byLabel != nil {
		return *byLabel, true
	}
	return domain.GraphEntity{}, false
}

// TrailForCriteria gives one trail per evaluated criterion: the shortest
// path from its criterion entity to an outcome, or no path when the graph
// holds no such chain.
func (p *PathReasoner) TrailForCriteria(results []domain.CriterionResult) []domain.CriterionTrail {
	trails := make([]domain.CriterionTrail, 0, len(results))
	for _, r := range results {
		trail := domain.CriterionTrail{Tag: r.Tag}
		if entity, ok := p.FindCriterionEntity(r.Tag); ok {
			if paths, err := p.FindPaths(entity.ID, domain.EntityOutcome, 0); err == nil && len(paths) > 0 {
				path := paths[0]
				trail.Path = &path
			}
		}
		trails = append(trails, trail)
	}
	return trails
}

func sortedEntityIDs(entities map[uuid.UUID]domain.GraphEntity) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
