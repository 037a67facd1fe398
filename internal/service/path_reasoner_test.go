package service

import (
	"testing"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testGraph struct {
	snap *domain.GraphSnapshot
	ids  map[string]uuid.UUID
}

func newSnapshot() *testGraph {
	return &testGraph{
		snap: &domain.GraphSnapshot{
			Entities:  map[uuid.UUID]domain.GraphEntity{},
			Relations: map[uuid.UUID]domain.GraphRelation{},
		},
		ids: map[string]uuid.UUID{},
	}
}

func (g *testGraph) entity(key string, typ domain.EntityType, props map[string]any) *testGraph {
	id := uuid.New()
	g.ids[key] = id
	g.snap.Entities[id] = domain.GraphEntity{ID: id, Type: typ, Label: key, Confidence: 1, Properties: props}
	return g
}

func (g *testGraph) relate(from, to string, typ domain.RelationType) *testGraph {
	id := uuid.New()
	g.snap.Relations[id] = domain.GraphRelation{ID: id, Type: typ, SourceID: g.ids[from], TargetID: g.ids[to], Confidence: 1}
	return g
}

// debt criterion -> threshold -> condition -> outcome, with a shortcut
// debt criterion -> outcome and a cycle between threshold and condition.
func ruleChain() *testGraph {
	return newSnapshot().
		entity("debt criterion", domain.EntityCriterion, map[string]any{"tag": "debt"}).
		entity("debt threshold", domain.EntityThreshold, nil).
		entity("within limit", domain.EntityCondition, nil).
		entity("dro granted", domain.EntityOutcome, nil).
		entity("income criterion", domain.EntityCriterion, nil).
		relate("debt criterion", "debt threshold", domain.RelationRequires).
		relate("debt threshold", "within limit", domain.RelationImplies).
		relate("within limit", "debt threshold", domain.RelationImplies).
		relate("within limit", "dro granted", domain.RelationLeadsTo).
		relate("debt criterion", "dro granted", domain.RelationLeadsTo)
}

func TestFindPaths_ShortestFirst(t *testing.T) {
	g := ruleChain()
	r := NewPathReasoner(g.snap, 4)

	paths, err := r.FindPaths(g.ids["debt criterion"], domain.EntityOutcome, 0)

	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, 1, paths[0].Len())
	assert.Equal(t, 3, paths[1].Len())
	assert.Nil(t, paths[0].Steps[0].Via)
	assert.Equal(t, g.ids["dro granted"], paths[1].Steps[3].Entity.ID)
}

func TestFindPaths_RespectsDepthBound(t *testing.T) {
	g := ruleChain()
	r := NewPathReasoner(g.snap, 4)

	for depth := 1; depth <= 4; depth++ {
		paths, err := r.FindPaths(g.ids["debt criterion"], domain.EntityOutcome, depth)
		require.NoError(t, err)
		for _, p := range paths {
			assert.LessOrEqual(t, p.Len(), depth)
		}
	}

	paths, _ := r.FindPaths(g.ids["debt criterion"], domain.EntityOutcome, 2)
	assert.Len(t, paths, 1)
}

func TestFindPaths_RelationsReferenceEntitiesInPath(t *testing.T) {
	g := ruleChain()
	r := NewPathReasoner(g.snap, 4)

	paths, err := r.FindPaths(g.ids["debt criterion"], domain.EntityOutcome, 4)
	require.NoError(t, err)

	for _, p := range paths {
		seen := map[uuid.UUID]bool{}
		for i, step := range p.Steps {
			assert.False(t, seen[step.Entity.ID], "path revisits %s", step.Entity.Label)
			seen[step.Entity.ID] = true
			if i == 0 {
				continue
			}
			require.NotNil(t, step.Via)
			assert.Equal(t, p.Steps[i-1].Entity.ID, step.Via.SourceID)
			assert.Equal(t, step.Entity.ID, step.Via.TargetID)
		}
	}
}

func TestFindPaths_UnknownStart(t *testing.T) {
	r := NewPathReasoner(ruleChain().snap, 4)
	_, err := r.FindPaths(uuid.New(), domain.EntityOutcome, 4)
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestFindPaths_NoChain(t *testing.T) {
	g := ruleChain()
	r := NewPathReasoner(g.snap, 4)

	paths, err := r.FindPaths(g.ids["income criterion"], domain.EntityOutcome, 4)

	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestTrailForCriteria(t *testing.T) {
	g := ruleChain()
	r := NewPathReasoner(g.snap, 4)

	trails := r.TrailForCriteria([]domain.CriterionResult{
		{Tag: "debt"},
		{Tag: "income"},
		{Tag: "assets"},
	})

	require.Len(t, trails, 3)
	require.NotNil(t, trails[0].Path)
	assert.Equal(t, 1, trails[0].Path.Len())
	assert.Nil(t, trails[1].Path)
	assert.Nil(t, trails[2].Path)
}

func TestFindCriterionEntity_FallsBackToLabel(t *testing.T) {
	g := ruleChain()
	r := NewPathReasoner(g.snap, 4)

	e, ok := r.FindCriterionEntity("income")

	require.True(t, ok)
	assert.Equal(t, g.ids["income criterion"], e.ID)
}

func TestFindPaths_Deterministic(t *testing.T) {
	g := ruleChain()

	first, err := NewPathReasoner(g.snap, 4).FindPaths(g.ids["debt criterion"], domain.EntityOutcome, 0)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := NewPathReasoner(g.snap, 4).FindPaths(g.ids["debt criterion"], domain.EntityOutcome, 0)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("path order changed between runs (-first +again):\n%s", diff)
		}
	}
}
