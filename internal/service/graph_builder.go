package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultMergeThreshold = 0.8

// LabelSimilarity is the token-set overlap (Jaccard) of two labels after
// lowercasing and splitting on anything that is not a letter or digit.
func LabelSimilarity(a, b string) float64 {
	ta, tb := labelTokens(a), labelTokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if tb[t] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func labelTokens(label string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[f] = true
	}
	return out
}

// KnowledgeGraph holds the rule graph. Ingestion and merges take the write
// lock, so only one ingestion runs at a time; readers work on snapshots.
type KnowledgeGraph struct {
	mu sync.RWMutex
	// saveMu orders persistence so a stale snapshot never commits after a newer one.
	saveMu sync.Mutex

	entities  map[uuid.UUID]*domain.GraphEntity
	order     []uuid.UUID
	relations map[uuid.UUID]*domain.GraphRelation

	mergeThreshold float64
	store          domain.GraphStore
	llm            domain.LLMClient
	logger         *zap.Logger
}

func NewKnowledgeGraph(mergeThreshold float64, store domain.GraphStore, llm domain.LLMClient, logger *zap.Logger) *KnowledgeGraph {
	if mergeThreshold <= 0 || mergeThreshold > 1 {
		mergeThreshold = DefaultMergeThreshold
	}
	return &KnowledgeGraph{
		entities:       make(map[uuid.UUID]*domain.GraphEntity),
		relations:      make(map[uuid.UUID]*domain.GraphRelation),
		mergeThreshold: mergeThreshold,
		store:          store,
		llm:            llm,
		logger:         logger,
	}
}

// ExtractFromDocument asks the extraction collaborator for rule tuples and
// ingests them.
func (g *KnowledgeGraph) ExtractFromDocument(ctx context.Context, documentID, text string) (*domain.IngestResult, error) {
	if g.llm == nil {
		return nil, fmt.Errorf("extract rule graph: no language model configured")
	}
	extraction, err := g.llm.ExtractRuleGraph(ctx, documentID, text)
	if err != nil {
		return nil, fmt.Errorf("extract rule graph: %w", err)
	}
	if extraction == nil {
		extraction = &domain.GraphExtraction{}
	}
	extraction.SourceDocumentID = documentID
	return g.Ingest(extraction), nil
}

// Ingest adds one extraction batch. Entities similar to an existing one are
// merged into it; relations with unknown endpoints are rejected. Within a
// batch each entity key binds once: entities with an empty or repeated key
// are rejected.
func (g *KnowledgeGraph) Ingest(extraction *domain.GraphExtraction) *domain.IngestResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := &domain.IngestResult{EntityIDs: []uuid.UUID{}}
	keyToID := make(map[string]uuid.UUID, len(extraction.Entities))

	for _, e := range extraction.Entities {
		if strings.TrimSpace(e.Label) == "" || !domain.ValidEntityType(string(e.Type)) {
			result.EntitiesRejected++
			continue
		}
		if _, dup := keyToID[e.Key]; dup || strings.TrimSpace(e.Key) == "" {
			result.EntitiesRejected++
			g.logger.Warn("rejected entity with empty or duplicate key",
				zap.String("document_id", extraction.SourceDocumentID),
				zap.String("key", e.Key),
				zap.String("label", e.Label))
			continue
		}
		incoming := domain.GraphEntity{
			Type:       e.Type,
			Label:      strings.TrimSpace(e.Label),
			Confidence: clampUnit(e.Confidence),
			Sources:    nonEmpty(extraction.SourceDocumentID),
			Properties: e.Properties,
		}

		if existing := g.findSimilar(incoming.Label, uuid.Nil); existing != nil {
			absorb(existing, incoming)
			keyToID[e.Key] = existing.ID
			result.EntitiesMerged++
			result.EntityIDs = append(result.EntityIDs, existing.ID)
			continue
		}

		incoming.ID = uuid.New()
		if incoming.Properties == nil {
			incoming.Properties = map[string]any{}
		}
		g.entities[incoming.ID] = &incoming
		g.order = append(g.order, incoming.ID)
		keyToID[e.Key] = incoming.ID
		result.EntitiesCreated++
		result.EntityIDs = append(result.EntityIDs, incoming.ID)
	}

	for _, r := range extraction.Relations {
		src, okSrc := keyToID[r.Source]
		dst, okDst := keyToID[r.Target]
		if !okSrc || !okDst || !domain.ValidRelationType(string(r.Type)) {
			result.RelationsRejected++
			g.logger.Debug("rejected relation",
				zap.String("source", r.Source),
				zap.String("target", r.Target),
				zap.String("type", string(r.Type)))
			continue
		}
		rel := domain.GraphRelation{
			Type:       r.Type,
			SourceID:   src,
			TargetID:   dst,
			Confidence: clampUnit(r.Confidence),
			Reasoning:  r.Reasoning,
		}
		if g.addRelation(rel) {
			result.RelationsCreated++
		} else {
			result.RelationsRejected++
		}
	}

	g.logger.Info("ingested rule graph extraction",
		zap.String("document_id", extraction.SourceDocumentID),
		zap.Int("entities_created", result.EntitiesCreated),
		zap.Int("entities_merged", result.EntitiesMerged),
		zap.Int("entities_rejected", result.EntitiesRejected),
		zap.Int("relations_created", result.RelationsCreated),
		zap.Int("relations_rejected", result.RelationsRejected))

	return result
}

// AddRelation inserts a relation between two existing entities.
func (g *KnowledgeGraph) AddRelation(rel domain.GraphRelation) (*domain.GraphRelation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.entities[rel.SourceID] == nil || g.entities[rel.TargetID] == nil {
		return nil, domain.ErrDanglingRelation
	}
	if !domain.ValidRelationType(string(rel.Type)) {
		return nil, fmt.Errorf("unknown relation type %q", rel.Type)
	}
	rel.ID = uuid.Nil
	rel.Confidence = clampUnit(rel.Confidence)
	g.addRelation(rel)
	stored := *g.matchingRelation(rel)
	return &stored, nil
}

// MergeEntities folds drop into keep and re-points every relation that
// referenced drop.
func (g *KnowledgeGraph) MergeEntities(keepID, dropID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.merge(keepID, dropID)
}

// Consolidate merges every pair of entities whose labels meet the merge
// threshold, earliest entity surviving. Returns the number of merges.
func (g *KnowledgeGraph) Consolidate() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	merged := 0
	for i := 0; i < len(g.order); i++ {
		keep := g.entities[g.order[i]]
		for j := i + 1; j < len(g.order); {
			other := g.entities[g.order[j]]
			if LabelSimilarity(keep.Label, other.Label) >= g.mergeThreshold {
				_ = g.merge(keep.ID, other.ID)
				merged++
				continue
			}
			j++
		}
	}
	return merged
}

func (g *KnowledgeGraph) merge(keepID, dropID uuid.UUID) error {
	if keepID == dropID {
		return nil
	}
	keep, drop := g.entities[keepID], g.entities[dropID]
	if keep == nil || drop == nil {
		return domain.ErrEntityNotFound
	}

	absorb(keep, *drop)
	delete(g.entities, dropID)
	for i, id := range g.order {
		if id == dropID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	var repointed []domain.GraphRelation
	for id, rel := range g.relations {
		if rel.SourceID != dropID && rel.TargetID != dropID {
			continue
		}
		r := *rel
		if r.SourceID == dropID {
			r.SourceID = keepID
		}
		if r.TargetID == dropID {
			r.TargetID = keepID
		}
		delete(g.relations, id)
		repointed = append(repointed, r)
	}
	for _, r := range repointed {
		g.addRelation(r)
	}
	return nil
}

// addRelation stores rel unless it is a self-loop. A relation with the same
// endpoints and type as an existing one only raises its confidence.
// Reports whether a new relation was created.
func (g *KnowledgeGraph) addRelation(rel domain.GraphRelation) bool {
	if rel.SourceID == rel.TargetID {
		return false
	}
	if existing := g.matchingRelation(rel); existing != nil {
		existing.Confidence = math.Max(existing.Confidence, rel.Confidence)
		if existing.Reasoning == "" {
			existing.Reasoning = rel.Reasoning
		}
		return false
	}
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	g.relations[rel.ID] = &rel
	return true
}

func (g *KnowledgeGraph) matchingRelation(rel domain.GraphRelation) *domain.GraphRelation {
	for _, r := range g.relations {
		if r.SourceID == rel.SourceID && r.TargetID == rel.TargetID && r.Type == rel.Type {
			return r
		}
	}
	return nil
}

// findSimilar returns the best existing entity meeting the merge threshold.
// Ties go to the earliest inserted entity.
func (g *KnowledgeGraph) findSimilar(label string, exclude uuid.UUID) *domain.GraphEntity {
	var best *domain.GraphEntity
	bestScore := 0.0
	for _, id := range g.order {
		if id == exclude {
			continue
		}
		e := g.entities[id]
		if s := LabelSimilarity(label, e.Label); s >= g.mergeThreshold && s > bestScore {
			best, bestScore = e, s
		}
	}
	return best
}

// absorb folds other into target: higher confidence, union of sources,
// properties missing on target are copied over.
func absorb(target *domain.GraphEntity, other domain.GraphEntity) {
	target.Confidence = math.Max(target.Confidence, other.Confidence)
	for _, s := range other.Sources {
		if !containsString(target.Sources, s) {
			target.Sources = append(target.Sources, s)
		}
	}
	if target.Properties == nil {
		target.Properties = map[string]any{}
	}
	for k, v := range other.Properties {
		if _, ok := target.Properties[k]; !ok {
			target.Properties[k] = v
		}
	}
}

// Entity returns a copy of one entity.
func (g *KnowledgeGraph) Entity(id uuid.UUID) (domain.GraphEntity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.entities[id]
	if !ok {
		return domain.GraphEntity{}, false
	}
	return copyEntity(*e), true
}

// Snapshot returns an independent copy of the graph with summary statistics.
func (g *KnowledgeGraph) Snapshot() *domain.GraphSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := &domain.GraphSnapshot{
		Entities:  make(map[uuid.UUID]domain.GraphEntity, len(g.entities)),
		Relations: make(map[uuid.UUID]domain.GraphRelation, len(g.relations)),
	}
	for id, e := range g.entities {
		snap.Entities[id] = copyEntity(*e)
	}
	for id, r := range g.relations {
		snap.Relations[id] = *r
	}
	snap.Stats = snap.ComputeStats()
	return snap
}

func (g *KnowledgeGraph) Stats() domain.GraphStats {
	return g.Snapshot().Stats
}

// Restore replaces the graph with snap. Relations whose endpoints are not in
// the snapshot are dropped.
func (g *KnowledgeGraph) Restore(snap *domain.GraphSnapshot) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entities = make(map[uuid.UUID]*domain.GraphEntity, len(snap.Entities))
	g.relations = make(map[uuid.UUID]*domain.GraphRelation, len(snap.Relations))
	g.order = g.order[:0]

	for _, id := range sortedEntityIDs(snap.Entities) {
		e := copyEntity(snap.Entities[id])
		g.entities[id] = &e
		g.order = append(g.order, id)
	}

	dropped := 0
	for id, r := range snap.Relations {
		if g.entities[r.SourceID] == nil || g.entities[r.TargetID] == nil {
			dropped++
			continue
		}
		rel := r
		g.relations[id] = &rel
	}
	return dropped
}

// Load restores the graph from the configured store.
func (g *KnowledgeGraph) Load(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	snap, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	if dropped := g.Restore(snap); dropped > 0 {
		g.logger.Warn("dropped dangling relations while loading graph", zap.Int("count", dropped))
	}
	return nil
}

// Save persists the current snapshot to the configured store. Concurrent
// saves are serialized and each one snapshots after the previous commit.
func (g *KnowledgeGraph) Save(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	g.saveMu.Lock()
	defer g.saveMu.Unlock()
	if err := g.store.Save(ctx, g.Snapshot()); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	return nil
}

func copyEntity(e domain.GraphEntity) domain.GraphEntity {
	e.Sources = append([]string(nil), e.Sources...)
	props := make(map[string]any, len(e.Properties))
	for k, v := range e.Properties {
		props[k] = v
	}
	e.Properties = props
	return e
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func nonEmpty(s string) []string {
	if s == "" {
		return []string{}
	}
	return []string{s}
}
