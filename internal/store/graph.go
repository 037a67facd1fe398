package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphStore persists the knowledge graph as an entity table and a relation
// table. Save replaces both in one transaction.
type GraphStore struct {
	db *pgxpool.Pool
}

func NewGraphStore(db *pgxpool.Pool) *GraphStore {
	return &GraphStore{db: db}
}

func (s *GraphStore) Load(ctx context.Context) (*domain.GraphSnapshot, error) {
	snap := &domain.GraphSnapshot{
		Entities:  map[uuid.UUID]domain.GraphEntity{},
		Relations: map[uuid.UUID]domain.GraphRelation{},
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, type, label, confidence, sources, properties FROM graph_entities`,
	)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	for rows.Next() {
		var e domain.GraphEntity
		if err := rows.Scan(&e.ID, &e.Type, &e.Label, &e.Confidence, &e.Sources, &e.Properties); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan entity row: %w", err)
		}
		snap.Entities[e.ID] = e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(ctx,
		`SELECT id, type, source_id, target_id, confidence, reasoning FROM graph_relations`,
	)
	if err != nil {
		return nil, fmt.Errorf("load relations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r domain.GraphRelation
		if err := rows.Scan(&r.ID, &r.Type, &r.SourceID, &r.TargetID, &r.Confidence, &r.Reasoning); err != nil {
			return nil, fmt.Errorf("scan relation row: %w", err)
		}
		snap.Relations[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snap.Stats = snap.ComputeStats()
	return snap, nil
}

func (s *GraphStore) Save(ctx context.Context, snap *domain.GraphSnapshot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM graph_relations`); err != nil {
		return fmt.Errorf("clear relations: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM graph_entities`); err != nil {
		return fmt.Errorf("clear entities: %w", err)
	}

	entityRows := make([][]any, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		props := e.Properties
		if props == nil {
			props = map[string]any{}
		}
		sources := e.Sources
		if sources == nil {
			sources = []string{}
		}
		entityRows = append(entityRows, []any{e.ID, string(e.Type), e.Label, e.Confidence, sources, props})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"graph_entities"},
		[]string{"id", "type", "label", "confidence", "sources", "properties"},
		pgx.CopyFromRows(entityRows),
	); err != nil {
		return fmt.Errorf("copy entities: %w", err)
	}

	relationRows := make([][]any, 0, len(snap.Relations))
	for _, r := range snap.Relations {
		relationRows = append(relationRows, []any{r.ID, string(r.Type), r.SourceID, r.TargetID, r.Confidence, r.Reasoning})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"graph_relations"},
		[]string{"id", "type", "source_id", "target_id", "confidence", "reasoning"},
		pgx.CopyFromRows(relationRows),
	); err != nil {
		return fmt.Errorf("copy relations: %w", err)
	}

	return tx.Commit(ctx)
}
