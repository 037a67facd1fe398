package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CriteriaStore struct {
	db *pgxpool.Pool
}

func NewCriteriaStore(db *pgxpool.Pool) *CriteriaStore {
	return &CriteriaStore{db: db}
}

func (s *CriteriaStore) GetByTopic(ctx context.Context, topic string) (*domain.CriteriaSet, error) {
	set := &domain.CriteriaSet{Topic: topic}
	err := s.db.QueryRow(ctx,
		`SELECT description FROM criteria_topics WHERE topic = $1`,
		topic,
	).Scan(&set.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCriteriaNotFound, topic)
		}
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT tag, label, operator, threshold, threshold_name, tolerance, unit
		 FROM criteria
		 WHERE topic = $1
		 ORDER BY position ASC`,
		topic,
	)
	if err != nil {
		return nil, fmt.Errorf("criteria query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.CriterionNode
		if err := rows.Scan(&c.Tag, &c.Label, &c.Operator, &c.Threshold, &c.ThresholdName, &c.Tolerance, &c.Unit); err != nil {
			return nil, fmt.Errorf("scan criterion row: %w", err)
		}
		set.Criteria = append(set.Criteria, c)
	}
	return set, rows.Err()
}

func (s *CriteriaStore) ListTopics(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT topic FROM criteria_topics ORDER BY topic`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// Upsert replaces the criteria of one topic atomically.
func (s *CriteriaStore) Upsert(ctx context.Context, set *domain.CriteriaSet) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO criteria_topics (topic, description) VALUES ($1, $2)
		 ON CONFLICT (topic) DO UPDATE SET description = EXCLUDED.description, updated_at = NOW()`,
		set.Topic, set.Description,
	); err != nil {
		return fmt.Errorf("upsert topic: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM criteria WHERE topic = $1`, set.Topic); err != nil {
		return fmt.Errorf("clear criteria: %w", err)
	}

	batch := &pgx.Batch{}
	for i, c := range set.Criteria {
		batch.Queue(
			`INSERT INTO criteria (topic, position, tag, label, operator, threshold, threshold_name, tolerance, unit)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			set.Topic, i, c.Tag, c.Label, string(c.Operator), c.Threshold, c.ThresholdName, c.Tolerance, c.Unit,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert criteria: %w", err)
	}

	return tx.Commit(ctx)
}
