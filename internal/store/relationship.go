package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RelationshipStore struct {
	db *pgxpool.Pool
}

func NewRelationshipStore(db *pgxpool.Pool) *RelationshipStore {
	return &RelationshipStore{db: db}
}

func (s *RelationshipStore) Create(ctx context.Context, r *domain.Relationship) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO relationships (character_id, source_entity_id, target_entity_id, type, strength, context)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, established_at, last_interaction`,
		r.CharacterID, r.SourceEntityID, r.TargetEntityID, r.Type, r.Strength, r.Context,
	).Scan(&r.ID, &r.EstablishedAt, &r.LastInteraction)
}

func (s *RelationshipStore) Get(ctx context.Context, characterID, sourceID, targetID uuid.UUID, relType domain.RelationType) (*domain.Relationship, error) {
	r := &domain.Relationship{}
	err := s.db.QueryRow(ctx,
		`SELECT id, character_id, source_entity_id, target_entity_id, type, strength, context, established_at, last_interaction
		 FROM relationships
		 WHERE character_id = $1 AND source_entity_id = $2 AND target_entity_id = $3 AND type = $4`,
		characterID, sourceID, targetID, relType,
	).Scan(&r.ID, &r.CharacterID, &r.SourceEntityID, &r.TargetEntityID, &r.Type, &r.Strength, &r.Context, &r.EstablishedAt, &r.LastInteraction)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *RelationshipStore) UpdateStrength(ctx context.Context, id uuid.UUID, strength float32, lastInteraction time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE relationships SET strength = $2, last_interaction = $3 WHERE id = $1`,
		id, strength, lastInteraction,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Query runs a filtered scan over a character's relationships. Temporal
// filters are plain WHERE clauses; no index structure is assumed.
func (s *RelationshipStore) Query(ctx context.Context, filter domain.RelationshipFilter) ([]domain.Relationship, error) {
	query := `SELECT id, character_id, source_entity_id, target_entity_id, type, strength, context, established_at, last_interaction
		 FROM relationships WHERE character_id = $1`
	args := []any{filter.CharacterID}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		query += fmt.Sprintf(" AND (source_entity_id = $%d OR target_entity_id = $%d)", len(args), len(args))
	}
	if filter.EstablishedBefore != nil {
		args = append(args, *filter.EstablishedBefore)
		query += fmt.Sprintf(" AND established_at < $%d", len(args))
	}
	if filter.MinStrength != nil {
		args = append(args, *filter.MinStrength)
		query += fmt.Sprintf(" AND strength >= $%d", len(args))
	}
	query += " ORDER BY established_at"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []domain.Relationship
	for rows.Next() {
		var r domain.Relationship
		if err := rows.Scan(&r.ID, &r.CharacterID, &r.SourceEntityID, &r.TargetEntityID, &r.Type, &r.Strength, &r.Context, &r.EstablishedAt, &r.LastInteraction); err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}
