package store

import (
	"context"
	"errors"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EntityStore struct {
	db *pgxpool.Pool
}

func NewEntityStore(db *pgxpool.Pool) *EntityStore {
	return &EntityStore{db: db}
}

func (s *EntityStore) Create(ctx context.Context, e *domain.Entity) error {
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO entities (character_id, type, name, attributes, importance)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, first_mentioned, last_updated`,
		e.CharacterID, e.Type, e.Name, e.Attributes, e.Importance,
	).Scan(&e.ID, &e.FirstMentioned, &e.LastUpdated)
}

func (s *EntityStore) GetByName(ctx context.Context, characterID uuid.UUID, entityType domain.EntityType, name string) (*domain.Entity, error) {
	e := &domain.Entity{}
	err := s.db.QueryRow(ctx,
		`SELECT id, character_id, type, name, attributes, importance, first_mentioned, last_updated
		 FROM entities WHERE character_id = $1 AND type = $2 AND name = $3`,
		characterID, entityType, name,
	).Scan(&e.ID, &e.CharacterID, &e.Type, &e.Name, &e.Attributes, &e.Importance, &e.FirstMentioned, &e.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EntityStore) Update(ctx context.Context, e *domain.Entity) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE entities
		 SET attributes = $2, importance = $3, last_updated = NOW()
		 WHERE id = $1`,
		e.ID, e.Attributes, e.Importance,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EntityStore) ListByCharacter(ctx context.Context, characterID uuid.UUID) ([]domain.Entity, error) {
	return s.list(ctx,
		`SELECT id, character_id, type, name, attributes, importance, first_mentioned, last_updated
		 FROM entities WHERE character_id = $1 ORDER BY importance DESC, name`,
		characterID)
}

func (s *EntityStore) ListByType(ctx context.Context, characterID uuid.UUID, entityType domain.EntityType) ([]domain.Entity, error) {
	return s.list(ctx,
		`SELECT id, character_id, type, name, attributes, importance, first_mentioned, last_updated
		 FROM entities WHERE character_id = $1 AND type = $2 ORDER BY importance DESC, name`,
		characterID, entityType)
}

func (s *EntityStore) list(ctx context.Context, query string, args ...any) ([]domain.Entity, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		var e domain.Entity
		if err := rows.Scan(&e.ID, &e.CharacterID, &e.Type, &e.Name, &e.Attributes, &e.Importance, &e.FirstMentioned, &e.LastUpdated); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}
