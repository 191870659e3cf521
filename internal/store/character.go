package store

import (
	"context"
	"errors"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CharacterStore struct {
	db *pgxpool.Pool
}

func NewCharacterStore(db *pgxpool.Pool) *CharacterStore {
	return &CharacterStore{db: db}
}

func (s *CharacterStore) Create(ctx context.Context, c *domain.Character) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO characters (name, archetype)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Archetype,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *CharacterStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Character, error) {
	c := &domain.Character{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, archetype, created_at, updated_at
		 FROM characters WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Archetype, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *CharacterStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM characters ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
