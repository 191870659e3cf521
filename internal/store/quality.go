package store

import (
	"context"
	"errors"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QualityStore struct {
	db *pgxpool.Pool
}

func NewQualityStore(db *pgxpool.Pool) *QualityStore {
	return &QualityStore{db: db}
}

func (s *QualityStore) Get(ctx context.Context, characterID uuid.UUID, name string) (*domain.Quality, error) {
	q := &domain.Quality{}
	err := s.db.QueryRow(ctx,
		`SELECT id, character_id, name, type, bool_value, int_value, string_value, created_at, updated_at
		 FROM qualities WHERE character_id = $1 AND name = $2`,
		characterID, name,
	).Scan(&q.ID, &q.CharacterID, &q.Name, &q.Value.Type, &q.Value.Bool, &q.Value.Int, &q.Value.Str, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

func (s *QualityStore) List(ctx context.Context, characterID uuid.UUID) ([]domain.Quality, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, character_id, name, type, bool_value, int_value, string_value, created_at, updated_at
		 FROM qualities WHERE character_id = $1 ORDER BY name`,
		characterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var qualities []domain.Quality
	for rows.Next() {
		var q domain.Quality
		if err := rows.Scan(&q.ID, &q.CharacterID, &q.Name, &q.Value.Type, &q.Value.Bool, &q.Value.Int, &q.Value.Str, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		qualities = append(qualities, q)
	}
	return qualities, rows.Err()
}

// Set creates the quality on first write and overwrites on conflict.
// Qualities are never deleted.
func (s *QualityStore) Set(ctx context.Context, q *domain.Quality) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO qualities (character_id, name, type, bool_value, int_value, string_value)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (character_id, name) DO UPDATE
		 SET type = EXCLUDED.type,
		     bool_value = EXCLUDED.bool_value,
		     int_value = EXCLUDED.int_value,
		     string_value = EXCLUDED.string_value,
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		q.CharacterID, q.Name, q.Value.Type, q.Value.Bool, q.Value.Int, q.Value.Str,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}
