package store

import (
	"context"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type EpisodeStore struct {
	db *pgxpool.Pool
}

func NewEpisodeStore(db *pgxpool.Pool) *EpisodeStore {
	return &EpisodeStore{db: db}
}

func (s *EpisodeStore) Create(ctx context.Context, e *domain.EpisodeSummary) error {
	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO episode_summaries (character_id, content, event_count, period_start, period_end, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		e.CharacterID, e.Content, e.EventCount, e.PeriodStart, e.PeriodEnd, embedding,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *EpisodeStore) ListByCharacter(ctx context.Context, characterID uuid.UUID) ([]domain.EpisodeSummary, error) {
	return s.list(ctx,
		`SELECT id, character_id, content, event_count, period_start, period_end, created_at
		 FROM episode_summaries
		 WHERE character_id = $1 ORDER BY period_start`,
		characterID)
}

func (s *EpisodeStore) SearchByEmbedding(ctx context.Context, characterID uuid.UUID, embedding []float32, limit int) ([]domain.EpisodeSummary, error) {
	return s.list(ctx,
		`SELECT id, character_id, content, event_count, period_start, period_end, created_at
		 FROM episode_summaries
		 WHERE character_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2 LIMIT $3`,
		characterID, pgvector.NewVector(embedding), limit)
}

func (s *EpisodeStore) list(ctx context.Context, query string, args ...any) ([]domain.EpisodeSummary, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []domain.EpisodeSummary
	for rows.Next() {
		var e domain.EpisodeSummary
		if err := rows.Scan(&e.ID, &e.CharacterID, &e.Content, &e.EventCount, &e.PeriodStart, &e.PeriodEnd, &e.CreatedAt); err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}
