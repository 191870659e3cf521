package store

import (
	"context"
	"errors"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SummaryStore struct {
	db *pgxpool.Pool
}

func NewSummaryStore(db *pgxpool.Pool) *SummaryStore {
	return &SummaryStore{db: db}
}

func (s *SummaryStore) Get(ctx context.Context, characterID uuid.UUID) (*domain.NarrativeSummary, error) {
	summary := &domain.NarrativeSummary{}
	err := s.db.QueryRow(ctx,
		`SELECT character_id, content, updated_at
		 FROM narrative_summaries WHERE character_id = $1`,
		characterID,
	).Scan(&summary.CharacterID, &summary.Content, &summary.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return summary, nil
}

func (s *SummaryStore) Upsert(ctx context.Context, characterID uuid.UUID, content string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO narrative_summaries (character_id, content)
		 VALUES ($1, $2)
		 ON CONFLICT (character_id) DO UPDATE
		 SET content = EXCLUDED.content, updated_at = NOW()`,
		characterID, content,
	)
	return err
}
