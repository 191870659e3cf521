package store

import (
	"context"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type EventStore struct {
	db *pgxpool.Pool
}

func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, e *domain.NarrativeEvent) error {
	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO narrative_events (character_id, type, content, payload, embedding)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		e.CharacterID, e.Type, e.Content, e.Payload, embedding,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *EventStore) ListWorking(ctx context.Context, characterID uuid.UUID, limit int) ([]domain.NarrativeEvent, error) {
	return s.list(ctx,
		`SELECT id, character_id, type, content, payload, archived, created_at
		 FROM narrative_events
		 WHERE character_id = $1 AND NOT archived
		 ORDER BY created_at DESC LIMIT $2`,
		characterID, limit)
}

func (s *EventStore) ListWorkingOldest(ctx context.Context, characterID uuid.UUID, limit int) ([]domain.NarrativeEvent, error) {
	return s.list(ctx,
		`SELECT id, character_id, type, content, payload, archived, created_at
		 FROM narrative_events
		 WHERE character_id = $1 AND NOT archived
		 ORDER BY created_at ASC LIMIT $2`,
		characterID, limit)
}

func (s *EventStore) CountWorking(ctx context.Context, characterID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM narrative_events WHERE character_id = $1 AND NOT archived`,
		characterID,
	).Scan(&count)
	return count, err
}

// Archive moves events out of the working window. Events are never deleted.
func (s *EventStore) Archive(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx,
		`UPDATE narrative_events SET archived = TRUE WHERE id = ANY($1)`,
		ids,
	)
	return err
}

func (s *EventStore) SearchByEmbedding(ctx context.Context, characterID uuid.UUID, embedding []float32, limit int) ([]domain.NarrativeEvent, error) {
	return s.list(ctx,
		`SELECT id, character_id, type, content, payload, archived, created_at
		 FROM narrative_events
		 WHERE character_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2 LIMIT $3`,
		characterID, pgvector.NewVector(embedding), limit)
}

func (s *EventStore) ListRecent(ctx context.Context, characterID uuid.UUID, limit int) ([]domain.NarrativeEvent, error) {
	return s.list(ctx,
		`SELECT id, character_id, type, content, payload, archived, created_at
		 FROM narrative_events
		 WHERE character_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		characterID, limit)
}

func (s *EventStore) ListCharactersWithWorkingOverflow(ctx context.Context, threshold int) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT character_id FROM narrative_events
		 WHERE NOT archived
		 GROUP BY character_id
		 HAVING COUNT(*) > $1`,
		threshold,
	)
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

func (s *EventStore) list(ctx context.Context, query string, args ...any) ([]domain.NarrativeEvent, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.NarrativeEvent
	for rows.Next() {
		var e domain.NarrativeEvent
		if err := rows.Scan(&e.ID, &e.CharacterID, &e.Type, &e.Content, &e.Payload, &e.Archived, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
