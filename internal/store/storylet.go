package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StoryletStore struct {
	db *pgxpool.Pool
}

func NewStoryletStore(db *pgxpool.Pool) *StoryletStore {
	return &StoryletStore{db: db}
}

func (s *StoryletStore) Create(ctx context.Context, sl *domain.Storylet) error {
	prereqJSON, err := json.Marshal(domain.SpecFromExpr(sl.Prerequisites))
	if err != nil {
		return fmt.Errorf("marshal prerequisites: %w", err)
	}
	specs := make([]domain.EffectSpec, 0, len(sl.Effects))
	for _, e := range sl.Effects {
		specs = append(specs, domain.SpecFromEffect(e))
	}
	effectsJSON, err := json.Marshal(specs)
	if err != nil {
		return fmt.Errorf("marshal effects: %w", err)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO storylets (key, title, type, prerequisites, effects, anchors_theme, urgency, requires_unlock)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (key) DO UPDATE
		 SET title = EXCLUDED.title,
		     type = EXCLUDED.type,
		     prerequisites = EXCLUDED.prerequisites,
		     effects = EXCLUDED.effects,
		     anchors_theme = EXCLUDED.anchors_theme,
		     urgency = EXCLUDED.urgency,
		     requires_unlock = EXCLUDED.requires_unlock
		 RETURNING id, created_at`,
		sl.Key, sl.Title, sl.Type, prereqJSON, effectsJSON, sl.AnchorsTheme, sl.Urgency, sl.RequiresUnlock,
	).Scan(&sl.ID, &sl.CreatedAt)
}

func (s *StoryletStore) GetByKey(ctx context.Context, key string) (*domain.Storylet, error) {
	sl, err := s.scanOne(s.db.QueryRow(ctx,
		`SELECT id, key, title, type, prerequisites, effects, anchors_theme, urgency, requires_unlock, created_at
		 FROM storylets WHERE key = $1`,
		key,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sl, nil
}

func (s *StoryletStore) List(ctx context.Context) ([]domain.Storylet, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, key, title, type, prerequisites, effects, anchors_theme, urgency, requires_unlock, created_at
		 FROM storylets ORDER BY key`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var storylets []domain.Storylet
	for rows.Next() {
		sl, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		storylets = append(storylets, *sl)
	}
	return storylets, rows.Err()
}

func (s *StoryletStore) Unlock(ctx context.Context, characterID uuid.UUID, key string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO storylet_unlocks (character_id, storylet_key)
		 VALUES ($1, $2)
		 ON CONFLICT (character_id, storylet_key) DO NOTHING`,
		characterID, key,
	)
	return err
}

func (s *StoryletStore) ListUnlocked(ctx context.Context, characterID uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT storylet_key FROM storylet_unlocks WHERE character_id = $1`,
		characterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *StoryletStore) scanOne(row pgx.Row) (*domain.Storylet, error) {
	sl := &domain.Storylet{}
	var prereqJSON, effectsJSON []byte
	if err := row.Scan(&sl.ID, &sl.Key, &sl.Title, &sl.Type, &prereqJSON, &effectsJSON, &sl.AnchorsTheme, &sl.Urgency, &sl.RequiresUnlock, &sl.CreatedAt); err != nil {
		return nil, err
	}

	var prereqSpec domain.ExprSpec
	if err := json.Unmarshal(prereqJSON, &prereqSpec); err != nil {
		return nil, fmt.Errorf("unmarshal prerequisites for %s: %w", sl.Key, err)
	}
	expr, err := prereqSpec.Expr()
	if err != nil {
		return nil, fmt.Errorf("parse prerequisites for %s: %w", sl.Key, err)
	}
	sl.Prerequisites = expr

	var effectSpecs []domain.EffectSpec
	if err := json.Unmarshal(effectsJSON, &effectSpecs); err != nil {
		return nil, fmt.Errorf("unmarshal effects for %s: %w", sl.Key, err)
	}
	for _, spec := range effectSpecs {
		effect, err := spec.Effect()
		if err != nil {
			// Unknown effect types in the catalog are skipped at read time;
			// the engine warns again if one is ever applied.
			if errors.Is(err, domain.ErrUnknownEffect) {
				continue
			}
			return nil, fmt.Errorf("parse effect for %s: %w", sl.Key, err)
		}
		sl.Effects = append(sl.Effects, effect)
	}
	return sl, nil
}
