package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema statements are idempotent so Migrate can run on every startup.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS characters (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		archetype TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS qualities (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		character_id UUID NOT NULL REFERENCES characters(id),
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		bool_value BOOLEAN NOT NULL DEFAULT FALSE,
		int_value INTEGER NOT NULL DEFAULT 0,
		string_value TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (character_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS entities (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		character_id UUID NOT NULL REFERENCES characters(id),
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		attributes JSONB NOT NULL DEFAULT '{}',
		importance REAL NOT NULL DEFAULT 0,
		first_mentioned TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (character_id, type, name)
	)`,
	`CREATE TABLE IF NOT EXISTS relationships (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		character_id UUID NOT NULL REFERENCES characters(id),
		source_entity_id UUID NOT NULL REFERENCES entities(id),
		target_entity_id UUID NOT NULL REFERENCES entities(id),
		type TEXT NOT NULL,
		strength REAL NOT NULL DEFAULT 0,
		context TEXT NOT NULL DEFAULT '',
		established_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_interaction TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (character_id, source_entity_id, target_entity_id, type)
	)`,
	`CREATE TABLE IF NOT EXISTS narrative_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		character_id UUID NOT NULL REFERENCES characters(id),
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}',
		embedding vector(1536),
		archived BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_working
		ON narrative_events (character_id, created_at) WHERE NOT archived`,
	`CREATE TABLE IF NOT EXISTS episode_summaries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		character_id UUID NOT NULL REFERENCES characters(id),
		content TEXT NOT NULL,
		event_count INTEGER NOT NULL,
		period_start TIMESTAMPTZ NOT NULL,
		period_end TIMESTAMPTZ NOT NULL,
		embedding vector(1536),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS narrative_summaries (
		character_id UUID PRIMARY KEY REFERENCES characters(id),
		content TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS storylets (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		key TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		prerequisites JSONB NOT NULL,
		effects JSONB NOT NULL DEFAULT '[]',
		anchors_theme BOOLEAN NOT NULL DEFAULT FALSE,
		urgency INTEGER NOT NULL DEFAULT 0,
		requires_unlock BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS storylet_unlocks (
		character_id UUID NOT NULL REFERENCES characters(id),
		storylet_key TEXT NOT NULL,
		unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (character_id, storylet_key)
	)`,
}

// Migrate applies the schema. Safe to call on every startup.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
