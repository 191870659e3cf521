package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CharacterStore interface {
	Create(ctx context.Context, c *Character) error
	GetByID(ctx context.Context, id uuid.UUID) (*Character, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type QualityStore interface {
	Get(ctx context.Context, characterID uuid.UUID, name string) (*Quality, error)
	List(ctx context.Context, characterID uuid.UUID) ([]Quality, error)
	// Set creates the quality on first write and overwrites the value on
	// subsequent writes. Qualities are never deleted.
	Set(ctx context.Context, q *Quality) error
}

type EntityStore interface {
	Create(ctx context.Context, e *Entity) error
	GetByName(ctx context.Context, characterID uuid.UUID, entityType EntityType, name string) (*Entity, error)
	Update(ctx context.Context, e *Entity) error
	ListByCharacter(ctx context.Context, characterID uuid.UUID) ([]Entity, error)
	ListByType(ctx context.Context, characterID uuid.UUID, entityType EntityType) ([]Entity, error)
}

type RelationshipStore interface {
	Create(ctx context.Context, r *Relationship) error
	Get(ctx context.Context, characterID, sourceID, targetID uuid.UUID, relType RelationType) (*Relationship, error)
	UpdateStrength(ctx context.Context, id uuid.UUID, strength float32, lastInteraction time.Time) error
	Query(ctx context.Context, filter RelationshipFilter) ([]Relationship, error)
}

type EventStore interface {
	// Append inserts one event at the end of the character's story log.
	Append(ctx context.Context, e *NarrativeEvent) error
	// ListWorking returns the most recent unarchived events, newest first.
	ListWorking(ctx context.Context, characterID uuid.UUID, limit int) ([]NarrativeEvent, error)
	// ListWorkingOldest returns unarchived events oldest first, for compression.
	ListWorkingOldest(ctx context.Context, characterID uuid.UUID, limit int) ([]NarrativeEvent, error)
	CountWorking(ctx context.Context, characterID uuid.UUID) (int, error)
	// Archive moves events out of the working window. Events are never deleted.
	Archive(ctx context.Context, ids []uuid.UUID) error
	// SearchByEmbedding returns the top-K events nearest to the query vector.
	SearchByEmbedding(ctx context.Context, characterID uuid.UUID, embedding []float32, limit int) ([]NarrativeEvent, error)
	ListRecent(ctx context.Context, characterID uuid.UUID, limit int) ([]NarrativeEvent, error)
	ListCharactersWithWorkingOverflow(ctx context.Context, threshold int) ([]uuid.UUID, error)
}

type EpisodeStore interface {
	Create(ctx context.Context, e *EpisodeSummary) error
	ListByCharacter(ctx context.Context, characterID uuid.UUID) ([]EpisodeSummary, error)
	SearchByEmbedding(ctx context.Context, characterID uuid.UUID, embedding []float32, limit int) ([]EpisodeSummary, error)
}

type SummaryStore interface {
	Get(ctx context.Context, characterID uuid.UUID) (*NarrativeSummary, error)
	Upsert(ctx context.Context, characterID uuid.UUID, content string) error
}

type StoryletStore interface {
	Create(ctx context.Context, s *Storylet) error
	GetByKey(ctx context.Context, key string) (*Storylet, error)
	List(ctx context.Context) ([]Storylet, error)
	// Unlock records a per-character unlock for a storylet that requires one.
	// Idempotent.
	Unlock(ctx context.Context, characterID uuid.UUID, key string) error
	ListUnlocked(ctx context.Context, characterID uuid.UUID) ([]string, error)
}

// LLMClient is the contract with the external content generation service.
// Implementations must tolerate incidental formatting around the structured
// payload; complete malformation surfaces as an error for the caller to
// handle via fallback.
type LLMClient interface {
	GenerateQuest(ctx context.Context, need NarrativeNeed, gc GenerationContext, temperature float32) (*GeneratedContent, error)
	GenerateOutcome(ctx context.Context, need NarrativeNeed, gc GenerationContext, temperature float32) (*GeneratedContent, error)
	ReviseContent(ctx context.Context, prior *Candidate, feedback []string, gc GenerationContext, temperature float32) (*GeneratedContent, error)
	JudgeCompliance(ctx context.Context, c *Candidate, rules []string, history []string) (*ComplianceVerdict, error)
	Summarize(ctx context.Context, events []NarrativeEvent) (string, error)
	MergeSummary(ctx context.Context, current, episode string) (string, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
