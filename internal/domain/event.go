package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventQuestOffered   EventType = "quest_offered"
	EventQuestCompleted EventType = "quest_completed"
	EventOutcome        EventType = "outcome"
	EventMilestone      EventType = "milestone"
	EventSetback        EventType = "setback"
	EventWorldChange    EventType = "world_change"
)

func ValidEventType(e string) bool {
	switch EventType(e) {
	case EventQuestOffered, EventQuestCompleted, EventOutcome,
		EventMilestone, EventSetback, EventWorldChange:
		return true
	}
	return false
}

// NarrativeEvent is one append-only entry in a character's story log. Events
// are never mutated or deleted; once compressed into an episode they are
// archived out of the working window.
type NarrativeEvent struct {
	ID          uuid.UUID      `json:"id"`
	CharacterID uuid.UUID      `json:"character_id"`
	Type        EventType      `json:"type"`
	Content     string         `json:"content"`
	Payload     map[string]any `json:"payload,omitempty"`
	Embedding   []float32      `json:"-"`
	Archived    bool           `json:"archived"`
	CreatedAt   time.Time      `json:"created_at"`
}

// EpisodeSummary is a compressed digest of a contiguous run of narrative
// events. Immutable once created.
type EpisodeSummary struct {
	ID          uuid.UUID `json:"id"`
	CharacterID uuid.UUID `json:"character_id"`
	Content     string    `json:"content"`
	EventCount  int       `json:"event_count"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Embedding   []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// NarrativeSummary is the single rolling digest of a character's whole
// story, updated as episodes are folded in.
type NarrativeSummary struct {
	CharacterID uuid.UUID `json:"character_id"`
	Content     string    `json:"content"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RetrievedItemKind string

const (
	RetrievedEvent   RetrievedItemKind = "event"
	RetrievedEpisode RetrievedItemKind = "episode"
)

// RetrievedItem is one result from the memory retrieval index.
type RetrievedItem struct {
	Kind    RetrievedItemKind `json:"kind"`
	ID      uuid.UUID         `json:"id"`
	Content string            `json:"content"`
	Score   float32           `json:"score"`
}
