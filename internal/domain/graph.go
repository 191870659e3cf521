package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityNPC        EntityType = "npc"
	EntityLocation   EntityType = "location"
	EntityQuest      EntityType = "quest"
	EntityItem       EntityType = "item"
	EntityWorldState EntityType = "world_state"
	EntityFaction    EntityType = "faction"
	EntityCreature   EntityType = "creature"
)

func ValidEntityType(e string) bool {
	switch EntityType(e) {
	case EntityNPC, EntityLocation, EntityQuest, EntityItem,
		EntityWorldState, EntityFaction, EntityCreature:
		return true
	}
	return false
}

// Entity is a typed node in a character's knowledge graph. Entities are
// unique per (character, type, name) with upsert semantics: a re-mention
// merges attributes and never lowers importance.
type Entity struct {
	ID             uuid.UUID      `json:"id"`
	CharacterID    uuid.UUID      `json:"character_id"`
	Type           EntityType     `json:"type"`
	Name           string         `json:"name"`
	Attributes     map[string]any `json:"attributes,omitempty"`
	Importance     float32        `json:"importance"`
	FirstMentioned time.Time      `json:"first_mentioned"`
	LastUpdated    time.Time      `json:"last_updated"`
}

// MergeEntity combines an incoming mention with the stored entity. Pure
// function so the merge invariants (attribute union, monotonic importance,
// stable first-mention time) are testable in isolation.
func MergeEntity(existing, incoming Entity) Entity {
	merged := existing

	// The union goes into a fresh map; neither input's map is touched.
	if len(incoming.Attributes) > 0 {
		attrs := make(map[string]any, len(existing.Attributes)+len(incoming.Attributes))
		for k, v := range existing.Attributes {
			attrs[k] = v
		}
		for k, v := range incoming.Attributes {
			attrs[k] = v
		}
		merged.Attributes = attrs
	}

	if incoming.Importance > merged.Importance {
		merged.Importance = incoming.Importance
	}
	if incoming.LastUpdated.After(merged.LastUpdated) {
		merged.LastUpdated = incoming.LastUpdated
	}
	return merged
}

type RelationType string

const (
	RelationAlly      RelationType = "ally"
	RelationRival     RelationType = "rival"
	RelationMentor    RelationType = "mentor"
	RelationKnows     RelationType = "knows"
	RelationLocatedIn RelationType = "located_in"
	RelationPossesses RelationType = "possesses"
	RelationThreatens RelationType = "threatens"
)

func ValidRelationType(r string) bool {
	switch RelationType(r) {
	case RelationAlly, RelationRival, RelationMentor, RelationKnows,
		RelationLocatedIn, RelationPossesses, RelationThreatens:
		return true
	}
	return false
}

// Strength deltas for relationship updates. Strength is only ever moved by
// additive deltas clamped to [0,1], never overwritten outright.
const (
	DeltaPositiveInteraction float32 = 0.1
	DeltaNegativeInteraction float32 = -0.1
	DeltaNeutralContact      float32 = 0.02
)

// ClampStrength bounds a relationship strength to [0,1].
func ClampStrength(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Relationship is a directed edge between two entities in a character's
// graph, unique per (character, source, target, type).
type Relationship struct {
	ID              uuid.UUID    `json:"id"`
	CharacterID     uuid.UUID    `json:"character_id"`
	SourceEntityID  uuid.UUID    `json:"source_entity_id"`
	TargetEntityID  uuid.UUID    `json:"target_entity_id"`
	Type            RelationType `json:"type"`
	Strength        float32      `json:"strength"`
	Context         string       `json:"context,omitempty"`
	EstablishedAt   time.Time    `json:"established_at"`
	LastInteraction time.Time    `json:"last_interaction"`
}

// RelationshipFilter narrows a relationship query. Nil fields match
// everything. Temporal queries are a filtered scan; no index structure is
// assumed.
type RelationshipFilter struct {
	CharacterID       uuid.UUID
	Type              *RelationType
	EntityID          *uuid.UUID
	EstablishedBefore *time.Time
	MinStrength       *float32
}

// EntityGraph is the full per-character graph snapshot.
type EntityGraph struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// ExtractedEntity is a candidate entity mention pulled from free text.
type ExtractedEntity struct {
	Name string     `json:"name"`
	Type EntityType `json:"type"`
}

// EntityExtractor finds entity mentions in free narrative text. The built-in
// implementation is a capitalization heuristic: false positives and false
// negatives are expected and must not break downstream consumers.
type EntityExtractor interface {
	Extract(text string) []ExtractedEntity
}
