package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Importance assigned to an entity mention pulled from free text.
	extractedMentionImportance = 0.3
)

// GraphService owns the per-character knowledge graph: entity upserts with
// merge semantics, additive relationship strength updates, and temporal
// queries.
type GraphService struct {
	entityStore domain.EntityStore
	relStore    domain.RelationshipStore
	extractor   domain.EntityExtractor
	logger      *zap.Logger
}

func NewGraphService(
	entityStore domain.EntityStore,
	relStore domain.RelationshipStore,
	extractor domain.EntityExtractor,
	logger *zap.Logger,
) *GraphService {
	return &GraphService{
		entityStore: entityStore,
		relStore:    relStore,
		extractor:   extractor,
		logger:      logger,
	}
}

// UpsertEntity records a mention of an entity. Re-applying the same mention
// is idempotent: attributes merge, importance never decreases, and exactly
// one record exists per (character, type, name).
func (s *GraphService) UpsertEntity(ctx context.Context, incoming domain.Entity) (*domain.Entity, error) {
	existing, err := s.entityStore.GetByName(ctx, incoming.CharacterID, incoming.Type, incoming.Name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("lookup entity %q: %w", incoming.Name, err)
		}
		if err := s.entityStore.Create(ctx, &incoming); err != nil {
			return nil, fmt.Errorf("create entity %q: %w", incoming.Name, err)
		}
		return &incoming, nil
	}

	merged := domain.MergeEntity(*existing, incoming)
	if err := s.entityStore.Update(ctx, &merged); err != nil {
		return nil, fmt.Errorf("update entity %q: %w", incoming.Name, err)
	}
	return &merged, nil
}

// TouchRelationship applies a signed strength delta to the edge, creating it
// first if needed. Strength moves only by deltas, clamped to [0,1].
func (s *GraphService) TouchRelationship(ctx context.Context, characterID, sourceID, targetID uuid.UUID, relType domain.RelationType, delta float32, note string) (*domain.Relationship, error) {
	rel, err := s.relStore.Get(ctx, characterID, sourceID, targetID, relType)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("lookup relationship: %w", err)
		}
		rel = &domain.Relationship{
			CharacterID:    characterID,
			SourceEntityID: sourceID,
			TargetEntityID: targetID,
			Type:           relType,
			Strength:       domain.ClampStrength(delta),
			Context:        note,
		}
		if err := s.relStore.Create(ctx, rel); err != nil {
			return nil, fmt.Errorf("create relationship: %w", err)
		}
		return rel, nil
	}

	rel.Strength = domain.ClampStrength(rel.Strength + delta)
	rel.LastInteraction = time.Now().UTC()
	if err := s.relStore.UpdateStrength(ctx, rel.ID, rel.Strength, rel.LastInteraction); err != nil {
		return nil, fmt.Errorf("update relationship strength: %w", err)
	}
	return rel, nil
}

// EntityGraph returns the full graph snapshot for one character.
func (s *GraphService) EntityGraph(ctx context.Context, characterID uuid.UUID) (*domain.EntityGraph, error) {
	entities, err := s.entityStore.ListByCharacter(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	rels, err := s.relStore.Query(ctx, domain.RelationshipFilter{CharacterID: characterID})
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	return &domain.EntityGraph{Entities: entities, Relationships: rels}, nil
}

func (s *GraphService) QueryRelationships(ctx context.Context, filter domain.RelationshipFilter) ([]domain.Relationship, error) {
	return s.relStore.Query(ctx, filter)
}

// IngestNarrative extracts entity mentions from accepted narrative text and
// folds them into the graph. Extraction is heuristic; failures here must
// never fail the orchestration that produced the text.
func (s *GraphService) IngestNarrative(ctx context.Context, characterID uuid.UUID, text string) error {
	mentions := s.extractor.Extract(text)
	if len(mentions) == 0 {
		return nil
	}

	upserted := make([]*domain.Entity, 0, len(mentions))
	for _, m := range mentions {
		entity, err := s.UpsertEntity(ctx, domain.Entity{
			CharacterID: characterID,
			Type:        m.Type,
			Name:        m.Name,
			Importance:  extractedMentionImportance,
		})
		if err != nil {
			s.logger.Warn("entity upsert failed during ingest",
				zap.String("name", m.Name), zap.Error(err))
			continue
		}
		upserted = append(upserted, entity)
	}

	// Co-mentioned entities get a neutral-contact touch between neighbors.
	for i := 1; i < len(upserted); i++ {
		_, err := s.TouchRelationship(ctx, characterID,
			upserted[i-1].ID, upserted[i].ID, domain.RelationKnows,
			domain.DeltaNeutralContact, "co-mentioned in narrative")
		if err != nil {
			s.logger.Warn("relationship touch failed during ingest",
				zap.String("source", upserted[i-1].Name),
				zap.String("target", upserted[i].Name),
				zap.Error(err))
		}
	}
	return nil
}

// locationMarkers hint that a capitalized name refers to a place rather
// than a person.
var locationMarkers = map[string]bool{
	"Keep": true, "Temple": true, "Forest": true, "Gym": true,
	"Mountain": true, "Valley": true, "Hall": true, "Arena": true,
	"Grove": true, "Springs": true,
}

// extractionStoplist holds capitalized words that are not names.
var extractionStoplist = map[string]bool{
	"The": true, "A": true, "An": true, "You": true, "Your": true,
	"It": true, "As": true, "But": true, "And": true, "Then": true,
	"When": true, "With": true, "After": true, "Before": true,
	"Now": true, "Here": true, "There": true, "This": true, "That": true,
	"Act": true, "Quest": true,
}

// HeuristicExtractor finds entity mentions by grouping consecutive
// capitalized words that are not in the stoplist. It is deliberately crude:
// false positives and false negatives are expected, and consumers must
// treat its output as approximate.
type HeuristicExtractor struct{}

func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

func (e *HeuristicExtractor) Extract(text string) []domain.ExtractedEntity {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var out []domain.ExtractedEntity
	seen := map[string]bool{}
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		name := strings.Join(current, " ")
		current = nil
		if seen[name] {
			return
		}
		seen[name] = true

		entityType := domain.EntityNPC
		for _, w := range strings.Fields(name) {
			if locationMarkers[w] {
				entityType = domain.EntityLocation
				break
			}
		}
		out = append(out, domain.ExtractedEntity{Name: name, Type: entityType})
	}

	for _, w := range words {
		r := []rune(w)
		if unicode.IsUpper(r[0]) && !extractionStoplist[w] {
			current = append(current, w)
			continue
		}
		flush()
	}
	flush()
	return out
}
