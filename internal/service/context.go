package service

import (
	"context"
	"sync"
	"time"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextAssembler gathers the memory, graph and quality state that grounds
// a generation request. Reads fan out in parallel and degrade independently:
// a failed read logs a warning and leaves its field zero-valued, so assembly
// itself never fails.
type ContextAssembler struct {
	memory    *MemoryService
	graph     *GraphService
	storylets *StoryletService
	logger    *zap.Logger
}

func NewContextAssembler(
	memory *MemoryService,
	graph *GraphService,
	storylets *StoryletService,
	logger *zap.Logger,
) *ContextAssembler {
	return &ContextAssembler{
		memory:    memory,
		graph:     graph,
		storylets: storylets,
		logger:    logger,
	}
}

// Assemble builds a fresh snapshot for one character. retrievalQuery is
// optional; when set, semantic retrieval results are included.
func (a *ContextAssembler) Assemble(ctx context.Context, characterID uuid.UUID, retrievalQuery string) *domain.GenerationContext {
	gc := &domain.GenerationContext{
		CharacterID: characterID,
		AssembledAt: time.Now().UTC(),
	}

	var wg sync.WaitGroup
	// Each goroutine writes only its own field, so no mutex is needed.
	wg.Add(1)
	go func() {
		defer wg.Done()
		events, err := a.memory.WorkingMemory(ctx, characterID)
		if err != nil {
			a.warn(characterID, "working memory", err)
			return
		}
		gc.WorkingMemory = events
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		episodes, err := a.memory.EpisodeSummaries(ctx, characterID)
		if err != nil {
			a.warn(characterID, "episode summaries", err)
			return
		}
		gc.Episodes = episodes
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		summary, err := a.memory.NarrativeSummary(ctx, characterID)
		if err != nil {
			a.warn(characterID, "narrative summary", err)
			return
		}
		gc.NarrativeSummary = summary
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		graph, err := a.graph.EntityGraph(ctx, characterID)
		if err != nil {
			a.warn(characterID, "entity graph", err)
			return
		}
		gc.Entities = graph.Entities
		gc.Relationships = graph.Relationships
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		qualities, err := a.storylets.Qualities(ctx, characterID)
		if err != nil {
			a.warn(characterID, "qualities", err)
			return
		}
		gc.Qualities = qualities
	}()

	if retrievalQuery != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := a.memory.Retrieve(ctx, characterID, retrievalQuery, defaultRetrievalLimit)
			if err != nil {
				a.warn(characterID, "retrieval", err)
				return
			}
			gc.Retrieved = items
		}()
	}

	wg.Wait()
	return gc
}

func (a *ContextAssembler) warn(characterID uuid.UUID, source string, err error) {
	a.logger.Warn("context source degraded",
		zap.String("character_id", characterID.String()),
		zap.String("source", source),
		zap.Error(err))
}
