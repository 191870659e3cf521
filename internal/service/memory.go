package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRetrievalLimit = 5
)

// MemoryService owns the three-tier memory hierarchy: the working window of
// raw events, compressed episode summaries, and the single rolling narrative
// summary per character.
type MemoryService struct {
	eventStore   domain.EventStore
	episodeStore domain.EpisodeStore
	summaryStore domain.SummaryStore
	embedder     domain.EmbeddingClient
	llm          domain.LLMClient
	workingLimit int
	logger       *zap.Logger
}

func NewMemoryService(
	eventStore domain.EventStore,
	episodeStore domain.EpisodeStore,
	summaryStore domain.SummaryStore,
	embedder domain.EmbeddingClient,
	llm domain.LLMClient,
	workingLimit int,
	logger *zap.Logger,
) *MemoryService {
	return &MemoryService{
		eventStore:   eventStore,
		episodeStore: episodeStore,
		summaryStore: summaryStore,
		embedder:     embedder,
		llm:          llm,
		workingLimit: workingLimit,
		logger:       logger,
	}
}

// AppendEvent appends one event to the character's story log. Embedding is
// best-effort: an embedding failure is logged and the event is stored
// without a vector rather than lost.
func (s *MemoryService) AppendEvent(ctx context.Context, e *domain.NarrativeEvent) error {
	embedding, err := s.embedder.Embed(ctx, e.Content)
	if err != nil {
		s.logger.Warn("embedding failed, storing event without vector",
			zap.String("character_id", e.CharacterID.String()),
			zap.Error(err))
	} else {
		e.Embedding = embedding
	}

	if err := s.eventStore.Append(ctx, e); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// WorkingMemory returns the working window, newest first.
func (s *MemoryService) WorkingMemory(ctx context.Context, characterID uuid.UUID) ([]domain.NarrativeEvent, error) {
	return s.eventStore.ListWorking(ctx, characterID, s.workingLimit)
}

func (s *MemoryService) EpisodeSummaries(ctx context.Context, characterID uuid.UUID) ([]domain.EpisodeSummary, error) {
	return s.episodeStore.ListByCharacter(ctx, characterID)
}

// NarrativeSummary returns the rolling summary, or empty string for a
// character that has never been compressed.
func (s *MemoryService) NarrativeSummary(ctx context.Context, characterID uuid.UUID) (string, error) {
	summary, err := s.summaryStore.Get(ctx, characterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return summary.Content, nil
}

func (s *MemoryService) UpdateNarrativeSummary(ctx context.Context, characterID uuid.UUID, content string) error {
	return s.summaryStore.Upsert(ctx, characterID, content)
}

// Compress folds working-window overflow into a new episode summary and
// merges that episode into the rolling narrative summary. Events survive as
// archived rows; nothing is deleted. No-op when the window fits.
func (s *MemoryService) Compress(ctx context.Context, characterID uuid.UUID) error {
	count, err := s.eventStore.CountWorking(ctx, characterID)
	if err != nil {
		return fmt.Errorf("count working events: %w", err)
	}
	overflow := count - s.workingLimit
	if overflow <= 0 {
		return nil
	}

	oldest, err := s.eventStore.ListWorkingOldest(ctx, characterID, overflow)
	if err != nil {
		return fmt.Errorf("list oldest events: %w", err)
	}
	if len(oldest) == 0 {
		return nil
	}

	content, err := s.llm.Summarize(ctx, oldest)
	if err != nil {
		return fmt.Errorf("summarize episode: %w", err)
	}

	episode := &domain.EpisodeSummary{
		CharacterID: characterID,
		Content:     content,
		EventCount:  len(oldest),
		PeriodStart: oldest[0].CreatedAt,
		PeriodEnd:   oldest[len(oldest)-1].CreatedAt,
	}
	if embedding, err := s.embedder.Embed(ctx, content); err != nil {
		s.logger.Warn("episode embedding failed",
			zap.String("character_id", characterID.String()),
			zap.Error(err))
	} else {
		episode.Embedding = embedding
	}
	if err := s.episodeStore.Create(ctx, episode); err != nil {
		return fmt.Errorf("create episode: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(oldest))
	for _, e := range oldest {
		ids = append(ids, e.ID)
	}
	if err := s.eventStore.Archive(ctx, ids); err != nil {
		return fmt.Errorf("archive events: %w", err)
	}

	current, err := s.NarrativeSummary(ctx, characterID)
	if err != nil {
		return fmt.Errorf("load narrative summary: %w", err)
	}
	merged, err := s.llm.MergeSummary(ctx, current, content)
	if err != nil {
		return fmt.Errorf("merge narrative summary: %w", err)
	}
	if err := s.summaryStore.Upsert(ctx, characterID, merged); err != nil {
		return fmt.Errorf("store narrative summary: %w", err)
	}

	s.logger.Info("compressed working memory",
		zap.String("character_id", characterID.String()),
		zap.Int("events_archived", len(ids)))
	return nil
}

// Retrieve runs semantic search over events and episodes. When the query
// cannot be embedded it degrades to keyword overlap over recent history
// instead of failing.
func (s *MemoryService) Retrieve(ctx context.Context, characterID uuid.UUID, query string, limit int) ([]domain.RetrievedItem, error) {
	if limit <= 0 {
		limit = defaultRetrievalLimit
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, using keyword retrieval",
			zap.String("character_id", characterID.String()),
			zap.Error(err))
		return s.retrieveByKeywords(ctx, characterID, query, limit)
	}

	events, err := s.eventStore.SearchByEmbedding(ctx, characterID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	episodes, err := s.episodeStore.SearchByEmbedding(ctx, characterID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("search episodes: %w", err)
	}

	// Stores return nearest-first; rank position stands in for similarity
	// since cosine distance is not surfaced through the interface.
	var items []domain.RetrievedItem
	for i, e := range events {
		items = append(items, domain.RetrievedItem{
			Kind:    domain.RetrievedEvent,
			ID:      e.ID,
			Content: e.Content,
			Score:   rankScore(i),
		})
	}
	for i, ep := range episodes {
		items = append(items, domain.RetrievedItem{
			Kind:    domain.RetrievedEpisode,
			ID:      ep.ID,
			Content: ep.Content,
			Score:   rankScore(i),
		})
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func rankScore(rank int) float32 {
	return 1.0 / float32(rank+1)
}

func (s *MemoryService) retrieveByKeywords(ctx context.Context, characterID uuid.UUID, query string, limit int) ([]domain.RetrievedItem, error) {
	events, err := s.eventStore.ListRecent(ctx, characterID, limit*4)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	episodes, err := s.episodeStore.ListByCharacter(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}

	queryTokens := tokenSet(query)
	var items []domain.RetrievedItem
	for _, e := range events {
		if score := keywordOverlap(queryTokens, e.Content); score > 0 {
			items = append(items, domain.RetrievedItem{
				Kind: domain.RetrievedEvent, ID: e.ID, Content: e.Content, Score: score,
			})
		}
	}
	for _, ep := range episodes {
		if score := keywordOverlap(queryTokens, ep.Content); score > 0 {
			items = append(items, domain.RetrievedItem{
				Kind: domain.RetrievedEpisode, ID: ep.ID, Content: ep.Content, Score: score,
			})
		}
	}

	// Highest overlap first, stable under ties.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Score > items[j-1].Score; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func tokenSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, t := range strings.Fields(strings.ToLower(text)) {
		t = strings.Trim(t, ".,!?;:\"'()")
		if len(t) > 2 {
			set[t] = true
		}
	}
	return set
}

func keywordOverlap(queryTokens map[string]bool, content string) float32 {
	if len(queryTokens) == 0 {
		return 0
	}
	hits := 0
	for t := range tokenSet(content) {
		if queryTokens[t] {
			hits++
		}
	}
	return float32(hits) / float32(len(queryTokens))
}
