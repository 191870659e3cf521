package service

import (
	"context"
	"errors"
	"testing"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/embedding"
	"github.com/davidpm1021/dungeonsanddumbells/internal/llm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type assemblerFixture struct {
	assembler *ContextAssembler
	events    *fakeEventStore
	episodes  *fakeEpisodeStore
	summary   *fakeSummaryStore
	entities  *fakeEntityStore
	rels      *fakeRelationshipStore
	qualities *fakeQualityStore
}

func newAssemblerFixture() *assemblerFixture {
	f := &assemblerFixture{
		events:    newFakeEventStore(),
		episodes:  newFakeEpisodeStore(),
		summary:   newFakeSummaryStore(),
		entities:  newFakeEntityStore(),
		rels:      newFakeRelationshipStore(),
		qualities: newFakeQualityStore(),
	}
	logger := zap.NewNop()
	memory := NewMemoryService(f.events, f.episodes, f.summary,
		embedding.NewMockClient(), llm.NewMockClient(), testWorkingLimit, logger)
	graph := NewGraphService(f.entities, f.rels, NewHeuristicExtractor(), logger)
	storylets := NewStoryletService(newFakeStoryletStore(), f.qualities, logger)
	f.assembler = NewContextAssembler(memory, graph, storylets, logger)
	return f
}

func TestAssembleGathersAllSources(t *testing.T) {
	ctx := context.Background()
	f := newAssemblerFixture()
	characterID := uuid.New()

	require.NoError(t, f.events.Append(ctx, &domain.NarrativeEvent{
		CharacterID: characterID, Type: domain.EventMilestone, Content: "first steps",
	}))
	require.NoError(t, f.summary.Upsert(ctx, characterID, "the tale so far"))
	require.NoError(t, f.entities.Create(ctx, &domain.Entity{
		CharacterID: characterID, Type: domain.EntityNPC, Name: "Wren",
	}))
	require.NoError(t, f.qualities.Set(ctx, &domain.Quality{
		CharacterID: characterID, Name: "strength", Value: domain.IntValue(3),
	}))

	gc := f.assembler.Assemble(ctx, characterID, "")

	assert.Equal(t, characterID, gc.CharacterID)
	assert.Len(t, gc.WorkingMemory, 1)
	assert.Equal(t, "the tale so far", gc.NarrativeSummary)
	assert.Len(t, gc.Entities, 1)
	require.Contains(t, gc.Qualities, "strength")
	assert.Equal(t, 3, gc.Qualities["strength"].Value.Int)
	assert.False(t, gc.AssembledAt.IsZero())
}

func TestAssembleDegradesPerSource(t *testing.T) {
	ctx := context.Background()
	f := newAssemblerFixture()
	characterID := uuid.New()

	require.NoError(t, f.summary.Upsert(ctx, characterID, "still reachable"))
	require.NoError(t, f.qualities.Set(ctx, &domain.Quality{
		CharacterID: characterID, Name: "focus", Value: domain.IntValue(2),
	}))

	// One failing source leaves only its own field empty.
	f.events.Err = errors.New("db connection lost")
	f.entities.Err = errors.New("db connection lost")

	gc := f.assembler.Assemble(ctx, characterID, "")

	assert.Empty(t, gc.WorkingMemory)
	assert.Empty(t, gc.Entities)
	assert.Equal(t, "still reachable", gc.NarrativeSummary)
	assert.Contains(t, gc.Qualities, "focus")
}

func TestAssembleNeverFailsEvenWhenEverythingIsDown(t *testing.T) {
	f := newAssemblerFixture()
	down := errors.New("db connection lost")
	f.events.Err = down
	f.episodes.Err = down
	f.summary.Err = down
	f.entities.Err = down
	f.rels.Err = down
	f.qualities.Err = down

	gc := f.assembler.Assemble(context.Background(), uuid.New(), "anything")
	require.NotNil(t, gc)
	assert.Empty(t, gc.WorkingMemory)
	assert.Empty(t, gc.Qualities)
	assert.Empty(t, gc.Retrieved)
}

func TestAssembleIncludesRetrievalWhenQueried(t *testing.T) {
	ctx := context.Background()
	f := newAssemblerFixture()
	characterID := uuid.New()

	event := &domain.NarrativeEvent{
		CharacterID: characterID, Type: domain.EventOutcome, Content: "golem defeated",
	}
	embedder := embedding.NewMockClient()
	vec, err := embedder.Embed(ctx, event.Content)
	require.NoError(t, err)
	event.Embedding = vec
	require.NoError(t, f.events.Append(ctx, event))

	gc := f.assembler.Assemble(ctx, characterID, "golem")
	assert.NotEmpty(t, gc.Retrieved)
}
