package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/llm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGenerateQuest(t *testing.T) {
	client := llm.NewMockClient()
	gen := NewContentGenerator(client, time.Second, zap.NewNop())
	gc := &domain.GenerationContext{CharacterID: uuid.New()}
	need := domain.NarrativeNeed{NeedsContent: true, Kind: domain.ContentQuest, Theme: "beginnings"}

	c := gen.Generate(context.Background(), need, gc)

	assert.Equal(t, "Mock Quest", c.Title)
	assert.False(t, c.Fallback)
	assert.Equal(t, 0, c.Revision)
	require.Len(t, client.QuestCalls, 1)
	assert.Equal(t, firstPassTemperature, client.QuestCalls[0])
}

func TestGenerateFallsBackOnError(t *testing.T) {
	client := llm.NewMockClient()
	client.QuestError = errors.New("service unavailable")
	gen := NewContentGenerator(client, time.Second, zap.NewNop())
	gc := &domain.GenerationContext{CharacterID: uuid.New()}
	need := domain.NarrativeNeed{NeedsContent: true, Kind: domain.ContentQuest, Theme: "trials"}

	c := gen.Generate(context.Background(), need, gc)

	assert.True(t, c.Fallback)
	assert.NotEmpty(t, c.Title)
	assert.NotEmpty(t, c.Objectives)
	assert.Empty(t, c.Effects, "fallback must not touch character state")
	assert.Equal(t, "trials", c.Theme)

	// The fallback must satisfy the structural gate.
	validator := NewValidator(client, newFakeQualityStore(), newFakeStoryletStore(), 85, zap.NewNop())
	assert.True(t, validator.Structural(c).Passed)
}

func TestGenerateOutcomeFallback(t *testing.T) {
	client := llm.NewMockClient()
	client.OutcomeError = errors.New("timeout")
	gen := NewContentGenerator(client, time.Second, zap.NewNop())
	gc := &domain.GenerationContext{CharacterID: uuid.New()}
	need := domain.NarrativeNeed{NeedsContent: true, Kind: domain.ContentOutcome}

	c := gen.Generate(context.Background(), need, gc)
	assert.True(t, c.Fallback)
	assert.Equal(t, domain.ContentOutcome, c.Kind)

	validator := NewValidator(client, newFakeQualityStore(), newFakeStoryletStore(), 85, zap.NewNop())
	assert.True(t, validator.Structural(c).Passed)
}

func TestReviseRunsCoolerAndCarriesFeedback(t *testing.T) {
	client := llm.NewMockClient()
	client.ReviseResponse = &domain.GeneratedContent{
		Title: "Revised Quest", Narrative: "A sharper version of the challenge awaits you.",
		Objectives: []string{"do the thing properly"},
	}
	gen := NewContentGenerator(client, time.Second, zap.NewNop())
	gc := &domain.GenerationContext{CharacterID: uuid.New()}

	prior := &domain.Candidate{Kind: domain.ContentQuest, Title: "First Draft", Theme: "trials"}
	vr := &domain.ValidationResult{
		Issues:      []string{"contradicts the rival's death"},
		Suggestions: []string{"reference the memorial instead"},
	}

	revised, err := gen.Revise(context.Background(), prior, vr, gc)
	require.NoError(t, err)

	assert.Equal(t, 1, revised.Revision)
	assert.Equal(t, "Revised Quest", revised.Title)
	assert.Equal(t, []string{"contradicts the rival's death", "reference the memorial instead"}, revised.Feedback)
	require.Len(t, client.ReviseTemps, 1)
	assert.Equal(t, revisionTemperature, client.ReviseTemps[0])
	assert.Less(t, revisionTemperature, firstPassTemperature)
}

func TestGeneratedEffectsParsedAndUnknownSkipped(t *testing.T) {
	client := llm.NewMockClient()
	client.QuestResponse = &domain.GeneratedContent{
		Title: "Effects Quest", Narrative: "A quest that changes you in ways both seen and unseen.",
		Objectives: []string{"lift"},
		Effects: []domain.EffectSpec{
			{Type: domain.EffectIncrementQuality, Quality: "strength", Delta: 2},
			{Type: "summon_dragon"},
			{Type: domain.EffectSetQuality, Quality: "journeyBegun", Value: true},
		},
	}
	gen := NewContentGenerator(client, time.Second, zap.NewNop())
	gc := &domain.GenerationContext{CharacterID: uuid.New()}

	c := gen.Generate(context.Background(), domain.NarrativeNeed{Kind: domain.ContentQuest}, gc)

	require.Len(t, c.Effects, 2)
	assert.Equal(t, domain.IncrementQuality{Name: "strength", Delta: 2}, c.Effects[0])
	assert.Equal(t, domain.SetQuality{Name: "journeyBegun", Value: domain.BoolValue(true)}, c.Effects[1])
}

func TestVariationsToleratesPartialFailure(t *testing.T) {
	client := llm.NewMockClient()
	gen := NewContentGenerator(client, time.Second, zap.NewNop())
	gc := &domain.GenerationContext{CharacterID: uuid.New()}

	siblings := gen.Variations(context.Background(), domain.NarrativeNeed{Kind: domain.ContentQuest}, gc, 3)
	assert.Len(t, siblings, 3)

	client.QuestError = errors.New("service unavailable")
	siblings = gen.Variations(context.Background(), domain.NarrativeNeed{Kind: domain.ContentQuest}, gc, 3)
	assert.Empty(t, siblings)
}
