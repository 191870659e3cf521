package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/llm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testThreshold = 85

func newValidatorFixture() (*Validator, *llm.MockClient, *fakeQualityStore, *fakeStoryletStore) {
	client := llm.NewMockClient()
	qualityStore := newFakeQualityStore()
	storyletStore := newFakeStoryletStore()
	v := NewValidator(client, qualityStore, storyletStore, testThreshold, zap.NewNop())
	return v, client, qualityStore, storyletStore
}

func validCandidate() *domain.Candidate {
	return &domain.Candidate{
		Kind:  domain.ContentQuest,
		Title: "The Iron Bell",
		Narrative: "You are summoned to the training yard before dawn, where the iron " +
			"bell waits to be rung a hundred times.",
		Objectives: []string{"Ring the bell one hundred times"},
		Theme:      "trials",
	}
}

func TestPreGenerationGate(t *testing.T) {
	v, _, _, _ := newValidatorFixture()
	gc := &domain.GenerationContext{CharacterID: uuid.New()}

	t.Run("passes a warranted need", func(t *testing.T) {
		need := domain.NarrativeNeed{NeedsContent: true, Kind: domain.ContentQuest, Stage: 1}
		assert.True(t, v.PreGeneration(need, gc).Passed)
	})

	t.Run("fails without narrative need", func(t *testing.T) {
		result := v.PreGeneration(domain.NarrativeNeed{NeedsContent: false}, gc)
		assert.False(t, result.Passed)
		assert.False(t, result.CanRevise)
	})

	t.Run("fails on unknown kind", func(t *testing.T) {
		need := domain.NarrativeNeed{NeedsContent: true, Kind: "ballad", Stage: 1}
		assert.False(t, v.PreGeneration(need, gc).Passed)
	})

	t.Run("fails when need outruns progression", func(t *testing.T) {
		need := domain.NarrativeNeed{NeedsContent: true, Kind: domain.ContentQuest, Stage: 3}
		result := v.PreGeneration(need, gc)
		assert.False(t, result.Passed)
	})
}

func TestStructuralGate(t *testing.T) {
	v, _, _, _ := newValidatorFixture()

	t.Run("passes a well-formed quest", func(t *testing.T) {
		result := v.Structural(validCandidate())
		assert.True(t, result.Passed)
		assert.True(t, result.CanRevise)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		c := validCandidate()
		c.Title = "  "
		assert.False(t, v.Structural(c).Passed)
	})

	t.Run("rejects short narrative", func(t *testing.T) {
		c := validCandidate()
		c.Narrative = "too short"
		result := v.Structural(c)
		assert.False(t, result.Passed)
		assert.True(t, result.CanRevise)
	})

	t.Run("rejects oversized narrative", func(t *testing.T) {
		c := validCandidate()
		c.Narrative = strings.Repeat("endless prose ", 400)
		assert.False(t, v.Structural(c).Passed)
	})

	t.Run("quest requires objectives", func(t *testing.T) {
		c := validCandidate()
		c.Objectives = nil
		result := v.Structural(c)
		assert.False(t, result.Passed)
		assert.NotEmpty(t, result.Suggestions)
	})

	t.Run("outcome needs no objectives", func(t *testing.T) {
		c := validCandidate()
		c.Kind = domain.ContentOutcome
		c.Objectives = nil
		assert.True(t, v.Structural(c).Passed)
	})

	t.Run("rejects effect overload", func(t *testing.T) {
		c := validCandidate()
		for i := 0; i < maxEffectsPerPiece+1; i++ {
			c.Effects = append(c.Effects, domain.IncrementQuality{Name: "strength", Delta: 1})
		}
		assert.False(t, v.Structural(c).Passed)
	})
}

func TestRuleComplianceGate(t *testing.T) {
	ctx := context.Background()
	gc := &domain.GenerationContext{CharacterID: uuid.New()}

	t.Run("passes at or above threshold", func(t *testing.T) {
		v, client, _, _ := newValidatorFixture()
		client.JudgeResponse = &domain.ComplianceVerdict{Score: 85}
		result, err := v.RuleCompliance(ctx, validCandidate(), gc)
		require.NoError(t, err)
		assert.True(t, result.Passed)
		assert.Equal(t, 85.0, result.Score)
	})

	t.Run("fails below threshold with issues preserved", func(t *testing.T) {
		v, client, _, _ := newValidatorFixture()
		client.JudgeResponse = &domain.ComplianceVerdict{
			Score:       60,
			Issues:      []string{"references a dead character"},
			Suggestions: []string{"use the memorial"},
		}
		result, err := v.RuleCompliance(ctx, validCandidate(), gc)
		require.NoError(t, err)
		assert.False(t, result.Passed)
		assert.True(t, result.CanRevise)
		assert.Contains(t, result.Issues, "references a dead character")
		assert.Contains(t, result.Suggestions, "use the memorial")
	})

	t.Run("judge failure is a hard error", func(t *testing.T) {
		v, client, _, _ := newValidatorFixture()
		client.JudgeError = errors.New("judge unavailable")
		_, err := v.RuleCompliance(ctx, validCandidate(), gc)
		assert.Error(t, err)
	})

	t.Run("static penalty for assistant leakage", func(t *testing.T) {
		v, client, _, _ := newValidatorFixture()
		client.JudgeResponse = &domain.ComplianceVerdict{Score: 95}
		c := validCandidate()
		c.Narrative = "As an AI language model, you cannot climb the mountain today, but the path remains."
		result, err := v.RuleCompliance(ctx, c, gc)
		require.NoError(t, err)
		assert.False(t, result.Passed)
		assert.Equal(t, 45.0, result.Score)
	})
}

func TestCheckEffect(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()

	t.Run("reserved counters rejected", func(t *testing.T) {
		v, _, _, _ := newValidatorFixture()
		err := v.CheckEffect(ctx, characterID, domain.SetQuality{
			Name: domain.QualityCurrentAct, Value: domain.IntValue(4),
		})
		assert.Error(t, err)
		err = v.CheckEffect(ctx, characterID, domain.SetQuality{
			Name: domain.QualityQuestsCompleted, Value: domain.IntValue(99),
		})
		assert.Error(t, err)
	})

	t.Run("type change rejected", func(t *testing.T) {
		v, _, qualityStore, _ := newValidatorFixture()
		require.NoError(t, qualityStore.Set(ctx, &domain.Quality{
			CharacterID: characterID, Name: "strength", Value: domain.IntValue(5),
		}))
		err := v.CheckEffect(ctx, characterID, domain.SetQuality{
			Name: "strength", Value: domain.StringValue("mighty"),
		})
		assert.Error(t, err)
	})

	t.Run("earned act milestone cannot be unset", func(t *testing.T) {
		v, _, qualityStore, _ := newValidatorFixture()
		require.NoError(t, qualityStore.Set(ctx, &domain.Quality{
			CharacterID: characterID, Name: "journeyBegun", Value: domain.BoolValue(true),
		}))
		err := v.CheckEffect(ctx, characterID, domain.SetQuality{
			Name: "journeyBegun", Value: domain.BoolValue(false),
		})
		assert.Error(t, err)

		// Ordinary booleans may still flip back.
		require.NoError(t, qualityStore.Set(ctx, &domain.Quality{
			CharacterID: characterID, Name: "wellRested", Value: domain.BoolValue(true),
		}))
		err = v.CheckEffect(ctx, characterID, domain.SetQuality{
			Name: "wellRested", Value: domain.BoolValue(false),
		})
		assert.NoError(t, err)
	})

	t.Run("increment on non-int rejected", func(t *testing.T) {
		v, _, qualityStore, _ := newValidatorFixture()
		require.NoError(t, qualityStore.Set(ctx, &domain.Quality{
			CharacterID: characterID, Name: "faction", Value: domain.StringValue("iron_circle"),
		}))
		err := v.CheckEffect(ctx, characterID, domain.IncrementQuality{Name: "faction", Delta: 1})
		assert.Error(t, err)
	})

	t.Run("negative act progression rejected", func(t *testing.T) {
		v, _, _, _ := newValidatorFixture()
		err := v.CheckEffect(ctx, characterID, domain.ProgressNarrative{Acts: -1})
		assert.Error(t, err)
	})

	t.Run("unknown storylet unlock rejected", func(t *testing.T) {
		v, _, _, storyletStore := newValidatorFixture()
		err := v.CheckEffect(ctx, characterID, domain.UnlockStorylet{Key: "no-such-storylet"})
		assert.Error(t, err)

		require.NoError(t, storyletStore.Create(ctx, &domain.Storylet{Key: "real", Prerequisites: domain.All{}}))
		assert.NoError(t, v.CheckEffect(ctx, characterID, domain.UnlockStorylet{Key: "real"}))
	})

	t.Run("new quality allowed", func(t *testing.T) {
		v, _, _, _ := newValidatorFixture()
		assert.NoError(t, v.CheckEffect(ctx, characterID, domain.SetQuality{
			Name: "newFlag", Value: domain.BoolValue(true),
		}))
		assert.NoError(t, v.CheckEffect(ctx, characterID, domain.IncrementQuality{Name: "newStat", Delta: 1}))
	})
}

func TestFilterEffectsKeepsTheRest(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()
	v, _, qualityStore, storyletStore := newValidatorFixture()

	require.NoError(t, qualityStore.Set(ctx, &domain.Quality{
		CharacterID: characterID, Name: "strength", Value: domain.IntValue(5),
	}))
	require.NoError(t, storyletStore.Create(ctx, &domain.Storylet{Key: "real", Prerequisites: domain.All{}}))

	kept, dropped := v.FilterEffects(ctx, characterID, []domain.Effect{
		domain.IncrementQuality{Name: "strength", Delta: 2},
		domain.SetQuality{Name: domain.QualityCurrentAct, Value: domain.IntValue(4)},
		domain.UnlockStorylet{Key: "real"},
		domain.UnlockStorylet{Key: "fake"},
	})

	assert.Len(t, kept, 2)
	assert.Len(t, dropped, 2)
}
