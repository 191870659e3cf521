package service

import (
	"context"
	"testing"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func qualitySnapshot(values map[string]domain.QualityValue) map[string]domain.Quality {
	out := make(map[string]domain.Quality, len(values))
	for name, v := range values {
		out[name] = domain.Quality{Name: name, Value: v}
	}
	return out
}

func TestCheckPrerequisites(t *testing.T) {
	qualities := qualitySnapshot(map[string]domain.QualityValue{
		"strength":     domain.IntValue(7),
		"journeyBegun": domain.BoolValue(true),
		"faction":      domain.StringValue("iron_circle"),
	})

	tests := []struct {
		name string
		expr domain.BoolExpr
		want bool
	}{
		{"int gte pass", domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(5)}, true},
		{"int gte fail", domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(10)}, false},
		{"int lt pass", domain.Leaf{Quality: "strength", Op: domain.OpLt, Value: domain.IntValue(10)}, true},
		{"bool eq pass", domain.Leaf{Quality: "journeyBegun", Op: domain.OpEq, Value: domain.BoolValue(true)}, true},
		{"string eq pass", domain.Leaf{Quality: "faction", Op: domain.OpEq, Value: domain.StringValue("iron_circle")}, true},
		{"string ne pass", domain.Leaf{Quality: "faction", Op: domain.OpNe, Value: domain.StringValue("red_hand")}, true},
		{"has pass", domain.Leaf{Quality: "strength", Op: domain.OpHas}, true},
		{"has missing", domain.Leaf{Quality: "charisma", Op: domain.OpHas}, false},
		{"not_has missing", domain.Leaf{Quality: "charisma", Op: domain.OpNotHas}, true},
		{"not_has present", domain.Leaf{Quality: "strength", Op: domain.OpNotHas}, false},
		{"missing quality comparison is false", domain.Leaf{Quality: "charisma", Op: domain.OpGe, Value: domain.IntValue(0)}, false},
		{"missing quality eq is false", domain.Leaf{Quality: "charisma", Op: domain.OpEq, Value: domain.IntValue(0)}, false},
		{"type mismatch comparison is false", domain.Leaf{Quality: "faction", Op: domain.OpGt, Value: domain.IntValue(1)}, false},
		{
			"all pass",
			domain.All{Of: []domain.BoolExpr{
				domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(5)},
				domain.Leaf{Quality: "journeyBegun", Op: domain.OpEq, Value: domain.BoolValue(true)},
			}},
			true,
		},
		{
			"all short-circuits false",
			domain.All{Of: []domain.BoolExpr{
				domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(100)},
				domain.Leaf{Quality: "journeyBegun", Op: domain.OpEq, Value: domain.BoolValue(true)},
			}},
			false,
		},
		{
			"any picks the passing branch",
			domain.Any{Of: []domain.BoolExpr{
				domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(100)},
				domain.Leaf{Quality: "faction", Op: domain.OpEq, Value: domain.StringValue("iron_circle")},
			}},
			true,
		},
		{
			"none rejects a passing branch",
			domain.None{Of: []domain.BoolExpr{
				domain.Leaf{Quality: "journeyBegun", Op: domain.OpEq, Value: domain.BoolValue(true)},
			}},
			false,
		},
		{
			"nested all/any/none",
			domain.All{Of: []domain.BoolExpr{
				domain.Any{Of: []domain.BoolExpr{
					domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(5)},
					domain.Leaf{Quality: "charisma", Op: domain.OpHas},
				}},
				domain.None{Of: []domain.BoolExpr{
					domain.Leaf{Quality: "cursed", Op: domain.OpHas},
				}},
			}},
			true,
		},
		{"empty all is true", domain.All{}, true},
		{"empty any is false", domain.Any{}, false},
		{"empty none is true", domain.None{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckPrerequisites(tt.expr, qualities))
		})
	}
}

func TestCheckPrerequisitesReferentialTransparency(t *testing.T) {
	expr := domain.All{Of: []domain.BoolExpr{
		domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(3)},
		domain.Any{Of: []domain.BoolExpr{
			domain.Leaf{Quality: "journeyBegun", Op: domain.OpEq, Value: domain.BoolValue(true)},
			domain.Leaf{Quality: "focus", Op: domain.OpGt, Value: domain.IntValue(1)},
		}},
	}}
	qualities := qualitySnapshot(map[string]domain.QualityValue{
		"strength":     domain.IntValue(4),
		"journeyBegun": domain.BoolValue(true),
	})

	first := CheckPrerequisites(expr, qualities)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, CheckPrerequisites(expr, qualities))
	}
}

func TestSortForSelection(t *testing.T) {
	storylets := []domain.Storylet{
		{Key: "side-a", Type: domain.StoryletExploration, Urgency: 3},
		{Key: "anchor", Type: domain.StoryletChallenge, AnchorsTheme: true, Urgency: 1},
		{Key: "side-b", Type: domain.StoryletExploration, Urgency: 8},
		{Key: "prog", Type: domain.StoryletProgression, Urgency: 1},
	}

	t.Run("progression always leads", func(t *testing.T) {
		sorted := SortForSelection(storylets, 3)
		assert.Equal(t, "prog", sorted[0].Key)
		// No anchor due, so urgency decides the rest.
		assert.Equal(t, "side-b", sorted[1].Key)
	})

	t.Run("theme anchor due every fifth quest", func(t *testing.T) {
		sorted := SortForSelection(storylets, 5)
		assert.Equal(t, "prog", sorted[0].Key)
		assert.Equal(t, "anchor", sorted[1].Key)
	})

	t.Run("input left untouched", func(t *testing.T) {
		before := make([]domain.Storylet, len(storylets))
		copy(before, storylets)
		SortForSelection(storylets, 5)
		assert.Equal(t, before, storylets)
	})
}

func TestAvailableRespectsUnlocksAndPrerequisites(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()
	storyletStore := newFakeStoryletStore()
	qualityStore := newFakeQualityStore()
	svc := NewStoryletService(storyletStore, qualityStore, zap.NewNop())

	require.NoError(t, storyletStore.Create(ctx, &domain.Storylet{
		Key: "open", Type: domain.StoryletExploration,
		Prerequisites: domain.All{},
	}))
	require.NoError(t, storyletStore.Create(ctx, &domain.Storylet{
		Key: "gated", Type: domain.StoryletChallenge,
		Prerequisites: domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(5)},
	}))
	require.NoError(t, storyletStore.Create(ctx, &domain.Storylet{
		Key: "locked", Type: domain.StoryletSocial,
		Prerequisites: domain.All{}, RequiresUnlock: true,
	}))

	available, err := svc.Available(ctx, characterID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "open", available[0].Key)

	// Raising the stat opens the gated storylet on the next recompute.
	require.NoError(t, svc.SetQuality(ctx, characterID, "strength", domain.IntValue(5)))
	available, err = svc.Available(ctx, characterID)
	require.NoError(t, err)
	require.Len(t, available, 2)

	// Unlocking surfaces the locked storylet.
	require.NoError(t, storyletStore.Unlock(ctx, characterID, "locked"))
	available, err = svc.Available(ctx, characterID)
	require.NoError(t, err)
	assert.Len(t, available, 3)
}

func TestAvailableMonotonicUnderQualityGain(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()
	storyletStore := newFakeStoryletStore()
	qualityStore := newFakeQualityStore()
	svc := NewStoryletService(storyletStore, qualityStore, zap.NewNop())

	// Threshold-only prerequisites: gaining stats can only grow the set.
	for _, sl := range []domain.Storylet{
		{Key: "s1", Prerequisites: domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(2)}},
		{Key: "s2", Prerequisites: domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(5)}},
		{Key: "s3", Prerequisites: domain.Leaf{Quality: "strength", Op: domain.OpGe, Value: domain.IntValue(9)}},
	} {
		s := sl
		require.NoError(t, storyletStore.Create(ctx, &s))
	}

	prev := 0
	for strength := 0; strength <= 10; strength++ {
		require.NoError(t, svc.SetQuality(ctx, characterID, "strength", domain.IntValue(strength)))
		available, err := svc.Available(ctx, characterID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(available), prev, "available set shrank at strength %d", strength)
		prev = len(available)
	}
}

func TestApplyEffects(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()
	storyletStore := newFakeStoryletStore()
	qualityStore := newFakeQualityStore()
	svc := NewStoryletService(storyletStore, qualityStore, zap.NewNop())

	require.NoError(t, storyletStore.Create(ctx, &domain.Storylet{Key: "secret", Prerequisites: domain.All{}}))

	report, err := svc.ApplyEffects(ctx, characterID, []domain.Effect{
		domain.SetQuality{Name: "journeyBegun", Value: domain.BoolValue(true)},
		domain.IncrementQuality{Name: "strength", Delta: 3},
		domain.IncrementQuality{Name: "strength", Delta: 2},
		domain.UnlockStorylet{Key: "secret"},
	})
	require.NoError(t, err)
	assert.Len(t, report.Applied, 4)
	assert.Empty(t, report.Skipped)

	q, err := qualityStore.Get(ctx, characterID, "strength")
	require.NoError(t, err)
	assert.Equal(t, 5, q.Value.Int)

	unlocked, err := storyletStore.ListUnlocked(ctx, characterID)
	require.NoError(t, err)
	assert.Equal(t, []string{"secret"}, unlocked)
}

func TestProgressNarrativeClampsAtFinalAct(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()
	svc := NewStoryletService(newFakeStoryletStore(), newFakeQualityStore(), zap.NewNop())

	for i := 0; i < 6; i++ {
		_, err := svc.ApplyEffects(ctx, characterID, []domain.Effect{domain.ProgressNarrative{Acts: 1}})
		require.NoError(t, err)
	}

	qualities, err := svc.Qualities(ctx, characterID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxAct, qualities[domain.QualityCurrentAct].Value.Int)
}

func TestIncrementQualityRejectsNonInt(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()
	svc := NewStoryletService(newFakeStoryletStore(), newFakeQualityStore(), zap.NewNop())

	require.NoError(t, svc.SetQuality(ctx, characterID, "faction", domain.StringValue("iron_circle")))
	_, err := svc.IncrementQuality(ctx, characterID, "faction", 1)
	assert.Error(t, err)
}
