package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// A theme-anchor storylet is prioritized every N completed quests.
	themeAnchorInterval = 5
)

// StoryletService is the storylet/quality engine: prerequisite evaluation,
// availability, selection ordering, and effect application.
type StoryletService struct {
	storyletStore domain.StoryletStore
	qualityStore  domain.QualityStore
	logger        *zap.Logger
}

func NewStoryletService(
	storyletStore domain.StoryletStore,
	qualityStore domain.QualityStore,
	logger *zap.Logger,
) *StoryletService {
	return &StoryletService{
		storyletStore: storyletStore,
		qualityStore:  qualityStore,
		logger:        logger,
	}
}

// Qualities returns the character's current qualities keyed by name.
func (s *StoryletService) Qualities(ctx context.Context, characterID uuid.UUID) (map[string]domain.Quality, error) {
	list, err := s.qualityStore.List(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("list qualities: %w", err)
	}
	qualities := make(map[string]domain.Quality, len(list))
	for _, q := range list {
		qualities[q.Name] = q
	}
	return qualities, nil
}

func (s *StoryletService) SetQuality(ctx context.Context, characterID uuid.UUID, name string, value domain.QualityValue) error {
	q := &domain.Quality{CharacterID: characterID, Name: name, Value: value}
	if err := s.qualityStore.Set(ctx, q); err != nil {
		return fmt.Errorf("set quality %q: %w", name, err)
	}
	return nil
}

// IncrementQuality adds delta to an int quality, creating it at delta if it
// does not exist yet.
func (s *StoryletService) IncrementQuality(ctx context.Context, characterID uuid.UUID, name string, delta int) (int, error) {
	current := 0
	q, err := s.qualityStore.Get(ctx, characterID, name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("get quality %q: %w", name, err)
	}
	if q != nil {
		if q.Value.Type != domain.QualityInt {
			return 0, fmt.Errorf("quality %q is %s, not int", name, q.Value.Type)
		}
		current = q.Value.Int
	}

	next := current + delta
	if err := s.SetQuality(ctx, characterID, name, domain.IntValue(next)); err != nil {
		return 0, err
	}
	return next, nil
}

// CheckPrerequisites evaluates a prerequisite expression against a quality
// snapshot. Pure: identical inputs always produce identical results.
func CheckPrerequisites(expr domain.BoolExpr, qualities map[string]domain.Quality) bool {
	switch e := expr.(type) {
	case domain.All:
		for _, sub := range e.Of {
			if !CheckPrerequisites(sub, qualities) {
				return false
			}
		}
		return true
	case domain.Any:
		for _, sub := range e.Of {
			if CheckPrerequisites(sub, qualities) {
				return true
			}
		}
		return false
	case domain.None:
		for _, sub := range e.Of {
			if CheckPrerequisites(sub, qualities) {
				return false
			}
		}
		return true
	case domain.Leaf:
		return evalLeaf(e, qualities)
	default:
		return false
	}
}

// evalLeaf compares one quality. A missing quality satisfies only not_has;
// type mismatches evaluate to false rather than erroring.
func evalLeaf(leaf domain.Leaf, qualities map[string]domain.Quality) bool {
	q, ok := qualities[leaf.Quality]

	switch leaf.Op {
	case domain.OpHas:
		return ok
	case domain.OpNotHas:
		return !ok
	}
	if !ok {
		return false
	}

	switch leaf.Op {
	case domain.OpEq:
		return qualityEquals(q.Value, leaf.Value)
	case domain.OpNe:
		return !qualityEquals(q.Value, leaf.Value)
	case domain.OpGt, domain.OpGe, domain.OpLt, domain.OpLe:
		if q.Value.Type != domain.QualityInt || leaf.Value.Type != domain.QualityInt {
			return false
		}
		switch leaf.Op {
		case domain.OpGt:
			return q.Value.Int > leaf.Value.Int
		case domain.OpGe:
			return q.Value.Int >= leaf.Value.Int
		case domain.OpLt:
			return q.Value.Int < leaf.Value.Int
		default:
			return q.Value.Int <= leaf.Value.Int
		}
	}
	return false
}

func qualityEquals(a, b domain.QualityValue) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case domain.QualityBool:
		return a.Bool == b.Bool
	case domain.QualityInt:
		return a.Int == b.Int
	default:
		return a.Str == b.Str
	}
}

// Available recomputes the storylets this character can currently enter.
// Availability is never stored: it is derived fresh from unlocks plus the
// prerequisite check on every call.
func (s *StoryletService) Available(ctx context.Context, characterID uuid.UUID) ([]domain.Storylet, error) {
	storylets, err := s.storyletStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list storylets: %w", err)
	}
	unlockedKeys, err := s.storyletStore.ListUnlocked(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("list unlocks: %w", err)
	}
	unlocked := make(map[string]bool, len(unlockedKeys))
	for _, k := range unlockedKeys {
		unlocked[k] = true
	}

	qualities, err := s.Qualities(ctx, characterID)
	if err != nil {
		return nil, err
	}

	var available []domain.Storylet
	for _, sl := range storylets {
		if sl.RequiresUnlock && !unlocked[sl.Key] {
			continue
		}
		if CheckPrerequisites(sl.Prerequisites, qualities) {
			available = append(available, sl)
		}
	}
	return available, nil
}

// SortForSelection orders available storylets for selection: progression
// storylets first, then theme anchors when one is due (every
// themeAnchorInterval completed quests), then declared urgency.
func SortForSelection(storylets []domain.Storylet, questsCompleted int) []domain.Storylet {
	anchorDue := questsCompleted > 0 && questsCompleted%themeAnchorInterval == 0

	sorted := make([]domain.Storylet, len(storylets))
	copy(sorted, storylets)

	rank := func(sl domain.Storylet) int {
		switch {
		case sl.Type == domain.StoryletProgression:
			return 0
		case anchorDue && sl.AnchorsTheme:
			return 1
		default:
			return 2
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := rank(sorted[i]), rank(sorted[j])
		if ri != rj {
			return ri < rj
		}
		if sorted[i].Urgency != sorted[j].Urgency {
			return sorted[i].Urgency > sorted[j].Urgency
		}
		return sorted[i].Key < sorted[j].Key
	})
	return sorted
}

// EffectReport records what an effect application actually did.
type EffectReport struct {
	Applied []string `json:"applied"`
	Skipped []string `json:"skipped"`
}

// ApplyEffects applies a candidate's (or storylet's) effects to character
// state. Callers run the post-generation gate first; by the time effects
// reach here they have been sanity-checked, so a store failure is a real
// error. Unknown effect values are skipped with a warning, never a crash.
func (s *StoryletService) ApplyEffects(ctx context.Context, characterID uuid.UUID, effects []domain.Effect) (*EffectReport, error) {
	report := &EffectReport{}
	for _, effect := range effects {
		desc := describeEffect(effect)
		switch e := effect.(type) {
		case domain.SetQuality:
			if err := s.SetQuality(ctx, characterID, e.Name, e.Value); err != nil {
				return report, err
			}
		case domain.IncrementQuality:
			if _, err := s.IncrementQuality(ctx, characterID, e.Name, e.Delta); err != nil {
				return report, err
			}
		case domain.UnlockStorylet:
			if err := s.storyletStore.Unlock(ctx, characterID, e.Key); err != nil {
				return report, fmt.Errorf("unlock storylet %q: %w", e.Key, err)
			}
		case domain.ProgressNarrative:
			if err := s.progressNarrative(ctx, characterID, e.Acts); err != nil {
				return report, err
			}
		default:
			s.logger.Warn("skipping unknown effect", zap.String("effect", desc))
			report.Skipped = append(report.Skipped, desc)
			continue
		}
		report.Applied = append(report.Applied, desc)
	}
	return report, nil
}

// progressNarrative advances the act counter, clamped to MaxAct. The act
// never regresses.
func (s *StoryletService) progressNarrative(ctx context.Context, characterID uuid.UUID, acts int) error {
	current := 1
	q, err := s.qualityStore.Get(ctx, characterID, domain.QualityCurrentAct)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("get act counter: %w", err)
	}
	if q != nil && q.Value.Type == domain.QualityInt {
		current = q.Value.Int
	}

	next := current + acts
	if next > domain.MaxAct {
		next = domain.MaxAct
	}
	if next < current {
		next = current
	}
	return s.SetQuality(ctx, characterID, domain.QualityCurrentAct, domain.IntValue(next))
}

func describeEffect(effect domain.Effect) string {
	switch e := effect.(type) {
	case domain.SetQuality:
		return fmt.Sprintf("set_quality %s=%s", e.Name, e.Value.String())
	case domain.IncrementQuality:
		return fmt.Sprintf("increment_quality %s%+d", e.Name, e.Delta)
	case domain.UnlockStorylet:
		return fmt.Sprintf("unlock_storylet %s", e.Key)
	case domain.ProgressNarrative:
		return fmt.Sprintf("progress_narrative +%d", e.Acts)
	default:
		return fmt.Sprintf("unknown effect %T", effect)
	}
}

// QuestsCompleted reads the completed-quest counter quality.
func (s *StoryletService) QuestsCompleted(ctx context.Context, characterID uuid.UUID) (int, error) {
	q, err := s.qualityStore.Get(ctx, characterID, domain.QualityQuestsCompleted)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if q.Value.Type != domain.QualityInt {
		return 0, nil
	}
	return q.Value.Int, nil
}
