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
	minNarrativeLength = 40
	maxNarrativeLength = 4000
	maxEffectsPerPiece = 5
)

// narrativeRules are the world-consistency rules the compliance judge
// enforces. They travel with every judge call.
var narrativeRules = []string{
	"Content must stay in the second person and address the character directly.",
	"Content must not contradict established events, relationships, or quest outcomes.",
	"Dead or departed characters must not reappear without an in-world explanation.",
	"Tone stays grounded heroic fantasy: no modern technology, no fourth-wall breaks.",
	"Quests must map to real-world physical activity the player can actually do.",
	"Content must respect the character's current act and not reference future acts.",
}

// Validator runs the four-gate pipeline: eligibility before generation,
// structure at generation time, rule compliance via the judge, and per-effect
// state checks before apply. Results are always recomputed, never cached.
type Validator struct {
	llm           domain.LLMClient
	qualityStore  domain.QualityStore
	storyletStore domain.StoryletStore
	threshold     float64
	logger        *zap.Logger
}

func NewValidator(
	llm domain.LLMClient,
	qualityStore domain.QualityStore,
	storyletStore domain.StoryletStore,
	threshold float64,
	logger *zap.Logger,
) *Validator {
	return &Validator{
		llm:           llm,
		qualityStore:  qualityStore,
		storyletStore: storyletStore,
		threshold:     threshold,
		logger:        logger,
	}
}

func (v *Validator) Threshold() float64 { return v.threshold }

func fail(r *domain.ValidationResult, issue string) {
	r.Passed = false
	r.Score = 0
	r.Issues = append(r.Issues, issue)
}

// PreGeneration gates whether generation should run at all. Failing here is
// not revisable; there is no candidate yet.
func (v *Validator) PreGeneration(need domain.NarrativeNeed, gc *domain.GenerationContext) *domain.ValidationResult {
	result := &domain.ValidationResult{Passed: true, Score: 100}

	if !need.NeedsContent {
		fail(result, "no narrative need at this time")
	}
	if need.Kind != domain.ContentQuest && need.Kind != domain.ContentOutcome {
		fail(result, fmt.Sprintf("unknown content kind %q", need.Kind))
	}
	if stage := domain.ComputeProgressionStage(gc.Qualities); need.Stage > stage {
		fail(result, fmt.Sprintf("need targets stage %d but character is at stage %d", need.Stage, stage))
	}
	return result
}

// Structural checks the candidate's shape. Failures here are revisable.
func (v *Validator) Structural(c *domain.Candidate) *domain.ValidationResult {
	result := &domain.ValidationResult{Passed: true, Score: 100, CanRevise: true}

	if strings.TrimSpace(c.Title) == "" {
		fail(result, "missing title")
	}
	narrative := strings.TrimSpace(c.Narrative)
	if narrative == "" {
		fail(result, "missing narrative")
	} else if len(narrative) < minNarrativeLength {
		fail(result, fmt.Sprintf("narrative too short (%d chars, minimum %d)", len(narrative), minNarrativeLength))
	} else if len(narrative) > maxNarrativeLength {
		fail(result, fmt.Sprintf("narrative too long (%d chars, maximum %d)", len(narrative), maxNarrativeLength))
	}
	if c.Kind == domain.ContentQuest && len(c.Objectives) == 0 {
		fail(result, "quest has no objectives")
		result.Suggestions = append(result.Suggestions, "add at least one concrete objective")
	}
	if len(c.Effects) > maxEffectsPerPiece {
		fail(result, fmt.Sprintf("too many effects (%d, maximum %d)", len(c.Effects), maxEffectsPerPiece))
	}
	return result
}

// RuleCompliance scores the candidate against the narrative rules. The judge
// produces the base score; a judge failure is a hard error because an
// unscored candidate must never be accepted.
func (v *Validator) RuleCompliance(ctx context.Context, c *domain.Candidate, gc *domain.GenerationContext) (*domain.ValidationResult, error) {
	history := make([]string, 0, len(gc.WorkingMemory))
	for _, e := range gc.WorkingMemory {
		history = append(history, e.Content)
	}

	verdict, err := v.llm.JudgeCompliance(ctx, c, narrativeRules, history)
	if err != nil {
		return nil, fmt.Errorf("judge compliance: %w", err)
	}

	score := verdict.Score
	issues := append([]string(nil), verdict.Issues...)

	// Static penalties catch violations the judge can miss.
	for _, penalty := range staticPenalties(c) {
		score -= penalty.cost
		issues = append(issues, penalty.issue)
	}
	if score < 0 {
		score = 0
	}

	return &domain.ValidationResult{
		Passed:      score >= v.threshold,
		Score:       score,
		Issues:      issues,
		Suggestions: verdict.Suggestions,
		CanRevise:   true,
	}, nil
}

type penalty struct {
	issue string
	cost  float64
}

func staticPenalties(c *domain.Candidate) []penalty {
	var out []penalty
	lower := strings.ToLower(c.Narrative)
	for _, banned := range []string{"as an ai", "language model", "cannot generate"} {
		if strings.Contains(lower, banned) {
			out = append(out, penalty{issue: "narrative leaks assistant framing", cost: 50})
			break
		}
	}
	if c.Kind == domain.ContentQuest && !strings.Contains(lower, "you") {
		out = append(out, penalty{issue: "narrative never addresses the character", cost: 15})
	}
	return out
}

// CheckEffect decides whether one effect may touch character state. Returns
// nil when the effect is allowed.
func (v *Validator) CheckEffect(ctx context.Context, characterID uuid.UUID, effect domain.Effect) error {
	switch e := effect.(type) {
	case domain.SetQuality:
		return v.checkSetQuality(ctx, characterID, e)
	case domain.IncrementQuality:
		return v.checkIncrementQuality(ctx, characterID, e)
	case domain.UnlockStorylet:
		if _, err := v.storyletStore.GetByKey(ctx, e.Key); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("unlock references unknown storylet %q", e.Key)
			}
			return fmt.Errorf("verify storylet %q: %w", e.Key, err)
		}
		return nil
	case domain.ProgressNarrative:
		if e.Acts < 0 {
			return fmt.Errorf("progress_narrative cannot move backwards (%d acts)", e.Acts)
		}
		return nil
	default:
		return fmt.Errorf("unknown effect type %T", effect)
	}
}

func (v *Validator) checkSetQuality(ctx context.Context, characterID uuid.UUID, e domain.SetQuality) error {
	// Engine-owned counters move only through their dedicated effects.
	if e.Name == domain.QualityCurrentAct || e.Name == domain.QualityQuestsCompleted {
		return fmt.Errorf("quality %q is engine-managed and cannot be set directly", e.Name)
	}

	existing, err := v.qualityStore.Get(ctx, characterID, e.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("verify quality %q: %w", e.Name, err)
	}

	if existing.Value.Type != e.Value.Type {
		return fmt.Errorf("quality %q is %s, cannot set %s value", e.Name, existing.Value.Type, e.Value.Type)
	}

	// Act milestones, once earned, cannot be retconned back to false.
	if existing.Value.Type == domain.QualityBool && existing.Value.Bool && !e.Value.Bool && isActRequirement(e.Name) {
		return fmt.Errorf("quality %q is an earned act milestone and cannot be unset", e.Name)
	}
	return nil
}

func (v *Validator) checkIncrementQuality(ctx context.Context, characterID uuid.UUID, e domain.IncrementQuality) error {
	existing, err := v.qualityStore.Get(ctx, characterID, e.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("verify quality %q: %w", e.Name, err)
	}
	if existing.Value.Type != domain.QualityInt {
		return fmt.Errorf("quality %q is %s, cannot increment", e.Name, existing.Value.Type)
	}
	return nil
}

func isActRequirement(name string) bool {
	for act := 2; act <= domain.MaxAct; act++ {
		for _, req := range domain.ActRequirements(act) {
			if req == name {
				return true
			}
		}
	}
	return false
}

// FilterEffects splits a candidate's effects into applicable and rejected.
// Each rejection is logged individually; the accepted remainder still
// applies, so one bad effect never discards the whole piece.
func (v *Validator) FilterEffects(ctx context.Context, characterID uuid.UUID, effects []domain.Effect) (kept []domain.Effect, dropped []string) {
	for _, effect := range effects {
		if err := v.CheckEffect(ctx, characterID, effect); err != nil {
			v.logger.Warn("rejecting effect",
				zap.String("character_id", characterID.String()),
				zap.String("effect", describeEffect(effect)),
				zap.Error(err))
			dropped = append(dropped, err.Error())
			continue
		}
		kept = append(kept, effect)
	}
	return kept, dropped
}
