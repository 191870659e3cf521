package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"go.uber.org/zap"
)

const (
	// First passes run hot for variety; revisions run cool so feedback is
	// followed rather than reinvented.
	firstPassTemperature float32 = 0.9
	revisionTemperature  float32 = 0.4
)

// ContentGenerator wraps the generation service with timeouts and a
// deterministic fallback, so the orchestrator always receives a candidate.
type ContentGenerator struct {
	llm     domain.LLMClient
	timeout time.Duration
	logger  *zap.Logger
}

func NewContentGenerator(llm domain.LLMClient, timeout time.Duration, logger *zap.Logger) *ContentGenerator {
	return &ContentGenerator{llm: llm, timeout: timeout, logger: logger}
}

// Generate produces a first-pass candidate. Any generation failure, timeout
// included, yields the templated fallback instead of an error.
func (g *ContentGenerator) Generate(ctx context.Context, need domain.NarrativeNeed, gc *domain.GenerationContext) *domain.Candidate {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var content *domain.GeneratedContent
	var err error
	switch need.Kind {
	case domain.ContentOutcome:
		content, err = g.llm.GenerateOutcome(ctx, need, *gc, firstPassTemperature)
	default:
		content, err = g.llm.GenerateQuest(ctx, need, *gc, firstPassTemperature)
	}
	if err != nil {
		g.logger.Warn("generation failed, using fallback",
			zap.String("character_id", gc.CharacterID.String()),
			zap.String("kind", string(need.Kind)),
			zap.Error(err))
		return g.fallback(need, gc)
	}
	return g.toCandidate(need, gc, content, 0, nil)
}

// Revise produces the next revision of a rejected candidate, folding the
// validator's issues and suggestions into the prompt. A revision failure
// returns an error; the orchestrator decides whether the prior candidate or
// the fallback stands in.
func (g *ContentGenerator) Revise(ctx context.Context, prior *domain.Candidate, vr *domain.ValidationResult, gc *domain.GenerationContext) (*domain.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	feedback := make([]string, 0, len(vr.Issues)+len(vr.Suggestions))
	feedback = append(feedback, vr.Issues...)
	feedback = append(feedback, vr.Suggestions...)

	content, err := g.llm.ReviseContent(ctx, prior, feedback, *gc, revisionTemperature)
	if err != nil {
		return nil, fmt.Errorf("revise content: %w", err)
	}

	need := domain.NarrativeNeed{Kind: prior.Kind, Theme: prior.Theme}
	return g.toCandidate(need, gc, content, prior.Revision+1, feedback), nil
}

// Variations generates count sibling candidates concurrently for
// consistency checking. Failed siblings are dropped; callers tolerate fewer
// than count.
func (g *ContentGenerator) Variations(ctx context.Context, need domain.NarrativeNeed, gc *domain.GenerationContext, count int) []*domain.Candidate {
	results := make([]*domain.Candidate, count)
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			genCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()

			var content *domain.GeneratedContent
			var err error
			switch need.Kind {
			case domain.ContentOutcome:
				content, err = g.llm.GenerateOutcome(genCtx, need, *gc, firstPassTemperature)
			default:
				content, err = g.llm.GenerateQuest(genCtx, need, *gc, firstPassTemperature)
			}
			if err != nil {
				g.logger.Warn("sibling generation failed",
					zap.Int("sibling", i), zap.Error(err))
				return
			}
			results[i] = g.toCandidate(need, gc, content, 0, nil)
		}(i)
	}
	wg.Wait()

	siblings := make([]*domain.Candidate, 0, count)
	for _, c := range results {
		if c != nil {
			siblings = append(siblings, c)
		}
	}
	return siblings
}

func (g *ContentGenerator) toCandidate(need domain.NarrativeNeed, gc *domain.GenerationContext, content *domain.GeneratedContent, revision int, feedback []string) *domain.Candidate {
	c := &domain.Candidate{
		Kind:        need.Kind,
		CharacterID: gc.CharacterID,
		Title:       content.Title,
		Narrative:   content.Narrative,
		Objectives:  content.Objectives,
		Theme:       content.Theme,
		Revision:    revision,
		Feedback:    feedback,
	}
	if c.Kind == "" {
		c.Kind = domain.ContentQuest
	}
	if c.Theme == "" {
		c.Theme = need.Theme
	}

	for _, spec := range content.Effects {
		effect, err := spec.Effect()
		if err != nil {
			if errors.Is(err, domain.ErrUnknownEffect) {
				g.logger.Warn("skipping unknown generated effect",
					zap.String("type", spec.Type))
				continue
			}
			g.logger.Warn("skipping malformed generated effect",
				zap.String("type", spec.Type), zap.Error(err))
			continue
		}
		c.Effects = append(c.Effects, effect)
	}
	return c
}

// fallback is the deterministic template used when generation is
// unavailable. It carries no effects, so character state stays untouched,
// and enough structure to pass the structural gate.
func (g *ContentGenerator) fallback(need domain.NarrativeNeed, gc *domain.GenerationContext) *domain.Candidate {
	theme := need.Theme
	if theme == "" {
		theme = "beginnings"
	}

	if need.Kind == domain.ContentOutcome {
		return &domain.Candidate{
			Kind:        domain.ContentOutcome,
			CharacterID: gc.CharacterID,
			Title:       "The Dust Settles",
			Narrative: "The trial is over. You catch your breath and take stock: " +
				"you are still standing, and that counts for something. The full " +
				"shape of what you accomplished will become clear with time, but " +
				"tonight you rest knowing the work is done.",
			Theme:    theme,
			Fallback: true,
		}
	}
	return &domain.Candidate{
		Kind:        domain.ContentQuest,
		CharacterID: gc.CharacterID,
		Title:       "A Call to Training",
		Narrative: "Word reaches you of a challenge suited to where you stand on " +
			"your path. Nothing grand, nothing mysterious: honest work that will " +
			"leave you stronger than it found you. The road is waiting.",
		Objectives: []string{"Complete a training session", "Return and report what you learned"},
		Theme:      theme,
		Fallback:   true,
	}
}
