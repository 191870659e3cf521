package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome classifies how an orchestration run ended.
type Outcome string

const (
	OutcomeNone             Outcome = "none"
	OutcomeQuestGenerated   Outcome = "quest_generated"
	OutcomeOutcomeGenerated Outcome = "outcome_generated"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeError            Outcome = "error"
)

// Result is the full record of one orchestration run.
type Result struct {
	Outcome     Outcome             `json:"outcome"`
	Candidate   *domain.Candidate   `json:"candidate,omitempty"`
	Need        domain.NarrativeNeed `json:"need"`
	Score       float64             `json:"score"`
	Attempts    int                 `json:"attempts"`
	Issues      []string            `json:"issues,omitempty"`
	DroppedFx   []string            `json:"dropped_effects,omitempty"`
	AppliedFx   []string            `json:"applied_effects,omitempty"`
	Consistency *ConsistencyReport  `json:"consistency,omitempty"`
	Elapsed     time.Duration       `json:"elapsed"`
}

// DirectorConfig carries the orchestration tuning knobs.
type DirectorConfig struct {
	MaxAttempts int
	BandLow     float64
	BandHigh    float64
}

// Director runs the full orchestration pipeline for one character at a time:
// assemble context, evaluate need, generate, validate with bounded revision,
// consistency-check borderline scores, then apply effects and record the
// accepted narrative.
type Director struct {
	assembler   *ContextAssembler
	needs       *NeedEvaluator
	generator   *ContentGenerator
	validator   *Validator
	consistency *SelfConsistencyChecker
	storylets   *StoryletService
	graph       *GraphService
	memory      *MemoryService
	cfg         DirectorConfig
	metrics     *Metrics
	logger      *zap.Logger

	mu sync.Mutex
	// locks holds one mutex per character and is never evicted; its size is
	// bounded by the character table, not by request volume.
	locks map[uuid.UUID]*sync.Mutex
}

func NewDirector(
	assembler *ContextAssembler,
	needs *NeedEvaluator,
	generator *ContentGenerator,
	validator *Validator,
	consistency *SelfConsistencyChecker,
	storylets *StoryletService,
	graph *GraphService,
	memory *MemoryService,
	cfg DirectorConfig,
	logger *zap.Logger,
) *Director {
	return &Director{
		assembler:   assembler,
		needs:       needs,
		generator:   generator,
		validator:   validator,
		consistency: consistency,
		storylets:   storylets,
		graph:       graph,
		memory:      memory,
		cfg:         cfg,
		metrics:     NewMetrics(),
		logger:      logger,
		locks:       map[uuid.UUID]*sync.Mutex{},
	}
}

func (d *Director) Metrics() *Metrics { return d.metrics }

// characterLock serializes orchestration per character. Different characters
// run concurrently; a second run for the same character waits.
func (d *Director) characterLock(characterID uuid.UUID) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.locks[characterID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[characterID] = lock
	}
	return lock
}

// Orchestrate runs one full pipeline pass for a character. It never panics:
// any panic in a phase is recovered into an error outcome so one bad run
// cannot take the process down.
func (d *Director) Orchestrate(ctx context.Context, characterID uuid.UUID) (result *Result) {
	lock := d.characterLock(characterID)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("orchestration panicked",
				zap.String("character_id", characterID.String()),
				zap.Any("panic", r))
			result = &Result{Outcome: OutcomeError, Issues: []string{fmt.Sprintf("internal error: %v", r)}}
		}
		result.Elapsed = time.Since(started)
		d.metrics.Record(result.Outcome, result.Elapsed)
		d.logger.Info("orchestration finished",
			zap.String("character_id", characterID.String()),
			zap.String("outcome", string(result.Outcome)),
			zap.Float64("score", result.Score),
			zap.Int("attempts", result.Attempts),
			zap.Duration("elapsed", result.Elapsed))
	}()

	// Phase 1: assemble.
	phase := time.Now()
	gc := d.assembler.Assemble(ctx, characterID, "")
	d.phaseDone(characterID, "assemble", phase)

	// Phase 2: evaluate need.
	phase = time.Now()
	need := d.needs.Evaluate(gc, time.Now().UTC())
	d.phaseDone(characterID, "evaluate", phase)

	if pre := d.validator.PreGeneration(need, gc); !pre.Passed {
		return &Result{Outcome: OutcomeNone, Need: need, Issues: pre.Issues}
	}

	// Phase 3+4: generate and validate with bounded revision.
	phase = time.Now()
	candidate := d.generator.Generate(ctx, need, gc)
	d.phaseDone(characterID, "generate", phase)

	phase = time.Now()
	candidate, vr, attempts, consistency, err := d.validateWithRevision(ctx, candidate, need, gc)
	d.phaseDone(characterID, "validate", phase)
	if err != nil {
		return &Result{Outcome: OutcomeError, Need: need, Attempts: attempts,
			Issues: []string{err.Error()}}
	}
	if !vr.Passed {
		return &Result{
			Outcome:     OutcomeValidationFailed,
			Need:        need,
			Score:       vr.Score,
			Attempts:    attempts,
			Issues:      vr.Issues,
			Consistency: consistency,
		}
	}

	// Phase 5: apply.
	phase = time.Now()
	result, err = d.apply(ctx, characterID, candidate, need)
	d.phaseDone(characterID, "apply", phase)
	if err != nil {
		return &Result{Outcome: OutcomeError, Need: need, Score: vr.Score,
			Attempts: attempts, Issues: []string{err.Error()}}
	}
	result.Need = need
	result.Score = vr.Score
	result.Attempts = attempts
	result.Consistency = consistency
	return result
}

// validateWithRevision runs the structural and rule gates with a bounded
// revision loop: at most MaxAttempts validation rounds in total, so at most
// MaxAttempts-1 revisions. Borderline scores trigger a consistency check and
// a re-judge of whichever candidate survives it.
func (d *Director) validateWithRevision(ctx context.Context, candidate *domain.Candidate, need domain.NarrativeNeed, gc *domain.GenerationContext) (*domain.Candidate, *domain.ValidationResult, int, *ConsistencyReport, error) {
	var vr *domain.ValidationResult
	var consistency *ConsistencyReport
	attempts := 0

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		attempts = attempt

		vr = d.validator.Structural(candidate)
		if vr.Passed {
			ruleVR, err := d.validator.RuleCompliance(ctx, candidate, gc)
			if err != nil {
				return candidate, nil, attempts, consistency, err
			}
			vr = ruleVR

			if d.borderline(vr.Score) {
				checked, report := d.consistency.Check(ctx, candidate, need, gc)
				consistency = report
				if report.Substituted {
					candidate = checked
					ruleVR, err = d.validator.RuleCompliance(ctx, candidate, gc)
					if err != nil {
						return candidate, nil, attempts, consistency, err
					}
					vr = ruleVR
				}
			}
		}

		if vr.Passed {
			break
		}
		if attempt == d.cfg.MaxAttempts || !vr.CanRevise {
			break
		}

		revised, err := d.generator.Revise(ctx, candidate, vr, gc)
		if err != nil {
			d.logger.Warn("revision failed, keeping prior candidate",
				zap.String("character_id", candidate.CharacterID.String()),
				zap.Error(err))
			break
		}
		candidate = revised
	}
	return candidate, vr, attempts, consistency, nil
}

func (d *Director) borderline(score float64) bool {
	return score >= d.cfg.BandLow && score < d.cfg.BandHigh
}

// apply commits an accepted candidate: effects filtered per-effect then
// applied, quest/outcome bookkeeping, and the narrative recorded into memory
// and the graph. Memory and graph writes are best-effort; the accepted
// content is not withdrawn if they fail.
func (d *Director) apply(ctx context.Context, characterID uuid.UUID, c *domain.Candidate, need domain.NarrativeNeed) (*Result, error) {
	kept, dropped := d.validator.FilterEffects(ctx, characterID, c.Effects)
	report, err := d.storylets.ApplyEffects(ctx, characterID, kept)
	if err != nil {
		return nil, fmt.Errorf("apply effects: %w", err)
	}

	result := &Result{
		Candidate: c,
		DroppedFx: dropped,
		AppliedFx: report.Applied,
	}

	var eventType domain.EventType
	switch c.Kind {
	case domain.ContentOutcome:
		result.Outcome = OutcomeOutcomeGenerated
		eventType = domain.EventOutcome
		if err := d.resolveQuest(ctx, characterID, need.TargetFocus); err != nil {
			d.logger.Warn("quest resolution bookkeeping failed",
				zap.String("character_id", characterID.String()),
				zap.Error(err))
		}
	default:
		result.Outcome = OutcomeQuestGenerated
		eventType = domain.EventQuestOffered
		if _, err := d.graph.UpsertEntity(ctx, domain.Entity{
			CharacterID: characterID,
			Type:        domain.EntityQuest,
			Name:        c.Title,
			Attributes:  map[string]any{questStatusAttr: questStatusOpen, "theme": c.Theme},
			Importance:  0.6,
		}); err != nil {
			d.logger.Warn("quest entity upsert failed",
				zap.String("character_id", characterID.String()),
				zap.Error(err))
		}
	}

	event := &domain.NarrativeEvent{
		CharacterID: characterID,
		Type:        eventType,
		Content:     c.Title + ": " + c.Narrative,
		Payload: map[string]any{
			"theme":    c.Theme,
			"fallback": c.Fallback,
		},
	}
	if err := d.memory.AppendEvent(ctx, event); err != nil {
		d.logger.Warn("event append failed",
			zap.String("character_id", characterID.String()),
			zap.Error(err))
	}
	if err := d.graph.IngestNarrative(ctx, characterID, c.Narrative); err != nil {
		d.logger.Warn("narrative ingest failed",
			zap.String("character_id", characterID.String()),
			zap.Error(err))
	}
	if err := d.memory.Compress(ctx, characterID); err != nil {
		d.logger.Warn("inline compression failed",
			zap.String("character_id", characterID.String()),
			zap.Error(err))
	}
	return result, nil
}

// resolveQuest marks the awaiting quest entity completed and bumps the
// completed-quest counter.
func (d *Director) resolveQuest(ctx context.Context, characterID uuid.UUID, questName string) error {
	if _, err := d.storylets.IncrementQuality(ctx, characterID, domain.QualityQuestsCompleted, 1); err != nil {
		return err
	}
	if questName == "" {
		return nil
	}
	_, err := d.graph.UpsertEntity(ctx, domain.Entity{
		CharacterID: characterID,
		Type:        domain.EntityQuest,
		Name:        questName,
		Attributes:  map[string]any{questStatusAttr: "completed"},
	})
	return err
}

func (d *Director) phaseDone(characterID uuid.UUID, phase string, started time.Time) {
	d.logger.Debug("phase complete",
		zap.String("character_id", characterID.String()),
		zap.String("phase", phase),
		zap.Duration("elapsed", time.Since(started)))
}
