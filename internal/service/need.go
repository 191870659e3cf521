package service

import (
	"fmt"
	"time"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"go.uber.org/zap"
)

const (
	// maxOpenQuests caps concurrent open quests; beyond this no new content
	// is warranted.
	maxOpenQuests = 3

	// statImbalanceGap is the spread between the strongest and weakest core
	// stat that triggers a training-themed quest.
	statImbalanceGap = 5

	// quietPeriod is how long the story log can sit without a new event
	// before urgency is raised above the steady baseline.
	quietPeriod = 24 * time.Hour

	questStatusAttr     = "status"
	questStatusOpen     = "open"
	questStatusAwaiting = "awaiting_outcome"
)

// coreStats are the int qualities the evaluator inspects for imbalance.
var coreStats = []string{"strength", "endurance", "focus", "resolve"}

// stageThemes maps the derived progression stage to its default quest theme.
var stageThemes = map[int]string{
	1: "beginnings",
	2: "rising_action",
	3: "trials",
	4: "culmination",
}

// NeedEvaluator decides, from an assembled context snapshot, whether new
// narrative content is warranted and what shape it should take. Pure over
// its inputs; all state reads happen in assembly.
type NeedEvaluator struct {
	logger *zap.Logger
}

func NewNeedEvaluator(logger *zap.Logger) *NeedEvaluator {
	return &NeedEvaluator{logger: logger}
}

// Evaluate derives the narrative need. Priority order: a quest awaiting an
// outcome always wins, then the open-quest cap suppresses new content, then
// fresh characters and stat imbalance shape the theme. A story idle past
// quietPeriod raises urgency over the steady baseline.
func (n *NeedEvaluator) Evaluate(gc *domain.GenerationContext, now time.Time) domain.NarrativeNeed {
	stage := domain.ComputeProgressionStage(gc.Qualities)
	need := domain.NarrativeNeed{Stage: stage}

	open, awaiting := questEntities(gc.Entities)

	if len(awaiting) > 0 {
		target := awaiting[0]
		need.NeedsContent = true
		need.Kind = domain.ContentOutcome
		need.TargetFocus = target.Name
		need.Theme = stageThemes[stage]
		need.Urgency = 9
		need.Reasoning = append(need.Reasoning,
			fmt.Sprintf("quest %q awaits an outcome", target.Name))
		return need
	}

	if len(open) >= maxOpenQuests {
		need.NeedsContent = false
		need.Reasoning = append(need.Reasoning,
			fmt.Sprintf("%d quests already open, cap is %d", len(open), maxOpenQuests))
		return need
	}

	need.NeedsContent = true
	need.Kind = domain.ContentQuest
	need.Theme = stageThemes[stage]

	if len(gc.WorkingMemory) == 0 && len(gc.Episodes) == 0 && gc.NarrativeSummary == "" {
		need.Urgency = 8
		need.Theme = stageThemes[1]
		need.Reasoning = append(need.Reasoning, "fresh character with no history")
		return need
	}

	if weak, gap := statImbalance(gc.Qualities); gap >= statImbalanceGap {
		need.Theme = "training"
		need.TargetFocus = weak
		need.Urgency = 6
		need.Reasoning = append(need.Reasoning,
			fmt.Sprintf("stat imbalance: %s trails by %d", weak, gap))
		return need
	}

	if idle, ok := timeSinceLastEvent(gc.WorkingMemory, now); ok && idle >= quietPeriod {
		need.Urgency = 7
		need.Reasoning = append(need.Reasoning,
			fmt.Sprintf("no new content for %s", idle.Round(time.Hour)))
		return need
	}

	need.Urgency = 4
	need.Reasoning = append(need.Reasoning,
		fmt.Sprintf("steady progression at stage %d", stage))
	return need
}

// timeSinceLastEvent measures the gap from the newest working-memory event.
func timeSinceLastEvent(events []domain.NarrativeEvent, now time.Time) (time.Duration, bool) {
	if len(events) == 0 {
		return 0, false
	}
	newest := events[0].CreatedAt
	for _, e := range events[1:] {
		if e.CreatedAt.After(newest) {
			newest = e.CreatedAt
		}
	}
	return now.Sub(newest), true
}

// questEntities splits quest-typed graph entities by their status attribute.
func questEntities(entities []domain.Entity) (open, awaiting []domain.Entity) {
	for _, e := range entities {
		if e.Type != domain.EntityQuest {
			continue
		}
		status, _ := e.Attributes[questStatusAttr].(string)
		switch status {
		case questStatusAwaiting:
			awaiting = append(awaiting, e)
		case questStatusOpen:
			open = append(open, e)
		}
	}
	return open, awaiting
}

// statImbalance returns the weakest core stat and the gap to the strongest.
// Stats the character does not have yet count as zero.
func statImbalance(qualities map[string]domain.Quality) (string, int) {
	weakest, lowest, highest := "", 0, 0
	for i, name := range coreStats {
		value := 0
		if q, ok := qualities[name]; ok && q.Value.Type == domain.QualityInt {
			value = q.Value.Int
		}
		if i == 0 || value < lowest {
			weakest, lowest = name, value
		}
		if i == 0 || value > highest {
			highest = value
		}
	}
	return weakest, highest - lowest
}
