package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
)

// stripFences removes incidental markdown wrapping around a structured
// payload. The generation service contract tolerates this kind of noise.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func parseGenerated(raw string) (*domain.GeneratedContent, error) {
	raw = stripFences(raw)

	var content domain.GeneratedContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("parse generated content: %w (raw: %s)", err, raw)
	}
	return &content, nil
}

func parseVerdict(raw string) (*domain.ComplianceVerdict, error) {
	raw = stripFences(raw)

	var verdict domain.ComplianceVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return nil, fmt.Errorf("parse compliance verdict: %w (raw: %s)", err, raw)
	}
	if verdict.Score < 0 {
		verdict.Score = 0
	}
	if verdict.Score > 100 {
		verdict.Score = 100
	}
	return &verdict, nil
}

// renderContext flattens a GenerationContext into the structured text block
// fed to the generation service.
func renderContext(gc domain.GenerationContext) string {
	var sb strings.Builder

	if gc.NarrativeSummary != "" {
		sb.WriteString("Story so far: ")
		sb.WriteString(gc.NarrativeSummary)
		sb.WriteString("\n")
	}

	if len(gc.WorkingMemory) > 0 {
		sb.WriteString("Recent events:\n")
		for _, ev := range gc.WorkingMemory {
			fmt.Fprintf(&sb, "- [%s] %s\n", ev.Type, ev.Content)
		}
	}

	if len(gc.Episodes) > 0 {
		sb.WriteString("Past episodes:\n")
		for _, ep := range gc.Episodes {
			fmt.Fprintf(&sb, "- %s\n", ep.Content)
		}
	}

	if len(gc.Entities) > 0 {
		sb.WriteString("Known entities:\n")
		for _, e := range gc.Entities {
			fmt.Fprintf(&sb, "- %s (%s, importance %.2f)\n", e.Name, e.Type, e.Importance)
		}
	}

	if len(gc.Qualities) > 0 {
		sb.WriteString("Qualities:\n")
		for name, q := range gc.Qualities {
			fmt.Fprintf(&sb, "- %s = %s\n", name, q.Value.String())
		}
	}

	if len(gc.Retrieved) > 0 {
		sb.WriteString("Relevant memories:\n")
		for _, item := range gc.Retrieved {
			fmt.Fprintf(&sb, "- %s\n", item.Content)
		}
	}

	if gc.Extra != "" {
		sb.WriteString("Additional context: ")
		sb.WriteString(gc.Extra)
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		return "(no prior history - this is a fresh character)"
	}
	return sb.String()
}

func renderCandidate(c *domain.Candidate) string {
	specs := make([]domain.EffectSpec, 0, len(c.Effects))
	for _, e := range c.Effects {
		specs = append(specs, domain.SpecFromEffect(e))
	}
	payload := domain.GeneratedContent{
		Title:      c.Title,
		Narrative:  c.Narrative,
		Objectives: c.Objectives,
		Theme:      c.Theme,
		Effects:    specs,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return c.Narrative
	}
	return string(raw)
}

func renderList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}
	return sb.String()
}

func renderEvents(events []domain.NarrativeEvent) string {
	var sb strings.Builder
	for i, ev := range events {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, ev.Type, ev.Content)
	}
	return sb.String()
}
