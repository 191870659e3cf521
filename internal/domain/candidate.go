package domain

import (
	"time"

	"github.com/google/uuid"
)

type ContentKind string

const (
	ContentQuest   ContentKind = "quest"
	ContentOutcome ContentKind = "outcome"
)

// NarrativeNeed is the Need Evaluator's verdict: whether new content is
// warranted and what shape it should take. Reasoning is kept for audit
// logging only.
type NarrativeNeed struct {
	NeedsContent bool        `json:"needs_content"`
	Kind         ContentKind `json:"kind,omitempty"`
	Theme        string      `json:"theme,omitempty"`
	Urgency      int         `json:"urgency"`
	TargetFocus  string      `json:"target_focus,omitempty"`
	Stage        int         `json:"stage"`
	Reasoning    []string    `json:"reasoning,omitempty"`
}

// GenerationContext is the immutable snapshot of memory, graph and quality
// state assembled for one generation request. Missing fields mean the
// corresponding read degraded; partial context is preferable to none.
type GenerationContext struct {
	CharacterID      uuid.UUID          `json:"character_id"`
	WorkingMemory    []NarrativeEvent   `json:"working_memory,omitempty"`
	Episodes         []EpisodeSummary   `json:"episodes,omitempty"`
	NarrativeSummary string             `json:"narrative_summary,omitempty"`
	Entities         []Entity           `json:"entities,omitempty"`
	Relationships    []Relationship     `json:"relationships,omitempty"`
	Qualities        map[string]Quality `json:"qualities,omitempty"`
	Retrieved        []RetrievedItem    `json:"retrieved,omitempty"`
	Extra            string             `json:"extra,omitempty"`
	AssembledAt      time.Time          `json:"assembled_at"`
}

// Candidate is an in-flight generation result. It is never persisted; only
// its effects and narrative are applied, and only after passing validation.
type Candidate struct {
	Kind        ContentKind `json:"kind"`
	CharacterID uuid.UUID   `json:"character_id"`
	Title       string      `json:"title"`
	Narrative   string      `json:"narrative"`
	Objectives  []string    `json:"objectives,omitempty"`
	Theme       string      `json:"theme,omitempty"`
	Effects     []Effect    `json:"-"`
	Fallback    bool        `json:"fallback"`
	Revision    int         `json:"revision"`
	// Feedback carries the validator issues/suggestions that produced this
	// revision, empty for first-pass candidates.
	Feedback []string `json:"feedback,omitempty"`
}

// ValidationResult is the outcome of one validation gate. Always recomputed
// per candidate, never cached. Score is on the 0-100 compliance scale for
// the rule gate and 0/100 pass-fail for the structural gates.
type ValidationResult struct {
	Passed      bool     `json:"passed"`
	Score       float64  `json:"score"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	CanRevise   bool     `json:"can_revise"`
}

// GeneratedContent is the parsed payload returned by the generation service
// before it is shaped into a Candidate.
type GeneratedContent struct {
	Title      string       `json:"title"`
	Narrative  string       `json:"narrative"`
	Objectives []string     `json:"objectives"`
	Theme      string       `json:"theme"`
	Effects    []EffectSpec `json:"effects"`
}

// ComplianceVerdict is the rule judge's scored assessment of a candidate.
type ComplianceVerdict struct {
	Score       float64  `json:"score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}
