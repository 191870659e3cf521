package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type QualityType string

const (
	QualityBool   QualityType = "bool"
	QualityInt    QualityType = "int"
	QualityString QualityType = "string"
)

func ValidQualityType(t string) bool {
	switch QualityType(t) {
	case QualityBool, QualityInt, QualityString:
		return true
	}
	return false
}

// QualityValue is a typed value for a quality. Exactly one of the value
// fields is meaningful, selected by Type.
type QualityValue struct {
	Type QualityType `json:"type"`
	Bool bool        `json:"bool_value,omitempty"`
	Int  int         `json:"int_value,omitempty"`
	Str  string      `json:"string_value,omitempty"`
}

func BoolValue(b bool) QualityValue   { return QualityValue{Type: QualityBool, Bool: b} }
func IntValue(i int) QualityValue     { return QualityValue{Type: QualityInt, Int: i} }
func StringValue(s string) QualityValue { return QualityValue{Type: QualityString, Str: s} }

// ValueFromAny converts a loosely-typed value (JSON/YAML decode output) into
// a QualityValue. Floats without a fractional part are treated as ints,
// matching how JSON numbers decode.
func ValueFromAny(v any) (QualityValue, error) {
	switch x := v.(type) {
	case bool:
		return BoolValue(x), nil
	case int:
		return IntValue(x), nil
	case int64:
		return IntValue(int(x)), nil
	case float64:
		return IntValue(int(x)), nil
	case string:
		return StringValue(x), nil
	default:
		return QualityValue{}, fmt.Errorf("unsupported quality value type %T", v)
	}
}

// Any returns the value as its loosely-typed form, for JSON responses.
func (v QualityValue) Any() any {
	switch v.Type {
	case QualityBool:
		return v.Bool
	case QualityInt:
		return v.Int
	default:
		return v.Str
	}
}

func (v QualityValue) String() string {
	switch v.Type {
	case QualityBool:
		return fmt.Sprintf("%t", v.Bool)
	case QualityInt:
		return fmt.Sprintf("%d", v.Int)
	default:
		return v.Str
	}
}

// Quality is a per-character named flag/counter/label that gates narrative
// content. Qualities are created on first write and only ever overwritten or
// incremented, never deleted.
type Quality struct {
	ID          uuid.UUID    `json:"id"`
	CharacterID uuid.UUID    `json:"character_id"`
	Name        string       `json:"name"`
	Value       QualityValue `json:"value"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Well-known quality names the engine itself reads or writes.
const (
	QualityCurrentAct      = "currentAct"
	QualityQuestsCompleted = "questsCompleted"
)

// actRequirements lists the boolean qualities that must all be true before a
// character can be considered to have reached each act. Act 1 has no
// requirements; the keys are acts 2 through 4.
var actRequirements = map[int][]string{
	2: {"journeyBegun", "firstChallengeOvercome"},
	3: {"trainingGroundsFound", "rivalConfronted"},
	4: {"greatTrialSurvived", "innerDemonFaced"},
}

const MaxAct = 4

// ActRequirements returns the boolean qualities required to reach the given
// act. Nil for act 1 and out-of-range acts.
func ActRequirements(act int) []string {
	return actRequirements[act]
}

// ComputeProgressionStage derives the character's current act (1-4) from its
// boolean qualities. The stage is computed, never stored: a character is in
// the highest act whose requirements, and all earlier acts' requirements,
// are met.
func ComputeProgressionStage(qualities map[string]Quality) int {
	stage := 1
	for act := 2; act <= MaxAct; act++ {
		if !actRequirementsMet(act, qualities) {
			break
		}
		stage = act
	}
	return stage
}

func actRequirementsMet(act int, qualities map[string]Quality) bool {
	for _, name := range actRequirements[act] {
		q, ok := qualities[name]
		if !ok || q.Value.Type != QualityBool || !q.Value.Bool {
			return false
		}
	}
	return true
}
