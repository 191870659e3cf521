package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type StoryletType string

const (
	StoryletProgression StoryletType = "progression"
	StoryletExploration StoryletType = "exploration"
	StoryletChallenge   StoryletType = "challenge"
	StoryletSocial      StoryletType = "social"
	StoryletRecovery    StoryletType = "recovery"
)

func ValidStoryletType(t string) bool {
	switch StoryletType(t) {
	case StoryletProgression, StoryletExploration, StoryletChallenge,
		StoryletSocial, StoryletRecovery:
		return true
	}
	return false
}

// Storylet is an immutable, designer-authored (or generated) content unit.
// Availability is always recomputed from current qualities, never stored.
type Storylet struct {
	ID             uuid.UUID    `json:"id"`
	Key            string       `json:"key"`
	Title          string       `json:"title"`
	Type           StoryletType `json:"type"`
	Prerequisites  BoolExpr     `json:"-"`
	Effects        []Effect     `json:"-"`
	AnchorsTheme   bool         `json:"anchors_theme"`
	Urgency        int          `json:"urgency"`
	RequiresUnlock bool         `json:"requires_unlock"`
	CreatedAt      time.Time    `json:"created_at"`
}

// BoolExpr is a closed prerequisite expression: All/Any/None composites over
// Leaf comparisons. The set is deliberately closed so new forms are a
// compile-time decision.
type BoolExpr interface{ boolExpr() }

type All struct{ Of []BoolExpr }
type Any struct{ Of []BoolExpr }
type None struct{ Of []BoolExpr }

type CompareOp string

const (
	OpEq     CompareOp = "=="
	OpNe     CompareOp = "!="
	OpGt     CompareOp = ">"
	OpGe     CompareOp = ">="
	OpLt     CompareOp = "<"
	OpLe     CompareOp = "<="
	OpHas    CompareOp = "has"
	OpNotHas CompareOp = "not_has"
)

func ValidCompareOp(op string) bool {
	switch CompareOp(op) {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe, OpHas, OpNotHas:
		return true
	}
	return false
}

// Leaf compares one quality's current value. The has/not_has ops ignore
// Value and test only presence.
type Leaf struct {
	Quality string
	Op      CompareOp
	Value   QualityValue
}

func (All) boolExpr()  {}
func (Any) boolExpr()  {}
func (None) boolExpr() {}
func (Leaf) boolExpr() {}

// ExprSpec is the wire/storage form of a BoolExpr, decodable from both JSON
// (generated content, jsonb columns) and YAML (catalog files). Exactly one
// of the composite lists or the leaf fields should be set.
type ExprSpec struct {
	All  []ExprSpec `json:"all,omitempty" yaml:"all,omitempty"`
	Any  []ExprSpec `json:"any,omitempty" yaml:"any,omitempty"`
	None []ExprSpec `json:"none,omitempty" yaml:"none,omitempty"`

	Quality string `json:"quality,omitempty" yaml:"quality,omitempty"`
	Op      string `json:"op,omitempty" yaml:"op,omitempty"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Expr converts the wire form into the closed BoolExpr union.
func (s ExprSpec) Expr() (BoolExpr, error) {
	switch {
	case len(s.All) > 0:
		of, err := exprList(s.All)
		if err != nil {
			return nil, err
		}
		return All{Of: of}, nil
	case len(s.Any) > 0:
		of, err := exprList(s.Any)
		if err != nil {
			return nil, err
		}
		return Any{Of: of}, nil
	case len(s.None) > 0:
		of, err := exprList(s.None)
		if err != nil {
			return nil, err
		}
		return None{Of: of}, nil
	case s.Quality != "":
		if !ValidCompareOp(s.Op) {
			return nil, fmt.Errorf("invalid compare op %q for quality %q", s.Op, s.Quality)
		}
		leaf := Leaf{Quality: s.Quality, Op: CompareOp(s.Op)}
		if s.Value != nil {
			v, err := ValueFromAny(s.Value)
			if err != nil {
				return nil, fmt.Errorf("quality %q: %w", s.Quality, err)
			}
			leaf.Value = v
		}
		return leaf, nil
	default:
		return nil, errors.New("empty prerequisite expression")
	}
}

func exprList(specs []ExprSpec) ([]BoolExpr, error) {
	out := make([]BoolExpr, 0, len(specs))
	for _, s := range specs {
		e, err := s.Expr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// SpecFromExpr converts a BoolExpr back to its wire form for storage.
func SpecFromExpr(e BoolExpr) ExprSpec {
	switch x := e.(type) {
	case All:
		return ExprSpec{All: specList(x.Of)}
	case Any:
		return ExprSpec{Any: specList(x.Of)}
	case None:
		return ExprSpec{None: specList(x.Of)}
	case Leaf:
		spec := ExprSpec{Quality: x.Quality, Op: string(x.Op)}
		if x.Op != OpHas && x.Op != OpNotHas {
			spec.Value = x.Value.Any()
		}
		return spec
	default:
		return ExprSpec{}
	}
}

func specList(exprs []BoolExpr) []ExprSpec {
	out := make([]ExprSpec, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, SpecFromExpr(e))
	}
	return out
}

// Effect is a closed union of side effects a storylet or accepted candidate
// applies to character state.
type Effect interface{ effect() }

type SetQuality struct {
	Name  string
	Value QualityValue
}

type IncrementQuality struct {
	Name  string
	Delta int
}

type UnlockStorylet struct {
	Key string
}

// ProgressNarrative advances the character's act counter by Acts (min 1).
type ProgressNarrative struct {
	Acts int
}

func (SetQuality) effect()        {}
func (IncrementQuality) effect()  {}
func (UnlockStorylet) effect()    {}
func (ProgressNarrative) effect() {}

// ErrUnknownEffect marks an effect spec whose type is not in the closed
// union. Callers log a warning and skip it rather than failing the whole
// application.
var ErrUnknownEffect = errors.New("unknown effect type")

const (
	EffectSetQuality        = "set_quality"
	EffectIncrementQuality  = "increment_quality"
	EffectUnlockStorylet    = "unlock_storylet"
	EffectProgressNarrative = "progress_narrative"
)

// EffectSpec is the wire/storage form of an Effect.
type EffectSpec struct {
	Type     string `json:"type" yaml:"type"`
	Quality  string `json:"quality,omitempty" yaml:"quality,omitempty"`
	Value    any    `json:"value,omitempty" yaml:"value,omitempty"`
	Delta    int    `json:"delta,omitempty" yaml:"delta,omitempty"`
	Storylet string `json:"storylet,omitempty" yaml:"storylet,omitempty"`
	Acts     int    `json:"acts,omitempty" yaml:"acts,omitempty"`
}

// Effect converts the wire form into the closed union. Unknown types return
// ErrUnknownEffect.
func (s EffectSpec) Effect() (Effect, error) {
	switch s.Type {
	case EffectSetQuality:
		if s.Quality == "" {
			return nil, errors.New("set_quality requires a quality name")
		}
		v, err := ValueFromAny(s.Value)
		if err != nil {
			return nil, fmt.Errorf("set_quality %q: %w", s.Quality, err)
		}
		return SetQuality{Name: s.Quality, Value: v}, nil
	case EffectIncrementQuality:
		if s.Quality == "" {
			return nil, errors.New("increment_quality requires a quality name")
		}
		delta := s.Delta
		if delta == 0 {
			delta = 1
		}
		return IncrementQuality{Name: s.Quality, Delta: delta}, nil
	case EffectUnlockStorylet:
		if s.Storylet == "" {
			return nil, errors.New("unlock_storylet requires a storylet key")
		}
		return UnlockStorylet{Key: s.Storylet}, nil
	case EffectProgressNarrative:
		acts := s.Acts
		if acts == 0 {
			acts = 1
		}
		return ProgressNarrative{Acts: acts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, s.Type)
	}
}

// SpecFromEffect converts an Effect back to its wire form for storage.
func SpecFromEffect(e Effect) EffectSpec {
	switch x := e.(type) {
	case SetQuality:
		return EffectSpec{Type: EffectSetQuality, Quality: x.Name, Value: x.Value.Any()}
	case IncrementQuality:
		return EffectSpec{Type: EffectIncrementQuality, Quality: x.Name, Delta: x.Delta}
	case UnlockStorylet:
		return EffectSpec{Type: EffectUnlockStorylet, Storylet: x.Key}
	case ProgressNarrative:
		return EffectSpec{Type: EffectProgressNarrative, Acts: x.Acts}
	default:
		return EffectSpec{}
	}
}
